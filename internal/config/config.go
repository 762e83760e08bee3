package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sockline-dev/sockline/internal/errors"
	"github.com/sockline-dev/sockline/internal/signal"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "sockline.json"

	// DefaultPort is the default development server port.
	DefaultPort = 8080

	// DefaultHost is the default development server host.
	DefaultHost = "localhost"

	// DefaultStaticDir is the default static asset directory.
	DefaultStaticDir = "public"
)

// Config represents the complete sockline.json configuration.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty"`

	// Server contains bind address and channel override settings.
	Server ServerConfig `json:"server,omitempty"`

	// Client contains browser-side channel behavior.
	Client ClientConfig `json:"client,omitempty"`

	// Static contains static file serving configuration.
	Static StaticConfig `json:"static,omitempty"`

	// Build contains the external build command configuration.
	Build BuildConfig `json:"build,omitempty"`

	// Watch contains paths to watch for changes.
	Watch []string `json:"watch,omitempty"`

	// Ignore contains patterns to skip during watch.
	Ignore []string `json:"ignore,omitempty"`

	// Proxy contains prefix-to-target forwarding rules.
	Proxy map[string]string `json:"proxy,omitempty"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// ServerConfig contains the bind address and the channel address
// overrides. Host/Port are where the server listens; the sock* trio and
// Public override where the browser's channel connection points.
type ServerConfig struct {
	// Host is the host to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty"`

	// HTTPS enables TLS; it only affects the ws/wss choice the browser
	// makes, certificates are the proxy collaborator's concern.
	HTTPS bool `json:"https,omitempty"`

	// Public is a single "hostname[:port][/path]" channel override with
	// lower precedence than the explicit sock* fields.
	Public string `json:"public,omitempty"`

	// SockHost overrides the channel hostname.
	SockHost string `json:"sockHost,omitempty"`

	// SockPort overrides the channel port.
	SockPort int `json:"sockPort,omitempty"`

	// SockPath overrides the channel endpoint path.
	SockPath string `json:"sockPath,omitempty"`
}

// ClientConfig contains browser-side channel behavior.
type ClientConfig struct {
	// Hot requests in-place hot updates on successful builds.
	Hot bool `json:"hot,omitempty"`

	// LiveReload requests a full page reload on successful builds.
	LiveReload bool `json:"liveReload,omitempty"`

	// LogLevel gates channel console output: silent, error, warn, info
	// or debug.
	LogLevel string `json:"clientLogLevel,omitempty"`
}

// StaticConfig contains static file serving configuration.
type StaticConfig struct {
	// Dir is the directory containing static files.
	Dir string `json:"dir,omitempty"`
}

// BuildConfig contains the external build command configuration.
type BuildConfig struct {
	// Command is the shell command run on every change, e.g. a bundler
	// invocation. Empty disables the build runner.
	Command string `json:"command,omitempty"`

	// Dir is the working directory for the command, relative to the
	// project root.
	Dir string `json:"dir,omitempty"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host: DefaultHost,
			Port: DefaultPort,
		},
		Client: ClientConfig{
			Hot:        false,
			LiveReload: true,
			LogLevel:   string(signal.LogInfo),
		},
		Static: StaticConfig{
			Dir: DefaultStaticDir,
		},
		Watch: []string{"src", "public"},
	}
}

// Load reads configuration from the specified directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E101").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Create " + ConfigFileName + " in your project root")
		}
		return nil, errors.New("E102").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E102").
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}

	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Client.LogLevel == "" {
		c.Client.LogLevel = string(signal.LogInfo)
	}
	if c.Static.Dir == "" {
		c.Static.Dir = DefaultStaticDir
	}
	if c.Watch == nil {
		c.Watch = []string{"src", "public"}
	}
}

// Validate checks the configuration. Malformed channel overrides must
// fail here, before the server binds.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("E103").WithDetail("server port " + strconv.Itoa(c.Server.Port))
	}
	if c.Server.SockPort < 0 || c.Server.SockPort > 65535 {
		return errors.New("E103").WithDetail("sockPort " + strconv.Itoa(c.Server.SockPort))
	}

	switch signal.LogLevel(c.Client.LogLevel) {
	case signal.LogSilent, signal.LogError, signal.LogWarn, signal.LogInfo, signal.LogDebug:
	default:
		return errors.New("E104").WithDetail("clientLogLevel " + strconv.Quote(c.Client.LogLevel))
	}

	if err := signal.ValidatePublicHost(c.Server.Public); err != nil {
		return err
	}
	return nil
}

// Channel maps the configuration surface onto the channel's layered
// config: sockHost/sockPort/sockPath become the explicit overrides,
// public becomes the lower-precedence combined override.
func (c *Config) Channel() signal.ChannelConfig {
	port := ""
	if c.Server.SockPort > 0 {
		port = strconv.Itoa(c.Server.SockPort)
	}
	return signal.ChannelConfig{
		Host:       c.Server.SockHost,
		Port:       port,
		Path:       c.Server.SockPath,
		PublicHost: c.Server.Public,
		LogLevel:   signal.LogLevel(c.Client.LogLevel),
		Hot:        c.Client.Hot,
		LiveReload: c.Client.LiveReload,
	}
}

// Origin returns the server's own bind address as a resolution origin.
// Server-side resolution has no notion of the browser's location, so the
// bind address stands in for it; publicHost is ignored for routing.
func (c *Config) Origin() signal.Origin {
	protocol := "http"
	if c.Server.HTTPS {
		protocol = "https"
	}
	return signal.Origin{
		Protocol: protocol,
		Hostname: c.Server.Host,
		Port:     strconv.Itoa(c.Server.Port),
	}
}

// Address returns the bind address string for the dev server.
func (c *Config) Address() string {
	return c.Server.Host + ":" + strconv.Itoa(c.Server.Port)
}

// URL returns the full URL for the dev server.
func (c *Config) URL() string {
	scheme := "http"
	if c.Server.HTTPS {
		scheme = "https"
	}
	return scheme + "://" + c.Address()
}

// StaticPath returns the absolute path to the static asset directory.
func (c *Config) StaticPath() string {
	if filepath.IsAbs(c.Static.Dir) {
		return c.Static.Dir
	}
	return filepath.Join(c.Dir(), c.Static.Dir)
}

// BuildDir returns the working directory for the build command.
func (c *Config) BuildDir() string {
	if c.Build.Dir == "" {
		return c.Dir()
	}
	if filepath.IsAbs(c.Build.Dir) {
		return c.Build.Dir
	}
	return filepath.Join(c.Dir(), c.Build.Dir)
}

// WatchPaths returns the absolute paths to watch for changes.
func (c *Config) WatchPaths() []string {
	paths := make([]string, 0, len(c.Watch))
	for _, p := range c.Watch {
		if !filepath.IsAbs(p) {
			p = filepath.Join(c.Dir(), p)
		}
		paths = append(paths, p)
	}
	return paths
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the project root.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E101").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads configuration from the current working
// directory or the nearest ancestor that holds one.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root, err := FindProjectRoot(wd)
	if err != nil {
		return nil, err
	}

	return Load(root)
}
