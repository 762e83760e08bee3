package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sockline-dev/sockline/internal/signal"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, ConfigFileName)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestNew_Defaults(t *testing.T) {
	cfg := New()

	if cfg.Server.Host != DefaultHost {
		t.Errorf("Host = %q, want %q", cfg.Server.Host, DefaultHost)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if !cfg.Client.LiveReload {
		t.Error("LiveReload should default on")
	}
	if cfg.Client.Hot {
		t.Error("Hot should default off")
	}
	if cfg.Client.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.Client.LogLevel)
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	dir := writeConfig(t, `{"name": "demo"}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Name != "demo" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if cfg.Server.Port != DefaultPort {
		t.Errorf("Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Static.Dir != DefaultStaticDir {
		t.Errorf("Static.Dir = %q", cfg.Static.Dir)
	}
	if cfg.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", cfg.Dir(), dir)
	}
}

func TestLoad_Overrides(t *testing.T) {
	dir := writeConfig(t, `{
		"server": {"host": "0.0.0.0", "port": 3000, "sockPath": "/foo/test/bar/", "sockPort": 9090},
		"client": {"hot": true, "liveReload": false, "clientLogLevel": "silent"}
	}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	ch := cfg.Channel()
	if ch.Path != "/foo/test/bar/" {
		t.Errorf("Path = %q (normalization belongs to the resolver, not the config)", ch.Path)
	}
	if ch.Port != "9090" {
		t.Errorf("Port = %q, want 9090", ch.Port)
	}
	if !ch.Hot || ch.LiveReload {
		t.Errorf("flags = hot:%v liveReload:%v", ch.Hot, ch.LiveReload)
	}
	if ch.LogLevel != signal.LogSilent {
		t.Errorf("LogLevel = %q", ch.LogLevel)
	}
	if cfg.Address() != "0.0.0.0:3000" {
		t.Errorf("Address() = %q", cfg.Address())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("expected error for missing config")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := writeConfig(t, `{not json`)
	if _, err := Load(dir); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoad_MalformedPublicHostFailsEarly(t *testing.T) {
	// A malformed public host must fail at load time, before any server
	// binds.
	dir := writeConfig(t, `{"server": {"public": ":8080"}}`)
	if _, err := Load(dir); err == nil {
		t.Fatal("expected resolution error for public host without hostname")
	}
}

func TestValidate_PortRange(t *testing.T) {
	cfg := New()
	cfg.Server.Port = 70000
	if err := cfg.Validate(); err == nil {
		t.Error("expected port range error")
	}

	cfg = New()
	cfg.Server.SockPort = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected sockPort range error")
	}
}

func TestValidate_LogLevel(t *testing.T) {
	cfg := New()
	cfg.Client.LogLevel = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Error("expected log level error")
	}
}

func TestChannel_UnsetSockPortIsEmpty(t *testing.T) {
	cfg := New()
	if port := cfg.Channel().Port; port != "" {
		t.Errorf("Port = %q, want empty for unset sockPort", port)
	}
}

func TestOrigin(t *testing.T) {
	cfg := New()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 3000

	origin := cfg.Origin()
	if origin.Protocol != "http" || origin.Hostname != "127.0.0.1" || origin.Port != "3000" {
		t.Errorf("Origin() = %+v", origin)
	}

	cfg.Server.HTTPS = true
	if cfg.Origin().Protocol != "https" {
		t.Error("HTTPS should flip the origin protocol")
	}
}

func TestServerAndClientResolveIdentically(t *testing.T) {
	// The correctness property of the whole subsystem: for the same
	// config and matching origin, server-side and client-side resolution
	// agree on every field.
	dir := writeConfig(t, `{
		"server": {"port": 3000, "public": "myhost.test:9090", "sockPath": "/channel"}
	}`)

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	serverSide, err := signal.Resolve(cfg.Channel(), cfg.Origin())
	if err != nil {
		t.Fatal(err)
	}
	// The browser's origin matches when the page is served directly.
	clientSide, err := signal.Resolve(cfg.Channel(), signal.Origin{
		Protocol: "http", Hostname: "localhost", Port: "3000",
	})
	if err != nil {
		t.Fatal(err)
	}

	if serverSide != clientSide {
		t.Errorf("server resolved %+v, client resolved %+v", serverSide, clientSide)
	}
}

func TestFindProjectRoot(t *testing.T) {
	root := writeConfig(t, `{}`)
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	found, err := FindProjectRoot(nested)
	if err != nil {
		t.Fatal(err)
	}
	if found != root {
		t.Errorf("FindProjectRoot = %q, want %q", found, root)
	}
}
