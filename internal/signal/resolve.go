package signal

import (
	"strings"

	"github.com/sockline-dev/sockline/internal/errors"
)

// DefaultSockPath is the well-known endpoint path used when neither an
// explicit path nor a publicHost path component is configured.
const DefaultSockPath = "/sockjs-node"

// LogLevel controls how chatty the channel client is in the browser
// console. Silent suppresses every channel-originated line.
type LogLevel string

const (
	LogSilent LogLevel = "silent"
	LogError  LogLevel = "error"
	LogWarn   LogLevel = "warn"
	LogInfo   LogLevel = "info"
	LogDebug  LogLevel = "debug"
)

// severity orders log levels for gating. Silent is below everything.
func (l LogLevel) severity() int {
	switch l {
	case LogSilent:
		return 0
	case LogError:
		return 1
	case LogWarn:
		return 2
	case LogInfo:
		return 3
	case LogDebug:
		return 4
	}
	return 3
}

// Allows reports whether a line at level other should be emitted when the
// configured level is l.
func (l LogLevel) Allows(other LogLevel) bool {
	if l == LogSilent {
		return false
	}
	return l.severity() >= other.severity()
}

// ChannelConfig is the layered configuration for the signalling channel.
// Host, Port and Path are explicit per-field overrides and always win.
// PublicHost is a single "hostname[:port][/path]" override with lower
// precedence. Fields absent in both fall back to the page's own location
// (host, port) or DefaultSockPath.
type ChannelConfig struct {
	Host       string
	Port       string
	Path       string
	PublicHost string
	LogLevel   LogLevel
	Hot        bool
	LiveReload bool
}

// Origin is the location of the page (or the server's bind address when
// resolving server-side). Protocol is "http" or "https".
type Origin struct {
	Protocol string
	Hostname string
	Port     string
}

// ResolvedAddress is the effective signalling address. Port may be empty,
// meaning "same as the page"; URL construction must then omit the port
// segment entirely. Path always starts with a single '/' and carries no
// trailing '/'.
type ResolvedAddress struct {
	Protocol string // "ws" or "wss"
	Hostname string
	Port     string
	Path     string
}

// URL builds the connection URL for the address.
func (a ResolvedAddress) URL() string {
	var b strings.Builder
	b.WriteString(a.Protocol)
	b.WriteString("://")
	b.WriteString(a.Hostname)
	if a.Port != "" {
		b.WriteByte(':')
		b.WriteString(a.Port)
	}
	b.WriteString(a.Path)
	return b.String()
}

// publicHostParts is the decomposition of a PublicHost override.
type publicHostParts struct {
	hostname string
	port     string
	path     string
}

// parsePublicHost splits "hostname[:port][/path]", tolerating a trailing
// slash and absent port or path segments. An empty hostname is an error:
// a publicHost that names no host can never produce a usable address.
func parsePublicHost(s string) (publicHostParts, error) {
	var p publicHostParts

	rest := s
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		p.path = strings.TrimSuffix(rest[i:], "/")
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		p.port = rest[i+1:]
		rest = rest[:i]
	}
	p.hostname = rest

	if p.hostname == "" {
		return p, errors.New("E201").WithDetail("public host \"" + s + "\" has no hostname")
	}
	return p, nil
}

// ValidatePublicHost checks a PublicHost override without resolving. Run
// at startup so a malformed value fails before the server binds.
func ValidatePublicHost(s string) error {
	if s == "" {
		return nil
	}
	_, err := parsePublicHost(s)
	return err
}

// normalizePath guarantees exactly one leading '/' and no trailing '/'
// (except for the root path itself).
func normalizePath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	for len(p) > 1 && strings.HasSuffix(p, "/") {
		p = p[:len(p)-1]
	}
	return p
}

// Resolve computes the effective signalling address from configuration and
// the originating page location. Each field resolves independently:
// explicit override, then the corresponding publicHost component, then the
// origin (host, port) or DefaultSockPath (path). The protocol mirrors the
// origin's: wss iff the page is https.
//
// Resolve is pure and deterministic. The generated bootstrap script embeds
// the same algorithm so the browser reaches the identical address from its
// own window.location.
func Resolve(cfg ChannelConfig, origin Origin) (ResolvedAddress, error) {
	var pub publicHostParts
	if cfg.PublicHost != "" {
		var err error
		pub, err = parsePublicHost(cfg.PublicHost)
		if err != nil {
			return ResolvedAddress{}, err
		}
	}

	addr := ResolvedAddress{Protocol: "ws"}
	if origin.Protocol == "https" {
		addr.Protocol = "wss"
	}

	switch {
	case cfg.Host != "":
		addr.Hostname = cfg.Host
	case pub.hostname != "":
		addr.Hostname = pub.hostname
	default:
		addr.Hostname = origin.Hostname
	}

	switch {
	case cfg.Port != "":
		addr.Port = cfg.Port
	case pub.port != "":
		addr.Port = pub.port
	default:
		addr.Port = origin.Port
	}

	// Path never depends on whether a sibling field was overridden.
	switch {
	case cfg.Path != "":
		addr.Path = normalizePath(cfg.Path)
	case pub.path != "":
		addr.Path = normalizePath(pub.path)
	default:
		addr.Path = DefaultSockPath
	}

	return addr, nil
}
