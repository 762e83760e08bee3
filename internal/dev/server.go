package dev

import (
	"context"
	"log/slog"
	"maps"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sockline-dev/sockline/internal/config"
	"github.com/sockline-dev/sockline/internal/errors"
	"github.com/sockline-dev/sockline/internal/signal"
)

// ServerOptions configures the development server.
type ServerOptions struct {
	// Config is the project configuration.
	Config *config.Config

	// Logger receives server logs. Defaults to slog.Default.
	Logger *slog.Logger

	// Registry is the Prometheus registerer for channel metrics.
	Registry prometheus.Registerer

	// OnBuild is called when a build completes.
	OnBuild func(result BuildResult)

	// OnReload is called after a successful build is broadcast, with the
	// subscriber count.
	OnReload func(subscribers int)
}

// Server is the development server: static assets with bootstrap-script
// injection, the signalling channel endpoint at its resolved path, proxy
// rules, and the watch/build loop that feeds the channel.
type Server struct {
	config  *config.Config
	options ServerOptions
	logger  *slog.Logger

	hub     *signal.Hub
	watcher *Watcher
	builder *Builder

	script   string
	sockPath string

	changeCh   chan Change
	httpServer *http.Server

	mu         sync.Mutex
	running    bool
	lastAssets map[string]string
	built      bool
}

// NewServer creates a development server. Address resolution runs here,
// server-side, against the configured bind address; a malformed public
// host is fatal before anything binds.
func NewServer(options ServerOptions) (*Server, error) {
	cfg := options.Config
	channel := cfg.Channel()

	addr, err := signal.Resolve(channel, cfg.Origin())
	if err != nil {
		return nil, err
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "dev")

	s := &Server{
		config:   cfg,
		options:  options,
		logger:   logger,
		hub:      signal.NewHub(signal.HubConfig{Registry: options.Registry, Logger: logger}),
		script:   signal.GenerateScript(channel),
		sockPath: addr.Path,
	}

	s.watcher = NewWatcher(WatcherConfig{
		Paths:  cfg.WatchPaths(),
		Ignore: append(DefaultIgnore, cfg.Ignore...),
	})

	if cfg.Build.Command != "" {
		s.builder = NewBuilder(BuilderConfig{
			Command:  cfg.Build.Command,
			Dir:      cfg.BuildDir(),
			AssetDir: cfg.StaticPath(),
		})
	}

	return s, nil
}

// SockPath returns the resolved channel endpoint path.
func (s *Server) SockPath() string {
	return s.sockPath
}

// Hub exposes the channel hub, mainly for embedding and tests.
func (s *Server) Hub() *signal.Hub {
	return s.hub
}

// Handler builds the HTTP handler: bootstrap script, channel endpoint,
// metrics, proxy rules, then static assets with script injection.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get(signal.ClientScriptPath, s.handleScript)

	r.HandleFunc(s.sockPath, s.hub.ServeHTTP)
	if s.sockPath != "/" {
		// The browser end treats the path with and without a trailing
		// slash as the same endpoint.
		r.HandleFunc(s.sockPath+"/", s.hub.ServeHTTP)
	}

	r.Handle("/metrics", promhttp.Handler())

	for prefix, target := range s.config.Proxy {
		proxy := s.newProxy(target)
		r.Handle(prefix, proxy)
		r.Handle(strings.TrimSuffix(prefix, "/")+"/*", proxy)
	}

	r.NotFound(s.handleStatic)

	return r
}

// handleScript serves the bootstrap script at its fixed URL so non-HTML
// entry points can load it with a script reference.
func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Write([]byte(s.script))
}

// handleStatic serves files from the static directory, injecting the
// bootstrap loader into HTML responses.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	// Root the path before joining so ".." can never escape the static
	// directory.
	clean := path.Clean("/" + r.URL.Path)
	full := filepath.Join(s.config.StaticPath(), filepath.FromSlash(clean))

	info, err := os.Stat(full)
	if err == nil && info.IsDir() {
		full = filepath.Join(full, "index.html")
		_, err = os.Stat(full)
	}
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if strings.HasSuffix(full, ".html") {
		body, err := os.ReadFile(full)
		if err != nil {
			http.Error(w, "failed to read file", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(signal.InjectScript(string(body))))
		return
	}

	http.ServeFile(w, r, full)
}

// newProxy forwards to an external target, preserving the original Host
// header and the upgrade handshake so the channel works through it.
func (s *Server) newProxy(target string) http.Handler {
	targetURL, err := url.Parse(target)
	if err != nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid proxy target", http.StatusInternalServerError)
		})
	}

	proxy := httputil.NewSingleHostReverseProxy(targetURL)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		s.logger.Warn("proxy error", "target", target, "error", err)
		w.WriteHeader(http.StatusBadGateway)
	}
	return proxy
}

// Start runs the server until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.mu.Unlock()

	if s.builder != nil {
		s.logger.Info("building")
		s.rebuild(ctx)
	}

	s.changeCh = make(chan Change, 64)
	s.watcher.OnChange(func(change Change) {
		select {
		case s.changeCh <- change:
		default:
		}
	})

	go s.watcher.Start(ctx)
	go s.processChanges(ctx)

	s.httpServer = &http.Server{
		Addr:    s.config.Address(),
		Handler: s.Handler(),
	}

	s.logger.Info("server running", "url", s.config.URL(), "channel", s.sockPath)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- errors.New("E202").WithDetail(s.config.Address()).Wrap(err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.Stop()
		return nil
	case err := <-errCh:
		s.Stop()
		return err
	}
}

// Stop tears the server down: watcher, subscribers, then the listener.
func (s *Server) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false

	s.watcher.Stop()
	s.hub.Close()

	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(ctx)
	}
}

// processChanges serializes change handling and coalesces bursts.
func (s *Server) processChanges(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case change := <-s.changeCh:
			count := 1
			draining := true
			for draining {
				select {
				case <-s.changeCh:
					count++
				default:
					draining = false
				}
			}
			s.logger.Debug("changes detected", "count", count, "path", change.Path)
			s.rebuild(ctx)
		}
	}
}

// rebuild announces the build, runs it, and broadcasts the outcome. The
// invalid event always precedes the result for every subscriber.
func (s *Server) rebuild(ctx context.Context) {
	s.hub.Broadcast(ctx, signal.Invalid())

	if s.builder == nil {
		// No build pipeline: a change is immediately a fresh bundle.
		s.hub.Broadcast(ctx, signal.Ok(nil))
		s.notifyReload()
		return
	}

	result := s.builder.Run(ctx)
	if s.options.OnBuild != nil {
		s.options.OnBuild(result)
	}

	switch {
	case result.Error != nil:
		s.logger.Error("build failed to start", "error", result.Error)
		s.hub.Broadcast(ctx, signal.Errors([]string{result.Error.Error()}))

	case !result.Success:
		s.logger.Error("build failed", "lines", len(result.Output))
		s.hub.Broadcast(ctx, signal.Errors(result.Output))

	case len(result.Output) > 0:
		s.logger.Warn("built with warnings", "duration", result.Duration)
		s.hub.Broadcast(ctx, signal.Warnings(result.Output))
		s.recordAssets(result.Assets)
		s.notifyReload()

	default:
		s.logger.Info("built", "duration", result.Duration.Round(time.Millisecond))
		if s.sameAssets(result.Assets) {
			s.hub.Broadcast(ctx, signal.StillOk())
			return
		}
		s.hub.Broadcast(ctx, signal.Ok(result.Assets))
		s.recordAssets(result.Assets)
		s.notifyReload()
	}
}

// sameAssets reports whether a build produced the identical asset map as
// the previous successful one.
func (s *Server) sameAssets(assets map[string]string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.built && maps.Equal(s.lastAssets, assets)
}

func (s *Server) recordAssets(assets map[string]string) {
	s.mu.Lock()
	s.lastAssets = assets
	s.built = true
	s.mu.Unlock()
}

func (s *Server) notifyReload() {
	if s.options.OnReload != nil {
		s.options.OnReload(s.hub.SubscriberCount())
	}
}
