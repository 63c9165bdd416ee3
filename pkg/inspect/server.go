package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/throwdown/pkg/lifecycle"
	"github.com/vango-dev/throwdown/pkg/wire"
)

// Default configuration values.
const (
	DefaultAddr         = "127.0.0.1:7070"
	DefaultEventBuffer  = 128
	DefaultWriteTimeout = 5 * time.Second
)

const tracerName = "github.com/vango-dev/throwdown/pkg/inspect"

// Config configures the inspect server.
type Config struct {
	// Addr is the listen address for ListenAndServe.
	Addr string

	// Logger is the structured logger. Default: the runtime's logger.
	Logger *slog.Logger

	// Gatherer serves /metrics. Default: prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// EventBuffer is the per-client frame queue.
	EventBuffer int

	// WriteTimeout bounds each WebSocket write.
	WriteTimeout time.Duration

	// CheckOrigin validates WebSocket origins. Default: same host only.
	CheckOrigin func(r *http.Request) bool

	// Tracer records a span per request. Default: the global
	// OpenTelemetry tracer provider.
	Tracer trace.Tracer
}

// Option configures the server.
type Option func(*Config)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(c *Config) { c.Addr = addr }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithGatherer sets the metrics source for /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(c *Config) { c.Gatherer = g }
}

// WithEventBuffer sets the per-client frame queue.
func WithEventBuffer(n int) Option {
	return func(c *Config) { c.EventBuffer = n }
}

// WithCheckOrigin sets the WebSocket origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(c *Config) { c.CheckOrigin = fn }
}

// WithTracer sets the request tracer.
func WithTracer(t trace.Tracer) Option {
	return func(c *Config) { c.Tracer = t }
}

// Server is the inspect HTTP server for one runtime.
type Server struct {
	rt       *lifecycle.Runtime
	config   Config
	logger   *slog.Logger
	router   chi.Router
	hub      *hub
	upgrader websocket.Upgrader
	started  time.Time
}

// New creates the server and starts collecting events from rt. Call it
// before rt.Run, or from the runtime's loop.
func New(rt *lifecycle.Runtime, opts ...Option) *Server {
	config := Config{
		Addr:         DefaultAddr,
		EventBuffer:  DefaultEventBuffer,
		WriteTimeout: DefaultWriteTimeout,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Logger == nil {
		config.Logger = rt.Logger()
	}
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = DefaultEventBuffer
	}
	if config.Tracer == nil {
		config.Tracer = otel.Tracer(tracerName)
	}

	s := &Server{
		rt:      rt,
		config:  config,
		logger:  config.Logger.With("component", "inspect"),
		hub:     newHub(),
		started: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     config.CheckOrigin,
		},
	}
	rt.OnEvent(func(ev lifecycle.Event) {
		s.hub.publish(wire.EncodeEvent(ev))
	})

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(traceRequests(config.Tracer, s.logger))
	r.Get("/healthz", s.handleHealth)
	r.Get("/entries", s.handleEntries)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/events", s.handleEvents)
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Clients returns the number of connected event streams.
func (s *Server) Clients() int { return s.hub.len() }

// ListenAndServe serves on the configured address until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("inspect server listening", "addr", s.config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.hub.closeAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(s.rt.Registry().Snapshot()); err != nil {
		s.logger.Warn("write entries failed", "error", err)
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("event stream upgrade failed", "error", err)
		return
	}

	c := newClient(s.config.EventBuffer)
	s.hub.add(c)
	s.logger.Debug("event stream opened", "remote", r.RemoteAddr)

	go s.readLoop(conn, c)
	s.writeLoop(conn, c)

	s.hub.remove(c)
	conn.Close()
	s.logger.Debug("event stream closed", "remote", r.RemoteAddr)
}

// readLoop discards client messages and ends the stream when the client
// goes away.
func (s *Server) readLoop(conn *websocket.Conn, c *client) {
	defer c.close()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writeLoop(conn *websocket.Conn, c *client) {
	first := []*wire.Frame{
		wire.EncodeHello(wire.Hello{Version: wire.Version, Started: s.started}),
		wire.EncodeSnapshot(s.rt.Registry().Snapshot()),
	}
	for _, f := range first {
		if err := s.write(conn, f); err != nil {
			return
		}
	}

	for {
		select {
		case <-c.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(s.config.WriteTimeout))
			return
		case f := <-c.send:
			if err := s.write(conn, c.next(f)); err != nil {
				return
			}
		}
	}
}

func (s *Server) write(conn *websocket.Conn, f *wire.Frame) error {
	data, err := f.Encode()
	if err != nil {
		s.logger.Warn("frame too large, sending error frame", "type", f.Type, "error", err)
		data, err = wire.EncodeError(wire.ErrorMessage{Message: err.Error()}).Encode()
		if err != nil {
			return err
		}
	}
	_ = conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		s.logger.Debug("event stream write failed", "error", err)
		return err
	}
	return nil
}
