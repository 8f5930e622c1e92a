// ABOUTME: HTTP server exposing recently viewed histories as a JSON API
// ABOUTME: Builds a tracker per request from the session cookie and optional bearer token

package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/2389/recentviews/internal/auth"
	"github.com/2389/recentviews/internal/catalog"
	"github.com/2389/recentviews/internal/recent"
	"github.com/2389/recentviews/internal/session"
	"github.com/2389/recentviews/internal/store"
)

// Config holds the settings of a Server.
type Config struct {
	Addr   string
	Prefix string
	Cookie session.CookieOptions
	// Persist toggles mirroring to durable viewer histories. Defaults to recent.Never.
	Persist recent.Flag
	// Verifier identifies viewers from bearer tokens. Nil keeps every request anonymous.
	Verifier auth.TokenVerifier
	Logger   *slog.Logger
}

// Server serves the recently viewed API.
type Server struct {
	cfg        Config
	views      store.ViewStore
	sessions   session.Backend
	catalog    *catalog.Catalog
	registry   *recent.Registry
	logger     *slog.Logger
	handler    http.Handler
	httpServer *http.Server
}

// New wires a Server. views holds durable histories, sessions the per-session
// lists, and cat the entities registered in registry.
func New(cfg Config, views store.ViewStore, sessions session.Backend, cat *catalog.Catalog, registry *recent.Registry) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default().With("component", "api")
	}
	if cfg.Persist == nil {
		cfg.Persist = recent.Never
	}
	if cfg.Prefix == "" {
		cfg.Prefix = recent.DefaultPrefix
	}

	s := &Server{
		cfg:      cfg,
		views:    views,
		sessions: sessions,
		catalog:  cat,
		registry: registry,
		logger:   cfg.Logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/views/{type}/{id}", s.handleRecordView)
	mux.HandleFunc("GET /api/views/{type}", s.handleGetViews)
	mux.HandleFunc("GET /api/views", s.handleListViews)
	mux.HandleFunc("DELETE /api/views/{type}", s.handleClearViews)
	mux.HandleFunc("DELETE /api/views", s.handleClearAllViews)
	mux.Handle("POST /api/session/merge", auth.RequireViewer()(http.HandlerFunc(s.handleMerge)))

	var h http.Handler = mux
	h = auth.OptionalAuthMiddleware(cfg.Verifier, s.logger)(h)
	h = session.Middleware(sessions, cfg.Cookie, s.logger)(h)
	s.handler = s.logRequests(h)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens on the configured address until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run over an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
	case err, ok := <-errCh:
		if ok {
			s.logger.Error("server error", "error", err)
			serverErr = err
		}
	}

	// The original context is already canceled.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	shutdownErr := s.httpServer.Shutdown(shutdownCtx)

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// tracker builds the tracker for one request.
func (s *Server) tracker(r *http.Request) *recent.Tracker {
	return recent.New(session.FromContext(r.Context()), s.registry, recent.Options{
		Prefix:  s.cfg.Prefix,
		Viewer:  s.viewerFor,
		Persist: s.cfg.Persist,
		Logger:  s.logger,
	})
}

// viewerFor returns the durable history of the authenticated viewer, or nil.
func (s *Server) viewerFor(ctx context.Context) recent.Viewer {
	id := auth.ViewerID(ctx)
	if id == "" || s.views == nil {
		return nil
	}
	return store.NewViewerHistory(s.views, id)
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
