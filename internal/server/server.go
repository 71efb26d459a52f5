// Package server exposes a dialogue store over HTTP.
//
// Routes:
//
//	GET    /healthz                         liveness
//	GET    /metrics                         Prometheus metrics (when configured)
//	GET    /dialogues                       stored names
//	POST   /dialogues?name=                 save without overwriting
//	GET    /dialogues/{name}?format=        fetch as json (default), yaml or asset
//	PUT    /dialogues/{name}?format=        replace
//	DELETE /dialogues/{name}                delete
//	POST   /dialogues/{name}/commands       apply a batch of edit commands
//	GET    /dialogues/{name}/render?format= render as svg (default), dot, png or pdf
//
// Errors are JSON objects carrying the error code, the message and the
// request ID.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/cyrogem/nodedialogue/pkg/observability"
	"github.com/cyrogem/nodedialogue/pkg/pipeline"
	"github.com/cyrogem/nodedialogue/pkg/store"
)

const (
	// MaxBodyBytes bounds request bodies.
	MaxBodyBytes = 4 << 20

	shutdownTimeout = 10 * time.Second
)

// Server serves the dialogue API.
type Server struct {
	Store   *store.Store
	Runner  *pipeline.Runner
	Metrics *observability.Metrics // optional; /metrics is not routed when nil
	Logger  *log.Logger
}

// New creates a server. A nil runner renders without caching and a nil
// logger uses log.Default().
func New(s *store.Store, r *pipeline.Runner, m *observability.Metrics, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if r == nil {
		r = pipeline.NewRunner(nil, nil, logger)
	}
	return &Server{Store: s, Runner: r, Metrics: m, Logger: logger}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(requestID)
	router.Use(chimiddleware.RealIP)
	router.Use(s.logRequests)
	router.Use(chimiddleware.Recoverer)

	router.Get("/healthz", s.health)
	if s.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", s.Metrics.Handler())
	}

	router.Route("/dialogues", func(r chi.Router) {
		r.Get("/", s.listDialogues)
		r.Post("/", s.createDialogue)

		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", s.getDialogue)
			r.Put("/", s.putDialogue)
			r.Delete("/", s.deleteDialogue)
			r.Post("/commands", s.applyCommands)
			r.Get("/render", s.renderDialogue)
		})
	})

	return router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.Logger.Info("listening", "addr", addr, "store", s.Store.Backend().Kind())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.Logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
