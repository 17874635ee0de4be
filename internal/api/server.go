package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/snarg/mallok/internal/auth"
	"github.com/snarg/mallok/internal/config"
	"github.com/snarg/mallok/internal/metrics"
)

// ServerOptions carries everything the routes need.
type ServerOptions struct {
	Config     *config.Config
	Auth       auth.Provider
	Tasks      TaskSubmitter
	Records    RecordReader
	Spool      AudioSpool
	Summarizer Summarizer
	Dictionary DictionarySizes
	Events     EventSource
	Health     HealthOptions
	Log        zerolog.Logger
}

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

// NewRouter builds the route tree. It is split from NewServer so tests can
// drive it with httptest.
func NewRouter(opts ServerOptions) http.Handler {
	cfg := opts.Config
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(opts.Log))
	r.Use(CORSWithOrigins(cfg.CORSOrigins))
	r.Use(metrics.InstrumentHandler)

	// Health and metrics: no auth
	r.Get("/health", NewHealthHandler(opts.Health).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if cfg.RateLimitRPS > 0 {
			r.Use(RateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst))
		}
		r.Use(BearerAuth(opts.Auth))

		NewTasksHandler(opts.Tasks, opts.Records, opts.Spool, cfg.MaxUploadBytes(), opts.Log).Routes(r)
		NewSummarizeHandler(opts.Summarizer).Routes(r)
		NewTermsHandler(opts.Dictionary).Routes(r)
		NewEventsHandler(opts.Events).Routes(r)
	})

	return r
}

func NewServer(opts ServerOptions) *Server {
	cfg := opts.Config
	return &Server{
		http: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           NewRouter(opts),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
		},
		log: opts.Log,
	}
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
