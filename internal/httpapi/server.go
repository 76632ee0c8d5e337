package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MimeLyc/structured-doc-translator/internal/config"
	"github.com/MimeLyc/structured-doc-translator/internal/inbox"
	"github.com/MimeLyc/structured-doc-translator/internal/jobs"
	"github.com/MimeLyc/structured-doc-translator/internal/packager"
	"github.com/MimeLyc/structured-doc-translator/internal/service"
)

// Translator is the pipeline surface served over HTTP.
type Translator interface {
	Run(ctx context.Context, req service.Request) (*packager.Output, error)
	TranslateText(ctx context.Context, text string, languages []string, engine string) (map[string]string, error)
}

type Server struct {
	translator Translator
	cfg        config.Config

	queue   *jobs.Queue
	watcher *inbox.Watcher

	router *chi.Mux
	server *http.Server
}

type Option func(*Server)

// WithInbox exposes the inbox job queue under /api/jobs.
func WithInbox(queue *jobs.Queue, watcher *inbox.Watcher) Option {
	return func(s *Server) {
		s.queue = queue
		s.watcher = watcher
	}
}

func NewServer(translator Translator, cfg config.Config, opts ...Option) *Server {
	s := &Server{
		translator: translator,
		cfg:        cfg,
		router:     chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	r := s.router

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(accessLog)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(corsOptions(s.cfg.HTTP.CORSOrigins)))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/engines", s.handleEngines)

		r.Route("/v1", func(r chi.Router) {
			r.Post("/translate-file", s.handleTranslateFile)
			r.With(maxBodySize(1<<20)).Post("/translate", s.handleTranslateText)
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Use(s.requireInbox)
			r.Get("/", s.handleListJobs)
			r.Get("/stream", s.handleJobStream)
			r.Get("/{id}", s.handleGetJob)
			r.Post("/scan", s.handleScan)
		})
	})
}
