// Package server wires the strategy service onto a chi router.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/CamberLoid/FHEVault/internal/logger"
	"github.com/CamberLoid/FHEVault/internal/serverlib"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

const (
	maxBodyBytes   = 1 << 20
	requestTimeout = 60 * time.Second
)

type Config struct {
	Addr        string
	Version     string
	Service     *serverlib.Service
	Log         zerolog.Logger
	CORSOrigins []string
	DevMode     bool
}

type Server struct {
	router  *chi.Mux
	server  *http.Server
	svc     *serverlib.Service
	log     zerolog.Logger
	version string
}

func New(cfg Config) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		svc:     cfg.Service,
		log:     logger.Component(cfg.Log, "server"),
		version: cfg.Version,
	}

	s.setupMiddleware(cfg.CORSOrigins, cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler 返回路由，测试时直接挂到 httptest 上
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Addr() string {
	return s.server.Addr
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

func (s *Server) setupMiddleware(origins []string, devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(requestTimeout))

	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.NotFound(s.handleNotFound)
	s.router.MethodNotAllowed(s.handleMethodNotAllowed)

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/version", s.handleVersion)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.handleStats)

		r.Route("/strategies", func(r chi.Router) {
			r.Get("/", s.handleList)
			r.Post("/submit", s.handleSubmit)
			r.Get("/{id}", s.handleGet)
			r.Post("/{id}/compute", s.handleCompute)
			r.Post("/{id}/decrypted", s.handleReportDecrypted)
		})
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
