package api

import (
	"net/http"
	"time"

	"github.com/ctfwatch/ctfwatch/internal/chizap"
	"github.com/ctfwatch/ctfwatch/internal/middleware"
	"github.com/ctfwatch/ctfwatch/internal/middleware/handler"
	"github.com/ctfwatch/ctfwatch/internal/version"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const requestTimeout = 15 * time.Second

func NewRouter(s *Server, lg *zap.Logger) http.Handler {
	mux := chi.NewRouter()

	mux.Use(chimiddleware.Recoverer)
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         86400,
	}))
	mux.Use(chimiddleware.RealIP)
	mux.Use(middleware.InjectLogger(lg))
	mux.Use(chizap.Chizap(lg, &chizap.Config{
		SkipPaths:     []string{"/metrics", "/health"},
		DefaultLevel:  zapcore.InfoLevel,
		SlowThreshold: 2 * time.Second,
	}))

	mux.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Get("/api/events", handler.Handle(s.ListEvents))
		r.Get("/api/events/{id}", handler.Handle(s.GetEvent))
		r.Get("/calendar/ctf.ics", handler.Handle(s.Calendar))
		r.Get("/api/version", handler.Handle(func(*http.Request) *handler.Response {
			return handler.NewSuccessResponse(http.StatusOK, version.GetVersionInfo())
		}))
	})
	mux.Get("/health", handler.Handle(s.Health))
	mux.Handle("/metrics", promhttp.Handler())

	return mux
}
