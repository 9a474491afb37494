// Package chizap logs chi requests through zap.
package chizap

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	// SkipPaths are matched against the raw request path.
	SkipPaths    []string
	DefaultLevel zapcore.Level
	// SlowThreshold raises successful requests slower than this to warn.
	SlowThreshold time.Duration
}

func Chizap(logger *zap.Logger, conf *Config) func(next http.Handler) http.Handler {
	skipPaths := make(map[string]bool, len(conf.SkipPaths))
	for _, path := range conf.SkipPaths {
		skipPaths[path] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skipPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				latency := time.Since(start)
				fields := []zapcore.Field{
					zap.Int("status", ww.Status()),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("query", r.URL.RawQuery),
					zap.String("ip", r.RemoteAddr),
					zap.String("user-agent", r.UserAgent()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("latency", latency),
				}
				if rctx := chi.RouteContext(r.Context()); rctx != nil {
					if pattern := rctx.RoutePattern(); pattern != "" {
						fields = append(fields, zap.String("route", pattern))
					}
				}

				level := conf.DefaultLevel
				switch {
				case ww.Status() >= 500:
					level = zapcore.ErrorLevel
				case ww.Status() >= 400:
					level = zapcore.WarnLevel
				case conf.SlowThreshold > 0 && latency > conf.SlowThreshold:
					level = zapcore.WarnLevel
				}
				logger.Log(level, "http.request", fields...)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
