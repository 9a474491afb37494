package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/ctfwatch/ctfwatch/internal/logging"
	"go.uber.org/zap"
)

type Middleware = func(http.Handler) http.Handler

func InjectLogger(lg *zap.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := r.WithContext(logging.WithLogger(r.Context(), lg))
			next.ServeHTTP(w, req)
		})
	}
}

// Timeout puts a deadline on the request context. Handlers wrapped with
// handler.Handle answer 504 once it passes.
func Timeout(d time.Duration) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
