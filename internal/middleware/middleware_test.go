package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ctfwatch/ctfwatch/internal/logging"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTimeout(t *testing.T) {
	now := time.Now()
	h := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok := r.Context().Deadline()
		assert.True(t, ok)
		assert.LessOrEqual(t, deadline.Sub(now).Milliseconds(), time.Second.Milliseconds())
	}))

	res := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "http://localhost/foo", nil)
	h.ServeHTTP(res, req)
}

func TestInjectLogger(t *testing.T) {
	lg := zap.NewNop()
	var got *zap.Logger
	h := InjectLogger(lg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = logging.FromContext(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil).WithContext(context.Background()))
	assert.Same(t, lg, got)
}
