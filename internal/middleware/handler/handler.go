package handler

import (
	"net/http"

	"github.com/ctfwatch/ctfwatch/internal/logging"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Handle adapts f to net/http. When the request context carries a deadline
// and it passes first, the client gets 504 and f's result is dropped.
func Handle(f func(r *http.Request) *Response) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if _, ok := ctx.Deadline(); !ok {
			write(w, r, f(r))
			return
		}
		doneChan := make(chan *Response, 1)
		go func() {
			doneChan <- f(r)
		}()
		select {
		case <-ctx.Done():
			write(w, r, NewErrorResponse(http.StatusGatewayTimeout, Timeout, "request timed out", nil))
		case res := <-doneChan:
			write(w, r, res)
		}
	}
}

func write(w http.ResponseWriter, r *http.Request, res *Response) {
	if res.Err == nil {
		statusCode := res.StatusCode
		if statusCode == 0 {
			statusCode = http.StatusOK
		}
		if res.Raw != nil {
			w.Header().Set("Content-Type", res.ContentType)
			w.WriteHeader(statusCode)
			_, _ = w.Write(res.Raw)
			return
		}
		if res.Data != nil {
			writeJSON(w, statusCode, res.Data)
			return
		}
		w.WriteHeader(statusCode)
		return
	}

	err, ok := res.Err.(*ErrorResponse)
	if !ok {
		logging.FromContext(r.Context()).Error("request.failed", zap.Error(res.Err))
		res.StatusCode = http.StatusInternalServerError
		err = &ErrorResponse{Code: InternalServerError, Message: "An error has occurred, please try again later"}
	}
	writeJSON(w, res.StatusCode, err)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
