package handler

import (
	"fmt"

	"github.com/goccy/go-json"
)

type ErrorCode string

const (
	// 400 bad request
	InvalidQueryValue = ErrorCode("InvalidQueryValue")
	InvalidUriValue   = ErrorCode("InvalidUriValue")

	// 404 not found
	NotFoundEntity = ErrorCode("NotFoundEntity")

	// 503
	Unavailable = ErrorCode("Unavailable")

	// 504
	Timeout = ErrorCode("Timeout")

	// 500
	InternalServerError = ErrorCode("InternalServerError")
)

type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Errors  any       `json:"-"`
}

func (e *ErrorResponse) MarshalJSON() ([]byte, error) {
	message := fmt.Sprintf("[%s]", e.Code)
	if e.Message != "" {
		message += " " + e.Message
	}
	m := map[string]any{
		"code":    e.Code,
		"message": message,
	}
	if e.Errors != nil {
		m["errors"] = e.Errors
	}
	return json.Marshal(&m)
}

func (e *ErrorResponse) Error() string {
	return fmt.Sprintf("ErrorResponse{Code:%s, Message:%s, Errors:%v}", e.Code, e.Message, e.Errors)
}
