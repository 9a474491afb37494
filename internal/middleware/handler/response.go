package handler

type Response struct {
	StatusCode  int
	Data        any
	Raw         []byte
	ContentType string
	Err         error
}

func NewSuccessResponse(statusCode int, data any) *Response {
	return &Response{
		StatusCode: statusCode,
		Data:       data,
	}
}

func NewRawResponse(statusCode int, contentType string, body []byte) *Response {
	return &Response{
		StatusCode:  statusCode,
		ContentType: contentType,
		Raw:         body,
	}
}

func NewErrorResponse(statusCode int, code ErrorCode, message string, details any) *Response {
	return &Response{
		StatusCode: statusCode,
		Err: &ErrorResponse{
			Code:    code,
			Message: message,
			Errors:  details,
		},
	}
}

func NewInternalErrorResponse(err error) *Response {
	return &Response{
		Err: err,
	}
}
