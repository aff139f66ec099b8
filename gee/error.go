package gee

import (
	"errors"
	"net/http"
)

// ErrorMessageKey is the Context key holding the message of the error that
// produced the response, if any.
const ErrorMessageKey = "errorMessage"

// ErrorHandlerFunc handles an error passed to NextError or a rejected Deferred.
type ErrorHandlerFunc func(*Context, error)

type ErrorResponse struct {
	Code      int    //错误码
	Message   string //错误信息
	RequestId string //请求序号
}

func NewErrorResponse(c *Context, code int, message string) ErrorResponse {
	return ErrorResponse{
		Code:      code,
		Message:   message,
		RequestId: c.Req.Header.Get("X-Request-ID"), //没有就空
	}
}

// HTTPError carries the status code the error handler should respond with.
type HTTPError struct {
	Code    int
	Message string
	Err     error
}

func NewHTTPError(code int, message string) *HTTPError {
	return &HTTPError{Code: code, Message: message}
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func defaultErrorHandler(c *Context, err error) {
	code, message := http.StatusInternalServerError, "Internal Server Error"
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		code, message = httpErr.Code, httpErr.Message
	}
	c.Set(ErrorMessageKey, err.Error())
	c.AbortWithError(code, message)
}
