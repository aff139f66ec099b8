package gee

import (
	"net/http"
	"sync"
)

type ResponseWriter struct {
	http.ResponseWriter
	statusCode  int
	size        int
	wroteHeader bool

	mu       sync.Mutex
	finished bool
	onFinish []func()
}

func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{
		ResponseWriter: w,
		statusCode:     200,
	}
}

func (rw *ResponseWriter) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.statusCode = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *ResponseWriter) Write(bytes []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	s, err := rw.ResponseWriter.Write(bytes)
	rw.size += s
	return s, err
}

func (rw *ResponseWriter) SetHeader(key string, value string) {
	rw.ResponseWriter.Header().Set(key, value)
}

func (rw *ResponseWriter) Status() int {
	return rw.statusCode
}

func (rw *ResponseWriter) Size() int {
	return rw.size
}

func (rw *ResponseWriter) Written() bool {
	return rw.wroteHeader
}

func (rw *ResponseWriter) StatusText() string {
	return http.StatusText(rw.statusCode)
}

// OnFinish registers fn to run once the response is complete. Callbacks run in
// registration order; registering after completion runs fn immediately.
func (rw *ResponseWriter) OnFinish(fn func()) {
	rw.mu.Lock()
	if !rw.finished {
		rw.onFinish = append(rw.onFinish, fn)
		rw.mu.Unlock()
		return
	}
	rw.mu.Unlock()
	fn()
}

func (rw *ResponseWriter) finish() {
	rw.mu.Lock()
	if rw.finished {
		rw.mu.Unlock()
		return
	}
	rw.finished = true
	callbacks := rw.onFinish
	rw.onFinish = nil
	rw.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}
