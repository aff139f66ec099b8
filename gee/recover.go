package gee

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
)

// stackTrace formats the frames above the recover site.
func stackTrace(message string) string {
	var pcs [32]uintptr
	n := runtime.Callers(4, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	b.WriteString(message)
	b.WriteString("\nTraceback:")
	for {
		f, more := frames.Next()
		fmt.Fprintf(&b, "\n\t%s:%d %s", f.File, f.Line, f.Function)
		if !more {
			break
		}
	}
	return b.String()
}

// Recovery turns a panic in the rest of the chain into a 500 handled by the
// engine's error handler. http.ErrAbortHandler is re-raised for net/http.
func Recovery() HandlerFunc {
	return func(ctx *Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if r == http.ErrAbortHandler {
				panic(r)
			}
			message := fmt.Sprint(r)
			slog.Error("panic recovered",
				"request_id", ctx.Req.Header.Get("X-Request-ID"),
				"method", ctx.Method,
				"path", ctx.Path,
				"panic", message,
				"stack", stackTrace(message),
			)

			err, ok := r.(error)
			if !ok {
				err = errors.New(message)
			}
			if ctx.Writer.Written() {
				ctx.Errors = append(ctx.Errors, err)
				ctx.Abort()
			} else {
				ctx.fail(&HTTPError{Code: http.StatusInternalServerError, Message: "Internal Server Error", Err: err})
			}
			ctx.Set(ErrorMessageKey, message)
		}()
		ctx.Next()
	}
}
