package middleware

import (
	"strconv"
	"time"

	"geetrace.local/gee"
	"github.com/google/uuid"
)

// RequestIDHeader carries the correlation id across services.
const RequestIDHeader = "X-Request-ID"

// ReqID 保证每个请求都有 X-Request-ID：沿用上游传入的，否则生成一个新的。
func ReqID() gee.HandlerFunc {
	return func(ctx *gee.Context) {
		id := ctx.Req.Header.Get(RequestIDHeader)
		if id == "" {
			id = GenerateReqID()
			ctx.Req.Header.Set(RequestIDHeader, id)
		}
		ctx.SetHeader(RequestIDHeader, id)

		ctx.Next()
	}
}

func GenerateReqID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return id.String()
}
