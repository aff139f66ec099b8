package httpmiddleware

import (
	"net/http"
	"strings"

	"geetrace.local/gee"
	"geetrace.local/internal/platform/auth"
)

// parseBearer 解析 Authorization header 中的 Bearer token
// 返回 token 字符串，如果格式不正确返回空字符串
func parseBearer(header string) string {
	fields := strings.Fields(header)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
		return ""
	}
	return fields[1]
}

// AuthRequired 要求请求必须携带有效的 JWT token。
// 失败时通过 NextError 交给 engine 的错误处理，错误会记录在中间件 span 上。
func AuthRequired(ts auth.TokenService) gee.HandlerFunc {
	return func(ctx *gee.Context) {
		tokenStr := ctx.Req.Header.Get("Authorization")
		if tokenStr == "" {
			ctx.NextError(gee.NewHTTPError(http.StatusUnauthorized, "missing authorization header"))
			return
		}
		token := parseBearer(tokenStr)
		if token == "" {
			ctx.NextError(gee.NewHTTPError(http.StatusUnauthorized, "invalid authorization format"))
			return
		}
		claim, err := ts.Verify(token)
		if err != nil {
			ctx.NextError(&gee.HTTPError{Code: http.StatusUnauthorized, Message: "invalid token", Err: err})
			return
		}
		ctx.Req = ctx.Req.WithContext(auth.WithIdentity(ctx.Req.Context(), auth.Identity{
			UserID: claim.UserID,
			Role:   claim.Role,
		}))
		ctx.Next()
	}
}

// AuthOptional 可选认证，有 token 则解析，无 token 或 token 无效则跳过
func AuthOptional(ts auth.TokenService) gee.HandlerFunc {
	return func(ctx *gee.Context) {
		token := parseBearer(ctx.Req.Header.Get("Authorization"))
		if token != "" {
			if claim, err := ts.Verify(token); err == nil {
				ctx.Req = ctx.Req.WithContext(auth.WithIdentity(ctx.Req.Context(), auth.Identity{
					UserID: claim.UserID,
					Role:   claim.Role,
				}))
			}
		}
		ctx.Next()
	}
}

// RequireRole 要求用户具有指定角色
func RequireRole(role string) gee.HandlerFunc {
	return func(ctx *gee.Context) {
		id, ok := auth.GetIdentity(ctx.Req.Context())
		if !ok {
			ctx.NextError(gee.NewHTTPError(http.StatusUnauthorized, "unauthorized"))
			return
		}
		if id.Role != role {
			ctx.NextError(gee.NewHTTPError(http.StatusForbidden, "forbidden"))
			return
		}
		ctx.Next()
	}
}
