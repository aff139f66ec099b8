package main

import (
	"errors"
	"net/http"
	"time"

	"geetrace.local/gee"
	"geetrace.local/gee/middleware"
	"geetrace.local/gee/otelgee"
	"geetrace.local/internal/platform/auth"
	"geetrace.local/internal/platform/config"
	"geetrace.local/internal/platform/httpmiddleware"
	"geetrace.local/internal/platform/ratelimit"
	"go.opentelemetry.io/otel"
	"golang.org/x/crypto/bcrypt"
)

type demoUser struct {
	role string
	hash []byte
}

// demo 账号：密码与用户名相同，只保存 bcrypt 哈希
var demoUsers = map[string]demoUser{
	"admin": mustDemoUser("admin", "admin"),
	"user":  mustDemoUser("user", "user"),
}

func mustDemoUser(password, role string) demoUser {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		panic(err)
	}
	return demoUser{role: role, hash: hash}
}

// checkPassword 对未知用户也做一次比较，避免通过耗时区分用户是否存在。
func checkPassword(username, password string) (role string, ok bool) {
	u, found := demoUsers[username]
	hash := u.hash
	if !found {
		hash = dummyHash
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || !found {
		return "", false
	}
	return u.role, true
}

var dummyHash = mustDemoUser("dummy-password", "").hash

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// contract 记录当前路由的 API 名称，handler span 和根 span 上会带上 api.name。
func contract(name string) gee.HandlerFunc {
	return func(ctx *gee.Context) {
		otelgee.SetAPIName(ctx, name)
		ctx.Next()
	}
}

// newRouter 构建对外服务的路由。Patch 之后注册的中间件和 handler 都会产生 span。
func newRouter(inst *otelgee.Instrumentation, ts auth.TokenService, limiter *ratelimit.Limiter, cfg config.Config) *gee.Engine {
	r := inst.Patch(gee.New())
	r.Use(gee.Recovery(), middleware.ReqID(), otelgee.Correlate(middleware.RequestIDHeader), middleware.AccessLog(), httpmiddleware.Metrics())

	r.GET("/healthz", func(ctx *gee.Context) {
		ctx.String(http.StatusOK, "ok")
	})

	registerAPIRoutes(r.Group("/api/v1"), ts, limiter, cfg)
	return r
}

func registerAPIRoutes(api *gee.RouterGroup, ts auth.TokenService, limiter *ratelimit.Limiter, cfg config.Config) {
	login := api.Group("/login")
	login.Use(&httpmiddleware.RateLimit{Limiter: limiter, Prefix: "login", Limit: cfg.RateLimitLimit, Window: cfg.RateLimitWindow})
	login.POST("", contract("auth.login"), func(ctx *gee.Context) {
		var req loginReq
		if err := ctx.BindJSON(&req); err != nil {
			return
		}
		role, ok := checkPassword(req.Username, req.Password)
		if !ok {
			ctx.NextError(gee.NewHTTPError(http.StatusUnauthorized, "invalid credentials"))
			return
		}
		token, err := ts.Sign(req.Username, role)
		if err != nil {
			ctx.NextError(&gee.HTTPError{Code: http.StatusBadGateway, Message: "sign failed", Err: err})
			return
		}
		ctx.JSON(http.StatusOK, gee.H{"token": token})
	})

	users := api.Group("/users")
	users.Use(httpmiddleware.AuthRequired(ts))
	users.GET("/me", contract("users.me"), func(ctx *gee.Context) {
		id, ok := auth.GetIdentity(ctx.Req.Context())
		if !ok {
			ctx.NextError(errors.New("missing identity"))
			return
		}
		ctx.JSON(http.StatusOK, gee.H{"user_id": id.UserID, "role": id.Role})
	})

	// 异步完成：handler 返回后由 goroutine 写响应，handler span 在 Resolve/Reject 时结束
	api.GET("/reports/:id", contract("reports.get"), func(ctx *gee.Context) {
		d := ctx.Defer()
		id := ctx.Param("id")
		go func() {
			_, span := otel.Tracer("reports").Start(d.Context(), "render report")
			defer span.End()

			select {
			case <-time.After(20 * time.Millisecond):
			case <-d.Context().Done():
				d.Reject(d.Context().Err())
				return
			}
			if id == "0" {
				d.Reject(gee.NewHTTPError(http.StatusNotFound, "report not found"))
				return
			}
			ctx.JSON(http.StatusOK, gee.H{"id": id, "status": "ready"})
			d.Resolve()
		}()
	})
}
