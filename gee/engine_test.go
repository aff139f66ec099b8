package gee

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func doRequest(e *Engine, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, nil)
	e.ServeHTTP(w, req)
	return w
}

// C5: 测试所有 HTTP 方法注册
func TestAllVerbs(t *testing.T) {
	engine := New()
	verbs := map[string]func(string, ...any){
		http.MethodGet:     engine.GET,
		http.MethodPost:    engine.POST,
		http.MethodPut:     engine.PUT,
		http.MethodDelete:  engine.DELETE,
		http.MethodPatch:   engine.PATCH,
		http.MethodHead:    engine.HEAD,
		http.MethodOptions: engine.OPTIONS,
	}
	for method, register := range verbs {
		m := method
		register("/verb", func(ctx *Context) {
			ctx.String(http.StatusOK, "%s", m)
		})
	}

	for method := range verbs {
		w := doRequest(engine, method, "/verb")
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", method, w.Code)
		}
		if method != http.MethodHead && w.Body.String() != method {
			t.Errorf("%s: unexpected body %q", method, w.Body.String())
		}
	}
}

type countingProvider struct{ calls *int }

func (p countingProvider) Middleware() HandlerFunc {
	return func(ctx *Context) {
		*p.calls++
		ctx.Next()
	}
}

// C5: 测试 Use 支持函数列表、HandlersChain 和 MiddlewareProvider
func TestUseAcceptsListsAndProviders(t *testing.T) {
	engine := New()
	order := make([]string, 0)
	mw := func(name string) HandlerFunc {
		return func(ctx *Context) {
			order = append(order, name)
			ctx.Next()
		}
	}
	providerCalls := 0

	engine.Use(mw("a"), []HandlerFunc{mw("b"), mw("c")}, HandlersChain{mw("d")}, countingProvider{&providerCalls})
	engine.GET("/x", func(ctx *Context) {
		order = append(order, "h")
	})

	doRequest(engine, "GET", "/x")

	if strings.Join(order, ",") != "a,b,c,d,h" {
		t.Errorf("unexpected order %v", order)
	}
	if providerCalls != 1 {
		t.Errorf("expected provider middleware to run once, got %d", providerCalls)
	}
}

// C5: 测试不支持的中间件类型会 panic
func TestUseRejectsUnsupportedTypes(t *testing.T) {
	cases := []any{42, "x", HandlerFunc(nil)}
	for _, arg := range cases {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("expected panic for %T", arg)
				}
			}()
			New().Use(arg)
		}()
	}
}

// C5: 测试路由处理器列表展开
func TestRouteAcceptsHandlerLists(t *testing.T) {
	engine := New()
	order := make([]string, 0)
	engine.GET("/x", func(ctx *Context) {
		order = append(order, "first")
		ctx.Next()
	}, HandlersChain{
		func(ctx *Context) {
			order = append(order, "second")
			ctx.Next()
		},
		func(ctx *Context) {
			order = append(order, "handler")
		},
	})

	doRequest(engine, "GET", "/x")

	if strings.Join(order, ",") != "first,second,handler" {
		t.Errorf("unexpected order %v", order)
	}
}

// C5: 测试挂载子路由
func TestMountSubEngine(t *testing.T) {
	sub := New()
	subMiddleware := false
	sub.Use(func(ctx *Context) {
		subMiddleware = true
		ctx.Next()
	})
	sub.GET("/status", func(ctx *Context) {
		ctx.String(http.StatusOK, "sub ok")
	})

	engine := New()
	engine.Group("/admin").Use(sub)

	w := doRequest(engine, "GET", "/admin/status")
	if w.Code != http.StatusOK || w.Body.String() != "sub ok" {
		t.Errorf("unexpected response %d %q", w.Code, w.Body.String())
	}
	if !subMiddleware {
		t.Error("sub engine middleware should run under the mount prefix")
	}
}

type recordingInterceptor struct {
	uses   int
	routes []string
}

func (r *recordingInterceptor) InterceptUse(args []any) []any {
	r.uses++
	return args
}

func (r *recordingInterceptor) InterceptRoute(method, pattern string, args []any) []any {
	r.routes = append(r.routes, method+" "+pattern)
	return args
}

// C5: 测试拦截器接收完整路由
func TestInterceptorSeesRegistrations(t *testing.T) {
	engine := New()
	ic := &recordingInterceptor{}
	engine.SetInterceptor(ic)

	engine.Use(func(ctx *Context) { ctx.Next() })
	v1 := engine.Group("/v1")
	v1.Use(func(ctx *Context) { ctx.Next() })
	v1.POST("/items", func(ctx *Context) {})

	if ic.uses != 2 {
		t.Errorf("expected 2 Use interceptions, got %d", ic.uses)
	}
	if len(ic.routes) != 1 || ic.routes[0] != "POST /v1/items" {
		t.Errorf("unexpected routes %v", ic.routes)
	}

	engine.SetInterceptor(nil)
	engine.GET("/after", func(ctx *Context) {})
	if len(ic.routes) != 1 {
		t.Error("removed interceptor should not see registrations")
	}
}

// C6: 测试 NextError 中止后续 handler 并交给错误处理
func TestNextErrorRunsErrorHandler(t *testing.T) {
	engine := New()
	handlerRan := false
	engine.Use(func(ctx *Context) {
		ctx.NextError(NewHTTPError(http.StatusUnauthorized, "Unauthorized"))
	})
	engine.GET("/x", func(ctx *Context) {
		handlerRan = true
	})

	w := doRequest(engine, "GET", "/x")

	if handlerRan {
		t.Error("handler should not run after NextError")
	}
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Unauthorized") {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}

// C6: 测试普通 error 默认返回 500，且错误信息保存到 ErrorMessageKey
func TestNextErrorDefaultsTo500(t *testing.T) {
	engine := New()
	var message string
	engine.Use(func(ctx *Context) {
		ctx.Next()
		message = ctx.GetString(ErrorMessageKey)
	})
	engine.GET("/x", func(ctx *Context) {
		ctx.NextError(errors.New("db down"))
	})

	w := doRequest(engine, "GET", "/x")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
	if message != "db down" {
		t.Errorf("expected error message to be recorded, got %q", message)
	}
}

// C6: 测试自定义错误处理
func TestCustomErrorHandler(t *testing.T) {
	engine := New()
	var got []error
	engine.OnError(func(ctx *Context, err error) {
		got = append(got, ctx.Errors...)
		ctx.JSON(http.StatusTeapot, H{"error": err.Error()})
	})
	engine.GET("/x", func(ctx *Context) {
		ctx.NextError(errors.New("custom"))
	})

	w := doRequest(engine, "GET", "/x")

	if w.Code != http.StatusTeapot {
		t.Errorf("expected 418, got %d", w.Code)
	}
	if len(got) != 1 || got[0].Error() != "custom" {
		t.Errorf("unexpected errors %v", got)
	}
}

// C6: 测试 NextError(nil) 等同于 Next
func TestNextErrorNilContinues(t *testing.T) {
	engine := New()
	engine.Use(func(ctx *Context) { ctx.NextError(nil) })
	engine.GET("/x", func(ctx *Context) { ctx.String(http.StatusOK, "ok") })

	if w := doRequest(engine, "GET", "/x"); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

// C6: 测试 HookNext 在继续前触发一次
func TestHookNext(t *testing.T) {
	engine := New()
	var hookErrs []error
	var hookCalls int
	engine.Use(func(ctx *Context) {
		prev := ctx.HookNext(func(err error) {
			hookCalls++
			hookErrs = append(hookErrs, err)
		})
		defer ctx.HookNext(prev)
		ctx.Next()
	})
	engine.GET("/x", func(ctx *Context) {
		ctx.Next()
		ctx.String(http.StatusOK, "ok")
	})

	doRequest(engine, "GET", "/x")

	if hookCalls != 1 {
		t.Errorf("expected hook to fire once, got %d", hookCalls)
	}
	if hookErrs[0] != nil {
		t.Errorf("expected nil error, got %v", hookErrs[0])
	}
}

// C7: 测试 Defer 时 ServeHTTP 等待异步完成
func TestDeferredResponse(t *testing.T) {
	engine := New()
	finishedAfterWrite := false
	engine.Use(func(ctx *Context) {
		ctx.Writer.OnFinish(func() {
			finishedAfterWrite = ctx.Writer.Written()
		})
		ctx.Next()
	})
	engine.GET("/async", func(ctx *Context) {
		d := ctx.Defer()
		go func() {
			time.Sleep(10 * time.Millisecond)
			ctx.String(http.StatusAccepted, "done")
			d.Resolve()
		}()
	})

	w := doRequest(engine, "GET", "/async")

	if w.Code != http.StatusAccepted || w.Body.String() != "done" {
		t.Errorf("unexpected response %d %q", w.Code, w.Body.String())
	}
	if !finishedAfterWrite {
		t.Error("finish callbacks should run after the deferred write")
	}
}

// C7: 测试 Deferred 拒绝走错误处理
func TestDeferredRejection(t *testing.T) {
	engine := New()
	engine.GET("/async", func(ctx *Context) {
		d := ctx.Defer()
		go d.Reject(errors.New("timeout"))
	})

	w := doRequest(engine, "GET", "/async")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

// C7: 测试已写响应后拒绝只记录错误
func TestDeferredRejectionAfterWrite(t *testing.T) {
	engine := New()
	var errs []error
	engine.Use(func(ctx *Context) {
		ctx.Writer.OnFinish(func() { errs = ctx.Errors })
		ctx.Next()
	})
	engine.GET("/async", func(ctx *Context) {
		d := ctx.Defer()
		go func() {
			ctx.String(http.StatusOK, "partial")
			d.Reject(errors.New("late failure"))
		}()
	})

	w := doRequest(engine, "GET", "/async")

	if w.Code != http.StatusOK || w.Body.String() != "partial" {
		t.Errorf("unexpected response %d %q", w.Code, w.Body.String())
	}
	if len(errs) != 1 || errs[0].Error() != "late failure" {
		t.Errorf("expected rejection to be recorded, got %v", errs)
	}
}

// C7: 测试 Context 键值存储
func TestContextKeys(t *testing.T) {
	c := newContext(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	if _, ok := c.Get("missing"); ok {
		t.Error("missing key should not be found")
	}
	c.Set("name", "gee")
	c.Set("count", 3)

	if c.GetString("name") != "gee" {
		t.Errorf("unexpected value %q", c.GetString("name"))
	}
	if c.GetString("count") != "" {
		t.Error("non-string value should read as empty string")
	}
}
