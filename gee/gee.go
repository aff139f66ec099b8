package gee

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"path"
	"strings"
)

type Engine struct {
	*RouterGroup
	router        *router
	groups        []*RouterGroup
	htmlTemplates *template.Template // for html render
	funcMap       template.FuncMap   // for html render
	noMethod      []HandlerFunc
	noRoute       []HandlerFunc
	onError       ErrorHandlerFunc
	interceptor   Interceptor
}

type RouterGroup struct {
	prefix      string
	middlewares []HandlerFunc
	parent      *RouterGroup
	engine      *Engine
}

// HandlersChain is a list of handlers registered as a single argument.
type HandlersChain []HandlerFunc

// MiddlewareProvider is an object that carries its middleware behind a method,
// e.g. a configured limiter. Use registers the returned handler.
type MiddlewareProvider interface {
	Middleware() HandlerFunc
}

// Interceptor rewrites registration arguments before they reach the router.
type Interceptor interface {
	InterceptUse(args []any) []any
	InterceptRoute(method, pattern string, args []any) []any
}

func New() *Engine {
	engine := &Engine{
		router:  newRouter(),
		onError: defaultErrorHandler,
	}
	engine.noRoute = []HandlerFunc{func(ctx *Context) { ctx.String(http.StatusNotFound, "404 NOT FOUND %s", ctx.Path) }}
	engine.noMethod = []HandlerFunc{func(ctx *Context) { ctx.String(http.StatusMethodNotAllowed, "405 Method Not Allowed %s", ctx.Path) }}
	engine.RouterGroup = &RouterGroup{engine: engine}
	engine.groups = []*RouterGroup{engine.RouterGroup}
	return engine
}

func Default() *Engine {
	engine := New()
	engine.Use(Recovery(), Logger())
	return engine
}

func (e *Engine) NoRoute(handlers ...HandlerFunc) {
	e.noRoute = handlers
}

func (e *Engine) NoMethod(handlers ...HandlerFunc) {
	e.noMethod = handlers
}

// OnError replaces the handler run when a middleware continues with an error
// or a deferred completion is rejected.
func (e *Engine) OnError(fn ErrorHandlerFunc) {
	if fn == nil {
		fn = defaultErrorHandler
	}
	e.onError = fn
}

// SetInterceptor installs i for every later registration on this engine and its
// groups. A nil interceptor removes the current one.
func (e *Engine) SetInterceptor(i Interceptor) {
	e.interceptor = i
}

func (e *Engine) Interceptor() Interceptor {
	return e.interceptor
}

func (e *Engine) SetFuncMap(funcMap template.FuncMap) {
	e.funcMap = funcMap
}

func (e *Engine) LoadHTMLGlob(pattern string) {
	e.htmlTemplates = template.Must(template.New("").Funcs(e.funcMap).ParseGlob(pattern))
}

func (group *RouterGroup) Group(prefix string) *RouterGroup {
	engine := group.engine
	newGroup := &RouterGroup{
		prefix: group.prefix + prefix,
		parent: group,
		engine: engine,
	}
	engine.groups = append(engine.groups, newGroup)
	return newGroup
}

// Use 添加中间件
//
// Accepted values: HandlerFunc, func(*Context), HandlersChain, []HandlerFunc,
// []func(*Context), MiddlewareProvider and *Engine (mounted under the group prefix).
func (group *RouterGroup) Use(args ...any) {
	if ic := group.engine.interceptor; ic != nil {
		args = ic.InterceptUse(args)
	}
	for _, arg := range args {
		switch v := arg.(type) {
		case *Engine:
			group.mount(v)
		case MiddlewareProvider:
			group.middlewares = append(group.middlewares, v.Middleware())
		default:
			handlers, ok := flatten(v)
			if !ok {
				panic(fmt.Sprintf("gee: unsupported middleware type %T", arg))
			}
			group.middlewares = append(group.middlewares, handlers...)
		}
	}
}

// mount copies the groups and routes of sub under this group's prefix. The
// sub engine's handlers are taken as registered; this group's interceptor is not
// applied to them again.
func (group *RouterGroup) mount(sub *Engine) {
	if sub == group.engine {
		panic("gee: cannot mount an engine into itself")
	}
	engine := group.engine
	for _, g := range sub.groups {
		mounted := &RouterGroup{
			prefix:      group.prefix + g.prefix,
			middlewares: append([]HandlerFunc(nil), g.middlewares...),
			parent:      group,
			engine:      engine,
		}
		engine.groups = append(engine.groups, mounted)
	}
	for _, r := range sub.router.routes {
		engine.router.addRoute(r.method, group.prefix+r.pattern, r.handlers...)
	}
}

func flatten(arg any) ([]HandlerFunc, bool) {
	switch v := arg.(type) {
	case HandlerFunc:
		return []HandlerFunc{v}, v != nil
	case func(*Context):
		return []HandlerFunc{v}, v != nil
	case HandlersChain:
		return v, true
	case []HandlerFunc:
		return v, true
	case []func(*Context):
		out := make([]HandlerFunc, 0, len(v))
		for _, fn := range v {
			out = append(out, fn)
		}
		return out, true
	}
	return nil, false
}

func (group *RouterGroup) addRoute(method string, comp string, args ...any) {
	pattern := group.prefix + comp
	if ic := group.engine.interceptor; ic != nil {
		args = ic.InterceptRoute(method, pattern, args)
	}
	handlers := make([]HandlerFunc, 0, len(args))
	for _, arg := range args {
		hs, ok := flatten(arg)
		if !ok {
			panic(fmt.Sprintf("gee: unsupported handler type %T for %s %s", arg, method, pattern))
		}
		handlers = append(handlers, hs...)
	}
	slog.Debug("route registered", "method", method, "pattern", pattern)
	group.engine.router.addRoute(method, pattern, handlers...)
}

// GET defines the method to add GET request
func (group *RouterGroup) GET(pattern string, handlers ...any) {
	group.addRoute(http.MethodGet, pattern, handlers...)
}

// POST defines the method to add POST request
func (group *RouterGroup) POST(pattern string, handlers ...any) {
	group.addRoute(http.MethodPost, pattern, handlers...)
}

func (group *RouterGroup) PUT(pattern string, handlers ...any) {
	group.addRoute(http.MethodPut, pattern, handlers...)
}

// DELETE defines the method to add DELETE request
func (group *RouterGroup) DELETE(pattern string, handlers ...any) {
	group.addRoute(http.MethodDelete, pattern, handlers...)
}

func (group *RouterGroup) PATCH(pattern string, handlers ...any) {
	group.addRoute(http.MethodPatch, pattern, handlers...)
}

func (group *RouterGroup) HEAD(pattern string, handlers ...any) {
	group.addRoute(http.MethodHead, pattern, handlers...)
}

func (group *RouterGroup) OPTIONS(pattern string, handlers ...any) {
	group.addRoute(http.MethodOptions, pattern, handlers...)
}

func (group *RouterGroup) createStaticHandler(relativePath string, fs http.FileSystem) HandlerFunc {
	absolutePath := path.Join(group.prefix, relativePath)
	fileServer := http.StripPrefix(absolutePath, http.FileServer(fs))
	return func(ctx *Context) {
		file := ctx.Param("filepath")
		if _, err := fs.Open(file); err != nil {
			ctx.Status(http.StatusNotFound)
			return
		}
		fileServer.ServeHTTP(ctx.Writer, ctx.Req)
	}
}

// Static serves static files
func (group *RouterGroup) Static(relativePath string, root string) {
	handler := group.createStaticHandler(relativePath, http.Dir(root))
	urlPattern := path.Join(relativePath, "/*filepath")
	group.GET(urlPattern, handler)
}

// ServeHTTP implements http.Handler interface
//
// Finish callbacks run after the handler chain and every deferred completion of
// the request, also when a panic escapes the chain.
func (e *Engine) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var middlewares []HandlerFunc
	for _, group := range e.groups {
		if strings.HasPrefix(req.URL.Path, group.prefix) {
			middlewares = append(middlewares, group.middlewares...)
		}
	}
	ctx := newContext(w, req)
	ctx.handlers = middlewares
	ctx.engine = e
	defer ctx.Writer.finish()
	e.router.handle(ctx)
	ctx.wait()
}

// Run starts the HTTP server
func (e *Engine) Run(addr string) error {
	return http.ListenAndServe(addr, e)
}
