package gee

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"sync"
)

type H map[string]any

// abortIndex must be large enough to exceed any real handler index, but not so
// large that nested Next() loops can overflow when multiple stack frames
// increment c.index after Abort().
const abortIndex = math.MaxInt32

type Context struct {
	Writer *ResponseWriter
	Req    *http.Request
	//请求消息
	Path         string
	Method       string
	Params       map[string]string
	RoutePattern string
	// Errors collects errors passed to NextError and rejected deferreds.
	Errors []error
	//中间件
	handlers []HandlerFunc
	index    int
	nextHook func(error)
	//engine
	engine *Engine

	mu        sync.RWMutex
	keys      map[string]any
	deferreds []*Deferred
}

func (c *Context) Param(key string) string {
	return c.Params[key]
}

func newContext(w http.ResponseWriter, req *http.Request) *Context {
	return &Context{
		Writer: NewResponseWriter(w),
		Req:    req,
		Path:   req.URL.Path,
		Method: req.Method,
		index:  -1,
	}
}

// Next continues the handler chain.
func (c *Context) Next() {
	c.next(nil)
}

// NextError continues with an error: the chain is aborted and the engine's
// error handler runs instead of the remaining handlers. A nil err is Next.
func (c *Context) NextError(err error) {
	c.next(err)
}

func (c *Context) next(err error) {
	if hook := c.nextHook; hook != nil {
		c.nextHook = nil
		hook(err)
	}
	if err != nil {
		c.fail(err)
		return
	}
	c.index++
	s := len(c.handlers)
	for ; c.index < s && !c.IsAborted(); c.index++ {
		c.handlers[c.index](c)
	}
}

// HookNext installs fn to run once, before the chain continues, on the next
// Next or NextError call. It returns the hook it replaced; callers restore it
// with another HookNext once their handler has returned.
func (c *Context) HookNext(fn func(error)) (prev func(error)) {
	prev = c.nextHook
	c.nextHook = fn
	return prev
}

func (c *Context) fail(err error) {
	c.Errors = append(c.Errors, err)
	c.Abort()
	if c.engine != nil {
		c.engine.onError(c, err)
		return
	}
	defaultErrorHandler(c, err)
}

// Set stores a value for the lifetime of the request.
func (c *Context) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.keys == nil {
		c.keys = make(map[string]any)
	}
	c.keys[key] = value
}

func (c *Context) Get(key string) (value any, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok = c.keys[key]
	return
}

func (c *Context) GetString(key string) string {
	if v, ok := c.Get(key); ok {
		s, _ := v.(string)
		return s
	}
	return ""
}

// Defer marks the request as completing asynchronously. ServeHTTP does not
// return before the Deferred settles, so the deferred work may keep using the
// Writer. The Deferred carries the request context as it was when Defer was
// called.
func (c *Context) Defer() *Deferred {
	d := newDeferred(c.Req.Context())
	c.mu.Lock()
	c.deferreds = append(c.deferreds, d)
	c.mu.Unlock()
	return d
}

// Deferred returns the most recently created Deferred of the request, or nil.
func (c *Context) Deferred() *Deferred {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if n := len(c.deferreds); n > 0 {
		return c.deferreds[n-1]
	}
	return nil
}

// wait blocks until every deferred, including ones created while waiting, has
// settled. A rejection runs the error handler unless a response was written.
func (c *Context) wait() {
	for i := 0; ; i++ {
		c.mu.RLock()
		if i >= len(c.deferreds) {
			c.mu.RUnlock()
			return
		}
		d := c.deferreds[i]
		c.mu.RUnlock()

		<-d.Done()
		if err := d.Err(); err != nil {
			if c.Writer.Written() {
				c.Errors = append(c.Errors, err)
				continue
			}
			c.fail(err)
		}
	}
}

func (c *Context) PostForm(key string) string {
	/*
		FromValue：根据key查询HTML表单中的Value，通常包括：
		输入框（input）的 name 和 value，例如：用户名、密码、邮箱等。
		下拉框（select）、单选框（radio）、复选框（checkbox）等表单控件的选中值。
		隐藏域（hidden）的值。
		文本域（textarea）的内容。
		文件上传（file）控件的文件名（通过 multipart/form-data 方式）。
		这些参数会以键值对（key-value）的形式发送到服务器，Go 服务器端可以通过 FormValue方法获取这些参数的值。
	*/
	return c.Req.FormValue(key)
}

func (c *Context) Query(key string) string {
	/*
		这个 Query 方法返回的是 URL 查询参数中指定 key 的第一个值。

		比如请求地址是 /search?name=Tom&age=18，调用 Query("name") 会返回 "Tom"。如果 key 不存在，则返回空字符串
	*/
	return c.Req.URL.Query().Get(key)
}

func (c *Context) Status(code int) {
	c.Writer.WriteHeader(code)
}

func (c *Context) SetHeader(key string, value string) {
	c.Writer.SetHeader(key, value)
}

/*
c.String(200, "Hello %s, age %d", "Tom", 18)
这里 format 是 "Hello %s, age %d"，"Tom" 和 18 会分别替换 %s 和 %d，最终输出 "Hello Tom, age 18"。
*/
func (c *Context) String(code int, format string, values ...any) {
	c.SetHeader("Content-Type", "text/plain")
	c.Status(code)
	c.Writer.Write([]byte(fmt.Sprintf(format, values...)))
}

func (c *Context) JSON(code int, obj any) {
	/*
		这里先创建 encoder 对象（encoder := json.NewEncoder(c.Writer)），是因为 json.NewEncoder 可以直接把 obj 编码后的 JSON 数据写入到 c.Writer（即 HTTP 响应流）中，效率高、内存占用低，适合流式输出。

		如果不用 encoder，你可以用 json.Marshal(obj) 先把 obj 编码成 []byte，再写入响应，但这样会先把所有数据编码到内存里，适合小数据量，不适合大对象或流式场景。

		encoder.Encode(obj) 直接写到响应流，适合 Web 场景，推荐用法。
		json.Marshal(obj) 先生成全部 JSON 字节，再写入，适合简单场景。
	*/
	c.SetHeader("Content-Type", "application/json")
	c.Status(code)
	encoder := json.NewEncoder(c.Writer)
	if err := encoder.Encode(obj); err != nil {
		http.Error(c.Writer, err.Error(), 500)
	}
}

func (c *Context) Data(code int, data []byte) {
	c.Status(code)
	c.Writer.Write(data)
}

func (c *Context) HTML(code int, name string, data interface{}) {
	c.SetHeader("Content-Type", "text/html")
	c.Status(code)
	if err := c.engine.htmlTemplates.ExecuteTemplate(c.Writer, name, data); err != nil {
		c.Fail(500, err.Error())
	}
}

func (c *Context) Fail(code int, format string) {
	c.String(code, "%s", format)
	c.Abort()
}

func (c *Context) Abort() {
	c.index = abortIndex
}
func (c *Context) IsAborted() bool {
	return c.index >= abortIndex
}

func (c *Context) AbortWithStatus(code int) {
	c.Status(code)
	c.Abort()
}

func (c *Context) AbortWithStatusJSON(code int, obj any) {
	c.Abort()

	if c.Writer.Written() {
		return
	}

	bytes, err := json.Marshal(obj)
	if err != nil {
		code = http.StatusInternalServerError
		bytes = []byte(`{"code":500,"message":"Internal Server Error"}`)

	}
	c.SetHeader("Content-Type", "application/json")
	c.Status(code)
	c.Writer.Write(bytes)
}

func (c *Context) AbortWithError(code int, message string) {
	errorRep := NewErrorResponse(c, code, message)
	c.AbortWithStatusJSON(code, errorRep)
}
