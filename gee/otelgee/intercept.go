package otelgee

import (
	"fmt"

	"geetrace.local/gee"
)

// argKind classifies a registration argument.
type argKind int

const (
	argOther argKind = iota
	argFunc
	argList
	argRouter
	argProvider
)

type regArg struct {
	kind     argKind
	fn       gee.HandlerFunc
	list     []gee.HandlerFunc
	provider gee.MiddlewareProvider
}

func classify(v any) regArg {
	switch a := v.(type) {
	case gee.HandlerFunc:
		if a != nil {
			return regArg{kind: argFunc, fn: a}
		}
	case func(*gee.Context):
		if a != nil {
			return regArg{kind: argFunc, fn: a}
		}
	case gee.HandlersChain:
		return regArg{kind: argList, list: a}
	case []gee.HandlerFunc:
		return regArg{kind: argList, list: a}
	case []func(*gee.Context):
		list := make([]gee.HandlerFunc, len(a))
		for i, fn := range a {
			if fn != nil {
				list[i] = fn
			}
		}
		return regArg{kind: argList, list: list}
	case *gee.Engine:
		return regArg{kind: argRouter}
	case gee.MiddlewareProvider:
		return regArg{kind: argProvider, provider: a}
	}
	return regArg{kind: argOther}
}

// InterceptUse implements gee.Interceptor for RouterGroup.Use. Functions and
// lists of functions are wrapped as middleware, a provider's middleware is
// wrapped and replaces the provider, sub-routers and anything else are
// returned as given.
func (i *Instrumentation) InterceptUse(args []any) []any {
	out := make([]any, len(args))
	for idx, arg := range args {
		a := classify(arg)
		switch a.kind {
		case argFunc:
			out[idx] = i.wrapMiddleware(funcName(a.fn), a.fn)
		case argList:
			out[idx] = i.wrapList(arg, a.list)
		case argProvider:
			mw := a.provider.Middleware()
			if mw == nil {
				out[idx] = arg
				continue
			}
			out[idx] = i.wrapMiddleware(providerName(a.provider, mw), mw)
		case argRouter:
			out[idx] = arg
		default:
			i.logger.Debug("otelgee: registration argument passed through", "type", fmt.Sprintf("%T", arg))
			out[idx] = arg
		}
	}
	return out
}

// InterceptRoute implements gee.Interceptor for the per-method registrations.
// The last argument is the handler: a function is wrapped as the route's
// handler, a list has its last element wrapped as the handler and the rest as
// middleware. Every earlier function is wrapped as middleware.
func (i *Instrumentation) InterceptRoute(method, pattern string, args []any) []any {
	if len(args) == 0 {
		return args
	}
	out := make([]any, 0, len(args))
	for _, arg := range args[:len(args)-1] {
		a := classify(arg)
		switch a.kind {
		case argFunc:
			out = append(out, i.wrapMiddleware(funcName(a.fn), a.fn))
		case argList:
			out = append(out, i.wrapList(arg, a.list))
		default:
			out = append(out, arg)
		}
	}

	last := args[len(args)-1]
	h := classify(last)
	switch {
	case h.kind == argFunc:
		out = append(out, i.WrapHandler(pattern, h.fn))
	case h.kind == argList && len(h.list) > 0:
		n := len(h.list)
		chain := make(gee.HandlersChain, 0, n)
		for _, fn := range h.list[:n-1] {
			chain = append(chain, i.wrapListItem(fn))
		}
		if fn := h.list[n-1]; fn != nil {
			chain = append(chain, i.WrapHandler(pattern, fn))
		} else {
			chain = append(chain, nil)
		}
		out = append(out, chain)
	default:
		out = append(out, last)
	}
	i.logger.Debug("otelgee: route instrumented", "method", method, "pattern", pattern)
	return out
}

// wrapList wraps every element of a list argument. Empty lists are returned
// unchanged.
func (i *Instrumentation) wrapList(orig any, list []gee.HandlerFunc) any {
	if len(list) == 0 {
		return orig
	}
	chain := make(gee.HandlersChain, 0, len(list))
	for _, fn := range list {
		chain = append(chain, i.wrapListItem(fn))
	}
	return chain
}

// nil entries stay nil so the router reports them itself.
func (i *Instrumentation) wrapListItem(fn gee.HandlerFunc) gee.HandlerFunc {
	if fn == nil {
		return nil
	}
	return i.wrapMiddleware(funcName(fn), fn)
}

func providerName(p gee.MiddlewareProvider, mw gee.HandlerFunc) string {
	if n, ok := p.(interface{ Name() string }); ok && n.Name() != "" {
		return n.Name()
	}
	return funcName(mw)
}
