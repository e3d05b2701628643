// Package middleware provides HTTP middleware for the service layer.
//
// A middleware capability is any value with a Middleware(http.Handler)
// http.Handler method, which is also the method set gorilla/mux uses, so
// mux.MiddlewareFunc values plug in unchanged. Interceptors written as plain
// functions receive the continuation explicitly (Func) and are turned into
// capabilities with Adapt.
package middleware

import (
	"fmt"
	"net/http"
)

// Middleware wraps a handler with request/response behaviour.
type Middleware interface {
	Middleware(next http.Handler) http.Handler
}

// Named is implemented by middleware that reports a stable name for
// diagnostics.
type Named interface {
	Name() string
}

// Base is the passthrough capability concrete middleware may embed.
type Base struct{}

// Middleware returns next unchanged.
func (Base) Middleware(next http.Handler) http.Handler { return next }

// Func intercepts a request. It either calls next or writes its own response
// to short-circuit the chain.
type Func func(w http.ResponseWriter, r *http.Request, next http.Handler)

type adapter struct {
	name string
	wrap func(http.Handler) http.Handler
}

func (a adapter) Middleware(next http.Handler) http.Handler { return a.wrap(next) }

func (a adapter) Name() string { return a.name }

// Adapt turns fn into a Middleware.
func Adapt(name string, fn Func) Middleware {
	return adapter{
		name: name,
		wrap: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fn(w, r, next)
			})
		},
	}
}

// AdaptWrapper turns a plain handler decorator into a Middleware.
func AdaptWrapper(name string, wrap func(http.Handler) http.Handler) Middleware {
	return adapter{name: name, wrap: wrap}
}

// NameOf returns m's reported name or its dynamic type.
func NameOf(m Middleware) string {
	if n, ok := m.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", m)
}

// Chain applies mws around h. The first middleware is the outermost and sees
// the request first.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i].Middleware(h)
	}
	return h
}
