// Package routes holds route registries that business modules export for the
// server to mount.
package routes

import (
	"net/http"
	"strings"
)

// Route is a single endpoint. Path uses gorilla/mux syntax, e.g. "/{id:[0-9]+}".
type Route struct {
	Method  string
	Path    string
	Summary string
	Handler http.Handler
}

// Registry is an ordered group of routes sharing a prefix.
type Registry struct {
	prefix string
	tags   []string
	routes []Route
}

// New creates a registry mounted under prefix.
func New(prefix string, tags ...string) *Registry {
	return &Registry{prefix: normalize(prefix), tags: tags}
}

func (r *Registry) Prefix() string { return r.prefix }

func (r *Registry) Tags() []string { return append([]string(nil), r.tags...) }

// Routes returns a copy of the registered routes in registration order.
func (r *Registry) Routes() []Route { return append([]Route(nil), r.routes...) }

func (r *Registry) Len() int { return len(r.routes) }

// Handle registers h for method and path.
func (r *Registry) Handle(method, path, summary string, h http.Handler) *Registry {
	r.routes = append(r.routes, Route{
		Method:  strings.ToUpper(method),
		Path:    normalize(path),
		Summary: summary,
		Handler: h,
	})
	return r
}

func (r *Registry) Get(path, summary string, h http.HandlerFunc) *Registry {
	return r.Handle(http.MethodGet, path, summary, h)
}

func (r *Registry) Post(path, summary string, h http.HandlerFunc) *Registry {
	return r.Handle(http.MethodPost, path, summary, h)
}

func (r *Registry) Put(path, summary string, h http.HandlerFunc) *Registry {
	return r.Handle(http.MethodPut, path, summary, h)
}

func (r *Registry) Delete(path, summary string, h http.HandlerFunc) *Registry {
	return r.Handle(http.MethodDelete, path, summary, h)
}

// Join concatenates path fragments into a single rooted path without a
// trailing slash.
func Join(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p == "" {
			continue
		}
		b.WriteByte('/')
		b.WriteString(p)
	}
	if b.Len() == 0 {
		return "/"
	}
	return b.String()
}

func normalize(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "/" {
		return ""
	}
	return "/" + strings.Trim(p, "/")
}
