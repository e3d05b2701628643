package middleware

import (
	"net/http"
	"sort"
)

// StaticHeaders sets a fixed set of response headers on every request.
type StaticHeaders struct {
	Base
	keys    []string
	headers map[string]string
}

// NewStaticHeaders copies headers; later changes to the map are not seen.
func NewStaticHeaders(headers map[string]string) *StaticHeaders {
	h := &StaticHeaders{headers: make(map[string]string, len(headers))}
	for k, v := range headers {
		key := http.CanonicalHeaderKey(k)
		h.headers[key] = v
		h.keys = append(h.keys, key)
	}
	sort.Strings(h.keys)
	return h
}

func (m *StaticHeaders) Name() string { return "static_headers" }

func (m *StaticHeaders) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, k := range m.keys {
			w.Header().Set(k, m.headers[k])
		}
		next.ServeHTTP(w, r)
	})
}
