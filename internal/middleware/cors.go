package middleware

import (
	"net/http"
	"strconv"
	"strings"

	svcerrors "github.com/R3E-Network/paneladmin/internal/errors"
	"github.com/R3E-Network/paneladmin/internal/httputil"
)

// CORSOptions mirrors the cors section of the configuration.
type CORSOptions struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           int
}

// CORSMiddleware handles Cross-Origin Resource Sharing
type CORSMiddleware struct {
	opts     CORSOptions
	allowAll bool
	methods  string
	headers  string
	expose   string
}

// NewCORSMiddleware creates a new CORS middleware
func NewCORSMiddleware(opts CORSOptions) *CORSMiddleware {
	if len(opts.AllowMethods) == 0 {
		opts.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}
	}
	if len(opts.AllowHeaders) == 0 {
		opts.AllowHeaders = []string{"Content-Type", "Authorization", TraceHeader}
	}

	allowAll := false
	for _, origin := range opts.AllowOrigins {
		if origin == "*" {
			allowAll = true
			break
		}
	}

	return &CORSMiddleware{
		opts:     opts,
		allowAll: allowAll,
		methods:  strings.Join(opts.AllowMethods, ", "),
		headers:  strings.Join(opts.AllowHeaders, ", "),
		expose:   strings.Join(opts.ExposeHeaders, ", "),
	}
}

func (m *CORSMiddleware) Name() string { return "cors" }

// Middleware returns the CORS middleware handler
func (m *CORSMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""
		if !m.allowAll && !m.isOriginAllowed(origin) {
			if preflight {
				httputil.WriteError(w, svcerrors.Forbidden("CORS origin not allowed"))
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Add("Vary", "Origin")
		if m.allowAll && !m.opts.AllowCredentials {
			h.Set("Access-Control-Allow-Origin", "*")
		} else {
			h.Set("Access-Control-Allow-Origin", origin)
		}
		if m.opts.AllowCredentials {
			h.Set("Access-Control-Allow-Credentials", "true")
		}

		if preflight {
			h.Set("Access-Control-Allow-Methods", m.methods)
			h.Set("Access-Control-Allow-Headers", m.headers)
			if m.opts.MaxAge > 0 {
				h.Set("Access-Control-Max-Age", strconv.Itoa(m.opts.MaxAge))
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		if m.expose != "" {
			h.Set("Access-Control-Expose-Headers", m.expose)
		}
		next.ServeHTTP(w, r)
	})
}

// isOriginAllowed checks if an origin is in the allowed list
func (m *CORSMiddleware) isOriginAllowed(origin string) bool {
	for _, allowed := range m.opts.AllowOrigins {
		if allowed == origin {
			return true
		}
		// "*.example.com" admits any subdomain of example.com
		if strings.HasPrefix(allowed, "*.") && strings.HasSuffix(origin, allowed[1:]) {
			return true
		}
	}
	return false
}
