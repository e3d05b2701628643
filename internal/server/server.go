// Package server assembles the HTTP handler: a gorilla/mux router for the
// discovered route registries wrapped in an ordered middleware chain.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	svcerrors "github.com/R3E-Network/paneladmin/internal/errors"
	"github.com/R3E-Network/paneladmin/internal/httputil"
	"github.com/R3E-Network/paneladmin/internal/middleware"
	"github.com/R3E-Network/paneladmin/internal/routes"
	"github.com/R3E-Network/paneladmin/pkg/logger"
)

var (
	// ErrSealed is returned once Handler has been called.
	ErrSealed = errors.New("server: handler already built")
	// ErrRouteConflict is returned when a METHOD path pair is already attached.
	ErrRouteConflict = errors.New("server: route already attached")
	// ErrInvalidRoute is returned for registries with unusable routes.
	ErrInvalidRoute = errors.New("server: invalid route")
)

// Server collects routes and middleware during startup and serves them
// afterwards. Mutators are not meant for use once traffic is flowing.
type Server struct {
	mu          sync.Mutex
	router      *mux.Router
	middlewares []middleware.Middleware
	attached    map[string]struct{}
	routeList   []string
	sealed      bool
	handler     http.Handler
	logger      *logger.Logger
}

// New creates an empty server.
func New(log *logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(notFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	return &Server{
		router:   router,
		attached: make(map[string]struct{}),
		logger:   log,
	}
}

// AddMiddleware appends m to the chain. Middleware added first runs first.
func (s *Server) AddMiddleware(m middleware.Middleware) error {
	if m == nil {
		return fmt.Errorf("%w: nil middleware", ErrInvalidRoute)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return ErrSealed
	}
	s.middlewares = append(s.middlewares, m)
	return nil
}

// AttachRoutes mounts every route of reg at prefix + reg.Prefix() + route.Path.
// Either all routes are attached or none are.
func (s *Server) AttachRoutes(reg *routes.Registry, prefix string) error {
	if reg == nil {
		return fmt.Errorf("%w: nil registry", ErrInvalidRoute)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return ErrSealed
	}

	type mount struct {
		key, path string
		route     routes.Route
	}
	mounts := make([]mount, 0, reg.Len())
	seen := make(map[string]struct{}, reg.Len())
	probe := mux.NewRouter()

	for _, rt := range reg.Routes() {
		if rt.Handler == nil || rt.Method == "" {
			return fmt.Errorf("%w: %s %s has no handler or method", ErrInvalidRoute, rt.Method, rt.Path)
		}
		full := routes.Join(prefix, reg.Prefix(), rt.Path)
		key := rt.Method + " " + full
		if _, dup := s.attached[key]; dup {
			return fmt.Errorf("%w: %s", ErrRouteConflict, key)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: %s", ErrRouteConflict, key)
		}
		if err := probe.Handle(full, rt.Handler).Methods(rt.Method).GetError(); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidRoute, key, err)
		}
		seen[key] = struct{}{}
		mounts = append(mounts, mount{key: key, path: full, route: rt})
	}

	for _, m := range mounts {
		s.router.Handle(m.path, m.route.Handler).Methods(m.route.Method)
		s.attached[m.key] = struct{}{}
		s.routeList = append(s.routeList, m.key)
	}
	return nil
}

// Handler seals the server and returns the assembled handler. Recovery sits
// innermost so panics are still seen by logging and metrics middleware.
func (s *Server) Handler() http.Handler {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handler != nil {
		return s.handler
	}
	s.sealed = true
	chain := append(append([]middleware.Middleware(nil), s.middlewares...), middleware.NewRecovery(s.logger))
	s.handler = middleware.Chain(s.router, chain...)
	return s.handler
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Handler().ServeHTTP(w, r)
}

// Routes lists attached routes as "METHOD path" in attachment order.
func (s *Server) Routes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.routeList...)
}

// Middlewares lists the chain names, outermost first.
func (s *Server) Middlewares() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.middlewares))
	for _, m := range s.middlewares {
		names = append(names, middleware.NameOf(m))
	}
	return names
}

func notFound(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(w, svcerrors.NotFound("route", r.URL.Path))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(w, svcerrors.MethodNotAllowed(r.Method, r.URL.Path))
}
