package plugin

import (
	"net/http"

	"github.com/R3E-Network/paneladmin/internal/middleware"
	"github.com/R3E-Network/paneladmin/internal/routes"
)

// namedMW is a class-shaped middleware that reports a fixed name.
type namedMW struct {
	middleware.Base
	name string
}

func (m namedMW) Name() string { return m.name }

func (m namedMW) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("X-Trail", m.name)
		next.ServeHTTP(w, r)
	})
}

func passthrough(w http.ResponseWriter, r *http.Request, next http.Handler) {
	next.ServeHTTP(w, r)
}

func unitOf(priority *int, members ...Member) Provider {
	return func(Deps) (*Unit, error) {
		return &Unit{Priority: priority, Members: members}, nil
	}
}

func routerUnit(prefix string) Provider {
	return func(Deps) (*Unit, error) {
		reg := routes.New(prefix).Get("", "list", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		return &Unit{Members: []Member{{Name: DefaultRouterName, Value: reg}}}, nil
	}
}

// fakeServer records what the engine attaches.
type fakeServer struct {
	middlewares []string
	routers     []string
	failOn      map[string]error
	panicOn     string
}

func (s *fakeServer) AddMiddleware(m middleware.Middleware) error {
	name := middleware.NameOf(m)
	if s.panicOn == name {
		panic("server exploded")
	}
	if err := s.failOn[name]; err != nil {
		return err
	}
	s.middlewares = append(s.middlewares, name)
	return nil
}

func (s *fakeServer) AttachRoutes(reg *routes.Registry, prefix string) error {
	if err := s.failOn[reg.Prefix()]; err != nil {
		return err
	}
	s.routers = append(s.routers, prefix+reg.Prefix())
	return nil
}
