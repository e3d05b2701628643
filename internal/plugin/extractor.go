package plugin

import (
	"fmt"
	"net/http"
	"reflect"

	"github.com/R3E-Network/paneladmin/internal/middleware"
	"github.com/R3E-Network/paneladmin/internal/routes"
)

const (
	// DefaultRouterName is the binding a router unit exports.
	DefaultRouterName = "router"
	// MiddlewareExport is the binding checked when no shape scan matches.
	MiddlewareExport = "middleware"
)

// Extractor classifies unit members into capability records. The zero value
// looks for routers under DefaultRouterName.
type Extractor struct {
	RouterName string
}

// Middleware returns the unit's middleware capability. Strategies run in a
// fixed order and the first match wins: a middleware value that is not the
// bare Base, then a public function-shaped interceptor, then the binding
// named "middleware" whatever its shape. Disabled units yield nothing.
func (e Extractor) Middleware(loc Located, unit *Unit) (Record, bool) {
	if unit == nil || !unit.IsEnabled() {
		return Record{}, false
	}

	for _, m := range unit.Members {
		if isMiddlewareClass(m.Value) && !isBase(m.Value) {
			return e.record(loc, unit, KindMiddlewareClass, m.Value), true
		}
	}
	for _, m := range unit.Members {
		if !m.Private() && isMiddlewareFunc(m.Value) {
			return e.record(loc, unit, KindMiddlewareFunction, m.Value), true
		}
	}
	if v, ok := unit.Lookup(MiddlewareExport); ok {
		switch {
		case isMiddlewareClass(v):
			return e.record(loc, unit, KindMiddlewareClass, v), true
		case isMiddlewareFunc(v) || isWrapperFunc(v):
			return e.record(loc, unit, KindMiddlewareFunction, v), true
		}
	}
	return Record{}, false
}

// Router returns the unit's route registry bound under the router name.
func (e Extractor) Router(loc Located, unit *Unit) (Record, bool) {
	if unit == nil || !unit.IsEnabled() {
		return Record{}, false
	}
	name := e.RouterName
	if name == "" {
		name = DefaultRouterName
	}
	v, ok := unit.Lookup(name)
	if !ok {
		return Record{}, false
	}
	reg, ok := v.(*routes.Registry)
	if !ok || reg == nil {
		return Record{}, false
	}
	return e.record(loc, unit, KindRouteRegistry, reg), true
}

func (e Extractor) record(loc Located, unit *Unit, kind Kind, payload any) Record {
	return Record{
		Module:    loc.Module.Name,
		Namespace: loc.Namespace.Path(),
		Source:    loc.SourceName(unit.Name),
		Kind:      kind,
		Priority:  unit.EffectivePriority(),
		Enabled:   unit.IsEnabled(),
		Config:    unit.Config,
		Payload:   payload,
	}
}

func isMiddlewareClass(v any) bool {
	if isNil(v) {
		return false
	}
	_, ok := v.(middleware.Middleware)
	return ok
}

func isBase(v any) bool {
	switch v.(type) {
	case middleware.Base, *middleware.Base:
		return true
	}
	return false
}

func isMiddlewareFunc(v any) bool {
	if isNil(v) {
		return false
	}
	switch v.(type) {
	case middleware.Func,
		func(http.ResponseWriter, *http.Request, http.Handler),
		func(http.ResponseWriter, *http.Request, http.HandlerFunc):
		return true
	}
	return false
}

func isWrapperFunc(v any) bool {
	if isNil(v) {
		return false
	}
	_, ok := v.(func(http.Handler) http.Handler)
	return ok
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Func, reflect.Map, reflect.Slice, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// toMiddleware converts a middleware record payload into something the
// server can chain.
func toMiddleware(rec Record) (middleware.Middleware, error) {
	name := rec.ID()
	switch rec.Kind {
	case KindMiddlewareClass:
		m, ok := rec.Payload.(middleware.Middleware)
		if !ok || isNil(rec.Payload) {
			return nil, fmt.Errorf("payload %T is not a middleware", rec.Payload)
		}
		return m, nil
	case KindMiddlewareFunction:
		switch fn := rec.Payload.(type) {
		case middleware.Func:
			return middleware.Adapt(name, fn), nil
		case func(http.ResponseWriter, *http.Request, http.Handler):
			return middleware.Adapt(name, fn), nil
		case func(http.ResponseWriter, *http.Request, http.HandlerFunc):
			return middleware.Adapt(name, func(w http.ResponseWriter, r *http.Request, next http.Handler) {
				fn(w, r, next.ServeHTTP)
			}), nil
		case func(http.Handler) http.Handler:
			return middleware.AdaptWrapper(name, fn), nil
		}
		return nil, fmt.Errorf("payload %T is not a middleware function", rec.Payload)
	default:
		return nil, fmt.Errorf("record kind %s is not middleware", rec.Kind)
	}
}
