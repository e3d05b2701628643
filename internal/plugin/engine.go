package plugin

import (
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/R3E-Network/paneladmin/internal/middleware"
	"github.com/R3E-Network/paneladmin/internal/routes"
	"github.com/R3E-Network/paneladmin/pkg/logger"
)

// Default sub-namespace kinds scanned in each business module.
const (
	DefaultRouterKind     = "api"
	DefaultMiddlewareKind = "middleware"
)

// Server is what the engine registers capabilities on.
type Server interface {
	AddMiddleware(m middleware.Middleware) error
	AttachRoutes(reg *routes.Registry, prefix string) error
}

// SummaryRecorder publishes the outcome of a scan.
type SummaryRecorder interface {
	RecordDiscovery(discovered, registered, disabled, failed int)
}

// Summary counts the outcome of a discovery and registration pass.
type Summary struct {
	Discovered int `json:"discovered"`
	Registered int `json:"registered"`
	Disabled   int `json:"disabled"`
	Failed     int `json:"failed"`
}

// Status holds the summary of the last bootstrap for reporting endpoints.
type Status struct {
	mu      sync.RWMutex
	summary Summary
	done    bool
}

func (s *Status) Set(sum Summary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = sum
	s.done = true
}

// Summary returns the last summary and whether a bootstrap has completed.
func (s *Status) Summary() (Summary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summary, s.done
}

// Engine scans base namespaces for capabilities and registers them.
type Engine struct {
	Resolver       Resolver
	Bases          []string
	RouterKind     string
	MiddlewareKind string
	RouterName     string
	APIPrefix      string
	MaxDepth       int
	Log            *logger.Logger
	Recorder       SummaryRecorder
	Status         *Status
}

// Discover scans every base namespace and returns routers followed by
// middleware, each in discovery order. Middleware is not yet sorted.
// Nothing here is fatal: unresolvable namespaces and broken units are logged
// and counted.
func (e *Engine) Discover() ([]Record, Summary) {
	var (
		routers, mws []Record
		sum          Summary
	)
	log := e.log()
	extractor := Extractor{RouterName: e.RouterName}
	locator := &Locator{Resolver: e.Resolver, MaxDepth: e.MaxDepth, Log: log}

	scan := func(base, kind string, extract func(Located, *Unit) (Record, bool)) []Record {
		located, err := locator.Locate(base, kind)
		if err != nil {
			log.WithFields(logrus.Fields{
				"namespace": base,
				"kind":      kind,
				"error":     err,
			}).Warn("base namespace not scanned")
			return nil
		}

		var found []Record
		for _, loc := range located {
			entries, err := loc.Namespace.Entries()
			if err != nil {
				log.WithFields(logrus.Fields{
					"namespace": loc.Namespace.Path(),
					"module":    loc.Module.Name,
					"error":     err,
				}).Warn("cannot list namespace")
				continue
			}
			for _, entry := range entries {
				if entry.Package || Ignored(entry.Name) {
					continue
				}
				unit, err := loadUnit(loc.Namespace, entry.Name)
				if err != nil {
					sum.Failed++
					log.WithFields(logrus.Fields{
						"namespace": loc.Namespace.Path(),
						"module":    loc.Module.Name,
						"unit":      entry.Name,
						"error":     err,
					}).Error("capability unit failed to load")
					continue
				}
				if !unit.IsEnabled() {
					sum.Disabled++
					log.WithFields(logrus.Fields{
						"namespace": loc.Namespace.Path(),
						"module":    loc.Module.Name,
						"unit":      entry.Name,
					}).Info("capability disabled")
					continue
				}
				rec, ok := extract(loc, unit)
				if !ok {
					log.WithFields(logrus.Fields{
						"namespace": loc.Namespace.Path(),
						"module":    loc.Module.Name,
						"unit":      entry.Name,
						"kind":      kind,
					}).Debug("unit exports no capability")
					continue
				}
				found = append(found, rec)
			}
		}
		return found
	}

	for _, base := range e.Bases {
		routers = append(routers, scan(base, e.routerKind(), extractor.Router)...)
		mws = append(mws, scan(base, e.middlewareKind(), extractor.Middleware)...)
	}

	records := append(routers, mws...)
	sum.Discovered = len(records)
	return records, sum
}

// RegisterAll attaches routers in discovery order under prefix, then
// middleware stable-sorted by ascending priority. Each failure is logged and
// counted; registration continues with the next record.
func RegisterAll(records []Record, srv Server, prefix string, log *logger.Logger) Summary {
	if log == nil {
		log = logger.Discard()
	}
	sum := Summary{Discovered: len(records)}

	var routers, mws []Record
	for _, rec := range records {
		switch {
		case !rec.Enabled:
			sum.Disabled++
		case rec.Kind == KindRouteRegistry:
			routers = append(routers, rec)
		case rec.Kind.IsMiddleware():
			mws = append(mws, rec)
		default:
			sum.Failed++
			logRegistrationError(log, &RegistrationError{
				Module: rec.Module, Source: rec.Source, Kind: rec.Kind,
				Err: fmt.Errorf("unknown capability kind"),
			})
		}
	}
	SortMiddleware(mws)

	for _, rec := range append(routers, mws...) {
		if err := register(rec, srv, prefix); err != nil {
			sum.Failed++
			logRegistrationError(log, err)
			continue
		}
		sum.Registered++
		log.WithFields(logrus.Fields{
			"module":   rec.Module,
			"unit":     rec.Source,
			"kind":     rec.Kind.String(),
			"priority": rec.Priority,
		}).Debug("capability registered")
	}
	return sum
}

// SortMiddleware orders middleware records by ascending priority, keeping
// discovery order for equal priorities.
func SortMiddleware(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Priority < records[j].Priority
	})
}

// Plan returns records in the order RegisterAll attaches them, without the
// disabled ones.
func Plan(records []Record) []Record {
	var routers, mws []Record
	for _, rec := range records {
		switch {
		case !rec.Enabled:
		case rec.Kind == KindRouteRegistry:
			routers = append(routers, rec)
		case rec.Kind.IsMiddleware():
			mws = append(mws, rec)
		}
	}
	SortMiddleware(mws)
	return append(routers, mws...)
}

func register(rec Record, srv Server, prefix string) (err error) {
	wrap := func(cause error) error {
		return &RegistrationError{Module: rec.Module, Source: rec.Source, Kind: rec.Kind, Err: cause}
	}
	defer func() {
		if r := recover(); r != nil {
			err = wrap(fmt.Errorf("panic: %v", r))
		}
	}()

	if rec.Kind == KindRouteRegistry {
		reg, ok := rec.Payload.(*routes.Registry)
		if !ok || reg == nil {
			return wrap(fmt.Errorf("payload %T is not a route registry", rec.Payload))
		}
		if err := srv.AttachRoutes(reg, prefix); err != nil {
			return wrap(err)
		}
		return nil
	}

	m, err := toMiddleware(rec)
	if err != nil {
		return wrap(err)
	}
	if err := srv.AddMiddleware(m); err != nil {
		return wrap(err)
	}
	return nil
}

func logRegistrationError(log *logger.Logger, err error) {
	fields := logrus.Fields{"error": err}
	if re, ok := err.(*RegistrationError); ok {
		fields["module"] = re.Module
		fields["unit"] = re.Source
		fields["kind"] = re.Kind.String()
	}
	log.WithFields(fields).Error("capability registration failed")
}

// Bootstrap installs cors ahead of everything else, then discovers and
// registers every capability and publishes the summary.
func (e *Engine) Bootstrap(srv Server, cors middleware.Middleware) Summary {
	log := e.log()
	if cors != nil {
		if err := srv.AddMiddleware(cors); err != nil {
			log.WithError(err).Error("cors middleware not installed")
		}
	}

	records, found := e.Discover()
	registered := RegisterAll(records, srv, e.APIPrefix, log)

	sum := Summary{
		Discovered: found.Discovered,
		Registered: registered.Registered,
		Disabled:   found.Disabled + registered.Disabled,
		Failed:     found.Failed + registered.Failed,
	}
	log.WithFields(logrus.Fields{
		"discovered": sum.Discovered,
		"registered": sum.Registered,
		"disabled":   sum.Disabled,
		"failed":     sum.Failed,
	}).Info("capability discovery complete")

	if e.Recorder != nil {
		e.Recorder.RecordDiscovery(sum.Discovered, sum.Registered, sum.Disabled, sum.Failed)
	}
	if e.Status != nil {
		e.Status.Set(sum)
	}
	return sum
}

func loadUnit(ns Namespace, name string) (unit *Unit, err error) {
	defer func() {
		if r := recover(); r != nil {
			unit, err = nil, &LoadError{Namespace: ns.Path(), Unit: name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	unit, err = ns.LoadUnit(name)
	if err == nil && unit == nil {
		err = &LoadError{Namespace: ns.Path(), Unit: name, Err: fmt.Errorf("no unit")}
	}
	return unit, err
}

func (e *Engine) routerKind() string {
	if e.RouterKind == "" {
		return DefaultRouterKind
	}
	return e.RouterKind
}

func (e *Engine) middlewareKind() string {
	if e.MiddlewareKind == "" {
		return DefaultMiddlewareKind
	}
	return e.MiddlewareKind
}

func (e *Engine) log() *logger.Logger {
	if e.Log == nil {
		return logger.Discard()
	}
	return e.Log
}
