package plugin

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
)

// Provider builds a unit. Each compiled-in unit registers its provider via
// init() function.
type Provider func(deps Deps) (*Unit, error)

// Catalog is the compiled-in registry of units keyed by dotted path.
// Intermediate path segments are packages and registered paths are units.
type Catalog struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{providers: make(map[string]Provider)}
}

// DefaultCatalog receives units registered through Register.
var DefaultCatalog = NewCatalog()

// Register adds a unit provider to DefaultCatalog.
// This should be called in each unit's init() function.
func Register(unitPath string, p Provider) {
	DefaultCatalog.Register(unitPath, p)
}

// Register adds a unit provider under unitPath.
// Panics if the path is malformed, already registered, or clashes with a
// package of the same name.
func (c *Catalog) Register(unitPath string, p Provider) {
	if p == nil {
		panic(fmt.Sprintf("plugin: nil provider for %q", unitPath))
	}
	if !validPath(unitPath) {
		panic(fmt.Sprintf("plugin: invalid unit path %q", unitPath))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.providers[unitPath]; exists {
		panic(fmt.Sprintf("plugin: unit %q already registered", unitPath))
	}
	for existing := range c.providers {
		if strings.HasPrefix(existing, unitPath+".") || strings.HasPrefix(unitPath, existing+".") {
			panic(fmt.Sprintf("plugin: unit %q clashes with %q", unitPath, existing))
		}
	}
	c.providers[unitPath] = p
}

// List returns all registered unit paths in sorted order.
func (c *Catalog) List() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	paths := make([]string, 0, len(c.providers))
	for p := range c.providers {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Count returns the number of registered units.
func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.providers)
}

// Resolver returns a resolver whose units are built with deps.
func (c *Catalog) Resolver(deps Deps) Resolver {
	return &catalogResolver{catalog: c, deps: deps}
}

func (c *Catalog) isPackage(nsPath string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for p := range c.providers {
		if strings.HasPrefix(p, nsPath+".") {
			return true
		}
	}
	return false
}

type catalogResolver struct {
	catalog *Catalog
	deps    Deps
}

func (r *catalogResolver) Resolve(nsPath string) (Namespace, error) {
	if !validPath(nsPath) || !r.catalog.isPackage(nsPath) {
		return nil, notFound(nsPath)
	}
	return &catalogNamespace{resolver: r, path: nsPath}, nil
}

type catalogNamespace struct {
	resolver *catalogResolver
	path     string
}

func (n *catalogNamespace) Path() string { return n.path }

func (n *catalogNamespace) Location() string {
	return "catalog:" + path.Join(strings.Split(n.path, ".")...)
}

func (n *catalogNamespace) Entries() ([]Entry, error) {
	c := n.resolver.catalog
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	for p := range c.providers {
		rest, ok := strings.CutPrefix(p, n.path+".")
		if !ok {
			continue
		}
		name, deeper, _ := strings.Cut(rest, ".")
		seen[name] = seen[name] || deeper != ""
	}

	entries := make([]Entry, 0, len(seen))
	for name, pkg := range seen {
		entries = append(entries, Entry{Name: name, Package: pkg})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (n *catalogNamespace) LoadUnit(name string) (unit *Unit, err error) {
	c := n.resolver.catalog
	c.mu.RLock()
	provider, ok := c.providers[n.path+"."+name]
	c.mu.RUnlock()
	if !ok {
		return nil, &LoadError{Namespace: n.path, Unit: name, Err: fmt.Errorf("unit not registered")}
	}

	defer func() {
		if rec := recover(); rec != nil {
			unit = nil
			err = &LoadError{Namespace: n.path, Unit: name, Err: fmt.Errorf("provider panicked: %v", rec)}
		}
	}()

	unit, err = provider(n.resolver.deps)
	if err != nil {
		return nil, &LoadError{Namespace: n.path, Unit: name, Err: err}
	}
	if unit == nil {
		return nil, &LoadError{Namespace: n.path, Unit: name, Err: fmt.Errorf("provider returned no unit")}
	}
	if unit.Name == "" {
		unit.Name = name
	}
	return unit, nil
}

// Chain resolves a path with the first resolver that knows it.
type Chain []Resolver

func (c Chain) Resolve(nsPath string) (Namespace, error) {
	for _, r := range c {
		ns, err := r.Resolve(nsPath)
		if err == nil {
			return ns, nil
		}
		if !isNotFound(err) {
			return nil, err
		}
	}
	return nil, notFound(nsPath)
}

func validPath(p string) bool {
	if p == "" {
		return false
	}
	for _, seg := range strings.Split(p, ".") {
		if seg == "" || strings.ContainsAny(seg, `/\`) {
			return false
		}
	}
	return true
}
