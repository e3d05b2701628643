package plugin

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a member value for a manifest binding from the unit's
// config block.
type Factory func(cfg map[string]any, deps Deps) (any, error)

// Factories is a registry of named factories.
type Factories struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewFactories() *Factories {
	return &Factories{factories: make(map[string]Factory)}
}

// DefaultFactories receives factories registered through RegisterFactory.
var DefaultFactories = NewFactories()

// RegisterFactory adds f to DefaultFactories. Call it from init().
func RegisterFactory(name string, f Factory) {
	DefaultFactories.Register(name, f)
}

// Register panics if name is already taken.
func (r *Factories) Register(name string, f Factory) {
	if name == "" || f == nil {
		panic("plugin: factory needs a name and a function")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		panic(fmt.Sprintf("plugin: factory %q already registered", name))
	}
	r.factories[name] = f
}

func (r *Factories) Get(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// List returns registered factory names in sorted order.
func (r *Factories) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
