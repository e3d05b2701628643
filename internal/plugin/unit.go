package plugin

import "strings"

// DefaultPriority sorts a middleware after every explicitly prioritised one.
const DefaultPriority = 999

// Member is a top-level binding exported by a unit.
type Member struct {
	Name  string
	Value any
}

// Private reports whether the binding is excluded from shape scans.
func (m Member) Private() bool { return strings.HasPrefix(m.Name, "_") }

// Unit is a loaded source unit. Nil Enabled means enabled and nil Priority
// means DefaultPriority. Config is passed through untouched.
type Unit struct {
	Name     string
	Enabled  *bool
	Priority *int
	Config   map[string]any
	Members  []Member
}

// IsEnabled reports the effective enabled flag.
func (u *Unit) IsEnabled() bool { return u.Enabled == nil || *u.Enabled }

// EffectivePriority reports the declared priority or DefaultPriority.
func (u *Unit) EffectivePriority() int {
	if u.Priority == nil {
		return DefaultPriority
	}
	return *u.Priority
}

// Lookup returns the member bound to name.
func (u *Unit) Lookup(name string) (any, bool) {
	for _, m := range u.Members {
		if m.Name == name {
			return m.Value, true
		}
	}
	return nil, false
}

// Bool returns a pointer to b, for Unit literals.
func Bool(b bool) *bool { return &b }

// Int returns a pointer to i, for Unit literals.
func Int(i int) *int { return &i }

// Kind classifies a capability record.
type Kind int

const (
	KindRouteRegistry Kind = iota + 1
	KindMiddlewareClass
	KindMiddlewareFunction
)

func (k Kind) String() string {
	switch k {
	case KindRouteRegistry:
		return "router"
	case KindMiddlewareClass:
		return "middleware_class"
	case KindMiddlewareFunction:
		return "middleware_function"
	default:
		return "unknown"
	}
}

// IsMiddleware reports whether k is one of the middleware kinds.
func (k Kind) IsMiddleware() bool {
	return k == KindMiddlewareClass || k == KindMiddlewareFunction
}

// Record is a discovered capability.
type Record struct {
	Module    string
	Namespace string
	Source    string
	Kind      Kind
	Priority  int
	Enabled   bool
	Config    map[string]any
	Payload   any
}

// ID names the record in logs, e.g. "users/v1.users".
func (r Record) ID() string {
	return r.Module + "/" + r.Source
}

// BusinessModule is an immediate child package of a base namespace.
type BusinessModule struct {
	Name string
	Path string
}

// Located is a namespace of the requested kind inside a business module.
// Nested packages below the kind namespace are located separately.
type Located struct {
	Module    BusinessModule
	Namespace Namespace
	// Prefix is the dotted path of Namespace relative to the kind
	// namespace, empty for the kind namespace itself.
	Prefix string
}

// SourceName qualifies a unit name with the located prefix.
func (l Located) SourceName(unit string) string {
	if l.Prefix == "" {
		return unit
	}
	return l.Prefix + "." + unit
}
