package plugin

import (
	"errors"
	"fmt"
)

// ErrNamespaceNotFound is matched by errors returned for unresolvable paths.
var ErrNamespaceNotFound = errors.New("namespace not found")

// NamespaceError reports a namespace that could not be resolved or listed.
type NamespaceError struct {
	Path string
	Err  error
}

func (e *NamespaceError) Error() string {
	return fmt.Sprintf("namespace %q: %v", e.Path, e.Err)
}

func (e *NamespaceError) Unwrap() error { return e.Err }

func notFound(path string) error {
	return &NamespaceError{Path: path, Err: ErrNamespaceNotFound}
}

// LoadError reports a unit that failed to load.
type LoadError struct {
	Namespace string
	Unit      string
	Err       error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load unit %s.%s: %v", e.Namespace, e.Unit, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// RegistrationError reports a capability the server refused.
type RegistrationError struct {
	Module string
	Source string
	Kind   Kind
	Err    error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("register %s %s/%s: %v", e.Kind, e.Module, e.Source, e.Err)
}

func (e *RegistrationError) Unwrap() error { return e.Err }

func isNotFound(err error) bool {
	return errors.Is(err, ErrNamespaceNotFound)
}
