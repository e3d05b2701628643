// Package plugin discovers route registries and middleware contributed by
// business modules and registers them on the server at startup.
//
// Modules are addressed by dotted namespace paths such as "core.users.api".
// A Resolver turns a path into a Namespace; namespaces contain packages and
// units. Units expose named members which the Extractor classifies into
// capability Records. The Engine scans every configured base namespace once,
// orders what it found and attaches it to the server.
//
// All services are compiled into a single binary. Units either register
// themselves in the Catalog from init() or are declared as HCL manifests in a
// plugin directory whose bindings name compiled-in factories.
package plugin

import (
	"github.com/jmoiron/sqlx"

	"github.com/R3E-Network/paneladmin/internal/app/metrics"
	"github.com/R3E-Network/paneladmin/internal/config"
	"github.com/R3E-Network/paneladmin/pkg/logger"
)

// Entry is an immediate child of a namespace.
type Entry struct {
	Name    string
	Package bool
}

// Namespace is a resolved package-like node.
type Namespace interface {
	// Path is the dotted logical path, e.g. "core.users.api".
	Path() string
	// Location is a filesystem-like location used in diagnostics.
	Location() string
	// Entries lists immediate children sorted by name.
	Entries() ([]Entry, error)
	// LoadUnit loads the unit entry called name.
	LoadUnit(name string) (*Unit, error)
}

// Resolver resolves dotted paths. Resolve returns an error matching
// ErrNamespaceNotFound when path is not a package.
type Resolver interface {
	Resolve(path string) (Namespace, error)
}

// Deps are the shared collaborators handed to units while they load.
type Deps struct {
	Config  *config.Config
	Log     *logger.Logger
	DB      *sqlx.DB
	Metrics *metrics.Metrics
	Status  *Status
}

func (d Deps) logger() *logger.Logger {
	if d.Log == nil {
		return logger.Discard()
	}
	return d.Log
}
