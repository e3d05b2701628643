package plugin

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/R3E-Network/paneladmin/pkg/logger"
)

// DefaultMaxDepth bounds recursion below a kind namespace.
const DefaultMaxDepth = 8

// ignoredPackages are build and tooling directories never treated as modules.
var ignoredPackages = map[string]bool{
	"testdata":     true,
	"vendor":       true,
	"bin":          true,
	"dist":         true,
	"build":        true,
	"node_modules": true,
	"__pycache__":  true,
}

// Ignored reports whether a package name is reserved or a build artifact.
func Ignored(name string) bool {
	return name == "" ||
		strings.HasPrefix(name, "_") ||
		strings.HasPrefix(name, ".") ||
		ignoredPackages[name]
}

// Locator finds the kind namespaces of the business modules under a base.
type Locator struct {
	Resolver Resolver
	MaxDepth int
	Log      *logger.Logger
}

// Locate enumerates the business modules of base and returns, for each one
// that has a kind sub-namespace, that namespace followed depth-first by its
// nested packages. Modules and packages are visited in lexicographic order.
// A missing base is reported as an error matching ErrNamespaceNotFound.
func (l *Locator) Locate(base, kind string) ([]Located, error) {
	baseNS, err := l.Resolver.Resolve(base)
	if err != nil {
		return nil, err
	}
	entries, err := baseNS.Entries()
	if err != nil {
		return nil, &NamespaceError{Path: base, Err: err}
	}

	var out []Located
	for _, entry := range entries {
		if !entry.Package || Ignored(entry.Name) {
			continue
		}
		module := BusinessModule{Name: entry.Name, Path: base + "." + entry.Name}

		kindNS, err := l.Resolver.Resolve(module.Path + "." + kind)
		if err != nil {
			if !isNotFound(err) {
				l.log().WithFields(logrus.Fields{
					"namespace": module.Path + "." + kind,
					"module":    module.Name,
					"error":     err,
				}).Warn("skipping module namespace")
			}
			continue
		}
		out = l.walk(out, module, kindNS, "", 0)
	}
	return out, nil
}

func (l *Locator) walk(out []Located, module BusinessModule, ns Namespace, prefix string, depth int) []Located {
	out = append(out, Located{Module: module, Namespace: ns, Prefix: prefix})

	maxDepth := l.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	entries, err := ns.Entries()
	if err != nil {
		l.log().WithFields(logrus.Fields{
			"namespace": ns.Path(),
			"module":    module.Name,
			"error":     err,
		}).Warn("cannot list namespace")
		return out
	}
	for _, entry := range entries {
		if !entry.Package || Ignored(entry.Name) {
			continue
		}
		childPath := ns.Path() + "." + entry.Name
		if depth+1 > maxDepth {
			l.log().WithFields(logrus.Fields{
				"namespace": childPath,
				"module":    module.Name,
				"max_depth": maxDepth,
			}).Warn("namespace nested too deeply, not scanned")
			continue
		}
		child, err := l.Resolver.Resolve(childPath)
		if err != nil {
			l.log().WithFields(logrus.Fields{
				"namespace": childPath,
				"module":    module.Name,
				"error":     err,
			}).Warn("cannot resolve nested namespace")
			continue
		}
		childPrefix := entry.Name
		if prefix != "" {
			childPrefix = prefix + "." + entry.Name
		}
		out = l.walk(out, module, child, childPrefix, depth+1)
	}
	return out
}

func (l *Locator) log() *logger.Logger {
	if l.Log == nil {
		return logger.Discard()
	}
	return l.Log
}
