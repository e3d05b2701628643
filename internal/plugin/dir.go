package plugin

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ManifestExt is the file extension of unit manifests.
const ManifestExt = ".hcl"

// Reserved manifest attributes. Every other attribute is a member binding
// whose string value names a factory.
const (
	attrEnabled  = "enabled"
	attrPriority = "priority"
	attrConfig   = "config"
)

// Dir resolves namespaces to directories below Root. Directories are packages
// and *.hcl manifests are units.
type Dir struct {
	Root      string
	Deps      Deps
	Factories *Factories
}

// NewDir creates a directory resolver using DefaultFactories.
func NewDir(root string, deps Deps) *Dir {
	return &Dir{Root: root, Deps: deps, Factories: DefaultFactories}
}

func (d *Dir) Resolve(nsPath string) (Namespace, error) {
	if !validPath(nsPath) {
		return nil, notFound(nsPath)
	}
	root := d.Root
	if root == "" {
		root = "."
	}
	loc := filepath.Join(append([]string{root}, strings.Split(nsPath, ".")...)...)

	info, err := os.Stat(loc)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(nsPath)
		}
		return nil, &NamespaceError{Path: nsPath, Err: err}
	}
	if !info.IsDir() {
		return nil, notFound(nsPath)
	}
	return &dirNamespace{dir: d, path: nsPath, location: loc}, nil
}

type dirNamespace struct {
	dir      *Dir
	path     string
	location string
}

func (n *dirNamespace) Path() string { return n.path }

func (n *dirNamespace) Location() string { return n.location }

func (n *dirNamespace) Entries() ([]Entry, error) {
	items, err := os.ReadDir(n.location)
	if err != nil {
		return nil, &NamespaceError{Path: n.path, Err: err}
	}
	entries := make([]Entry, 0, len(items))
	for _, item := range items {
		name := item.Name()
		switch {
		case item.IsDir():
			if strings.Contains(name, ".") {
				continue
			}
			entries = append(entries, Entry{Name: name, Package: true})
		case strings.HasSuffix(name, ManifestExt):
			unit := strings.TrimSuffix(name, ManifestExt)
			if unit == "" || strings.Contains(unit, ".") {
				continue
			}
			entries = append(entries, Entry{Name: unit})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (n *dirNamespace) LoadUnit(name string) (*Unit, error) {
	unit, err := n.loadManifest(name)
	if err != nil {
		return nil, &LoadError{Namespace: n.path, Unit: name, Err: err}
	}
	return unit, nil
}

func (n *dirNamespace) loadManifest(name string) (*Unit, error) {
	filename := filepath.Join(n.location, name+ManifestExt)
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	attrs, diags := file.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}

	unit := &Unit{Name: name}
	var bindings []*hcl.Attribute
	for attrName, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, diags
		}
		switch attrName {
		case attrEnabled:
			var enabled bool
			if err := gocty.FromCtyValue(val, &enabled); err != nil {
				return nil, fmt.Errorf("%s: %w", attrName, err)
			}
			unit.Enabled = &enabled
		case attrPriority:
			var priority int
			if err := gocty.FromCtyValue(val, &priority); err != nil {
				return nil, fmt.Errorf("%s: %w", attrName, err)
			}
			unit.Priority = &priority
		case attrConfig:
			native, err := ctyToNative(val)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", attrName, err)
			}
			cfg, ok := native.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s: must be an object, got %s", attrName, val.Type().FriendlyName())
			}
			unit.Config = cfg
		default:
			bindings = append(bindings, attr)
		}
	}

	// a disabled unit builds no members, so its factories never run
	if !unit.IsEnabled() {
		return unit, nil
	}

	// members keep declaration order
	sort.Slice(bindings, func(i, j int) bool {
		return bindings[i].Range.Start.Byte < bindings[j].Range.Start.Byte
	})

	factories := n.dir.Factories
	if factories == nil {
		factories = DefaultFactories
	}
	for _, attr := range bindings {
		val, _ := attr.Expr.Value(nil)
		if val.Type() != cty.String || val.IsNull() {
			return nil, fmt.Errorf("binding %q must name a factory", attr.Name)
		}
		factoryName := val.AsString()
		factory, ok := factories.Get(factoryName)
		if !ok {
			return nil, fmt.Errorf("binding %q: unknown factory %q", attr.Name, factoryName)
		}
		value, err := factory(unit.Config, n.dir.Deps)
		if err != nil {
			return nil, fmt.Errorf("binding %q: factory %q: %w", attr.Name, factoryName, err)
		}
		unit.Members = append(unit.Members, Member{Name: attr.Name, Value: value})
	}
	return unit, nil
}

// ctyToNative converts a cty value into plain Go values: string, float64,
// bool, []any and map[string]any.
func ctyToNative(v cty.Value) (any, error) {
	if v.IsNull() || !v.IsKnown() {
		return nil, nil
	}

	ty := v.Type()
	switch {
	case ty == cty.String:
		return v.AsString(), nil
	case ty == cty.Number:
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, err
		}
		return f, nil
	case ty == cty.Bool:
		return v.True(), nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		out := make([]any, 0)
		it := v.ElementIterator()
		for it.Next() {
			_, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, native)
		}
		return out, nil
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]any)
		it := v.ElementIterator()
		for it.Next() {
			key, elem := it.Element()
			native, err := ctyToNative(elem)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key.AsString(), err)
			}
			out[key.AsString()] = native
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported value of type %s", ty.FriendlyName())
	}
}
