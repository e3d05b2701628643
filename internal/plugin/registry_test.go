package plugin

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogRegisterAndList(t *testing.T) {
	c := NewCatalog()
	c.Register("core.users.api.v1.users", routerUnit("/v1/users"))
	c.Register("core.users.middleware.auth", unitOf(nil))

	assert.Equal(t, []string{"core.users.api.v1.users", "core.users.middleware.auth"}, c.List())
	assert.Equal(t, 2, c.Count())

	assert.Panics(t, func() { c.Register("core.users.middleware.auth", unitOf(nil)) })
	assert.Panics(t, func() { c.Register("core.users.api.v1", unitOf(nil)) })
	assert.Panics(t, func() { c.Register("core..x", unitOf(nil)) })
	assert.Panics(t, func() { c.Register("core.x", nil) })
}

func TestCatalogResolveAndEntries(t *testing.T) {
	c := NewCatalog()
	c.Register("core.users.api.v1.users", routerUnit("/v1/users"))
	c.Register("core.users.api.ping", routerUnit("/ping"))
	r := c.Resolver(Deps{})

	ns, err := r.Resolve("core.users.api")
	require.NoError(t, err)
	assert.Equal(t, "core.users.api", ns.Path())
	assert.Equal(t, "catalog:core/users/api", ns.Location())

	entries, err := ns.Entries()
	require.NoError(t, err)
	assert.Equal(t, []Entry{{Name: "ping"}, {Name: "v1", Package: true}}, entries)

	_, err = r.Resolve("core.users.api.ping")
	assert.ErrorIs(t, err, ErrNamespaceNotFound, "units are not packages")
	_, err = r.Resolve("core.dept")
	assert.ErrorIs(t, err, ErrNamespaceNotFound)
}

func TestCatalogLoadUnitFailures(t *testing.T) {
	c := NewCatalog()
	c.Register("core.x.middleware.err", func(Deps) (*Unit, error) { return nil, errors.New("no db") })
	c.Register("core.x.middleware.panic", func(Deps) (*Unit, error) { panic("bad init") })
	c.Register("core.x.middleware.ok", unitOf(nil))

	ns, err := c.Resolver(Deps{}).Resolve("core.x.middleware")
	require.NoError(t, err)

	var loadErr *LoadError
	_, err = ns.LoadUnit("err")
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, "err", loadErr.Unit)
	assert.Contains(t, err.Error(), "no db")

	_, err = ns.LoadUnit("panic")
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, err.Error(), "bad init")

	unit, err := ns.LoadUnit("ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", unit.Name)
}

func TestChainResolver(t *testing.T) {
	a := NewCatalog()
	a.Register("core.users.api.u", routerUnit("/u"))
	b := NewCatalog()
	b.Register("plugins.branding.middleware.p", unitOf(nil))

	chain := Chain{a.Resolver(Deps{}), b.Resolver(Deps{})}
	ns, err := chain.Resolve("plugins.branding")
	require.NoError(t, err)
	assert.Equal(t, "plugins.branding", ns.Path())

	_, err = chain.Resolve("nowhere")
	var nsErr *NamespaceError
	require.ErrorAs(t, err, &nsErr)
	assert.Equal(t, "nowhere", nsErr.Path)
	assert.ErrorIs(t, err, ErrNamespaceNotFound)
}
