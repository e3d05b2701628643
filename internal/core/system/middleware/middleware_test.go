package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/paneladmin/internal/app/metrics"
	"github.com/R3E-Network/paneladmin/internal/config"
	httpmw "github.com/R3E-Network/paneladmin/internal/middleware"
	"github.com/R3E-Network/paneladmin/internal/plugin"
	"github.com/R3E-Network/paneladmin/internal/routes"
	"github.com/R3E-Network/paneladmin/internal/server"
)

func discover(t *testing.T, deps plugin.Deps) []plugin.Record {
	t.Helper()
	engine := &plugin.Engine{
		Resolver: plugin.DefaultCatalog.Resolver(deps),
		Bases:    []string{"core"},
	}
	records, sum := engine.Discover()
	require.Zero(t, sum.Failed)
	return plugin.Plan(records)
}

func sources(records []plugin.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Source)
	}
	return out
}

func TestSystemMiddlewareOrder(t *testing.T) {
	cfg := config.Default()
	cfg.Server.TrustProxyHeaders = true
	cfg.RateLimit.RequestsPerSecond = 50
	cfg.RateLimit.Burst = 10

	records := discover(t, plugin.Deps{Config: cfg, Metrics: metrics.New()})
	assert.Equal(t, []string{"realip", "requestid", "accesslog", "metrics", "ratelimit"}, sources(records))

	kinds := map[string]plugin.Kind{}
	for _, r := range records {
		assert.Equal(t, "system", r.Module)
		kinds[r.Source] = r.Kind
	}
	assert.Equal(t, plugin.KindMiddlewareFunction, kinds["realip"])
	assert.Equal(t, plugin.KindMiddlewareFunction, kinds["requestid"])
	assert.Equal(t, plugin.KindMiddlewareClass, kinds["accesslog"])
	assert.Equal(t, plugin.KindMiddlewareClass, kinds["ratelimit"])
}

func TestOptionalUnitsDisabled(t *testing.T) {
	engine := &plugin.Engine{
		Resolver: plugin.DefaultCatalog.Resolver(plugin.Deps{Config: config.Default()}),
		Bases:    []string{"core"},
	}
	records, sum := engine.Discover()
	assert.Equal(t, 3, sum.Disabled)
	assert.Equal(t, []string{"requestid", "accesslog"}, sources(plugin.Plan(records)))
}

func TestRegisteredChainServes(t *testing.T) {
	cfg := config.Default()
	cfg.Server.TrustProxyHeaders = true
	m := metrics.New()
	records := discover(t, plugin.Deps{Config: cfg, Metrics: m})

	srv := server.New(nil)
	ping := routes.New("", "test").Get("/ping", "echo the client address", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.RemoteAddr))
	})
	require.NoError(t, srv.AttachRoutes(ping, "/api"))
	sum := plugin.RegisterAll(records, srv, "/api", nil)
	require.Equal(t, len(records), sum.Registered)

	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("X-Real-IP", "203.0.113.7")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "203.0.113.7", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(httpmw.TraceHeader))
}

func limitedChain(t *testing.T, trustProxy bool) http.Handler {
	t.Helper()
	cfg := config.Default()
	cfg.Server.TrustProxyHeaders = trustProxy
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 1

	srv := server.New(nil)
	ping := routes.New("", "test").Get("/ping", "ping", func(w http.ResponseWriter, r *http.Request) {})
	require.NoError(t, srv.AttachRoutes(ping, "/api"))
	plugin.RegisterAll(discover(t, plugin.Deps{Config: cfg}), srv, "/api", nil)
	return srv.Handler()
}

func countAllowed(h http.Handler, n int) int {
	allowed := 0
	for i := 0; i < n; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
		req.RemoteAddr = "198.51.100.20:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.%d.%d", i/250, i%250+1))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			allowed++
		}
	}
	return allowed
}

func TestForwardedHeadersIgnoredByDefault(t *testing.T) {
	assert.Equal(t, 1, countAllowed(limitedChain(t, false), 20))
}

func TestForwardedHeadersTrustedWhenConfigured(t *testing.T) {
	assert.Equal(t, 20, countAllowed(limitedChain(t, true), 20))
}

func TestRateLimitFactory(t *testing.T) {
	f, ok := plugin.DefaultFactories.Get("ratelimit")
	require.True(t, ok)

	v, err := f(map[string]any{"requests_per_second": 5.0, "burst": 2.0}, plugin.Deps{})
	require.NoError(t, err)
	_, isMW := v.(httpmw.Middleware)
	assert.True(t, isMW)

	_, err = f(map[string]any{}, plugin.Deps{})
	assert.Error(t, err)
	_, err = f(map[string]any{"requests_per_second": "fast"}, plugin.Deps{})
	assert.Error(t, err)
}

func TestStaticHeadersFactory(t *testing.T) {
	f, ok := plugin.DefaultFactories.Get("static_headers")
	require.True(t, ok)

	v, err := f(map[string]any{"headers": map[string]any{"x-powered-by": "paneladmin"}}, plugin.Deps{})
	require.NoError(t, err)
	mw, ok := v.(httpmw.Middleware)
	require.True(t, ok)

	rec := httptest.NewRecorder()
	mw.Middleware(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "paneladmin", rec.Header().Get("X-Powered-By"))

	_, err = f(nil, plugin.Deps{})
	assert.Error(t, err)
	_, err = f(map[string]any{"headers": map[string]any{"x": 1.0}}, plugin.Deps{})
	assert.Error(t, err)
}
