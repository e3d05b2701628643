package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/R3E-Network/paneladmin/internal/app/metrics"
	"github.com/R3E-Network/paneladmin/internal/config"
	"github.com/R3E-Network/paneladmin/internal/plugin"
	"github.com/R3E-Network/paneladmin/internal/server"
)

func serve(t *testing.T, h *HealthHandler, path string) *httptest.ResponseRecorder {
	t.Helper()
	srv := server.New(nil)
	require.NoError(t, srv.AttachRoutes(h.Router(), "/api"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func mockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestHealthWithoutDatabase(t *testing.T) {
	h := &HealthHandler{app: config.Default().App}
	rec := serve(t, h, "/api/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, "healthy", gjson.Get(body, "status").String())
	assert.False(t, gjson.Get(body, "checks").Exists())
}

func TestHealthDatabase(t *testing.T) {
	db, mock := mockDB(t)
	mock.ExpectPing()
	rec := serve(t, &HealthHandler{db: db}, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", gjson.Get(rec.Body.String(), "checks.database").String())

	db, mock = mockDB(t)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	rec = serve(t, &HealthHandler{db: db}, "/api/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "unhealthy", gjson.Get(rec.Body.String(), "status").String())
	assert.Equal(t, "unreachable", gjson.Get(rec.Body.String(), "checks.database").String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInfo(t *testing.T) {
	status := &plugin.Status{}
	status.Set(plugin.Summary{Discovered: 4, Registered: 3, Disabled: 1})

	h := &HealthHandler{
		app:     config.AppConfig{Name: "panel", Version: "1.2.3", Environment: "test"},
		status:  status,
		started: time.Now().Add(-time.Minute),
		hostInfo: func(context.Context) (*host.InfoStat, error) {
			return &host.InfoStat{Hostname: "box", OS: "linux", KernelArch: "x86_64", Uptime: 42}, nil
		},
	}
	rec := serve(t, h, "/api/info")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Equal(t, "panel", gjson.Get(body, "service").String())
	assert.Equal(t, "box", gjson.Get(body, "host.hostname").String())
	assert.Equal(t, "x86_64", gjson.Get(body, "host.arch").String())
	assert.Equal(t, int64(3), gjson.Get(body, "discovery.registered").Int())
	assert.Equal(t, int64(1), gjson.Get(body, "discovery.disabled").Int())
}

func TestInfoWithoutHostOrStatus(t *testing.T) {
	h := &HealthHandler{
		hostInfo: func(context.Context) (*host.InfoStat, error) { return nil, errors.New("unsupported") },
	}
	rec := serve(t, h, "/api/info")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, gjson.Get(rec.Body.String(), "host").Exists())
	assert.False(t, gjson.Get(rec.Body.String(), "discovery").Exists())
}

func TestSystemRoutersDiscovered(t *testing.T) {
	engine := &plugin.Engine{
		Resolver:  plugin.DefaultCatalog.Resolver(plugin.Deps{Metrics: metrics.New()}),
		Bases:     []string{"core"},
		APIPrefix: "/api",
	}
	srv := server.New(nil)
	sum := engine.Bootstrap(srv, nil)
	assert.Equal(t, 2, sum.Registered)
	assert.Zero(t, sum.Failed)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "paneladmin_http_inflight_requests")
}

func TestMetricsUnitDisabledWithoutCollectors(t *testing.T) {
	engine := &plugin.Engine{
		Resolver: plugin.DefaultCatalog.Resolver(plugin.Deps{}),
		Bases:    []string{"core"},
	}
	records, sum := engine.Discover()
	assert.Equal(t, 1, sum.Disabled)
	require.Len(t, records, 1)
	assert.Equal(t, "health", records[0].Source)
}
