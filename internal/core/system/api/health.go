// Package api exposes the operational endpoints: health, info and metrics.
package api

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shirou/gopsutil/v3/host"

	"github.com/R3E-Network/paneladmin/internal/config"
	"github.com/R3E-Network/paneladmin/internal/httputil"
	"github.com/R3E-Network/paneladmin/internal/plugin"
	"github.com/R3E-Network/paneladmin/internal/routes"
	"github.com/R3E-Network/paneladmin/pkg/logger"
)

const pingTimeout = 2 * time.Second

func init() {
	plugin.Register("core.system.api.health", func(deps plugin.Deps) (*plugin.Unit, error) {
		cfg := deps.Config
		if cfg == nil {
			cfg = config.Default()
		}
		h := &HealthHandler{
			app:     cfg.App,
			db:      deps.DB,
			status:  deps.Status,
			log:     deps.Log,
			started: time.Now(),
			hostInfo: func(ctx context.Context) (*host.InfoStat, error) {
				return host.InfoWithContext(ctx)
			},
		}
		return &plugin.Unit{
			Members: []plugin.Member{{Name: plugin.DefaultRouterName, Value: h.Router()}},
		}, nil
	})
}

// HealthResponse is the response for /health.
type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp string            `json:"timestamp"`
}

// InfoResponse is the response for /info.
type InfoResponse struct {
	Service     string          `json:"service"`
	Description string          `json:"description,omitempty"`
	Version     string          `json:"version"`
	Environment string          `json:"environment"`
	Uptime      string          `json:"uptime"`
	GoVersion   string          `json:"go_version"`
	Host        *HostInfo       `json:"host,omitempty"`
	Discovery   *plugin.Summary `json:"discovery,omitempty"`
	Timestamp   string          `json:"timestamp"`
}

// HostInfo is the subset of host facts reported by /info.
type HostInfo struct {
	Hostname        string `json:"hostname"`
	OS              string `json:"os"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platform_version"`
	KernelVersion   string `json:"kernel_version"`
	Arch            string `json:"arch"`
	UptimeSeconds   uint64 `json:"uptime_seconds"`
}

// HealthHandler serves /health and /info.
type HealthHandler struct {
	app      config.AppConfig
	db       *sqlx.DB
	status   *plugin.Status
	log      *logger.Logger
	started  time.Time
	hostInfo func(context.Context) (*host.InfoStat, error)
}

// Router returns the route registry mounted at the API root.
func (h *HealthHandler) Router() *routes.Registry {
	return routes.New("", "system").
		Get("/health", "Service health", h.health).
		Get("/info", "Service information", h.info)
}

func (h *HealthHandler) health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Service:   h.app.Name,
		Version:   h.app.Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()
		resp.Checks = map[string]string{"database": "ok"}
		if err := h.db.PingContext(ctx); err != nil {
			resp.Status = "unhealthy"
			resp.Checks["database"] = "unreachable"
			status = http.StatusServiceUnavailable
			if h.log != nil {
				h.log.WithTrace(r.Context()).WithError(err).Warn("database health check failed")
			}
		}
	}
	httputil.WriteJSON(w, status, resp)
}

func (h *HealthHandler) info(w http.ResponseWriter, r *http.Request) {
	resp := InfoResponse{
		Service:     h.app.Name,
		Description: h.app.Description,
		Version:     h.app.Version,
		Environment: h.app.Environment,
		Uptime:      time.Since(h.started).Round(time.Second).String(),
		GoVersion:   runtime.Version(),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}

	if h.hostInfo != nil {
		if hi, err := h.hostInfo(r.Context()); err == nil && hi != nil {
			resp.Host = &HostInfo{
				Hostname:        hi.Hostname,
				OS:              hi.OS,
				Platform:        hi.Platform,
				PlatformVersion: hi.PlatformVersion,
				KernelVersion:   hi.KernelVersion,
				Arch:            hi.KernelArch,
				UptimeSeconds:   hi.Uptime,
			}
		}
	}
	if h.status != nil {
		if sum, ok := h.status.Summary(); ok {
			resp.Discovery = &sum
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
