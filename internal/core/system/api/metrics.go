package api

import (
	"net/http"

	"github.com/R3E-Network/paneladmin/internal/plugin"
	"github.com/R3E-Network/paneladmin/internal/routes"
)

func init() {
	plugin.Register("core.system.api.metrics", func(deps plugin.Deps) (*plugin.Unit, error) {
		if deps.Metrics == nil {
			return &plugin.Unit{Enabled: plugin.Bool(false)}, nil
		}
		reg := routes.New("", "system").
			Handle(http.MethodGet, "/metrics", "Prometheus metrics", deps.Metrics.Handler())
		return &plugin.Unit{
			Members: []plugin.Member{{Name: plugin.DefaultRouterName, Value: reg}},
		}, nil
	})
}
