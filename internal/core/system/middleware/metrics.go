package middleware

import (
	httpmw "github.com/R3E-Network/paneladmin/internal/middleware"
	"github.com/R3E-Network/paneladmin/internal/plugin"
)

func init() {
	plugin.Register("core.system.middleware.metrics", func(deps plugin.Deps) (*plugin.Unit, error) {
		if deps.Metrics == nil {
			return &plugin.Unit{Enabled: plugin.Bool(false)}, nil
		}
		return &plugin.Unit{
			Priority: plugin.Int(30),
			Members: []plugin.Member{
				{Name: "Metrics", Value: httpmw.NewMetricsMiddleware(deps.Metrics)},
			},
		}, nil
	})
}
