package middleware

import (
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/R3E-Network/paneladmin/internal/plugin"
)

func init() {
	plugin.Register("core.system.middleware.realip", func(deps plugin.Deps) (*plugin.Unit, error) {
		trusted := deps.Config != nil && deps.Config.Server.TrustProxyHeaders
		return &plugin.Unit{
			Enabled:  plugin.Bool(trusted),
			Priority: plugin.Int(5),
			Members: []plugin.Member{
				{Name: plugin.MiddlewareExport, Value: chimw.RealIP},
			},
		}, nil
	})
}
