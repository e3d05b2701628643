package middleware

import (
	httpmw "github.com/R3E-Network/paneladmin/internal/middleware"
	"github.com/R3E-Network/paneladmin/internal/plugin"
	"github.com/R3E-Network/paneladmin/pkg/logger"
)

func init() {
	plugin.Register("core.system.middleware.accesslog", func(deps plugin.Deps) (*plugin.Unit, error) {
		log := deps.Log
		if log == nil {
			log = logger.Discard()
		}
		return &plugin.Unit{
			Priority: plugin.Int(20),
			Members: []plugin.Member{
				{Name: "AccessLog", Value: httpmw.NewAccessLogMiddleware(log)},
			},
		}, nil
	})
}
