package middleware

import (
	httpmw "github.com/R3E-Network/paneladmin/internal/middleware"
	"github.com/R3E-Network/paneladmin/internal/plugin"
)

func init() {
	plugin.Register("core.system.middleware.requestid", func(plugin.Deps) (*plugin.Unit, error) {
		return &plugin.Unit{
			Priority: plugin.Int(10),
			Members: []plugin.Member{
				{Name: "RequestID", Value: httpmw.Func(httpmw.RequestID)},
			},
		}, nil
	})
}
