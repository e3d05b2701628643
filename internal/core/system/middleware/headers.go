package middleware

import (
	"fmt"

	httpmw "github.com/R3E-Network/paneladmin/internal/middleware"
	"github.com/R3E-Network/paneladmin/internal/plugin"
)

func init() {
	plugin.RegisterFactory("static_headers", func(cfg map[string]any, _ plugin.Deps) (any, error) {
		raw, ok := cfg["headers"].(map[string]any)
		if !ok || len(raw) == 0 {
			return nil, fmt.Errorf("config.headers must be a non-empty object")
		}
		headers := make(map[string]string, len(raw))
		for k, v := range raw {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("config.headers.%s must be a string", k)
			}
			headers[k] = s
		}
		return httpmw.NewStaticHeaders(headers), nil
	})
}
