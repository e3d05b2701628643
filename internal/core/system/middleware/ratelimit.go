package middleware

import (
	"fmt"

	httpmw "github.com/R3E-Network/paneladmin/internal/middleware"
	"github.com/R3E-Network/paneladmin/internal/plugin"
)

func init() {
	plugin.Register("core.system.middleware.ratelimit", func(deps plugin.Deps) (*plugin.Unit, error) {
		if deps.Config == nil || deps.Config.RateLimit.RequestsPerSecond <= 0 {
			return &plugin.Unit{Enabled: plugin.Bool(false)}, nil
		}
		rl := deps.Config.RateLimit
		return &plugin.Unit{
			Priority: plugin.Int(40),
			Config: map[string]any{
				"requests_per_second": rl.RequestsPerSecond,
				"burst":               rl.Burst,
			},
			Members: []plugin.Member{
				{Name: "RateLimiter", Value: httpmw.NewRateLimiter(rl.RequestsPerSecond, rl.Burst, deps.Log)},
			},
		}, nil
	})

	plugin.RegisterFactory("ratelimit", func(cfg map[string]any, deps plugin.Deps) (any, error) {
		rps, err := number(cfg, "requests_per_second")
		if err != nil {
			return nil, err
		}
		if rps <= 0 {
			return nil, fmt.Errorf("requests_per_second must be positive")
		}
		burst, err := number(cfg, "burst")
		if err != nil {
			return nil, err
		}
		return httpmw.NewRateLimiter(rps, int(burst), deps.Log), nil
	})
}

// number reads an optional numeric config key; missing keys are zero.
func number(cfg map[string]any, key string) (float64, error) {
	v, ok := cfg[key]
	if !ok || v == nil {
		return 0, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("%s must be a number, got %T", key, v)
	}
}
