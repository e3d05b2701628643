// Package app composes the service: configuration, logging, the PostgreSQL
// pool and its migrations, capability discovery and the HTTP server.
//
// # Startup
//
//	cfg, _ := config.Load("")
//	log := logger.New(...)
//	application, err := app.New(ctx, cfg, log)
//	...
//	err = application.Run(ctx)
//
// New opens the database and applies pending migrations when
// database.auto_migrate is set. It then installs CORS as the outermost
// middleware and lets the plugin engine scan every configured base
// namespace. Units come from the compiled-in catalog (populated by importing
// internal/core) and from HCL manifests under discovery.plugin_dir.
//
// Discovery never fails startup. Broken units are logged, counted in the
// summary and exported as paneladmin_discovery_capabilities.
//
// Business logic does not belong here; it lives in the business modules
// under internal/core.
package app
