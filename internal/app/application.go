package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/R3E-Network/paneladmin/internal/app/metrics"
	"github.com/R3E-Network/paneladmin/internal/config"
	"github.com/R3E-Network/paneladmin/internal/database"
	"github.com/R3E-Network/paneladmin/internal/database/migrations"
	"github.com/R3E-Network/paneladmin/internal/middleware"
	"github.com/R3E-Network/paneladmin/internal/plugin"
	"github.com/R3E-Network/paneladmin/internal/server"
	"github.com/R3E-Network/paneladmin/pkg/logger"
)

// ResolverFunc builds the discovery resolver once the shared deps exist.
type ResolverFunc func(cfg *config.Config, deps plugin.Deps) plugin.Resolver

type options struct {
	db       *sqlx.DB
	noDB     bool
	resolver ResolverFunc
}

// Option customises New.
type Option func(*options)

// WithDB uses db instead of opening one from the configuration. The caller
// keeps ownership and migrations are not run.
func WithDB(db *sqlx.DB) Option {
	return func(o *options) { o.db = db }
}

// WithoutDatabase starts without a database. Handlers that need one answer
// 503.
func WithoutDatabase() Option {
	return func(o *options) { o.noDB = true }
}

// WithResolver replaces DefaultResolver.
func WithResolver(fn ResolverFunc) Option {
	return func(o *options) { o.resolver = fn }
}

// DefaultResolver looks units up in the compiled-in catalog first and then in
// the plugin directory.
func DefaultResolver(cfg *config.Config, deps plugin.Deps) plugin.Resolver {
	return plugin.Chain{
		plugin.DefaultCatalog.Resolver(deps),
		plugin.NewDir(cfg.Discovery.PluginDir, deps),
	}
}

// NewEngine returns a discovery engine configured from cfg.
func NewEngine(cfg *config.Config, resolver plugin.Resolver, log *logger.Logger) *plugin.Engine {
	return &plugin.Engine{
		Resolver:       resolver,
		Bases:          cfg.Discovery.Bases,
		RouterKind:     cfg.Discovery.RouterKind,
		MiddlewareKind: cfg.Discovery.MiddlewareKind,
		RouterName:     cfg.Discovery.RouterName,
		APIPrefix:      cfg.Server.APIPrefix,
		MaxDepth:       cfg.Discovery.MaxDepth,
		Log:            log,
	}
}

// CORS builds the cross-origin middleware from cfg.
func CORS(cfg config.CORSConfig) middleware.Middleware {
	return middleware.NewCORSMiddleware(middleware.CORSOptions{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     cfg.AllowMethods,
		AllowHeaders:     cfg.AllowHeaders,
		ExposeHeaders:    cfg.ExposeHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})
}

// Application wires the database, the discovered capabilities and the HTTP
// server, and manages their lifecycle.
type Application struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *sqlx.DB
	ownsDB  bool
	metrics *metrics.Metrics
	status  *plugin.Status
	server  *server.Server
	http    *http.Server
	summary plugin.Summary
}

// New builds the application: it connects and migrates the database, then
// discovers and registers every capability. Discovery problems are logged and
// never fail startup; database problems do.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts ...Option) (*Application, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	if log == nil {
		log = logger.Discard()
	}
	o := options{resolver: DefaultResolver}
	for _, opt := range opts {
		opt(&o)
	}

	a := &Application{
		cfg:     cfg,
		log:     log,
		db:      o.db,
		metrics: metrics.New(),
		status:  &plugin.Status{},
	}

	if a.db == nil && !o.noDB {
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.db, a.ownsDB = db, true

		if cfg.Database.AutoMigrate {
			if err := migrations.New(cfg.Database.DataSourceName(), log).Up(); err != nil {
				db.Close()
				return nil, fmt.Errorf("migrate database: %w", err)
			}
		}
	}

	deps := plugin.Deps{
		Config:  cfg,
		Log:     log,
		DB:      a.db,
		Metrics: a.metrics,
		Status:  a.status,
	}
	if root, err := filepath.Abs(cfg.Discovery.PluginDir); err == nil {
		log.WithField("plugin_dir", root).Info("plugin directory")
	}
	engine := NewEngine(cfg, o.resolver(cfg, deps), log)
	engine.Recorder = a.metrics
	engine.Status = a.status

	a.server = server.New(log)
	a.summary = engine.Bootstrap(a.server, CORS(cfg.CORS))

	a.http = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      a.server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
		IdleTimeout:  cfg.Server.IdleTimeoutDuration(),
	}
	return a, nil
}

// Handler returns the sealed HTTP handler.
func (a *Application) Handler() http.Handler { return a.http.Handler }

// Summary reports the outcome of capability discovery.
func (a *Application) Summary() plugin.Summary { return a.summary }

// Routes lists the attached routes as "METHOD /path".
func (a *Application) Routes() []string { return a.server.Routes() }

// Middlewares lists the installed middleware names, outermost first.
func (a *Application) Middlewares() []string { return a.server.Middlewares() }

// Run listens on the configured address and serves until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.http.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.http.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", ln.Addr())
		if err := a.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()
	if err := a.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Shutdown stops the HTTP server and closes the database if New opened it.
func (a *Application) Shutdown(ctx context.Context) error {
	err := a.http.Shutdown(ctx)
	if a.ownsDB && a.db != nil {
		if cerr := a.db.Close(); cerr != nil {
			a.log.WithError(cerr).Warn("error closing database connection")
		}
		a.db = nil
	}
	return err
}

func (a *Application) shutdownTimeout() time.Duration {
	if d := a.cfg.Server.ShutdownTimeoutDuration(); d > 0 {
		return d
	}
	return 10 * time.Second
}
