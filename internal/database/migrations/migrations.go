// Package migrations applies the embedded SQL schema migrations with
// golang-migrate.
package migrations

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // postgres:// URLs
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"

	"github.com/R3E-Network/paneladmin/pkg/logger"
)

//go:embed sql/*.sql
var files embed.FS

// Source returns the embedded migration source.
func Source() (source.Driver, error) {
	return iofs.New(files, "sql")
}

// Runner applies migrations to the database at DSN.
type Runner struct {
	DSN string
	Log *logger.Logger
}

// New creates a runner. log may be nil.
func New(dsn string, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Discard()
	}
	return &Runner{DSN: dsn, Log: log}
}

// Up applies all pending migrations. An up-to-date schema is not an error.
func (r *Runner) Up() error {
	return r.run("up", func(m *migrate.Migrate) error { return m.Up() })
}

// Down rolls back the most recent migration.
func (r *Runner) Down() error {
	return r.run("down", func(m *migrate.Migrate) error { return m.Steps(-1) })
}

// Version reports the applied version. A fresh database reports 0.
func (r *Runner) Version() (version uint, dirty bool, err error) {
	err = r.with(func(m *migrate.Migrate) error {
		version, dirty, err = m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			version, dirty, err = 0, false, nil
		}
		return err
	})
	return version, dirty, err
}

func (r *Runner) run(direction string, fn func(*migrate.Migrate) error) error {
	err := r.with(fn)
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		r.Log.WithField("direction", direction).Info("schema already up to date")
		return nil
	case err != nil:
		return fmt.Errorf("migrate %s: %w", direction, err)
	}
	r.Log.WithField("direction", direction).Info("schema migrations applied")
	return nil
}

func (r *Runner) with(fn func(*migrate.Migrate) error) error {
	src, err := Source()
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, r.DSN)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer m.Close()
	m.Log = migrateLogger{log: r.Log}

	return fn(m)
}

// migrateLogger adapts the service logger to migrate.Logger.
type migrateLogger struct {
	log *logger.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.log.Debugf(strings.TrimRight(format, "\n"), v...)
}

func (l migrateLogger) Verbose() bool {
	return l.log.IsLevelEnabled(logrus.DebugLevel)
}
