package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/R3E-Network/paneladmin/internal/app"
	"github.com/R3E-Network/paneladmin/internal/app/metrics"
	"github.com/R3E-Network/paneladmin/internal/config"
	_ "github.com/R3E-Network/paneladmin/internal/core"
	"github.com/R3E-Network/paneladmin/internal/database/migrations"
	"github.com/R3E-Network/paneladmin/internal/plugin"
	"github.com/R3E-Network/paneladmin/pkg/logger"
)

type globals struct {
	configFile string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "paneladmin",
		Short:         "Panel admin API server",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configFile, "config", "", "config file (default $"+config.EnvConfigFile+" or "+config.DefaultConfigFile+")")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")

	root.AddCommand(newServeCommand(g), newMigrateCommand(g), newCapabilitiesCommand(g))
	return root
}

// load reads the configuration and builds the logger it describes.
func (g *globals) load() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(g.configFile)
	if err != nil {
		return nil, nil, err
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	log := logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	})
	return cfg, log, nil
}

func newServeCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := g.load()
			if err != nil {
				return err
			}
			defer log.Close()

			ctx := cmd.Context()
			application, err := app.New(ctx, cfg, log)
			if err != nil {
				return err
			}
			log.WithField("routes", len(application.Routes())).
				WithField("middleware", strings.Join(application.Middlewares(), ",")).
				Infof("%s %s starting", cfg.App.Name, cfg.App.Version)
			return application.Run(ctx)
		},
	}
}

func newMigrateCommand(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	runner := func() (*migrations.Runner, func(), error) {
		cfg, log, err := g.load()
		if err != nil {
			return nil, nil, err
		}
		return migrations.New(cfg.Database.DataSourceName(), log), func() { log.Close() }, nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				r, done, err := runner()
				if err != nil {
					return err
				}
				defer done()
				return r.Up()
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				r, done, err := runner()
				if err != nil {
					return err
				}
				defer done()
				return r.Down()
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				r, done, err := runner()
				if err != nil {
					return err
				}
				defer done()
				v, dirty, err := r.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d dirty=%t\n", v, dirty)
				return nil
			},
		},
	)
	return cmd
}

// capabilityRow is one line of the capabilities listing.
type capabilityRow struct {
	Order    int    `json:"order" yaml:"order"`
	Kind     string `json:"kind" yaml:"kind"`
	Module   string `json:"module" yaml:"module"`
	Source   string `json:"source" yaml:"source"`
	Priority *int   `json:"priority,omitempty" yaml:"priority,omitempty"`
}

func newCapabilitiesCommand(g *globals) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "capabilities",
		Short: "List discovered routers and middleware in registration order",
		Long: `Scans the configured base namespaces without connecting to the database
and prints every enabled capability in the order the server would register it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := g.load()
			if err != nil {
				return err
			}
			defer log.Close()

			// no database: units see the same deps as a server started without one
			deps := plugin.Deps{Config: cfg, Log: log, Metrics: metrics.New(), Status: &plugin.Status{}}
			engine := app.NewEngine(cfg, app.DefaultResolver(cfg, deps), log)
			records, _ := engine.Discover()
			return writeCapabilities(cmd.OutOrStdout(), format, plugin.Plan(records))
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "table", "output format: table, json, yaml")
	return cmd
}

func writeCapabilities(w io.Writer, format string, records []plugin.Record) error {
	rows := make([]capabilityRow, 0, len(records))
	for i, rec := range records {
		row := capabilityRow{Order: i + 1, Kind: rec.Kind.String(), Module: rec.Module, Source: rec.Source}
		if rec.Kind.IsMiddleware() {
			p := rec.Priority
			row.Priority = &p
		}
		rows = append(rows, row)
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(rows)
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ORDER\tKIND\tMODULE\tSOURCE\tPRIORITY")
		for _, row := range rows {
			priority := "-"
			if row.Priority != nil {
				priority = fmt.Sprint(*row.Priority)
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", row.Order, row.Kind, row.Module, row.Source, priority)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
