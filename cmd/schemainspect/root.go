package main

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/alexanderjulianmartinez/schema-inspect/internal/config"
	"github.com/alexanderjulianmartinez/schema-inspect/internal/report"
	"github.com/alexanderjulianmartinez/schema-inspect/pkg/types"
)

// flagKeys maps persistent flags to the config keys they override.
var flagKeys = map[string]string{
	"driver":        "source.driver",
	"dsn":           "source.dsn",
	"schema":        "source.schema",
	"query-timeout": "source.query_timeout",
	"format":        "output.format",
	"log-level":     "log_level",
}

type app struct {
	cfg    *config.Config
	log    zerolog.Logger
	format report.Format
	stdout io.Writer
	stderr io.Writer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{log: zerolog.Nop(), stdout: stdout, stderr: stderr}

	cmd := &cobra.Command{
		Use:           "schemainspect",
		Short:         "Inspect table columns and check constraints in a database catalog.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.PersistentFlags()
	flags.String("config", "", "path to config.yaml")
	flags.String("driver", "", "database/sql driver (postgres, pgx, mysql, sqlite3)")
	flags.String("dsn", "", "connection string (or DATABASE_URL)")
	flags.String("schema", "", "schema to inspect (default: the connection's current schema)")
	flags.Duration("query-timeout", 0, "timeout per catalog query, 0 leaves it to the driver")
	flags.StringP("format", "o", "", "output format (text, table, json, yaml)")
	flags.String("log-level", "", "log level (trace, debug, info, warn, error)")

	cmd.AddCommand(
		newColumnsCmd(a),
		newChecksCmd(a),
		newTablesCmd(a),
		newDiffCmd(a),
	)
	return cmd
}

// setup loads the configuration and builds the logger. It runs inside each
// subcommand so that help and usage work without a connection string.
func (a *app) setup(cmd *cobra.Command) error {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}

	cfg, err := config.LoadConfig(path,
		config.NewDefaultEnvBinder(),
		config.NewFlagBinder(cmd.Flags(), flagKeys),
	)
	if err != nil {
		return err
	}

	format, err := report.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}

	a.cfg = cfg
	a.format = format
	a.log = zerolog.New(zerolog.ConsoleWriter{Out: a.stderr, NoColor: true}).
		Level(level).
		With().Timestamp().
		Logger()
	return nil
}

func (a *app) target(table string, kind types.Kind) types.TargetSpec {
	return types.TargetSpec{Schema: a.cfg.Source.Schema, Table: table, Kind: kind}
}
