package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderjulianmartinez/schema-inspect/internal/connect"
	"github.com/alexanderjulianmartinez/schema-inspect/internal/report"
	"github.com/alexanderjulianmartinez/schema-inspect/internal/source"
	"github.com/alexanderjulianmartinez/schema-inspect/pkg/types"
)

func newColumnsCmd(a *app) *cobra.Command {
	var (
		parallel int
		strict   bool
	)

	cmd := &cobra.Command{
		Use:   "columns TABLE [TABLE...]",
		Short: "Describe the columns of one or more tables",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()

			db, insp, err := connect.Open(ctx, a.cfg.Source, a.log)
			if err != nil {
				return err
			}
			defer db.Close()

			if len(args) == 1 {
				rep, err := source.Describe(ctx, insp, db, a.target(args[0], types.KindColumns))
				if err != nil {
					return err
				}
				return report.WriteReport(a.stdout, a.format, rep)
			}

			var batch *source.Batch
			if parallel > 1 {
				batch, err = source.DescribeColumnsParallel(ctx, insp, db, a.cfg.Source.Schema, args, parallel)
			} else {
				batch, err = source.DescribeColumnsMulti(ctx, insp, db, a.cfg.Source.Schema, args)
			}
			if err != nil {
				return err
			}

			for _, e := range batch.Entries() {
				if e.Err != nil {
					a.log.Warn().Err(e.Err).Str("table", e.Table).Msg("describe columns failed")
				}
			}
			if err := report.WriteBatch(a.stdout, a.format, batch); err != nil {
				return err
			}
			if strict && batch.Failed() > 0 {
				return fmt.Errorf("%d of %d tables failed", batch.Failed(), batch.Len())
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&parallel, "parallel", 1, "number of tables to inspect concurrently, each on its own connection")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit non-zero when any table in the batch fails")
	return cmd
}

func newChecksCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "checks TABLE",
		Short: "Describe the check constraints of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()

			db, insp, err := connect.Open(ctx, a.cfg.Source, a.log)
			if err != nil {
				return err
			}
			defer db.Close()

			rep, err := source.Describe(ctx, insp, db, a.target(args[0], types.KindCheckConstraints))
			if err != nil {
				return err
			}
			return report.WriteReport(a.stdout, a.format, rep)
		},
	}
}

func newTablesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables and views of a schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()

			db, insp, err := connect.Open(ctx, a.cfg.Source, a.log)
			if err != nil {
				return err
			}
			defer db.Close()

			rels, err := insp.ListRelations(ctx, db, a.cfg.Source.Schema)
			if err != nil {
				return err
			}
			return report.WriteRelations(a.stdout, a.format, a.cfg.Source.Schema, rels)
		},
	}
}
