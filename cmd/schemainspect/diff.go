package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderjulianmartinez/schema-inspect/internal/connect"
	"github.com/alexanderjulianmartinez/schema-inspect/internal/drift"
	"github.com/alexanderjulianmartinez/schema-inspect/internal/report"
	"github.com/alexanderjulianmartinez/schema-inspect/internal/source"
	"github.com/alexanderjulianmartinez/schema-inspect/pkg/types"
)

var errDrift = errors.New("schema drift detected")

// side is one of the two databases a diff reads from.
type side struct {
	insp source.Inspector
	q    source.Querier
}

func newDiffCmd(a *app) *cobra.Command {
	var (
		againstDSN    string
		againstDriver string
		failOn        string
	)

	cmd := &cobra.Command{
		Use:   "diff TABLE",
		Short: "Compare a table's columns and check constraints with another database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold, err := drift.ParseSeverity(failOn)
			if err != nil {
				return err
			}
			if err := a.setup(cmd); err != nil {
				return err
			}
			ctx := cmd.Context()

			against := a.cfg.Source
			against.DSN = againstDSN
			if againstDriver != "" {
				against.Driver = againstDriver
			}
			if err := against.Validate(); err != nil {
				return fmt.Errorf("against: %w", err)
			}

			baseDB, baseInsp, err := connect.Open(ctx, a.cfg.Source, a.log.With().Str("side", "baseline").Logger())
			if err != nil {
				return err
			}
			defer baseDB.Close()

			curDB, curInsp, err := connect.Open(ctx, against, a.log.With().Str("side", "current").Logger())
			if err != nil {
				return err
			}
			defer curDB.Close()

			rep, err := diffTable(ctx, side{baseInsp, baseDB}, side{curInsp, curDB}, a.target(args[0], types.KindColumns))
			if err != nil {
				return err
			}
			if err := report.WriteDrift(a.stdout, a.format, rep); err != nil {
				return err
			}
			if top := rep.Max(); top.AtLeast(threshold) {
				return fmt.Errorf("%w: %s in %s", errDrift, top, rep.Table)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&againstDSN, "against-dsn", "", "connection string of the database to compare with")
	cmd.Flags().StringVar(&againstDriver, "against-driver", "", "driver of the database to compare with (default: --driver)")
	cmd.Flags().StringVar(&failOn, "fail-on", string(drift.SeverityBlock), "exit non-zero when a change of this severity or higher is found")
	_ = cmd.MarkFlagRequired("against-dsn")
	return cmd
}

// diffTable compares columns and check constraints of target between the two
// sides. A table missing on one side shows up as removed or added columns.
func diffTable(ctx context.Context, baseline, current side, target types.TargetSpec) (*drift.Report, error) {
	target.Kind = types.KindColumns
	if err := target.Validate(); err != nil {
		return nil, err
	}
	baseCols, err := baseline.insp.DescribeColumns(ctx, baseline.q, target)
	if err != nil {
		return nil, err
	}
	curCols, err := current.insp.DescribeColumns(ctx, current.q, target)
	if err != nil {
		return nil, err
	}
	rep, err := drift.Compare(baseCols, curCols)
	if err != nil {
		return nil, err
	}

	target.Kind = types.KindCheckConstraints
	baseChecks, err := checksOrEmpty(ctx, baseline, target)
	if err != nil {
		return nil, err
	}
	curChecks, err := checksOrEmpty(ctx, current, target)
	if err != nil {
		return nil, err
	}
	checks, err := drift.Compare(baseChecks, curChecks)
	if err != nil {
		return nil, err
	}
	rep.Merge(checks)
	return rep, nil
}

// checksOrEmpty treats a missing table or a view as having no constraints.
func checksOrEmpty(ctx context.Context, s side, target types.TargetSpec) (*types.InspectionReport, error) {
	rep, err := s.insp.DescribeCheckConstraints(ctx, s.q, target)
	if errors.Is(err, source.ErrUnknownRelation) || errors.Is(err, source.ErrNotTable) {
		return &types.InspectionReport{Target: target, Constraints: []types.ConstraintDescriptor{}}, nil
	}
	return rep, err
}
