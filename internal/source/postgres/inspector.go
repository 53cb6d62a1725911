package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alexanderjulianmartinez/schema-inspect/internal/source"
	"github.com/alexanderjulianmartinez/schema-inspect/pkg/types"
)

const Dialect = "postgres"

const (
	columnsQuery = `
		SELECT column_name, data_type, udt_name, ordinal_position
		FROM information_schema.columns
		WHERE table_schema = COALESCE(NULLIF($1, ''), current_schema())
		  AND table_name = $2
		ORDER BY ordinal_position`

	relationQuery = `
		SELECT c.relkind::text
		FROM pg_catalog.pg_class c
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = COALESCE(NULLIF($1, ''), current_schema())
		  AND c.relname = $2`

	// pg_get_constraintdef with pretty=true renders "CHECK (magnitude >= 0)"
	// instead of the doubly parenthesised form.
	checkConstraintsQuery = `
		SELECT con.conname::text, pg_catalog.pg_get_constraintdef(con.oid, true)
		FROM pg_catalog.pg_constraint con
		JOIN pg_catalog.pg_class c ON c.oid = con.conrelid
		JOIN pg_catalog.pg_namespace n ON n.oid = c.relnamespace
		WHERE n.nspname = COALESCE(NULLIF($1, ''), current_schema())
		  AND c.relname = $2
		  AND con.contype = 'c'`

	relationsQuery = `
		SELECT table_schema, table_name, table_type
		FROM information_schema.tables
		WHERE table_schema = COALESCE(NULLIF($1, ''), current_schema())
		ORDER BY table_name`
)

// relkinds that can own check constraints: ordinary, partitioned and foreign tables.
var tableRelkinds = map[string]bool{"r": true, "p": true, "f": true}

var relkindNames = map[string]string{
	"v": "view",
	"m": "materialized view",
	"S": "sequence",
	"i": "index",
	"I": "partitioned index",
	"c": "composite type",
	"t": "TOAST table",
}

type Inspector struct {
	log     zerolog.Logger
	timeout time.Duration
}

func NewInspector(log zerolog.Logger, timeout time.Duration) *Inspector {
	return &Inspector{
		log:     log.With().Str("dialect", Dialect).Logger(),
		timeout: timeout,
	}
}

func (i *Inspector) Dialect() string {
	return Dialect
}

func (i *Inspector) DescribeColumns(ctx context.Context, q source.Querier, target types.TargetSpec) (*types.InspectionReport, error) {
	ctx, cancel := source.WithTimeout(ctx, i.timeout)
	defer cancel()

	i.log.Debug().Str("op", "describe_columns").Str("table", target.QualifiedName()).Msg("querying catalog")

	rows, err := q.QueryContext(ctx, columnsQuery, target.Schema, target.Table)
	if err != nil {
		return nil, i.queryError("describe columns", target, err)
	}
	defer rows.Close()

	report := &types.InspectionReport{
		Target:  withKind(target, types.KindColumns),
		Columns: []types.ColumnDescriptor{},
	}
	for rows.Next() {
		var col types.ColumnDescriptor
		if err := rows.Scan(&col.Name, &col.DeclaredType, &col.UnderlyingType, &col.OrdinalPosition); err != nil {
			return nil, i.queryError("scan columns", target, err)
		}
		report.Columns = append(report.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, i.queryError("describe columns", target, err)
	}
	return report, nil
}

func (i *Inspector) DescribeCheckConstraints(ctx context.Context, q source.Querier, target types.TargetSpec) (*types.InspectionReport, error) {
	ctx, cancel := source.WithTimeout(ctx, i.timeout)
	defer cancel()

	i.log.Debug().Str("op", "describe_check_constraints").Str("table", target.QualifiedName()).Msg("querying catalog")

	if err := i.resolveTable(ctx, q, target); err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, checkConstraintsQuery, target.Schema, target.Table)
	if err != nil {
		return nil, i.queryError("describe check constraints", target, err)
	}
	defer rows.Close()

	report := &types.InspectionReport{
		Target:      withKind(target, types.KindCheckConstraints),
		Constraints: []types.ConstraintDescriptor{},
	}
	for rows.Next() {
		var c types.ConstraintDescriptor
		if err := rows.Scan(&c.Name, &c.Definition); err != nil {
			return nil, i.queryError("scan check constraints", target, err)
		}
		report.Constraints = append(report.Constraints, c)
	}
	if err := rows.Err(); err != nil {
		return nil, i.queryError("describe check constraints", target, err)
	}
	return report, nil
}

func (i *Inspector) resolveTable(ctx context.Context, q source.Querier, target types.TargetSpec) error {
	rows, err := q.QueryContext(ctx, relationQuery, target.Schema, target.Table)
	if err != nil {
		return i.queryError("resolve relation", target, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return i.queryError("resolve relation", target, err)
		}
		return source.UnknownRelation(target.QualifiedName())
	}
	var relkind string
	if err := rows.Scan(&relkind); err != nil {
		return i.queryError("resolve relation", target, err)
	}
	if !tableRelkinds[relkind] {
		name, ok := relkindNames[relkind]
		if !ok {
			name = "relation of kind " + relkind
		}
		return source.NotTable(target.QualifiedName(), name)
	}
	return nil
}

func (i *Inspector) ListRelations(ctx context.Context, q source.Querier, schema string) ([]types.RelationDescriptor, error) {
	ctx, cancel := source.WithTimeout(ctx, i.timeout)
	defer cancel()

	rows, err := q.QueryContext(ctx, relationsQuery, schema)
	if err != nil {
		return nil, i.queryError("list relations", types.TargetSpec{Schema: schema}, err)
	}
	defer rows.Close()

	rels := []types.RelationDescriptor{}
	for rows.Next() {
		var rel types.RelationDescriptor
		if err := rows.Scan(&rel.Schema, &rel.Name, &rel.Kind); err != nil {
			return nil, i.queryError("scan relations", types.TargetSpec{Schema: schema}, err)
		}
		rel.Kind = relationKind(rel.Kind)
		rels = append(rels, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, i.queryError("list relations", types.TargetSpec{Schema: schema}, err)
	}
	return rels, nil
}

func (i *Inspector) queryError(op string, target types.TargetSpec, err error) error {
	qerr := &source.QueryError{Dialect: Dialect, Op: op, Table: target.QualifiedName(), Err: err}
	if isConnectionError(err) {
		return fmt.Errorf("%w: %w", source.ErrConnection, qerr)
	}
	return qerr
}

// relationKind maps information_schema table_type values to short names.
func relationKind(tableType string) string {
	switch tableType {
	case "BASE TABLE":
		return "table"
	case "VIEW":
		return "view"
	case "FOREIGN":
		return "foreign table"
	case "LOCAL TEMPORARY":
		return "temporary table"
	default:
		return strings.ToLower(tableType)
	}
}

func withKind(t types.TargetSpec, k types.Kind) types.TargetSpec {
	t.Kind = k
	return t
}
