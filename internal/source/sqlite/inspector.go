package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/alexanderjulianmartinez/schema-inspect/internal/source"
	"github.com/alexanderjulianmartinez/schema-inspect/pkg/types"
)

const (
	Dialect       = "sqlite"
	defaultSchema = "main"
)

const (
	// table_xinfo also lists generated columns (hidden 2 and 3), which
	// table_info leaves out. Hidden 1 marks virtual-table hidden columns.
	columnsQuery = `
		SELECT name, type FROM pragma_table_xinfo(?, ?)
		WHERE hidden IN (0, 2, 3)
		ORDER BY cid`

	attachedQuery = `SELECT name FROM pragma_database_list WHERE name = ?`
)

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

	target.Kind = types.KindColumns
	report := &types.InspectionReport{Target: target, Columns: []types.ColumnDescriptor{}}

	schema, ok, err := i.attachedSchema(ctx, q, target)
	if err != nil {
		return nil, err
	}
	if !ok {
		return report, nil
	}

	rows, err := q.QueryContext(ctx, columnsQuery, target.Table, schema)
	if err != nil {
		return nil, i.queryError("describe columns", target, err)
	}
	defer rows.Close()

	for rows.Next() {
		var col types.ColumnDescriptor
		if err := rows.Scan(&col.Name, &col.DeclaredType); err != nil {
			return nil, i.queryError("scan columns", target, err)
		}
		col.OrdinalPosition = len(report.Columns) + 1
		col.UnderlyingType = Affinity(col.DeclaredType)
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

	schema, ok, err := i.attachedSchema(ctx, q, target)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, source.UnknownRelation(target.QualifiedName())
	}

	// The schema name is interpolated only after it was found in
	// pragma_database_list, and it is quoted.
	query := fmt.Sprintf(`SELECT name, type, sql FROM %s.sqlite_master WHERE name = ? COLLATE NOCASE`, quoteIdent(schema))
	rows, err := q.QueryContext(ctx, query, target.Table)
	if err != nil {
		return nil, i.queryError("resolve relation", target, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, i.queryError("resolve relation", target, err)
		}
		return nil, source.UnknownRelation(target.QualifiedName())
	}
	var (
		name, kind string
		createSQL  sql.NullString
	)
	if err := rows.Scan(&name, &kind, &createSQL); err != nil {
		return nil, i.queryError("resolve relation", target, err)
	}
	if kind != "table" {
		return nil, source.NotTable(target.QualifiedName(), kind)
	}

	target.Kind = types.KindCheckConstraints
	return &types.InspectionReport{
		Target:      target,
		Constraints: ParseCheckConstraints(name, createSQL.String),
	}, nil
}

func (i *Inspector) ListRelations(ctx context.Context, q source.Querier, schema string) ([]types.RelationDescriptor, error) {
	ctx, cancel := source.WithTimeout(ctx, i.timeout)
	defer cancel()

	target := types.TargetSpec{Schema: schema}
	resolved, ok, err := i.attachedSchema(ctx, q, target)
	if err != nil {
		return nil, err
	}
	rels := []types.RelationDescriptor{}
	if !ok {
		return rels, nil
	}

	query := fmt.Sprintf(`SELECT name, type FROM %s.sqlite_master
		WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite\_%%' ESCAPE '\'
		ORDER BY name`, quoteIdent(resolved))
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, i.queryError("list relations", target, err)
	}
	defer rows.Close()

	for rows.Next() {
		rel := types.RelationDescriptor{Schema: resolved}
		if err := rows.Scan(&rel.Name, &rel.Kind); err != nil {
			return nil, i.queryError("scan relations", target, err)
		}
		rels = append(rels, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, i.queryError("list relations", target, err)
	}
	return rels, nil
}

// attachedSchema resolves the target's schema to an attached database name.
// ok is false when no database of that name is attached.
func (i *Inspector) attachedSchema(ctx context.Context, q source.Querier, target types.TargetSpec) (string, bool, error) {
	if target.Schema == "" {
		return defaultSchema, true, nil
	}
	rows, err := q.QueryContext(ctx, attachedQuery, target.Schema)
	if err != nil {
		return "", false, i.queryError("resolve schema", target, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return "", false, i.queryError("resolve schema", target, err)
		}
		return "", false, nil
	}
	var name string
	if err := rows.Scan(&name); err != nil {
		return "", false, i.queryError("resolve schema", target, err)
	}
	return name, true, rows.Err()
}

func (i *Inspector) queryError(op string, target types.TargetSpec, err error) error {
	qerr := &source.QueryError{Dialect: Dialect, Op: op, Table: target.QualifiedName(), Err: err}
	if isConnectionError(err) {
		return fmt.Errorf("%w: %w", source.ErrConnection, qerr)
	}
	return qerr
}

func isConnectionError(err error) bool {
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		switch sqErr.Code {
		case sqlite3.ErrCantOpen, sqlite3.ErrNotADB, sqlite3.ErrAuth:
			return true
		}
	}
	return false
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Affinity returns the column affinity SQLite derives from a declared type,
// following the rules of section 3.1 of the datatype documentation.
func Affinity(declared string) string {
	t := strings.ToUpper(declared)
	switch {
	case strings.Contains(t, "INT"):
		return "INTEGER"
	case strings.Contains(t, "CHAR"), strings.Contains(t, "CLOB"), strings.Contains(t, "TEXT"):
		return "TEXT"
	case t == "", strings.Contains(t, "BLOB"):
		return "BLOB"
	case strings.Contains(t, "REAL"), strings.Contains(t, "FLOA"), strings.Contains(t, "DOUB"):
		return "REAL"
	default:
		return "NUMERIC"
	}
}
