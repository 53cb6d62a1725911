package mysql

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"

	"github.com/alexanderjulianmartinez/schema-inspect/internal/source"
	"github.com/alexanderjulianmartinez/schema-inspect/pkg/types"
)

const Dialect = "mysql"

// An empty schema falls back to the connection's default database.
const (
	columnsQuery = `
		SELECT COLUMN_NAME, COLUMN_TYPE, DATA_TYPE, ORDINAL_POSITION
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE()) AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION`

	tableTypeQuery = `
		SELECT TABLE_TYPE
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE()) AND TABLE_NAME = ?`

	// CHECK_CONSTRAINTS exists from MySQL 8.0.16 and MariaDB 10.2.
	checkConstraintsQuery = `
		SELECT cc.CONSTRAINT_NAME, cc.CHECK_CLAUSE
		FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
		JOIN INFORMATION_SCHEMA.CHECK_CONSTRAINTS cc
		  ON cc.CONSTRAINT_SCHEMA = tc.CONSTRAINT_SCHEMA
		 AND cc.CONSTRAINT_NAME = tc.CONSTRAINT_NAME
		WHERE tc.TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
		  AND tc.TABLE_NAME = ?
		  AND tc.CONSTRAINT_TYPE = 'CHECK'`

	relationsQuery = `
		SELECT TABLE_SCHEMA, TABLE_NAME, TABLE_TYPE
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE())
		ORDER BY TABLE_NAME`
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

	rows, err := q.QueryContext(ctx, columnsQuery, target.Schema, target.Table)
	if err != nil {
		return nil, i.queryError("describe columns", target, err)
	}
	defer rows.Close()

	target.Kind = types.KindColumns
	report := &types.InspectionReport{Target: target, Columns: []types.ColumnDescriptor{}}
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

	target.Kind = types.KindCheckConstraints
	report := &types.InspectionReport{Target: target, Constraints: []types.ConstraintDescriptor{}}
	for rows.Next() {
		var name, clause string
		if err := rows.Scan(&name, &clause); err != nil {
			return nil, i.queryError("scan check constraints", target, err)
		}
		report.Constraints = append(report.Constraints, types.ConstraintDescriptor{
			Name:       name,
			Definition: checkDefinition(clause),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, i.queryError("describe check constraints", target, err)
	}
	return report, nil
}

func (i *Inspector) resolveTable(ctx context.Context, q source.Querier, target types.TargetSpec) error {
	rows, err := q.QueryContext(ctx, tableTypeQuery, target.Schema, target.Table)
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
	var tableType string
	if err := rows.Scan(&tableType); err != nil {
		return i.queryError("resolve relation", target, err)
	}
	if tableType != "BASE TABLE" {
		return source.NotTable(target.QualifiedName(), relationKind(tableType))
	}
	return nil
}

func (i *Inspector) queryError(op string, target types.TargetSpec, err error) error {
	qerr := &source.QueryError{Dialect: Dialect, Op: op, Table: target.QualifiedName(), Err: err}
	if isConnectionError(err) {
		return fmt.Errorf("%w: %w", source.ErrConnection, qerr)
	}
	return qerr
}

// checkDefinition renders a CHECK_CLAUSE the way Postgres' pg_get_constraintdef does.
func checkDefinition(clause string) string {
	if enclosed(clause) {
		return "CHECK " + clause
	}
	return "CHECK (" + clause + ")"
}

// enclosed reports whether s is one parenthesised group, so that
// "(a > 0)" is but "(a > 0) AND (b > 0)" is not.
func enclosed(s string) bool {
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return false
	}
	depth := 0
	for idx := 0; idx < len(s); idx++ {
		switch s[idx] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && idx != len(s)-1 {
				return false
			}
		}
	}
	return depth == 0
}

func relationKind(tableType string) string {
	switch tableType {
	case "BASE TABLE":
		return "table"
	case "VIEW":
		return "view"
	case "SYSTEM VIEW":
		return "system view"
	default:
		return tableType
	}
}

// Server error numbers that mean the login itself was refused.
const (
	erDBAccessDenied     = 1044
	erAccessDenied       = 1045
	erServerShutdown     = 1053
	erTooManyConnections = 1040
)

func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case erDBAccessDenied, erAccessDenied, erServerShutdown, erTooManyConnections:
			return true
		}
	}
	return false
}
