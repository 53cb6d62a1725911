package source

import (
	"context"
	"database/sql"

	"github.com/alexanderjulianmartinez/schema-inspect/pkg/types"
)

// Querier is the connection handle an Inspector runs catalog queries on.
// *sql.DB, *sql.Conn and *sql.Tx all satisfy it. Inspectors never close it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ConnPool hands out dedicated connections, one per concurrent task.
type ConnPool interface {
	Conn(ctx context.Context) (*sql.Conn, error)
}

type Inspector interface {
	Dialect() string
	DescribeColumns(ctx context.Context, q Querier, target types.TargetSpec) (*types.InspectionReport, error)
	DescribeCheckConstraints(ctx context.Context, q Querier, target types.TargetSpec) (*types.InspectionReport, error)
	ListRelations(ctx context.Context, q Querier, schema string) ([]types.RelationDescriptor, error)
}

// Describe dispatches on target.Kind.
func Describe(ctx context.Context, insp Inspector, q Querier, target types.TargetSpec) (*types.InspectionReport, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if target.Kind == types.KindCheckConstraints {
		return insp.DescribeCheckConstraints(ctx, q, target)
	}
	return insp.DescribeColumns(ctx, q, target)
}
