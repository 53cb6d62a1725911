package mysql

import (
	"context"

	"github.com/alexanderjulianmartinez/schema-inspect/internal/source"
	"github.com/alexanderjulianmartinez/schema-inspect/pkg/types"
)

// ListRelations lists the tables and views of schema, or of the default
// database when schema is empty.
func (i *Inspector) ListRelations(ctx context.Context, q source.Querier, schema string) ([]types.RelationDescriptor, error) {
	ctx, cancel := source.WithTimeout(ctx, i.timeout)
	defer cancel()

	target := types.TargetSpec{Schema: schema}
	rows, err := q.QueryContext(ctx, relationsQuery, schema)
	if err != nil {
		return nil, i.queryError("list relations", target, err)
	}
	defer rows.Close()

	rels := []types.RelationDescriptor{}
	for rows.Next() {
		var rel types.RelationDescriptor
		if err := rows.Scan(&rel.Schema, &rel.Name, &rel.Kind); err != nil {
			return nil, i.queryError("scan relations", target, err)
		}
		rel.Kind = relationKind(rel.Kind)
		rels = append(rels, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, i.queryError("list relations", target, err)
	}
	return rels, nil
}
