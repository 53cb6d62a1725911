package source

import (
	"context"
	"fmt"

	"github.com/alitto/pond/v2"

	"github.com/alexanderjulianmartinez/schema-inspect/pkg/types"
)

type BatchEntry struct {
	Table  string
	Report *types.InspectionReport
	Err    error
}

// Batch maps table names to their column reports. Iteration follows the order
// the names were requested in; a repeated name keeps its first position.
type Batch struct {
	entries []BatchEntry
	index   map[string]int
}

func newBatch(tables []string) *Batch {
	b := &Batch{index: make(map[string]int, len(tables))}
	for _, table := range tables {
		if _, ok := b.index[table]; ok {
			continue
		}
		b.index[table] = len(b.entries)
		b.entries = append(b.entries, BatchEntry{Table: table})
	}
	return b
}

func (b *Batch) set(e BatchEntry) {
	if i, ok := b.index[e.Table]; ok {
		b.entries[i] = e
	}
}

func (b *Batch) Len() int {
	return len(b.entries)
}

func (b *Batch) Tables() []string {
	out := make([]string, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.Table
	}
	return out
}

func (b *Batch) Get(table string) (BatchEntry, bool) {
	i, ok := b.index[table]
	if !ok {
		return BatchEntry{}, false
	}
	return b.entries[i], true
}

func (b *Batch) Entries() []BatchEntry {
	out := make([]BatchEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Failed counts entries that carry an error.
func (b *Batch) Failed() int {
	n := 0
	for _, e := range b.entries {
		if e.Err != nil {
			n++
		}
	}
	return n
}

// DescribeColumnsMulti runs DescribeColumns for every table over the shared
// handle q. A failing table records its error and the batch moves on, but a
// cancelled ctx fails the whole batch.
func DescribeColumnsMulti(ctx context.Context, insp Inspector, q Querier, schema string, tables []string) (*Batch, error) {
	batch := newBatch(tables)
	for _, table := range batch.Tables() {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("describe columns batch: %w", err)
		}
		batch.set(describeColumnsEntry(ctx, insp, q, schema, table))
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("describe columns batch: %w", err)
	}
	return batch, nil
}

// DescribeColumnsParallel is DescribeColumnsMulti spread over a worker pool.
// Each task checks out its own connection from pool and returns it when done,
// so no connection is shared between concurrent queries.
func DescribeColumnsParallel(ctx context.Context, insp Inspector, pool ConnPool, schema string, tables []string, workers int) (*Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("describe columns batch: %w", err)
	}
	batch := newBatch(tables)
	if workers < 1 {
		workers = 1
	}

	rp := pond.NewResultPool[BatchEntry](workers)
	defer rp.StopAndWait()

	group := rp.NewGroupContext(ctx)
	for _, table := range batch.Tables() {
		group.Submit(func() BatchEntry {
			conn, err := pool.Conn(ctx)
			if err != nil {
				return BatchEntry{Table: table, Err: fmt.Errorf("%w: %v", ErrConnection, err)}
			}
			defer conn.Close()
			return describeColumnsEntry(ctx, insp, conn, schema, table)
		})
	}

	results, err := group.Wait()
	if err != nil {
		return nil, fmt.Errorf("describe columns batch: %w", err)
	}
	for _, e := range results {
		batch.set(e)
	}
	return batch, nil
}

func describeColumnsEntry(ctx context.Context, insp Inspector, q Querier, schema, table string) BatchEntry {
	target := types.TargetSpec{Schema: schema, Table: table, Kind: types.KindColumns}
	if err := target.Validate(); err != nil {
		return BatchEntry{Table: table, Err: err}
	}
	report, err := insp.DescribeColumns(ctx, q, target)
	return BatchEntry{Table: table, Report: report, Err: err}
}
