//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/alexanderjulianmartinez/schema-inspect/internal/config"
	"github.com/alexanderjulianmartinez/schema-inspect/internal/connect"
	"github.com/alexanderjulianmartinez/schema-inspect/internal/source"
	"github.com/alexanderjulianmartinez/schema-inspect/pkg/types"
)

const fixture = `
CREATE TABLE volcanic_activity (id integer, name varchar, eruption_date date);
CREATE TABLE tsunamis (
	id serial PRIMARY KEY,
	magnitude real CONSTRAINT tsunamis_magnitude_check CHECK (magnitude >= 0)
);
CREATE TABLE hurricanes (id serial PRIMARY KEY, name text NOT NULL, category integer);
CREATE VIEW strong_tsunamis AS SELECT id, magnitude FROM tsunamis WHERE magnitude > 7;
CREATE SCHEMA geo;
CREATE TABLE geo.hurricanes (id bigint, landfall timestamptz);
`

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("catalog"),
		postgres.WithUsername("inspector"),
		postgres.WithPassword("inspector"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to cleanup postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.ExecContext(ctx, fixture)
	require.NoError(t, err)

	return dsn
}

func TestInspector_Integration(t *testing.T) {
	dsn := startPostgres(t)

	for _, driver := range []string{config.DriverPostgres, config.DriverPgx} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			db, insp, err := connect.Open(ctx, config.SourceConfig{Driver: driver, DSN: dsn, MaxOpenConnections: 4}, zerolog.Nop())
			require.NoError(t, err)
			defer db.Close()

			require.Equal(t, "postgres", insp.Dialect())

			t.Run("columns", func(t *testing.T) {
				rep, err := insp.DescribeColumns(ctx, db, types.TargetSpec{Table: "volcanic_activity", Kind: types.KindColumns})
				require.NoError(t, err)
				require.Equal(t, []types.ColumnDescriptor{
					{Name: "id", DeclaredType: "integer", UnderlyingType: "int4", OrdinalPosition: 1},
					{Name: "name", DeclaredType: "character varying", UnderlyingType: "varchar", OrdinalPosition: 2},
					{Name: "eruption_date", DeclaredType: "date", UnderlyingType: "date", OrdinalPosition: 3},
				}, rep.Columns)
			})

			t.Run("columns of unknown table", func(t *testing.T) {
				rep, err := insp.DescribeColumns(ctx, db, types.TargetSpec{Table: "does_not_exist", Kind: types.KindColumns})
				require.NoError(t, err)
				require.True(t, rep.Empty())
			})

			t.Run("columns in another schema", func(t *testing.T) {
				rep, err := insp.DescribeColumns(ctx, db, types.TargetSpec{Schema: "geo", Table: "hurricanes", Kind: types.KindColumns})
				require.NoError(t, err)
				require.Len(t, rep.Columns, 2)
				require.Equal(t, "timestamp with time zone", rep.Columns[1].DeclaredType)
				require.Equal(t, "timestamptz", rep.Columns[1].UnderlyingType)
			})

			t.Run("check constraints", func(t *testing.T) {
				rep, err := insp.DescribeCheckConstraints(ctx, db, types.TargetSpec{Table: "tsunamis", Kind: types.KindCheckConstraints})
				require.NoError(t, err)
				require.Len(t, rep.Constraints, 1)
				require.Equal(t, "tsunamis_magnitude_check", rep.Constraints[0].Name)
				require.True(t, strings.HasPrefix(rep.Constraints[0].Definition, "CHECK (magnitude >= "), rep.Constraints[0].Definition)
			})

			t.Run("table without check constraints", func(t *testing.T) {
				rep, err := insp.DescribeCheckConstraints(ctx, db, types.TargetSpec{Table: "hurricanes", Kind: types.KindCheckConstraints})
				require.NoError(t, err)
				require.True(t, rep.Empty())
			})

			t.Run("check constraints of unknown table", func(t *testing.T) {
				_, err := insp.DescribeCheckConstraints(ctx, db, types.TargetSpec{Table: "does_not_exist", Kind: types.KindCheckConstraints})
				require.ErrorIs(t, err, source.ErrUnknownRelation)
			})

			t.Run("check constraints of a view", func(t *testing.T) {
				_, err := insp.DescribeCheckConstraints(ctx, db, types.TargetSpec{Table: "strong_tsunamis", Kind: types.KindCheckConstraints})
				require.ErrorIs(t, err, source.ErrNotTable)
			})

			t.Run("hostile table name is a plain value", func(t *testing.T) {
				rep, err := insp.DescribeColumns(ctx, db, types.TargetSpec{Table: "x'; DROP TABLE hurricanes; --", Kind: types.KindColumns})
				require.NoError(t, err)
				require.True(t, rep.Empty())

				rep, err = insp.DescribeColumns(ctx, db, types.TargetSpec{Table: "hurricanes", Kind: types.KindColumns})
				require.NoError(t, err)
				require.Len(t, rep.Columns, 3)
			})

			t.Run("batch", func(t *testing.T) {
				tables := []string{"hurricanes", "does_not_exist", "tsunamis"}
				batch, err := source.DescribeColumnsMulti(ctx, insp, db, "", tables)
				require.NoError(t, err)
				require.Equal(t, tables, batch.Tables())
				require.Zero(t, batch.Failed())

				parallel, err := source.DescribeColumnsParallel(ctx, insp, db, "", tables, 3)
				require.NoError(t, err)
				for _, table := range tables {
					want, _ := batch.Get(table)
					got, _ := parallel.Get(table)
					require.Equal(t, want, got, table)
				}
			})

			t.Run("list relations", func(t *testing.T) {
				rels, err := insp.ListRelations(ctx, db, "public")
				require.NoError(t, err)
				require.Equal(t, []types.RelationDescriptor{
					{Schema: "public", Name: "hurricanes", Kind: "table"},
					{Schema: "public", Name: "strong_tsunamis", Kind: "view"},
					{Schema: "public", Name: "tsunamis", Kind: "table"},
					{Schema: "public", Name: "volcanic_activity", Kind: "table"},
				}, rels)
			})

			t.Run("cancelled query", func(t *testing.T) {
				cctx, cancel := context.WithCancel(ctx)
				cancel()
				rep, err := insp.DescribeColumns(cctx, db, types.TargetSpec{Table: "hurricanes", Kind: types.KindColumns})
				require.ErrorIs(t, err, source.ErrQuery)
				require.Nil(t, rep)
			})
		})
	}
}

func TestOpen_WrongPassword(t *testing.T) {
	dsn := startPostgres(t)
	bad := strings.Replace(dsn, "inspector:inspector@", "inspector:wrong@", 1)

	for _, driver := range []string{config.DriverPostgres, config.DriverPgx} {
		t.Run(driver, func(t *testing.T) {
			_, _, err := connect.Open(context.Background(), config.SourceConfig{Driver: driver, DSN: bad}, zerolog.Nop())
			require.ErrorIs(t, err, source.ErrConnection)
			require.NotContains(t, err.Error(), "wrong@", fmt.Sprintf("password leaked: %v", err))
		})
	}
}
