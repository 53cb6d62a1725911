package report

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/alexanderjulianmartinez/schema-inspect/internal/drift"
	"github.com/alexanderjulianmartinez/schema-inspect/internal/source"
	"github.com/alexanderjulianmartinez/schema-inspect/pkg/types"
)

func volcanicReport() *types.InspectionReport {
	return &types.InspectionReport{
		Target: types.TargetSpec{Schema: "public", Table: "volcanic_activity", Kind: types.KindColumns},
		Columns: []types.ColumnDescriptor{
			{Name: "id", DeclaredType: "integer", UnderlyingType: "int4", OrdinalPosition: 1},
			{Name: "name", DeclaredType: "character varying", UnderlyingType: "varchar", OrdinalPosition: 2},
			{Name: "eruption_date", DeclaredType: "date", UnderlyingType: "date", OrdinalPosition: 3},
		},
	}
}

func tsunamiChecks() *types.InspectionReport {
	return &types.InspectionReport{
		Target: types.TargetSpec{Schema: "public", Table: "tsunamis", Kind: types.KindCheckConstraints},
		Constraints: []types.ConstraintDescriptor{
			{Name: "tsunamis_magnitude_check", Definition: "CHECK (magnitude >= 0)"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for _, s := range []string{"text", "table", "json", "yaml"} {
		f, err := ParseFormat(s)
		require.NoError(t, err)
		require.Equal(t, Format(s), f)
	}
	_, err := ParseFormat("xml")
	require.Error(t, err)
}

func TestWriteReport_TextColumns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, FormatText, volcanicReport()))

	want := "columns of public.volcanic_activity (3)\n" +
		"  id             integer            (int4)\n" +
		"  name           character varying  (varchar)\n" +
		"  eruption_date  date               (date)\n"
	require.Equal(t, want, buf.String())
}

func TestWriteReport_TextColumnsWideRunes(t *testing.T) {
	rep := &types.InspectionReport{
		Target: types.TargetSpec{Table: "quakes", Kind: types.KindColumns},
		Columns: []types.ColumnDescriptor{
			{Name: "id", DeclaredType: "integer", UnderlyingType: "INTEGER", OrdinalPosition: 1},
			{Name: "depth_km", DeclaredType: "real", UnderlyingType: "REAL", OrdinalPosition: 2},
			{Name: "震源", DeclaredType: "text", UnderlyingType: "TEXT", OrdinalPosition: 3},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, FormatText, rep))

	// Each CJK rune takes two terminal cells.
	want := "columns of quakes (3)\n" +
		"  id        integer  (INTEGER)\n" +
		"  depth_km  real     (REAL)\n" +
		"  震源      text     (TEXT)\n"
	require.Equal(t, want, buf.String())
}

func TestWriteReport_TextConstraints(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, FormatText, tsunamiChecks()))

	want := "check constraints of public.tsunamis (1)\n" +
		"  tsunamis_magnitude_check\n" +
		"      CHECK (magnitude >= 0)\n"
	require.Equal(t, want, buf.String())
}

func TestWriteReport_TextEmpty(t *testing.T) {
	var buf bytes.Buffer
	report := &types.InspectionReport{Target: types.TargetSpec{Table: "does_not_exist", Kind: types.KindColumns}}
	require.NoError(t, WriteReport(&buf, FormatText, report))
	require.Equal(t, "columns of does_not_exist (0)\n", buf.String())
}

func TestWriteReport_Deterministic(t *testing.T) {
	for _, f := range []Format{FormatText, FormatTable, FormatJSON, FormatYAML} {
		var a, b bytes.Buffer
		require.NoError(t, WriteReport(&a, f, volcanicReport()))
		require.NoError(t, WriteReport(&b, f, volcanicReport()))
		require.Equal(t, a.Bytes(), b.Bytes(), string(f))
	}
}

func TestWriteReport_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, FormatTable, volcanicReport()))

	out := buf.String()
	require.Contains(t, out, "columns of public.volcanic_activity (3)")
	require.Contains(t, out, "Underlying type")
	require.Contains(t, out, "character varying")
	require.Contains(t, out, "eruption_date")
}

func TestWriteReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, FormatJSON, volcanicReport()))

	var got types.InspectionReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, *volcanicReport(), got)
}

func TestWriteReport_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, FormatYAML, tsunamiChecks()))

	var got types.InspectionReport
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, *tsunamiChecks(), got)
}

type stubInspector struct {
	reports map[string]*types.InspectionReport
	errs    map[string]error
}

func (s stubInspector) Dialect() string { return "stub" }

func (s stubInspector) DescribeColumns(_ context.Context, _ source.Querier, target types.TargetSpec) (*types.InspectionReport, error) {
	if err := s.errs[target.Table]; err != nil {
		return nil, err
	}
	return s.reports[target.Table], nil
}

func (s stubInspector) DescribeCheckConstraints(context.Context, source.Querier, types.TargetSpec) (*types.InspectionReport, error) {
	return nil, errors.New("not implemented")
}

func (s stubInspector) ListRelations(context.Context, source.Querier, string) ([]types.RelationDescriptor, error) {
	return nil, errors.New("not implemented")
}

func TestWriteBatch(t *testing.T) {
	insp := stubInspector{
		reports: map[string]*types.InspectionReport{"volcanic_activity": volcanicReport()},
		errs:    map[string]error{"broken": errors.New("permission denied")},
	}
	batch, err := source.DescribeColumnsMulti(context.Background(), insp, nil, "public", []string{"volcanic_activity", "broken"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteBatch(&buf, FormatText, batch))
	require.Equal(t,
		"columns of public.volcanic_activity (3)\n"+
			"  id             integer            (int4)\n"+
			"  name           character varying  (varchar)\n"+
			"  eruption_date  date               (date)\n"+
			"\n"+
			"columns of broken: error: permission denied\n",
		buf.String())

	buf.Reset()
	require.NoError(t, WriteBatch(&buf, FormatJSON, batch))
	var items []BatchItem
	require.NoError(t, json.Unmarshal(buf.Bytes(), &items))
	require.Len(t, items, 2)
	require.Equal(t, "volcanic_activity", items[0].Table)
	require.Equal(t, 3, items[0].Report.Len())
	require.Equal(t, "broken", items[1].Table)
	require.Equal(t, "permission denied", items[1].Error)
	require.Nil(t, items[1].Report)
}

func TestWriteRelations(t *testing.T) {
	rels := []types.RelationDescriptor{
		{Schema: "public", Name: "hurricanes", Kind: "table"},
		{Schema: "public", Name: "strong_tsunamis", Kind: "view"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRelations(&buf, FormatText, "public", rels))
	require.Equal(t,
		"relations of public (2)\n"+
			"  public.hurricanes       table\n"+
			"  public.strong_tsunamis  view\n",
		buf.String())

	buf.Reset()
	require.NoError(t, WriteRelations(&buf, FormatYAML, "public", rels))
	var got RelationList
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, rels, got.Relations)
}

func TestWriteDrift(t *testing.T) {
	base := &types.InspectionReport{
		Target: types.TargetSpec{Schema: "public", Table: "hurricanes", Kind: types.KindColumns},
		Columns: []types.ColumnDescriptor{
			{Name: "id", DeclaredType: "integer", UnderlyingType: "integer", OrdinalPosition: 1},
			{Name: "category", DeclaredType: "integer", UnderlyingType: "integer", OrdinalPosition: 2},
		},
	}
	cur := &types.InspectionReport{
		Target: types.TargetSpec{Schema: "public", Table: "hurricanes", Kind: types.KindColumns},
		Columns: []types.ColumnDescriptor{
			{Name: "id", DeclaredType: "integer", UnderlyingType: "integer", OrdinalPosition: 1},
			{Name: "landfall", DeclaredType: "date", UnderlyingType: "date", OrdinalPosition: 2},
		},
	}
	rep, err := drift.Compare(base, cur)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteDrift(&buf, FormatText, rep))
	require.Equal(t,
		"drift of public.hurricanes (2)\n"+
			"  BLOCK  column_removed  category  removed (was integer)\n"+
			"  INFO   column_added    landfall  added as date\n",
		buf.String())

	buf.Reset()
	require.NoError(t, WriteDrift(&buf, FormatJSON, rep))
	var got drift.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, *rep, got)

	buf.Reset()
	require.NoError(t, WriteDrift(&buf, FormatTable, rep))
	require.Contains(t, buf.String(), "column_removed")
}
