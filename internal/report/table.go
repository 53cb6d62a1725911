package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/alexanderjulianmartinez/schema-inspect/internal/drift"
	"github.com/alexanderjulianmartinez/schema-inspect/pkg/types"
)

func newTable(w io.Writer, headers ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(true)
	table.SetHeader(headers)
	return table
}

func tableReport(w io.Writer, r *types.InspectionReport) error {
	if _, err := fmt.Fprintf(w, "%s of %s (%d)\n", header(r.Target.Kind), r.Target.QualifiedName(), r.Len()); err != nil {
		return err
	}

	if r.Target.Kind == types.KindCheckConstraints {
		table := newTable(w, "Name", "Definition")
		for _, c := range r.Constraints {
			table.Append([]string{c.Name, c.Definition})
		}
		table.Render()
		return nil
	}

	table := newTable(w, "#", "Name", "Declared type", "Underlying type")
	for _, c := range r.Columns {
		table.Append([]string{strconv.Itoa(c.OrdinalPosition), c.Name, c.DeclaredType, c.UnderlyingType})
	}
	table.Render()
	return nil
}

func tableRelations(w io.Writer, rels []types.RelationDescriptor) error {
	table := newTable(w, "Schema", "Name", "Kind")
	for _, r := range rels {
		table.Append([]string{r.Schema, r.Name, r.Kind})
	}
	table.Render()
	return nil
}

func tableDrift(w io.Writer, r *drift.Report) error {
	if _, err := fmt.Fprintf(w, "drift of %s (%d)\n", r.Table, len(r.Issues)); err != nil {
		return err
	}
	table := newTable(w, "Severity", "Change", "Subject", "Detail")
	for _, iss := range r.Issues {
		table.Append([]string{string(iss.Severity), string(iss.Kind), iss.Subject, iss.Message})
	}
	table.Render()
	return nil
}
