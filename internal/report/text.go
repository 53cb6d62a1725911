package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/alexanderjulianmartinez/schema-inspect/internal/drift"
	"github.com/alexanderjulianmartinez/schema-inspect/pkg/types"
)

// textReport writes the plain report: a header naming kind and table, then
// one aligned line per column, or a name line plus an indented definition
// line per constraint.
func textReport(w io.Writer, r *types.InspectionReport) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s of %s (%d)\n", header(r.Target.Kind), r.Target.QualifiedName(), r.Len())

	if r.Target.Kind == types.KindCheckConstraints {
		for _, c := range r.Constraints {
			fmt.Fprintf(&b, "  %s\n      %s\n", c.Name, c.Definition)
		}
	} else {
		nameWidth, typeWidth := 0, 0
		for _, c := range r.Columns {
			nameWidth = max(nameWidth, runewidth.StringWidth(c.Name))
			typeWidth = max(typeWidth, runewidth.StringWidth(c.DeclaredType))
		}
		for _, c := range r.Columns {
			fmt.Fprintf(&b, "  %s  %s  (%s)\n",
				runewidth.FillRight(c.Name, nameWidth), runewidth.FillRight(c.DeclaredType, typeWidth), c.UnderlyingType)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func textRelations(w io.Writer, schema string, rels []types.RelationDescriptor) error {
	var b strings.Builder
	if schema == "" {
		fmt.Fprintf(&b, "relations (%d)\n", len(rels))
	} else {
		fmt.Fprintf(&b, "relations of %s (%d)\n", schema, len(rels))
	}

	width := 0
	for _, r := range rels {
		width = max(width, runewidth.StringWidth(r.Schema+"."+r.Name))
	}
	for _, r := range rels {
		fmt.Fprintf(&b, "  %s  %s\n", runewidth.FillRight(r.Schema+"."+r.Name, width), r.Kind)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func textDrift(w io.Writer, r *drift.Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "drift of %s (%d)\n", r.Table, len(r.Issues))

	sevWidth, kindWidth, subjectWidth := 0, 0, 0
	for _, iss := range r.Issues {
		sevWidth = max(sevWidth, runewidth.StringWidth(string(iss.Severity)))
		kindWidth = max(kindWidth, runewidth.StringWidth(string(iss.Kind)))
		subjectWidth = max(subjectWidth, runewidth.StringWidth(iss.Subject))
	}
	for _, iss := range r.Issues {
		fmt.Fprintf(&b, "  %s  %s  %s  %s\n",
			runewidth.FillRight(string(iss.Severity), sevWidth),
			runewidth.FillRight(string(iss.Kind), kindWidth),
			runewidth.FillRight(iss.Subject, subjectWidth),
			iss.Message)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
