package report

import (
	"fmt"
	"io"

	"github.com/alexanderjulianmartinez/schema-inspect/internal/drift"
	"github.com/alexanderjulianmartinez/schema-inspect/internal/source"
	"github.com/alexanderjulianmartinez/schema-inspect/pkg/types"
)

type Format string

const (
	FormatText  Format = "text"
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatText, FormatTable, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// BatchItem is the serialised form of one batch entry.
type BatchItem struct {
	Table  string                  `json:"table" yaml:"table"`
	Report *types.InspectionReport `json:"report,omitempty" yaml:"report,omitempty"`
	Error  string                  `json:"error,omitempty" yaml:"error,omitempty"`
}

type RelationList struct {
	Schema    string                     `json:"schema,omitempty" yaml:"schema,omitempty"`
	Relations []types.RelationDescriptor `json:"relations" yaml:"relations"`
}

func WriteReport(w io.Writer, f Format, r *types.InspectionReport) error {
	switch f {
	case FormatTable:
		return tableReport(w, r)
	case FormatJSON:
		return writeJSON(w, r)
	case FormatYAML:
		return writeYAML(w, r)
	default:
		return textReport(w, r)
	}
}

func WriteBatch(w io.Writer, f Format, b *source.Batch) error {
	switch f {
	case FormatJSON:
		return writeJSON(w, batchItems(b))
	case FormatYAML:
		return writeYAML(w, batchItems(b))
	}

	for i, e := range b.Entries() {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if e.Err != nil {
			if _, err := fmt.Fprintf(w, "%s of %s: error: %v\n", header(types.KindColumns), e.Table, e.Err); err != nil {
				return err
			}
			continue
		}
		if err := WriteReport(w, f, e.Report); err != nil {
			return err
		}
	}
	return nil
}

func WriteRelations(w io.Writer, f Format, schema string, rels []types.RelationDescriptor) error {
	switch f {
	case FormatTable:
		return tableRelations(w, rels)
	case FormatJSON:
		return writeJSON(w, RelationList{Schema: schema, Relations: rels})
	case FormatYAML:
		return writeYAML(w, RelationList{Schema: schema, Relations: rels})
	default:
		return textRelations(w, schema, rels)
	}
}

func WriteDrift(w io.Writer, f Format, r *drift.Report) error {
	switch f {
	case FormatTable:
		return tableDrift(w, r)
	case FormatJSON:
		return writeJSON(w, r)
	case FormatYAML:
		return writeYAML(w, r)
	default:
		return textDrift(w, r)
	}
}

func batchItems(b *source.Batch) []BatchItem {
	items := make([]BatchItem, 0, b.Len())
	for _, e := range b.Entries() {
		item := BatchItem{Table: e.Table, Report: e.Report}
		if e.Err != nil {
			item.Error = e.Err.Error()
		}
		items = append(items, item)
	}
	return items
}

func header(k types.Kind) string {
	if k == types.KindCheckConstraints {
		return "check constraints"
	}
	return "columns"
}
