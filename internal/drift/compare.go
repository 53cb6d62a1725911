package drift

import (
	"fmt"
	"strconv"

	"github.com/alexanderjulianmartinez/schema-inspect/pkg/types"
)

// Issue is one difference between the baseline and the current catalog.
// Subject names the column or constraint it is about.
type Issue struct {
	Table    string     `json:"table" yaml:"table"`
	Subject  string     `json:"subject" yaml:"subject"`
	Kind     ChangeKind `json:"kind" yaml:"kind"`
	Severity Severity   `json:"severity" yaml:"severity"`
	From     string     `json:"from,omitempty" yaml:"from,omitempty"`
	To       string     `json:"to,omitempty" yaml:"to,omitempty"`
	Message  string     `json:"message" yaml:"message"`
}

type Report struct {
	Table  string  `json:"table" yaml:"table"`
	Issues []Issue `json:"issues" yaml:"issues"`
}

// Max returns the highest severity in the report, or "" when it has no issues.
func (r *Report) Max() Severity {
	var top Severity
	for _, iss := range r.Issues {
		if iss.Severity.rank() > top.rank() {
			top = iss.Severity
		}
	}
	return top
}

// Merge appends the issues of other to r.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.Issues = append(r.Issues, other.Issues...)
}

func (r *Report) add(kind ChangeKind, subject, from, to string) {
	r.Issues = append(r.Issues, Issue{
		Table:    r.Table,
		Subject:  subject,
		Kind:     kind,
		Severity: SeverityForChange(kind),
		From:     from,
		To:       to,
		Message:  MessageForChange(kind, from, to),
	})
}

// Compare reports how current differs from baseline. Both reports must be of
// the same kind. Issues follow the baseline's order, then additions in the
// current report's order.
func Compare(baseline, current *types.InspectionReport) (*Report, error) {
	if baseline == nil || current == nil {
		return nil, fmt.Errorf("compare: both reports are required")
	}
	if baseline.Target.Kind != current.Target.Kind {
		return nil, fmt.Errorf("compare: cannot compare %s with %s", baseline.Target.Kind, current.Target.Kind)
	}

	report := &Report{Table: baseline.Target.QualifiedName(), Issues: []Issue{}}
	if baseline.Target.Kind == types.KindCheckConstraints {
		compareConstraints(report, baseline.Constraints, current.Constraints)
	} else {
		compareColumns(report, baseline.Columns, current.Columns)
	}
	return report, nil
}

func compareColumns(report *Report, baseline, current []types.ColumnDescriptor) {
	cur := make(map[string]types.ColumnDescriptor, len(current))
	for _, c := range current {
		cur[c.Name] = c
	}
	base := make(map[string]bool, len(baseline))

	// Relative order among the columns both sides share, so a dropped column
	// does not flag every column after it as moved.
	var shared []string
	for _, b := range baseline {
		base[b.Name] = true
		c, ok := cur[b.Name]
		if !ok {
			report.add(ColumnRemoved, b.Name, b.DeclaredType, "")
			continue
		}
		shared = append(shared, b.Name)
		if b.DeclaredType != c.DeclaredType || b.UnderlyingType != c.UnderlyingType {
			report.add(TypeChanged, b.Name, typeName(b), typeName(c))
		}
	}

	sharedPos := make(map[string]int, len(shared))
	for i, name := range shared {
		sharedPos[name] = i
	}
	i := 0
	for _, c := range current {
		if !base[c.Name] {
			continue
		}
		if sharedPos[c.Name] != i {
			report.add(ColumnMoved, c.Name, strconv.Itoa(baselinePosition(baseline, c.Name)), strconv.Itoa(c.OrdinalPosition))
		}
		i++
	}

	for _, c := range current {
		if !base[c.Name] {
			report.add(ColumnAdded, c.Name, "", c.DeclaredType)
		}
	}
}

func compareConstraints(report *Report, baseline, current []types.ConstraintDescriptor) {
	cur := make(map[string]string, len(current))
	for _, c := range current {
		cur[c.Name] = c.Definition
	}
	base := make(map[string]bool, len(baseline))

	for _, b := range baseline {
		base[b.Name] = true
		def, ok := cur[b.Name]
		switch {
		case !ok:
			report.add(CheckRemoved, b.Name, b.Definition, "")
		case def != b.Definition:
			report.add(CheckChanged, b.Name, b.Definition, def)
		}
	}
	for _, c := range current {
		if !base[c.Name] {
			report.add(CheckAdded, c.Name, "", c.Definition)
		}
	}
}

func typeName(c types.ColumnDescriptor) string {
	if c.UnderlyingType == "" || c.UnderlyingType == c.DeclaredType {
		return c.DeclaredType
	}
	return c.DeclaredType + " (" + c.UnderlyingType + ")"
}

func baselinePosition(cols []types.ColumnDescriptor, name string) int {
	for _, c := range cols {
		if c.Name == name {
			return c.OrdinalPosition
		}
	}
	return 0
}
