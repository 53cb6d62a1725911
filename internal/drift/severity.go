package drift

import "fmt"

// Severity rules for catalog changes between a baseline and a current database:
// - BLOCK for changes that break existing readers or writers
// - WARN for risky changes that may reject data or alter semantics
// - INFO for additive or cosmetic changes

type Severity string

const (
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityBlock Severity = "BLOCK"
)

func (s Severity) rank() int {
	switch s {
	case SeverityBlock:
		return 3
	case SeverityWarn:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// AtLeast reports whether s is as severe as min or more.
func (s Severity) AtLeast(min Severity) bool {
	return s.rank() > 0 && s.rank() >= min.rank()
}

func ParseSeverity(s string) (Severity, error) {
	switch sev := Severity(s); sev {
	case SeverityInfo, SeverityWarn, SeverityBlock:
		return sev, nil
	default:
		return "", fmt.Errorf("unknown severity %q (want INFO, WARN or BLOCK)", s)
	}
}

type ChangeKind string

const (
	ColumnAdded   ChangeKind = "column_added"
	ColumnRemoved ChangeKind = "column_removed"
	ColumnMoved   ChangeKind = "column_moved"
	TypeChanged   ChangeKind = "type_changed"
	CheckAdded    ChangeKind = "check_added"
	CheckRemoved  ChangeKind = "check_removed"
	CheckChanged  ChangeKind = "check_changed"
)

func SeverityForChange(kind ChangeKind) Severity {
	switch kind {
	case ColumnRemoved:
		return SeverityBlock
	case TypeChanged, CheckAdded, CheckChanged:
		return SeverityWarn
	case ColumnAdded, ColumnMoved, CheckRemoved:
		return SeverityInfo
	default:
		return SeverityInfo
	}
}

// MessageForChange returns a concise message for the given change kind.
func MessageForChange(kind ChangeKind, from, to string) string {
	switch kind {
	case ColumnAdded:
		return "added as " + to
	case ColumnRemoved:
		return "removed (was " + from + ")"
	case ColumnMoved:
		return "position " + from + " -> " + to
	case TypeChanged:
		return from + " -> " + to
	case CheckAdded:
		return "added: " + to
	case CheckRemoved:
		return "removed: " + from
	case CheckChanged:
		return from + " -> " + to
	default:
		return ""
	}
}
