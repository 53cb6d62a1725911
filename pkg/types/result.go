package types

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindColumns          Kind = "columns"
	KindCheckConstraints Kind = "check_constraints"
)

func (k Kind) String() string {
	return string(k)
}

// TargetSpec names the relation to inspect and what to report about it.
// An empty Schema means the connection's current schema.
type TargetSpec struct {
	Schema string `json:"schema,omitempty" yaml:"schema,omitempty"`
	Table  string `json:"table" yaml:"table"`
	Kind   Kind   `json:"kind" yaml:"kind"`
}

func (t TargetSpec) Validate() error {
	if t.Table == "" {
		return errors.New("table name is required")
	}
	switch t.Kind {
	case KindColumns, KindCheckConstraints:
		return nil
	default:
		return fmt.Errorf("unknown inspection kind %q", t.Kind)
	}
}

// QualifiedName returns schema.table, or whichever half is set.
func (t TargetSpec) QualifiedName() string {
	if t.Schema == "" || t.Table == "" {
		return t.Schema + t.Table
	}
	return t.Schema + "." + t.Table
}

type ColumnDescriptor struct {
	Name            string `json:"name" yaml:"name"`
	DeclaredType    string `json:"declared_type" yaml:"declared_type"`
	UnderlyingType  string `json:"underlying_type" yaml:"underlying_type"`
	OrdinalPosition int    `json:"ordinal_position" yaml:"ordinal_position"`
}

type ConstraintDescriptor struct {
	Name       string `json:"name" yaml:"name"`
	Definition string `json:"definition" yaml:"definition"`
}

// InspectionReport is the result of one catalog inspection. Columns is set for
// KindColumns targets and Constraints for KindCheckConstraints targets.
type InspectionReport struct {
	Target      TargetSpec             `json:"target" yaml:"target"`
	Columns     []ColumnDescriptor     `json:"columns,omitempty" yaml:"columns,omitempty"`
	Constraints []ConstraintDescriptor `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

func (r *InspectionReport) Len() int {
	if r == nil {
		return 0
	}
	if r.Target.Kind == KindCheckConstraints {
		return len(r.Constraints)
	}
	return len(r.Columns)
}

func (r *InspectionReport) Empty() bool {
	return r.Len() == 0
}

// RelationDescriptor is one entry of a schema's relation listing.
type RelationDescriptor struct {
	Schema string `json:"schema" yaml:"schema"`
	Name   string `json:"name" yaml:"name"`
	Kind   string `json:"kind" yaml:"kind"`
}
