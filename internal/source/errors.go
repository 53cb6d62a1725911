package source

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection is returned when the database cannot be reached or rejects the login.
	ErrConnection = errors.New("database connection failed")
	// ErrUnknownRelation is returned when a relation that must be resolved up front is absent.
	ErrUnknownRelation = errors.New("unknown relation")
	// ErrNotTable is returned when the relation exists but is not a table (a view, a sequence...).
	ErrNotTable = errors.New("relation is not a table")
	// ErrQuery matches every *QueryError.
	ErrQuery = errors.New("catalog query failed")
)

// QueryError reports a catalog query the database rejected or could not finish.
// The driver error is kept verbatim.
type QueryError struct {
	Dialect string
	Op      string
	Table   string
	Err     error
}

func (e *QueryError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("%s %s: %v", e.Dialect, e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s %s: %v", e.Dialect, e.Op, e.Table, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

func (e *QueryError) Is(target error) bool {
	return target == ErrQuery
}

// UnknownRelation builds an ErrUnknownRelation for the given name.
func UnknownRelation(name string) error {
	return fmt.Errorf("%w: %s", ErrUnknownRelation, name)
}

// NotTable builds an ErrNotTable for the given name and catalog kind.
func NotTable(name, kind string) error {
	return fmt.Errorf("%w: %s is a %s", ErrNotTable, name, kind)
}
