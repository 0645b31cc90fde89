package core

import (
	"errors"
	"fmt"
)

var (
	ErrUnrecognizedFormat = errors.New("unrecognized table format")
	ErrUnsupported        = errors.New("operation unsupported for this table kind")
	ErrNoSchema           = errors.New("no schema")
	ErrNoMetadata         = errors.New("table has no metadata")
	ErrNotVersionedTable  = errors.New("not a versioned table")
	ErrInvalidLimit       = errors.New("limit must not be negative")
)

// FormatError reports a table reference whose extension maps to no backend.
type FormatError struct {
	Ref       string
	Extension string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: %q has extension %q", ErrUnrecognizedFormat, e.Ref, e.Extension)
}

func (e *FormatError) Is(target error) bool {
	return target == ErrUnrecognizedFormat
}

// OpenError reports that a backend could not open a table.
type OpenError struct {
	Ref string
	Err error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("failed to open table %q: %v", e.Ref, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// UnsupportedError reports an operation the table kind cannot perform.
type UnsupportedError struct {
	Op   string
	Kind TableKind
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: %s on a %s table", ErrUnsupported, e.Op, e.Kind)
}

func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

// QueryError wraps a registration or execution failure from the query engine.
type QueryError struct {
	SQL string
	Err error
}

func (e *QueryError) Error() string {
	if e.SQL == "" {
		return fmt.Sprintf("query failed: %v", e.Err)
	}
	return fmt.Sprintf("query failed: %v\nSQL: %s", e.Err, e.SQL)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
