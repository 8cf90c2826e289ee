package exporters

import (
	"fmt"
)

// Query stages reported by QueryError.
const (
	StageProbe    = "header probe"
	StageEstimate = "row count"
	StageStream   = "export"
)

// QueryError is a database failure while exporting one table.
type QueryError struct {
	Table string
	Stage string
	Err   error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s query failed: %v", e.Stage, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// CodecError is a value that cannot be converted under its column's declared type.
type CodecError struct {
	Column       string
	DeclaredType string
	Row          uint64
	Err          error
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("row %d, column %s (%s): %v", e.Row, e.Column, e.DeclaredType, e.Err)
}

func (e *CodecError) Unwrap() error { return e.Err }

// IOError is a failure creating or writing output or log files.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
