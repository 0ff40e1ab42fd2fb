package models

import (
	"errors"
	"fmt"
)

var (
	ErrSchema        = errors.New("schema error")
	ErrEmptyInput    = errors.New("empty input")
	ErrInvalidConfig = errors.New("invalid config")
)

// SchemaError reports a missing column or a value that does not parse.
// Row is 1-based over data rows, 0 when the whole column is concerned.
type SchemaError struct {
	Column string
	Row    int
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("schema error: column %q row %d: %s", e.Column, e.Row, e.Reason)
	}
	return fmt.Sprintf("schema error: column %q: %s", e.Column, e.Reason)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }
