package models

import (
	"fmt"
	"strings"
)

// NotFoundError reports dataset sources that are missing or unreadable. The
// loader collects every missing source before failing so a configuration
// problem can be diagnosed in one pass.
type NotFoundError struct {
	Sources []string
}

func (e *NotFoundError) Error() string {
	if len(e.Sources) == 1 {
		return fmt.Sprintf("dataset source not found: %s", e.Sources[0])
	}
	return fmt.Sprintf("dataset sources not found: %s", strings.Join(e.Sources, ", "))
}

// SchemaError reports columns required by an operation that are absent from a
// table: a dataset missing part of its declared schema, a join key missing
// from one of its inputs, or a filter dimension applied to a table that was
// never joined with the column it needs.
type SchemaError struct {
	Table   string
	Columns []string
}

func (e *SchemaError) Error() string {
	if len(e.Columns) == 1 {
		return fmt.Sprintf("table %q is missing required column %q", e.Table, e.Columns[0])
	}
	return fmt.Sprintf("table %q is missing required columns: %s", e.Table, strings.Join(e.Columns, ", "))
}
