package worker

import (
	"fmt"
	"strings"
)

// RowFieldMissingError reports a row that lacks a referenced field, or whose
// naming field sanitizes to an empty name
type RowFieldMissingError struct {
	Row    int
	Fields []string
	Empty  bool
}

func (e *RowFieldMissingError) Error() string {
	if e.Empty {
		return fmt.Sprintf("row %d: field %q gives an empty file name", e.Row, strings.Join(e.Fields, ", "))
	}
	quoted := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		quoted[i] = fmt.Sprintf("%q", f)
	}
	return fmt.Sprintf("row %d: missing field %s", e.Row, strings.Join(quoted, ", "))
}

// OutputWriteError reports a rendered row that could not be persisted
type OutputWriteError struct {
	Row  int
	Path string
	Err  error
}

func (e *OutputWriteError) Error() string {
	return fmt.Sprintf("row %d: failed to write %s: %v", e.Row, e.Path, e.Err)
}

func (e *OutputWriteError) Unwrap() error {
	return e.Err
}
