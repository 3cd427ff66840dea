package dataset

import "fmt"

// Row is a single dataset record. Line is the 1-based position of the record
// after the header and Header keeps the source column order.
type Row struct {
	Line   int
	Header []string
	Values map[string]string
}

// NewRow maps record values onto header names. Missing trailing values are
// padded with empty strings and values beyond the header are dropped.
// It returns the number of dropped values.
func NewRow(line int, header []string, record []string) (Row, int) {
	values := make(map[string]string, len(header))
	for i, name := range header {
		if i < len(record) {
			values[name] = record[i]
		} else {
			values[name] = ""
		}
	}
	dropped := 0
	if len(record) > len(header) {
		dropped = len(record) - len(header)
	}
	return Row{Line: line, Header: header, Values: values}, dropped
}

// Get returns the value for a field and whether the row has that field
func (r Row) Get(field string) (string, bool) {
	v, ok := r.Values[field]
	return v, ok
}

// String identifies the row in console output
func (r Row) String() string {
	return fmt.Sprintf("row %d", r.Line)
}
