package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

const utf8BOM = "\uFEFF"

type csvOptions struct {
	delimiter rune
	comment   rune
	warn      io.Writer
}

// Option configures the CSV reader
type Option func(*csvOptions)

// WithDelimiter sets the field separator (default ',')
func WithDelimiter(r rune) Option {
	return func(o *csvOptions) {
		if r != 0 {
			o.delimiter = r
		}
	}
}

// WithComment makes lines starting with r be ignored
func WithComment(r rune) Option {
	return func(o *csvOptions) {
		o.comment = r
	}
}

// WithWarnings receives a line for every record whose width differs from the header
func WithWarnings(w io.Writer) Option {
	return func(o *csvOptions) {
		o.warn = w
	}
}

// ReadCSV reads a delimited file whose first record is the header
func ReadCSV(path string, opts ...Option) ([]Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &DatasetReadError{Source: path, Err: err}
	}
	defer file.Close()

	rows, err := ParseCSV(file, opts...)
	if err != nil {
		return nil, &DatasetReadError{Source: path, Err: err}
	}
	return rows, nil
}

// ParseCSV parses delimited records from r. Records shorter than the header are
// padded with empty values; values past the header width are dropped.
func ParseCSV(r io.Reader, opts ...Option) ([]Row, error) {
	o := csvOptions{delimiter: ','}
	for _, opt := range opts {
		opt(&o)
	}

	reader := csv.NewReader(r)
	reader.Comma = o.delimiter
	reader.Comment = o.comment
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return []Row{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	header = normalizeHeader(header)

	rows := make([]Row, 0)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record %d: %w", len(rows)+1, err)
		}

		row, dropped := NewRow(len(rows)+1, header, record)
		if o.warn != nil && (dropped > 0 || len(record) < len(header)) {
			fmt.Fprintf(o.warn, "%s has %d fields, header has %d\n", row, len(record), len(header))
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		out[i] = strings.TrimSpace(name)
	}
	return out
}
