package worker

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/andys/svgbatch/config"
	"github.com/andys/svgbatch/dataset"
	"github.com/andys/svgbatch/render"
)

// Progress tracks the progress of row processing
type Progress struct {
	TotalRows     int64
	ProcessedRows atomic.Int64
	ErrorCount    atomic.Int64
	StartTime     time.Time
}

// Written describes one generated file
type Written struct {
	Row  int
	Name string
	Path string
}

// Failure describes one row that produced no file
type Failure struct {
	Row  int
	Name string
	Err  error
}

// Report is the outcome of a run
type Report struct {
	Total     int
	Written   []Written
	Failed    []Failure
	Label     string
	Cancelled bool
}

// Err returns an error only when there were rows and none of them was written
func (r *Report) Err() error {
	if r.Total == 0 || len(r.Written) > 0 {
		return nil
	}
	return fmt.Errorf("no files generated, all %d rows failed: %w", r.Total, r.Failed[0].Err)
}

// PrintSummary writes the final summary line and lists every failure
func (r *Report) PrintSummary(w io.Writer) {
	if len(r.Written) == r.Total {
		fmt.Fprintf(w, "All %d %s files have been generated successfully.\n", len(r.Written), r.Label)
		return
	}
	fmt.Fprintf(w, "Generated %d of %d %s files, %d failed", len(r.Written), r.Total, r.Label, len(r.Failed))
	if r.Cancelled {
		skipped := r.Total - len(r.Written) - len(r.Failed)
		fmt.Fprintf(w, ", cancelled with %d rows left", skipped)
	}
	if len(r.Failed) == 0 {
		fmt.Fprintln(w, ".")
		return
	}
	fmt.Fprintln(w, ":")
	for _, f := range r.Failed {
		fmt.Fprintf(w, "  %v (name %q)\n", f.Err, f.Name)
	}
}

// Driver renders rows through a compiled template and writes one file per row
type Driver struct {
	tpl       *render.Template
	cfg       *config.Config
	ext       string
	out       io.Writer
	errOut    io.Writer
	progress  *Progress
	writeFile func(name string, data []byte, perm os.FileMode) error
}

// NewDriver creates a driver writing into cfg.OutputDir. Progress lines go to
// out, verbose and debug output to errOut.
func NewDriver(tpl *render.Template, cfg *config.Config, out, errOut io.Writer) *Driver {
	return &Driver{
		tpl:    tpl,
		cfg:    cfg,
		ext:    cfg.OutputExtension(),
		out:    out,
		errOut: errOut,
		progress: &Progress{
			StartTime: time.Now(),
		},
		writeFile: os.WriteFile,
	}
}

// GetProgress returns the current progress
func (d *Driver) GetProgress() *Progress {
	return d.progress
}

// Run processes rows in order. A failing row is recorded and skipped. The
// context is checked between rows; on cancellation the partial report is
// returned together with the error.
func (d *Driver) Run(ctx context.Context, rows []dataset.Row) (*Report, error) {
	d.progress.TotalRows = int64(len(rows))
	report := &Report{
		Total:   len(rows),
		Written: make([]Written, 0, len(rows)),
		Label:   strings.ToUpper(strings.TrimPrefix(d.ext, ".")),
	}

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			report.Cancelled = true
			return report, fmt.Errorf("run cancelled after %d of %d rows: %w", i, len(rows), err)
		}

		name, _ := row.Get(d.cfg.NameField)
		written, err := d.processRow(row)
		if err != nil {
			d.progress.ErrorCount.Add(1)
			report.Failed = append(report.Failed, Failure{Row: row.Line, Name: name, Err: err})
			if d.cfg.Verbose || d.cfg.Debug {
				fmt.Fprintf(d.errOut, "Skipping: %v\n", err)
			}
			continue
		}

		d.progress.ProcessedRows.Add(1)
		report.Written = append(report.Written, written)
		fmt.Fprintf(d.out, "Generated %s for %s: %s\n", report.Label, name, written.Path)
	}

	return report, nil
}

// processRow renders a single row and writes it to its output path
func (d *Driver) processRow(row dataset.Row) (Written, error) {
	name, ok := row.Get(d.cfg.NameField)
	if !ok {
		return Written{}, &RowFieldMissingError{Row: row.Line, Fields: []string{d.cfg.NameField}}
	}
	if missing := d.tpl.Missing(row.Values); len(missing) > 0 {
		return Written{}, &RowFieldMissingError{Row: row.Line, Fields: missing}
	}

	safeName := SanitizeName(name)
	if safeName == "" {
		return Written{}, &RowFieldMissingError{Row: row.Line, Fields: []string{d.cfg.NameField}, Empty: true}
	}

	content, err := d.tpl.Render(row.Values)
	if err != nil {
		return Written{}, fmt.Errorf("row %d: %w", row.Line, err)
	}

	path := OutputPath(d.cfg.OutputDir, safeName, d.ext)
	if d.cfg.Debug {
		fmt.Fprintf(d.errOut, "%s: rendered %d bytes to %s\n", rowLabel(row.Line), len(content), path)
	}
	if err := d.writeFile(path, []byte(content), 0o644); err != nil {
		return Written{}, &OutputWriteError{Row: row.Line, Path: path, Err: err}
	}

	return Written{Row: row.Line, Name: name, Path: path}, nil
}

func rowLabel(line int) string {
	return fmt.Sprintf("row %d", line)
}
