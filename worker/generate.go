package worker

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/andys/svgbatch/config"
	"github.com/andys/svgbatch/dataset"
	"github.com/andys/svgbatch/render"
)

// Generate runs a whole batch: it creates the output directory, loads the
// template, reads the dataset, compiles the template and drives every row.
// Errors returned without a report are fatal and happen before any file is
// written.
func Generate(ctx context.Context, cfg *config.Config, out, errOut io.Writer) (*Report, error) {
	// The output directory is created up front, even if the run fails later
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", cfg.OutputDir, err)
	}

	text, err := render.Load(cfg.TemplatePath)
	if err != nil {
		return nil, err
	}

	rows, err := ReadRows(ctx, cfg, errOut)
	if err != nil {
		return nil, err
	}

	tpl, err := render.Compile(filepath.Base(cfg.TemplatePath), text)
	if err != nil {
		return nil, err
	}

	if cfg.Debug {
		fmt.Fprintf(errOut, "Loaded %d rows from %s, template references %v\n",
			len(rows), cfg.RedactedDataPath(), tpl.Placeholders())
	}

	return NewDriver(tpl, cfg, out, errOut).Run(ctx, rows)
}

// ReadRows materializes the configured dataset, from a delimited file or from
// a database URL
func ReadRows(ctx context.Context, cfg *config.Config, errOut io.Writer) ([]dataset.Row, error) {
	if cfg.IsSQL() {
		conn, err := dataset.Connect(ctx, cfg.DataPath)
		if err != nil {
			return nil, err
		}
		defer conn.Close()

		query := cfg.Query
		if query == "" {
			query = conn.TableQuery(cfg.Table)
		}
		return conn.ReadQuery(ctx, query)
	}

	delimiter, err := cfg.DelimiterRune()
	if err != nil {
		return nil, &dataset.DatasetReadError{Source: cfg.DataPath, Err: err}
	}
	opts := []dataset.Option{dataset.WithDelimiter(delimiter)}
	if cfg.Debug {
		opts = append(opts, dataset.WithWarnings(errOut))
	}
	return dataset.ReadCSV(cfg.DataPath, opts...)
}
