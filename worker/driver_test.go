package worker

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andys/svgbatch/config"
	"github.com/andys/svgbatch/dataset"
	"github.com/andys/svgbatch/render"
	"github.com/frankban/quicktest"
)

const badgeTemplate = `<svg xmlns="http://www.w3.org/2000/svg"><text>{{ name }}</text><text>{{ title }}</text></svg>`

func newTestDriver(c *quicktest.C, text string) (*Driver, *config.Config, *bytes.Buffer, *bytes.Buffer) {
	tpl, err := render.Compile("badge.svg", text)
	c.Assert(err, quicktest.IsNil)

	cfg := config.Default()
	cfg.TemplatePath = "badge.svg"
	cfg.OutputDir = c.TempDir()

	var out, errOut bytes.Buffer
	return NewDriver(tpl, &cfg, &out, &errOut), &cfg, &out, &errOut
}

func rowsFrom(c *quicktest.C, csv string) []dataset.Row {
	rows, err := dataset.ParseCSV(strings.NewReader(csv))
	c.Assert(err, quicktest.IsNil)
	return rows
}

func readOutput(c *quicktest.C, dir, name string) string {
	content, err := os.ReadFile(filepath.Join(dir, name))
	c.Assert(err, quicktest.IsNil)
	return string(content)
}

func listOutput(c *quicktest.C, dir string) []string {
	entries, err := os.ReadDir(dir)
	c.Assert(err, quicktest.IsNil)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestRun_WritesOneFilePerRow(t *testing.T) {
	c := quicktest.New(t)
	driver, cfg, out, _ := newTestDriver(c, badgeTemplate)
	rows := rowsFrom(c, "name,title\nAlice Smith,Engineer\nBob Jones,Designer\nCarol,Manager\n")

	report, err := driver.Run(context.Background(), rows)
	c.Assert(err, quicktest.IsNil)
	c.Assert(report.Err(), quicktest.IsNil)
	c.Assert(report.Written, quicktest.HasLen, 3)
	c.Assert(report.Failed, quicktest.HasLen, 0)

	c.Assert(listOutput(c, cfg.OutputDir), quicktest.DeepEquals, []string{"Alice_Smith.svg", "Bob_Jones.svg", "Carol.svg"})
	c.Assert(readOutput(c, cfg.OutputDir, "Bob_Jones.svg"), quicktest.Equals,
		`<svg xmlns="http://www.w3.org/2000/svg"><text>Bob Jones</text><text>Designer</text></svg>`)

	c.Assert(out.String(), quicktest.Equals, strings.Join([]string{
		"Generated SVG for Alice Smith: " + filepath.Join(cfg.OutputDir, "Alice_Smith.svg"),
		"Generated SVG for Bob Jones: " + filepath.Join(cfg.OutputDir, "Bob_Jones.svg"),
		"Generated SVG for Carol: " + filepath.Join(cfg.OutputDir, "Carol.svg"),
	}, "\n")+"\n")

	progress := driver.GetProgress()
	c.Assert(progress.TotalRows, quicktest.Equals, int64(3))
	c.Assert(progress.ProcessedRows.Load(), quicktest.Equals, int64(3))
	c.Assert(progress.ErrorCount.Load(), quicktest.Equals, int64(0))
}

func TestRun_EmptyNameIsSkipped(t *testing.T) {
	c := quicktest.New(t)
	driver, cfg, _, _ := newTestDriver(c, badgeTemplate)
	rows := rowsFrom(c, "name,title\nAlice,Engineer\n,Designer\nCarol,Manager\n")

	report, err := driver.Run(context.Background(), rows)
	c.Assert(err, quicktest.IsNil)
	c.Assert(report.Err(), quicktest.IsNil)
	c.Assert(listOutput(c, cfg.OutputDir), quicktest.DeepEquals, []string{"Alice.svg", "Carol.svg"})
	c.Assert(report.Failed, quicktest.HasLen, 1)
	c.Assert(report.Failed[0].Row, quicktest.Equals, 2)

	var missing *RowFieldMissingError
	c.Assert(errors.As(report.Failed[0].Err, &missing), quicktest.IsTrue)
	c.Assert(missing.Empty, quicktest.IsTrue)

	var summary bytes.Buffer
	report.PrintSummary(&summary)
	c.Assert(summary.String(), quicktest.Equals,
		"Generated 2 of 3 SVG files, 1 failed:\n  row 2: field \"name\" gives an empty file name (name \"\")\n")
}

func TestRun_NameThatSanitizesToNothingIsSkipped(t *testing.T) {
	c := quicktest.New(t)
	driver, cfg, _, _ := newTestDriver(c, badgeTemplate)
	rows := rowsFrom(c, "name,title\n(!!),Engineer\nDan,Writer\n")

	report, err := driver.Run(context.Background(), rows)
	c.Assert(err, quicktest.IsNil)
	c.Assert(report.Failed, quicktest.HasLen, 1)
	c.Assert(report.Failed[0].Name, quicktest.Equals, "(!!)")
	c.Assert(listOutput(c, cfg.OutputDir), quicktest.DeepEquals, []string{"Dan.svg"})
}

func TestRun_MissingNamingField(t *testing.T) {
	c := quicktest.New(t)
	driver, cfg, _, _ := newTestDriver(c, "<text>{{ title }}</text>")
	rows := []dataset.Row{
		{Line: 1, Header: []string{"name", "title"}, Values: map[string]string{"name": "Alice", "title": "Engineer"}},
		{Line: 2, Header: []string{"title"}, Values: map[string]string{"title": "Ghost"}},
		{Line: 3, Header: []string{"name", "title"}, Values: map[string]string{"name": "Carol", "title": "Manager"}},
	}

	report, err := driver.Run(context.Background(), rows)
	c.Assert(err, quicktest.IsNil)
	c.Assert(listOutput(c, cfg.OutputDir), quicktest.DeepEquals, []string{"Alice.svg", "Carol.svg"})
	c.Assert(report.Failed, quicktest.HasLen, 1)
	c.Assert(report.Failed[0].Err, quicktest.ErrorMatches, `row 2: missing field "name"`)
	c.Assert(driver.GetProgress().ErrorCount.Load(), quicktest.Equals, int64(1))
}

func TestRun_MissingPlaceholderField(t *testing.T) {
	c := quicktest.New(t)
	driver, cfg, _, errOut := newTestDriver(c, "{{ name }} {{ company }} {{ city }}")
	cfg.Verbose = true
	rows := rowsFrom(c, "name,title\nAlice,Engineer\n")

	report, err := driver.Run(context.Background(), rows)
	c.Assert(err, quicktest.IsNil)
	c.Assert(report.Failed, quicktest.HasLen, 1)
	c.Assert(report.Failed[0].Err, quicktest.ErrorMatches, `row 1: missing field "company", "city"`)
	c.Assert(errOut.String(), quicktest.Equals, "Skipping: row 1: missing field \"company\", \"city\"\n")
	c.Assert(report.Err(), quicktest.ErrorMatches, `no files generated, all 1 rows failed: .*`)
	c.Assert(listOutput(c, cfg.OutputDir), quicktest.HasLen, 0)
}

func TestRun_CollisionLastRowWins(t *testing.T) {
	c := quicktest.New(t)
	driver, cfg, _, _ := newTestDriver(c, badgeTemplate)
	rows := rowsFrom(c, "name,title\nAlice Smith,Engineer\nAlice  Smith!,Director\n")

	report, err := driver.Run(context.Background(), rows)
	c.Assert(err, quicktest.IsNil)
	c.Assert(report.Written, quicktest.HasLen, 2)
	c.Assert(listOutput(c, cfg.OutputDir), quicktest.DeepEquals, []string{"Alice_Smith.svg"})
	c.Assert(readOutput(c, cfg.OutputDir, "Alice_Smith.svg"), quicktest.Equals,
		`<svg xmlns="http://www.w3.org/2000/svg"><text>Alice  Smith!</text><text>Director</text></svg>`)
}

func TestRun_OverwritesExistingFile(t *testing.T) {
	c := quicktest.New(t)
	driver, cfg, _, _ := newTestDriver(c, "{{ name }}")
	path := filepath.Join(cfg.OutputDir, "Alice.svg")
	c.Assert(os.WriteFile(path, []byte("an older and much longer file"), 0o644), quicktest.IsNil)

	_, err := driver.Run(context.Background(), rowsFrom(c, "name\nAlice\n"))
	c.Assert(err, quicktest.IsNil)
	c.Assert(readOutput(c, cfg.OutputDir, "Alice.svg"), quicktest.Equals, "Alice")
}

func TestRun_WriteFailureContinues(t *testing.T) {
	c := quicktest.New(t)
	driver, cfg, out, _ := newTestDriver(c, "{{ name }}")
	diskFull := errors.New("no space left on device")
	driver.writeFile = func(name string, data []byte, perm os.FileMode) error {
		if strings.HasSuffix(name, "Bob.svg") {
			return diskFull
		}
		return os.WriteFile(name, data, perm)
	}

	report, err := driver.Run(context.Background(), rowsFrom(c, "name\nAlice\nBob\nCarol\n"))
	c.Assert(err, quicktest.IsNil)
	c.Assert(report.Failed, quicktest.HasLen, 1)

	var writeErr *OutputWriteError
	c.Assert(errors.As(report.Failed[0].Err, &writeErr), quicktest.IsTrue)
	c.Assert(writeErr.Path, quicktest.Equals, filepath.Join(cfg.OutputDir, "Bob.svg"))
	c.Assert(errors.Is(report.Failed[0].Err, diskFull), quicktest.IsTrue)
	c.Assert(listOutput(c, cfg.OutputDir), quicktest.DeepEquals, []string{"Alice.svg", "Carol.svg"})
	c.Assert(strings.Count(out.String(), "\n"), quicktest.Equals, 2)
}

func TestRun_Cancelled(t *testing.T) {
	c := quicktest.New(t)
	driver, cfg, _, _ := newTestDriver(c, "{{ name }}")
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	driver.writeFile = func(name string, data []byte, perm os.FileMode) error {
		calls++
		cancel()
		return os.WriteFile(name, data, perm)
	}

	report, err := driver.Run(ctx, rowsFrom(c, "name\nAlice\nBob\n"))
	c.Assert(errors.Is(err, context.Canceled), quicktest.IsTrue)
	c.Assert(calls, quicktest.Equals, 1)
	c.Assert(report.Written, quicktest.HasLen, 1)
	c.Assert(report.Cancelled, quicktest.IsTrue)
	c.Assert(listOutput(c, cfg.OutputDir), quicktest.DeepEquals, []string{"Alice.svg"})

	var summary bytes.Buffer
	report.PrintSummary(&summary)
	c.Assert(summary.String(), quicktest.Equals, "Generated 1 of 2 SVG files, 0 failed, cancelled with 1 rows left.\n")
}

func TestRun_NoRows(t *testing.T) {
	c := quicktest.New(t)
	driver, _, _, _ := newTestDriver(c, "{{ name }}")

	report, err := driver.Run(context.Background(), nil)
	c.Assert(err, quicktest.IsNil)
	c.Assert(report.Err(), quicktest.IsNil)

	var summary bytes.Buffer
	report.PrintSummary(&summary)
	c.Assert(summary.String(), quicktest.Equals, "All 0 SVG files have been generated successfully.\n")
}

func TestRun_CustomNameFieldAndExtension(t *testing.T) {
	c := quicktest.New(t)
	tpl, err := render.Compile("card", "<p>{{ full_name }}</p>")
	c.Assert(err, quicktest.IsNil)

	cfg := config.Default()
	cfg.TemplatePath = "card"
	cfg.OutputDir = c.TempDir()
	cfg.NameField = "full_name"
	cfg.Extension = "html"

	var out bytes.Buffer
	report, err := NewDriver(tpl, &cfg, &out, &out).Run(context.Background(), rowsFrom(c, "full_name\nAda Lovelace\n"))
	c.Assert(err, quicktest.IsNil)
	c.Assert(report.Label, quicktest.Equals, "HTML")
	c.Assert(readOutput(c, cfg.OutputDir, "Ada_Lovelace.html"), quicktest.Equals, "<p>Ada Lovelace</p>")
}

func TestRun_HeadersThatAreNotIdentifiers(t *testing.T) {
	c := quicktest.New(t)
	driver, cfg, _, _ := newTestDriver(c, "<text>{{ name }}</text>")
	rows := rowsFrom(c, "name,first name,e-mail\nAl Smith,Al,al@example.com\nBea Jones,Bea,bea@example.com\n")

	report, err := driver.Run(context.Background(), rows)
	c.Assert(err, quicktest.IsNil)
	c.Assert(report.Failed, quicktest.HasLen, 0)
	c.Assert(report.Written, quicktest.HasLen, 2)
	c.Assert(readOutput(c, cfg.OutputDir, "Bea_Jones.svg"), quicktest.Equals, "<text>Bea Jones</text>")
}
