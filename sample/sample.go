// Package sample builds fake datasets for previewing a template without real data.
package sample

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/andys/svgbatch/dataset"
	"github.com/andys/svgbatch/render"
)

// Fields returns the fields a sample dataset needs for template text: the
// naming field first, then every placeholder in order of first use
func Fields(text, nameField string) []string {
	fields := []string{nameField}
	for _, name := range render.Placeholders(text) {
		if name != nameField {
			fields = append(fields, name)
		}
	}
	return fields
}

// Generate returns n rows with a fake value for every field. The same seed
// always yields the same rows; seed 0 picks a random one.
func Generate(fields []string, n int, seed uint64) []dataset.Row {
	faker := gofakeit.New(seed)
	rows := make([]dataset.Row, 0, n)
	for i := 0; i < n; i++ {
		record := make([]string, len(fields))
		for j, field := range fields {
			record[j] = fakeValue(faker, field)
		}
		row, _ := dataset.NewRow(i+1, fields, record)
		rows = append(rows, row)
	}
	return rows
}

// fakeValue picks a generator from the field name
func fakeValue(f *gofakeit.Faker, field string) string {
	key := strings.ToLower(field)
	switch {
	case key == "name" || key == "full_name" || key == "fullname":
		return f.Name()
	case strings.Contains(key, "first"):
		return f.FirstName()
	case strings.Contains(key, "last") || strings.Contains(key, "surname"):
		return f.LastName()
	case strings.Contains(key, "email"):
		return f.Email()
	case strings.Contains(key, "phone"):
		return f.Phone()
	case strings.Contains(key, "company") || strings.Contains(key, "org"):
		return f.Company()
	case strings.Contains(key, "title") || strings.Contains(key, "job") || strings.Contains(key, "role"):
		return f.JobTitle()
	case strings.Contains(key, "city"):
		return f.City()
	case strings.Contains(key, "street") || strings.Contains(key, "address"):
		return f.Street()
	case strings.Contains(key, "country"):
		return f.Country()
	case strings.Contains(key, "date") || strings.HasSuffix(key, "_at"):
		return f.Date().Format("2006-01-02")
	case key == "id" || strings.HasSuffix(key, "_id") || strings.Contains(key, "number"):
		return strconv.Itoa(f.Number(1, 99999))
	case strings.Contains(key, "url") || strings.Contains(key, "website"):
		return f.URL()
	case strings.Contains(key, "color") || strings.Contains(key, "colour"):
		return f.Color()
	default:
		return f.Word()
	}
}

// WriteCSV writes rows as a header line followed by one record per row,
// separated by comma
func WriteCSV(w io.Writer, fields []string, rows []dataset.Row, comma rune) error {
	writer := csv.NewWriter(w)
	writer.Comma = comma
	if err := writer.Write(fields); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range rows {
		record := make([]string, len(fields))
		for i, field := range fields {
			record[i] = row.Values[field]
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write %s: %w", row, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
