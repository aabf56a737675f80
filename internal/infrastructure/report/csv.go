package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"colony-counter/internal/domain/entity"
)

// Header возвращает колонки: filename, count и дополнительные поля
// в порядке первого появления
func Header(rows []entity.ReportRow) []string {
	header := []string{"filename", "count"}
	seen := map[string]bool{"filename": true, "count": true}
	for _, r := range rows {
		for _, f := range r.Fields {
			if !seen[f.Name] {
				seen[f.Name] = true
				header = append(header, f.Name)
			}
		}
	}
	return header
}

// WriteCSV пишет отчёт; при пустом списке пишется только заголовок
func WriteCSV(w io.Writer, rows []entity.ReportRow) error {
	header := Header(rows)
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, r := range rows {
		values := make(map[string]string, len(r.Fields)+2)
		for _, f := range r.Fields {
			values[f.Name] = f.Value
		}
		values["filename"] = r.Filename
		values["count"] = strconv.Itoa(r.Count)

		record := make([]string, len(header))
		for i, col := range header {
			record[i] = values[col]
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row %s: %w", r.Filename, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile пишет отчёт в файл, создавая родительские каталоги
func WriteFile(path string, rows []entity.ReportRow) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := WriteCSV(f, rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
