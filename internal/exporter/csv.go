package exporter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// CSVWriter writes result tables under the configured output directory
type CSVWriter struct {
	outputDir string
}

// NewCSVWriter creates a CSV writer rooted at the output directory
func NewCSVWriter(outputDir string) *CSVWriter {
	return &CSVWriter{outputDir: outputDir}
}

// WriteTable writes one table with a UTF-8 BOM so spreadsheet tools pick
// up the encoding.
func (w *CSVWriter) WriteTable(name string, headers []string, records [][]string) error {
	fullPath := filepath.Join(w.outputDir, name)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer file.Close()

	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("write headers: %w", err)
	}
	for i, record := range records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	return writer.Error()
}
