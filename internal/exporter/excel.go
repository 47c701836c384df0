package exporter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// ExcelWriter writes all result tables into one workbook, one sheet per
// table, for readers who want the study results in a single file.
type ExcelWriter struct {
	outputDir string
}

// NewExcelWriter creates an Excel writer rooted at the output directory
func NewExcelWriter(outputDir string) *ExcelWriter {
	return &ExcelWriter{outputDir: outputDir}
}

// WriteWorkbook writes the tables into results.xlsx
func (w *ExcelWriter) WriteWorkbook(tables []table) error {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, t := range tables {
		sheet := t.Name
		if i == 0 {
			// Rename the default sheet instead of leaving it empty
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return fmt.Errorf("create sheet %s: %w", sheet, err)
			}
		}

		if err := writeSheet(f, sheet, t); err != nil {
			return err
		}
	}

	path := filepath.Join(w.outputDir, "results.xlsx")
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, t table) error {
	for col, h := range t.Headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write header %s: %w", h, err)
		}
	}
	for row, record := range t.Records {
		for col, v := range record {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return fmt.Errorf("record cell: %w", err)
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write record %d: %w", row, err)
			}
		}
	}
	return nil
}
