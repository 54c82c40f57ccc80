// Package xlsx adapts excelize to the workbook port. Cells are read
// raw: date cells surface as their serial value, numbers keep the
// locale formatting the author typed. Interpretation belongs to the
// coercion layer, not the reader.
package xlsx

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"rms_sync/internal/domain"
)

type Workbook struct{ f *excelize.File }

// Open opens a workbook by path. The returned handle must be closed.
func Open(path string) (domain.Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return &Workbook{f: f}, nil
}

func (w *Workbook) Sheets() []string { return w.f.GetSheetList() }

func (w *Workbook) Rows(sheet string) ([][]string, error) {
	return w.f.GetRows(sheet, excelize.Options{RawCellValue: true})
}

func (w *Workbook) Close() error { return w.f.Close() }
