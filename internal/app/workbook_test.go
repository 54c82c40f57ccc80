package app_test

import "rms_sync/internal/domain"

// fakeWorkbook serves in-memory grids as sheets.
type fakeWorkbook struct {
	sheets []string
	grids  map[string][][]string
	closed bool
}

func (f *fakeWorkbook) Sheets() []string { return f.sheets }

func (f *fakeWorkbook) Rows(sheet string) ([][]string, error) {
	return f.grids[sheet], nil
}

func (f *fakeWorkbook) Close() error {
	f.closed = true
	return nil
}

var _ domain.Workbook = (*fakeWorkbook)(nil)
