package xlsx_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"rms_sync/internal/adapters/xlsx"
)

func writeWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", "Tarifs"))
	require.NoError(t, f.SetCellValue("Tarifs", "A1", "Date"))
	require.NoError(t, f.SetCellValue("Tarifs", "B1", "Hotel Y"))
	require.NoError(t, f.SetCellValue("Tarifs", "A2", "16/01/2026"))
	require.NoError(t, f.SetCellValue("Tarifs", "B2", "99,90"))

	path := filepath.Join(t.TempDir(), "ota.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func TestOpen(t *testing.T) {
	wb, err := xlsx.Open(writeWorkbook(t))
	require.NoError(t, err)
	defer wb.Close()

	assert.Equal(t, []string{"Tarifs"}, wb.Sheets())

	rows, err := wb.Rows("Tarifs")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Date", "Hotel Y"}, rows[0])
	assert.Equal(t, "99,90", rows[1][1], "cell text comes back verbatim")
}

func TestOpenMissingFile(t *testing.T) {
	_, err := xlsx.Open(filepath.Join(t.TempDir(), "absent.xlsx"))
	assert.Error(t, err)
}
