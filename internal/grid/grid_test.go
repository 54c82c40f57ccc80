package grid_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rms_sync/internal/grid"
)

func TestCell(t *testing.T) {
	rows := [][]string{
		{"a", " b "},
		{"c"},
	}
	assert.Equal(t, "a", grid.Cell(rows, 0, 0))
	assert.Equal(t, "b", grid.Cell(rows, 0, 1))
	assert.Equal(t, "", grid.Cell(rows, 1, 1), "ragged row")
	assert.Equal(t, "", grid.Cell(rows, 5, 0), "row out of range")
	assert.Equal(t, "", grid.Cell(rows, 0, -1))
}

func TestLastColumn(t *testing.T) {
	header := []string{"", "", "", "16/01", "17/01", "", "18/01", ""}
	assert.Equal(t, 7, grid.LastColumn(header, 3))
	assert.Equal(t, 3, grid.LastColumn([]string{"a", "b"}, 3), "nothing past start")
}

func TestEmpty(t *testing.T) {
	assert.True(t, grid.Empty(nil))
	assert.True(t, grid.Empty([]string{"", "  ", "\t"}))
	assert.False(t, grid.Empty([]string{"", "x"}))
}

func TestEmptySpan(t *testing.T) {
	rows := [][]string{{"", "", "x"}}
	assert.True(t, grid.EmptySpan(rows, 0, 0, 2))
	assert.False(t, grid.EmptySpan(rows, 0, 0, 3))
	assert.True(t, grid.EmptySpan(rows, 0, 3, 9), "out of range is blank")
}
