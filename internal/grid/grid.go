// Package grid provides bounds-safe access over the rectangular cell
// grids returned by the workbook reader. Sheets are ragged: excelize
// trims trailing empty cells, so every read goes through Cell.
package grid

import "strings"

// Cell returns the trimmed value at (row, col), or "" when the
// coordinates fall outside the grid.
func Cell(rows [][]string, r, c int) string {
	if r < 0 || r >= len(rows) {
		return ""
	}
	row := rows[r]
	if c < 0 || c >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[c])
}

// LastColumn scans a header row rightward from start and returns the
// index one past the last non-blank header. Report column counts vary
// file to file (competitor sets differ per workbook).
func LastColumn(header []string, start int) int {
	end := start
	for c := start; c < len(header); c++ {
		if strings.TrimSpace(header[c]) != "" {
			end = c + 1
		}
	}
	return end
}

// Empty reports whether every cell of the row is blank after trimming.
func Empty(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// EmptySpan reports whether cells [from, to) of row r are all blank.
func EmptySpan(rows [][]string, r, from, to int) bool {
	for c := from; c < to; c++ {
		if Cell(rows, r, c) != "" {
			return false
		}
	}
	return true
}
