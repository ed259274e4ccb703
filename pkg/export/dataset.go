package export

import "fmt"

// Dataset defines tabular export content.
type Dataset struct {
	Title   string
	Headers []string
	Rows    []map[string]string
}

func (d Dataset) validate(format string) error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("%s requires at least one header", format)
	}
	return nil
}

// Grid is a weekly matrix: one row per day, one column per timeslot.
type Grid struct {
	RowLabels    []string
	ColumnLabels []string
	// Cells is indexed [row][column]; empty strings render as blanks.
	Cells [][]string
}

func (g Grid) cell(row, col int) string {
	if row < len(g.Cells) && col < len(g.Cells[row]) {
		return g.Cells[row][col]
	}
	return ""
}
