package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	gridSheet    = "Weekly"
	entriesSheet = "Entries"
)

// XLSXExporter renders a workbook with a weekly grid sheet and a flat
// entries sheet.
type XLSXExporter struct{}

// NewXLSXExporter constructs an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (e *XLSXExporter) Extension() string { return "xlsx" }

// Render builds the workbook bytes.
func (e *XLSXExporter) Render(data Dataset, grid Grid) ([]byte, error) {
	if err := data.validate("xlsx"); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("xlsx header style: %w", err)
	}
	cellStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return nil, fmt.Errorf("xlsx cell style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", gridSheet); err != nil {
		return nil, fmt.Errorf("xlsx rename sheet: %w", err)
	}
	if err := writeGridSheet(f, grid, headerStyle, cellStyle); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(entriesSheet); err != nil {
		return nil, fmt.Errorf("xlsx new sheet: %w", err)
	}
	if err := writeEntriesSheet(f, data, headerStyle); err != nil {
		return nil, err
	}
	f.SetActiveSheet(0)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func writeGridSheet(f *excelize.File, grid Grid, headerStyle, cellStyle int) error {
	if err := f.SetColWidth(gridSheet, "A", "A", 14); err != nil {
		return fmt.Errorf("xlsx col width: %w", err)
	}
	for c, label := range grid.ColumnLabels {
		col := colName(c + 1)
		if err := f.SetColWidth(gridSheet, col, col, 26); err != nil {
			return fmt.Errorf("xlsx col width: %w", err)
		}
		if err := f.SetCellValue(gridSheet, cell(col, 1), label); err != nil {
			return fmt.Errorf("xlsx grid header: %w", err)
		}
	}
	if len(grid.ColumnLabels) > 0 {
		if err := f.SetCellStyle(gridSheet, "A1", cell(colName(len(grid.ColumnLabels)), 1), headerStyle); err != nil {
			return fmt.Errorf("xlsx grid header style: %w", err)
		}
	}

	for r, label := range grid.RowLabels {
		row := r + 2
		if err := f.SetCellValue(gridSheet, cell("A", row), label); err != nil {
			return fmt.Errorf("xlsx grid label: %w", err)
		}
		for c := range grid.ColumnLabels {
			if err := f.SetCellValue(gridSheet, cell(colName(c+1), row), grid.cell(r, c)); err != nil {
				return fmt.Errorf("xlsx grid cell: %w", err)
			}
		}
		if len(grid.ColumnLabels) > 0 {
			if err := f.SetCellStyle(gridSheet, cell("B", row), cell(colName(len(grid.ColumnLabels)), row), cellStyle); err != nil {
				return fmt.Errorf("xlsx grid cell style: %w", err)
			}
		}
	}
	return nil
}

func writeEntriesSheet(f *excelize.File, data Dataset, headerStyle int) error {
	for c, header := range data.Headers {
		col := colName(c)
		if err := f.SetCellValue(entriesSheet, cell(col, 1), header); err != nil {
			return fmt.Errorf("xlsx header: %w", err)
		}
		if err := f.SetColWidth(entriesSheet, col, col, 18); err != nil {
			return fmt.Errorf("xlsx col width: %w", err)
		}
	}
	last := colName(len(data.Headers) - 1)
	if err := f.SetCellStyle(entriesSheet, "A1", cell(last, 1), headerStyle); err != nil {
		return fmt.Errorf("xlsx header style: %w", err)
	}

	for r, row := range data.Rows {
		for c, header := range data.Headers {
			if err := f.SetCellValue(entriesSheet, cell(colName(c), r+2), row[header]); err != nil {
				return fmt.Errorf("xlsx row: %w", err)
			}
		}
	}

	if len(data.Rows) > 0 {
		if err := f.AutoFilter(entriesSheet, "A1:"+cell(last, len(data.Rows)+1), nil); err != nil {
			return fmt.Errorf("xlsx autofilter: %w", err)
		}
	}
	return nil
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
