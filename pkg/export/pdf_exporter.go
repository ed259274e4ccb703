package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const pdfPageWidth = 277.0 // A4 landscape minus margins

// PDFExporter renders a weekly grid followed by the flat entry table.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

func (e *PDFExporter) ContentType() string { return "application/pdf" }

func (e *PDFExporter) Extension() string { return "pdf" }

// Render creates a landscape PDF document. The grid page is skipped when grid
// has no columns.
func (e *PDFExporter) Render(data Dataset, grid Grid) ([]byte, error) {
	if err := data.validate("pdf"); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if len(grid.ColumnLabels) > 0 {
		pdf.AddPage()
		writeTitle(pdf, tr(data.Title))
		writeGrid(pdf, grid, tr)
	}

	pdf.AddPage()
	writeTitle(pdf, tr(data.Title))
	pdf.SetFont("Arial", "B", 9)
	colWidth := pdfPageWidth / float64(len(data.Headers))
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, tr(header), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	for _, row := range data.Rows {
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 7, tr(row[header]), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func writeTitle(pdf *gofpdf.Fpdf, title string) {
	if title == "" {
		return
	}
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
	pdf.Ln(3)
}

func writeGrid(pdf *gofpdf.Fpdf, grid Grid, tr func(string) string) {
	labelWidth := 28.0
	colWidth := (pdfPageWidth - labelWidth) / float64(len(grid.ColumnLabels))

	pdf.SetFont("Arial", "B", 8)
	pdf.CellFormat(labelWidth, 8, "", "1", 0, "C", false, 0, "")
	for _, label := range grid.ColumnLabels {
		pdf.CellFormat(colWidth, 8, tr(label), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	const lineHeight = 4.0
	for r, label := range grid.RowLabels {
		height := lineHeight * 2
		for c := range grid.ColumnLabels {
			lines := pdf.SplitLines([]byte(tr(grid.cell(r, c))), colWidth-2)
			if h := lineHeight * float64(len(lines)); h > height {
				height = h
			}
		}

		x, y := pdf.GetXY()
		pdf.SetFont("Arial", "B", 8)
		pdf.CellFormat(labelWidth, height, tr(label), "1", 0, "C", false, 0, "")
		pdf.SetFont("Arial", "", 7)
		for c := range grid.ColumnLabels {
			cx := x + labelWidth + float64(c)*colWidth
			pdf.Rect(cx, y, colWidth, height, "D")
			pdf.SetXY(cx+1, y+1)
			pdf.MultiCell(colWidth-2, lineHeight, tr(grid.cell(r, c)), "", "L", false)
		}
		pdf.SetXY(x, y+height)
	}
}
