package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders datasets into a landscape table. Rows sharing the
// first column value are banded together so agenda days stand out.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ContentType is the MIME type of the rendered document.
func (e *PDFExporter) ContentType() string { return "application/pdf" }

// Render creates a PDF document with the dataset title and table body.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(10, 15, 10)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(data.Title), "", 1, "C", false, 0, "")
	}
	if data.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, tr(data.Subtitle), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	colWidth := (pageWidth - left - right) / float64(len(data.Headers))

	header := func() {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(220, 220, 220)
		for _, h := range data.Headers {
			pdf.CellFormat(colWidth, 8, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}
	header()

	if len(data.Rows) == 0 {
		pdf.CellFormat(colWidth*float64(len(data.Headers)), 8, "Nothing scheduled", "1", 1, "C", false, 0, "")
	}

	shaded := false
	group := ""
	_, pageHeight := pdf.GetPageSize()
	for i, row := range data.Rows {
		if len(row) > 0 && (i == 0 || row[0] != group) {
			if i > 0 {
				shaded = !shaded
			}
			group = row[0]
		}
		if pdf.GetY() > pageHeight-25 {
			pdf.AddPage()
			header()
		}
		if shaded {
			pdf.SetFillColor(245, 245, 245)
		}
		for j := range data.Headers {
			value := ""
			if j < len(row) {
				value = row[j]
			}
			pdf.CellFormat(colWidth, 7, tr(value), "1", 0, "", shaded, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
