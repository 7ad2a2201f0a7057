package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// NoticeDocument is the printable projection of a notice.
type NoticeDocument struct {
	Title      string
	Category   string
	Department string
	Author     string
	CreatedAt  time.Time
	Content    string
}

// PDFExporter renders notices into a single-column A4 document.
type PDFExporter struct {
	location *time.Location
}

// NewPDFExporter constructs a PDF exporter. Timestamps are printed in loc (UTC when nil).
func NewPDFExporter(loc *time.Location) *PDFExporter {
	if loc == nil {
		loc = time.UTC
	}
	return &PDFExporter{location: loc}
}

// RenderNotice creates a PDF with the notice header block followed by its body.
func (e *PDFExporter) RenderNotice(doc NoticeDocument) ([]byte, error) {
	if strings.TrimSpace(doc.Title) == "" {
		return nil, fmt.Errorf("pdf requires a title")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle(doc.Title, true)
	pdf.SetAuthor(doc.Author, true)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.MultiCell(0, 9, tr(doc.Title), "", "L", false)
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Category: %s    Department: %s", doc.Category, doc.Department)), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 6, tr("Posted by: "+doc.Author), "", 1, "", false, 0, "")
	if !doc.CreatedAt.IsZero() {
		pdf.CellFormat(0, 6, "Date: "+doc.CreatedAt.In(e.location).Format("2006-01-02 15:04 MST"), "", 1, "", false, 0, "")
	}
	pdf.Ln(3)
	x, y := pdf.GetXY()
	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	pdf.Line(x, y, pageWidth-right, y)
	pdf.SetX(left)
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 12)
	pdf.MultiCell(0, 6, tr(doc.Content), "", "L", false)

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
