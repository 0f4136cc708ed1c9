package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// CredentialCard is one student's printable login card.
type CredentialCard struct {
	Name       string
	RollNumber string
	Username   string
	Password   string
	QRPNG      []byte
}

// PDFExporter renders tables and credential cards into PDF documents.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Columns) == 0 {
		return nil, errNoColumns
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()
	writeTitle(pdf, title)

	pdf.SetFont("Arial", "B", 10)
	colWidth := 190.0 / float64(len(data.Columns))
	for _, label := range data.Labels() {
		pdf.CellFormat(colWidth, 8, label, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for _, cell := range data.record(row) {
			pdf.CellFormat(colWidth, 7, cell, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	return output(pdf)
}

// RenderCards lays out credential cards two per row, each with its QR image.
func (e *PDFExporter) RenderCards(cards []CredentialCard, title string) ([]byte, error) {
	if len(cards) == 0 {
		return nil, fmt.Errorf("pdf requires at least one card")
	}
	const (
		cardW   = 92.0
		cardH   = 52.0
		qrSize  = 40.0
		gutter  = 6.0
		perPage = 10
	)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(false, 10)

	for i, card := range cards {
		slot := i % perPage
		if slot == 0 {
			pdf.AddPage()
			writeTitle(pdf, title)
		}
		x := 10 + float64(slot%2)*(cardW+gutter)
		y := 30 + float64(slot/2)*(cardH+4)

		pdf.Rect(x, y, cardW, cardH, "D")
		if len(card.QRPNG) > 0 {
			name := fmt.Sprintf("qr-%d", i)
			opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
			pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(card.QRPNG))
			pdf.ImageOptions(name, x+2, y+6, qrSize, qrSize, false, opts, 0, "")
		}

		textX := x + qrSize + 6
		pdf.SetXY(textX, y+8)
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(cardW-qrSize-8, 6, card.Name, "", 2, "", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(cardW-qrSize-8, 6, "Roll: "+card.RollNumber, "", 2, "", false, 0, "")
		pdf.CellFormat(cardW-qrSize-8, 6, "User: "+card.Username, "", 2, "", false, 0, "")
		if card.Password != "" {
			pdf.CellFormat(cardW-qrSize-8, 6, "Pass: "+card.Password, "", 2, "", false, 0, "")
		}
	}

	return output(pdf)
}

func writeTitle(pdf *gofpdf.Fpdf, title string) {
	if title == "" {
		return
	}
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
	pdf.Ln(5)
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
