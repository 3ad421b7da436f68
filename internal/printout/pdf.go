package printout

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

var pdfColumns = []struct {
	title string
	width float64
	align string
}{
	{"#", 8, "C"},
	{"Item", 46, "L"},
	{"HSN", 16, "C"},
	{"Qty", 12, "R"},
	{"Rate", 22, "R"},
	{"GST %", 14, "R"},
	{"Taxable", 24, "R"},
	{"GST", 20, "R"},
	{"Amount", 28, "R"},
}

// PDF draws the invoice on a single A4 page, adding pages when the item table
// overflows.
func PDF(doc Document) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+doc.InvoiceNumber, true)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 8, tr(doc.Shop.ShopName), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, line := range []string{doc.Shop.Address, doc.Shop.City, contactLine(doc), "GSTIN: " + doc.Shop.GSTNumber} {
		if strings.TrimSpace(line) == "" {
			continue
		}
		pdf.CellFormat(0, 5, tr(line), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(0, 7, tr("Tax Invoice "+doc.InvoiceNumber), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 5, tr("Date: "+doc.Date), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, tr(fmt.Sprintf("Customer: %s | Phone: %s", doc.CustomerName, doc.CustomerPhone)), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(235, 235, 235)
	for _, col := range pdfColumns {
		pdf.CellFormat(col.width, 7, col.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, line := range doc.Lines {
		values := []string{
			fmt.Sprintf("%d", line.No),
			line.Name,
			line.HSNCode,
			fmt.Sprintf("%d", line.Quantity),
			line.Rate,
			fmt.Sprintf("%d", line.GSTRate),
			line.Taxable,
			line.Tax,
			line.Amount,
		}
		for i, col := range pdfColumns {
			pdf.CellFormat(col.width, 6, tr(truncate(pdf, values[i], col.width-2)), "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(3)

	totals := [][2]string{
		{"Subtotal", doc.Subtotal},
		{"CGST", doc.CGST},
		{"SGST", doc.SGST},
		{"Total GST", doc.GSTAmount},
		{"Grand Total", doc.GrandTotal},
	}
	for i, row := range totals {
		if i == len(totals)-1 {
			pdf.SetFont("Arial", "B", 10)
		}
		pdf.CellFormat(140, 6, row[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(50, 6, row[1], "", 1, "R", false, 0, "")
	}

	if len(doc.Shop.FooterLines) > 0 {
		pdf.Ln(8)
		pdf.SetFont("Arial", "I", 9)
		for _, line := range doc.Shop.FooterLines {
			pdf.CellFormat(0, 5, tr(line), "", 1, "C", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// FileName is the download name for an invoice PDF.
func FileName(invoiceNumber string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		}
		return '_'
	}, invoiceNumber)
	if clean == "" {
		clean = "invoice"
	}
	return clean + ".pdf"
}

func contactLine(doc Document) string {
	parts := make([]string, 0, 2)
	if doc.Shop.Phone != "" {
		parts = append(parts, "Phone: "+doc.Shop.Phone)
	}
	if doc.Shop.Email != "" {
		parts = append(parts, "Email: "+doc.Shop.Email)
	}
	return strings.Join(parts, " | ")
}

func truncate(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > width {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
