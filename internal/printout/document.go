// Package printout renders a stored invoice together with the shop identity
// as a printable HTML page or a PDF.
package printout

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rr4180885/myshop2/internal/billing"
	"github.com/rr4180885/myshop2/internal/domain"
)

var twoDec = decimal.NewFromInt(2)

type Line struct {
	No       int
	Name     string
	Code     string
	HSNCode  string
	Quantity int
	Rate     string
	GSTRate  int
	Taxable  string
	Tax      string
	Amount   string
}

// Document is the view model shared by the HTML and PDF renderers.
type Document struct {
	Shop          domain.Settings
	InvoiceNumber string
	Date          string
	CustomerName  string
	CustomerPhone string
	Lines         []Line
	Subtotal      string
	GSTAmount     string
	CGST          string
	SGST          string
	GrandTotal    string
}

func NewDocument(inv domain.Invoice, shop domain.Settings, loc *time.Location) Document {
	if loc == nil {
		loc = time.UTC
	}
	doc := Document{
		Shop:          shop,
		InvoiceNumber: inv.InvoiceNumber,
		Date:          inv.CreatedAt.In(loc).Format("02 Jan 2006 15:04"),
		CustomerName:  inv.CustomerName,
		CustomerPhone: inv.CustomerPhone,
		Lines:         make([]Line, 0, len(inv.Items)),
		Subtotal:      inv.Subtotal.String(),
		GSTAmount:     inv.GSTAmount.String(),
		GrandTotal:    inv.GrandTotal.String(),
	}

	// Intra-state sale: GST is split evenly between central and state.
	half := inv.GSTAmount.Div(twoDec).Round(2)
	doc.CGST = half.StringFixed(2)
	doc.SGST = inv.GSTAmount.Sub(half).StringFixed(2)

	for i, item := range inv.Items {
		_, tax, net := billing.LineAmounts(billing.Line{
			Quantity:       item.Quantity,
			UnitPrice:      item.SellingPrice.Decimal,
			TaxRatePercent: item.GSTRate,
		})
		doc.Lines = append(doc.Lines, Line{
			No:       i + 1,
			Name:     item.Name,
			Code:     item.Code,
			HSNCode:  item.HSNCode,
			Quantity: item.Quantity,
			Rate:     item.SellingPrice.String(),
			GSTRate:  item.GSTRate,
			Taxable:  net.StringFixed(2),
			Tax:      tax.StringFixed(2),
			Amount:   item.Amount.String(),
		})
	}
	return doc
}
