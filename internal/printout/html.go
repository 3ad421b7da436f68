package printout

import (
	"bytes"
	"html/template"
)

var invoiceHTMLTmpl = template.Must(template.New("invoice").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Invoice {{.InvoiceNumber}}</title>
  <style>
    body { font-family: sans-serif; margin: 24px; color: #111; }
    header { display: flex; justify-content: space-between; align-items: flex-start; }
    header img { max-height: 64px; }
    table { width: 100%; border-collapse: collapse; margin-top: 12px; }
    th, td { border: 1px solid #ddd; padding: 6px; font-size: 13px; }
    td.num { text-align: right; }
    .totals { width: 40%; margin-left: auto; }
    footer { margin-top: 24px; font-size: 12px; color: #555; }
    @media print { body { margin: 0; } }
  </style>
</head>
<body>
  <header>
    <div>
      <h2>{{.Shop.ShopName}}</h2>
      <p>{{.Shop.Address}}<br />{{.Shop.City}}</p>
      <p>Phone: {{.Shop.Phone}} | Email: {{.Shop.Email}}</p>
      <p>GSTIN: {{.Shop.GSTNumber}}</p>
    </div>
    {{if .Shop.LogoURL}}<img src="{{.Shop.LogoURL}}" alt="logo" />{{end}}
  </header>

  <h3>Tax Invoice {{.InvoiceNumber}}</h3>
  <p>Date: {{.Date}}</p>
  <p>Customer: {{.CustomerName}} | Phone: {{.CustomerPhone}}</p>

  <table>
    <thead><tr><th>#</th><th>Item</th><th>Code</th><th>HSN</th><th>Qty</th><th>Rate</th><th>GST %</th><th>Taxable</th><th>GST</th><th>Amount</th></tr></thead>
    <tbody>{{range .Lines}}<tr><td>{{.No}}</td><td>{{.Name}}</td><td>{{.Code}}</td><td>{{.HSNCode}}</td><td class="num">{{.Quantity}}</td><td class="num">{{.Rate}}</td><td class="num">{{.GSTRate}}</td><td class="num">{{.Taxable}}</td><td class="num">{{.Tax}}</td><td class="num">{{.Amount}}</td></tr>{{end}}</tbody>
  </table>

  <table class="totals">
    <tr><td>Subtotal</td><td class="num">{{.Subtotal}}</td></tr>
    <tr><td>CGST</td><td class="num">{{.CGST}}</td></tr>
    <tr><td>SGST</td><td class="num">{{.SGST}}</td></tr>
    <tr><td>Total GST</td><td class="num">{{.GSTAmount}}</td></tr>
    <tr><th>Grand Total</th><th class="num">{{.GrandTotal}}</th></tr>
  </table>

  {{if .Shop.SignatureURL}}<p><img src="{{.Shop.SignatureURL}}" alt="signature" style="max-height:48px;" /><br />Authorised Signatory</p>{{end}}
  <footer>{{range .Shop.FooterLines}}<p>{{.}}</p>{{end}}</footer>
</body>
</html>
`))

func HTML(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := invoiceHTMLTmpl.Execute(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
