package domain

import "time"

const (
	DefaultHSNCode       = "8708"
	DefaultGSTRate       = 28
	WalkInCustomerName   = "Walk-in Customer"
	UnknownCustomerPhone = "N/A"
	MaxFooterLines       = 3
)

// MaxInvoiceTotal is the largest amount an invoice total column can hold.
// Product prices are bounded by their validate tags.
var MaxInvoiceTotal = MustMoney("9999999999.99")

type Product struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Brand         string `json:"brand"`
	Code          string `json:"code"`
	HSNCode       string `json:"hsnCode"`
	Stock         int    `json:"stock"`
	PurchasePrice Money  `json:"purchasePrice"`
	SellingPrice  Money  `json:"sellingPrice"`
	GSTRate       int    `json:"gstRate"`
	MaxDiscount   *Money `json:"maxDiscount,omitempty"`
}

type ProductCreateRequest struct {
	Name          string  `json:"name" validate:"required,max=200"`
	Brand         string  `json:"brand" validate:"required,max=200"`
	Code          string  `json:"code" validate:"required,max=64"`
	HSNCode       *string `json:"hsnCode" validate:"omitempty,max=16"`
	Stock         *int    `json:"stock" validate:"omitempty,gte=0"`
	PurchasePrice *Money  `json:"purchasePrice" validate:"required,gte=0,lte=99999999.99"`
	SellingPrice  *Money  `json:"sellingPrice" validate:"required,gte=0,lte=99999999.99"`
	GSTRate       *int    `json:"gstRate" validate:"omitempty,gte=0,lte=100"`
	MaxDiscount   *Money  `json:"maxDiscount" validate:"omitempty,gte=0,lte=99999999.99"`
}

type ProductUpdateRequest struct {
	Name          *string `json:"name" validate:"omitempty,min=1,max=200"`
	Brand         *string `json:"brand" validate:"omitempty,min=1,max=200"`
	Code          *string `json:"code" validate:"omitempty,min=1,max=64"`
	HSNCode       *string `json:"hsnCode" validate:"omitempty,max=16"`
	Stock         *int    `json:"stock" validate:"omitempty,gte=0"`
	PurchasePrice *Money  `json:"purchasePrice" validate:"omitempty,gte=0,lte=99999999.99"`
	SellingPrice  *Money  `json:"sellingPrice" validate:"omitempty,gte=0,lte=99999999.99"`
	GSTRate       *int    `json:"gstRate" validate:"omitempty,gte=0,lte=100"`
	MaxDiscount   *Money  `json:"maxDiscount" validate:"omitempty,gte=0,lte=99999999.99"`
}

// InvoiceLine is the immutable snapshot of a product at the time of sale.
type InvoiceLine struct {
	ProductID    int64  `json:"productId"`
	Name         string `json:"name"`
	Code         string `json:"code"`
	HSNCode      string `json:"hsnCode"`
	Quantity     int    `json:"quantity"`
	SellingPrice Money  `json:"sellingPrice"`
	GSTRate      int    `json:"gstRate"`
	Amount       Money  `json:"amount"`
}

type Invoice struct {
	ID            int64         `json:"id"`
	InvoiceNumber string        `json:"invoiceNumber"`
	CustomerName  string        `json:"customerName"`
	CustomerPhone string        `json:"customerPhone"`
	Items         []InvoiceLine `json:"items"`
	Subtotal      Money         `json:"subtotal"`
	GSTAmount     Money         `json:"gstAmount"`
	GrandTotal    Money         `json:"grandTotal"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// CartLine is one requested product and quantity. A client may echo the
// snapshot fields of an invoice line; they are recomputed from the product.
type CartLine struct {
	ProductID int64 `json:"productId" validate:"gt=0"`
	Quantity  int   `json:"quantity" validate:"gte=1,lte=100000"`

	Name         string `json:"name,omitempty"`
	Code         string `json:"code,omitempty"`
	HSNCode      string `json:"hsnCode,omitempty"`
	SellingPrice *Money `json:"sellingPrice,omitempty"`
	GSTRate      *int   `json:"gstRate,omitempty"`
	Amount       *Money `json:"amount,omitempty"`
}

// InvoiceCreateRequest accepts an invoice without id and createdAt. The
// number and totals, when present, are only compared with what the server
// computes.
type InvoiceCreateRequest struct {
	InvoiceNumber string     `json:"invoiceNumber,omitempty"`
	CustomerName  *string    `json:"customerName" validate:"omitempty,max=200"`
	CustomerPhone *string    `json:"customerPhone" validate:"omitempty,max=32"`
	Items         []CartLine `json:"items" validate:"required,min=1,max=200,dive"`
	Subtotal      *Money     `json:"subtotal,omitempty"`
	GSTAmount     *Money     `json:"gstAmount,omitempty"`
	GrandTotal    *Money     `json:"grandTotal,omitempty"`
}

type Settings struct {
	ShopName     string    `json:"shopName"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	GSTNumber    string    `json:"gstNumber"`
	FooterLines  []string  `json:"footerLines"`
	LogoURL      string    `json:"logoUrl"`
	SignatureURL string    `json:"signatureUrl"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type SettingsUpdateRequest struct {
	ShopName     *string   `json:"shopName" validate:"omitempty,min=1,max=200"`
	Address      *string   `json:"address" validate:"omitempty,max=500"`
	City         *string   `json:"city" validate:"omitempty,max=200"`
	Phone        *string   `json:"phone" validate:"omitempty,max=32"`
	Email        *string   `json:"email" validate:"omitempty,email"`
	GSTNumber    *string   `json:"gstNumber" validate:"omitempty,max=32"`
	FooterLines  *[]string `json:"footerLines" validate:"omitempty,max=3,dive,max=300"`
	LogoURL      *string   `json:"logoUrl" validate:"omitempty,max=2048"`
	SignatureURL *string   `json:"signatureUrl" validate:"omitempty,max=2048"`
}

// DefaultSettings is the shop identity used until the panel is saved.
func DefaultSettings() Settings {
	return Settings{
		ShopName:  "AutoParts Pro",
		Address:   "123 Main Road, Sector 15",
		City:      "Narnaund, Haryana - 125039",
		Phone:     "+91 98765 43210",
		Email:     "info@autopartspro.com",
		GSTNumber: "06XXXXX1234X1Z5",
		FooterLines: []string{
			"Goods once sold cannot be returned.",
			"7 days warranty on all parts.",
		},
	}
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	AccessToken string `json:"accessToken"`
	ExpiresAt   string `json:"expiresAt"`
}

// Actor is the authenticated user attached to a request context.
type Actor struct {
	UserID    string
	Username  string
	TokenID   string
	ExpiresAt time.Time
}

type DashboardStats struct {
	TotalProducts int       `json:"totalProducts"`
	TotalUnits    int       `json:"totalUnits"`
	StockValue    Money     `json:"stockValue"`
	LowStockBelow int       `json:"lowStockBelow"`
	LowStockCount int       `json:"lowStockCount"`
	LowStockItems []Product `json:"lowStockItems"`
	InvoicesToday int       `json:"invoicesToday"`
	RevenueToday  Money     `json:"revenueToday"`
	GeneratedAt   time.Time `json:"generatedAt"`
}
