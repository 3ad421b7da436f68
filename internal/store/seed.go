package store

import "github.com/rr4180885/myshop2/internal/domain"

// DefaultProducts is the catalogue loaded into an empty store.
func DefaultProducts() []domain.Product {
	return []domain.Product{
		{Name: "Brake Pad Set", Brand: "Maruti Swift", Code: "BP-MS-001", HSNCode: "8708", Stock: 25, PurchasePrice: domain.MustMoney("450"), SellingPrice: domain.MustMoney("650"), GSTRate: 28},
		{Name: "Air Filter", Brand: "Hyundai i20", Code: "AF-HI-002", HSNCode: "8708", Stock: 15, PurchasePrice: domain.MustMoney("250"), SellingPrice: domain.MustMoney("400"), GSTRate: 28},
		{Name: "Oil Filter", Brand: "Tata Nexon", Code: "OF-TN-003", HSNCode: "8708", Stock: 30, PurchasePrice: domain.MustMoney("180"), SellingPrice: domain.MustMoney("300"), GSTRate: 28},
		{Name: "Headlight Bulb", Brand: "Maruti Alto", Code: "HB-MA-004", HSNCode: "8708", Stock: 50, PurchasePrice: domain.MustMoney("80"), SellingPrice: domain.MustMoney("150"), GSTRate: 18},
		{Name: "Wiper Blade", Brand: "Honda City", Code: "WB-HC-005", HSNCode: "8708", Stock: 20, PurchasePrice: domain.MustMoney("200"), SellingPrice: domain.MustMoney("350"), GSTRate: 28},
	}
}
