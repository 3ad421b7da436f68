package billing

import (
	"fmt"

	"github.com/rr4180885/myshop2/internal/domain"
	"github.com/rr4180885/myshop2/internal/store"
)

// StockError reports a quantity that exceeds what is on hand.
type StockError struct {
	ProductID int64
	Name      string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.Name, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error {
	return store.ErrInsufficientStock
}

type CartItem struct {
	ProductID int64
	Name      string
	Code      string
	HSNCode   string
	Quantity  int
	UnitPrice domain.Money
	GSTRate   int
}

// Cart is the transient list of lines for one checkout. Every change is
// checked against the stock of the product passed in.
type Cart struct {
	items []CartItem
}

func (c *Cart) Len() int {
	return len(c.items)
}

// Add puts qty units of p in the cart, merging with an existing line.
func (c *Cart) Add(p domain.Product, qty int) error {
	if qty < 1 {
		return fmt.Errorf("quantity must be at least 1")
	}
	if idx := c.index(p.ID); idx >= 0 {
		return c.set(idx, p, c.items[idx].Quantity+qty)
	}
	if qty > p.Stock {
		return &StockError{ProductID: p.ID, Name: p.Name, Requested: qty, Available: p.Stock}
	}
	c.items = append(c.items, itemFromProduct(p, qty))
	return nil
}

// SetQuantity replaces the quantity of p's line. Zero or less removes it.
func (c *Cart) SetQuantity(p domain.Product, qty int) error {
	idx := c.index(p.ID)
	if qty <= 0 {
		if idx >= 0 {
			c.Remove(p.ID)
		}
		return nil
	}
	if idx < 0 {
		return c.Add(p, qty)
	}
	return c.set(idx, p, qty)
}

func (c *Cart) Remove(productID int64) {
	idx := c.index(productID)
	if idx < 0 {
		return
	}
	c.items = append(c.items[:idx], c.items[idx+1:]...)
}

func (c *Cart) Clear() {
	c.items = nil
}

func (c *Cart) Items() []CartItem {
	out := make([]CartItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Totals() Totals {
	lines := make([]Line, 0, len(c.items))
	for _, item := range c.items {
		lines = append(lines, Line{
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice.Decimal,
			TaxRatePercent: item.GSTRate,
		})
	}
	return Calculate(lines)
}

// Snapshot converts the cart into invoice lines, each carrying its gross amount.
func (c *Cart) Snapshot() []domain.InvoiceLine {
	out := make([]domain.InvoiceLine, 0, len(c.items))
	for _, item := range c.items {
		gross, _, _ := LineAmounts(Line{
			Quantity:       item.Quantity,
			UnitPrice:      item.UnitPrice.Decimal,
			TaxRatePercent: item.GSTRate,
		})
		out = append(out, domain.InvoiceLine{
			ProductID:    item.ProductID,
			Name:         item.Name,
			Code:         item.Code,
			HSNCode:      item.HSNCode,
			Quantity:     item.Quantity,
			SellingPrice: item.UnitPrice.Round2(),
			GSTRate:      item.GSTRate,
			Amount:       domain.NewMoney(gross).Round2(),
		})
	}
	return out
}

func (c *Cart) set(idx int, p domain.Product, qty int) error {
	if qty > p.Stock {
		return &StockError{ProductID: p.ID, Name: p.Name, Requested: qty, Available: p.Stock}
	}
	item := itemFromProduct(p, qty)
	c.items[idx] = item
	return nil
}

func (c *Cart) index(productID int64) int {
	for i, item := range c.items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

func itemFromProduct(p domain.Product, qty int) CartItem {
	hsn := p.HSNCode
	if hsn == "" {
		hsn = domain.DefaultHSNCode
	}
	return CartItem{
		ProductID: p.ID,
		Name:      p.Name,
		Code:      p.Code,
		HSNCode:   hsn,
		Quantity:  qty,
		UnitPrice: p.SellingPrice,
		GSTRate:   p.GSTRate,
	}
}
