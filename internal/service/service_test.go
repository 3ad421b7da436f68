package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rr4180885/myshop2/internal/billing"
	"github.com/rr4180885/myshop2/internal/cache"
	"github.com/rr4180885/myshop2/internal/domain"
	"github.com/rr4180885/myshop2/internal/events"
	"github.com/rr4180885/myshop2/internal/store"
	"github.com/rr4180885/myshop2/internal/store/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Envelope
}

func (p *recordingPublisher) Publish(_ context.Context, evts ...events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evts...)
	return nil
}

func (p *recordingPublisher) Close() error {
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, evt := range p.events {
		out = append(out, evt.Type)
	}
	return out
}

func newTestService() (*Service, *memory.Store, *recordingPublisher) {
	repo := memory.NewSeeded()
	pub := &recordingPublisher{}
	svc := New(repo, Options{Events: pub, LowStockThreshold: 10})
	svc.now = func() time.Time {
		return time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	}
	return svc, repo, pub
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func moneyPtr(s string) *domain.Money {
	m := domain.MustMoney(s)
	return &m
}

func TestCreateInvoiceComputesTotalsAndDecrementsStock(t *testing.T) {
	svc, repo, pub := newTestService()
	ctx := WithActor(context.Background(), domain.Actor{Username: "admin"})

	inv, err := svc.CreateInvoice(ctx, domain.InvoiceCreateRequest{
		Items: []domain.CartLine{{ProductID: 1, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create invoice failed: %v", err)
	}

	if inv.InvoiceNumber != "INV-2024-0001" {
		t.Fatalf("expected INV-2024-0001, got %s", inv.InvoiceNumber)
	}
	if inv.CustomerName != domain.WalkInCustomerName || inv.CustomerPhone != domain.UnknownCustomerPhone {
		t.Fatalf("expected walk-in defaults, got %q %q", inv.CustomerName, inv.CustomerPhone)
	}
	if inv.GrandTotal.String() != "1300.00" || inv.GSTAmount.String() != "284.38" || inv.Subtotal.String() != "1015.63" {
		t.Fatalf("unexpected totals sub=%s gst=%s grand=%s", inv.Subtotal, inv.GSTAmount, inv.GrandTotal)
	}
	if len(inv.Items) != 1 || inv.Items[0].Name != "Brake Pad Set" || inv.Items[0].HSNCode != "8708" {
		t.Fatalf("unexpected snapshot %+v", inv.Items)
	}

	p, _ := repo.GetProduct(ctx, 1)
	if p.Stock != 23 {
		t.Fatalf("expected stock 23, got %d", p.Stock)
	}
	other, _ := repo.GetProduct(ctx, 2)
	if other.Stock != 15 {
		t.Fatalf("uninvolved product changed stock to %d", other.Stock)
	}

	if got := pub.types(); len(got) != 1 || got[0] != events.TypeInvoiceCreated {
		t.Fatalf("expected one invoice.created event, got %v", got)
	}
}

func TestCreateInvoiceNumbersAreSequential(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	seen := make(map[string]bool)
	prev := int64(0)
	for i := 0; i < 5; i++ {
		inv, err := svc.CreateInvoice(ctx, domain.InvoiceCreateRequest{
			CustomerName: strPtr("  Ravi  "),
			Items:        []domain.CartLine{{ProductID: 4, Quantity: 1}},
		})
		if err != nil {
			t.Fatalf("create invoice %d failed: %v", i, err)
		}
		if seen[inv.InvoiceNumber] {
			t.Fatalf("duplicate invoice number %s", inv.InvoiceNumber)
		}
		seen[inv.InvoiceNumber] = true
		_, seq, err := billing.ParseInvoiceNumber(inv.InvoiceNumber)
		if err != nil {
			t.Fatalf("parse %s: %v", inv.InvoiceNumber, err)
		}
		if seq <= prev {
			t.Fatalf("sequence not increasing: %d after %d", seq, prev)
		}
		prev = seq
		if inv.CustomerName != "Ravi" {
			t.Fatalf("expected trimmed customer name, got %q", inv.CustomerName)
		}
	}
}

func TestCreateInvoiceRejectsOversellWithoutSideEffects(t *testing.T) {
	svc, repo, pub := newTestService()
	ctx := context.Background()

	_, err := svc.CreateInvoice(ctx, domain.InvoiceCreateRequest{
		Items: []domain.CartLine{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 16},
		},
	})
	var stockErr *billing.StockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("expected StockError, got %v", err)
	}
	if stockErr.ProductID != 2 || stockErr.Available != 15 || stockErr.Requested != 16 {
		t.Fatalf("unexpected stock error %+v", stockErr)
	}

	invoices, _ := repo.ListInvoices(ctx)
	if len(invoices) != 0 {
		t.Fatalf("expected no invoices, got %d", len(invoices))
	}
	p, _ := repo.GetProduct(ctx, 1)
	if p.Stock != 25 {
		t.Fatalf("expected stock untouched, got %d", p.Stock)
	}
	if len(pub.types()) != 0 {
		t.Fatalf("expected no events on failure")
	}
}

func TestCreateInvoiceMergesDuplicateLinesBeforeStockCheck(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.CreateInvoice(context.Background(), domain.InvoiceCreateRequest{
		Items: []domain.CartLine{
			{ProductID: 2, Quantity: 10},
			{ProductID: 2, Quantity: 6},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected merged lines to exceed stock, got %v", err)
	}
}

func TestCreateInvoiceValidation(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	cases := []struct {
		name  string
		req   domain.InvoiceCreateRequest
		field string
	}{
		{"empty cart", domain.InvoiceCreateRequest{}, "items"},
		{"zero quantity", domain.InvoiceCreateRequest{Items: []domain.CartLine{{ProductID: 1, Quantity: 0}}}, "items[0].quantity"},
		{"bad product id", domain.InvoiceCreateRequest{Items: []domain.CartLine{{ProductID: 0, Quantity: 1}}}, "items[0].productId"},
		{"unknown product", domain.InvoiceCreateRequest{Items: []domain.CartLine{{ProductID: 999, Quantity: 1}}}, "items[0].productId"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateInvoice(ctx, tc.req)
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tc.field {
				t.Fatalf("expected field %q, got %q", tc.field, vErr.Field)
			}
		})
	}
}

func TestCreateInvoicePublishesLowStock(t *testing.T) {
	svc, _, pub := newTestService()

	// Air Filter starts at 15; selling 6 leaves 9, under the threshold of 10.
	_, err := svc.CreateInvoice(context.Background(), domain.InvoiceCreateRequest{
		Items: []domain.CartLine{{ProductID: 2, Quantity: 6}},
	})
	if err != nil {
		t.Fatalf("create invoice failed: %v", err)
	}
	got := pub.types()
	if len(got) != 2 || got[1] != events.TypeProductStockLow {
		t.Fatalf("expected invoice.created and product.stock_low, got %v", got)
	}
}

func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	// Wiper Blade has 20 units.
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 15; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateInvoice(ctx, domain.InvoiceCreateRequest{
				Items: []domain.CartLine{{ProductID: 5, Quantity: 2}},
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 10 {
		t.Fatalf("expected exactly 10 successful checkouts, got %d", succeeded)
	}
	p, _ := repo.GetProduct(ctx, 5)
	if p.Stock != 0 {
		t.Fatalf("expected stock 0, got %d", p.Stock)
	}
	invoices, _ := repo.ListInvoices(ctx)
	if len(invoices) != 10 {
		t.Fatalf("expected 10 invoices, got %d", len(invoices))
	}
}

func TestProductLifecycle(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Name:          " Clutch Plate ",
		Brand:         "Maruti Swift",
		Code:          "CP-MS-006",
		PurchasePrice: moneyPtr("900"),
		SellingPrice:  moneyPtr("1250.5"),
	})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	if created.Name != "Clutch Plate" || created.HSNCode != domain.DefaultHSNCode || created.GSTRate != domain.DefaultGSTRate || created.Stock != 0 {
		t.Fatalf("unexpected defaults %+v", created)
	}

	_, err = svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Name: "Copy", Brand: "X", Code: "CP-MS-006",
		PurchasePrice: moneyPtr("1"), SellingPrice: moneyPtr("2"),
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "code" || !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected duplicate code validation error, got %v", err)
	}

	updated, err := svc.UpdateProduct(ctx, created.ID, domain.ProductUpdateRequest{Stock: intPtr(7), GSTRate: intPtr(18)})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Stock != 7 || updated.GSTRate != 18 || updated.Name != "Clutch Plate" {
		t.Fatalf("partial update changed the wrong fields: %+v", updated)
	}

	found, err := svc.ListProducts(ctx, "swift")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("expected two swift products, got %d", len(found))
	}

	if err := svc.DeleteProduct(ctx, created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := svc.DeleteProduct(ctx, created.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := svc.UpdateProduct(ctx, created.ID, domain.ProductUpdateRequest{}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on update, got %v", err)
	}
}

func TestCreateProductValidation(t *testing.T) {
	svc, _, _ := newTestService()

	tests := []struct {
		name    string
		req     domain.ProductCreateRequest
		field   string
		message string
	}{
		{
			name:  "negative price",
			req:   domain.ProductCreateRequest{Name: "Spark Plug", Brand: "Bajaj", Code: "SP-BJ-007", PurchasePrice: moneyPtr("10"), SellingPrice: moneyPtr("-1")},
			field: "sellingPrice",
		},
		{
			name:    "missing selling price",
			req:     domain.ProductCreateRequest{Name: "Spark Plug", Brand: "Bajaj", Code: "SP-BJ-007", PurchasePrice: moneyPtr("10")},
			field:   "sellingPrice",
			message: "sellingPrice is required",
		},
		{
			name:  "missing purchase price",
			req:   domain.ProductCreateRequest{Name: "Spark Plug", Brand: "Bajaj", Code: "SP-BJ-007", SellingPrice: moneyPtr("10")},
			field: "purchasePrice",
		},
		{
			name:  "price beyond column range",
			req:   domain.ProductCreateRequest{Name: "Spark Plug", Brand: "Bajaj", Code: "SP-BJ-007", PurchasePrice: moneyPtr("10"), SellingPrice: moneyPtr("100000000")},
			field: "sellingPrice",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateProduct(context.Background(), tc.req)
			var vErr *ValidationError
			if !errors.As(err, &vErr) || vErr.Field != tc.field {
				t.Fatalf("expected %s validation error, got %v", tc.field, err)
			}
			if tc.message != "" && vErr.Message != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, vErr.Message)
			}
		})
	}

	var vErr *ValidationError
	_, err := svc.CreateProduct(context.Background(), domain.ProductCreateRequest{Name: "Free Sample", Brand: "Bajaj", Code: "FS-1", PurchasePrice: moneyPtr("0"), SellingPrice: moneyPtr("0")})
	if err != nil {
		t.Fatalf("expected explicit zero prices to be accepted, got %v", err)
	}

	_, err = svc.CreateProduct(context.Background(), domain.ProductCreateRequest{Brand: "Bajaj", Code: "SP"})
	if !errors.As(err, &vErr) || vErr.Field != "name" {
		t.Fatalf("expected name validation error, got %v", err)
	}
}

func TestListInvoicesFiltersByDate(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	svc.now = func() time.Time { return time.Date(2024, 1, 20, 12, 0, 0, 0, time.UTC) }
	if _, err := svc.CreateInvoice(ctx, domain.InvoiceCreateRequest{Items: []domain.CartLine{{ProductID: 3, Quantity: 1}}}); err != nil {
		t.Fatalf("january invoice: %v", err)
	}
	svc.now = func() time.Time { return time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC) }
	if _, err := svc.CreateInvoice(ctx, domain.InvoiceCreateRequest{Items: []domain.CartLine{{ProductID: 3, Quantity: 1}}}); err != nil {
		t.Fatalf("february invoice: %v", err)
	}

	got, err := svc.ListInvoices(ctx, InvoiceQuery{DateFrom: "2024-01-01", DateTo: "2024-01-31"})
	if err != nil {
		t.Fatalf("list invoices: %v", err)
	}
	if len(got) != 1 || got[0].InvoiceNumber != "INV-2024-0001" {
		t.Fatalf("expected only the january invoice, got %+v", got)
	}

	_, err = svc.ListInvoices(ctx, InvoiceQuery{DateTo: "31-01-2024"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "dateTo" {
		t.Fatalf("expected dateTo validation error, got %v", err)
	}
}

func TestInvoiceSequenceResetsPerYear(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	svc.now = func() time.Time { return time.Date(2024, 12, 31, 12, 0, 0, 0, time.UTC) }
	if _, err := svc.CreateInvoice(ctx, domain.InvoiceCreateRequest{Items: []domain.CartLine{{ProductID: 3, Quantity: 1}}}); err != nil {
		t.Fatalf("create: %v", err)
	}
	svc.now = func() time.Time { return time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC) }
	inv, err := svc.CreateInvoice(ctx, domain.InvoiceCreateRequest{Items: []domain.CartLine{{ProductID: 3, Quantity: 1}}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inv.InvoiceNumber != "INV-2025-0001" {
		t.Fatalf("expected INV-2025-0001, got %s", inv.InvoiceNumber)
	}
}

func TestSettingsUpdateAndReset(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	footer := []string{"Thank you", "  ", "Visit again"}
	saved, err := svc.UpdateSettings(ctx, domain.SettingsUpdateRequest{
		ShopName:    strPtr("Sharma Auto"),
		FooterLines: &footer,
	})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if saved.ShopName != "Sharma Auto" || len(saved.FooterLines) != 2 {
		t.Fatalf("unexpected settings %+v", saved)
	}
	if saved.GSTNumber != domain.DefaultSettings().GSTNumber {
		t.Fatalf("partial update must keep other fields")
	}

	tooMany := []string{"a", "b", "c", "d"}
	_, err = svc.UpdateSettings(ctx, domain.SettingsUpdateRequest{FooterLines: &tooMany})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "footerLines" {
		t.Fatalf("expected footerLines validation error, got %v", err)
	}

	_, err = svc.UpdateSettings(ctx, domain.SettingsUpdateRequest{Email: strPtr("not-an-email")})
	if !errors.As(err, &vErr) || vErr.Field != "email" {
		t.Fatalf("expected email validation error, got %v", err)
	}

	reset, err := svc.ResetSettings(ctx)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if reset.ShopName != domain.DefaultSettings().ShopName {
		t.Fatalf("expected default shop name after reset, got %q", reset.ShopName)
	}
}

func TestDashboard(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.CreateInvoice(ctx, domain.InvoiceCreateRequest{Items: []domain.CartLine{{ProductID: 1, Quantity: 2}}}); err != nil {
		t.Fatalf("create invoice: %v", err)
	}

	stats, err := svc.Dashboard(ctx)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if stats.TotalProducts != 5 {
		t.Fatalf("expected 5 products, got %d", stats.TotalProducts)
	}
	if stats.TotalUnits != 23+15+30+50+20 {
		t.Fatalf("unexpected total units %d", stats.TotalUnits)
	}
	// 450*23 + 250*15 + 180*30 + 80*50 + 200*20
	if stats.StockValue.String() != "27500.00" {
		t.Fatalf("unexpected stock value %s", stats.StockValue)
	}
	if stats.InvoicesToday != 1 || stats.RevenueToday.String() != "1300.00" {
		t.Fatalf("unexpected today stats %d %s", stats.InvoicesToday, stats.RevenueToday)
	}
	if stats.LowStockCount != 0 {
		t.Fatalf("expected no low stock items, got %d", stats.LowStockCount)
	}
}

func TestCreateUserAndSetPassword(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "Cashier1", "s3cret-pass")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.Username != "cashier1" {
		t.Fatalf("expected lowercased username, got %q", user.Username)
	}
	if _, err := svc.CreateUser(ctx, "cashier1", "another-pass"); err == nil {
		t.Fatalf("expected duplicate username error")
	}
	if _, err := svc.CreateUser(ctx, "shorty", "short"); err == nil {
		t.Fatalf("expected short password error")
	}

	before, _ := repo.GetUserByUsername(ctx, "cashier1")
	if err := svc.SetPassword(ctx, "cashier1", "brand-new-pass"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	after, _ := repo.GetUserByUsername(ctx, "cashier1")
	if before.PasswordHash == after.PasswordHash {
		t.Fatalf("expected password hash to change")
	}
}

func TestEnsureAdminCreatesOnlyOnce(t *testing.T) {
	svc := New(memory.New(), Options{})
	ctx := context.Background()

	created, err := svc.EnsureAdmin(ctx, "first-admin-pass")
	if err != nil || !created {
		t.Fatalf("expected admin to be created, got created=%v err=%v", created, err)
	}
	created, err = svc.EnsureAdmin(ctx, "second-admin-pass")
	if err != nil || created {
		t.Fatalf("expected existing admin to be kept, got created=%v err=%v", created, err)
	}

	var verr *ValidationError
	if _, err := New(memory.New(), Options{}).EnsureAdmin(ctx, "short"); !errors.As(err, &verr) {
		t.Fatalf("expected validation error for short password, got %v", err)
	}
}

func TestInvoiceItemsKeepSnapshotAfterProductEdit(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	inv, err := svc.CreateInvoice(ctx, domain.InvoiceCreateRequest{
		Items: []domain.CartLine{{ProductID: 1, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create invoice failed: %v", err)
	}

	if _, err := svc.UpdateProduct(ctx, 1, domain.ProductUpdateRequest{
		Name:         strPtr("Ceramic Brake Pad Set"),
		SellingPrice: moneyPtr("999"),
		GSTRate:      intPtr(18),
	}); err != nil {
		t.Fatalf("update product failed: %v", err)
	}

	got, err := svc.GetInvoice(ctx, inv.ID)
	if err != nil {
		t.Fatalf("get invoice failed: %v", err)
	}
	line := got.Items[0]
	if line.Name != "Brake Pad Set" || line.SellingPrice.String() != "650.00" || line.GSTRate != 28 || line.Amount.String() != "1300.00" {
		t.Fatalf("invoice line changed after product edit: %+v", line)
	}
	if got.GrandTotal.String() != "1300.00" {
		t.Fatalf("invoice total changed after product edit: %s", got.GrandTotal)
	}

	got.Items[0].Name = "tampered"
	again, _ := svc.GetInvoice(ctx, inv.ID)
	if again.Items[0].Name != "Brake Pad Set" {
		t.Fatalf("stored invoice shares its items with callers")
	}
}

func TestCreateInvoiceIgnoresClientComputedFields(t *testing.T) {
	svc, _, _ := newTestService()

	inv, err := svc.CreateInvoice(context.Background(), domain.InvoiceCreateRequest{
		InvoiceNumber: "INV-1999-0042",
		Items: []domain.CartLine{{
			ProductID:    1,
			Quantity:     2,
			Name:         "Something Else",
			SellingPrice: moneyPtr("1"),
			GSTRate:      intPtr(0),
			Amount:       moneyPtr("2"),
		}},
		Subtotal:   moneyPtr("2"),
		GSTAmount:  moneyPtr("0"),
		GrandTotal: moneyPtr("2"),
	})
	if err != nil {
		t.Fatalf("create invoice failed: %v", err)
	}
	if inv.InvoiceNumber != "INV-2024-0001" || inv.GrandTotal.String() != "1300.00" {
		t.Fatalf("client fields leaked into invoice: %s %s", inv.InvoiceNumber, inv.GrandTotal)
	}
	if inv.Items[0].Name != "Brake Pad Set" || inv.Items[0].SellingPrice.String() != "650.00" || inv.Items[0].GSTRate != 28 {
		t.Fatalf("line snapshot not taken from product: %+v", inv.Items[0])
	}
}

func TestCreateInvoiceRejectsTotalBeyondColumnRange(t *testing.T) {
	svc, repo, pub := newTestService()
	ctx := context.Background()

	expensive, err := repo.CreateProduct(ctx, domain.Product{
		Name: "Engine Assembly", Brand: "Bulk", Code: "EA-1", HSNCode: "8708", Stock: 1000,
		PurchasePrice: domain.MustMoney("1"), SellingPrice: domain.MustMoney("99999999.99"), GSTRate: 28,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}

	_, err = svc.CreateInvoice(ctx, domain.InvoiceCreateRequest{
		Items: []domain.CartLine{{ProductID: expensive.ID, Quantity: 200}},
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "items" {
		t.Fatalf("expected items validation error, got %v", err)
	}

	p, _ := repo.GetProduct(ctx, expensive.ID)
	invoices, _ := repo.ListInvoices(ctx)
	if p.Stock != 1000 || len(invoices) != 0 || len(pub.types()) != 0 {
		t.Fatalf("rejected invoice had side effects: stock=%d invoices=%d events=%d", p.Stock, len(invoices), len(pub.types()))
	}
}

// slowRepo runs during between reading a list and returning it.
type slowRepo struct {
	*memory.Store
	during func()
}

func (r *slowRepo) ListProducts(ctx context.Context) ([]domain.Product, error) {
	list, err := r.Store.ListProducts(ctx)
	if r.during != nil {
		r.during()
	}
	return list, err
}

func (r *slowRepo) ListInvoices(ctx context.Context) ([]domain.Invoice, error) {
	list, err := r.Store.ListInvoices(ctx)
	if r.during != nil {
		r.during()
	}
	return list, err
}

type countingCache struct {
	cache.NoopListCache
	mu          sync.Mutex
	productSets int
	invoiceSets int
}

func (c *countingCache) SetProducts(_ context.Context, _ []domain.Product, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.productSets++
	return nil
}

func (c *countingCache) SetInvoices(_ context.Context, _ []domain.Invoice, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invoiceSets++
	return nil
}

func TestListReadDoesNotCacheAcrossInvalidation(t *testing.T) {
	repo := &slowRepo{Store: memory.NewSeeded()}
	lists := &countingCache{}
	svc := New(repo, Options{Cache: lists, CacheTTL: time.Minute})
	ctx := context.Background()

	repo.during = func() {
		svc.invalidateProducts(ctx)
		svc.invalidateInvoices(ctx)
	}
	if _, err := svc.ListProducts(ctx, ""); err != nil {
		t.Fatalf("list products: %v", err)
	}
	if _, err := svc.ListInvoices(ctx, InvoiceQuery{}); err != nil {
		t.Fatalf("list invoices: %v", err)
	}
	if lists.productSets != 0 || lists.invoiceSets != 0 {
		t.Fatalf("stale list cached: products=%d invoices=%d", lists.productSets, lists.invoiceSets)
	}

	repo.during = nil
	_, _ = svc.ListProducts(ctx, "")
	_, _ = svc.ListInvoices(ctx, InvoiceQuery{})
	if lists.productSets != 1 || lists.invoiceSets != 1 {
		t.Fatalf("expected quiet reads to fill the cache: products=%d invoices=%d", lists.productSets, lists.invoiceSets)
	}
}
