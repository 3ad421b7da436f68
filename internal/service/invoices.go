package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"

	"github.com/rr4180885/myshop2/internal/billing"
	"github.com/rr4180885/myshop2/internal/domain"
	"github.com/rr4180885/myshop2/internal/events"
	"github.com/rr4180885/myshop2/internal/search"
	"github.com/rr4180885/myshop2/internal/store"
)

type InvoiceQuery struct {
	Query    string
	DateFrom string
	DateTo   string
}

// ListInvoices returns invoices newest first, filtered by text and an
// inclusive date range in the shop time zone.
func (s *Service) ListInvoices(ctx context.Context, q InvoiceQuery) ([]domain.Invoice, error) {
	from, to, err := search.ParseDateRange(q.DateFrom, q.DateTo, s.loc)
	if err != nil {
		var rangeErr *search.DateRangeError
		if errors.As(err, &rangeErr) {
			return nil, &ValidationError{Field: rangeErr.Field, Message: rangeErr.Field + " " + rangeErr.Reason, err: err}
		}
		return nil, err
	}

	invoices, err := s.allInvoices(ctx)
	if err != nil {
		return nil, err
	}
	return search.Invoices(invoices, search.InvoiceFilter{Query: q.Query, From: from, To: to}), nil
}

func (s *Service) allInvoices(ctx context.Context) ([]domain.Invoice, error) {
	if cached, ok, err := s.cache.GetInvoices(ctx); err != nil {
		log.Printf("[service] WARN: invoice cache read failed: %v", err)
	} else if ok {
		return cached, nil
	}

	gen := s.invoicesGen.Load()
	invoices, err := s.repo.ListInvoices(ctx)
	if err != nil {
		return nil, err
	}
	if s.invoicesGen.Load() != gen {
		return invoices, nil
	}
	if err := s.cache.SetInvoices(ctx, invoices, s.cacheTTL); err != nil {
		log.Printf("[service] WARN: invoice cache write failed: %v", err)
	}
	return invoices, nil
}

func (s *Service) GetInvoice(ctx context.Context, id int64) (domain.Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	return *inv, nil
}

// CreateInvoice checks the cart against current stock, then inside one
// transaction re-reads and locks the products, numbers the invoice, stores it
// and takes the stock. Nothing is written when any step fails.
func (s *Service) CreateInvoice(ctx context.Context, req domain.InvoiceCreateRequest) (domain.Invoice, error) {
	if err := s.validate(req); err != nil {
		return domain.Invoice{}, err
	}

	lines := mergeCartLines(req.Items)
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}

	current, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return domain.Invoice{}, err
	}
	draft, err := assembleCart(lines, current)
	if err != nil {
		return domain.Invoice{}, err
	}
	if err := checkInvoiceTotal(draft); err != nil {
		return domain.Invoice{}, err
	}

	customerName := trimmedOr(req.CustomerName, domain.WalkInCustomerName)
	customerPhone := trimmedOr(req.CustomerPhone, domain.UnknownCustomerPhone)
	now := s.now().In(s.loc)

	var created *domain.Invoice
	var lowStock []domain.Product
	err = s.repo.InTx(ctx, func(tx store.Tx) error {
		lowStock = lowStock[:0]

		locked, err := tx.LockProducts(ctx, ids)
		if err != nil {
			return err
		}
		cart, err := assembleCart(lines, locked)
		if err != nil {
			return err
		}
		if err := checkInvoiceTotal(cart); err != nil {
			return err
		}

		seq, err := tx.NextInvoiceSequence(ctx, now.Year())
		if err != nil {
			return fmt.Errorf("next invoice sequence: %w", err)
		}
		totals := cart.Totals().Rounded()
		created, err = tx.InsertInvoice(ctx, domain.Invoice{
			InvoiceNumber: billing.FormatInvoiceNumber(now.Year(), seq),
			CustomerName:  customerName,
			CustomerPhone: customerPhone,
			Items:         cart.Snapshot(),
			Subtotal:      domain.NewMoney(totals.Subtotal),
			GSTAmount:     domain.NewMoney(totals.GSTAmount),
			GrandTotal:    domain.NewMoney(totals.GrandTotal),
			CreatedAt:     now.UTC(),
		})
		if err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}

		for _, item := range cart.Items() {
			remaining, err := tx.DecrementStock(ctx, item.ProductID, item.Quantity)
			if errors.Is(err, store.ErrInsufficientStock) {
				return &billing.StockError{ProductID: item.ProductID, Name: item.Name, Requested: item.Quantity, Available: remaining}
			}
			if err != nil {
				return fmt.Errorf("decrement stock of product %d: %w", item.ProductID, err)
			}
			if remaining < s.lowStockThreshold {
				p := locked[item.ProductID]
				p.Stock = remaining
				lowStock = append(lowStock, p)
			}
		}
		return nil
	})
	if err != nil {
		return domain.Invoice{}, err
	}

	s.invalidateProducts(ctx)
	s.invalidateInvoices(ctx)
	warnClientTotals(req, *created)
	s.publish(ctx, s.invoiceEvents(ctx, *created, lowStock)...)
	log.Printf("[service] invoice %s created lines=%d total=%s by=%s", created.InvoiceNumber, len(created.Items), created.GrandTotal, actorName(ctx))
	return *created, nil
}

func (s *Service) invoiceEvents(ctx context.Context, inv domain.Invoice, lowStock []domain.Product) []events.Envelope {
	out := make([]events.Envelope, 0, 1+len(lowStock))
	at := s.now()

	evt, err := events.New(events.TypeInvoiceCreated, inv.InvoiceNumber, events.InvoiceCreated{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		CustomerName:  inv.CustomerName,
		LineCount:     len(inv.Items),
		GrandTotal:    inv.GrandTotal,
		CreatedBy:     actorName(ctx),
	}, at)
	if err == nil {
		out = append(out, evt)
	}

	for _, p := range lowStock {
		evt, err := events.New(events.TypeProductStockLow, p.Code, events.ProductStockLow{
			ProductID: p.ID,
			Code:      p.Code,
			Name:      p.Name,
			Stock:     p.Stock,
			Threshold: s.lowStockThreshold,
		}, at)
		if err == nil {
			out = append(out, evt)
		}
	}
	return out
}

// mergeCartLines folds repeated product ids into one line, keeping first
// appearance order.
func mergeCartLines(items []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, 0, len(items))
	for _, item := range items {
		idx := slices.IndexFunc(out, func(l domain.CartLine) bool { return l.ProductID == item.ProductID })
		if idx >= 0 {
			out[idx].Quantity += item.Quantity
			continue
		}
		out = append(out, item)
	}
	return out
}

func assembleCart(lines []domain.CartLine, products map[int64]domain.Product) (*billing.Cart, error) {
	var cart billing.Cart
	for i, line := range lines {
		p, ok := products[line.ProductID]
		if !ok {
			return nil, &ValidationError{
				Field:   fmt.Sprintf("items[%d].productId", i),
				Message: fmt.Sprintf("product %d does not exist", line.ProductID),
				err:     store.ErrNotFound,
			}
		}
		if err := cart.Add(p, line.Quantity); err != nil {
			return nil, err
		}
	}
	return &cart, nil
}

func checkInvoiceTotal(cart *billing.Cart) error {
	if cart.Totals().Rounded().GrandTotal.GreaterThan(domain.MaxInvoiceTotal.Decimal) {
		return &ValidationError{
			Field:   "items",
			Message: fmt.Sprintf("invoice total must be %s or less", domain.MaxInvoiceTotal),
		}
	}
	return nil
}

// warnClientTotals logs when a client sent a number or totals that differ
// from the stored invoice.
func warnClientTotals(req domain.InvoiceCreateRequest, inv domain.Invoice) {
	if req.InvoiceNumber != "" && req.InvoiceNumber != inv.InvoiceNumber {
		log.Printf("[service] WARN: client proposed invoice number %s, stored %s", req.InvoiceNumber, inv.InvoiceNumber)
	}
	if req.GrandTotal != nil && !req.GrandTotal.Round2().Equal(inv.GrandTotal.Decimal) {
		log.Printf("[service] WARN: client grand total %s differs from computed %s for %s", req.GrandTotal, inv.GrandTotal, inv.InvoiceNumber)
	}
}

func trimmedOr(val *string, fallback string) string {
	if val == nil {
		return fallback
	}
	if trimmed := strings.TrimSpace(*val); trimmed != "" {
		return trimmed
	}
	return fallback
}
