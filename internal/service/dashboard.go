package service

import (
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rr4180885/myshop2/internal/domain"
	"github.com/rr4180885/myshop2/internal/search"
)

// Dashboard summarizes stock and today's sales in the shop time zone.
func (s *Service) Dashboard(ctx context.Context) (domain.DashboardStats, error) {
	products, err := s.allProducts(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	invoices, err := s.allInvoices(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}

	now := s.now().In(s.loc)
	stats := domain.DashboardStats{
		TotalProducts: len(products),
		LowStockBelow: s.lowStockThreshold,
		LowStockItems: []domain.Product{},
		GeneratedAt:   now.UTC(),
	}

	stockValue := decimal.Zero
	for _, p := range products {
		stats.TotalUnits += p.Stock
		stockValue = stockValue.Add(p.PurchasePrice.Mul(decimal.NewFromInt(int64(p.Stock))))
		if p.Stock < s.lowStockThreshold {
			stats.LowStockItems = append(stats.LowStockItems, p)
		}
	}
	slices.SortStableFunc(stats.LowStockItems, func(a, b domain.Product) int {
		return a.Stock - b.Stock
	})
	stats.LowStockCount = len(stats.LowStockItems)
	stats.StockValue = domain.NewMoney(stockValue).Round2()

	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	today := search.Invoices(invoices, search.InvoiceFilter{
		From: dayStart,
		To:   dayStart.AddDate(0, 0, 1).Add(-time.Nanosecond),
	})
	revenue := decimal.Zero
	for _, inv := range today {
		revenue = revenue.Add(inv.GrandTotal.Decimal)
	}
	stats.InvoicesToday = len(today)
	stats.RevenueToday = domain.NewMoney(revenue).Round2()
	return stats, nil
}
