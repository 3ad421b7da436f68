// Package search filters product and invoice lists in memory. Inputs are never
// modified; results are new slices in the input order.
package search

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rr4180885/myshop2/internal/domain"
)

const dateLayout = "2006-01-02"

var ErrInvalidDateRange = errors.New("invalid date range")

// DateRangeError names the bound that could not be used.
type DateRangeError struct {
	Field  string
	Reason string
}

func (e *DateRangeError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidDateRange, e.Field, e.Reason)
}

func (e *DateRangeError) Unwrap() error {
	return ErrInvalidDateRange
}

// Products keeps products whose name, brand, code or HSN code contains query,
// ignoring case. A blank query returns every product.
func Products(list []domain.Product, query string) []domain.Product {
	needle := normalize(query)
	out := make([]domain.Product, 0, len(list))
	for _, p := range list {
		if needle == "" || containsAny(needle, p.Name, p.Brand, p.Code, p.HSNCode) {
			out = append(out, p)
		}
	}
	return out
}

// InvoiceFilter selects invoices. Zero From or To leaves that side open.
type InvoiceFilter struct {
	Query string
	From  time.Time
	To    time.Time
}

// Invoices keeps invoices whose number, customer name or phone contains the
// query and whose creation time falls inside [From, To].
func Invoices(list []domain.Invoice, filter InvoiceFilter) []domain.Invoice {
	needle := normalize(filter.Query)
	out := make([]domain.Invoice, 0, len(list))
	for _, inv := range list {
		if needle != "" && !containsAny(needle, inv.InvoiceNumber, inv.CustomerName, inv.CustomerPhone) {
			continue
		}
		if !filter.From.IsZero() && inv.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && inv.CreatedAt.After(filter.To) {
			continue
		}
		out = append(out, inv)
	}
	return out
}

// ParseDateRange turns YYYY-MM-DD bounds into the first and last instant of
// those days in loc. Empty strings give zero times.
func ParseDateRange(from string, to string, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}

	var start, end time.Time
	if from = strings.TrimSpace(from); from != "" {
		day, err := time.ParseInLocation(dateLayout, from, loc)
		if err != nil {
			return time.Time{}, time.Time{}, &DateRangeError{Field: "dateFrom", Reason: "must be YYYY-MM-DD"}
		}
		start = day
	}
	if to = strings.TrimSpace(to); to != "" {
		day, err := time.ParseInLocation(dateLayout, to, loc)
		if err != nil {
			return time.Time{}, time.Time{}, &DateRangeError{Field: "dateTo", Reason: "must be YYYY-MM-DD"}
		}
		end = day.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return time.Time{}, time.Time{}, &DateRangeError{Field: "dateTo", Reason: "must not be before dateFrom"}
	}
	return start, end, nil
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func containsAny(needle string, fields ...string) bool {
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}
