// Package events publishes domain events after a change has been committed.
// Publishing is best effort: callers log failures and carry on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rr4180885/myshop2/internal/domain"
)

const (
	TypeInvoiceCreated  = "invoice.created"
	TypeProductStockLow = "product.stock_low"
)

type Envelope struct {
	Type       string          `json:"type"`
	Key        string          `json:"key"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, events ...Envelope) error
	Close() error
}

type InvoiceCreated struct {
	InvoiceID     int64        `json:"invoiceId"`
	InvoiceNumber string       `json:"invoiceNumber"`
	CustomerName  string       `json:"customerName"`
	LineCount     int          `json:"lineCount"`
	GrandTotal    domain.Money `json:"grandTotal"`
	CreatedBy     string       `json:"createdBy,omitempty"`
}

type ProductStockLow struct {
	ProductID int64  `json:"productId"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
	Threshold int    `json:"threshold"`
}

func New(eventType string, key string, payload any, at time.Time) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	return Envelope{
		Type:       eventType,
		Key:        key,
		OccurredAt: at.UTC(),
		Payload:    raw,
	}, nil
}

type NoopPublisher struct{}

func (NoopPublisher) Publish(_ context.Context, _ ...Envelope) error {
	return nil
}

func (NoopPublisher) Close() error {
	return nil
}
