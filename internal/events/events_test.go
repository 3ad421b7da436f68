package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rr4180885/myshop2/internal/domain"
)

func TestNewEncodesPayload(t *testing.T) {
	at := time.Date(2024, 1, 5, 9, 30, 0, 0, time.FixedZone("IST", 19800))
	evt, err := New(TypeInvoiceCreated, "INV-2024-0001", InvoiceCreated{
		InvoiceID:     1,
		InvoiceNumber: "INV-2024-0001",
		GrandTotal:    domain.MustMoney("1300"),
	}, at)
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	if evt.OccurredAt.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp")
	}

	var payload map[string]any
	if err := json.Unmarshal(evt.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["grandTotal"] != "1300.00" {
		t.Fatalf("expected grandTotal 1300.00, got %v", payload["grandTotal"])
	}
}
