package cache

import (
	"context"
	"sync"
	"time"

	"github.com/rr4180885/myshop2/internal/domain"
)

// ListCache keeps the unfiltered product and invoice lists between writes.
type ListCache interface {
	GetProducts(ctx context.Context) ([]domain.Product, bool, error)
	SetProducts(ctx context.Context, products []domain.Product, ttl time.Duration) error
	GetInvoices(ctx context.Context) ([]domain.Invoice, bool, error)
	SetInvoices(ctx context.Context, invoices []domain.Invoice, ttl time.Duration) error
	InvalidateProducts(ctx context.Context) error
	InvalidateInvoices(ctx context.Context) error
}

type NoopListCache struct{}

func (NoopListCache) GetProducts(_ context.Context) ([]domain.Product, bool, error) {
	return nil, false, nil
}

func (NoopListCache) SetProducts(_ context.Context, _ []domain.Product, _ time.Duration) error {
	return nil
}

func (NoopListCache) GetInvoices(_ context.Context) ([]domain.Invoice, bool, error) {
	return nil, false, nil
}

func (NoopListCache) SetInvoices(_ context.Context, _ []domain.Invoice, _ time.Duration) error {
	return nil
}

func (NoopListCache) InvalidateProducts(_ context.Context) error {
	return nil
}

func (NoopListCache) InvalidateInvoices(_ context.Context) error {
	return nil
}

// SessionRevoker remembers logged-out token ids until the token would have
// expired anyway.
type SessionRevoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type MemoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (r *MemoryRevoker) Revoke(_ context.Context, tokenID string, until time.Time) error {
	if tokenID == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, exp := range r.revoked {
		if !exp.After(now) {
			delete(r.revoked, id)
		}
	}
	if until.After(now) {
		r.revoked[tokenID] = until
	}
	return nil
}

func (r *MemoryRevoker) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	exp, ok := r.revoked[tokenID]
	if !ok {
		return false, nil
	}
	if !exp.After(r.now()) {
		delete(r.revoked, tokenID)
		return false, nil
	}
	return true, nil
}
