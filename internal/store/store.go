package store

import (
	"context"
	"errors"

	"github.com/rr4180885/myshop2/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicate         = errors.New("duplicate")
	ErrInvalid           = errors.New("invalid record")
)

// Repository is implemented by the postgres store and the in-memory fallback.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	ListInvoices(ctx context.Context) ([]domain.Invoice, error)
	GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error)

	GetSettings(ctx context.Context) (domain.Settings, error)
	SaveSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error)

	CreateUser(ctx context.Context, user domain.User) (*domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateUserPassword(ctx context.Context, id string, passwordHash string) error

	// InTx runs fn atomically. If fn returns an error nothing it did is kept.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the unit of work used by checkout.
type Tx interface {
	// LockProducts returns the current rows for ids and holds them until the
	// transaction ends. Missing ids are absent from the map.
	LockProducts(ctx context.Context, ids []int64) (map[int64]domain.Product, error)
	// DecrementStock subtracts qty only if at least qty is on hand, returning
	// ErrInsufficientStock otherwise.
	DecrementStock(ctx context.Context, productID int64, qty int) (newStock int, err error)
	// NextInvoiceSequence atomically advances and returns the counter for year.
	NextInvoiceSequence(ctx context.Context, year int) (int64, error)
	InsertInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error)
}
