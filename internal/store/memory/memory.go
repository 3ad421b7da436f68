package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/rr4180885/myshop2/internal/domain"
	"github.com/rr4180885/myshop2/internal/store"
)

type Store struct {
	mu              sync.RWMutex
	products        map[int64]domain.Product
	nextProductID   int64
	invoices        map[int64]domain.Invoice
	nextInvoiceID   int64
	counters        map[int]int64
	settings        *domain.Settings
	usersByID       map[string]domain.User
	usersByUsername map[string]string
}

func New() *Store {
	return &Store{
		products:        make(map[int64]domain.Product),
		nextProductID:   1,
		invoices:        make(map[int64]domain.Invoice),
		nextInvoiceID:   1,
		counters:        make(map[int]int64),
		usersByID:       make(map[string]domain.User),
		usersByUsername: make(map[string]string),
	}
}

// NewSeeded returns a store with the default catalogue and an admin account
// whose password comes from SEED_ADMIN_PASSWORD (dev default otherwise).
func NewSeeded() *Store {
	s := New()
	for _, p := range store.DefaultProducts() {
		p.ID = s.nextProductID
		s.nextProductID++
		s.products[p.ID] = p
	}

	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD to override.")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("[memory-store] failed to hash seed password: %v", err)
	}
	admin := domain.User{
		ID:           uuid.NewString(),
		Username:     "admin",
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	s.usersByID[admin.ID] = admin
	s.usersByUsername[admin.Username] = admin.ID
	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, cloneProduct(p))
	}
	slices.SortFunc(products, func(a, b domain.Product) int {
		return cmpInt64(a.ID, b.ID)
	})
	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copyProduct := cloneProduct(product)
	return &copyProduct, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []int64) (map[int64]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[int64]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = cloneProduct(p)
		}
	}
	return out, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Code == "" || product.Stock < 0 {
		return nil, store.ErrInvalid
	}
	if s.codeTaken(product.Code, 0) {
		return nil, store.ErrDuplicate
	}

	product.ID = s.nextProductID
	s.nextProductID++
	s.products[product.ID] = cloneProduct(product)
	created := cloneProduct(product)
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.ID]; !exists {
		return nil, store.ErrNotFound
	}
	if product.Code == "" || product.Stock < 0 {
		return nil, store.ErrInvalid
	}
	if s.codeTaken(product.Code, product.ID) {
		return nil, store.ErrDuplicate
	}
	s.products[product.ID] = cloneProduct(product)
	updated := cloneProduct(product)
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.products, id)
	return nil
}

func (s *Store) ListInvoices(_ context.Context) ([]domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	invoices := make([]domain.Invoice, 0, len(s.invoices))
	for _, inv := range s.invoices {
		invoices = append(invoices, cloneInvoice(inv))
	}
	// newest first
	slices.SortFunc(invoices, func(a, b domain.Invoice) int {
		return cmpInt64(b.ID, a.ID)
	})
	return invoices, nil
}

func (s *Store) GetInvoice(_ context.Context, id int64) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, exists := s.invoices[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	out := cloneInvoice(inv)
	return &out, nil
}

func (s *Store) GetSettings(_ context.Context) (domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.settings == nil {
		return domain.DefaultSettings(), nil
	}
	return cloneSettings(*s.settings), nil
}

func (s *Store) SaveSettings(_ context.Context, settings domain.Settings) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(settings.FooterLines) > domain.MaxFooterLines {
		return domain.Settings{}, store.ErrInvalid
	}
	settings.UpdatedAt = time.Now().UTC()
	saved := cloneSettings(settings)
	s.settings = &saved
	return cloneSettings(saved), nil
}

func (s *Store) CreateUser(_ context.Context, user domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || user.PasswordHash == "" {
		return nil, store.ErrInvalid
	}
	if _, exists := s.usersByUsername[user.Username]; exists {
		return nil, store.ErrDuplicate
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByID[user.ID] = user
	s.usersByUsername[user.Username] = user.ID
	created := user
	return &created, nil
}

func (s *Store) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (s *Store) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.usersByUsername[strings.ToLower(strings.TrimSpace(username))]
	if !exists {
		return nil, store.ErrNotFound
	}
	user := s.usersByID[id]
	return &user, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, id string, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByID[id]
	if !exists {
		return store.ErrNotFound
	}
	if strings.TrimSpace(passwordHash) == "" {
		return store.ErrInvalid
	}
	user.PasswordHash = passwordHash
	s.usersByID[id] = user
	return nil
}

// InTx holds the write lock for the whole of fn, so concurrent checkouts are
// serialized. Changes are staged and applied only when fn succeeds.
func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:    s,
		products: make(map[int64]domain.Product),
		counters: make(map[int]int64),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for id, p := range tx.products {
		s.products[id] = p
	}
	for year, seq := range tx.counters {
		s.counters[year] = seq
	}
	for _, inv := range tx.invoices {
		s.invoices[inv.ID] = inv
	}
	s.nextInvoiceID += int64(len(tx.invoices))
	return nil
}

type memTx struct {
	store    *Store
	products map[int64]domain.Product
	counters map[int]int64
	invoices []domain.Invoice
}

func (t *memTx) product(id int64) (domain.Product, bool) {
	if p, ok := t.products[id]; ok {
		return p, true
	}
	p, ok := t.store.products[id]
	return p, ok
}

func (t *memTx) LockProducts(_ context.Context, ids []int64) (map[int64]domain.Product, error) {
	out := make(map[int64]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := t.product(id); ok {
			out[id] = cloneProduct(p)
		}
	}
	return out, nil
}

func (t *memTx) DecrementStock(_ context.Context, productID int64, qty int) (int, error) {
	p, ok := t.product(productID)
	if !ok {
		return 0, store.ErrNotFound
	}
	if qty < 1 {
		return 0, store.ErrInvalid
	}
	if p.Stock < qty {
		return p.Stock, store.ErrInsufficientStock
	}
	p.Stock -= qty
	t.products[productID] = p
	return p.Stock, nil
}

func (t *memTx) NextInvoiceSequence(_ context.Context, year int) (int64, error) {
	current, staged := t.counters[year]
	if !staged {
		current = t.store.counters[year]
	}
	current++
	t.counters[year] = current
	return current, nil
}

func (t *memTx) InsertInvoice(_ context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	if invoice.InvoiceNumber == "" || len(invoice.Items) == 0 {
		return nil, store.ErrInvalid
	}
	for _, existing := range t.store.invoices {
		if existing.InvoiceNumber == invoice.InvoiceNumber {
			return nil, store.ErrDuplicate
		}
	}
	for _, staged := range t.invoices {
		if staged.InvoiceNumber == invoice.InvoiceNumber {
			return nil, store.ErrDuplicate
		}
	}

	invoice.ID = t.store.nextInvoiceID + int64(len(t.invoices))
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now().UTC()
	}
	t.invoices = append(t.invoices, cloneInvoice(invoice))
	created := cloneInvoice(invoice)
	return &created, nil
}

func (s *Store) codeTaken(code string, exceptID int64) bool {
	for id, p := range s.products {
		if id != exceptID && p.Code == code {
			return true
		}
	}
	return false
}

func cmpInt64(a int64, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cloneProduct(src domain.Product) domain.Product {
	out := src
	if src.MaxDiscount != nil {
		md := *src.MaxDiscount
		out.MaxDiscount = &md
	}
	return out
}

func cloneInvoice(src domain.Invoice) domain.Invoice {
	out := src
	out.Items = append([]domain.InvoiceLine(nil), src.Items...)
	return out
}

func cloneSettings(src domain.Settings) domain.Settings {
	out := src
	out.FooterLines = append([]string{}, src.FooterLines...)
	return out
}
