package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"github.com/rr4180885/myshop2/internal/domain"
	"github.com/rr4180885/myshop2/internal/store"
)

//go:embed schema.sql
var schemaSQL string

const maxSerializationRetries = 3

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(16)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the schema. Every statement is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// SeedProducts loads the default catalogue when the products table is empty.
func (s *Store) SeedProducts(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM products`).Scan(&count); err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	inserted := 0
	for _, p := range store.DefaultProducts() {
		if _, err := s.CreateProduct(ctx, p); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				continue
			}
			return inserted, err
		}
		inserted++
	}
	return inserted, nil
}

const productColumns = `id, name, brand, code, hsn_code, stock, purchase_price, selling_price, gst_rate, max_discount`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	var maxDiscount decimal.NullDecimal
	if err := row.Scan(&p.ID, &p.Name, &p.Brand, &p.Code, &p.HSNCode, &p.Stock, &p.PurchasePrice, &p.SellingPrice, &p.GSTRate, &maxDiscount); err != nil {
		return domain.Product{}, err
	}
	if maxDiscount.Valid {
		md := domain.NewMoney(maxDiscount.Decimal)
		p.MaxDiscount = &md
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	return queryProductMap(ctx, s.db, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryProductMap(ctx context.Context, q querier, query string, ids []int64) (map[int64]domain.Product, error) {
	out := make(map[int64]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := q.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Code == "" || product.Stock < 0 {
		return nil, store.ErrInvalid
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO products (name, brand, code, hsn_code, stock, purchase_price, selling_price, gst_rate, max_discount)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id
	`, product.Name, product.Brand, product.Code, product.HSNCode, product.Stock,
		product.PurchasePrice, product.SellingPrice, product.GSTRate, nullMoney(product.MaxDiscount)).Scan(&product.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		if isOutOfRange(err) {
			return nil, fmt.Errorf("%w: amount out of range", store.ErrInvalid)
		}
		return nil, err
	}
	return &product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if product.Code == "" || product.Stock < 0 {
		return nil, store.ErrInvalid
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, brand = $3, code = $4, hsn_code = $5, stock = $6,
		    purchase_price = $7, selling_price = $8, gst_rate = $9, max_discount = $10, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.Brand, product.Code, product.HSNCode, product.Stock,
		product.PurchasePrice, product.SellingPrice, product.GSTRate, nullMoney(product.MaxDiscount))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		if isOutOfRange(err) {
			return nil, fmt.Errorf("%w: amount out of range", store.ErrInvalid)
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetProduct(ctx, product.ID)
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

const invoiceColumns = `id, invoice_number, customer_name, customer_phone, items, subtotal, gst_amount, grand_total, created_at`

func scanInvoice(row rowScanner) (domain.Invoice, error) {
	var inv domain.Invoice
	var customerName, customerPhone sql.NullString
	var items []byte
	if err := row.Scan(&inv.ID, &inv.InvoiceNumber, &customerName, &customerPhone, &items, &inv.Subtotal, &inv.GSTAmount, &inv.GrandTotal, &inv.CreatedAt); err != nil {
		return domain.Invoice{}, err
	}
	inv.CustomerName = customerName.String
	inv.CustomerPhone = customerPhone.String
	inv.CreatedAt = inv.CreatedAt.UTC()
	if err := json.Unmarshal(items, &inv.Items); err != nil {
		return domain.Invoice{}, fmt.Errorf("decode items of invoice %d: %w", inv.ID, err)
	}
	return inv, nil
}

func (s *Store) ListInvoices(ctx context.Context) ([]domain.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+invoiceColumns+` FROM invoices ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := make([]domain.Invoice, 0, 64)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return invoices, nil
}

func (s *Store) GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	inv, err := scanInvoice(s.db.QueryRowContext(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &inv, nil
}

func (s *Store) GetSettings(ctx context.Context) (domain.Settings, error) {
	var settings domain.Settings
	var footer []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT shop_name, address, city, phone, email, gst_number, footer_lines, logo_url, signature_url, updated_at
		FROM settings
		WHERE id = 1
	`).Scan(&settings.ShopName, &settings.Address, &settings.City, &settings.Phone, &settings.Email,
		&settings.GSTNumber, &footer, &settings.LogoURL, &settings.SignatureURL, &settings.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.DefaultSettings(), nil
		}
		return domain.Settings{}, err
	}
	if err := json.Unmarshal(footer, &settings.FooterLines); err != nil {
		return domain.Settings{}, fmt.Errorf("decode footer lines: %w", err)
	}
	settings.UpdatedAt = settings.UpdatedAt.UTC()
	return settings, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	if len(settings.FooterLines) > domain.MaxFooterLines {
		return domain.Settings{}, store.ErrInvalid
	}
	if settings.FooterLines == nil {
		settings.FooterLines = []string{}
	}
	footer, err := json.Marshal(settings.FooterLines)
	if err != nil {
		return domain.Settings{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO settings (id, shop_name, address, city, phone, email, gst_number, footer_lines, logo_url, signature_url, updated_at)
		VALUES (1,$1,$2,$3,$4,$5,$6,$7,$8,$9,now())
		ON CONFLICT (id) DO UPDATE SET
			shop_name = EXCLUDED.shop_name,
			address = EXCLUDED.address,
			city = EXCLUDED.city,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			gst_number = EXCLUDED.gst_number,
			footer_lines = EXCLUDED.footer_lines,
			logo_url = EXCLUDED.logo_url,
			signature_url = EXCLUDED.signature_url,
			updated_at = now()
	`, settings.ShopName, settings.Address, settings.City, settings.Phone, settings.Email,
		settings.GSTNumber, string(footer), settings.LogoURL, settings.SignatureURL)
	if err != nil {
		return domain.Settings{}, err
	}
	return s.GetSettings(ctx)
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.PasswordHash) == "" {
		return nil, store.ErrInvalid
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password, created_at, updated_at)
		VALUES ($1,$2,$3,$4,now())
	`, user.ID, user.Username, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrNotFound
	}
	return s.findUser(ctx, "id", id)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.findUser(ctx, "username", strings.ToLower(strings.TrimSpace(username)))
}

func (s *Store) findUser(ctx context.Context, column string, value string) (*domain.User, error) {
	var user domain.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password, created_at
		FROM users
		WHERE `+column+` = $1
	`, value).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, id string, passwordHash string) error {
	if strings.TrimSpace(passwordHash) == "" {
		return store.ErrInvalid
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET password = $2, updated_at = now()
		WHERE id = $1
	`, id, passwordHash)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// InTx runs fn inside a serializable transaction, retrying on serialization
// failures. fn must not have side effects outside the transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx store.Tx) error) error {
	var err error
	for attempt := 0; attempt < maxSerializationRetries; attempt++ {
		err = s.runTx(ctx, fn)
		if !isSerializationFailure(err) {
			return err
		}
	}
	return err
}

func (s *Store) runTx(ctx context.Context, fn func(tx store.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(&pgTx{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) LockProducts(ctx context.Context, ids []int64) (map[int64]domain.Product, error) {
	return queryProductMap(ctx, t.tx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, ids)
}

func (t *pgTx) DecrementStock(ctx context.Context, productID int64, qty int) (int, error) {
	if qty < 1 {
		return 0, store.ErrInvalid
	}
	var stock int
	err := t.tx.QueryRowContext(ctx, `
		UPDATE products
		SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2
		RETURNING stock
	`, productID, qty).Scan(&stock)
	if err == nil {
		return stock, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	err = t.tx.QueryRowContext(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, store.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return stock, store.ErrInsufficientStock
}

func (t *pgTx) NextInvoiceSequence(ctx context.Context, year int) (int64, error) {
	var seq int64
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO invoice_counters (year, last_value)
		VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last_value = invoice_counters.last_value + 1
		RETURNING last_value
	`, year).Scan(&seq)
	return seq, err
}

func (t *pgTx) InsertInvoice(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	if invoice.InvoiceNumber == "" || len(invoice.Items) == 0 {
		return nil, store.ErrInvalid
	}
	items, err := json.Marshal(invoice.Items)
	if err != nil {
		return nil, err
	}
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = time.Now().UTC()
	}

	err = t.tx.QueryRowContext(ctx, `
		INSERT INTO invoices (invoice_number, customer_name, customer_phone, items, subtotal, gst_amount, grand_total, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id
	`, invoice.InvoiceNumber, invoice.CustomerName, invoice.CustomerPhone, string(items),
		invoice.Subtotal, invoice.GSTAmount, invoice.GrandTotal, invoice.CreatedAt).Scan(&invoice.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		if isOutOfRange(err) {
			return nil, fmt.Errorf("%w: amount out of range", store.ErrInvalid)
		}
		return nil, err
	}
	return &invoice, nil
}

func isOutOfRange(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "22003"
	}
	return false
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func nullMoney(val *domain.Money) any {
	if val == nil {
		return nil
	}
	return val.StringFixed(2)
}
