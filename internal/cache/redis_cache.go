package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/rr4180885/myshop2/internal/domain"
)

const (
	productsKey      = "shop:products:all"
	invoicesKey      = "shop:invoices:all"
	revokedKeyPrefix = "shop:session:revoked:"
)

func NewRedisClient(addr string, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

type RedisListCache struct {
	client *redis.Client
}

func NewRedisListCache(client *redis.Client) *RedisListCache {
	return &RedisListCache{client: client}
}

func (c *RedisListCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisListCache) GetProducts(ctx context.Context) ([]domain.Product, bool, error) {
	var products []domain.Product
	ok, err := c.getJSON(ctx, productsKey, &products)
	return products, ok, err
}

func (c *RedisListCache) SetProducts(ctx context.Context, products []domain.Product, ttl time.Duration) error {
	return c.setJSON(ctx, productsKey, products, ttl)
}

func (c *RedisListCache) GetInvoices(ctx context.Context) ([]domain.Invoice, bool, error) {
	var invoices []domain.Invoice
	ok, err := c.getJSON(ctx, invoicesKey, &invoices)
	return invoices, ok, err
}

func (c *RedisListCache) SetInvoices(ctx context.Context, invoices []domain.Invoice, ttl time.Duration) error {
	return c.setJSON(ctx, invoicesKey, invoices, ttl)
}

func (c *RedisListCache) InvalidateProducts(ctx context.Context) error {
	return c.client.Del(ctx, productsKey).Err()
}

func (c *RedisListCache) InvalidateInvoices(ctx context.Context) error {
	return c.client.Del(ctx, invoicesKey).Err()
}

func (c *RedisListCache) getJSON(ctx context.Context, key string, dst any) (bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dst); err != nil {
		return false, err
	}
	return true, nil
}

func (c *RedisListCache) setJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

type RedisRevoker struct {
	client *redis.Client
}

func NewRedisRevoker(client *redis.Client) *RedisRevoker {
	return &RedisRevoker{client: client}
}

func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if tokenID == "" || ttl <= 0 {
		return nil
	}
	return r.client.Set(ctx, revokedKeyPrefix+tokenID, "1", ttl).Err()
}

func (r *RedisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, revokedKeyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
