package service

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rr4180885/myshop2/internal/cache"
	"github.com/rr4180885/myshop2/internal/domain"
	"github.com/rr4180885/myshop2/internal/events"
	"github.com/rr4180885/myshop2/internal/store"
)

const defaultLowStockThreshold = 10

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Options struct {
	Cache             cache.ListCache
	CacheTTL          time.Duration
	Events            events.Publisher
	LowStockThreshold int
	Location          *time.Location
}

type Service struct {
	repo              store.Repository
	cache             cache.ListCache
	cacheTTL          time.Duration
	events            events.Publisher
	validator         *validator.Validate
	lowStockThreshold int
	loc               *time.Location
	now               func() time.Time

	// Bumped on every invalidation. A list read only fills the cache when no
	// invalidation happened while it was reading.
	productsGen atomic.Uint64
	invoicesGen atomic.Uint64
}

func New(repo store.Repository, opts Options) *Service {
	if opts.Cache == nil {
		opts.Cache = cache.NoopListCache{}
	}
	if opts.Events == nil {
		opts.Events = events.NoopPublisher{}
	}
	if opts.LowStockThreshold <= 0 {
		opts.LowStockThreshold = defaultLowStockThreshold
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}

	return &Service{
		repo:              repo,
		cache:             opts.Cache,
		cacheTTL:          opts.CacheTTL,
		events:            opts.Events,
		validator:         newValidator(),
		lowStockThreshold: opts.LowStockThreshold,
		loc:               opts.Location,
		now:               time.Now,
	}
}

// Location is the shop time zone used for invoice years and date filters.
func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) invalidateProducts(ctx context.Context) {
	s.productsGen.Add(1)
	if err := s.cache.InvalidateProducts(ctx); err != nil {
		log.Printf("[service] WARN: failed to invalidate product cache: %v", err)
	}
}

func (s *Service) invalidateInvoices(ctx context.Context) {
	s.invoicesGen.Add(1)
	if err := s.cache.InvalidateInvoices(ctx); err != nil {
		log.Printf("[service] WARN: failed to invalidate invoice cache: %v", err)
	}
}

func (s *Service) publish(ctx context.Context, evts ...events.Envelope) {
	if len(evts) == 0 {
		return
	}
	if err := s.events.Publish(ctx, evts...); err != nil {
		log.Printf("[events] WARN: failed to publish %d event(s) first=%s: %v", len(evts), evts[0].Type, err)
	}
}

func actorName(ctx context.Context) string {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Username == "" {
		return "system"
	}
	return actor.Username
}
