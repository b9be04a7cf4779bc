package pricing

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// RepositoryPort abstracts the read queries used by the service.
type RepositoryPort interface {
	ResolveProduct(ctx context.Context, guid uuid.UUID) (int64, error)
	ResolveContext(ctx context.Context, refs Refs) (Context, error)
	LoadRules(ctx context.Context, productID int64) ([]Rule, error)
}

// MetricsPort counts resolutions per winning tier.
type MetricsPort interface {
	ObserveResolution(level string)
}

// Service answers price quotes. Resolution is read-only and safe under
// unlimited concurrency; identical concurrent requests are collapsed through
// singleflight before hitting the repository.
type Service struct {
	repo    RepositoryPort
	cache   *QuoteCache
	metrics MetricsPort
	logger  *slog.Logger
	group   singleflight.Group
	now     func() time.Time
}

// NewService builds Service. Cache and metrics may be nil.
func NewService(repo RepositoryPort, cache *QuoteCache, metrics MetricsPort, logger *slog.Logger) *Service {
	return &Service{
		repo:    repo,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Quote resolves the effective price for a product in the given context.
func (s *Service) Quote(ctx context.Context, product uuid.UUID, refs Refs) (Quote, error) {
	key := quoteKey(product, refs)
	if s.cache != nil {
		if q, ok := s.cache.Get(ctx, key); ok {
			s.observe(q.Level)
			return q, nil
		}
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		productID, err := s.repo.ResolveProduct(ctx, product)
		if err != nil {
			return nil, err
		}
		rc, err := s.repo.ResolveContext(ctx, refs)
		if err != nil {
			return nil, err
		}
		rules, err := s.repo.LoadRules(ctx, productID)
		if err != nil {
			return nil, err
		}
		rule, level, err := Resolve(rules, rc, s.now())
		if err != nil {
			return nil, err
		}
		q := Quote{Price: rule.Price, Currency: rule.Currency, Level: level}
		if s.cache != nil {
			s.cache.Set(ctx, key, q)
		}
		return q, nil
	})
	if err != nil {
		return Quote{}, err
	}
	q := v.(Quote)
	s.observe(q.Level)
	return q, nil
}

func (s *Service) observe(level Level) {
	if s.metrics != nil {
		s.metrics.ObserveResolution(string(level))
	}
}

func quoteKey(product uuid.UUID, refs Refs) string {
	parts := []string{product.String(), refs.Counterparty.String(), refs.Agreement.String(), refs.PriceType.String()}
	return strings.Join(parts, ":")
}
