package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chefmarket/backend/internal/domain"
	"github.com/chefmarket/backend/internal/infrastructure/cache"
	"github.com/chefmarket/backend/internal/logging"
)

// ComparisonCachePrefix namespaces memoized comparisons
const ComparisonCachePrefix = "price_compare"

// ComparisonServiceConfig holds configuration for the comparison service
type ComparisonServiceConfig struct {
	Window   domain.FreshnessWindow
	CacheTTL time.Duration
}

// ComparisonService aggregates the fresh price history of an ingredient across sources.
// Results, including "no data", are memoized per ingredient.
type ComparisonService struct {
	prices domain.ScrapedPriceRepository
	window domain.FreshnessWindow
	now    func() time.Time
	memo   *cache.Memoized[string, domain.PriceComparison]
	logger *zap.Logger
}

// NewComparisonService creates a new comparison service with dependencies
func NewComparisonService(
	prices domain.ScrapedPriceRepository,
	store domain.CacheRepository,
	codec cache.Codec,
	config ComparisonServiceConfig,
	observer cache.Observer,
	logger *zap.Logger,
) *ComparisonService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 10 * time.Minute
	}

	s := &ComparisonService{
		prices: prices,
		window: config.Window.OrDefault(),
		now:    time.Now,
		logger: logging.OrNop(logger).With(zap.String("service", "comparison")),
	}
	s.memo = cache.Memoize(store, codec,
		cache.MemoizeOptions{
			Prefix:   ComparisonCachePrefix,
			TTL:      cacheTTL,
			Observer: observer,
			Logger:   logger,
		},
		func(ingredient string) cache.KeyArgs { return cache.Args(ingredient) },
		s.compute,
	)
	return s
}

// Compare returns min/max/avg and a per-source breakdown for ingredient.
// No fresh data is not an error: the result has Found=false and a message.
func (s *ComparisonService) Compare(ctx context.Context, ingredient string) (*domain.PriceComparison, error) {
	name, err := validateIngredient(ingredient)
	if err != nil {
		return nil, err
	}

	result, found, err := s.memo.Call(ctx, name)
	if err != nil {
		return nil, err
	}
	if !found {
		return notFoundComparison(name, s.window), nil
	}
	return &result, nil
}

// Invalidate drops the memoized comparison of one ingredient
func (s *ComparisonService) Invalidate(ctx context.Context, ingredient string) bool {
	return s.memo.Invalidate(ctx, NormalizeIngredient(ingredient))
}

// InvalidateAll drops every memoized comparison
func (s *ComparisonService) InvalidateAll(ctx context.Context) int {
	return s.memo.InvalidateAll(ctx)
}

func (s *ComparisonService) compute(ctx context.Context, ingredient string) (domain.PriceComparison, bool, error) {
	records, err := s.prices.ListSince(ctx, ingredient, s.window.Since(s.now()))
	if err != nil {
		return domain.PriceComparison{}, false, fmt.Errorf("load price history: %w", err)
	}
	if len(records) == 0 {
		return domain.PriceComparison{}, false, nil
	}
	return aggregate(ingredient, records), true, nil
}

// aggregate keeps the freshest record per source and summarizes them
func aggregate(ingredient string, records []domain.ScrapedPrice) domain.PriceComparison {
	latest := make(map[int64]domain.ScrapedPrice, len(records))
	for _, r := range records {
		if cur, ok := latest[r.PriceSourceID]; !ok || r.ScrapedAt.After(cur.ScrapedAt) {
			latest[r.PriceSourceID] = r
		}
	}

	sources := make([]domain.SourcePrice, 0, len(latest))
	for _, r := range latest {
		sources = append(sources, domain.SourcePrice{
			SourceID:    r.PriceSourceID,
			SourceName:  r.SourceName,
			ProductName: r.ProductName,
			Price:       r.Price,
			Currency:    r.Currency,
			URL:         r.ProductURL,
			ScrapedAt:   r.ScrapedAt,
		})
	}
	sort.Slice(sources, func(i, j int) bool {
		if c := sources[i].Price.Cmp(sources[j].Price); c != 0 {
			return c < 0
		}
		return sources[i].SourceID < sources[j].SourceID
	})

	sum := decimal.Zero
	for _, sp := range sources {
		sum = sum.Add(sp.Price)
	}
	n := decimal.NewFromInt(int64(len(sources)))

	return domain.PriceComparison{
		IngredientName: ingredient,
		Found:          true,
		MinPrice:       sources[0].Price,
		MaxPrice:       sources[len(sources)-1].Price,
		AvgPrice:       sum.Div(n).Round(2),
		TotalSources:   len(sources),
		Sources:        sources,
	}
}

func notFoundComparison(ingredient string, window domain.FreshnessWindow) *domain.PriceComparison {
	return &domain.PriceComparison{
		IngredientName: ingredient,
		Found:          false,
		Message:        fmt.Sprintf("no prices for %q scraped in the last %s; run a scrape first", ingredient, time.Duration(window)),
		MinPrice:       decimal.Zero,
		MaxPrice:       decimal.Zero,
		AvgPrice:       decimal.Zero,
		Sources:        []domain.SourcePrice{},
	}
}
