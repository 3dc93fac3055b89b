package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/chefmarket/backend/internal/domain"
	"github.com/chefmarket/backend/internal/logging"
)

// SourceResolver resolves the sources a scrape targets. *PriceSourceService satisfies it.
type SourceResolver interface {
	ActiveSources(ctx context.Context, ids []int64) ([]domain.PriceSource, error)
}

// ComparisonInvalidator drops memoized comparisons. *ComparisonService satisfies it.
type ComparisonInvalidator interface {
	Invalidate(ctx context.Context, ingredient string) bool
	InvalidateAll(ctx context.Context) int
}

// ScrapeObserver records per-source outcomes. *metrics.Collector satisfies it.
type ScrapeObserver interface {
	ObserveScrape(source, outcome string, d time.Duration)
}

// ScrapeServiceConfig holds configuration for the scrape orchestrator
type ScrapeServiceConfig struct {
	MaxConcurrency  int
	FreshnessWindow domain.FreshnessWindow
}

// ScrapeService fans a scrape request out over the target sources. One source failing,
// even by panicking, never affects the others or the caller.
type ScrapeService struct {
	sources        SourceResolver
	scraper        domain.PriceScraper
	freshness      *FreshnessCache
	prices         domain.ScrapedPriceRepository
	comparisons    ComparisonInvalidator
	observer       ScrapeObserver
	maxConcurrency int
	window         domain.FreshnessWindow
	now            func() time.Time
	logger         *zap.Logger
}

// NewScrapeService creates a new scrape orchestrator with dependencies
func NewScrapeService(
	sources SourceResolver,
	scraper domain.PriceScraper,
	freshness *FreshnessCache,
	prices domain.ScrapedPriceRepository,
	comparisons ComparisonInvalidator,
	observer ScrapeObserver,
	config ScrapeServiceConfig,
	logger *zap.Logger,
) *ScrapeService {
	maxConcurrency := config.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}

	return &ScrapeService{
		sources:        sources,
		scraper:        scraper,
		freshness:      freshness,
		prices:         prices,
		comparisons:    comparisons,
		observer:       observer,
		maxConcurrency: maxConcurrency,
		window:         config.FreshnessWindow.OrDefault(),
		now:            time.Now,
		logger:         logging.OrNop(logger).With(zap.String("service", "scrape")),
	}
}

// Scrape returns one record per source that produced (or already had) a fresh price.
// Order is unspecified. The only errors are validation and "no active sources".
func (s *ScrapeService) Scrape(ctx context.Context, req *domain.ScrapeRequest) ([]domain.ScrapedPrice, error) {
	outcomes, err := s.ScrapeOutcomes(ctx, req)
	if err != nil {
		return nil, err
	}

	results := make([]domain.ScrapedPrice, 0, len(outcomes))
	for _, o := range outcomes {
		if o.OK() {
			results = append(results, *o.Price)
		}
	}
	return results, nil
}

// ScrapeOutcomes is Scrape with the per-source failures kept
func (s *ScrapeService) ScrapeOutcomes(ctx context.Context, req *domain.ScrapeRequest) ([]domain.ScrapeOutcome, error) {
	if req == nil {
		return nil, domain.ErrInvalidRequest
	}
	ingredient, err := validateIngredient(req.IngredientName)
	if err != nil {
		return nil, err
	}

	sources, err := s.sources.ActiveSources(ctx, req.PriceSourceIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve price sources: %w", err)
	}
	if len(sources) == 0 {
		return nil, domain.ErrNoActiveSources
	}

	outcomes := make([]domain.ScrapeOutcome, len(sources))
	var g errgroup.Group
	g.SetLimit(s.maxConcurrency)
	for i := range sources {
		i := i
		g.Go(func() error {
			outcomes[i] = s.scrapeSource(ctx, ingredient, &sources[i], req.ForceRefresh)
			return nil
		})
	}
	_ = g.Wait()

	fresh, scraped, failed := 0, 0, 0
	for _, o := range outcomes {
		switch o.Label() {
		case "fresh":
			fresh++
		case "scraped":
			scraped++
		default:
			failed++
		}
	}
	if scraped > 0 && s.comparisons != nil {
		s.comparisons.Invalidate(ctx, ingredient)
	}

	s.logger.Info("scrape finished",
		zap.String("ingredient", ingredient),
		zap.Int("sources", len(sources)),
		zap.Int("fresh", fresh),
		zap.Int("scraped", scraped),
		zap.Int("failed", failed))
	return outcomes, nil
}

// scrapeSource runs the freshness check then the scrape for one source
func (s *ScrapeService) scrapeSource(ctx context.Context, ingredient string, source *domain.PriceSource, force bool) (outcome domain.ScrapeOutcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			outcome = domain.SourceFailure(source, fmt.Errorf("scraper panic: %v", r))
			s.logger.Error("scraper panicked",
				zap.String("source", source.Name),
				zap.String("ingredient", ingredient),
				zap.Any("panic", r))
		}
		if outcome.Duration == 0 {
			outcome.Duration = time.Since(start)
		}
		if s.observer != nil {
			s.observer.ObserveScrape(source.Name, outcome.Label(), outcome.Duration)
		}
	}()

	if !force && s.freshness != nil {
		if cached, ok := s.freshness.Lookup(ctx, ingredient, source.ID, s.window); ok {
			if cached.SourceName == "" {
				cached.SourceName = source.Name
			}
			return domain.Success(source, cached, true)
		}
	}

	outcome = s.scraper.ScrapeOne(ctx, ingredient, source)
	if outcome.OK() && outcome.Price.SourceName == "" {
		outcome.Price.SourceName = source.Name
	}
	return outcome
}

// PurgeOlderThan deletes history older than age and drops every memoized comparison
func (s *ScrapeService) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	if age <= 0 {
		return 0, domain.NewValidationError("olderThan", "must be a positive duration")
	}

	cutoff := s.now().Add(-age)
	deleted, err := s.prices.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	if s.comparisons != nil {
		s.comparisons.InvalidateAll(ctx)
	}
	s.logger.Info("purged price history", zap.Time("cutoff", cutoff), zap.Int64("deleted", deleted))
	return deleted, nil
}
