package scraper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/chefmarket/backend/internal/domain"
	"github.com/chefmarket/backend/internal/logging"
)

// PageFetcher retrieves a page body on behalf of a named source. *Client satisfies it.
type PageFetcher interface {
	Fetch(ctx context.Context, source, pageURL string) ([]byte, error)
}

// Engine scrapes one source for one ingredient and appends the result to history
type Engine struct {
	fetcher         PageFetcher
	prices          domain.ScrapedPriceRepository
	defaultCurrency string
	now             func() time.Time
	logger          *zap.Logger
}

var _ domain.PriceScraper = (*Engine)(nil)

// NewEngine creates a scraping engine
func NewEngine(fetcher PageFetcher, prices domain.ScrapedPriceRepository, defaultCurrency string, logger *zap.Logger) *Engine {
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &Engine{
		fetcher:         fetcher,
		prices:          prices,
		defaultCurrency: defaultCurrency,
		now:             func() time.Time { return time.Now().UTC() },
		logger:          logging.OrNop(logger).With(zap.String("component", "scraper")),
	}
}

// ScrapeOne fetches the source's search page for ingredient, extracts and normalizes the
// first product price, and persists it. Every failure comes back as a SourceFailure.
func (e *Engine) ScrapeOne(ctx context.Context, ingredient string, source *domain.PriceSource) domain.ScrapeOutcome {
	start := time.Now()
	outcome := e.scrape(ctx, ingredient, source)
	outcome.Duration = time.Since(start)

	if !outcome.OK() {
		e.logger.Warn("scrape failed",
			zap.String("source", source.Name),
			zap.String("ingredient", ingredient),
			zap.Duration("duration", outcome.Duration),
			zap.Error(outcome.Reason))
	} else {
		e.logger.Debug("scraped price",
			zap.String("source", source.Name),
			zap.String("ingredient", ingredient),
			zap.String("price", outcome.Price.Price.String()),
			zap.Duration("duration", outcome.Duration))
	}
	return outcome
}

func (e *Engine) scrape(ctx context.Context, ingredient string, source *domain.PriceSource) domain.ScrapeOutcome {
	pageURL := source.SearchURL(ingredient)

	body, err := e.fetcher.Fetch(ctx, source.Name, pageURL)
	if err != nil {
		return domain.SourceFailure(source, err)
	}

	ext, err := Extract(body, source, pageURL)
	if err != nil {
		return domain.SourceFailure(source, err)
	}

	price, err := ParsePrice(ext.PriceText)
	if err != nil {
		return domain.SourceFailure(source, err)
	}

	record := &domain.ScrapedPrice{
		PriceSourceID:  source.ID,
		SourceName:     source.Name,
		IngredientName: ingredient,
		ProductName:    ext.ProductName,
		Price:          price,
		Currency:       DetectCurrency(ext.PriceText, e.defaultCurrency),
		ProductURL:     pageURL,
		ImageURL:       ext.ImageURL,
		ScrapedAt:      e.now(),
	}
	if err := e.prices.Create(ctx, record); err != nil {
		return domain.SourceFailure(source, fmt.Errorf("persist scraped price: %w", err))
	}
	return domain.Success(source, record, false)
}
