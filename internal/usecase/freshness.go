package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/chefmarket/backend/internal/domain"
	"github.com/chefmarket/backend/internal/logging"
)

// FreshnessCache answers "do we already have a recent enough price for this source?"
// from the persisted history, so a scrape can skip the network fetch.
type FreshnessCache struct {
	prices domain.ScrapedPriceRepository
	window domain.FreshnessWindow
	now    func() time.Time
	logger *zap.Logger
}

// NewFreshnessCache creates a freshness lookup with a default window
func NewFreshnessCache(prices domain.ScrapedPriceRepository, window domain.FreshnessWindow, logger *zap.Logger) *FreshnessCache {
	return &FreshnessCache{
		prices: prices,
		window: window.OrDefault(),
		now:    time.Now,
		logger: logging.OrNop(logger),
	}
}

// Window returns the default freshness window
func (f *FreshnessCache) Window() domain.FreshnessWindow {
	return f.window
}

// Lookup returns the most recent record for the pair when it is younger than maxAge.
// A non-positive maxAge uses the default window. Repository errors read as absent.
func (f *FreshnessCache) Lookup(ctx context.Context, ingredient string, sourceID int64, maxAge domain.FreshnessWindow) (*domain.ScrapedPrice, bool) {
	if maxAge <= 0 {
		maxAge = f.window
	}

	latest, err := f.prices.Latest(ctx, ingredient, sourceID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			f.logger.Warn("freshness lookup failed",
				zap.String("ingredient", ingredient),
				zap.Int64("source_id", sourceID),
				zap.Error(err))
		}
		return nil, false
	}

	if !maxAge.IsFresh(latest.ScrapedAt, f.now()) {
		return nil, false
	}
	return latest, true
}
