package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/chefmarket/backend/internal/domain"
	"github.com/chefmarket/backend/internal/logging"
)

// CacheAdminService exposes cache statistics and manual invalidation
type CacheAdminService struct {
	store  domain.CacheRepository
	logger *zap.Logger
}

// NewCacheAdminService creates the admin service over store
func NewCacheAdminService(store domain.CacheRepository, logger *zap.Logger) *CacheAdminService {
	return &CacheAdminService{store: store, logger: logging.OrNop(logger)}
}

// Stats returns the store statistics
func (s *CacheAdminService) Stats(ctx context.Context) domain.CacheStats {
	return s.store.Stats(ctx)
}

// Clear deletes keys matching pattern, or everything the store owns when pattern is empty
func (s *CacheAdminService) Clear(ctx context.Context, pattern string) int {
	pattern = strings.TrimSpace(pattern)
	var removed int
	if pattern == "" || pattern == "*" {
		removed = s.store.Flush(ctx)
	} else {
		removed = s.store.DeletePattern(ctx, pattern)
	}
	s.logger.Info("cache cleared", zap.String("pattern", pattern), zap.Int("removed", removed))
	return removed
}
