package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/chefmarket/backend/internal/domain"
	"github.com/chefmarket/backend/internal/infrastructure/cache"
	"github.com/chefmarket/backend/internal/infrastructure/scraper"
	"github.com/chefmarket/backend/internal/logging"
)

const maxSourceNameLength = 100

// PriceSourceServiceConfig holds configuration for the price source registry
type PriceSourceServiceConfig struct {
	CacheTTL time.Duration
}

// PriceSourceService manages scraping targets. Reads are served through the namespaced
// cache; every write invalidates the affected keys after the database call returns.
// Deleting a source, or toggling whether it is active, also drops memoized comparisons
// since they may include that source's prices.
type PriceSourceService struct {
	repo        domain.PriceSourceRepository
	ns          *cache.Namespace
	comparisons ComparisonInvalidator
	cacheTTL    time.Duration
	logger      *zap.Logger
}

// NewPriceSourceService creates a new price source service with dependencies
func NewPriceSourceService(
	repo domain.PriceSourceRepository,
	ns *cache.Namespace,
	comparisons ComparisonInvalidator,
	config PriceSourceServiceConfig,
	logger *zap.Logger,
) *PriceSourceService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 10 * time.Minute
	}

	return &PriceSourceService{
		repo:        repo,
		ns:          ns,
		comparisons: comparisons,
		cacheTTL:    cacheTTL,
		logger:      logging.OrNop(logger).With(zap.String("service", "price_sources")),
	}
}

// Create validates and persists a new source
func (s *PriceSourceService) Create(ctx context.Context, in domain.PriceSourceInput) (*domain.PriceSource, error) {
	source := &domain.PriceSource{IsActive: true}
	in.Apply(source)

	if err := s.validate(ctx, source, 0); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, source); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.NewValidationError("name", "a price source named %q already exists", source.Name)
		}
		return nil, err
	}

	s.invalidate(ctx, source.ID, source.Name)
	s.logger.Info("price source created", zap.Int64("id", source.ID), zap.String("name", source.Name))
	return source, nil
}

// Update applies the set fields of in to the source and persists it
func (s *PriceSourceService) Update(ctx context.Context, id int64, in domain.PriceSourceInput) (*domain.PriceSource, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldName := existing.Name

	updated := *existing
	in.Apply(&updated)

	if err := s.validate(ctx, &updated, id); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.NewValidationError("name", "a price source named %q already exists", updated.Name)
		}
		return nil, err
	}

	s.invalidate(ctx, id, oldName, updated.Name)
	if existing.IsActive != updated.IsActive {
		s.invalidateComparisons(ctx, id)
	}
	s.logger.Info("price source updated", zap.Int64("id", id), zap.String("name", updated.Name))
	return &updated, nil
}

// Delete removes the source and its scrape history
func (s *PriceSourceService) Delete(ctx context.Context, id int64) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, id, existing.Name)
	s.invalidateComparisons(ctx, id)
	s.logger.Info("price source deleted", zap.Int64("id", id), zap.String("name", existing.Name))
	return nil
}

// GetByID returns the source or domain.ErrSourceNotFound
func (s *PriceSourceService) GetByID(ctx context.Context, id int64) (*domain.PriceSource, error) {
	return s.getOne(ctx, fmt.Sprintf("id:%d", id), func(ctx context.Context) (*domain.PriceSource, error) {
		return s.repo.GetByID(ctx, id)
	})
}

// GetByName returns the source or domain.ErrSourceNotFound
func (s *PriceSourceService) GetByName(ctx context.Context, name string) (*domain.PriceSource, error) {
	name = strings.TrimSpace(name)
	return s.getOne(ctx, "name:"+name, func(ctx context.Context) (*domain.PriceSource, error) {
		return s.repo.GetByName(ctx, name)
	})
}

func (s *PriceSourceService) getOne(
	ctx context.Context,
	suffix string,
	load func(context.Context) (*domain.PriceSource, error),
) (*domain.PriceSource, error) {
	var live *domain.PriceSource
	fetch := func(ctx context.Context) (*domain.PriceSource, bool, error) {
		src, err := load(ctx)
		if errors.Is(err, domain.ErrSourceNotFound) {
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		live = src
		return src, true, nil
	}

	cached, found, err := cache.GetOrSet(ctx, s.ns, suffix, fetch, serializeSource, s.cacheTTL)
	if err != nil {
		return nil, err
	}
	if found {
		return &cached, nil
	}
	if live != nil {
		// loaded but could not be cached
		return live, nil
	}
	return nil, domain.ErrSourceNotFound
}

// GetAll lists every source, or only active ones
func (s *PriceSourceService) GetAll(ctx context.Context, activeOnly bool) ([]domain.PriceSource, error) {
	suffix := "list:all"
	if activeOnly {
		suffix = "list:active"
	}

	var live []domain.PriceSource
	fetch := func(ctx context.Context) ([]domain.PriceSource, bool, error) {
		sources, err := s.repo.List(ctx, activeOnly)
		if err != nil {
			return nil, false, err
		}
		live = sources
		return sources, true, nil
	}

	cached, found, err := cache.GetOrSet(ctx, s.ns, suffix, fetch, serializeSources, s.cacheTTL)
	if err != nil {
		return nil, err
	}
	if found {
		return cached, nil
	}
	if live == nil {
		live = []domain.PriceSource{}
	}
	return live, nil
}

// ActiveSources resolves the scrape target set: the active sources among ids, or every
// active source when ids is empty.
func (s *PriceSourceService) ActiveSources(ctx context.Context, ids []int64) ([]domain.PriceSource, error) {
	if len(ids) == 0 {
		return s.GetAll(ctx, true)
	}
	return s.repo.ListByIDs(ctx, ids, true)
}

func serializeSource(src *domain.PriceSource) (domain.PriceSource, error) {
	if src == nil {
		return domain.PriceSource{}, errors.New("nil price source")
	}
	return *src, nil
}

func serializeSources(sources []domain.PriceSource) ([]domain.PriceSource, error) {
	if sources == nil {
		return []domain.PriceSource{}, nil
	}
	return sources, nil
}

// invalidate drops the id and name keys of a source plus every list
func (s *PriceSourceService) invalidate(ctx context.Context, id int64, names ...string) {
	suffixes := []string{fmt.Sprintf("id:%d", id)}
	for _, name := range names {
		suffixes = append(suffixes, "name:"+name)
	}
	removed := s.ns.Invalidate(ctx, suffixes...)
	removed += s.ns.InvalidatePattern(ctx, "list:*")
	s.logger.Debug("invalidated price source cache", zap.Int64("id", id), zap.Int("removed", removed))
}

func (s *PriceSourceService) invalidateComparisons(ctx context.Context, id int64) {
	if s.comparisons == nil {
		return
	}
	removed := s.comparisons.InvalidateAll(ctx)
	s.logger.Debug("invalidated comparisons", zap.Int64("id", id), zap.Int("removed", removed))
}

// validate checks a source before it is written. selfID is the id being updated, or 0.
func (s *PriceSourceService) validate(ctx context.Context, src *domain.PriceSource, selfID int64) error {
	var errs []error

	switch {
	case src.Name == "":
		errs = append(errs, domain.NewValidationError("name", "is required"))
	case utf8.RuneCountInString(src.Name) > maxSourceNameLength:
		errs = append(errs, domain.NewValidationError("name", "must be at most %d characters", maxSourceNameLength))
	}

	if err := validateHTTPURL(src.BaseURL); err != nil {
		errs = append(errs, domain.NewValidationError("baseUrl", "%s", err))
	}

	switch {
	case src.SearchURLTemplate == "":
		errs = append(errs, domain.NewValidationError("searchUrlTemplate", "is required"))
	case !domain.HasPlaceholder(src.SearchURLTemplate):
		errs = append(errs, domain.NewValidationError("searchUrlTemplate",
			"must contain %s or %s", domain.IngredientPlaceholder, domain.QueryPlaceholder))
	default:
		if err := validateHTTPURL(src.SearchURL("sample")); err != nil {
			errs = append(errs, domain.NewValidationError("searchUrlTemplate", "%s", err))
		}
	}

	selectors := []struct {
		field    string
		value    string
		required bool
	}{
		{"productNameSelector", src.ProductNameSelector, true},
		{"priceSelector", src.PriceSelector, true},
		{"imageSelector", src.ImageSelector, false},
	}
	for _, sel := range selectors {
		if sel.value == "" {
			if sel.required {
				errs = append(errs, domain.NewValidationError(sel.field, "is required"))
			}
			continue
		}
		if err := scraper.ValidateSelector(sel.value); err != nil {
			errs = append(errs, domain.NewValidationError(sel.field, "invalid CSS selector: %v", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	existing, err := s.repo.GetByName(ctx, src.Name)
	switch {
	case err == nil && existing.ID != selfID:
		return domain.NewValidationError("name", "a price source named %q already exists", src.Name)
	case err != nil && !errors.Is(err, domain.ErrSourceNotFound):
		return err
	}
	return nil
}

func validateHTTPURL(raw string) error {
	if raw == "" {
		return errors.New("is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("is not a valid URL")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("must be an absolute http(s) URL")
	}
	return nil
}
