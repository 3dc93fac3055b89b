package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chefmarket/backend/internal/domain"
)

// MockPriceSourceRepository is an in-memory domain.PriceSourceRepository
type MockPriceSourceRepository struct {
	mu          sync.Mutex
	sources     map[int64]domain.PriceSource
	nextID      int64
	createCalls int
	updateCalls int
	getByID     int
	listCalls   int
	listErr     error
}

func NewMockPriceSourceRepository() *MockPriceSourceRepository {
	return &MockPriceSourceRepository{sources: make(map[int64]domain.PriceSource)}
}

func (m *MockPriceSourceRepository) seed(src domain.PriceSource) *domain.PriceSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	src.ID = m.nextID
	m.sources[src.ID] = src
	return &src
}

func (m *MockPriceSourceRepository) Create(ctx context.Context, source *domain.PriceSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	for _, s := range m.sources {
		if s.Name == source.Name {
			return domain.ErrAlreadyExists
		}
	}
	m.nextID++
	source.ID = m.nextID
	source.CreatedAt = time.Now().UTC()
	source.UpdatedAt = source.CreatedAt
	m.sources[source.ID] = *source
	return nil
}

func (m *MockPriceSourceRepository) Update(ctx context.Context, source *domain.PriceSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if _, ok := m.sources[source.ID]; !ok {
		return domain.ErrSourceNotFound
	}
	m.sources[source.ID] = *source
	return nil
}

func (m *MockPriceSourceRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sources[id]; !ok {
		return domain.ErrSourceNotFound
	}
	delete(m.sources, id)
	return nil
}

func (m *MockPriceSourceRepository) GetByID(ctx context.Context, id int64) (*domain.PriceSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getByID++
	s, ok := m.sources[id]
	if !ok {
		return nil, domain.ErrSourceNotFound
	}
	return &s, nil
}

func (m *MockPriceSourceRepository) GetByName(ctx context.Context, name string) (*domain.PriceSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sources {
		if s.Name == name {
			s := s
			return &s, nil
		}
	}
	return nil, domain.ErrSourceNotFound
}

func (m *MockPriceSourceRepository) List(ctx context.Context, activeOnly bool) ([]domain.PriceSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []domain.PriceSource{}
	for _, s := range m.sources {
		if !activeOnly || s.IsActive {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockPriceSourceRepository) ListByIDs(ctx context.Context, ids []int64, activeOnly bool) ([]domain.PriceSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.PriceSource{}
	for _, id := range ids {
		if s, ok := m.sources[id]; ok && (!activeOnly || s.IsActive) {
			out = append(out, s)
		}
	}
	return out, nil
}

// MockScrapedPriceRepository is an in-memory domain.ScrapedPriceRepository
type MockScrapedPriceRepository struct {
	mu         sync.Mutex
	records    []domain.ScrapedPrice
	listCalls  int
	latestErr  error
	listErr    error
	deletedCut time.Time
}

func NewMockScrapedPriceRepository() *MockScrapedPriceRepository {
	return &MockScrapedPriceRepository{}
}

func (m *MockScrapedPriceRepository) Create(ctx context.Context, p *domain.ScrapedPrice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = int64(len(m.records) + 1)
	if p.ScrapedAt.IsZero() {
		p.ScrapedAt = time.Now().UTC()
	}
	m.records = append(m.records, *p)
	return nil
}

func (m *MockScrapedPriceRepository) Latest(ctx context.Context, ingredient string, sourceID int64) (*domain.ScrapedPrice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.latestErr != nil {
		return nil, m.latestErr
	}
	var best *domain.ScrapedPrice
	for i := range m.records {
		r := m.records[i]
		if r.IngredientName == ingredient && r.PriceSourceID == sourceID {
			if best == nil || r.ScrapedAt.After(best.ScrapedAt) {
				best = &r
			}
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	return best, nil
}

func (m *MockScrapedPriceRepository) ListSince(ctx context.Context, ingredient string, since time.Time) ([]domain.ScrapedPrice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []domain.ScrapedPrice{}
	for _, r := range m.records {
		if r.IngredientName == ingredient && !r.ScrapedAt.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *MockScrapedPriceRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletedCut = cutoff
	kept := m.records[:0]
	var deleted int64
	for _, r := range m.records {
		if r.ScrapedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	return deleted, nil
}

// MockScraper returns scripted outcomes per source id and counts calls
type MockScraper struct {
	mu     sync.Mutex
	calls  map[int64]int
	script map[int64]func(ingredient string, source *domain.PriceSource) domain.ScrapeOutcome
	prices domain.ScrapedPriceRepository
}

func NewMockScraper(prices domain.ScrapedPriceRepository) *MockScraper {
	return &MockScraper{
		calls:  make(map[int64]int),
		script: make(map[int64]func(string, *domain.PriceSource) domain.ScrapeOutcome),
		prices: prices,
	}
}

// returns makes the scraper persist and return price for the source
func (m *MockScraper) returns(sourceID int64, price string) {
	m.script[sourceID] = func(ingredient string, source *domain.PriceSource) domain.ScrapeOutcome {
		rec := &domain.ScrapedPrice{
			PriceSourceID:  source.ID,
			SourceName:     source.Name,
			IngredientName: ingredient,
			ProductName:    ingredient + " from " + source.Name,
			Price:          mustDecimal(price),
			Currency:       "USD",
			ProductURL:     source.SearchURL(ingredient),
		}
		if err := m.prices.Create(context.Background(), rec); err != nil {
			return domain.SourceFailure(source, err)
		}
		return domain.Success(source, rec, false)
	}
}

func (m *MockScraper) ScrapeOne(ctx context.Context, ingredient string, source *domain.PriceSource) domain.ScrapeOutcome {
	m.mu.Lock()
	m.calls[source.ID]++
	fn := m.script[source.ID]
	m.mu.Unlock()

	if fn == nil {
		return domain.SourceFailure(source, domain.ErrFetchFailed)
	}
	return fn(ingredient, source)
}

func (m *MockScraper) callCount(sourceID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[sourceID]
}

// MockObserver records scrape observations
type MockObserver struct {
	mu       sync.Mutex
	outcomes map[string]string
}

func (m *MockObserver) ObserveScrape(source, outcome string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = make(map[string]string)
	}
	m.outcomes[source] = outcome
}

// MockComparisonInvalidator counts invalidation calls
type MockComparisonInvalidator struct {
	mu      sync.Mutex
	single  []string
	allRuns int
}

func (m *MockComparisonInvalidator) Invalidate(ctx context.Context, ingredient string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.single = append(m.single, ingredient)
	return true
}

func (m *MockComparisonInvalidator) InvalidateAll(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.allRuns++
	return 0
}

func (m *MockComparisonInvalidator) allCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allRuns
}

func activeSource(name string) domain.PriceSource {
	return domain.PriceSource{
		Name:                name,
		BaseURL:             "https://" + name + ".example",
		SearchURLTemplate:   "https://" + name + ".example/search?q={ingredient}",
		ProductNameSelector: ".title",
		PriceSelector:       ".price",
		IsActive:            true,
	}
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
