package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/chefmarket/backend/internal/domain"
)

const priceSourceColumns = `id, name, base_url, search_url_template, product_name_selector,
	price_selector, image_selector, is_active, notes, created_at, updated_at`

type priceSourceRow struct {
	ID                  int64  `db:"id"`
	Name                string `db:"name"`
	BaseURL             string `db:"base_url"`
	SearchURLTemplate   string `db:"search_url_template"`
	ProductNameSelector string `db:"product_name_selector"`
	PriceSelector       string `db:"price_selector"`
	ImageSelector       string `db:"image_selector"`
	IsActive            bool   `db:"is_active"`
	Notes               string `db:"notes"`
	CreatedAt           int64  `db:"created_at"`
	UpdatedAt           int64  `db:"updated_at"`
}

func (r priceSourceRow) toDomain() domain.PriceSource {
	return domain.PriceSource{
		ID:                  r.ID,
		Name:                r.Name,
		BaseURL:             r.BaseURL,
		SearchURLTemplate:   r.SearchURLTemplate,
		ProductNameSelector: r.ProductNameSelector,
		PriceSelector:       r.PriceSelector,
		ImageSelector:       r.ImageSelector,
		IsActive:            r.IsActive,
		Notes:               r.Notes,
		CreatedAt:           fromMillis(r.CreatedAt),
		UpdatedAt:           fromMillis(r.UpdatedAt),
	}
}

// PriceSourceRepository implements domain.PriceSourceRepository
type PriceSourceRepository struct {
	db *DB
}

var _ domain.PriceSourceRepository = (*PriceSourceRepository)(nil)

// NewPriceSourceRepository creates a repository over db
func NewPriceSourceRepository(db *DB) *PriceSourceRepository {
	return &PriceSourceRepository{db: db}
}

// Create inserts source and fills in its ID and timestamps
func (r *PriceSourceRepository) Create(ctx context.Context, source *domain.PriceSource) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO price_sources (
		   name, base_url, search_url_template, product_name_selector, price_selector,
		   image_selector, is_active, notes, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		source.Name,
		source.BaseURL,
		source.SearchURLTemplate,
		source.ProductNameSelector,
		source.PriceSelector,
		source.ImageSelector,
		source.IsActive,
		source.Notes,
		toMillis(now),
		toMillis(now),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: price source %q", domain.ErrAlreadyExists, source.Name)
		}
		return fmt.Errorf("create price source: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create price source: %w", err)
	}
	source.ID = id
	source.CreatedAt = fromMillis(toMillis(now))
	source.UpdatedAt = source.CreatedAt
	return nil
}

// Update overwrites every writable column of source
func (r *PriceSourceRepository) Update(ctx context.Context, source *domain.PriceSource) error {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE price_sources SET
		   name = ?, base_url = ?, search_url_template = ?, product_name_selector = ?,
		   price_selector = ?, image_selector = ?, is_active = ?, notes = ?, updated_at = ?
		 WHERE id = ?`,
		source.Name,
		source.BaseURL,
		source.SearchURLTemplate,
		source.ProductNameSelector,
		source.PriceSelector,
		source.ImageSelector,
		source.IsActive,
		source.Notes,
		toMillis(now),
		source.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: price source %q", domain.ErrAlreadyExists, source.Name)
		}
		return fmt.Errorf("update price source: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrSourceNotFound
	}
	source.UpdatedAt = fromMillis(toMillis(now))
	return nil
}

// Delete removes the source and, by cascade, its scrape history
func (r *PriceSourceRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM price_sources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete price source: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrSourceNotFound
	}
	return nil
}

// GetByID returns the source or domain.ErrSourceNotFound
func (r *PriceSourceRepository) GetByID(ctx context.Context, id int64) (*domain.PriceSource, error) {
	return r.getOne(ctx, `SELECT `+priceSourceColumns+` FROM price_sources WHERE id = ?`, id)
}

// GetByName returns the source or domain.ErrSourceNotFound
func (r *PriceSourceRepository) GetByName(ctx context.Context, name string) (*domain.PriceSource, error) {
	return r.getOne(ctx, `SELECT `+priceSourceColumns+` FROM price_sources WHERE name = ?`, name)
}

func (r *PriceSourceRepository) getOne(ctx context.Context, query string, arg interface{}) (*domain.PriceSource, error) {
	var row priceSourceRow
	if err := r.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSourceNotFound
		}
		return nil, fmt.Errorf("get price source: %w", err)
	}
	source := row.toDomain()
	return &source, nil
}

// List returns every source ordered by name
func (r *PriceSourceRepository) List(ctx context.Context, activeOnly bool) ([]domain.PriceSource, error) {
	query := `SELECT ` + priceSourceColumns + ` FROM price_sources`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name`

	var rows []priceSourceRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list price sources: %w", err)
	}
	return toSources(rows), nil
}

// ListByIDs returns the sources among ids that exist (and are active when activeOnly)
func (r *PriceSourceRepository) ListByIDs(ctx context.Context, ids []int64, activeOnly bool) ([]domain.PriceSource, error) {
	if len(ids) == 0 {
		return []domain.PriceSource{}, nil
	}

	query := `SELECT ` + priceSourceColumns + ` FROM price_sources WHERE id IN (?)`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY name`

	query, args, err := sqlx.In(query, ids)
	if err != nil {
		return nil, fmt.Errorf("list price sources by id: %w", err)
	}

	var rows []priceSourceRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list price sources by id: %w", err)
	}
	return toSources(rows), nil
}

func toSources(rows []priceSourceRow) []domain.PriceSource {
	sources := make([]domain.PriceSource, 0, len(rows))
	for _, row := range rows {
		sources = append(sources, row.toDomain())
	}
	return sources
}
