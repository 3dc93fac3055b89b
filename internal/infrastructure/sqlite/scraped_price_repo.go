package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/chefmarket/backend/internal/domain"
)

const scrapedPriceSelect = `SELECT sp.id, sp.price_source_id, ps.name AS source_name, sp.ingredient_name,
	sp.product_name, sp.price, sp.currency, sp.product_url, sp.image_url, sp.scraped_at
	FROM scraped_prices sp
	JOIN price_sources ps ON ps.id = sp.price_source_id`

type scrapedPriceRow struct {
	ID             int64           `db:"id"`
	PriceSourceID  int64           `db:"price_source_id"`
	SourceName     string          `db:"source_name"`
	IngredientName string          `db:"ingredient_name"`
	ProductName    string          `db:"product_name"`
	Price          decimal.Decimal `db:"price"`
	Currency       string          `db:"currency"`
	ProductURL     string          `db:"product_url"`
	ImageURL       sql.NullString  `db:"image_url"`
	ScrapedAt      int64           `db:"scraped_at"`
}

func (r scrapedPriceRow) toDomain() domain.ScrapedPrice {
	p := domain.ScrapedPrice{
		ID:             r.ID,
		PriceSourceID:  r.PriceSourceID,
		SourceName:     r.SourceName,
		IngredientName: r.IngredientName,
		ProductName:    r.ProductName,
		Price:          r.Price,
		Currency:       r.Currency,
		ProductURL:     r.ProductURL,
		ScrapedAt:      fromMillis(r.ScrapedAt),
	}
	if r.ImageURL.Valid {
		img := r.ImageURL.String
		p.ImageURL = &img
	}
	return p
}

// ScrapedPriceRepository implements domain.ScrapedPriceRepository.
// Rows are only ever appended or swept by age.
type ScrapedPriceRepository struct {
	db *DB
}

var _ domain.ScrapedPriceRepository = (*ScrapedPriceRepository)(nil)

// NewScrapedPriceRepository creates a repository over db
func NewScrapedPriceRepository(db *DB) *ScrapedPriceRepository {
	return &ScrapedPriceRepository{db: db}
}

// Create appends price. A zero ScrapedAt is stamped with the current time.
func (r *ScrapedPriceRepository) Create(ctx context.Context, price *domain.ScrapedPrice) error {
	if price.ScrapedAt.IsZero() {
		price.ScrapedAt = time.Now().UTC()
	}
	price.ScrapedAt = fromMillis(toMillis(price.ScrapedAt))

	var image sql.NullString
	if price.ImageURL != nil {
		image = sql.NullString{String: *price.ImageURL, Valid: true}
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO scraped_prices (
		   price_source_id, ingredient_name, product_name, price, currency,
		   product_url, image_url, scraped_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		price.PriceSourceID,
		price.IngredientName,
		price.ProductName,
		price.Price.String(),
		price.Currency,
		price.ProductURL,
		image,
		toMillis(price.ScrapedAt),
	)
	if err != nil {
		return fmt.Errorf("create scraped price: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create scraped price: %w", err)
	}
	price.ID = id
	return nil
}

// Latest returns the most recent record for the ingredient and source
func (r *ScrapedPriceRepository) Latest(ctx context.Context, ingredient string, sourceID int64) (*domain.ScrapedPrice, error) {
	var row scrapedPriceRow
	err := r.db.GetContext(ctx, &row,
		scrapedPriceSelect+` WHERE sp.ingredient_name = ? AND sp.price_source_id = ?
		 ORDER BY sp.scraped_at DESC, sp.id DESC LIMIT 1`,
		ingredient, sourceID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("latest scraped price: %w", err)
	}
	p := row.toDomain()
	return &p, nil
}

// ListSince returns every record for the ingredient scraped at or after since, newest first
func (r *ScrapedPriceRepository) ListSince(ctx context.Context, ingredient string, since time.Time) ([]domain.ScrapedPrice, error) {
	var rows []scrapedPriceRow
	err := r.db.SelectContext(ctx, &rows,
		scrapedPriceSelect+` WHERE sp.ingredient_name = ? AND sp.scraped_at >= ?
		 ORDER BY sp.scraped_at DESC, sp.id DESC`,
		ingredient, toMillis(since),
	)
	if err != nil {
		return nil, fmt.Errorf("list scraped prices: %w", err)
	}

	prices := make([]domain.ScrapedPrice, 0, len(rows))
	for _, row := range rows {
		prices = append(prices, row.toDomain())
	}
	return prices, nil
}

// DeleteOlderThan removes records scraped strictly before cutoff
func (r *ScrapedPriceRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM scraped_prices WHERE scraped_at < ?`, toMillis(cutoff))
	if err != nil {
		return 0, fmt.Errorf("delete scraped prices: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete scraped prices: %w", err)
	}
	return n, nil
}
