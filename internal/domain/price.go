package domain

import (
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Placeholder tokens recognized inside PriceSource.SearchURLTemplate
const (
	IngredientPlaceholder = "{ingredient}"
	QueryPlaceholder      = "{query}"
)

// MaxIngredientNameLength bounds ScrapeRequest.IngredientName
const MaxIngredientNameLength = 100

// DefaultFreshnessWindow is how long a scraped price is reused before re-scraping
const DefaultFreshnessWindow = 24 * time.Hour

// PriceSource is a configured scraping target
type PriceSource struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	BaseURL             string    `json:"baseUrl"`
	SearchURLTemplate   string    `json:"searchUrlTemplate"`
	ProductNameSelector string    `json:"productNameSelector"`
	PriceSelector       string    `json:"priceSelector"`
	ImageSelector       string    `json:"imageSelector,omitempty"`
	IsActive            bool      `json:"isActive"`
	Notes               string    `json:"notes,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// HasPlaceholder reports whether template embeds a recognized ingredient placeholder.
func HasPlaceholder(template string) bool {
	return strings.Contains(template, IngredientPlaceholder) || strings.Contains(template, QueryPlaceholder)
}

// SearchURL substitutes the ingredient into the source's template. Placeholders in the
// path are path-escaped ("%20"); placeholders after the first '?' are query-escaped ("+").
func (s *PriceSource) SearchURL(ingredient string) string {
	path, query, hasQuery := strings.Cut(s.SearchURLTemplate, "?")
	result := fillPlaceholders(path, url.PathEscape(ingredient))
	if hasQuery {
		result += "?" + fillPlaceholders(query, url.QueryEscape(ingredient))
	}
	return result
}

func fillPlaceholders(template, escaped string) string {
	template = strings.ReplaceAll(template, IngredientPlaceholder, escaped)
	return strings.ReplaceAll(template, QueryPlaceholder, escaped)
}

// PriceSourceInput carries the writable fields of a PriceSource.
// Nil pointers are left untouched on update.
type PriceSourceInput struct {
	Name                *string `json:"name"`
	BaseURL             *string `json:"baseUrl"`
	SearchURLTemplate   *string `json:"searchUrlTemplate"`
	ProductNameSelector *string `json:"productNameSelector"`
	PriceSelector       *string `json:"priceSelector"`
	ImageSelector       *string `json:"imageSelector"`
	IsActive            *bool   `json:"isActive"`
	Notes               *string `json:"notes"`
}

// Apply copies the set fields of in onto s.
func (in PriceSourceInput) Apply(s *PriceSource) {
	if in.Name != nil {
		s.Name = strings.TrimSpace(*in.Name)
	}
	if in.BaseURL != nil {
		s.BaseURL = strings.TrimSpace(*in.BaseURL)
	}
	if in.SearchURLTemplate != nil {
		s.SearchURLTemplate = strings.TrimSpace(*in.SearchURLTemplate)
	}
	if in.ProductNameSelector != nil {
		s.ProductNameSelector = strings.TrimSpace(*in.ProductNameSelector)
	}
	if in.PriceSelector != nil {
		s.PriceSelector = strings.TrimSpace(*in.PriceSelector)
	}
	if in.ImageSelector != nil {
		s.ImageSelector = strings.TrimSpace(*in.ImageSelector)
	}
	if in.IsActive != nil {
		s.IsActive = *in.IsActive
	}
	if in.Notes != nil {
		s.Notes = strings.TrimSpace(*in.Notes)
	}
}

// ScrapedPrice is one persisted price observation. History is append-only.
type ScrapedPrice struct {
	ID             int64           `json:"id"`
	PriceSourceID  int64           `json:"priceSourceId"`
	SourceName     string          `json:"sourceName,omitempty"`
	IngredientName string          `json:"ingredientName"`
	ProductName    string          `json:"productName"`
	Price          decimal.Decimal `json:"price"`
	Currency       string          `json:"currency"`
	ProductURL     string          `json:"productUrl"`
	ImageURL       *string         `json:"imageUrl,omitempty"`
	ScrapedAt      time.Time       `json:"scrapedAt"`
}

// ScrapeRequest represents a price scrape request
type ScrapeRequest struct {
	IngredientName string  `json:"ingredientName" binding:"required,max=100"`
	PriceSourceIDs []int64 `json:"priceSourceIds,omitempty"`
	ForceRefresh   bool    `json:"forceRefresh,omitempty"`
}

// FreshnessWindow is the maximum age of a record that is still usable without re-fetching
type FreshnessWindow time.Duration

// IsFresh reports whether a record scraped at scrapedAt is still within the window at now.
func (w FreshnessWindow) IsFresh(scrapedAt, now time.Time) bool {
	return now.Sub(scrapedAt) <= time.Duration(w)
}

// Since returns the oldest timestamp still inside the window.
func (w FreshnessWindow) Since(now time.Time) time.Time {
	return now.Add(-time.Duration(w))
}

// OrDefault returns DefaultFreshnessWindow when w is not positive.
func (w FreshnessWindow) OrDefault() FreshnessWindow {
	if w <= 0 {
		return FreshnessWindow(DefaultFreshnessWindow)
	}
	return w
}

// SourcePrice is one row of a PriceComparison breakdown
type SourcePrice struct {
	SourceID    int64           `json:"sourceId"`
	SourceName  string          `json:"sourceName"`
	ProductName string          `json:"productName"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	URL         string          `json:"url"`
	ScrapedAt   time.Time       `json:"scrapedAt"`
}

// PriceComparison summarizes the fresh prices known for one ingredient
type PriceComparison struct {
	IngredientName string          `json:"ingredientName"`
	Found          bool            `json:"found"`
	Message        string          `json:"message,omitempty"`
	MinPrice       decimal.Decimal `json:"minPrice"`
	MaxPrice       decimal.Decimal `json:"maxPrice"`
	AvgPrice       decimal.Decimal `json:"avgPrice"`
	TotalSources   int             `json:"totalSources"`
	Sources        []SourcePrice   `json:"sources"`
}
