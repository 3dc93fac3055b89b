package scraper

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/chefmarket/backend/internal/domain"
)

var (
	nonPriceChars = regexp.MustCompile(`[^0-9.,]`)
	isoCurrency   = regexp.MustCompile(`\b(USD|EUR|GBP|JPY|CAD|AUD|CHF|INR|MXN|BRL|CNY)\b`)
)

var currencySymbols = []struct {
	symbol string
	code   string
}{
	{"R$", "BRL"},
	{"€", "EUR"},
	{"£", "GBP"},
	{"¥", "JPY"},
	{"₹", "INR"},
	{"$", "USD"},
}

// ParsePrice normalizes scraped price text into a decimal.
// Everything except digits, ',' and '.' is dropped. When both separators appear the
// comma is a thousands separator; a lone comma is the decimal separator.
func ParsePrice(text string) (decimal.Decimal, error) {
	cleaned := nonPriceChars.ReplaceAllString(text, "")
	cleaned = strings.TrimRight(cleaned, ".,")
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", domain.ErrUnparseablePrice, text)
	}

	if cleaned[0] == '.' || cleaned[0] == ',' {
		cleaned = "0" + cleaned
	}

	hasComma := strings.Contains(cleaned, ",")
	hasDot := strings.Contains(cleaned, ".")
	switch {
	case hasComma && hasDot:
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case hasComma:
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}

	price, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", domain.ErrUnparseablePrice, text)
	}
	return price, nil
}

// DetectCurrency guesses the ISO code of the currency in text, or returns fallback
func DetectCurrency(text, fallback string) string {
	if m := isoCurrency.FindString(strings.ToUpper(text)); m != "" {
		return m
	}
	for _, cs := range currencySymbols {
		if strings.Contains(text, cs.symbol) {
			return cs.code
		}
	}
	return fallback
}
