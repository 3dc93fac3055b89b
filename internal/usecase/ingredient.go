package usecase

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/chefmarket/backend/internal/domain"
)

// Compiled regex patterns for ingredient normalization
var (
	// Matches size/quantity patterns like "12 oz", "1.5 liter", "2 lb", "500g"
	ingredientSizePattern = regexp.MustCompile(`\b\d+(?:[.,]\d+)?\s*(?:fl\s*oz|oz|ounces?|lbs?|pounds?|ml|liters?|litres?|l|kg|grams?|g)\b`)

	// Matches pack/count patterns like "12 pack", "pack of 6", "6-pack", "24 ct"
	ingredientPackPattern = regexp.MustCompile(`\b\d+[-\s]*(?:pack|pk|count|ct)\b|\bpack\s+of\s+\d+\b`)

	// Lone punctuation left behind once sizes are gone
	orphanedPunctuation = regexp.MustCompile(`(?:^|\s)[,\-;:/]+(?:\s|$)`)

	multiSpacePattern = regexp.MustCompile(`\s+`)
)

// ingredientNoiseWords are packaging and marketing terms that never identify an ingredient
var ingredientNoiseWords = map[string]bool{
	"package": true,
	"pkg":     true,
	"box":     true,
	"bag":     true,
	"bottle":  true,
	"jar":     true,
	"tub":     true,
	"carton":  true,
	"pouch":   true,
	"value":   true,
	"premium": true,
	"bonus":   true,
	"new":     true,
}

// NormalizeIngredient produces the canonical ingredient name used for lookups, history
// rows and cache keys: lower-cased, packaging noise removed, whitespace collapsed.
// If stripping noise would leave nothing, the plainly cleaned input is used instead.
func NormalizeIngredient(name string) string {
	plain := strings.TrimSpace(multiSpacePattern.ReplaceAllString(strings.ToLower(name), " "))
	if plain == "" {
		return ""
	}

	cleaned := ingredientSizePattern.ReplaceAllString(plain, " ")
	cleaned = ingredientPackPattern.ReplaceAllString(cleaned, " ")
	cleaned = removeNoiseWords(cleaned)
	cleaned = orphanedPunctuation.ReplaceAllString(cleaned, " ")
	cleaned = strings.Trim(multiSpacePattern.ReplaceAllString(cleaned, " "), " ,-;:/")

	if cleaned == "" {
		return plain
	}
	return cleaned
}

// removeNoiseWords removes packaging and marketing terms
func removeNoiseWords(s string) string {
	words := strings.Fields(s)
	kept := make([]string, 0, len(words))
	for _, word := range words {
		if !ingredientNoiseWords[strings.Trim(word, ",.!?;:-'\"")] {
			kept = append(kept, word)
		}
	}
	return strings.Join(kept, " ")
}

// validateIngredient checks the raw request value and returns its normalized form
func validateIngredient(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", domain.NewValidationError("ingredientName", "is required")
	}
	if utf8.RuneCountInString(trimmed) > domain.MaxIngredientNameLength {
		return "", domain.NewValidationError("ingredientName", "must be at most %d characters", domain.MaxIngredientNameLength)
	}
	return NormalizeIngredient(trimmed), nil
}
