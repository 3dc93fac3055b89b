package scraper

import (
	"strings"

	"github.com/andybalholm/cascadia"
)

// ValidateSelector reports whether sel is a usable CSS selector (groups allowed)
func ValidateSelector(sel string) error {
	_, err := compile(sel)
	return err
}

func compile(sel string) (cascadia.Selector, error) {
	return cascadia.Compile(strings.TrimSpace(sel))
}
