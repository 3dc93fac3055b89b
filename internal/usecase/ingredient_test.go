package usecase

import (
	"errors"
	"strings"
	"testing"

	"github.com/chefmarket/backend/internal/domain"
)

func TestNormalizeIngredient(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "lower-cases and trims",
			input: "  Basmati Rice ",
			want:  "basmati rice",
		},
		{
			name:  "collapses whitespace",
			input: "olive \t  oil",
			want:  "olive oil",
		},
		{
			name:  "removes weight",
			input: "Basmati Rice, 1kg",
			want:  "basmati rice",
		},
		{
			name:  "removes decimal size",
			input: "Whole Milk 1.5 liter",
			want:  "whole milk",
		},
		{
			name:  "removes pack count",
			input: "Eggs 12 pack",
			want:  "eggs",
		},
		{
			name:  "removes packaging words",
			input: "Premium Flour Bag",
			want:  "flour",
		},
		{
			name:  "keeps size adjectives",
			input: "Large Eggs",
			want:  "large eggs",
		},
		{
			name:  "falls back when everything is noise",
			input: "Bag",
			want:  "bag",
		},
		{
			name:  "empty",
			input: "   ",
			want:  "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeIngredient(tc.input); got != tc.want {
				t.Errorf("NormalizeIngredient(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalizeIngredient_Idempotent(t *testing.T) {
	for _, in := range []string{"Basmati Rice, 1kg", "Eggs 12 pack", "crème fraîche"} {
		once := NormalizeIngredient(in)
		if twice := NormalizeIngredient(once); twice != once {
			t.Errorf("NormalizeIngredient not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestValidateIngredient(t *testing.T) {
	if _, err := validateIngredient(" "); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("empty ingredient error = %v, want ErrValidation", err)
	}
	if _, err := validateIngredient(strings.Repeat("a", 101)); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("long ingredient error = %v, want ErrValidation", err)
	}
	got, err := validateIngredient(strings.Repeat("é", 100))
	if err != nil {
		t.Fatalf("100 rune ingredient error = %v", err)
	}
	if got != strings.Repeat("é", 100) {
		t.Errorf("normalized = %q", got)
	}
}
