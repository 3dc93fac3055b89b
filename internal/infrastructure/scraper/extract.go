package scraper

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/chefmarket/backend/internal/domain"
)

// Extraction is the raw text pulled out of a search page
type Extraction struct {
	ProductName string
	PriceText   string
	ImageURL    *string
}

// Extract applies the source's selectors to body. The first match of each selector wins.
// A missing product name or price is domain.ErrSelectorNoMatch; a missing image is fine.
func Extract(body []byte, source *domain.PriceSource, pageURL string) (*Extraction, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	name, err := firstText(doc, source.ProductNameSelector)
	if err != nil {
		return nil, fmt.Errorf("product name: %w", err)
	}
	priceText, err := firstText(doc, source.PriceSelector)
	if err != nil {
		return nil, fmt.Errorf("price: %w", err)
	}

	ext := &Extraction{
		ProductName: strings.Join(strings.Fields(name), " "),
		PriceText:   priceText,
	}
	if source.ImageSelector != "" {
		ext.ImageURL = firstImage(doc, source.ImageSelector, pageURL)
	}
	return ext, nil
}

func firstText(doc *goquery.Document, selector string) (string, error) {
	matcher, err := compile(selector)
	if err != nil {
		return "", fmt.Errorf("%w: invalid selector %q: %v", domain.ErrSelectorNoMatch, selector, err)
	}

	sel := doc.FindMatcher(matcher).First()
	if sel.Length() == 0 {
		return "", fmt.Errorf("%w: %q", domain.ErrSelectorNoMatch, selector)
	}

	text := strings.TrimSpace(sel.Text())
	if text == "" {
		// <meta itemprop="price" content="..."> and friends
		text = strings.TrimSpace(sel.AttrOr("content", ""))
	}
	if text == "" {
		return "", fmt.Errorf("%w: %q matched empty text", domain.ErrSelectorNoMatch, selector)
	}
	return text, nil
}

func firstImage(doc *goquery.Document, selector, pageURL string) *string {
	matcher, err := compile(selector)
	if err != nil {
		return nil
	}
	sel := doc.FindMatcher(matcher).First()
	if sel.Length() == 0 {
		return nil
	}
	if !sel.Is("img") {
		if img := sel.Find("img").First(); img.Length() > 0 {
			sel = img
		}
	}

	src := imageSource(sel)
	if src == "" {
		return nil
	}
	resolved := resolveURL(pageURL, src)
	return &resolved
}

func imageSource(sel *goquery.Selection) string {
	for _, attr := range []string{"src", "data-src"} {
		if v := strings.TrimSpace(sel.AttrOr(attr, "")); v != "" && !strings.HasPrefix(v, "data:") {
			return v
		}
	}
	if srcset := strings.TrimSpace(sel.AttrOr("srcset", "")); srcset != "" {
		first := strings.TrimSpace(strings.Split(srcset, ",")[0])
		if fields := strings.Fields(first); len(fields) > 0 {
			return fields[0]
		}
	}
	return ""
}

func resolveURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}
