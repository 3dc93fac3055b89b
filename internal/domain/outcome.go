package domain

import "time"

// ScrapeOutcome is the result of scraping one source: either a record or a failure reason.
// Exactly one of Price and Reason is set.
type ScrapeOutcome struct {
	SourceID   int64
	SourceName string
	Price      *ScrapedPrice
	Reason     error
	FromCache  bool
	Duration   time.Duration
}

// Success builds a successful outcome.
func Success(source *PriceSource, price *ScrapedPrice, fromCache bool) ScrapeOutcome {
	return ScrapeOutcome{SourceID: source.ID, SourceName: source.Name, Price: price, FromCache: fromCache}
}

// SourceFailure builds a failed outcome.
func SourceFailure(source *PriceSource, reason error) ScrapeOutcome {
	return ScrapeOutcome{SourceID: source.ID, SourceName: source.Name, Reason: reason}
}

// OK reports whether the outcome carries a record.
func (o ScrapeOutcome) OK() bool {
	return o.Reason == nil && o.Price != nil
}

// Label is the metrics label for the outcome.
func (o ScrapeOutcome) Label() string {
	switch {
	case !o.OK():
		return "failure"
	case o.FromCache:
		return "fresh"
	default:
		return "scraped"
	}
}
