package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// SHARED TYPES - Avoid import cycles
// ═══════════════════════════════════════════════════════════════════════════════

// Venue identifies a derivatives venue
type Venue string

const (
	VenueLighter     Venue = "lighter"
	VenueExtended    Venue = "extended"
	VenueHyperliquid Venue = "hyperliquid"
)

// Venues lists every supported venue in report order
var Venues = []Venue{VenueLighter, VenueExtended, VenueHyperliquid}

// ParseVenue maps a case-insensitive name to a Venue
func ParseVenue(s string) (Venue, error) {
	v := Venue(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Venues {
		if v == known {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown venue %q", s)
}

// Title returns the display name used in reports
func (v Venue) Title() string {
	switch v {
	case VenueLighter:
		return "Lighter"
	case VenueExtended:
		return "Extended"
	case VenueHyperliquid:
		return "Hyperliquid"
	}
	return string(v)
}

// VenueQuote is one venue's top of book and funding for a single cycle.
//
// Any field may be null when it could not be recovered. Bid <= Ask is not
// enforced; a violation means low-confidence extraction, see Inverted.
// Funding is expressed in percent per funding period.
type VenueQuote struct {
	Source  Venue
	Bid     decimal.NullDecimal
	Ask     decimal.NullDecimal
	Funding decimal.NullDecimal

	// Synthetic is set when bid/ask were derived from a mid price rather
	// than quoted by the venue.
	Synthetic bool

	FetchedAt time.Time
	Err       error // cause of an all-null quote, nil otherwise
}

// EmptyQuote returns an all-null quote tagged with its source
func EmptyQuote(source Venue, err error) VenueQuote {
	return VenueQuote{Source: source, FetchedAt: time.Now(), Err: err}
}

// Empty reports whether nothing at all was recovered
func (q VenueQuote) Empty() bool {
	return !q.Bid.Valid && !q.Ask.Valid && !q.Funding.Valid
}

// HasBook reports whether both sides of the book are present
func (q VenueQuote) HasBook() bool {
	return q.Bid.Valid && q.Ask.Valid
}

// Inverted reports bid > ask, which only happens on a misread
func (q VenueQuote) Inverted() bool {
	return q.HasBook() && q.Bid.Decimal.GreaterThan(q.Ask.Decimal)
}

// Value wraps a decimal as a present nullable value
func Value(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// Pair is an ordered venue comparison, A against B
type Pair struct {
	A Venue
	B Venue
}

func (p Pair) String() string {
	return string(p.A) + ":" + string(p.B)
}
