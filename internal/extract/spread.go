package extract

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var lineSplit = regexp.MustCompile(`\r?\n`)

// SpreadQuote holds the prices recovered around the order book's spread row
type SpreadQuote struct {
	Bid decimal.NullDecimal
	Ask decimal.NullDecimal
}

// Policy tunes the spread heuristics
type Policy struct {
	// Anchor is matched case-insensitively against each line
	Anchor string

	// Token matches one price on the line above or below the anchor
	Token *regexp.Regexp

	// MaxBidAskGap is the widest |ask-bid| still believed to be a real
	// quote. A wider pair means one side was misread; ask is dropped.
	MaxBidAskGap decimal.Decimal
}

// DefaultPolicy matches the Lighter order book as rendered at 2x scale
var DefaultPolicy = Policy{
	Anchor:       "spread",
	Token:        regexp.MustCompile(`\d{2}\.\d{4}|\d{6}`),
	MaxBidAskGap: decimal.NewFromFloat(0.1),
}

// Parser runs the extractors under a single policy
type Parser struct {
	policy Policy
}

// NewParser creates a parser; zero fields fall back to DefaultPolicy
func NewParser(p Policy) *Parser {
	if p.Anchor == "" {
		p.Anchor = DefaultPolicy.Anchor
	}
	if p.Token == nil {
		p.Token = DefaultPolicy.Token
	}
	if p.MaxBidAskGap.IsZero() {
		p.MaxBidAskGap = DefaultPolicy.MaxBidAskGap
	}
	return &Parser{policy: p}
}

// ExtractSpread uses DefaultPolicy
func ExtractSpread(text string) SpreadQuote {
	return NewParser(DefaultPolicy).ExtractSpread(text)
}

// ExtractFunding delegates to the package extractor
func (p *Parser) ExtractFunding(text string) decimal.NullDecimal {
	return ExtractFunding(text)
}

// ExtractSpread reads ask from the line above the anchor and bid from the
// line below it. The book lists asks above the spread row and bids under it.
//
// When both sides are present but further apart than MaxBidAskGap the ask is
// discarded and bid kept: bid sits nearer the cursor focus region in the
// captured layout and is read more reliably. This favours recall of bid over
// precision of the pair.
func (p *Parser) ExtractSpread(text string) SpreadQuote {
	lines := splitLines(text)

	anchor := -1
	needle := strings.ToLower(p.policy.Anchor)
	for i, l := range lines {
		if strings.Contains(strings.ToLower(l), needle) {
			anchor = i
			break
		}
	}
	if anchor <= 0 || anchor >= len(lines)-1 {
		log.Debug().Int("anchor", anchor).Int("lines", len(lines)).Msg("spread anchor unusable")
		return SpreadQuote{}
	}

	q := SpreadQuote{
		Ask: p.token(lines[anchor-1]),
		Bid: p.token(lines[anchor+1]),
	}

	if q.Ask.Valid && q.Bid.Valid {
		gap := q.Ask.Decimal.Sub(q.Bid.Decimal).Abs()
		if gap.GreaterThan(p.policy.MaxBidAskGap) {
			log.Debug().
				Str("ask", q.Ask.Decimal.String()).
				Str("bid", q.Bid.Decimal.String()).
				Msg("bid/ask gap too wide, dropping ask")
			q.Ask = decimal.NullDecimal{}
		}
	}
	return q
}

func (p *Parser) token(line string) decimal.NullDecimal {
	m := p.policy.Token.FindString(line)
	if m == "" {
		return decimal.NullDecimal{}
	}
	d, err := Normalize(m)
	if err != nil {
		log.Debug().Err(err).Msg("price token rejected")
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func splitLines(text string) []string {
	var out []string
	for _, l := range lineSplit.Split(text, -1) {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
