// Package arbitrage compares venue quotes pairwise
//
// compare.go - funding deltas and directional entry/exit spreads
// between two venues quoting the same perpetual.
package arbitrage

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/web3guy0/fundingbot/types"
)

var hundred = decimal.NewFromInt(100)

// Result is the comparison of venue A against venue B
type Result struct {
	Pair types.Pair

	// Percent per funding period, A minus B. Null if either rate is.
	FundingDelta decimal.NullDecimal
	// Annualized: A and B each scaled by their own periods per year
	FundingDeltaAPY decimal.NullDecimal

	// Buy A at its ask, sell B at its bid
	EntrySpreadPct decimal.Decimal
	// Buy B at its ask, sell A at its bid
	ExitSpreadPct decimal.Decimal
}

// PairResult is one configured pair's outcome for a cycle
type PairResult struct {
	Result
	Err error
}

// Comparator computes Results. periodsPerYear is shared by every venue
// unless a venue settles funding on a different cadence.
type Comparator struct {
	periodsPerYear decimal.Decimal
	overrides      map[types.Venue]decimal.Decimal
}

// NewComparator creates a comparator; 8760 periods for hourly funding
func NewComparator(periodsPerYear decimal.Decimal, overrides map[types.Venue]decimal.Decimal) *Comparator {
	return &Comparator{
		periodsPerYear: periodsPerYear,
		overrides:      overrides,
	}
}

// PeriodsFor returns the funding periods per year used for a venue
func (c *Comparator) PeriodsFor(v types.Venue) decimal.Decimal {
	if d, ok := c.overrides[v]; ok {
		return d
	}
	return c.periodsPerYear
}

// Compare requires both books of a and b. Funding may be missing on either
// side, which only nulls the funding delta. Both spreads are always reported;
// callers pick the actionable one by sign.
func (c *Comparator) Compare(a, b types.VenueQuote) (Result, error) {
	r := Result{Pair: types.Pair{A: a.Source, B: b.Source}}

	if !a.HasBook() || !b.HasBook() {
		return r, fmt.Errorf("%s vs %s: missing bid/ask: %w", a.Source, b.Source, types.ErrInsufficientData)
	}
	if a.Ask.Decimal.IsZero() || b.Ask.Decimal.IsZero() {
		return r, fmt.Errorf("%s vs %s: zero ask: %w", a.Source, b.Source, types.ErrInsufficientData)
	}

	if a.Funding.Valid && b.Funding.Valid {
		r.FundingDelta = types.Value(a.Funding.Decimal.Sub(b.Funding.Decimal))
		r.FundingDeltaAPY = types.Value(
			a.Funding.Decimal.Mul(c.PeriodsFor(a.Source)).
				Sub(b.Funding.Decimal.Mul(c.PeriodsFor(b.Source))),
		)
	}

	r.EntrySpreadPct = b.Bid.Decimal.Sub(a.Ask.Decimal).Div(a.Ask.Decimal).Mul(hundred)
	r.ExitSpreadPct = a.Bid.Decimal.Sub(b.Ask.Decimal).Div(b.Ask.Decimal).Mul(hundred)

	return r, nil
}

// CompareAll runs every pair. A pair that cannot be computed is reported
// with its error and does not stop the others.
func (c *Comparator) CompareAll(quotes map[types.Venue]types.VenueQuote, pairs []types.Pair) []PairResult {
	results := make([]PairResult, 0, len(pairs))
	for _, p := range pairs {
		a, okA := quotes[p.A]
		b, okB := quotes[p.B]
		if !okA || !okB {
			results = append(results, PairResult{
				Result: Result{Pair: p},
				Err:    fmt.Errorf("%s: venue not polled: %w", p, types.ErrInsufficientData),
			})
			continue
		}

		r, err := c.Compare(a, b)
		if err != nil {
			log.Debug().Err(err).Str("pair", p.String()).Msg("comparison skipped")
		}
		results = append(results, PairResult{Result: r, Err: err})
	}
	return results
}
