// Package report renders one cycle's quotes and comparisons as a Telegram
// Markdown message.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/fundingbot/internal/arbitrage"
	"github.com/web3guy0/fundingbot/types"
)

const missing = "–"

// PeriodSource supplies funding periods per year per venue
type PeriodSource interface {
	PeriodsFor(v types.Venue) decimal.Decimal
}

// Formatter builds report messages
type Formatter struct {
	symbols map[types.Venue]string
	periods PeriodSource
}

// NewFormatter creates a formatter; symbols are shown next to venue names
func NewFormatter(symbols map[types.Venue]string, periods PeriodSource) *Formatter {
	return &Formatter{symbols: symbols, periods: periods}
}

// Build renders the report. It returns false when no venue produced any data,
// in which case nothing should be sent.
func (f *Formatter) Build(at time.Time, quotes []types.VenueQuote, results []arbitrage.PairResult) (string, bool) {
	anyData := false
	for _, q := range quotes {
		if !q.Empty() {
			anyData = true
			break
		}
	}
	if !anyData {
		return "", false
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "🕒 %s UTC", at.UTC().Format("2006-01-02 15:04:05"))

	for _, q := range quotes {
		sb.WriteString("\n\n")
		f.writeQuote(&sb, q)
	}
	for _, r := range results {
		sb.WriteString("\n\n")
		writeComparison(&sb, r)
	}
	return sb.String(), true
}

func (f *Formatter) writeQuote(sb *strings.Builder, q types.VenueQuote) {
	fmt.Fprintf(sb, "📊 *%s*", q.Source.Title())
	if sym := f.symbols[q.Source]; sym != "" {
		fmt.Fprintf(sb, " (%s)", sym)
	}
	if q.Empty() {
		sb.WriteString("\n⚠️ unavailable")
		return
	}
	if q.Synthetic {
		sb.WriteString("\n_bid/ask = mid ± offset_")
	}
	fmt.Fprintf(sb, "\n🟢 Bid: *%s*", price(q.Bid))
	fmt.Fprintf(sb, "\n🔴 Ask: *%s*", price(q.Ask))
	if q.Inverted() {
		sb.WriteString(" ⚠️")
	}
	if q.Funding.Valid {
		apy := q.Funding.Decimal.Mul(f.periods.PeriodsFor(q.Source))
		fmt.Fprintf(sb, "\n💸 Funding: *%s%%* (%s%% APY)", q.Funding.Decimal.StringFixed(4), apy.StringFixed(2))
	} else {
		fmt.Fprintf(sb, "\n💸 Funding: %s", missing)
	}
}

func writeComparison(sb *strings.Builder, r arbitrage.PairResult) {
	a, b := r.Pair.A.Title(), r.Pair.B.Title()
	fmt.Fprintf(sb, "📐 *%s vs %s*", a, b)
	if r.Err != nil {
		sb.WriteString("\n⚠️ insufficient data")
		return
	}

	if r.FundingDelta.Valid {
		fmt.Fprintf(sb, "\n💸 Funding Δ: %s (%s APY)",
			Percent(r.FundingDelta.Decimal, 4), Percent(r.FundingDeltaAPY.Decimal, 2))
	} else {
		fmt.Fprintf(sb, "\n💸 Funding Δ: %s", missing)
	}
	fmt.Fprintf(sb, "\n%s Long %s / Short %s: %s", marker(r.EntrySpreadPct), a, b, Percent(r.EntrySpreadPct, 4))
	fmt.Fprintf(sb, "\n%s Long %s / Short %s: %s", marker(r.ExitSpreadPct), b, a, Percent(r.ExitSpreadPct, 4))
}

// Percent formats a signed percentage with a fixed number of places
func Percent(d decimal.Decimal, places int32) string {
	s := d.StringFixed(places)
	if d.Round(places).IsPositive() {
		s = "+" + s
	}
	return s + "%"
}

func price(d decimal.NullDecimal) string {
	if !d.Valid {
		return missing
	}
	return d.Decimal.String()
}

// marker is green when crossing the pair in that direction pays
func marker(d decimal.Decimal) string {
	if d.IsPositive() {
		return "🟩"
	}
	return "🟥"
}
