package venue

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"

	"github.com/web3guy0/fundingbot/types"
)

var hundred = decimal.NewFromInt(100)

// Extended reads quotes from the Extended public markets endpoint
type Extended struct {
	url    string
	symbol string
	client *http.Client
}

// NewExtended creates an Extended source for a market name such as "HYPE-USD"
func NewExtended(url, symbol string, timeout time.Duration) *Extended {
	return &Extended{
		url:    url,
		symbol: symbol,
		client: &http.Client{Timeout: timeout},
	}
}

func (e *Extended) Venue() types.Venue { return types.VenueExtended }

// Quote fetches the market list and picks the configured market
func (e *Extended) Quote(ctx context.Context) types.VenueQuote {
	return safeQuote(ctx, types.VenueExtended, func(ctx context.Context) (types.VenueQuote, error) {
		body, err := doJSON(ctx, e.client, http.MethodGet, e.url, nil)
		if err != nil {
			return types.VenueQuote{}, fmt.Errorf("extended: %w", err)
		}
		return ParseExtended(body, e.symbol)
	})
}

// ParseExtended extracts one market from an Extended markets payload.
//
// The market list has been served as {"data":[...]}, {"markets":[...]}, a bare
// array, and a map keyed by market name; all four are accepted. The market is
// matched on its exact name. A missing market means the response shape is not
// what we expect, so nothing from it is trusted.
//
// fundingRate is a fraction per period and is converted to percent.
func ParseExtended(payload []byte, symbol string) (types.VenueQuote, error) {
	if !gjson.ValidBytes(payload) {
		return types.EmptyQuote(types.VenueExtended, nil), fmt.Errorf("extended: malformed payload: %w", types.ErrVenueUnavailable)
	}

	market, ok := findMarket(gjson.ParseBytes(payload), symbol)
	if !ok {
		return types.EmptyQuote(types.VenueExtended, nil), fmt.Errorf("extended: market %s: %w", symbol, types.ErrInstrumentNotFound)
	}

	stats := market.Get("marketStats")
	q := types.VenueQuote{
		Source:  types.VenueExtended,
		Bid:     decimalField(stats, "bidPrice"),
		Ask:     decimalField(stats, "askPrice"),
		Funding: decimalField(stats, "fundingRate"),
	}
	if q.Funding.Valid {
		q.Funding.Decimal = q.Funding.Decimal.Mul(hundred)
	}
	return q, nil
}

func findMarket(root gjson.Result, symbol string) (gjson.Result, bool) {
	lists := []gjson.Result{root.Get("data"), root.Get("markets")}
	if root.IsArray() {
		lists = append([]gjson.Result{root}, lists...)
	}
	for _, list := range lists {
		if !list.IsArray() {
			continue
		}
		for _, m := range list.Array() {
			if m.Get("name").String() == symbol {
				return m, true
			}
		}
	}

	var found gjson.Result
	if root.IsObject() {
		root.ForEach(func(key, value gjson.Result) bool {
			if key.String() == symbol && value.IsObject() {
				found = value
				return false
			}
			return true
		})
	}
	return found, found.Exists()
}

// decimalField reads a string or number field, null when absent or garbage
func decimalField(obj gjson.Result, key string) decimal.NullDecimal {
	v := obj.Get(key)
	if !v.Exists() || v.Type == gjson.Null {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		log.Debug().Str("field", key).Str("raw", v.Raw).Msg("unparsable price field")
		return decimal.NullDecimal{}
	}
	return types.Value(d)
}
