package venue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/fundingbot/types"
)

var metaAndAssetCtxs = []byte(`{"type":"metaAndAssetCtxs"}`)

// Hyperliquid reads quotes from the Hyperliquid info endpoint.
//
// The endpoint only exposes a mid price, so bid and ask are synthesised as
// mid ∓ offset and the quote is flagged Synthetic. That is not a real quoted
// spread.
type Hyperliquid struct {
	url       string
	symbol    string
	midOffset decimal.Decimal
	client    *http.Client
}

// NewHyperliquid creates a Hyperliquid source for a coin such as "HYPE"
func NewHyperliquid(url, symbol string, midOffset decimal.Decimal, timeout time.Duration) *Hyperliquid {
	return &Hyperliquid{
		url:       url,
		symbol:    symbol,
		midOffset: midOffset,
		client:    &http.Client{Timeout: timeout},
	}
}

func (h *Hyperliquid) Venue() types.Venue { return types.VenueHyperliquid }

// Quote posts a metaAndAssetCtxs request and picks the configured coin
func (h *Hyperliquid) Quote(ctx context.Context) types.VenueQuote {
	return safeQuote(ctx, types.VenueHyperliquid, func(ctx context.Context) (types.VenueQuote, error) {
		body, err := doJSON(ctx, h.client, http.MethodPost, h.url, metaAndAssetCtxs)
		if err != nil {
			return types.VenueQuote{}, fmt.Errorf("hyperliquid: %w", err)
		}
		return ParseHyperliquid(body, h.symbol, h.midOffset)
	})
}

type hlMeta struct {
	Universe []struct {
		Name string `json:"name"`
	} `json:"universe"`
}

type hlAssetCtx struct {
	Funding string  `json:"funding"`
	MidPx   *string `json:"midPx"`
}

// ParseHyperliquid extracts one coin from a [meta, assetCtxs] payload. The
// coin's context sits at the same index as its name in meta.universe.
func ParseHyperliquid(payload []byte, symbol string, midOffset decimal.Decimal) (types.VenueQuote, error) {
	empty := types.EmptyQuote(types.VenueHyperliquid, nil)

	var parts []json.RawMessage
	if err := json.Unmarshal(payload, &parts); err != nil || len(parts) < 2 {
		return empty, fmt.Errorf("hyperliquid: unexpected payload shape: %w", types.ErrVenueUnavailable)
	}

	var meta hlMeta
	if err := json.Unmarshal(parts[0], &meta); err != nil {
		return empty, fmt.Errorf("hyperliquid: decode meta: %w: %v", types.ErrVenueUnavailable, err)
	}
	var ctxs []hlAssetCtx
	if err := json.Unmarshal(parts[1], &ctxs); err != nil {
		return empty, fmt.Errorf("hyperliquid: decode asset contexts: %w: %v", types.ErrVenueUnavailable, err)
	}

	idx := -1
	for i, a := range meta.Universe {
		if a.Name == symbol {
			idx = i
			break
		}
	}
	if idx < 0 || idx >= len(ctxs) {
		return empty, fmt.Errorf("hyperliquid: coin %s: %w", symbol, types.ErrInstrumentNotFound)
	}

	asset := ctxs[idx]
	q := types.VenueQuote{Source: types.VenueHyperliquid, Synthetic: true}

	if asset.MidPx != nil {
		if mid, err := decimal.NewFromString(*asset.MidPx); err == nil {
			q.Bid = types.Value(mid.Sub(midOffset))
			q.Ask = types.Value(mid.Add(midOffset))
		}
	}
	if fr, err := decimal.NewFromString(asset.Funding); err == nil {
		q.Funding = types.Value(fr.Mul(hundred))
	}
	return q, nil
}
