// Package venue assembles one VenueQuote per venue per cycle.
//
// Sources never fail outward: any error or panic becomes an all-null quote
// tagged with its venue, and the cause is kept on VenueQuote.Err.
package venue

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/fundingbot/types"
)

const maxBody = 8 << 20

// Source produces the current quote for one venue
type Source interface {
	Venue() types.Venue
	Quote(ctx context.Context) types.VenueQuote
}

type fetchFunc func(ctx context.Context) (types.VenueQuote, error)

// safeQuote runs fetch and absorbs every failure into an empty quote
func safeQuote(ctx context.Context, v types.Venue, fetch fetchFunc) (q types.VenueQuote) {
	logger := log.Ctx(ctx)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%s: %w: panic: %v", v, types.ErrVenueUnavailable, r)
			logger.Error().Str("venue", string(v)).Interface("panic", r).Msg("❌ Venue fetch panicked")
			q = types.EmptyQuote(v, err)
		}
	}()

	q, err := fetch(ctx)
	if err != nil {
		logger.Warn().Err(err).Str("venue", string(v)).Dur("took", time.Since(start)).Msg("Venue fetch failed")
		return types.EmptyQuote(v, err)
	}

	q.Source = v
	if q.FetchedAt.IsZero() {
		q.FetchedAt = time.Now()
	}

	logger.Debug().
		Str("venue", string(v)).
		Str("bid", q.Bid.Decimal.String()).
		Bool("bid_ok", q.Bid.Valid).
		Str("ask", q.Ask.Decimal.String()).
		Bool("ask_ok", q.Ask.Valid).
		Str("funding", q.Funding.Decimal.String()).
		Bool("funding_ok", q.Funding.Valid).
		Dur("took", time.Since(start)).
		Msg("Venue quote assembled")
	return q
}

// doJSON performs a request and returns the raw body of a 2xx response
func doJSON(ctx context.Context, client *http.Client, method, url string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrVenueUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", types.ErrVenueUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(data) > 256 {
			data = data[:256]
		}
		return nil, fmt.Errorf("%w: status %d: %s", types.ErrVenueUnavailable, resp.StatusCode, string(data))
	}
	return data, nil
}
