package venue

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/fundingbot/internal/capture"
	"github.com/web3guy0/fundingbot/internal/extract"
	"github.com/web3guy0/fundingbot/internal/ocr"
	"github.com/web3guy0/fundingbot/types"
)

// LighterOptions describes where on the trade page the values are drawn
type LighterOptions struct {
	URL         string
	Viewport    capture.Viewport
	FundingClip capture.Clip
	SpreadClip  capture.Clip
	Settle      time.Duration

	// DumpDir receives the captured images and raw OCR text when set.
	// Diagnostic only; nothing reads it back.
	DumpDir string
}

// Lighter recovers the quote from screenshots of the Lighter trade page
type Lighter struct {
	opts     LighterOptions
	capturer capture.Capturer
	ocr      ocr.Recognizer
	parser   *extract.Parser
}

// NewLighter wires a capture provider, an OCR engine and the text parser
func NewLighter(opts LighterOptions, capturer capture.Capturer, recognizer ocr.Recognizer, parser *extract.Parser) *Lighter {
	if parser == nil {
		parser = extract.NewParser(extract.DefaultPolicy)
	}
	return &Lighter{
		opts:     opts,
		capturer: capturer,
		ocr:      recognizer,
		parser:   parser,
	}
}

func (l *Lighter) Venue() types.Venue { return types.VenueLighter }

// Quote captures the funding header and the spread row from one page load and
// recognizes each region on its own: they are disjoint crops.
func (l *Lighter) Quote(ctx context.Context) types.VenueQuote {
	return safeQuote(ctx, types.VenueLighter, l.fetch)
}

func (l *Lighter) fetch(ctx context.Context) (types.VenueQuote, error) {
	shots, err := l.capturer.Capture(ctx, capture.Request{
		URL:      l.opts.URL,
		Viewport: l.opts.Viewport,
		Settle:   l.opts.Settle,
		Clips:    []capture.Clip{l.opts.FundingClip, l.opts.SpreadClip},
	})
	if err != nil {
		return types.VenueQuote{}, fmt.Errorf("lighter: %w", err)
	}
	if len(shots) != 2 {
		return types.VenueQuote{}, fmt.Errorf("lighter: got %d captures, want 2: %w", len(shots), types.ErrVenueUnavailable)
	}

	fundingText, err := l.ocr.Recognize(ctx, shots[0])
	if err != nil {
		return types.VenueQuote{}, fmt.Errorf("lighter: funding region: %w", err)
	}
	spreadText, err := l.ocr.Recognize(ctx, shots[1])
	if err != nil {
		return types.VenueQuote{}, fmt.Errorf("lighter: spread region: %w", err)
	}

	if l.opts.DumpDir != "" {
		l.dump(ctx, shots, fundingText, spreadText)
	}

	book := l.parser.ExtractSpread(spreadText)
	q := types.VenueQuote{
		Source:  types.VenueLighter,
		Funding: l.parser.ExtractFunding(fundingText),
		Bid:     book.Bid,
		Ask:     book.Ask,
	}

	if q.Inverted() {
		log.Ctx(ctx).Warn().
			Str("bid", q.Bid.Decimal.String()).
			Str("ask", q.Ask.Decimal.String()).
			Msg("⚠️ Lighter bid above ask, low confidence read")
	}
	if q.Empty() {
		q.Err = fmt.Errorf("lighter: nothing recovered from OCR text: %w", types.ErrUnrecoverable)
	}
	return q, nil
}

func (l *Lighter) dump(ctx context.Context, shots [][]byte, fundingText, spreadText string) {
	logger := log.Ctx(ctx)
	if err := os.MkdirAll(l.opts.DumpDir, 0o755); err != nil {
		logger.Warn().Err(err).Str("dir", l.opts.DumpDir).Msg("OCR dump dir unavailable")
		return
	}

	stamp := time.Now().UTC().Format("20060102T150405")
	files := map[string][]byte{
		"lighter_funding_" + stamp + ".png": shots[0],
		"lighter_spread_" + stamp + ".png":  shots[1],
		"lighter_funding_" + stamp + ".txt": []byte(fundingText),
		"lighter_spread_" + stamp + ".txt":  []byte(spreadText),
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(l.opts.DumpDir, name), data, 0o644); err != nil {
			logger.Warn().Err(err).Str("file", name).Msg("OCR dump write failed")
		}
	}
}
