// Package capture screenshots regions of a rendered web page.
//
// Clip coordinates are tied to one page layout at one viewport size. Any
// layout change on the venue side invalidates them.
package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/fundingbot/types"
)

// Viewport is the emulated browser window
type Viewport struct {
	Width       int64   `toml:"width"`
	Height      int64   `toml:"height"`
	ScaleFactor float64 `toml:"scale_factor"`
}

// Clip is a rectangle in CSS pixels
type Clip struct {
	X      float64 `toml:"x"`
	Y      float64 `toml:"y"`
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
}

// Request describes one page load and the regions to grab from it
type Request struct {
	URL      string
	Viewport Viewport
	Settle   time.Duration // fixed wait after navigation for the page to draw
	Clips    []Clip
}

// Capturer returns one PNG per requested clip, in order
type Capturer interface {
	Capture(ctx context.Context, req Request) ([][]byte, error)
}

// Chrome captures with a headless Chrome driven over the DevTools protocol
type Chrome struct {
	execPath string
	timeout  time.Duration
}

// NewChrome creates a capturer. execPath may be empty to use the system
// browser; timeout bounds the whole load+settle+capture sequence.
func NewChrome(execPath string, timeout time.Duration) *Chrome {
	return &Chrome{execPath: execPath, timeout: timeout}
}

// Capture starts a fresh browser, loads the page, waits for it to settle and
// grabs every clip. The browser is torn down before returning so no page state
// leaks into the next cycle.
func (c *Chrome) Capture(ctx context.Context, req Request) ([][]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.WindowSize(int(req.Viewport.Width), int(req.Viewport.Height)),
	)
	if c.execPath != "" {
		opts = append(opts, chromedp.ExecPath(c.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	start := time.Now()
	shots := make([][]byte, 0, len(req.Clips))

	err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(req.Viewport.Width, req.Viewport.Height,
			chromedp.EmulateScale(req.Viewport.ScaleFactor)),
		chromedp.Navigate(req.URL),
		chromedp.Sleep(req.Settle),
		chromedp.ActionFunc(func(ctx context.Context) error {
			for i, clip := range req.Clips {
				buf, err := page.CaptureScreenshot().
					WithFormat(page.CaptureScreenshotFormatPng).
					WithClip(&page.Viewport{
						X:      clip.X,
						Y:      clip.Y,
						Width:  clip.Width,
						Height: clip.Height,
						Scale:  1,
					}).
					Do(ctx)
				if err != nil {
					return fmt.Errorf("clip %d: %w", i, err)
				}
				shots = append(shots, buf)
			}
			return nil
		}),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("capture %s after %s: %w", req.URL, time.Since(start).Round(time.Millisecond), types.ErrTimeout)
		}
		return nil, fmt.Errorf("capture %s: %w: %v", req.URL, types.ErrVenueUnavailable, err)
	}

	log.Debug().
		Str("url", req.URL).
		Int("clips", len(shots)).
		Dur("took", time.Since(start)).
		Msg("📸 Page captured")

	return shots, nil
}
