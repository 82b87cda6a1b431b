package config

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/web3guy0/fundingbot/internal/capture"
	"github.com/web3guy0/fundingbot/types"
)

// Layout is the versioned capture geometry for the Lighter trade page.
// Clips only make sense for the page layout and viewport they were measured
// on; bump Version whenever either changes.
type Layout struct {
	Version     int              `toml:"version"`
	Viewport    capture.Viewport `toml:"viewport"`
	FundingClip capture.Clip     `toml:"funding_clip"`
	SpreadClip  capture.Clip     `toml:"spread_clip"`
}

// DefaultLayout is v1: 1920x1080 at 2x, funding header and order book spread row
func DefaultLayout() Layout {
	return Layout{
		Version:     1,
		Viewport:    capture.Viewport{Width: 1920, Height: 1080, ScaleFactor: 2},
		FundingClip: capture.Clip{X: 500, Y: 40, Width: 1000, Height: 90},
		SpreadClip:  capture.Clip{X: 1270, Y: 420, Width: 260, Height: 140},
	}
}

// LoadLayout decodes a TOML layout file over the defaults
func LoadLayout(path string) (Layout, error) {
	layout := DefaultLayout()
	if _, err := toml.DecodeFile(path, &layout); err != nil {
		return Layout{}, fmt.Errorf("%w: layout %s: %v", types.ErrConfig, path, err)
	}
	if err := layout.Validate(); err != nil {
		return Layout{}, fmt.Errorf("%w: layout %s", err, path)
	}
	return layout, nil
}

// Validate rejects geometry that cannot produce an image
func (l Layout) Validate() error {
	if l.Version <= 0 {
		return fmt.Errorf("%w: layout version must be positive", types.ErrConfig)
	}
	if l.Viewport.Width <= 0 || l.Viewport.Height <= 0 || l.Viewport.ScaleFactor <= 0 {
		return fmt.Errorf("%w: layout v%d viewport %+v", types.ErrConfig, l.Version, l.Viewport)
	}
	for name, c := range map[string]capture.Clip{"funding_clip": l.FundingClip, "spread_clip": l.SpreadClip} {
		if err := validClip(c, l.Viewport); err != nil {
			return fmt.Errorf("%w: layout v%d %s: %v", types.ErrConfig, l.Version, name, err)
		}
	}
	return nil
}

func validClip(c capture.Clip, vp capture.Viewport) error {
	if c.Width <= 0 || c.Height <= 0 {
		return errors.New("empty clip")
	}
	if c.X < 0 || c.Y < 0 || c.X+c.Width > float64(vp.Width) || c.Y+c.Height > float64(vp.Height) {
		return errors.New("clip outside viewport")
	}
	return nil
}
