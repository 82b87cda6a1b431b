// Package ocr wraps the Tesseract engine for reading captured page regions
package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/web3guy0/fundingbot/types"
)

// Recognizer turns an image into recognized text. Line breaks approximate
// visual rows; no other layout is guaranteed.
type Recognizer interface {
	Recognize(ctx context.Context, img []byte) (string, error)
}

// Tesseract runs recognition through libtesseract
type Tesseract struct {
	languages []string
}

// NewTesseract creates a recognizer for the given language hint, e.g. "eng"
func NewTesseract(language string) *Tesseract {
	langs := strings.Split(language, "+")
	if language == "" {
		langs = []string{"eng"}
	}
	return &Tesseract{languages: langs}
}

// Recognize runs one OCR pass over img. A fresh engine client is used per
// call so no state carries over between regions.
func (t *Tesseract) Recognize(ctx context.Context, img []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(img) == 0 {
		return "", fmt.Errorf("ocr: empty image: %w", types.ErrVenueUnavailable)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languages...); err != nil {
		return "", fmt.Errorf("ocr: set language: %w", err)
	}
	if err := client.SetImageFromBytes(img); err != nil {
		return "", fmt.Errorf("ocr: load image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr: recognize: %w", err)
	}
	return text, nil
}
