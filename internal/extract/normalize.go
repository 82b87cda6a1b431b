// Package extract recovers funding rates and top-of-book prices from noisy
// OCR text of the Lighter trade page.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/fundingbot/types"
)

var (
	sixDigits = regexp.MustCompile(`^\d{6}$`)
	numeric   = regexp.MustCompile(`^\d+(\.\d+)?$`)
)

// Normalize repairs an OCR numeric token into a decimal.
//
// At the page's rendering scale the engine reads digits reliably but often
// drops the decimal point, so a bare six digit token gets one inserted after
// the second digit ("123456" -> 12.3456). Anything else must already be a
// plain decimal literal.
func Normalize(token string) (decimal.Decimal, error) {
	token = strings.TrimSpace(token)
	if !strings.Contains(token, ".") && sixDigits.MatchString(token) {
		token = token[:2] + "." + token[2:]
	}
	if !numeric.MatchString(token) {
		return decimal.Zero, fmt.Errorf("normalize %q: %w", token, types.ErrUnrecoverable)
	}
	d, err := decimal.NewFromString(token)
	if err != nil {
		return decimal.Zero, fmt.Errorf("normalize %q: %w", token, types.ErrUnrecoverable)
	}
	return d, nil
}
