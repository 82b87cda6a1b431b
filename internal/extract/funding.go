package extract

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var (
	// The page renders funding as d.dddd%
	fundingStrict = regexp.MustCompile(`(-)?(\d\.\d{4})%`)

	// OCR sometimes drops the leading "0." or merges it into stray glyphs
	fundingTolerant = regexp.MustCompile(`(-)?([0.]{0,2}\d{1,5})%`)
)

// ExtractFunding finds a percentage token in text and returns it as a
// funding rate in percent. The captured number is the percentage itself:
// "0.0123%" yields 0.0123, it is never divided by 100.
func ExtractFunding(text string) decimal.NullDecimal {
	for _, re := range []*regexp.Regexp{fundingStrict, fundingTolerant} {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		d, err := decimal.NewFromString(trimLeadingZeros(m[2]))
		if err != nil {
			log.Debug().Str("token", m[2]).Err(err).Msg("funding token rejected")
			continue
		}
		if m[1] == "-" {
			d = d.Neg()
		}
		return decimal.NullDecimal{Decimal: d, Valid: true}
	}
	log.Debug().Msg("no funding percentage in text")
	return decimal.NullDecimal{}
}

// trimLeadingZeros collapses a run of leading zeros to one and makes sure the
// token starts with a digit
func trimLeadingZeros(s string) string {
	s = strings.TrimLeft(s, "0")
	if s == "" || s[0] == '.' {
		s = "0" + s
	}
	return s
}
