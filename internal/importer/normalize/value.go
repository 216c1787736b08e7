package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

var numberNoise = strings.NewReplacer(
	",", "",
	" ", "",
	"\u00a0", "",
	"\t", "",
	"₩", "",
	"원", "",
)

// Number parses a locale-formatted amount. Thousands separators, spaces and
// currency marks are dropped and an accounting "(1,000)" is negative. The
// result is invalid (not zero) when the cell holds no number.
func Number(raw string) decimal.NullDecimal {
	s := numberNoise.Replace(strings.TrimSpace(raw))
	if s == "" || s == "-" {
		return decimal.NullDecimal{}
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}

	if neg {
		d = d.Neg()
	}

	return decimal.NewNullDecimal(d)
}

// Text trims a cell. Whitespace-only cells become empty.
func Text(raw string) string {
	return strings.TrimSpace(raw)
}

// Round rounds half away from zero to a whole number.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}
