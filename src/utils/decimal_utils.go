package utils

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DecimalPrecision is the fixed number of fractional digits carried
// through every division in the engine. Additions, subtractions and
// multiplications are exact; only division rounds, and only here.
const DecimalPrecision = 16

// MinDecimal returns the smaller of two decimals.
func MinDecimal(a, b decimal.Decimal) decimal.Decimal {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// DivAt divides a by b at the engine's fixed precision.
func DivAt(a, b decimal.Decimal) decimal.Decimal {
	return a.DivRound(b, DecimalPrecision)
}

// ParseDecimal parses a decimal from CSV text, tolerating thousands
// separators, surrounding whitespace and a leading currency sign. An
// empty field parses as zero.
func ParseDecimal(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	if cleaned == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal value %q: %w", s, err)
	}
	return d, nil
}
