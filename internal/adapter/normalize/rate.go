package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Rate parses a rate given either as a fraction (0.0514) or a percentage
// (5.14). Values above 1 are treated as percentages and divided by 100.
// Empty or unparseable input yields 0. The transform is idempotent: a value
// already in [0,1] passes through unchanged.
func Rate(value string) decimal.Decimal {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero
	}
	rate, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	if rate.GreaterThan(decimal.New(1, 0)) {
		rate = rate.Div(hundred)
	}
	return rate
}
