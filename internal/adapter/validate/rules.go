package validate

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// noMin marks an integer rule without a lower bound.
const noMin = math.MinInt

// requireField flags a REQUIRED error when the field is empty after trim.
func requireField(rr *RowResult, row Row, field string) bool {
	if strings.TrimSpace(row[field]) == "" {
		rr.addError(field, ErrRequired, fmt.Sprintf("%s is required", field), row[field])
		return false
	}
	return true
}

// checkInteger validates an optional integer field. min is inclusive; pass
// noMin for unbounded.
func checkInteger(rr *RowResult, row Row, field string, min int) bool {
	value := strings.TrimSpace(row[field])
	if value == "" {
		return true
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		rr.addError(field, ErrType, fmt.Sprintf("%s must be an integer, got: %s", field, value), value)
		return false
	}
	if min != noMin && n < min {
		rr.addError(field, ErrRange, fmt.Sprintf("%s must be >= %d, got %d", field, min, n), value)
		return false
	}
	return true
}

// checkDecimal validates an optional non-negative decimal field.
func checkDecimal(rr *RowResult, row Row, field string) bool {
	value := strings.TrimSpace(row[field])
	if value == "" {
		return true
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		rr.addError(field, ErrType, fmt.Sprintf("%s must be a number, got: %s", field, value), value)
		return false
	}
	if d.IsNegative() {
		rr.addError(field, ErrRange, fmt.Sprintf("%s must be >= 0, got %s", field, d), value)
		return false
	}
	return true
}

// checkDate validates an optional date field in YYYYMMDD or YYYY-MM-DD form
// with calendar components inside [1900,2100] / [1,12] / [1,31].
func checkDate(rr *RowResult, row Row, field string) bool {
	value := strings.TrimSpace(row[field])
	if value == "" {
		return true
	}
	clean := strings.ReplaceAll(value, "-", "")
	if len(clean) != 8 || !allDigits(clean) {
		rr.addError(field, ErrFormat,
			fmt.Sprintf("%s must be YYYYMMDD or YYYY-MM-DD, got: %s", field, value), value)
		return false
	}
	year, _ := strconv.Atoi(clean[:4])
	month, _ := strconv.Atoi(clean[4:6])
	day, _ := strconv.Atoi(clean[6:8])
	if year < 1900 || year > 2100 || month < 1 || month > 12 || day < 1 || day > 31 {
		rr.addError(field, ErrFormat,
			fmt.Sprintf("%s has invalid date components: %s", field, value), value)
		return false
	}
	return true
}

// checkEnum validates an optional field against an allowed value set.
func checkEnum(rr *RowResult, row Row, field string, allowed ...string) bool {
	value := strings.TrimSpace(row[field])
	if value == "" {
		return true
	}
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	rr.addError(field, ErrValue,
		fmt.Sprintf("%s must be one of %v, got: %s", field, allowed, value), value)
	return false
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
