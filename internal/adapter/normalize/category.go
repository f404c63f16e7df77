package normalize

import "strings"

var customerTypeMap = map[string]string{
	"I": "INDIVIDUAL",
	"T": "TRADE",
	"V": "VIP",
}

var statusMap = map[string]string{
	"A": "ACTIVE",
	"K": "CLOSED",
}

// CustomerType maps I/T/V to INDIVIDUAL/TRADE/VIP. Unmapped input passes
// through unchanged so a later VALUE check can still flag it.
func CustomerType(value string) string {
	value = strings.TrimSpace(value)
	if mapped, ok := customerTypeMap[value]; ok {
		return mapped
	}
	return value
}

// Status maps A/K to ACTIVE/CLOSED, passing unmapped input through. Used for
// loan_status_code, loan_status_flag and installment_status alike.
func Status(value string) string {
	value = strings.TrimSpace(value)
	if mapped, ok := statusMap[value]; ok {
		return mapped
	}
	return value
}

// Insurance maps the retail insurance flag H/E to 0/1. Anything else,
// including empty input, yields nil.
func Insurance(value string) *uint8 {
	var flag uint8
	switch strings.TrimSpace(value) {
	case "H":
		flag = 0
	case "E":
		flag = 1
	default:
		return nil
	}
	return &flag
}
