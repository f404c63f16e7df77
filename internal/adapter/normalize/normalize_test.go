package normalize

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string // "" means nil
	}{
		{"compact form", "20260302", "2026-03-02"},
		{"dashed form", "2026-03-02", "2026-03-02"},
		{"both forms agree", "20250402", "2025-04-02"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"too short", "202603", ""},
		{"not digits", "2026030a", ""},
		{"invalid month", "20261302", ""},
		{"invalid calendar day", "20260230", ""},
		{"zero year", "00000101", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Date(tt.input)
			if tt.want == "" {
				if got != nil {
					t.Fatalf("Date(%q) = %v, want nil", tt.input, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("Date(%q) = nil, want %s", tt.input, tt.want)
			}
			if got.Format(time.DateOnly) != tt.want {
				t.Errorf("Date(%q) = %s, want %s", tt.input, got.Format(time.DateOnly), tt.want)
			}
		})
	}
}

func TestDateBothFormsSameValue(t *testing.T) {
	compact := Date("20260302")
	dashed := Date("2026-03-02")
	if compact == nil || dashed == nil {
		t.Fatal("expected both forms to parse")
	}
	if !compact.Equal(*dashed) {
		t.Errorf("formats disagree: %v vs %v", compact, dashed)
	}
}

func TestRate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"55.47", "0.5547"},
		{"5.14", "0.0514"},
		{"0.0217", "0.0217"},
		{"1", "1"},
		{"100", "1"},
		{"0", "0"},
		{"", "0"},
		{"not-a-number", "0"},
	}
	for _, tt := range tests {
		got := Rate(tt.input)
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("Rate(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestRateIdempotent(t *testing.T) {
	for _, input := range []string{"55.47", "5.14", "0.0217", "0.9999", "100"} {
		once := Rate(input)
		twice := Rate(once.String())
		if !once.Equal(twice) {
			t.Errorf("Rate not idempotent for %q: %s then %s", input, once, twice)
		}
	}
}

func TestRateBounded(t *testing.T) {
	one := decimal.NewFromInt(1)
	for _, input := range []string{"0", "0.5", "1", "1.01", "55.47", "100", "99.99"} {
		got := Rate(input)
		if got.IsNegative() || got.GreaterThan(one) {
			t.Errorf("Rate(%q) = %s outside [0,1]", input, got)
		}
	}
}

func TestCustomerType(t *testing.T) {
	tests := []struct{ input, want string }{
		{"I", "INDIVIDUAL"},
		{"T", "TRADE"},
		{"V", "VIP"},
		{"INDIVIDUAL", "INDIVIDUAL"}, // already mapped passes through
		{"X", "X"},
		{" I ", "INDIVIDUAL"},
	}
	for _, tt := range tests {
		if got := CustomerType(tt.input); got != tt.want {
			t.Errorf("CustomerType(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestStatus(t *testing.T) {
	tests := []struct{ input, want string }{
		{"A", "ACTIVE"},
		{"K", "CLOSED"},
		{"ACTIVE", "ACTIVE"},
		{"Z", "Z"},
	}
	for _, tt := range tests {
		if got := Status(tt.input); got != tt.want {
			t.Errorf("Status(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestInsurance(t *testing.T) {
	if got := Insurance("H"); got == nil || *got != 0 {
		t.Errorf("Insurance(H) = %v, want 0", got)
	}
	if got := Insurance("E"); got == nil || *got != 1 {
		t.Errorf("Insurance(E) = %v, want 1", got)
	}
	for _, input := range []string{"", "X", "0", "1"} {
		if got := Insurance(input); got != nil {
			t.Errorf("Insurance(%q) = %v, want nil", input, *got)
		}
	}
}
