package warehouse

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/izgi-a/findata-adapter/internal/adapter/model"
	"github.com/izgi-a/findata-adapter/internal/adapter/normalize"
	"github.com/izgi-a/findata-adapter/internal/adapter/validate"
)

// MarshalCredit converts a validated raw row into a typed staging row,
// applying the date, rate and category normalizations plus the column
// coercion rules: counters clamp to >= 0, nullable columns map empty or
// literal "None" input to nil, decimals fall back to 0 on parse failure.
func MarshalCredit(row validate.Row, loanType model.LoanType, batchID string, loadedAt time.Time) CreditRow {
	c := CreditRow{
		BatchID:  batchID,
		LoanType: string(loanType),
		LoadedAt: loadedAt,

		LoanAccountNumber:           strings.TrimSpace(row["loan_account_number"]),
		CustomerID:                  strings.TrimSpace(row["customer_id"]),
		CustomerType:                normalize.CustomerType(row["customer_type"]),
		LoanStatusCode:              normalize.Status(row["loan_status_code"]),
		DaysPastDue:                 toUint(row["days_past_due"]),
		FinalMaturityDate:           normalize.Date(row["final_maturity_date"]),
		TotalInstallmentCount:       toUint(row["total_installment_count"]),
		OutstandingInstallmentCount: toUint(row["outstanding_installment_count"]),
		PaidInstallmentCount:        toUint(row["paid_installment_count"]),
		FirstPaymentDate:            normalize.Date(row["first_payment_date"]),
		OriginalLoanAmount:          toDecimal(row["original_loan_amount"]),
		OutstandingPrincipalBalance: toDecimal(row["outstanding_principal_balance"]),
		NominalInterestRate:         normalize.Rate(row["nominal_interest_rate"]),
		TotalInterestAmount:         toDecimal(row["total_interest_amount"]),
		KKDFRate:                    normalize.Rate(row["kkdf_rate"]),
		KKDFAmount:                  toDecimal(row["kkdf_amount"]),
		BSMVRate:                    normalize.Rate(row["bsmv_rate"]),
		BSMVAmount:                  toDecimal(row["bsmv_amount"]),
		GracePeriodMonths:           toUint(row["grace_period_months"]),
		InstallmentFrequency:        uintOr(row, "installment_frequency", 1),
		LoanStartDate:               normalize.Date(row["loan_start_date"]),
		LoanClosingDate:             normalize.Date(row["loan_closing_date"]),
		InternalRating:              toNullableUint(row["internal_rating"]),
		ExternalRating:              toNullableUint(row["external_rating"]),

		LoanProductType:      toNullableUint(row["loan_product_type"]),
		CustomerRegionCode:   toNullableString(row["customer_region_code"]),
		SectorCode:           toNullableUint(row["sector_code"]),
		InternalCreditRating: toNullableUint(row["internal_credit_rating"]),
		RiskClass:            toNullableUint(row["risk_class"]),
		CustomerSegment:      toNullableUint(row["customer_segment"]),

		CustomerDistrictCode: toNullableString(row["customer_district_code"]),
		CustomerProvinceCode: toNullableString(row["customer_province_code"]),
	}

	switch loanType {
	case model.LoanTypeCommercial:
		// Commercial PD passes through rate normalization, so an empty
		// input stores 0 rather than null.
		pd := normalize.Rate(row["default_probability"])
		c.DefaultProbability = &pd
		c.InsuranceIncluded = toNullableUint8(row["insurance_included"])
	default:
		c.DefaultProbability = toNullableDecimal(row["default_probability"])
		c.InsuranceIncluded = normalize.Insurance(row["insurance_included"])
	}

	return c
}

// MarshalPayment converts a validated raw payment row into a typed staging
// row.
func MarshalPayment(row validate.Row, loanType model.LoanType, batchID string, loadedAt time.Time) PaymentRow {
	return PaymentRow{
		BatchID:  batchID,
		LoanType: string(loanType),
		LoadedAt: loadedAt,

		LoanAccountNumber:    strings.TrimSpace(row["loan_account_number"]),
		InstallmentNumber:    toUint(row["installment_number"]),
		ActualPaymentDate:    normalize.Date(row["actual_payment_date"]),
		ScheduledPaymentDate: normalize.Date(row["scheduled_payment_date"]),
		InstallmentAmount:    toDecimal(row["installment_amount"]),
		PrincipalComponent:   toDecimal(row["principal_component"]),
		InterestComponent:    toDecimal(row["interest_component"]),
		KKDFComponent:        toDecimal(row["kkdf_component"]),
		BSMVComponent:        toDecimal(row["bsmv_component"]),
		InstallmentStatus:    normalize.Status(row["installment_status"]),
		RemainingPrincipal:   toDecimal(row["remaining_principal"]),
		RemainingInterest:    toDecimal(row["remaining_interest"]),
		RemainingKKDF:        toDecimal(row["remaining_kkdf"]),
		RemainingBSMV:        toDecimal(row["remaining_bsmv"]),
	}
}

func toUint(value string) uint32 {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return uint32(n)
}

// uintOr applies a default only when the column is absent from the row, not
// when it is present but empty.
func uintOr(row validate.Row, field string, def uint32) uint32 {
	value, ok := row[field]
	if !ok {
		return def
	}
	return toUint(value)
}

func toDecimal(value string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nullish(value string) (string, bool) {
	value = strings.TrimSpace(value)
	return value, value == "" || value == "None"
}

func toNullableUint(value string) *uint32 {
	v, null := nullish(value)
	if null {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return nil
	}
	u := uint32(n)
	return &u
}

func toNullableUint8(value string) *uint8 {
	v, null := nullish(value)
	if null {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 8)
	if err != nil {
		return nil
	}
	u := uint8(n)
	return &u
}

func toNullableDecimal(value string) *decimal.Decimal {
	v, null := nullish(value)
	if null {
		return nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return nil
	}
	return &d
}

func toNullableString(value string) *string {
	v, null := nullish(value)
	if null {
		return nil
	}
	return &v
}
