package validate

import (
	"github.com/izgi-a/findata-adapter/internal/adapter/model"
)

// CreditValidator validates individual fields in credit records.
type CreditValidator struct{}

var creditRequired = []string{
	"loan_account_number", "customer_id", "customer_type",
	"loan_status_code", "original_loan_amount",
	"outstanding_principal_balance",
}

var creditDecimalFields = []string{
	"original_loan_amount", "outstanding_principal_balance",
	"nominal_interest_rate", "total_interest_amount",
	"kkdf_rate", "kkdf_amount", "bsmv_rate", "bsmv_amount",
}

var creditCountFields = []string{
	"days_past_due", "total_installment_count",
	"outstanding_installment_count", "paid_installment_count",
	"grace_period_months", "installment_frequency",
}

var creditDateFields = []string{
	"final_maturity_date", "first_payment_date",
	"loan_start_date", "loan_closing_date",
}

// ValidateRow applies every field rule for the given loan type.
func (CreditValidator) ValidateRow(row Row, rowNumber int, loanType model.LoanType) RowResult {
	rr := RowResult{RowNumber: rowNumber}

	for _, field := range creditRequired {
		requireField(&rr, row, field)
	}

	checkEnum(&rr, row, "customer_type", "I", "T", "V")
	checkEnum(&rr, row, "loan_status_code", "A", "K")

	for _, field := range creditDecimalFields {
		checkDecimal(&rr, row, field)
	}
	for _, field := range creditCountFields {
		checkInteger(&rr, row, field, 0)
	}
	checkInteger(&rr, row, "internal_rating", noMin)
	checkInteger(&rr, row, "external_rating", noMin)

	for _, field := range creditDateFields {
		checkDate(&rr, row, field)
	}

	switch loanType {
	case model.LoanTypeRetail:
		checkEnum(&rr, row, "insurance_included", "H", "E")
	case model.LoanTypeCommercial:
		checkInteger(&rr, row, "loan_product_type", noMin)
		checkInteger(&rr, row, "sector_code", noMin)
		checkInteger(&rr, row, "internal_credit_rating", noMin)
		checkDecimal(&rr, row, "default_probability")
		checkInteger(&rr, row, "risk_class", noMin)
		checkInteger(&rr, row, "customer_segment", noMin)
		checkEnum(&rr, row, "loan_status_flag", "A", "K")
	}

	return rr
}
