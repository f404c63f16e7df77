package validate

import (
	"github.com/izgi-a/findata-adapter/internal/adapter/model"
)

// PaymentValidator validates individual fields in payment plan records.
type PaymentValidator struct{}

var paymentRequired = []string{
	"loan_account_number", "installment_number",
	"installment_amount", "principal_component",
}

var paymentDecimalFields = []string{
	"installment_amount", "principal_component",
	"interest_component", "kkdf_component", "bsmv_component",
	"remaining_principal", "remaining_interest",
	"remaining_kkdf", "remaining_bsmv",
}

// ValidateRow applies every field rule. Payment rules do not vary by loan
// type.
func (PaymentValidator) ValidateRow(row Row, rowNumber int, _ model.LoanType) RowResult {
	rr := RowResult{RowNumber: rowNumber}

	for _, field := range paymentRequired {
		requireField(&rr, row, field)
	}

	checkInteger(&rr, row, "installment_number", 1)

	for _, field := range paymentDecimalFields {
		checkDecimal(&rr, row, field)
	}

	checkEnum(&rr, row, "installment_status", "A", "K")

	checkDate(&rr, row, "actual_payment_date")
	checkDate(&rr, row, "scheduled_payment_date")

	return rr
}
