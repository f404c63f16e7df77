package warehouse

import (
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"
)

// CreditRow is one fully normalized credit record in staging column order.
type CreditRow struct {
	BatchID  string
	LoanType string
	LoadedAt time.Time

	LoanAccountNumber           string
	CustomerID                  string
	CustomerType                string
	LoanStatusCode              string
	DaysPastDue                 uint32
	FinalMaturityDate           *time.Time
	TotalInstallmentCount       uint32
	OutstandingInstallmentCount uint32
	PaidInstallmentCount        uint32
	FirstPaymentDate            *time.Time
	OriginalLoanAmount          decimal.Decimal
	OutstandingPrincipalBalance decimal.Decimal
	NominalInterestRate         decimal.Decimal
	TotalInterestAmount         decimal.Decimal
	KKDFRate                    decimal.Decimal
	KKDFAmount                  decimal.Decimal
	BSMVRate                    decimal.Decimal
	BSMVAmount                  decimal.Decimal
	GracePeriodMonths           uint32
	InstallmentFrequency        uint32
	LoanStartDate               *time.Time
	LoanClosingDate             *time.Time
	InternalRating              *uint32
	ExternalRating              *uint32

	LoanProductType      *uint32
	CustomerRegionCode   *string
	SectorCode           *uint32
	InternalCreditRating *uint32
	DefaultProbability   *decimal.Decimal
	RiskClass            *uint32
	CustomerSegment      *uint32

	InsuranceIncluded    *uint8
	CustomerDistrictCode *string
	CustomerProvinceCode *string
}

// PaymentRow is one fully normalized payment plan record in staging column
// order.
type PaymentRow struct {
	BatchID  string
	LoanType string
	LoadedAt time.Time

	LoanAccountNumber    string
	InstallmentNumber    uint32
	ActualPaymentDate    *time.Time
	ScheduledPaymentDate *time.Time
	InstallmentAmount    decimal.Decimal
	PrincipalComponent   decimal.Decimal
	InterestComponent    decimal.Decimal
	KKDFComponent        decimal.Decimal
	BSMVComponent        decimal.Decimal
	InstallmentStatus    string
	RemainingPrincipal   decimal.Decimal
	RemainingInterest    decimal.Decimal
	RemainingKKDF        decimal.Decimal
	RemainingBSMV        decimal.Decimal
}

const creditColumns = "batch_id, loan_type, loaded_at, " +
	"loan_account_number, customer_id, customer_type, loan_status_code, " +
	"days_past_due, final_maturity_date, total_installment_count, " +
	"outstanding_installment_count, paid_installment_count, first_payment_date, " +
	"original_loan_amount, outstanding_principal_balance, nominal_interest_rate, " +
	"total_interest_amount, kkdf_rate, kkdf_amount, bsmv_rate, bsmv_amount, " +
	"grace_period_months, installment_frequency, loan_start_date, loan_closing_date, " +
	"internal_rating, external_rating, loan_product_type, customer_region_code, " +
	"sector_code, internal_credit_rating, default_probability, risk_class, " +
	"customer_segment, insurance_included, customer_district_code, customer_province_code"

const paymentColumns = "batch_id, loan_type, loaded_at, " +
	"loan_account_number, installment_number, actual_payment_date, " +
	"scheduled_payment_date, installment_amount, principal_component, " +
	"interest_component, kkdf_component, bsmv_component, installment_status, " +
	"remaining_principal, remaining_interest, remaining_kkdf, remaining_bsmv"

func appendCredit(batch driver.Batch, r CreditRow) error {
	return batch.Append(
		r.BatchID, r.LoanType, r.LoadedAt,
		r.LoanAccountNumber, r.CustomerID, r.CustomerType, r.LoanStatusCode,
		r.DaysPastDue, r.FinalMaturityDate, r.TotalInstallmentCount,
		r.OutstandingInstallmentCount, r.PaidInstallmentCount, r.FirstPaymentDate,
		r.OriginalLoanAmount, r.OutstandingPrincipalBalance, r.NominalInterestRate,
		r.TotalInterestAmount, r.KKDFRate, r.KKDFAmount, r.BSMVRate, r.BSMVAmount,
		r.GracePeriodMonths, r.InstallmentFrequency, r.LoanStartDate, r.LoanClosingDate,
		r.InternalRating, r.ExternalRating, r.LoanProductType, r.CustomerRegionCode,
		r.SectorCode, r.InternalCreditRating, r.DefaultProbability, r.RiskClass,
		r.CustomerSegment, r.InsuranceIncluded, r.CustomerDistrictCode, r.CustomerProvinceCode,
	)
}

func appendPayment(batch driver.Batch, r PaymentRow) error {
	return batch.Append(
		r.BatchID, r.LoanType, r.LoadedAt,
		r.LoanAccountNumber, r.InstallmentNumber, r.ActualPaymentDate,
		r.ScheduledPaymentDate, r.InstallmentAmount, r.PrincipalComponent,
		r.InterestComponent, r.KKDFComponent, r.BSMVComponent, r.InstallmentStatus,
		r.RemainingPrincipal, r.RemainingInterest, r.RemainingKKDF, r.RemainingBSMV,
	)
}
