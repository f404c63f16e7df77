package warehouse

import (
	"context"
	"fmt"
	"strings"
)

// Fact table DDL. Staging tables reuse the same schema under the staging_
// prefix so REPLACE PARTITION can swap between them.
const factCreditDDL = `
CREATE TABLE IF NOT EXISTS fact_credit (
    batch_id                        UUID,
    loan_type                       LowCardinality(String),
    loaded_at                       DateTime DEFAULT now(),

    loan_account_number             String,
    customer_id                     String,
    customer_type                   LowCardinality(String),
    loan_status_code                LowCardinality(String),
    days_past_due                   UInt32 DEFAULT 0,
    final_maturity_date             Nullable(Date),
    total_installment_count         UInt32 DEFAULT 0,
    outstanding_installment_count   UInt32 DEFAULT 0,
    paid_installment_count          UInt32 DEFAULT 0,
    first_payment_date              Nullable(Date),
    original_loan_amount            Decimal(18, 2),
    outstanding_principal_balance   Decimal(18, 2),
    nominal_interest_rate           Decimal(10, 6),
    total_interest_amount           Decimal(18, 2) DEFAULT 0,
    kkdf_rate                       Decimal(10, 6) DEFAULT 0,
    kkdf_amount                     Decimal(18, 2) DEFAULT 0,
    bsmv_rate                       Decimal(10, 6) DEFAULT 0,
    bsmv_amount                     Decimal(18, 2) DEFAULT 0,
    grace_period_months             UInt32 DEFAULT 0,
    installment_frequency           UInt32 DEFAULT 1,
    loan_start_date                 Nullable(Date),
    loan_closing_date               Nullable(Date),
    internal_rating                 Nullable(UInt32),
    external_rating                 Nullable(UInt32),

    loan_product_type               Nullable(UInt32),
    customer_region_code            Nullable(String),
    sector_code                     Nullable(UInt32),
    internal_credit_rating          Nullable(UInt32),
    default_probability             Nullable(Decimal(10, 6)),
    risk_class                      Nullable(UInt32),
    customer_segment                Nullable(UInt32),

    insurance_included              Nullable(UInt8),
    customer_district_code          Nullable(String),
    customer_province_code          Nullable(String)
)
ENGINE = ReplacingMergeTree(loaded_at)
PARTITION BY loan_type
ORDER BY (loan_type, loan_account_number)
SETTINGS index_granularity = 8192
`

const factPaymentDDL = `
CREATE TABLE IF NOT EXISTS fact_payment (
    batch_id                UUID,
    loan_type               LowCardinality(String),
    loaded_at               DateTime DEFAULT now(),

    loan_account_number     String,
    installment_number      UInt32,
    actual_payment_date     Nullable(Date),
    scheduled_payment_date  Nullable(Date),
    installment_amount      Decimal(18, 2),
    principal_component     Decimal(18, 2),
    interest_component      Decimal(18, 2) DEFAULT 0,
    kkdf_component          Decimal(18, 2) DEFAULT 0,
    bsmv_component          Decimal(18, 2) DEFAULT 0,
    installment_status      LowCardinality(String),
    remaining_principal     Decimal(18, 2) DEFAULT 0,
    remaining_interest      Decimal(18, 2) DEFAULT 0,
    remaining_kkdf          Decimal(18, 2) DEFAULT 0,
    remaining_bsmv          Decimal(18, 2) DEFAULT 0
)
ENGINE = ReplacingMergeTree(loaded_at)
PARTITION BY loan_type
ORDER BY (loan_type, loan_account_number, installment_number)
SETTINGS index_granularity = 8192
`

// InitDatabase creates one tenant database with its two fact and two staging
// tables. The staging tables share the fact schema exactly.
func InitDatabase(ctx context.Context, opts ConnectOptions, database string) error {
	admin, err := Connect(opts, "default")
	if err != nil {
		return err
	}
	defer admin.Close()

	if err := admin.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database)); err != nil {
		return fmt.Errorf("create database %s: %w", database, err)
	}

	conn, err := Connect(opts, database)
	if err != nil {
		return err
	}
	defer conn.Close()

	ddls := []string{
		factCreditDDL,
		factPaymentDDL,
		strings.ReplaceAll(factCreditDDL, "fact_credit", "staging_credit"),
		strings.ReplaceAll(factPaymentDDL, "fact_payment", "staging_payment"),
	}
	for _, ddl := range ddls {
		if err := conn.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("create tables in %s: %w", database, err)
		}
	}
	return nil
}
