// Package profile computes data profiles directly from the warehouse fact
// tables: numeric distributions, categorical frequencies, null ratios and
// column completeness. No separate cache table; ClickHouse aggregates in
// place.
package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/rs/zerolog"

	"github.com/izgi-a/findata-adapter/internal/adapter/model"
)

// Meta columns excluded from completeness analysis.
var metaFields = []string{"batch_id", "loan_type", "loaded_at"}

var retailOnlyFields = []string{
	"insurance_included", "customer_district_code", "customer_province_code",
}

var commercialOnlyFields = []string{
	"loan_product_type", "customer_region_code", "sector_code",
	"internal_credit_rating", "default_probability",
	"risk_class", "customer_segment",
}

var numericFieldsCredit = []string{
	"days_past_due", "total_installment_count",
	"outstanding_installment_count", "paid_installment_count",
	"original_loan_amount", "outstanding_principal_balance",
	"nominal_interest_rate", "total_interest_amount",
	"kkdf_rate", "kkdf_amount", "bsmv_rate", "bsmv_amount",
	"internal_rating", "external_rating",
}

var categoricalFieldsCreditCommon = []string{
	"customer_type", "loan_status_code",
	"installment_frequency", "grace_period_months",
}

var nullableFieldsCreditCommon = []string{
	"final_maturity_date", "first_payment_date",
	"loan_start_date", "loan_closing_date",
	"internal_rating", "external_rating",
}

var categoricalFieldsCreditCommercial = []string{
	"loan_product_type", "sector_code", "risk_class",
	"customer_segment", "internal_credit_rating",
	"customer_region_code",
}

var numericFieldsPayment = []string{
	"installment_number", "installment_amount",
	"principal_component", "interest_component",
	"kkdf_component", "bsmv_component",
	"remaining_principal", "remaining_interest",
	"remaining_kkdf", "remaining_bsmv",
}

var categoricalFieldsPayment = []string{"installment_status"}

var nullableFieldsPayment = []string{"actual_payment_date", "scheduled_payment_date"}

// NumericStats summarizes one numeric column.
type NumericStats struct {
	Min             float64 `json:"min"`
	Max             float64 `json:"max"`
	Avg             float64 `json:"avg"`
	Stddev          float64 `json:"stddev"`
	TotalCount      uint64  `json:"total_count"`
	ZeroOrNullCount uint64  `json:"zero_or_null_count"`
	ZeroOrNullRatio float64 `json:"zero_or_null_ratio"`
}

// CategoricalValue is one distinct value with its frequency. A nil Value
// marks NULL or empty input.
type CategoricalValue struct {
	Value     *string `json:"value"`
	Frequency uint64  `json:"frequency"`
}

// CategoricalStats summarizes one low-cardinality column.
type CategoricalStats struct {
	UniqueCount int                `json:"unique_count"`
	Values      []CategoricalValue `json:"values"`
}

// Completeness reports how filled one column is.
type Completeness struct {
	MissingCount uint64  `json:"missing_count"`
	MissingPct   float64 `json:"missing_pct"`
	FilledPct    float64 `json:"filled_pct"`
	Total        uint64  `json:"total"`
}

// Profile is the full result for one (loan_type, data_type).
type Profile struct {
	LoanType         model.LoanType              `json:"loan_type"`
	DataType         string                      `json:"data_type"`
	RowCount         uint64                      `json:"row_count"`
	NumericStats     map[string]NumericStats     `json:"numeric_stats"`
	CategoricalStats map[string]CategoricalStats `json:"categorical_stats"`
	NullRatios       map[string]float64          `json:"null_ratios"`
	Completeness     map[string]Completeness     `json:"completeness"`
}

// Engine runs profiling queries against one tenant database.
type Engine struct {
	conn   driver.Conn
	logger zerolog.Logger
}

// NewEngine wraps an open tenant-database connection.
func NewEngine(conn driver.Conn, logger zerolog.Logger) *Engine {
	return &Engine{conn: conn, logger: logger.With().Str("component", "profiling").Logger()}
}

// Profile computes the profile for one loan type. dataType is "credit" or
// "payment".
func (e *Engine) Profile(ctx context.Context, loanType model.LoanType, dataType string) (*Profile, error) {
	table := "fact_credit"
	numericFields := numericFieldsCredit
	categoricalFields := append([]string{}, categoricalFieldsCreditCommon...)
	nullableFields := append([]string{}, nullableFieldsCreditCommon...)

	if dataType == "credit" {
		if loanType == model.LoanTypeRetail {
			categoricalFields = append(categoricalFields, retailOnlyFields...)
			nullableFields = append(nullableFields, retailOnlyFields...)
		} else {
			categoricalFields = append(categoricalFields, categoricalFieldsCreditCommercial...)
			nullableFields = append(nullableFields, commercialOnlyFields...)
		}
	} else {
		table = "fact_payment"
		numericFields = numericFieldsPayment
		categoricalFields = categoricalFieldsPayment
		nullableFields = nullableFieldsPayment
	}

	p := &Profile{
		LoanType:         loanType,
		DataType:         dataType,
		NumericStats:     make(map[string]NumericStats),
		CategoricalStats: make(map[string]CategoricalStats),
		NullRatios:       make(map[string]float64),
	}

	var err error
	if p.RowCount, err = e.rowCount(ctx, table, loanType); err != nil {
		return nil, err
	}
	if err := e.numericStats(ctx, p, table, loanType, numericFields); err != nil {
		return nil, err
	}
	if err := e.categoricalStats(ctx, p, table, loanType, categoricalFields); err != nil {
		return nil, err
	}
	if err := e.nullRatios(ctx, p, table, loanType, nullableFields); err != nil {
		return nil, err
	}
	if p.Completeness, err = e.completeness(ctx, table, loanType, dataType, numericFields); err != nil {
		return nil, err
	}
	return p, nil
}

func (e *Engine) rowCount(ctx context.Context, table string, loanType model.LoanType) (uint64, error) {
	var count uint64
	err := e.conn.QueryRow(ctx,
		fmt.Sprintf("SELECT count() FROM %s WHERE loan_type = ?", table),
		string(loanType)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("profile row count: %w", err)
	}
	return count, nil
}

func (e *Engine) numericStats(ctx context.Context, p *Profile, table string, loanType model.LoanType, fields []string) error {
	for _, field := range fields {
		query := fmt.Sprintf(
			"SELECT toFloat64(ifNull(min(%[1]s), 0)), toFloat64(ifNull(max(%[1]s), 0)), "+
				"toFloat64(ifNull(avg(%[1]s), 0)), toFloat64(ifNull(stddevPop(%[1]s), 0)), "+
				"count(), countIf(%[1]s = 0 OR isNull(%[1]s)) "+
				"FROM %[2]s WHERE loan_type = ?", field, table)

		var s NumericStats
		err := e.conn.QueryRow(ctx, query, string(loanType)).
			Scan(&s.Min, &s.Max, &s.Avg, &s.Stddev, &s.TotalCount, &s.ZeroOrNullCount)
		if err != nil {
			return fmt.Errorf("numeric stats %s: %w", field, err)
		}
		if s.TotalCount > 0 {
			s.ZeroOrNullRatio = float64(s.ZeroOrNullCount) / float64(s.TotalCount)
		}
		p.NumericStats[field] = s
	}
	return nil
}

func (e *Engine) categoricalStats(ctx context.Context, p *Profile, table string, loanType model.LoanType, fields []string) error {
	for _, field := range fields {
		query := fmt.Sprintf(
			"SELECT ifNull(toString(%[1]s), '') AS value, count() AS frequency "+
				"FROM %[2]s WHERE loan_type = ? "+
				"GROUP BY value ORDER BY frequency DESC", field, table)

		rows, err := e.conn.Query(ctx, query, string(loanType))
		if err != nil {
			return fmt.Errorf("categorical stats %s: %w", field, err)
		}

		var values []CategoricalValue
		nonNull := 0
		for rows.Next() {
			var value string
			var freq uint64
			if err := rows.Scan(&value, &freq); err != nil {
				rows.Close()
				return fmt.Errorf("scan categorical stats %s: %w", field, err)
			}
			cv := CategoricalValue{Frequency: freq}
			if value != "" {
				v := value
				cv.Value = &v
				nonNull++
			}
			values = append(values, cv)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("categorical stats %s: %w", field, err)
		}

		// Fields where every value is NULL carry no signal.
		if nonNull > 0 {
			p.CategoricalStats[field] = CategoricalStats{UniqueCount: nonNull, Values: values}
		}
	}
	return nil
}

func (e *Engine) nullRatios(ctx context.Context, p *Profile, table string, loanType model.LoanType, fields []string) error {
	for _, field := range fields {
		query := fmt.Sprintf(
			"SELECT if(count() = 0, 0., countIf(isNull(%[1]s)) / count()) "+
				"FROM %[2]s WHERE loan_type = ?", field, table)

		var ratio float64
		if err := e.conn.QueryRow(ctx, query, string(loanType)).Scan(&ratio); err != nil {
			return fmt.Errorf("null ratio %s: %w", field, err)
		}
		p.NullRatios[field] = ratio
	}
	return nil
}

// completeness inspects system.columns and measures missing values for the
// non-numeric columns relevant to the loan type.
func (e *Engine) completeness(ctx context.Context, table string, loanType model.LoanType, dataType string, numericFields []string) (map[string]Completeness, error) {
	rows, err := e.conn.Query(ctx,
		"SELECT name, type FROM system.columns "+
			"WHERE database = currentDatabase() AND table = ? ORDER BY position", table)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer rows.Close()

	exclude := make(map[string]struct{})
	for _, f := range metaFields {
		exclude[f] = struct{}{}
	}
	for _, f := range numericFields {
		exclude[f] = struct{}{}
	}
	if dataType == "credit" {
		variant := commercialOnlyFields
		if loanType != model.LoanTypeRetail {
			variant = retailOnlyFields
		}
		for _, f := range variant {
			exclude[f] = struct{}{}
		}
	}

	type column struct{ name, typ string }
	var columns []column
	for rows.Next() {
		var c column
		if err := rows.Scan(&c.name, &c.typ); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		if _, skip := exclude[c.name]; skip {
			continue
		}
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return map[string]Completeness{}, nil
	}

	selects := []string{"count()"}
	for _, c := range columns {
		switch {
		case strings.Contains(c.typ, "Nullable"):
			selects = append(selects, fmt.Sprintf("countIf(isNull(%s))", c.name))
		case strings.Contains(c.typ, "String"):
			selects = append(selects, fmt.Sprintf("countIf(%s = '')", c.name))
		default:
			// Non-nullable numeric columns are always filled.
			selects = append(selects, "toUInt64(0)")
		}
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE loan_type = ?",
		strings.Join(selects, ", "), table)

	counts := make([]uint64, len(columns)+1)
	dest := make([]any, len(counts))
	for i := range counts {
		dest[i] = &counts[i]
	}
	if err := e.conn.QueryRow(ctx, query, string(loanType)).Scan(dest...); err != nil {
		return nil, fmt.Errorf("completeness: %w", err)
	}

	total := counts[0]
	result := make(map[string]Completeness, len(columns))
	for i, c := range columns {
		missing := counts[i+1]
		comp := Completeness{MissingCount: missing, Total: total}
		if total > 0 {
			comp.MissingPct = float64(missing) / float64(total) * 100
			comp.FilledPct = float64(total-missing) / float64(total) * 100
		}
		result[c.name] = comp
	}
	return result, nil
}
