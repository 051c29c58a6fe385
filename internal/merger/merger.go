// Package merger consolidates per-document financial records into one
// sorted, typed table.
package merger

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rpe-analytics/quarterlies-cli/internal/model"
	"github.com/rpe-analytics/quarterlies-cli/internal/store"
)

// Row is one merged table row. Numeric fields are coerced to
// number-or-null; the date is coerced to a real date or null.
type Row struct {
	CompanyName       *string
	PeriodEndDate     *time.Time
	Currency          *string
	Unit              *string
	Revenue           *float64
	CostOfSales       *float64
	GrossProfit       *float64
	OperatingExpenses *float64
	ProfitBeforeTax   *float64
	NetIncomeParent   *float64

	// source is the record filename, used as the sort tie-break.
	source string
}

// Columns is the canonical output column order.
var Columns = []string{
	"company_name",
	"period_end_date",
	"currency",
	"unit",
	"revenue",
	"cost_of_sales",
	"gross_profit",
	"operating_expenses",
	"profit_before_tax",
	"net_income_parent",
}

// Merge reads every record in the store and produces the sorted table.
// Rows are ordered ascending by period end date; rows without a parsable
// date sort last, and equal dates are ordered by record filename.
func Merge(ctx context.Context, rs store.RecordStore) ([]Row, error) {
	names, err := rs.List(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "merger: list records")
	}

	rows := make([]Row, 0, len(names))
	for _, name := range names {
		data, err := rs.Read(ctx, name)
		if err != nil {
			return nil, eris.Wrapf(err, "merger: read %s", name)
		}

		row, err := parseRow(name, data)
		if err != nil {
			// Tolerate a corrupt record file rather than losing the batch.
			zap.L().Warn("skipping unparsable record",
				zap.String("record", name),
				zap.Error(err),
			)
			continue
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		di, dj := rows[i].PeriodEndDate, rows[j].PeriodEndDate
		switch {
		case di == nil && dj == nil:
			return rows[i].source < rows[j].source
		case di == nil:
			return false
		case dj == nil:
			return true
		case di.Equal(*dj):
			return rows[i].source < rows[j].source
		default:
			return di.Before(*dj)
		}
	})

	return rows, nil
}

// parseRow decodes one record leniently: each field is coerced
// independently, so a bad value nulls that field without invalidating the
// row or its neighbors.
func parseRow(name string, data []byte) (Row, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return Row{}, eris.Wrap(err, "decode record")
	}

	dateStr := coerceString(fields["period_end_date"])
	if dateStr == nil {
		inferred := inferDateFromStem(strings.TrimSuffix(name, ".json"))
		dateStr = &inferred
	}

	return Row{
		CompanyName:       coerceString(fields["company_name"]),
		PeriodEndDate:     coerceDate(*dateStr),
		Currency:          coerceString(fields["currency"]),
		Unit:              coerceString(fields["unit"]),
		Revenue:           coerceNumber(fields["revenue"]),
		CostOfSales:       coerceNumber(fields["cost_of_sales"]),
		GrossProfit:       coerceNumber(fields["gross_profit"]),
		OperatingExpenses: coerceNumber(fields["operating_expenses"]),
		ProfitBeforeTax:   coerceNumber(fields["profit_before_tax"]),
		NetIncomeParent:   coerceNumber(fields["net_income_parent"]),
		source:            name,
	}, nil
}

// inferDateFromStem reassembles a DD_MM_YYYY-style stem as YYYY-MM-DD. A
// stem that does not match the three-part pattern is returned literally and
// will fail date coercion downstream (becoming a null date, not an error).
func inferDateFromStem(stem string) string {
	parts := strings.Split(stem, "_")
	if len(parts) != 3 {
		return stem
	}
	return parts[2] + "-" + parts[1] + "-" + parts[0]
}

func coerceDate(s string) *time.Time {
	d, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &d
}

func coerceString(v any) *string {
	switch s := v.(type) {
	case string:
		if s == "" {
			return nil
		}
		return &s
	case json.Number:
		str := s.String()
		return &str
	default:
		return nil
	}
}

// coerceNumber converts a JSON value to float64-or-null. Numeric strings
// parse; anything else (including garbage strings) becomes null.
func coerceNumber(v any) *float64 {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return nil
		}
		return &f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		return &f
	case float64:
		return &n
	default:
		return nil
	}
}

// Record converts a row back to the wire-level FinancialRecord shape, with
// the date formatted as YYYY-MM-DD.
func (r Row) Record() model.FinancialRecord {
	var date *string
	if r.PeriodEndDate != nil {
		s := r.PeriodEndDate.Format("2006-01-02")
		date = &s
	}
	return model.FinancialRecord{
		CompanyName:       r.CompanyName,
		PeriodEndDate:     date,
		Currency:          r.Currency,
		Unit:              r.Unit,
		Revenue:           r.Revenue,
		CostOfSales:       r.CostOfSales,
		GrossProfit:       r.GrossProfit,
		OperatingExpenses: r.OperatingExpenses,
		ProfitBeforeTax:   r.ProfitBeforeTax,
		NetIncomeParent:   r.NetIncomeParent,
	}
}
