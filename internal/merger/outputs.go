package merger

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"

	"github.com/parquet-go/parquet-go"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/rpe-analytics/quarterlies-cli/internal/model"
	"github.com/rpe-analytics/quarterlies-cli/internal/store"
)

const (
	csvFilename     = "rpe_quarterlies.csv"
	parquetFilename = "rpe_quarterlies.parquet"
	xlsxFilename    = "rpe_quarterlies.xlsx"

	previewRows = 5
)

// tableRow is the persisted row shape shared by the CSV and parquet
// encodings. The date is serialized as YYYY-MM-DD text so the two outputs
// stay interchangeable.
type tableRow struct {
	CompanyName       *string  `parquet:"company_name,optional"`
	PeriodEndDate     *string  `parquet:"period_end_date,optional"`
	Currency          *string  `parquet:"currency,optional"`
	Unit              *string  `parquet:"unit,optional"`
	Revenue           *float64 `parquet:"revenue,optional"`
	CostOfSales       *float64 `parquet:"cost_of_sales,optional"`
	GrossProfit       *float64 `parquet:"gross_profit,optional"`
	OperatingExpenses *float64 `parquet:"operating_expenses,optional"`
	ProfitBeforeTax   *float64 `parquet:"profit_before_tax,optional"`
	NetIncomeParent   *float64 `parquet:"net_income_parent,optional"`
}

func toTableRow(r Row) tableRow {
	rec := r.Record()
	return tableRow{
		CompanyName:       rec.CompanyName,
		PeriodEndDate:     rec.PeriodEndDate,
		Currency:          rec.Currency,
		Unit:              rec.Unit,
		Revenue:           rec.Revenue,
		CostOfSales:       rec.CostOfSales,
		GrossProfit:       rec.GrossProfit,
		OperatingExpenses: rec.OperatingExpenses,
		ProfitBeforeTax:   rec.ProfitBeforeTax,
		NetIncomeParent:   rec.NetIncomeParent,
	}
}

// Save persists the merged table as CSV and parquet (plus XLSX when
// requested) inside outDir and returns the result summary with a preview of
// the first rows.
func Save(rows []Row, outDir string, includeXLSX bool) (*model.MergeResult, error) {
	table := make([]tableRow, len(rows))
	for i, r := range rows {
		table[i] = toTableRow(r)
	}

	csvPath := filepath.Join(outDir, csvFilename)
	if err := writeCSV(csvPath, table); err != nil {
		return nil, err
	}

	parquetPath := filepath.Join(outDir, parquetFilename)
	if err := writeParquet(parquetPath, table); err != nil {
		return nil, err
	}

	result := &model.MergeResult{
		Rows:        len(rows),
		CSVPath:     csvPath,
		ParquetPath: parquetPath,
	}

	if includeXLSX {
		xlsxPath := filepath.Join(outDir, xlsxFilename)
		if err := writeXLSX(xlsxPath, table); err != nil {
			return nil, err
		}
		result.XLSXPath = xlsxPath
	}

	for i := 0; i < len(rows) && i < previewRows; i++ {
		result.Preview = append(result.Preview, rows[i].Record())
	}

	zap.L().Info("merged table saved",
		zap.Int("rows", result.Rows),
		zap.String("csv", result.CSVPath),
		zap.String("parquet", result.ParquetPath),
	)

	return result, nil
}

// MergeAndSave merges every record in the store and persists the table in
// the same directory.
func MergeAndSave(ctx context.Context, rs store.RecordStore, includeXLSX bool) (*model.MergeResult, error) {
	rows, err := Merge(ctx, rs)
	if err != nil {
		return nil, err
	}
	return Save(rows, rs.Dir(), includeXLSX)
}

func writeCSV(path string, table []tableRow) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "merger: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		return eris.Wrap(err, "merger: write csv header")
	}

	for _, r := range table {
		row := []string{
			strOrEmpty(r.CompanyName),
			strOrEmpty(r.PeriodEndDate),
			strOrEmpty(r.Currency),
			strOrEmpty(r.Unit),
			numOrEmpty(r.Revenue),
			numOrEmpty(r.CostOfSales),
			numOrEmpty(r.GrossProfit),
			numOrEmpty(r.OperatingExpenses),
			numOrEmpty(r.ProfitBeforeTax),
			numOrEmpty(r.NetIncomeParent),
		}
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "merger: write csv row")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "merger: flush csv")
	}
	return eris.Wrapf(f.Close(), "merger: close %s", path)
}

func writeParquet(path string, table []tableRow) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "merger: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	w := parquet.NewGenericWriter[tableRow](f)
	if len(table) > 0 {
		if _, err := w.Write(table); err != nil {
			return eris.Wrap(err, "merger: write parquet rows")
		}
	}
	if err := w.Close(); err != nil {
		return eris.Wrap(err, "merger: close parquet writer")
	}
	return eris.Wrapf(f.Close(), "merger: close %s", path)
}

func writeXLSX(path string, table []tableRow) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("quarterlies")
	if err != nil {
		return eris.Wrap(err, "merger: add xlsx sheet")
	}

	header := sheet.AddRow()
	for _, col := range Columns {
		header.AddCell().SetString(col)
	}

	for _, r := range table {
		row := sheet.AddRow()
		setCellString(row, r.CompanyName)
		setCellString(row, r.PeriodEndDate)
		setCellString(row, r.Currency)
		setCellString(row, r.Unit)
		setCellNumber(row, r.Revenue)
		setCellNumber(row, r.CostOfSales)
		setCellNumber(row, r.GrossProfit)
		setCellNumber(row, r.OperatingExpenses)
		setCellNumber(row, r.ProfitBeforeTax)
		setCellNumber(row, r.NetIncomeParent)
	}

	return eris.Wrapf(file.Save(path), "merger: save %s", path)
}

func setCellString(row *xlsx.Row, v *string) {
	cell := row.AddCell()
	if v != nil {
		cell.SetString(*v)
	}
}

func setCellNumber(row *xlsx.Row, v *float64) {
	cell := row.AddCell()
	if v != nil {
		cell.SetFloat(*v)
	}
}

func strOrEmpty(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func numOrEmpty(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
