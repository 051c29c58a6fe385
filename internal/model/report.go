// Package model defines the core types shared across the pipeline.
package model

// ReportItem is a single source document reference from the input manifest.
type ReportItem struct {
	Details     string `json:"details"`
	DownloadURL string `json:"download_url"`
}

// Manifest is the input manifest listing report PDFs to download.
type Manifest struct {
	Results []ReportItem `json:"results"`
}

// FinancialRecord is the schema extracted from one quarterly report.
// Every field is nullable; absence is a valid outcome, not an error.
type FinancialRecord struct {
	CompanyName       *string  `json:"company_name"`
	PeriodEndDate     *string  `json:"period_end_date"`
	Currency          *string  `json:"currency"`
	Unit              *string  `json:"unit"`
	Revenue           *float64 `json:"revenue"`
	CostOfSales       *float64 `json:"cost_of_sales"`
	GrossProfit       *float64 `json:"gross_profit"`
	OperatingExpenses *float64 `json:"operating_expenses"`
	ProfitBeforeTax   *float64 `json:"profit_before_tax"`
	NetIncomeParent   *float64 `json:"net_income_parent"`
}

// NumericFields lists the FinancialRecord fields holding monetary figures,
// in output column order.
var NumericFields = []string{
	"revenue",
	"cost_of_sales",
	"gross_profit",
	"operating_expenses",
	"profit_before_tax",
	"net_income_parent",
}

// FetchStatus is the terminal state of a single download.
type FetchStatus string

const (
	FetchWritten FetchStatus = "written"
	FetchSkipped FetchStatus = "skipped"
	FetchFailed  FetchStatus = "failed"
)

// FetchOutcome is the per-item result of a batch download. Exactly one of
// Path (written), Reason (skipped) or Error (failed) is populated.
type FetchOutcome struct {
	Item   ReportItem  `json:"item"`
	Status FetchStatus `json:"status"`
	Path   string      `json:"path,omitempty"`
	Reason string      `json:"reason,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// DownloadSummary aggregates a batch download.
type DownloadSummary struct {
	Total    int            `json:"total"`
	Written  int            `json:"written"`
	Skipped  int            `json:"skipped"`
	Failed   int            `json:"failed"`
	Outcomes []FetchOutcome `json:"outcomes"`
}

// ExtractionStatus is the terminal state of a single document extraction.
type ExtractionStatus string

const (
	ExtractionSuccess ExtractionStatus = "success"
	ExtractionError   ExtractionStatus = "error"
)

// ExtractionOutcome is the per-document result of an extraction batch.
// Record and ErrorFile are mutually exclusive.
type ExtractionOutcome struct {
	File       string           `json:"file"`
	Status     ExtractionStatus `json:"status"`
	OutputPath string           `json:"output_path,omitempty"`
	Record     *FinancialRecord `json:"record,omitempty"`
	Detail     string           `json:"detail,omitempty"`
	ErrorFile  string           `json:"error_file,omitempty"`
}

// ExtractionSummary aggregates an extraction batch.
type ExtractionSummary struct {
	TotalFiles int                 `json:"total_files"`
	Succeeded  int                 `json:"succeeded"`
	Failed     int                 `json:"failed"`
	Outcomes   []ExtractionOutcome `json:"outcomes"`
}

// MergeResult describes the consolidated table written by the merger.
type MergeResult struct {
	Rows        int               `json:"rows"`
	CSVPath     string            `json:"csv_path"`
	ParquetPath string            `json:"parquet_path"`
	XLSXPath    string            `json:"xlsx_path,omitempty"`
	Preview     []FinancialRecord `json:"preview"`
}

// RunResult is the combined outcome of a full pipeline run for one company.
type RunResult struct {
	Company  string             `json:"company"`
	Download *DownloadSummary   `json:"download,omitempty"`
	Extract  *ExtractionSummary `json:"extract,omitempty"`
	Merge    *MergeResult       `json:"merge,omitempty"`
}
