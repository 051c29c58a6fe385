// Package gemini wraps the Google Generative AI SDK for structured financial
// data extraction from PDF reports.
package gemini

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

const systemInstruction = `You are an expert financial data extraction tool.
Analyze the provided quarterly financial report PDF and extract key figures from the
Profit and Loss statement (Statement of Profit or Loss).

Instructions:
1. Prioritize the Consolidated/Group statement figures if available; otherwise use Company figures.
2. Use only the column for the most recent quarter presented (e.g. "3 months ended [Date]").
   Never use cumulative or prior-year comparative columns.
3. period_end_date must be the end date of that quarter in YYYY-MM-DD format.
4. cost_of_sales and operating_expenses are reported as positive numbers even when
   presented in parentheses; profit/loss figures keep their sign.
5. operating_expenses is the sum of distribution and administrative costs, or a single
   "Operating Expenses" line item; null if neither is present.
6. net_income_parent is the profit for the period attributable to equity holders of the
   parent, falling back to the total profit for the period.
7. unit defaults to "Absolute" when the report does not state one.
8. Return null for any metric not found. Respond with the JSON object only.`

const taskPrompt = `Extract the required financial data from the attached quarterly report PDF
according to the schema. Focus on the Group/Consolidated P&L for the latest quarter reported.`

// Client calls the extraction model for a single PDF and returns its raw
// JSON response text.
type Client interface {
	ExtractFinancials(ctx context.Context, pdfPath string) (string, error)
	Close() error
}

type genaiClient struct {
	client *genai.Client
	model  string
}

// NewClient creates a Gemini-backed extraction client.
func NewClient(ctx context.Context, apiKey, model string) (Client, error) {
	if apiKey == "" {
		return nil, eris.New("gemini: API key is required")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}

	return &genaiClient{client: client, model: model}, nil
}

// recordSchema constrains the response to the ten-field financial record.
func recordSchema() *genai.Schema {
	num := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeNumber, Description: desc, Nullable: true}
	}
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc, Nullable: true}
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"company_name":       str("Name of the company publishing the report. Null if not found."),
			"period_end_date":    str("End date of the latest quarter reported (YYYY-MM-DD). Null if not found."),
			"currency":           str("Currency used in the report (e.g. 'LKR', 'Rs.'). Null if not found."),
			"unit":               str("Unit of the figures (e.g. \"'000\", 'Millions', 'Absolute')."),
			"revenue":            num("Turnover/Revenue for the latest quarter. Null if not found."),
			"cost_of_sales":      num("Cost of sales for the latest quarter, as a positive number. Null if not found."),
			"gross_profit":       num("Gross profit for the latest quarter. Null if not found."),
			"operating_expenses": num("Distribution plus administrative costs, or total operating expenses, as a positive number. Null if not found."),
			"profit_before_tax":  num("Profit/(loss) before tax for the latest quarter. Null if not found."),
			"net_income_parent":  num("Profit/(loss) attributable to parent equity holders, or the period total. Null if not found."),
		},
		Required: []string{
			"company_name", "period_end_date", "currency", "unit",
			"revenue", "cost_of_sales", "gross_profit",
			"operating_expenses", "profit_before_tax", "net_income_parent",
		},
	}
}

func (c *genaiClient) ExtractFinancials(ctx context.Context, pdfPath string) (string, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return "", eris.Wrapf(err, "gemini: open %s", pdfPath)
	}
	defer f.Close() //nolint:errcheck

	uploaded, err := c.client.UploadFile(ctx, "", f, &genai.UploadFileOptions{
		DisplayName: filepath.Base(pdfPath),
		MIMEType:    "application/pdf",
	})
	if err != nil {
		return "", eris.Wrapf(err, "gemini: upload %s", pdfPath)
	}
	zap.L().Debug("uploaded report to gemini",
		zap.String("file", pdfPath),
		zap.String("uri", uploaded.URI),
	)

	gm := c.client.GenerativeModel(c.model)
	gm.SetTemperature(0)
	gm.ResponseMIMEType = "application/json"
	gm.ResponseSchema = recordSchema()
	gm.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemInstruction)},
	}

	resp, err := gm.GenerateContent(ctx,
		genai.FileData{URI: uploaded.URI, MIMEType: uploaded.MIMEType},
		genai.Text(taskPrompt),
	)
	if err != nil {
		return "", eris.Wrapf(err, "gemini: generate content for %s", pdfPath)
	}

	return responseText(resp)
}

func (c *genaiClient) Close() error {
	return c.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", eris.New("gemini: no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", eris.New("gemini: no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", eris.New("gemini: no text parts in response")
	}

	return strings.TrimSpace(strings.Join(parts, "")), nil
}
