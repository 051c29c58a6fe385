// Package anthropic wraps the Anthropic SDK as an alternate structured
// extraction provider for PDF reports.
package anthropic

import (
	"context"
	"encoding/base64"
	"os"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-5-20250929"

const maxResponseTokens = 2048

const systemPrompt = `You are an expert financial data extraction tool. Analyze the attached
quarterly financial report PDF and extract figures from the Profit and Loss statement for the
most recent quarter only (never cumulative or prior-year comparative columns), preferring
Consolidated/Group figures. Respond with a single JSON object and nothing else, using exactly
these keys, with null for anything not found:

{
  "company_name": string|null,
  "period_end_date": "YYYY-MM-DD"|null,
  "currency": string|null,
  "unit": string|null ("Absolute" when unstated),
  "revenue": number|null,
  "cost_of_sales": number|null (positive),
  "gross_profit": number|null,
  "operating_expenses": number|null (distribution + administrative costs, positive),
  "profit_before_tax": number|null,
  "net_income_parent": number|null (profit attributable to parent equity holders)
}`

const taskPrompt = `Extract the required financial data from the attached quarterly report PDF.
Focus on the Group/Consolidated P&L for the latest quarter reported.`

// Client calls the extraction model for a single PDF and returns its raw
// JSON response text.
type Client interface {
	ExtractFinancials(ctx context.Context, pdfPath string) (string, error)
	Close() error
}

type sdkClient struct {
	client sdk.Client
	model  string
}

// NewClient creates an Anthropic-backed extraction client.
func NewClient(apiKey, model string) (Client, error) {
	if apiKey == "" {
		return nil, eris.New("anthropic: API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	return &sdkClient{
		client: sdk.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (c *sdkClient) ExtractFinancials(ctx context.Context, pdfPath string) (string, error) {
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return "", eris.Wrapf(err, "anthropic: read %s", pdfPath)
	}

	msg, err := c.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:       sdk.Model(c.model),
		MaxTokens:   maxResponseTokens,
		Temperature: sdk.Float(0),
		System: []sdk.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(
				sdk.NewDocumentBlock(sdk.Base64PDFSourceParam{
					Data: base64.StdEncoding.EncodeToString(data),
				}),
				sdk.NewTextBlock(taskPrompt),
			),
		},
	})
	if err != nil {
		return "", eris.Wrapf(err, "anthropic: create message for %s", pdfPath)
	}

	zap.L().Debug("anthropic extraction response",
		zap.String("file", pdfPath),
		zap.Int64("input_tokens", msg.Usage.InputTokens),
		zap.Int64("output_tokens", msg.Usage.OutputTokens),
	)

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	return cleanJSONBlock(b.String()), nil
}

// Close is a no-op; the SDK client holds no persistent resources.
func (c *sdkClient) Close() error {
	return nil
}

// cleanJSONBlock strips markdown code fences the model occasionally wraps
// around its JSON output.
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
