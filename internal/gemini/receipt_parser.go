package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"
)

// ParseReceiptTimeout is the timeout for Gemini API calls.
const ParseReceiptTimeout = 30 * time.Second

// ErrParseTimeout indicates the Gemini API call timed out.
var ErrParseTimeout = errors.New("receipt parsing timed out")

// ErrNoData indicates no total could be read from the receipt.
var ErrNoData = errors.New("no total found on receipt")

// ReceiptData is what the bot needs to turn a receipt into a shared expense.
type ReceiptData struct {
	Total      decimal.Decimal
	Merchant   string
	Currency   string
	Date       time.Time
	Confidence float64
}

// HasTotal reports whether a positive total was extracted.
func (r *ReceiptData) HasTotal() bool {
	return r.Total.IsPositive()
}

// Description returns a short expense description for the receipt.
func (r *ReceiptData) Description() string {
	if r.Merchant != "" {
		return r.Merchant
	}
	return "Receipt"
}

// receiptResponse is the JSON structure returned by Gemini.
type receiptResponse struct {
	Total      string  `json:"total"`
	Merchant   string  `json:"merchant"`
	Currency   string  `json:"currency"`
	Date       string  `json:"date"`
	Confidence float64 `json:"confidence"`
}

var receiptSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"total":      {Type: genai.TypeString, Description: "Grand total paid including tax and service charge, e.g. \"54.60\""},
		"merchant":   {Type: genai.TypeString, Description: "Merchant or store name"},
		"currency":   {Type: genai.TypeString, Description: "ISO 4217 currency code printed on the receipt, empty if unknown"},
		"date":       {Type: genai.TypeString, Description: "Purchase date as YYYY-MM-DD, empty if unknown"},
		"confidence": {Type: genai.TypeNumber, Description: "Confidence in the total from 0.0 to 1.0"},
	},
	Required: []string{"total", "merchant", "confidence"},
}

const receiptPrompt = `Read this receipt and return the grand total the customer paid.
The total is split between friends, so include tax, service charge and tips and exclude change given back.
Use "0" for total if no total is visible.`

// ParseReceipt extracts the total and merchant from a receipt image.
// It applies a 30-second timeout to the API call.
func (c *Client) ParseReceipt(ctx context.Context, imageBytes []byte, mimeType string) (*ReceiptData, error) {
	if len(imageBytes) == 0 {
		return nil, fmt.Errorf("image data is required")
	}

	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, ParseReceiptTimeout)
	defer cancel()

	resp, err := c.generator.GenerateContent(timeoutCtx, c.model, []*genai.Content{
		{
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: imageBytes}},
				{Text: receiptPrompt},
			},
		},
	}, &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
		ResponseSchema:   receiptSchema,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrParseTimeout
		}
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("no response from Gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	data, err := parseReceiptResponse(text.String())
	if err != nil {
		return nil, err
	}
	if !data.HasTotal() {
		return nil, ErrNoData
	}

	return data, nil
}

func parseReceiptResponse(response string) (*ReceiptData, error) {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	var rr receiptResponse
	if err := json.Unmarshal([]byte(response), &rr); err != nil {
		return nil, fmt.Errorf("failed to parse receipt response: %w", err)
	}

	data := &ReceiptData{
		Merchant:   strings.TrimSpace(rr.Merchant),
		Currency:   strings.ToUpper(strings.TrimSpace(rr.Currency)),
		Confidence: rr.Confidence,
	}

	total := strings.ReplaceAll(strings.TrimSpace(rr.Total), ",", "")
	if total != "" {
		amount, err := decimal.NewFromString(total)
		if err != nil {
			return nil, fmt.Errorf("failed to parse total %q: %w", rr.Total, err)
		}
		if amount.IsNegative() {
			return nil, fmt.Errorf("receipt total %q is negative", rr.Total)
		}
		data.Total = amount.Round(2)
	}

	if rr.Date != "" {
		if date, err := time.Parse("2006-01-02", rr.Date); err == nil {
			data.Date = date
		}
	}

	return data, nil
}
