package gemini

import (
	"testing"
)

func FuzzParseReceiptResponse(f *testing.F) {
	f.Add(`{"total": "5.50", "merchant": "Coffee Shop", "date": "2024-01-15", "confidence": 0.95}`)
	f.Add(`{"total": "10", "merchant": "Shop"}`)
	f.Add("```json\n{\"total\": \"10\", \"merchant\": \"Shop\"}\n```")
	f.Add(`{"total": "abc"}`)
	f.Add(`{}`)
	f.Add(`not json`)
	f.Add(``)
	f.Add(`{"total": "-5.00"}`)
	f.Add(`{"total": "1,000,000.999", "merchant": "Big"}`)
	f.Add(`{"total": "5.50", "merchant": "Café ☕"}`)

	f.Fuzz(func(t *testing.T, input string) {
		result, err := parseReceiptResponse(input)
		if err != nil || result == nil {
			return
		}
		if result.Total.IsNegative() {
			t.Errorf("parseReceiptResponse(%q) returned negative total: %v", input, result.Total)
		}
		if !result.Total.Equal(result.Total.Round(2)) {
			t.Errorf("parseReceiptResponse(%q) returned total finer than cents: %v", input, result.Total)
		}
	})
}
