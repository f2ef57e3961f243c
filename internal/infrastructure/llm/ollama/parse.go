package ollama

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kirillkom/taxdoc-vault/internal/core/domain"
)

var knownFilingStatuses = map[string]string{
	"single":                      "single",
	"married_filing_jointly":      "married_filing_jointly",
	"married filing jointly":      "married_filing_jointly",
	"married_filing_separately":   "married_filing_separately",
	"married filing separately":   "married_filing_separately",
	"head_of_household":           "head_of_household",
	"head of household":           "head_of_household",
	"qualifying_surviving_spouse": "qualifying_surviving_spouse",
	"qualifying surviving spouse": "qualifying_surviving_spouse",
	"qualifying_widow_er":         "qualifying_surviving_spouse",
	"qualifying widow(er)":        "qualifying_surviving_spouse",
}

// parseTaxFieldJSON tolerates common model sloppiness: code fences around the
// object, prose before or after it, numbers rendered as "$97,000.00" strings.
func parseTaxFieldJSON(raw string) (domain.TaxFields, error) {
	cleaned := stripCodeFences(raw)
	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return domain.TaxFields{}, fmt.Errorf("no json object in model output")
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &payload); err != nil {
		return domain.TaxFields{}, fmt.Errorf("parse model output: %w", err)
	}

	fields := domain.TaxFields{
		FilingStatus:          parseFilingStatus(payload["filing_status"]),
		W2Wages:               parseAmount(payload["w2_wages"]),
		TotalDeductions:       parseAmount(payload["total_deductions"]),
		IRADistributionsTotal: parseAmount(payload["ira_distributions_total"]),
		CapitalGainOrLoss:     parseAmount(payload["capital_gain_or_loss"]),
	}
	return fields, nil
}

func stripCodeFences(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func parseFilingStatus(raw json.RawMessage) *string {
	if len(raw) == 0 {
		return nil
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil
	}
	canonical, ok := knownFilingStatuses[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return nil
	}
	return &canonical
}

func parseAmount(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}

	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return &number
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil
	}
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "$")
	text = strings.ReplaceAll(text, ",", "")
	if text == "" {
		return nil
	}
	// Accounting style negatives: (1,234.56)
	negative := false
	if strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")") {
		negative = true
		text = text[1 : len(text)-1]
	}
	parsed, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil
	}
	if negative {
		parsed = -parsed
	}
	return &parsed
}
