package ollama

import (
	"strings"

	"github.com/kirillkom/taxdoc-vault/internal/core/domain"
)

// maxDocumentSnippet bounds the prompt so very dense returns still fit the
// model's context window.
const maxDocumentSnippet = 24000

func buildTaxFieldPrompt(ocrText string, hints domain.FieldHints) string {
	snippet := ocrText
	if len(snippet) > maxDocumentSnippet {
		snippet = snippet[:maxDocumentSnippet]
	}

	var b strings.Builder
	b.WriteString(`You are extracting values from OCR text of a US Form 1040 individual income tax return.
Return a strict JSON object with exactly these keys:
  filing_status: one of "single", "married_filing_jointly", "married_filing_separately", "head_of_household", "qualifying_surviving_spouse", or null
  w2_wages: number or null (line 1a, total W-2 box 1 wages)
  total_deductions: number or null (line 12, standard deduction or itemized deductions)
  ira_distributions_total: number or null (line 4a, total IRA distributions)
  capital_gain_or_loss: number or null (line 7, capital gain or loss; may be negative)

Rules:
- Use null when a value is absent, illegible, or you are not certain.
- Numbers must be plain JSON numbers without currency symbols or thousands separators.
- filing_status must only be set when a checkbox for it is clearly marked.
- No markdown, no commentary, no extra keys.
`)

	if hints.FilingStatus != nil {
		b.WriteString("\nA separate deterministic pass already resolved filing_status; return null for it.\n")
	}
	if hints.W2Wages != nil {
		b.WriteString("\nA separate deterministic pass already resolved w2_wages; return null for it.\n")
	}

	b.WriteString("\nDocument text:\n")
	b.WriteString(snippet)
	return b.String()
}
