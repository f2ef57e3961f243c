// Package hints derives a subset of 1040 fields with deterministic pattern
// rules. Hinted values always override whatever the generative parser
// returns, so each rule only fires on unambiguous evidence.
package hints

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kirillkom/taxdoc-vault/internal/core/domain"
)

// Wage amounts outside this band are treated as OCR noise rather than a
// plausible line 1a value.
const (
	minPlausibleWage = 100.0
	maxPlausibleWage = 10_000_000.0
)

// Matches the line 1a layout as OCR tends to render it: the line label, a run
// of dot leaders or whitespace, then the amount.
var wageLinePattern = regexp.MustCompile(`(?mi)^\s*1a\b[^0-9\n]*?([0-9][0-9,]*(?:\.[0-9]{1,2})?)\s*$`)

var filingStatusOptions = []struct {
	canonical string
	label     string
}{
	{"married_filing_jointly", "married filing jointly"},
	{"married_filing_separately", "married filing separately"},
	{"head_of_household", "head of household"},
	{"qualifying_surviving_spouse", "qualifying surviving spouse"},
	{"single", "single"},
}

// checkboxMarks are glyphs OCR produces for a ticked box. A bare option label
// with no mark is the blank form, not a selection.
var checkboxMarks = []string{"☑", "☒", "✔", "✓", "[x]", "[X]", "(x)", "(X)"}

const markProximity = 24

type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) ExtractHints(ocrText string) domain.FieldHints {
	return domain.FieldHints{
		FilingStatus: detectFilingStatus(ocrText),
		W2Wages:      detectWages(ocrText),
	}
}

func detectWages(text string) *float64 {
	match := wageLinePattern.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	cleaned := strings.ReplaceAll(match[1], ",", "")
	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	if amount < minPlausibleWage || amount > maxPlausibleWage {
		return nil
	}
	return &amount
}

func detectFilingStatus(text string) *string {
	lower := strings.ToLower(text)
	for _, option := range filingStatusOptions {
		idx := strings.Index(lower, option.label)
		if idx < 0 {
			continue
		}
		if hasMarkNear(text, idx, len(option.label)) {
			status := option.canonical
			return &status
		}
	}
	return nil
}

// hasMarkNear looks for a checkbox glyph within a short window on either side
// of the option label. A standalone X token also counts; an X inside a longer
// word does not.
func hasMarkNear(original string, labelStart, labelLen int) bool {
	start := labelStart - markProximity
	if start < 0 {
		start = 0
	}
	end := labelStart + labelLen + markProximity
	if end > len(original) {
		end = len(original)
	}
	window := original[start:end]

	for _, mark := range checkboxMarks {
		if strings.Contains(window, mark) {
			return true
		}
	}
	for _, token := range strings.Fields(window) {
		if token == "X" || token == "x" {
			return true
		}
	}
	return false
}
