package match

import (
	"strings"

	"github.com/kirillkom/taxdoc-vault/internal/core/domain"
)

const (
	// Minimum length for a first-line partial match. Shorter fragments match
	// too many unrelated blocks.
	minPartialMatchLen = 6

	// Label fallback padding, as a fraction of the page.
	fallbackPadX = 0.012
	fallbackPadY = 0.008
)

var ssnLabelPhrases = []string{
	"social security number",
	"your social security number",
}

// Matcher maps PII findings to OCR block bounding boxes.
type Matcher struct{}

func New() *Matcher {
	return &Matcher{}
}

// Match produces the deduplicated region list for one pipeline run.
//
// Every finding that locates a block yields one region keyed by
// (page, box, category). Findings outside the national-id category that match
// nothing are dropped silently; national-id findings fall back to redacting
// any block that carries an SSN label phrase, padded outward.
func (m *Matcher) Match(ocr *domain.OCRResult, findings []domain.Finding) []domain.Region {
	var regions []domain.Region
	seen := make(map[domain.RegionKey]bool)

	emit := func(r domain.Region) bool {
		key := r.Key()
		if seen[key] {
			return false
		}
		seen[key] = true
		regions = append(regions, r)
		return true
	}

	for _, finding := range findings {
		variants := searchVariants(finding)

		matched := false
	pages:
		for _, page := range ocr.Pages {
			for _, block := range page.Blocks {
				if !blockContainsAny(block.Text, variants) {
					continue
				}
				matched = true
				added := emit(domain.Region{
					Page:      page.Number,
					Box:       block.Box,
					Category:  finding.Category,
					Quote:     finding.Quote,
					BlockText: block.Text,
				})
				if added {
					break pages
				}
				// A dedup skip means this block is already covered by an
				// earlier finding; keep scanning so the same PII printed in
				// another block (duplicate form copies) still gets a region.
			}
		}

		if !matched && finding.Category.IsNationalID() {
			m.fallbackByLabel(ocr, finding, emit)
		}
	}

	return regions
}

// searchVariants builds the candidate strings to look for in block text. OCR
// frequently splits identification numbers into widely spaced glyphs, so that
// category additionally gets the bare, single-spaced, and double-spaced digit
// renderings of its 9-digit run.
func searchVariants(finding domain.Finding) []string {
	variants := []string{finding.Quote}

	if finding.Category.IsNationalID() {
		digits := digitsOnly(finding.Quote)
		if len(digits) == 9 {
			glyphs := strings.Split(digits, "")
			variants = append(variants,
				digits,
				strings.Join(glyphs, " "),
				strings.Join(glyphs, "  "),
			)
		}
	}
	return variants
}

func blockContainsAny(blockText string, variants []string) bool {
	for _, v := range variants {
		if v == "" {
			continue
		}
		if strings.Contains(blockText, v) {
			return true
		}
		// Multi-line PII such as addresses wraps across blocks; the first
		// line alone is enough to place the finding.
		firstLine := strings.TrimSpace(strings.SplitN(v, "\n", 2)[0])
		if len(firstLine) >= minPartialMatchLen && strings.Contains(blockText, firstLine) {
			return true
		}
	}
	return false
}

// fallbackByLabel redacts the whole block holding an SSN label phrase. Tax
// forms print the label and the number inside one layout block, so covering
// the block covers the number even when its glyphs defeated substring search.
func (m *Matcher) fallbackByLabel(ocr *domain.OCRResult, finding domain.Finding, emit func(domain.Region) bool) {
	for _, page := range ocr.Pages {
		for _, block := range page.Blocks {
			if !containsLabelPhrase(block.Text) {
				continue
			}
			box := padBox(block.Box, fallbackPadX, fallbackPadY)
			if emit(domain.Region{
				Page:      page.Number,
				Box:       box,
				Category:  domain.CategorySSN,
				Quote:     finding.Quote,
				BlockText: "[spatial fallback: ssn label block]",
			}) {
				return
			}
		}
	}
}

func containsLabelPhrase(blockText string) bool {
	lower := strings.ToLower(blockText)
	for _, phrase := range ssnLabelPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func padBox(b domain.BoundingBox, padX, padY float64) domain.BoundingBox {
	return domain.BoundingBox{
		X:      max(0, b.X-padX),
		Y:      max(0, b.Y-padY),
		Width:  min(1.0, b.Width+2*padX),
		Height: min(1.0, b.Height+2*padY),
	}
}

func digitsOnly(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
