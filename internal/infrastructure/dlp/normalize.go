package dlp

import (
	"regexp"
	"strings"
)

// spacedDigits matches any run of nine digits with optional spacing between
// glyphs, the way OCR renders SSN field boxes.
var spacedDigits = regexp.MustCompile(`(\d)\s*(\d)\s*(\d)\s*(\d)\s*(\d)\s*(\d)\s*(\d)\s*(\d)\s*(\d)`)

const ssnContextWindow = 100

// normalizeSpacedSSNs rewrites spaced-out nine-digit runs as XXX-XX-XXXX so
// the detection engine recognizes them. Only runs that sit near SSN-specific
// label phrases are rewritten: nine digits alone also match phone numbers,
// EINs, or ZIP+year sequences.
func normalizeSpacedSSNs(text string) string {
	matches := spacedDigits.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	out := text
	// Rewrite from the end so earlier offsets stay valid.
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		start, end := m[0], m[1]
		if !looksLikeSSN(text, start, end) {
			continue
		}

		var digits []string
		for g := 1; g <= 9; g++ {
			digits = append(digits, text[m[2*g]:m[2*g+1]])
		}
		formatted := strings.Join(digits[0:3], "") + "-" + strings.Join(digits[3:5], "") + "-" + strings.Join(digits[5:9], "")
		out = out[:start] + formatted + out[end:]
	}
	return out
}

func looksLikeSSN(text string, start, end int) bool {
	ctxStart := start - ssnContextWindow
	if ctxStart < 0 {
		ctxStart = 0
	}
	ctxEnd := end + ssnContextWindow
	if ctxEnd > len(text) {
		ctxEnd = len(text)
	}
	context := strings.ToLower(text[ctxStart:ctxEnd])

	nearLabel := (strings.Contains(context, "social security") && strings.Contains(context, "number")) ||
		strings.Contains(context, "ssn") ||
		(strings.Contains(context, "spouse") && strings.Contains(context, "social"))
	if !nearLabel {
		return false
	}

	digits := digitsOnly(text[start:end])
	if len(digits) != 9 {
		return false
	}
	// Area numbers 000, 666 and 900-999 are never issued.
	area := digits[:3]
	if area == "000" || area == "666" || area[0] == '9' {
		return false
	}
	return true
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
