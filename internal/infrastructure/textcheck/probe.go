// Package textcheck inspects redacted artifacts for residual structure. A
// correctly rebuilt artifact is raster-only; any extractable text layer means
// source content survived the rewrite.
package textcheck

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

type Probe struct{}

func New() *Probe {
	return &Probe{}
}

// HasTextLayer reports whether a PDF payload carries any extractable text.
// Non-PDF payloads never carry a text layer.
func (p *Probe) HasTextLayer(payload []byte, contentType string) (has bool, err error) {
	if contentType != "application/pdf" {
		return false, nil
	}

	// The reader panics on some malformed cross-reference tables instead of
	// returning an error. Content the reader cannot parse has no usable text
	// layer.
	defer func() {
		if r := recover(); r != nil {
			has, err = false, nil
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return false, fmt.Errorf("open pdf for text probe: %w", err)
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		// Malformed or font-less content streams fail extraction; that is
		// exactly the absence of a usable text layer.
		return false, nil
	}

	var buf strings.Builder
	if _, err := io.Copy(&buf, textReader); err != nil {
		return false, nil
	}
	return strings.TrimSpace(buf.String()) != "", nil
}
