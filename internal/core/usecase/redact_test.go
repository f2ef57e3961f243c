package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/taxdoc-vault/internal/core/domain"
	"github.com/kirillkom/taxdoc-vault/internal/core/ports"
)

func uploadedDoc() *domain.Document {
	return &domain.Document{
		ID:               "doc-1",
		OwnerID:          "user-1",
		Filename:         "return.pdf",
		ContentType:      "application/pdf",
		OriginalLocation: "users/user-1/doc-1_original_return.pdf",
		Status:           domain.StatusUploaded,
		ExtractionStatus: domain.ExtractionNotStarted,
	}
}

func newRedactUseCase(repo *repoFake, storage *storageFake, recognizer ports.TextRecognizer, detector ports.PIIDetector, matcher *matcherFake, renderer *rendererFake, probe *probeFake, audit *auditFake) *RedactDocumentUseCase {
	validator := NewRedactionValidator(probe, recognizer, detector)
	return NewRedactDocumentUseCase(repo, storage, recognizer, detector, matcher, renderer, validator, audit)
}

func TestRedactByIDSuccess(t *testing.T) {
	doc := uploadedDoc()
	repo := newRepoFake(doc)
	storage := newStorageFake()
	storage.objects[doc.OriginalLocation] = []byte("%PDF-original")

	ssn := domain.Finding{Category: domain.CategorySSN, Quote: "123-45-6789"}
	recognizer := &recognizerFake{result: &domain.OCRResult{Text: "clean after redaction"}}
	detector := &detectorFake{}
	matcher := &matcherFake{regions: []domain.Region{{Page: 1, Category: domain.CategorySSN}}}
	renderer := &rendererFake{}
	audit := &auditFake{}

	// First detection pass returns the SSN; validation pass returns nothing.
	detectorCalls := 0
	detectorSeq := &sequencingDetector{
		first:  []domain.Finding{ssn},
		calls:  &detectorCalls,
		detect: detector,
	}

	uc := newRedactUseCase(repo, storage, recognizer, detectorSeq, matcher, renderer, &probeFake{}, audit)
	if err := uc.RedactByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("RedactByID() error = %v", err)
	}

	updated, _ := repo.GetByID(context.Background(), "doc-1")
	if updated.Status != domain.StatusRedacted {
		t.Fatalf("status = %s", updated.Status)
	}
	if updated.RedactedLocation != "users/user-1/doc-1_redacted.pdf" {
		t.Fatalf("redacted location = %s", updated.RedactedLocation)
	}
	if updated.PIICount != 1 {
		t.Fatalf("pii count = %d", updated.PIICount)
	}
	if updated.Validation == nil || !updated.Validation.IsClean {
		t.Fatalf("validation = %+v", updated.Validation)
	}
	if _, ok := storage.objects["users/user-1/doc-1_redacted.pdf"]; !ok {
		t.Fatalf("expected redacted artifact stored")
	}
}

type sequencingDetector struct {
	first  []domain.Finding
	calls  *int
	detect *detectorFake
}

func (s *sequencingDetector) Detect(ctx context.Context, text string) ([]domain.Finding, error) {
	*s.calls++
	if *s.calls == 1 {
		return s.first, nil
	}
	return s.detect.Detect(ctx, text)
}

func TestRedactByIDFailureDeletesBothArtifacts(t *testing.T) {
	doc := uploadedDoc()
	repo := newRepoFake(doc)
	storage := newStorageFake()
	storage.objects[doc.OriginalLocation] = []byte("%PDF-original")

	recognizer := &recognizerFake{err: errors.New("ocr backend down")}
	audit := &auditFake{}

	uc := newRedactUseCase(repo, storage, recognizer, &detectorFake{}, &matcherFake{}, &rendererFake{}, &probeFake{}, audit)
	if err := uc.RedactByID(context.Background(), "doc-1"); err == nil {
		t.Fatalf("expected error")
	}

	updated, _ := repo.GetByID(context.Background(), "doc-1")
	if updated.Status != domain.StatusRedactionFailed {
		t.Fatalf("status = %s", updated.Status)
	}
	if updated.FailureReason == "" {
		t.Fatalf("expected failure reason recorded")
	}
	if updated.OriginalLocation != "" || updated.RedactedLocation != "" {
		t.Fatalf("expected staging locators cleared, got %q / %q", updated.OriginalLocation, updated.RedactedLocation)
	}
	if _, ok := storage.objects[doc.OriginalLocation]; ok {
		t.Fatalf("expected original artifact removed on failure")
	}
}

func TestRedactByIDFailsWhenValidationFindsResidualPII(t *testing.T) {
	doc := uploadedDoc()
	repo := newRepoFake(doc)
	storage := newStorageFake()
	storage.objects[doc.OriginalLocation] = []byte("%PDF-original")

	ssn := domain.Finding{Category: domain.CategorySSN, Quote: "123-45-6789"}
	// Detector keeps returning the SSN, so the validation pass is dirty.
	detector := &detectorFake{findings: []domain.Finding{ssn}}
	recognizer := &recognizerFake{result: &domain.OCRResult{Text: "123-45-6789 still here"}}
	audit := &auditFake{}

	uc := newRedactUseCase(repo, storage, recognizer, detector, &matcherFake{}, &rendererFake{}, &probeFake{}, audit)
	if err := uc.RedactByID(context.Background(), "doc-1"); err == nil {
		t.Fatalf("expected error")
	}

	updated, _ := repo.GetByID(context.Background(), "doc-1")
	if updated.Status != domain.StatusRedactionFailed {
		t.Fatalf("status = %s", updated.Status)
	}
	if _, ok := storage.objects["users/user-1/doc-1_redacted.pdf"]; ok {
		t.Fatalf("expected redacted artifact removed on validation failure")
	}
}

func TestRedactByIDRejectsTerminalStates(t *testing.T) {
	doc := uploadedDoc()
	doc.Status = domain.StatusApproved
	repo := newRepoFake(doc)

	uc := newRedactUseCase(repo, newStorageFake(), &recognizerFake{}, &detectorFake{}, &matcherFake{}, &rendererFake{}, &probeFake{}, &auditFake{})
	err := uc.RedactByID(context.Background(), "doc-1")
	if !domain.IsKind(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestValidatorSkipsOnVerificationSizeLimit(t *testing.T) {
	recognizer := &recognizerFake{err: domain.WrapError(domain.ErrSizeExceeded, "ocr extract", errors.New("too large"))}
	validator := NewRedactionValidator(&probeFake{}, recognizer, &detectorFake{})

	report, err := validator.Validate(context.Background(), []byte("%PDF-big"), "application/pdf")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !report.IsClean || !report.Skipped {
		t.Fatalf("report = %+v", report)
	}
	if report.SkipReason == "" {
		t.Fatalf("expected skip reason")
	}
}

func TestValidatorFlagsResidualTextLayer(t *testing.T) {
	validator := NewRedactionValidator(&probeFake{hasText: true}, &recognizerFake{}, &detectorFake{})

	report, err := validator.Validate(context.Background(), []byte("%PDF-"), "application/pdf")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if report.IsClean {
		t.Fatalf("expected dirty report for residual text layer")
	}
}

func TestValidatorFlagsFindingsOfAnyCategory(t *testing.T) {
	detector := &detectorFake{findings: []domain.Finding{
		{Category: domain.CategoryPersonName, Quote: "Jane Doe"},
		{Category: domain.CategoryAddress, Quote: "12 Main St"},
	}}
	validator := NewRedactionValidator(&probeFake{}, &recognizerFake{}, detector)

	report, err := validator.Validate(context.Background(), []byte("%PDF-"), "application/pdf")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if report.IsClean {
		t.Fatalf("residual findings must fail validation: %+v", report)
	}
	if report.PIIFound != 2 || len(report.Findings) != 2 {
		t.Fatalf("expected both findings counted, got %+v", report)
	}
	for _, f := range report.Findings {
		if f.Quote != "" {
			t.Fatalf("report must not retain residual quotes: %+v", f)
		}
	}
}
