package usecase

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/kirillkom/taxdoc-vault/internal/core/domain"
	"github.com/kirillkom/taxdoc-vault/internal/core/ports"
)

type RedactDocumentUseCase struct {
	repo       ports.DocumentRepository
	storage    ports.BlobStorage
	recognizer ports.TextRecognizer
	detector   ports.PIIDetector
	matcher    ports.RegionMatcher
	renderer   ports.RedactionRenderer
	validator  *RedactionValidator
	audit      ports.AuditSink
}

func NewRedactDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.BlobStorage,
	recognizer ports.TextRecognizer,
	detector ports.PIIDetector,
	matcher ports.RegionMatcher,
	renderer ports.RedactionRenderer,
	validator *RedactionValidator,
	audit ports.AuditSink,
) *RedactDocumentUseCase {
	return &RedactDocumentUseCase{
		repo:       repo,
		storage:    storage,
		recognizer: recognizer,
		detector:   detector,
		matcher:    matcher,
		renderer:   renderer,
		validator:  validator,
		audit:      audit,
	}
}

// RedactByID runs the full pipeline for one document. Every failure path ends
// in redaction_failed with both staging artifacts removed; a document never
// sits in a state where an unredacted original is reachable but forgotten.
func (uc *RedactDocumentUseCase) RedactByID(ctx context.Context, documentID string) error {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}
	switch doc.Status {
	case domain.StatusUploaded, domain.StatusRedacting:
		// Redelivery of an in-flight task restarts the pipeline.
	default:
		return domain.WrapError(domain.ErrInvalidTransition, "redact document",
			fmt.Errorf("document %s is %s", doc.ID, doc.Status))
	}

	if err := uc.repo.UpdateStatus(ctx, doc.ID, domain.StatusRedacting, ""); err != nil {
		return fmt.Errorf("set status=redacting: %w", err)
	}

	redactedKey, piiCount, report, err := uc.pipeline(ctx, doc)
	if err != nil {
		return uc.fail(ctx, doc, redactedKey, err)
	}

	if err := uc.repo.SaveRedactionOutcome(ctx, doc.ID, domain.StatusRedacted, redactedKey, piiCount, report, ""); err != nil {
		return uc.fail(ctx, doc, redactedKey, fmt.Errorf("save redaction outcome: %w", err))
	}

	uc.audit.Emit(ctx, ports.AuditEvent{
		Action:     "document.redacted",
		OwnerID:    doc.OwnerID,
		DocumentID: doc.ID,
		Details:    map[string]any{"pii_count": piiCount, "validation_skipped": report.Skipped},
	})
	return nil
}

func (uc *RedactDocumentUseCase) pipeline(ctx context.Context, doc *domain.Document) (string, int, *domain.ValidationReport, error) {
	payload, err := uc.readArtifact(ctx, doc.OriginalLocation)
	if err != nil {
		return "", 0, nil, fmt.Errorf("read original artifact: %w", err)
	}

	ocr, err := uc.recognizer.Extract(ctx, payload, doc.ContentType)
	if err != nil {
		return "", 0, nil, fmt.Errorf("recognize text: %w", err)
	}

	findings, err := uc.detector.Detect(ctx, ocr.Text)
	if err != nil {
		return "", 0, nil, fmt.Errorf("detect pii: %w", err)
	}

	regions := uc.matcher.Match(ocr, findings)

	redacted, err := uc.renderer.Render(ctx, payload, doc.ContentType, regions)
	if err != nil {
		return "", 0, nil, fmt.Errorf("render redacted artifact: %w", err)
	}

	redactedKey := fmt.Sprintf("users/%s/%s_redacted.pdf", doc.OwnerID, doc.ID)
	if err := uc.storage.Put(ctx, redactedKey, "application/pdf", bytes.NewReader(redacted)); err != nil {
		return "", 0, nil, fmt.Errorf("save redacted artifact: %w", err)
	}

	report, err := uc.validator.Validate(ctx, redacted, "application/pdf")
	if err != nil {
		return redactedKey, 0, nil, fmt.Errorf("validate redacted artifact: %w", err)
	}
	if !report.IsClean {
		return redactedKey, 0, nil, domain.WrapError(domain.ErrPipelineStage, "validate redacted artifact",
			fmt.Errorf("residual pii detected: %d findings", report.PIIFound))
	}

	return redactedKey, len(findings), report, nil
}

// fail tears down both artifacts before recording the failure. Artifact
// deletion is best effort; the status row is the source of truth.
func (uc *RedactDocumentUseCase) fail(ctx context.Context, doc *domain.Document, redactedKey string, cause error) error {
	if doc.OriginalLocation != "" {
		_ = uc.storage.Delete(ctx, doc.OriginalLocation)
	}
	if redactedKey != "" {
		_ = uc.storage.Delete(ctx, redactedKey)
	}

	if err := uc.repo.SaveRedactionOutcome(ctx, doc.ID, domain.StatusRedactionFailed, "", 0, nil, cause.Error()); err != nil {
		return fmt.Errorf("%w; mark failed status: %v", cause, err)
	}

	uc.audit.Emit(ctx, ports.AuditEvent{
		Action:     "document.redaction_failed",
		OwnerID:    doc.OwnerID,
		DocumentID: doc.ID,
		Severity:   "warning",
		Details:    map[string]any{"reason": cause.Error()},
	})
	return cause
}

func (uc *RedactDocumentUseCase) readArtifact(ctx context.Context, key string) ([]byte, error) {
	rc, err := uc.storage.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
