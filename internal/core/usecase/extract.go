package usecase

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/kirillkom/taxdoc-vault/internal/core/domain"
	"github.com/kirillkom/taxdoc-vault/internal/core/ports"
)

type ExtractFieldsUseCase struct {
	repo        ports.DocumentRepository
	extractions ports.ExtractionRepository
	storage     ports.BlobStorage
	recognizer  ports.TextRecognizer
	hints       ports.HintExtractor
	parser      ports.TaxFieldParser
	audit       ports.AuditSink
}

func NewExtractFieldsUseCase(
	repo ports.DocumentRepository,
	extractions ports.ExtractionRepository,
	storage ports.BlobStorage,
	recognizer ports.TextRecognizer,
	hints ports.HintExtractor,
	parser ports.TaxFieldParser,
	audit ports.AuditSink,
) *ExtractFieldsUseCase {
	return &ExtractFieldsUseCase{
		repo:        repo,
		extractions: extractions,
		storage:     storage,
		recognizer:  recognizer,
		hints:       hints,
		parser:      parser,
		audit:       audit,
	}
}

// ExtractByID parses the five return fields out of the vault artifact.
// Deterministic hints always override the generative result.
func (uc *ExtractFieldsUseCase) ExtractByID(ctx context.Context, documentID string) error {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}
	if doc.Status != domain.StatusApproved || doc.VaultLocation == "" {
		return domain.WrapError(domain.ErrInvalidTransition, "extract fields",
			fmt.Errorf("document %s is %s", doc.ID, doc.Status))
	}

	if err := uc.repo.UpdateExtractionStatus(ctx, doc.ID, domain.ExtractionRunning, ""); err != nil {
		return fmt.Errorf("set extraction=running: %w", err)
	}

	fields, err := uc.parse(ctx, doc)
	if err != nil {
		return uc.fail(ctx, doc, err)
	}

	rec := &domain.TaxExtraction{
		OwnerID:    doc.OwnerID,
		DocumentID: doc.ID,
		Fields:     fields,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	if err := uc.extractions.Upsert(ctx, rec); err != nil {
		return uc.fail(ctx, doc, fmt.Errorf("save extraction record: %w", err))
	}

	if err := uc.repo.UpdateExtractionStatus(ctx, doc.ID, domain.ExtractionCompleted, ""); err != nil {
		return fmt.Errorf("set extraction=completed: %w", err)
	}

	uc.audit.Emit(ctx, ports.AuditEvent{
		Action:     "document.fields_extracted",
		OwnerID:    doc.OwnerID,
		DocumentID: doc.ID,
	})
	return nil
}

func (uc *ExtractFieldsUseCase) parse(ctx context.Context, doc *domain.Document) (domain.TaxFields, error) {
	rc, err := uc.storage.Open(ctx, doc.VaultLocation)
	if err != nil {
		return domain.TaxFields{}, fmt.Errorf("read vault artifact: %w", err)
	}
	defer rc.Close()

	payload, err := io.ReadAll(rc)
	if err != nil {
		return domain.TaxFields{}, fmt.Errorf("read vault artifact: %w", err)
	}

	ocr, err := uc.recognizer.Extract(ctx, payload, "application/pdf")
	if err != nil {
		return domain.TaxFields{}, fmt.Errorf("recognize text: %w", err)
	}

	hints := uc.hints.ExtractHints(ocr.Text)

	fields, err := uc.parser.ParseTaxFields(ctx, ocr.Text, hints)
	if err != nil {
		return domain.TaxFields{}, fmt.Errorf("parse tax fields: %w", err)
	}

	hints.Apply(&fields)
	return fields, nil
}

func (uc *ExtractFieldsUseCase) fail(ctx context.Context, doc *domain.Document, cause error) error {
	if err := uc.repo.UpdateExtractionStatus(ctx, doc.ID, domain.ExtractionFailed, cause.Error()); err != nil {
		return fmt.Errorf("%w; mark failed extraction: %v", cause, err)
	}

	severity := "warning"
	if domain.IsKind(cause, domain.ErrRateLimited) {
		severity = "info"
	}
	uc.audit.Emit(ctx, ports.AuditEvent{
		Action:     "document.extraction_failed",
		OwnerID:    doc.OwnerID,
		DocumentID: doc.ID,
		Severity:   severity,
		Details:    map[string]any{"reason": cause.Error()},
	})
	return cause
}
