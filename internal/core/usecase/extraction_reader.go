package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/taxdoc-vault/internal/core/domain"
	"github.com/kirillkom/taxdoc-vault/internal/core/ports"
)

// ExtractionReaderUseCase exposes persisted extraction results, ownership
// checked through the document record.
type ExtractionReaderUseCase struct {
	repo        ports.DocumentRepository
	extractions ports.ExtractionRepository
	audit       ports.AuditSink
}

func NewExtractionReaderUseCase(
	repo ports.DocumentRepository,
	extractions ports.ExtractionRepository,
	audit ports.AuditSink,
) *ExtractionReaderUseCase {
	return &ExtractionReaderUseCase{
		repo:        repo,
		extractions: extractions,
		audit:       audit,
	}
}

func (uc *ExtractionReaderUseCase) GetByDocument(ctx context.Context, ownerID, documentID string) (*domain.TaxExtraction, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	if !doc.OwnedBy(ownerID) {
		uc.audit.Emit(ctx, ports.AuditEvent{
			Action:     "document.access_denied",
			OwnerID:    ownerID,
			DocumentID: documentID,
			Severity:   "security",
		})
		return nil, domain.WrapError(domain.ErrOwnershipMismatch, "access extraction",
			fmt.Errorf("document %s", documentID))
	}

	rec, err := uc.extractions.GetByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch extraction record: %w", err)
	}
	return rec, nil
}
