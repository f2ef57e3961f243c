package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/taxdoc-vault/internal/core/domain"
	"github.com/kirillkom/taxdoc-vault/internal/core/ports"
)

type DocumentLifecycleUseCase struct {
	repo        ports.DocumentRepository
	extractions ports.ExtractionRepository
	storage     ports.BlobStorage
	queue       ports.TaskQueue
	audit       ports.AuditSink
}

func NewDocumentLifecycleUseCase(
	repo ports.DocumentRepository,
	extractions ports.ExtractionRepository,
	storage ports.BlobStorage,
	queue ports.TaskQueue,
	audit ports.AuditSink,
) *DocumentLifecycleUseCase {
	return &DocumentLifecycleUseCase{
		repo:        repo,
		extractions: extractions,
		storage:     storage,
		queue:       queue,
		audit:       audit,
	}
}

func (uc *DocumentLifecycleUseCase) Get(ctx context.Context, ownerID, documentID string) (*domain.Document, error) {
	return uc.loadOwned(ctx, ownerID, documentID)
}

func (uc *DocumentLifecycleUseCase) List(ctx context.Context, ownerID string) ([]domain.Document, error) {
	docs, err := uc.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Approve moves the redacted artifact into the vault and destroys the staging
// copies. Cleanup trouble is reported as warnings, never as failure: once the
// vault copy exists the approval holds.
func (uc *DocumentLifecycleUseCase) Approve(ctx context.Context, ownerID, documentID string) (*domain.Document, []string, error) {
	doc, err := uc.loadOwned(ctx, ownerID, documentID)
	if err != nil {
		return nil, nil, err
	}
	if !doc.CanApprove() {
		return nil, nil, domain.WrapError(domain.ErrInvalidTransition, "approve document",
			fmt.Errorf("document %s is %s", doc.ID, doc.Status))
	}

	vaultKey := fmt.Sprintf("vault/%s/%s.pdf", doc.OwnerID, doc.ID)
	if err := uc.storage.Copy(ctx, doc.RedactedLocation, vaultKey); err != nil {
		return nil, nil, fmt.Errorf("copy artifact to vault: %w", err)
	}

	var warnings []string
	if err := uc.storage.Delete(ctx, doc.RedactedLocation); err != nil {
		warnings = append(warnings, fmt.Sprintf("delete staging artifact: %v", err))
	}
	if doc.OriginalLocation != "" {
		if err := uc.storage.Delete(ctx, doc.OriginalLocation); err != nil {
			warnings = append(warnings, fmt.Sprintf("delete original artifact: %v", err))
		}
	}

	if err := uc.repo.SaveApproval(ctx, doc.ID, vaultKey); err != nil {
		return nil, warnings, fmt.Errorf("save approval: %w", err)
	}
	doc.Status = domain.StatusApproved
	doc.VaultLocation = vaultKey
	doc.OriginalLocation = ""
	doc.RedactedLocation = ""

	if err := uc.repo.UpdateExtractionStatus(ctx, doc.ID, domain.ExtractionRunning, ""); err != nil {
		warnings = append(warnings, fmt.Sprintf("mark extraction running: %v", err))
	} else {
		doc.ExtractionStatus = domain.ExtractionRunning
	}
	if err := uc.queue.PublishExtractionRequested(ctx, doc.ID); err != nil {
		warnings = append(warnings, fmt.Sprintf("schedule extraction: %v", err))
		if statusErr := uc.repo.UpdateExtractionStatus(ctx, doc.ID, domain.ExtractionFailed, "scheduling failed"); statusErr == nil {
			doc.ExtractionStatus = domain.ExtractionFailed
		}
	}

	uc.audit.Emit(ctx, ports.AuditEvent{
		Action:     "document.approved",
		OwnerID:    ownerID,
		DocumentID: doc.ID,
		Details:    map[string]any{"warnings": len(warnings)},
	})
	return doc, warnings, nil
}

// Reject destroys whatever artifacts exist. The document always lands in
// rejected; artifact cleanup trouble is surfaced as warnings.
func (uc *DocumentLifecycleUseCase) Reject(ctx context.Context, ownerID, documentID string) (*domain.Document, []string, error) {
	doc, err := uc.loadOwned(ctx, ownerID, documentID)
	if err != nil {
		return nil, nil, err
	}
	if !doc.CanReject() {
		return nil, nil, domain.WrapError(domain.ErrInvalidTransition, "reject document",
			fmt.Errorf("document %s is %s", doc.ID, doc.Status))
	}

	warnings := uc.deleteArtifacts(ctx, doc.OriginalLocation, doc.RedactedLocation)

	if err := uc.repo.UpdateStatus(ctx, doc.ID, domain.StatusRejected, ""); err != nil {
		return nil, warnings, fmt.Errorf("set status=rejected: %w", err)
	}
	doc.Status = domain.StatusRejected

	uc.audit.Emit(ctx, ports.AuditEvent{
		Action:     "document.rejected",
		OwnerID:    ownerID,
		DocumentID: doc.ID,
		Details:    map[string]any{"warnings": len(warnings)},
	})
	return doc, warnings, nil
}

// Delete removes the record, the extraction record, and every artifact the
// document still references.
func (uc *DocumentLifecycleUseCase) Delete(ctx context.Context, ownerID, documentID string) ([]string, error) {
	doc, err := uc.loadOwned(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}

	warnings := uc.deleteArtifacts(ctx, doc.OriginalLocation, doc.RedactedLocation, doc.VaultLocation)
	if err := uc.extractions.DeleteByDocument(ctx, doc.ID); err != nil {
		warnings = append(warnings, fmt.Sprintf("delete extraction record: %v", err))
	}

	if err := uc.repo.Delete(ctx, doc.ID); err != nil {
		return warnings, fmt.Errorf("delete document record: %w", err)
	}

	uc.audit.Emit(ctx, ports.AuditEvent{
		Action:     "document.deleted",
		OwnerID:    ownerID,
		DocumentID: doc.ID,
		Details:    map[string]any{"warnings": len(warnings)},
	})
	return warnings, nil
}

// PreviewURL serves the redacted artifact for review, or the vault copy once
// approved. Nothing else is ever previewable; the unredacted original has no
// read path.
func (uc *DocumentLifecycleUseCase) PreviewURL(ctx context.Context, ownerID, documentID string, ttl time.Duration) (string, error) {
	doc, err := uc.loadOwned(ctx, ownerID, documentID)
	if err != nil {
		return "", err
	}

	var key string
	switch doc.Status {
	case domain.StatusRedacted:
		key = doc.RedactedLocation
	case domain.StatusApproved:
		key = doc.VaultLocation
	default:
		return "", domain.WrapError(domain.ErrInvalidTransition, "preview document",
			fmt.Errorf("document %s is %s", doc.ID, doc.Status))
	}

	url, err := uc.storage.SignedURL(ctx, key, ttl)
	if err != nil {
		return "", fmt.Errorf("sign preview url: %w", err)
	}
	uc.audit.Emit(ctx, ports.AuditEvent{
		Action:     "document.previewed",
		OwnerID:    ownerID,
		DocumentID: doc.ID,
	})
	return url, nil
}

// DownloadURL is vault-only; a document must be approved before it can leave
// the system.
func (uc *DocumentLifecycleUseCase) DownloadURL(ctx context.Context, ownerID, documentID string, ttl time.Duration) (string, error) {
	doc, err := uc.loadOwned(ctx, ownerID, documentID)
	if err != nil {
		return "", err
	}
	if doc.Status != domain.StatusApproved || doc.VaultLocation == "" {
		return "", domain.WrapError(domain.ErrInvalidTransition, "download document",
			fmt.Errorf("document %s is %s", doc.ID, doc.Status))
	}

	url, err := uc.storage.SignedURL(ctx, doc.VaultLocation, ttl)
	if err != nil {
		return "", fmt.Errorf("sign download url: %w", err)
	}
	uc.audit.Emit(ctx, ports.AuditEvent{
		Action:     "document.downloaded",
		OwnerID:    ownerID,
		DocumentID: doc.ID,
	})
	return url, nil
}

// loadOwned gates every read and transition on ownership. A mismatch is
// reported to the audit trail before the caller sees the error.
func (uc *DocumentLifecycleUseCase) loadOwned(ctx context.Context, ownerID, documentID string) (*domain.Document, error) {
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
		return nil, domain.WrapError(domain.ErrOwnershipMismatch, "access document",
			fmt.Errorf("document %s", documentID))
	}
	return doc, nil
}

func (uc *DocumentLifecycleUseCase) deleteArtifacts(ctx context.Context, keys ...string) []string {
	var warnings []string
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := uc.storage.Delete(ctx, key); err != nil {
			warnings = append(warnings, fmt.Sprintf("delete artifact %s: %v", key, err))
		}
	}
	return warnings
}
