package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/taxdoc-vault/internal/core/domain"
)

func redactedDoc() *domain.Document {
	return &domain.Document{
		ID:               "doc-1",
		OwnerID:          "user-1",
		Filename:         "return.pdf",
		ContentType:      "application/pdf",
		OriginalLocation: "users/user-1/doc-1_original_return.pdf",
		RedactedLocation: "users/user-1/doc-1_redacted.pdf",
		Status:           domain.StatusRedacted,
		ExtractionStatus: domain.ExtractionNotStarted,
	}
}

func newLifecycle(repo *repoFake, extractions *extractionRepoFake, storage *storageFake, queue *queueFake, audit *auditFake) *DocumentLifecycleUseCase {
	return NewDocumentLifecycleUseCase(repo, extractions, storage, queue, audit)
}

func TestApproveMovesArtifactToVault(t *testing.T) {
	doc := redactedDoc()
	repo := newRepoFake(doc)
	storage := newStorageFake()
	storage.objects[doc.OriginalLocation] = []byte("%PDF-original")
	storage.objects[doc.RedactedLocation] = []byte("%PDF-redacted")
	queue := &queueFake{}
	audit := &auditFake{}

	uc := newLifecycle(repo, newExtractionRepoFake(), storage, queue, audit)
	approved, warnings, err := uc.Approve(context.Background(), "user-1", "doc-1")
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v", warnings)
	}
	if approved.Status != domain.StatusApproved {
		t.Fatalf("status = %s", approved.Status)
	}
	if approved.VaultLocation != "vault/user-1/doc-1.pdf" {
		t.Fatalf("vault location = %s", approved.VaultLocation)
	}
	if approved.OriginalLocation != "" || approved.RedactedLocation != "" {
		t.Fatalf("staging locators must be cleared: %+v", approved)
	}
	if _, ok := storage.objects["vault/user-1/doc-1.pdf"]; !ok {
		t.Fatalf("expected vault artifact")
	}
	if _, ok := storage.objects[doc.OriginalLocation]; ok {
		t.Fatalf("expected original deleted")
	}
	if len(queue.extractIDs) != 1 || queue.extractIDs[0] != "doc-1" {
		t.Fatalf("extraction queue = %v", queue.extractIDs)
	}
	if approved.ExtractionStatus != domain.ExtractionRunning {
		t.Fatalf("extraction status = %s", approved.ExtractionStatus)
	}
}

func TestApproveCleanupFailureIsWarningNotError(t *testing.T) {
	doc := redactedDoc()
	repo := newRepoFake(doc)
	storage := newStorageFake()
	storage.objects[doc.OriginalLocation] = []byte("%PDF-original")
	storage.objects[doc.RedactedLocation] = []byte("%PDF-redacted")
	storage.deleteErr[doc.OriginalLocation] = errors.New("backend flake")

	uc := newLifecycle(repo, newExtractionRepoFake(), storage, &queueFake{}, &auditFake{})
	approved, warnings, err := uc.Approve(context.Background(), "user-1", "doc-1")
	if err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if approved.Status != domain.StatusApproved {
		t.Fatalf("status = %s", approved.Status)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "delete original artifact") {
		t.Fatalf("warnings = %v", warnings)
	}
}

func TestApproveRequiresRedactedStatus(t *testing.T) {
	doc := redactedDoc()
	doc.Status = domain.StatusUploaded
	repo := newRepoFake(doc)

	uc := newLifecycle(repo, newExtractionRepoFake(), newStorageFake(), &queueFake{}, &auditFake{})
	_, _, err := uc.Approve(context.Background(), "user-1", "doc-1")
	if !domain.IsKind(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestRejectAlwaysLandsInRejected(t *testing.T) {
	for _, status := range []domain.DocumentStatus{
		domain.StatusUploaded,
		domain.StatusRedacting,
		domain.StatusRedacted,
		domain.StatusRedactionFailed,
	} {
		doc := redactedDoc()
		doc.Status = status
		repo := newRepoFake(doc)
		storage := newStorageFake()
		storage.objects[doc.OriginalLocation] = []byte("%PDF-original")
		storage.objects[doc.RedactedLocation] = []byte("%PDF-redacted")

		uc := newLifecycle(repo, newExtractionRepoFake(), storage, &queueFake{}, &auditFake{})
		rejected, _, err := uc.Reject(context.Background(), "user-1", "doc-1")
		if err != nil {
			t.Fatalf("Reject() from %s error = %v", status, err)
		}
		if rejected.Status != domain.StatusRejected {
			t.Fatalf("status = %s", rejected.Status)
		}
		if len(storage.objects) != 0 {
			t.Fatalf("expected all artifacts destroyed, remaining %v", storage.objects)
		}
	}
}

func TestRejectRefusedForTerminalStates(t *testing.T) {
	for _, status := range []domain.DocumentStatus{domain.StatusApproved, domain.StatusRejected} {
		doc := redactedDoc()
		doc.Status = status
		repo := newRepoFake(doc)

		uc := newLifecycle(repo, newExtractionRepoFake(), newStorageFake(), &queueFake{}, &auditFake{})
		_, _, err := uc.Reject(context.Background(), "user-1", "doc-1")
		if !domain.IsKind(err, domain.ErrInvalidTransition) {
			t.Fatalf("expected ErrInvalidTransition from %s, got %v", status, err)
		}
	}
}

func TestOwnershipMismatchIsDeniedAndAudited(t *testing.T) {
	doc := redactedDoc()
	repo := newRepoFake(doc)
	audit := &auditFake{}

	uc := newLifecycle(repo, newExtractionRepoFake(), newStorageFake(), &queueFake{}, audit)
	_, err := uc.Get(context.Background(), "intruder", "doc-1")
	if !domain.IsKind(err, domain.ErrOwnershipMismatch) {
		t.Fatalf("expected ErrOwnershipMismatch, got %v", err)
	}
	if len(audit.events) != 1 || audit.events[0].Action != "document.access_denied" {
		t.Fatalf("audit = %v", audit.actions())
	}
	if audit.events[0].Severity != "security" {
		t.Fatalf("severity = %s", audit.events[0].Severity)
	}
}

func TestDeleteRemovesEverything(t *testing.T) {
	doc := redactedDoc()
	doc.Status = domain.StatusApproved
	doc.VaultLocation = "vault/user-1/doc-1.pdf"
	repo := newRepoFake(doc)
	storage := newStorageFake()
	storage.objects[doc.VaultLocation] = []byte("%PDF-vault")
	extractions := newExtractionRepoFake()
	extractions.records["doc-1"] = &domain.TaxExtraction{DocumentID: "doc-1", OwnerID: "user-1"}

	uc := newLifecycle(repo, extractions, storage, &queueFake{}, &auditFake{})
	warnings, err := uc.Delete(context.Background(), "user-1", "doc-1")
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v", warnings)
	}
	if _, getErr := repo.GetByID(context.Background(), "doc-1"); !domain.IsKind(getErr, domain.ErrDocumentNotFound) {
		t.Fatalf("expected record gone, got %v", getErr)
	}
	if len(extractions.records) != 0 {
		t.Fatalf("expected extraction record gone")
	}
	if len(storage.objects) != 0 {
		t.Fatalf("expected artifacts gone")
	}
}

func TestPreviewURLGates(t *testing.T) {
	doc := redactedDoc()
	repo := newRepoFake(doc)
	storage := newStorageFake()

	uc := newLifecycle(repo, newExtractionRepoFake(), storage, &queueFake{}, &auditFake{})
	url, err := uc.PreviewURL(context.Background(), "user-1", "doc-1", time.Minute)
	if err != nil {
		t.Fatalf("PreviewURL() error = %v", err)
	}
	if !strings.Contains(url, doc.RedactedLocation) {
		t.Fatalf("url = %s", url)
	}

	doc2 := redactedDoc()
	doc2.ID = "doc-2"
	doc2.Status = domain.StatusUploaded
	repo2 := newRepoFake(doc2)
	uc2 := newLifecycle(repo2, newExtractionRepoFake(), storage, &queueFake{}, &auditFake{})
	if _, err := uc2.PreviewURL(context.Background(), "user-1", "doc-2", time.Minute); !domain.IsKind(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestDownloadURLRequiresApproval(t *testing.T) {
	doc := redactedDoc()
	repo := newRepoFake(doc)

	uc := newLifecycle(repo, newExtractionRepoFake(), newStorageFake(), &queueFake{}, &auditFake{})
	if _, err := uc.DownloadURL(context.Background(), "user-1", "doc-1", time.Minute); !domain.IsKind(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	doc.Status = domain.StatusApproved
	doc.VaultLocation = "vault/user-1/doc-1.pdf"
	repo2 := newRepoFake(doc)
	uc2 := newLifecycle(repo2, newExtractionRepoFake(), newStorageFake(), &queueFake{}, &auditFake{})
	url, err := uc2.DownloadURL(context.Background(), "user-1", "doc-1", time.Minute)
	if err != nil {
		t.Fatalf("DownloadURL() error = %v", err)
	}
	if !strings.Contains(url, "vault/user-1/doc-1.pdf") {
		t.Fatalf("url = %s", url)
	}
}
