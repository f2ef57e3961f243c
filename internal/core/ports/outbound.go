package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/taxdoc-vault/internal/core/domain"
)

// DocumentRepository persists and reads document state. Updates are
// partial-field patches that refresh updated_at.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, failureReason string) error
	SaveRedactionOutcome(ctx context.Context, id string, status domain.DocumentStatus, redactedLocation string, piiCount int, report *domain.ValidationReport, failureReason string) error
	SaveApproval(ctx context.Context, id string, vaultLocation string) error
	UpdateExtractionStatus(ctx context.Context, id string, status domain.ExtractionStatus, errMessage string) error
	Delete(ctx context.Context, id string) error
}

// ExtractionRepository persists tax extraction records, one per document.
type ExtractionRepository interface {
	Upsert(ctx context.Context, rec *domain.TaxExtraction) error
	GetByDocument(ctx context.Context, documentID string) (*domain.TaxExtraction, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.TaxExtraction, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

// BlobStorage stores document artifacts across the transient and durable areas.
type BlobStorage interface {
	Put(ctx context.Context, key, contentType string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Copy(ctx context.Context, srcKey, dstKey string) error
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// TaskQueue schedules background units of work keyed by document id.
type TaskQueue interface {
	PublishRedactionRequested(ctx context.Context, documentID string) error
	PublishExtractionRequested(ctx context.Context, documentID string) error
	SubscribeRedactionRequested(ctx context.Context, handler func(context.Context, string) error) error
	SubscribeExtractionRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextRecognizer is the OCR/text-extraction collaborator. It fails with
// domain.ErrNotConfigured or domain.ErrSizeExceeded kinds where applicable.
type TextRecognizer interface {
	Extract(ctx context.Context, payload []byte, contentType string) (*domain.OCRResult, error)
}

// PIIDetector is the detection collaborator. Form-label false positives for
// single-word name quotes are filtered before results are returned.
type PIIDetector interface {
	Detect(ctx context.Context, text string) ([]domain.Finding, error)
}

// RegionMatcher maps findings to block bounding boxes.
type RegionMatcher interface {
	Match(ocr *domain.OCRResult, findings []domain.Finding) []domain.Region
}

// RedactionRenderer produces a brand-new artifact with the regions
// irreversibly overwritten and no residual source metadata.
type RedactionRenderer interface {
	Render(ctx context.Context, payload []byte, contentType string, regions []domain.Region) ([]byte, error)
}

// TextLayerProbe inspects a rebuilt artifact for residual extractable text.
type TextLayerProbe interface {
	HasTextLayer(payload []byte, contentType string) (bool, error)
}

// TaxFieldParser is the generative parsing collaborator. Rate-limit failures
// carry the domain.ErrRateLimited kind.
type TaxFieldParser interface {
	ParseTaxFields(ctx context.Context, ocrText string, hints domain.FieldHints) (domain.TaxFields, error)
}

// HintExtractor derives a subset of fields via deterministic pattern rules.
type HintExtractor interface {
	ExtractHints(ocrText string) domain.FieldHints
}

// AuditEvent is a fire-and-forget structured audit record.
type AuditEvent struct {
	Action     string         `json:"action"`
	OwnerID    string         `json:"owner_id,omitempty"`
	DocumentID string         `json:"document_id,omitempty"`
	Severity   string         `json:"severity,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// AuditSink emits audit events. Emission failures must never fail the caller.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}
