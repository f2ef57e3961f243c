package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/taxdoc-vault/internal/core/domain"
)

// DocumentUploader is the inbound contract for upload orchestration.
type DocumentUploader interface {
	Upload(ctx context.Context, ownerID, filename, contentType string, size int64, body io.Reader) (*domain.Document, error)
}

// DocumentLifecycle covers the owner-triggered state transitions and reads.
type DocumentLifecycle interface {
	Get(ctx context.Context, ownerID, documentID string) (*domain.Document, error)
	List(ctx context.Context, ownerID string) ([]domain.Document, error)
	Approve(ctx context.Context, ownerID, documentID string) (*domain.Document, []string, error)
	Reject(ctx context.Context, ownerID, documentID string) (*domain.Document, []string, error)
	Delete(ctx context.Context, ownerID, documentID string) ([]string, error)
	PreviewURL(ctx context.Context, ownerID, documentID string, ttl time.Duration) (string, error)
	DownloadURL(ctx context.Context, ownerID, documentID string, ttl time.Duration) (string, error)
}

// RedactionProcessor is the background contract for the redaction pipeline.
type RedactionProcessor interface {
	RedactByID(ctx context.Context, documentID string) error
}

// ExtractionProcessor is the background contract for field extraction.
type ExtractionProcessor interface {
	ExtractByID(ctx context.Context, documentID string) error
}

// ExtractionReader exposes persisted extraction results to owners.
type ExtractionReader interface {
	GetByDocument(ctx context.Context, ownerID, documentID string) (*domain.TaxExtraction, error)
}
