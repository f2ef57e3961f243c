package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/taxdoc-vault/internal/core/domain"
	"github.com/kirillkom/taxdoc-vault/internal/core/ports"
)

// MaxUploadBytes caps a single document upload.
const MaxUploadBytes = 10 * 1024 * 1024

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tiff": true,
	".tif":  true,
}

type UploadDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.BlobStorage
	queue   ports.TaskQueue
	audit   ports.AuditSink
}

func NewUploadDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.BlobStorage,
	queue ports.TaskQueue,
	audit ports.AuditSink,
) *UploadDocumentUseCase {
	return &UploadDocumentUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
		audit:   audit,
	}
}

func (uc *UploadDocumentUseCase) Upload(
	ctx context.Context,
	ownerID, filename, contentType string,
	size int64,
	body io.Reader,
) (*domain.Document, error) {
	if err := validateUpload(filename, size); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("users/%s/%s_original_%s", ownerID, id, sanitizeFilename(filename))
	now := time.Now().UTC()

	// The size cap is enforced on the stream as well; the declared length is
	// client-supplied.
	limited := io.LimitReader(body, MaxUploadBytes+1)
	counter := &countingReader{inner: limited}
	if err := uc.storage.Put(ctx, storageKey, contentType, counter); err != nil {
		return nil, fmt.Errorf("save original artifact: %w", err)
	}
	if counter.n > MaxUploadBytes {
		_ = uc.storage.Delete(ctx, storageKey)
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("file exceeds 10 MiB limit"))
	}

	doc := &domain.Document{
		ID:               id,
		OwnerID:          ownerID,
		Filename:         filename,
		ContentType:      contentType,
		SizeBytes:        counter.n,
		OriginalLocation: storageKey,
		Status:           domain.StatusUploaded,
		ExtractionStatus: domain.ExtractionNotStarted,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		_ = uc.storage.Delete(ctx, storageKey)
		return nil, fmt.Errorf("create document record: %w", err)
	}

	if err := uc.queue.PublishRedactionRequested(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("schedule redaction: %w", err)
	}

	uc.audit.Emit(ctx, ports.AuditEvent{
		Action:     "document.uploaded",
		OwnerID:    ownerID,
		DocumentID: doc.ID,
		Details:    map[string]any{"filename": filename, "size_bytes": counter.n},
	})
	return doc, nil
}

func validateUpload(filename string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return domain.WrapError(domain.ErrInvalidInput, "upload document", fmt.Errorf("unsupported file type %q", ext))
	}
	if size <= 0 {
		return domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("empty upload"))
	}
	if size > MaxUploadBytes {
		return domain.WrapError(domain.ErrInvalidInput, "upload document", errors.New("file exceeds 10 MiB limit"))
	}
	return nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.bin"
	}
	return base
}

type countingReader struct {
	inner io.Reader
	n     int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.inner.Read(p)
	c.n += int64(n)
	return n, err
}
