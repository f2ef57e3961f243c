package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/taxdoc-vault/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	content_type TEXT NOT NULL,
	size_bytes BIGINT NOT NULL,
	original_location TEXT NOT NULL DEFAULT '',
	redacted_location TEXT NOT NULL DEFAULT '',
	vault_location TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	extraction_status TEXT NOT NULL DEFAULT 'not_started',
	pii_count INTEGER NOT NULL DEFAULT 0,
	validation JSONB,
	failure_reason TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_owner_id ON documents(owner_id);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at DESC);

CREATE TABLE IF NOT EXISTS tax_extractions (
	id BIGSERIAL PRIMARY KEY,
	owner_id TEXT NOT NULL,
	document_id TEXT NOT NULL UNIQUE REFERENCES documents(id) ON DELETE CASCADE,
	fields JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tax_extractions_owner_id ON tax_extractions(owner_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const documentColumns = `id, owner_id, filename, content_type, size_bytes, original_location, redacted_location, vault_location, status, extraction_status, pii_count, validation, failure_reason, created_at, updated_at`

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	validationJSON, err := marshalValidation(doc.Validation)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, owner_id, filename, content_type, size_bytes, original_location, redacted_location, vault_location, status, extraction_status, pii_count, validation, failure_reason, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`,
		doc.ID, doc.OwnerID, doc.Filename, doc.ContentType, doc.SizeBytes,
		doc.OriginalLocation, doc.RedactedLocation, doc.VaultLocation,
		string(doc.Status), string(doc.ExtractionStatus), doc.PIICount,
		validationJSON, doc.FailureReason, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE owner_id = $1
ORDER BY created_at DESC
`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, failureReason string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, failure_reason = $3, updated_at = $4
WHERE id = $1
`, id, string(status), failureReason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return requireRowAffected(result, "update document status", id)
}

func (r *DocumentRepository) SaveRedactionOutcome(ctx context.Context, id string, status domain.DocumentStatus, redactedLocation string, piiCount int, report *domain.ValidationReport, failureReason string) error {
	validationJSON, err := marshalValidation(report)
	if err != nil {
		return err
	}

	// A failed redaction has both staging artifacts deleted; the locators
	// follow so the record never points at removed keys.
	query := `
UPDATE documents
SET status = $2, redacted_location = $3, pii_count = $4, validation = $5, failure_reason = $6, updated_at = $7
WHERE id = $1
`
	if status == domain.StatusRedactionFailed {
		query = `
UPDATE documents
SET status = $2, redacted_location = $3, original_location = '', pii_count = $4, validation = $5, failure_reason = $6, updated_at = $7
WHERE id = $1
`
	}

	result, err := r.db.ExecContext(ctx, query, id, string(status), redactedLocation, piiCount, validationJSON, failureReason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save redaction outcome: %w", err)
	}
	return requireRowAffected(result, "save redaction outcome", id)
}

// SaveApproval records the vault locator and clears the staging locators; the
// transient artifacts are gone once a document is approved.
func (r *DocumentRepository) SaveApproval(ctx context.Context, id string, vaultLocation string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, vault_location = $3, original_location = '', redacted_location = '', updated_at = $4
WHERE id = $1
`, id, string(domain.StatusApproved), vaultLocation, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save approval: %w", err)
	}
	return requireRowAffected(result, "save approval", id)
}

func (r *DocumentRepository) UpdateExtractionStatus(ctx context.Context, id string, status domain.ExtractionStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET extraction_status = $2, failure_reason = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update extraction status: %w", err)
	}
	return requireRowAffected(result, "update extraction status", id)
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return requireRowAffected(result, "delete document", id)
}

func scanDocument(scan func(dest ...any) error) (*domain.Document, error) {
	var doc domain.Document
	var status, extractionStatus string
	var validationRaw []byte

	err := scan(
		&doc.ID, &doc.OwnerID, &doc.Filename, &doc.ContentType, &doc.SizeBytes,
		&doc.OriginalLocation, &doc.RedactedLocation, &doc.VaultLocation,
		&status, &extractionStatus, &doc.PIICount, &validationRaw,
		&doc.FailureReason, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(validationRaw) > 0 {
		var report domain.ValidationReport
		if err := json.Unmarshal(validationRaw, &report); err != nil {
			return nil, fmt.Errorf("unmarshal validation report: %w", err)
		}
		doc.Validation = &report
	}
	doc.Status = domain.DocumentStatus(status)
	doc.ExtractionStatus = domain.ExtractionStatus(extractionStatus)
	return &doc, nil
}

func marshalValidation(report *domain.ValidationReport) (any, error) {
	if report == nil {
		return nil, nil
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("marshal validation report: %w", err)
	}
	return raw, nil
}

func requireRowAffected(result sql.Result, op, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, op, fmt.Errorf("id %s", id))
	}
	return nil
}
