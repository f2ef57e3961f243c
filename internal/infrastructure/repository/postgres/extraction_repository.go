package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/taxdoc-vault/internal/core/domain"
)

type ExtractionRepository struct {
	db *sql.DB
}

func NewExtractionRepository(db *sql.DB) *ExtractionRepository {
	return &ExtractionRepository{db: db}
}

// Upsert keeps one record per document; re-running extraction replaces the
// previous field set.
func (r *ExtractionRepository) Upsert(ctx context.Context, rec *domain.TaxExtraction) error {
	fieldsJSON, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("marshal tax fields: %w", err)
	}

	now := time.Now().UTC()
	row := r.db.QueryRowContext(ctx, `
INSERT INTO tax_extractions (owner_id, document_id, fields, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (document_id)
DO UPDATE SET fields = EXCLUDED.fields, updated_at = EXCLUDED.updated_at
RETURNING id, created_at, updated_at
`, rec.OwnerID, rec.DocumentID, fieldsJSON, now)

	if err := row.Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return fmt.Errorf("upsert tax extraction: %w", err)
	}
	return nil
}

const extractionColumns = `id, owner_id, document_id, fields, created_at, updated_at`

func (r *ExtractionRepository) GetByDocument(ctx context.Context, documentID string) (*domain.TaxExtraction, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+extractionColumns+`
FROM tax_extractions
WHERE document_id = $1
`, documentID)

	rec, err := scanExtraction(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get tax extraction", fmt.Errorf("document %s", documentID))
		}
		return nil, fmt.Errorf("scan tax extraction: %w", err)
	}
	return rec, nil
}

func (r *ExtractionRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.TaxExtraction, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+extractionColumns+`
FROM tax_extractions
WHERE owner_id = $1
ORDER BY created_at DESC
`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tax extractions: %w", err)
	}
	defer rows.Close()

	var records []domain.TaxExtraction
	for rows.Next() {
		rec, err := scanExtraction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan tax extraction row: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tax extractions: %w", err)
	}
	return records, nil
}

// DeleteByDocument is idempotent; deleting a document without an extraction
// record is not an error.
func (r *ExtractionRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tax_extractions WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("delete tax extraction: %w", err)
	}
	return nil
}

func scanExtraction(scan func(dest ...any) error) (*domain.TaxExtraction, error) {
	var rec domain.TaxExtraction
	var fieldsRaw []byte

	if err := scan(&rec.ID, &rec.OwnerID, &rec.DocumentID, &fieldsRaw, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(fieldsRaw, &rec.Fields); err != nil {
		return nil, fmt.Errorf("unmarshal tax fields: %w", err)
	}
	return &rec, nil
}
