package export

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/taxdoc-vault/internal/core/domain"
)

type docsFake struct {
	docs []domain.Document
}

func (f *docsFake) Create(context.Context, *domain.Document) error { return fmt.Errorf("unused") }
func (f *docsFake) GetByID(context.Context, string) (*domain.Document, error) {
	return nil, fmt.Errorf("unused")
}
func (f *docsFake) ListByOwner(context.Context, string) ([]domain.Document, error) {
	return f.docs, nil
}
func (f *docsFake) UpdateStatus(context.Context, string, domain.DocumentStatus, string) error {
	return fmt.Errorf("unused")
}
func (f *docsFake) SaveRedactionOutcome(context.Context, string, domain.DocumentStatus, string, int, *domain.ValidationReport, string) error {
	return fmt.Errorf("unused")
}
func (f *docsFake) SaveApproval(context.Context, string, string) error { return fmt.Errorf("unused") }
func (f *docsFake) UpdateExtractionStatus(context.Context, string, domain.ExtractionStatus, string) error {
	return fmt.Errorf("unused")
}
func (f *docsFake) Delete(context.Context, string) error { return fmt.Errorf("unused") }

type extractionsFake struct {
	records []domain.TaxExtraction
}

func (f *extractionsFake) Upsert(context.Context, *domain.TaxExtraction) error {
	return fmt.Errorf("unused")
}
func (f *extractionsFake) GetByDocument(context.Context, string) (*domain.TaxExtraction, error) {
	return nil, fmt.Errorf("unused")
}
func (f *extractionsFake) ListByOwner(context.Context, string) ([]domain.TaxExtraction, error) {
	return f.records, nil
}
func (f *extractionsFake) DeleteByDocument(context.Context, string) error {
	return fmt.Errorf("unused")
}

func TestExportExtractionsXLSX(t *testing.T) {
	status := "single"
	wages := 97000.0
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	docs := &docsFake{docs: []domain.Document{{ID: "doc-1", OwnerID: "user-1", Filename: "return.pdf"}}}
	extractions := &extractionsFake{records: []domain.TaxExtraction{{
		ID:         1,
		OwnerID:    "user-1",
		DocumentID: "doc-1",
		Fields:     domain.TaxFields{FilingStatus: &status, W2Wages: &wages},
		UpdatedAt:  now,
	}}}

	raw, err := NewService(docs, extractions, nil).ExportExtractionsXLSX(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ExportExtractionsXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Tax Extractions")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d", len(rows))
	}
	if rows[0][0] != "Document" || rows[0][1] != "Filing Status" {
		t.Fatalf("header = %v", rows[0])
	}
	if rows[1][0] != "return.pdf" {
		t.Fatalf("document cell = %v", rows[1][0])
	}
	if rows[1][1] != "single" {
		t.Fatalf("filing status cell = %v", rows[1][1])
	}
	if rows[1][2] != "97000" {
		t.Fatalf("wages cell = %v", rows[1][2])
	}
}

func TestExportEmptyOwnerProducesHeaderOnly(t *testing.T) {
	raw, err := NewService(&docsFake{}, &extractionsFake{}, nil).ExportExtractionsXLSX(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ExportExtractionsXLSX() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Tax Extractions")
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d", len(rows))
	}
}
