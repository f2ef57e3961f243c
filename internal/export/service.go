// Package export produces XLSX workbooks of extracted tax fields.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/taxdoc-vault/internal/core/domain"
	"github.com/kirillkom/taxdoc-vault/internal/core/ports"
)

// Service is a tiny façade over the extraction repository that produces XLSX
// bytes for one owner's records.
type Service struct {
	documents   ports.DocumentRepository
	extractions ports.ExtractionRepository
	logger      *slog.Logger
}

func NewService(documents ports.DocumentRepository, extractions ports.ExtractionRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{documents: documents, extractions: extractions, logger: logger}
}

// ExportExtractionsXLSX returns a workbook with one row per extraction record
// owned by the caller.
func (s *Service) ExportExtractionsXLSX(ctx context.Context, ownerID string) ([]byte, error) {
	start := time.Now()

	records, err := s.extractions.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query extractions: %w", err)
	}

	filenames := s.resolveFilenames(ctx, ownerID, records)

	f := excelize.NewFile()
	const sheet = "Tax Extractions"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	defaultIndex, _ := f.GetSheetIndex("Sheet1")
	if defaultIndex != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Document",
		"Filing Status",
		"W-2 Wages",
		"Total Deductions",
		"IRA Distributions",
		"Capital Gain/Loss",
		"Extracted At",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, rec := range records {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		name := filenames[rec.DocumentID]
		if name == "" {
			name = rec.DocumentID
		}
		write(1, name)
		writeOptionalString(write, 2, rec.Fields.FilingStatus)
		writeOptionalNumber(write, 3, rec.Fields.W2Wages)
		writeOptionalNumber(write, 4, rec.Fields.TotalDeductions)
		writeOptionalNumber(write, 5, rec.Fields.IRADistributionsTotal)
		writeOptionalNumber(write, 6, rec.Fields.CapitalGainOrLoss)
		write(7, rec.UpdatedAt.UTC().Format("2006-01-02 15:04:05"))
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}

	s.logger.InfoContext(ctx, "extractions exported",
		"owner_id", ownerID,
		"records", len(records),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// resolveFilenames maps document ids to original filenames for readable rows.
// Lookup trouble degrades to the raw id.
func (s *Service) resolveFilenames(ctx context.Context, ownerID string, records []domain.TaxExtraction) map[string]string {
	if len(records) == 0 {
		return nil
	}
	docs, err := s.documents.ListByOwner(ctx, ownerID)
	if err != nil {
		s.logger.WarnContext(ctx, "filename lookup failed for export", "owner_id", ownerID, "error", err)
		return nil
	}
	names := make(map[string]string, len(docs))
	for _, doc := range docs {
		names[doc.ID] = doc.Filename
	}
	return names
}

func writeOptionalString(write func(int, any), col int, value *string) {
	if value == nil {
		write(col, "")
		return
	}
	write(col, *value)
}

func writeOptionalNumber(write func(int, any), col int, value *float64) {
	if value == nil {
		write(col, "")
		return
	}
	write(col, *value)
}
