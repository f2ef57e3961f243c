package match

import (
	"testing"

	"github.com/kirillkom/taxdoc-vault/internal/core/domain"
)

func ocrWithBlocks(blocks ...domain.Block) *domain.OCRResult {
	return &domain.OCRResult{
		Pages: []domain.Page{{Number: 1, Width: 612, Height: 792, Blocks: blocks}},
	}
}

func TestMatchLiteralQuote(t *testing.T) {
	ocr := ocrWithBlocks(
		domain.Block{Text: "Name: John Q Taxpayer", Box: domain.BoundingBox{X: 0.1, Y: 0.1, Width: 0.3, Height: 0.02}},
	)
	findings := []domain.Finding{{Category: domain.CategoryPersonName, Quote: "John Q Taxpayer"}}

	regions := New().Match(ocr, findings)
	if len(regions) != 1 {
		t.Fatalf("expected 1 region, got %d", len(regions))
	}
	if regions[0].Category != domain.CategoryPersonName {
		t.Fatalf("unexpected category %s", regions[0].Category)
	}
	if regions[0].Box != ocr.Pages[0].Blocks[0].Box {
		t.Fatalf("expected block box, got %+v", regions[0].Box)
	}
}

func TestMatchSpacedSSNVariant(t *testing.T) {
	ocr := ocrWithBlocks(
		domain.Block{Text: "header", Box: domain.BoundingBox{X: 0, Y: 0, Width: 1, Height: 0.05}},
		domain.Block{Text: "1 2 3 4 5 6 7 8 9", Box: domain.BoundingBox{X: 0.6, Y: 0.1, Width: 0.3, Height: 0.02}},
	)
	findings := []domain.Finding{{Category: domain.CategorySSNPattern, Quote: "123-45-6789"}}

	regions := New().Match(ocr, findings)
	if len(regions) != 1 {
		t.Fatalf("expected 1 region from spaced variant, got %d", len(regions))
	}
	if regions[0].Box.X != 0.6 {
		t.Fatalf("matched wrong block: %+v", regions[0])
	}
}

func TestMatchUnspacedAndDoubleSpacedSSNVariants(t *testing.T) {
	for _, blockText := range []string{"123456789", "1  2  3  4  5  6  7  8  9"} {
		ocr := ocrWithBlocks(domain.Block{Text: blockText, Box: domain.BoundingBox{X: 0.5, Y: 0.5, Width: 0.2, Height: 0.02}})
		regions := New().Match(ocr, []domain.Finding{{Category: domain.CategorySSN, Quote: "123-45-6789"}})
		if len(regions) != 1 {
			t.Fatalf("block %q: expected 1 region, got %d", blockText, len(regions))
		}
	}
}

func TestMatchFirstLineOfMultiLineQuote(t *testing.T) {
	ocr := ocrWithBlocks(
		domain.Block{Text: "742 Evergreen Terrace", Box: domain.BoundingBox{X: 0.1, Y: 0.3, Width: 0.4, Height: 0.02}},
	)
	findings := []domain.Finding{{
		Category: domain.CategoryAddress,
		Quote:    "742 Evergreen Terrace\nSpringfield OR 97477",
	}}

	regions := New().Match(ocr, findings)
	if len(regions) != 1 {
		t.Fatalf("expected partial first-line match, got %d regions", len(regions))
	}
}

func TestShortFirstLineDoesNotPartialMatch(t *testing.T) {
	ocr := ocrWithBlocks(
		domain.Block{Text: "box 12 a", Box: domain.BoundingBox{X: 0.1, Y: 0.3, Width: 0.4, Height: 0.02}},
	)
	findings := []domain.Finding{{Category: domain.CategoryPhone, Quote: "12 a\n555-0100"}}

	if regions := New().Match(ocr, findings); len(regions) != 0 {
		t.Fatalf("expected no region for short partial, got %d", len(regions))
	}
}

func TestDuplicateFindingsEmitOneRegion(t *testing.T) {
	ocr := ocrWithBlocks(
		domain.Block{Text: "Jane Roe and Jane Roe", Box: domain.BoundingBox{X: 0.1, Y: 0.1, Width: 0.5, Height: 0.02}},
	)
	findings := []domain.Finding{
		{Category: domain.CategoryPersonName, Quote: "Jane Roe"},
		{Category: domain.CategoryPersonName, Quote: "Jane Roe"},
	}

	if regions := New().Match(ocr, findings); len(regions) != 1 {
		t.Fatalf("expected deduplicated single region, got %d", len(regions))
	}
}

func TestRepeatedQuoteAcrossBlocksEmitsRegionPerBlock(t *testing.T) {
	// W-2 employee copies print the same SSN once per copy on one page.
	ocr := ocrWithBlocks(
		domain.Block{Text: "Copy B  123-45-6789", Box: domain.BoundingBox{X: 0.1, Y: 0.1, Width: 0.3, Height: 0.02}},
		domain.Block{Text: "Copy C  123-45-6789", Box: domain.BoundingBox{X: 0.1, Y: 0.5, Width: 0.3, Height: 0.02}},
	)
	findings := []domain.Finding{
		{Category: domain.CategorySSN, Quote: "123-45-6789"},
		{Category: domain.CategorySSN, Quote: "123-45-6789"},
	}

	regions := New().Match(ocr, findings)
	if len(regions) != 2 {
		t.Fatalf("expected one region per copy, got %d", len(regions))
	}
	if regions[0].Box.Y == regions[1].Box.Y {
		t.Fatalf("expected regions on distinct blocks, got %+v and %+v", regions[0].Box, regions[1].Box)
	}
}

func TestUnmatchedNonIDFindingDroppedSilently(t *testing.T) {
	ocr := ocrWithBlocks(domain.Block{Text: "nothing relevant"})
	findings := []domain.Finding{{Category: domain.CategoryEmail, Quote: "tax@example.com"}}

	if regions := New().Match(ocr, findings); len(regions) != 0 {
		t.Fatalf("expected 0 regions, got %d", len(regions))
	}
}

func TestSSNFallbackRedactsLabelBlock(t *testing.T) {
	labelBox := domain.BoundingBox{X: 0.55, Y: 0.08, Width: 0.35, Height: 0.03}
	ocr := ocrWithBlocks(
		domain.Block{Text: "Form 1040 U.S. Individual Income Tax Return"},
		domain.Block{Text: "Your social security number 78 9", Box: labelBox},
	)
	// Quote digits appear nowhere verbatim, nor as a spacing variant.
	findings := []domain.Finding{{Category: domain.CategorySSN, Quote: "321-54-9876"}}

	regions := New().Match(ocr, findings)
	if len(regions) != 1 {
		t.Fatalf("expected fallback region, got %d", len(regions))
	}
	got := regions[0].Box
	if got.X >= labelBox.X || got.Y >= labelBox.Y {
		t.Fatalf("fallback box not padded outward: %+v", got)
	}
	if got.Width <= labelBox.Width || got.Height <= labelBox.Height {
		t.Fatalf("fallback box not expanded: %+v", got)
	}
	if regions[0].Category != domain.CategorySSN {
		t.Fatalf("fallback must use the national-id category, got %s", regions[0].Category)
	}
}

func TestFallbackPaddingClampedToPage(t *testing.T) {
	ocr := ocrWithBlocks(
		domain.Block{Text: "social security number", Box: domain.BoundingBox{X: 0.0, Y: 0.0, Width: 0.995, Height: 0.995}},
	)
	findings := []domain.Finding{{Category: domain.CategorySSNPattern, Quote: "000-IMPOSSIBLE"}}

	regions := New().Match(ocr, findings)
	if len(regions) != 1 {
		t.Fatalf("expected fallback region, got %d", len(regions))
	}
	b := regions[0].Box
	if b.X < 0 || b.Y < 0 || b.Width > 1 || b.Height > 1 {
		t.Fatalf("box escaped page bounds: %+v", b)
	}
}
