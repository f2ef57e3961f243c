package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"io"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	_ "golang.org/x/image/tiff"
	_ "image/png"

	"github.com/kirillkom/taxdoc-vault/internal/core/domain"
)

const (
	// Raster resolution, independent of the source's native resolution.
	// High enough to keep the flattened output legible.
	renderDPI = 150

	jpegQuality = 85
)

// Renderer rebuilds a document from redacted page rasters. The output is a
// freshly constructed PDF holding only flattened page images: no text layer,
// font, or metadata object from the source survives.
type Renderer struct{}

func New() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Render(ctx context.Context, payload []byte, contentType string, regions []domain.Region) ([]byte, error) {
	if strings.EqualFold(contentType, "application/pdf") {
		return r.renderPDF(ctx, payload, regions)
	}
	return r.renderImage(ctx, payload, regions)
}

func (r *Renderer) renderPDF(ctx context.Context, payload []byte, regions []domain.Region) ([]byte, error) {
	doc, err := fitz.NewFromMemory(payload)
	if err != nil {
		return nil, fmt.Errorf("open source pdf: %w", err)
	}
	defer doc.Close()

	var out []byte
	for pageIdx := 0; pageIdx < doc.NumPage(); pageIdx++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		raster, err := doc.ImageDPI(pageIdx, renderDPI)
		if err != nil {
			return nil, fmt.Errorf("rasterize page %d: %w", pageIdx+1, err)
		}

		fillRegions(raster, regionsForPage(regions, pageIdx+1))

		encoded, err := encodeJPEG(raster)
		if err != nil {
			return nil, fmt.Errorf("encode page %d: %w", pageIdx+1, err)
		}

		// Page dimensions in points recovered from the raster size, so the
		// rebuilt page matches the original's physical dimensions.
		bounds := raster.Bounds()
		widthPts := float64(bounds.Dx()) * 72.0 / renderDPI
		heightPts := float64(bounds.Dy()) * 72.0 / renderDPI

		out, err = appendImagePage(out, encoded, widthPts, heightPts)
		if err != nil {
			return nil, fmt.Errorf("assemble page %d: %w", pageIdx+1, err)
		}
	}

	if out == nil {
		return nil, fmt.Errorf("source pdf has no pages")
	}
	return out, nil
}

// renderImage handles non-PDF inputs: same fill path on the single image,
// then wrapped into a one-page output document.
func (r *Renderer) renderImage(ctx context.Context, payload []byte, regions []domain.Region) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("decode source image: %w", err)
	}

	raster := image.NewRGBA(src.Bounds())
	draw.Draw(raster, raster.Bounds(), src, src.Bounds().Min, draw.Src)

	fillRegions(raster, regionsForPage(regions, 1))

	encoded, err := encodeJPEG(raster)
	if err != nil {
		return nil, fmt.Errorf("encode redacted image: %w", err)
	}

	bounds := raster.Bounds()
	widthPts := float64(bounds.Dx()) * 72.0 / renderDPI
	heightPts := float64(bounds.Dy()) * 72.0 / renderDPI

	return appendImagePage(nil, encoded, widthPts, heightPts)
}

func fillRegions(raster *image.RGBA, regions []domain.Region) {
	bounds := raster.Bounds()
	for _, region := range regions {
		rect := pixelRect(region, bounds.Dx(), bounds.Dy())
		draw.Draw(raster, rect, image.NewUniform(color.Black), image.Point{}, draw.Src)
	}
}

func regionsForPage(regions []domain.Region, page int) []domain.Region {
	var out []domain.Region
	for _, region := range regions {
		if region.Page == page {
			out = append(out, region)
		}
	}
	return out
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// appendImagePage places one flattened page image onto a new page of the
// output document, creating the document when current is nil.
func appendImagePage(current []byte, jpegData []byte, widthPts, heightPts float64) ([]byte, error) {
	spec := fmt.Sprintf("dim:%d %d, pos:full", int(widthPts+0.5), int(heightPts+0.5))
	imp, err := api.Import(spec, types.POINTS)
	if err != nil {
		return nil, fmt.Errorf("parse import spec: %w", err)
	}

	var rs io.ReadSeeker
	if current != nil {
		rs = bytes.NewReader(current)
	}

	var buf bytes.Buffer
	if err := api.ImportImages(rs, &buf, []io.Reader{bytes.NewReader(jpegData)}, imp, nil); err != nil {
		return nil, fmt.Errorf("import page image: %w", err)
	}
	return buf.Bytes(), nil
}
