package render

import (
	"image"

	"github.com/kirillkom/taxdoc-vault/internal/core/domain"
)

// Per-category fill padding in raster pixels. OCR boxes for names and
// identification numbers are frequently tight or mis-measured, so those two
// categories get the widest margins.
const (
	namePadX  = 8
	namePadY  = 4
	ssnPad    = 8
	otherPad  = 2
)

// pixelRect converts a normalized region box to a padded pixel rectangle,
// clamped to the raster bounds.
func pixelRect(region domain.Region, rasterW, rasterH int) image.Rectangle {
	x := int(region.Box.X * float64(rasterW))
	y := int(region.Box.Y * float64(rasterH))
	w := int(region.Box.Width * float64(rasterW))
	h := int(region.Box.Height * float64(rasterH))

	var padX, padY int
	switch {
	case region.Category == domain.CategoryPersonName:
		padX, padY = namePadX, namePadY
	case region.Category.IsNationalID():
		padX, padY = ssnPad, ssnPad
	default:
		padX, padY = otherPad, otherPad
	}

	return image.Rect(
		clamp(x-padX, 0, rasterW),
		clamp(y-padY, 0, rasterH),
		clamp(x+w+padX, 0, rasterW),
		clamp(y+h+padY, 0, rasterH),
	)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
