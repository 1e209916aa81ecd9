// Package cover places a watermark image over a page so that it fills the
// page completely while keeping its aspect ratio. The image may overflow
// the page on one axis; the overflow is split evenly between both edges.
package cover

import (
	"seehuhn.de/go/geom/rect"

	"github.com/benedoc-inc/pdfwm/types"
)

// PixelSizer is implemented by anything with pixel dimensions
type PixelSizer interface {
	PixelSize() (width, height int)
}

// Placement is the rectangle the watermark is drawn into, in the page's
// visual coordinate space. Offsets may be negative.
type Placement struct {
	ScaledWidth  float64
	ScaledHeight float64
	OffsetX      float64
	OffsetY      float64
}

// Rect returns the placement as a rectangle
func (p Placement) Rect() rect.Rect {
	return rect.Rect{
		LLx: p.OffsetX,
		LLy: p.OffsetY,
		URx: p.OffsetX + p.ScaledWidth,
		URy: p.OffsetY + p.ScaledHeight,
	}
}

// PlaceOverlay computes the cover-fit placement of img on a page of the
// given effective size
func PlaceOverlay(pageWidth, pageHeight float64, img PixelSizer) (Placement, error) {
	iw, ih := img.PixelSize()
	if iw <= 0 || ih <= 0 {
		return Placement{}, types.NewPDFErrorf(types.ErrCodeDegenerateAsset,
			"watermark is %dx%d pixels", iw, ih)
	}

	imgRatio := float64(iw) / float64(ih)
	pageRatio := pageWidth / nonZero(pageHeight)

	var w, h float64
	if imgRatio > pageRatio {
		h = pageHeight
		w = pageHeight * imgRatio
	} else {
		w = pageWidth
		h = pageWidth / imgRatio
	}

	return Placement{
		ScaledWidth:  w,
		ScaledHeight: h,
		OffsetX:      (pageWidth - w) / 2,
		OffsetY:      (pageHeight - h) / 2,
	}, nil
}

func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}
