package cover

import (
	"github.com/benedoc-inc/pdfwm/core/asset"
	"github.com/benedoc-inc/pdfwm/core/classify"
	"github.com/benedoc-inc/pdfwm/core/parse"
	"github.com/benedoc-inc/pdfwm/core/write"
)

// Resource names used inside the overlay's content
const (
	ImageResource = parse.Name("Wm")
	StateResource = parse.Name("GS0")
)

// RenderOptions control how the overlay is painted
type RenderOptions struct {
	// Opacity in [0, 1]. Zero is treated as fully opaque.
	Opacity float64
}

// OverlayPage is a one-page canvas in visual space holding the placed
// watermark. Width and Height equal the page's effective dimensions.
type OverlayPage struct {
	Width     float64
	Height    float64
	Placement Placement
	Content   []byte
	ImageName parse.Name
	Asset     *asset.Asset

	// Opacity below 1 requires an ExtGState named StateResource
	Opacity float64
}

// Translucent reports whether the overlay needs a graphics state for
// its opacity
func (o *OverlayPage) Translucent() bool {
	return o.Opacity < 1
}

// Render draws the watermark into the placement rectangle on a canvas of
// the page's effective size
func Render(p Placement, a *asset.Asset, g classify.PageGeometry, opts RenderOptions) *OverlayPage {
	opacity := opts.Opacity
	if opacity <= 0 || opacity > 1 {
		opacity = 1
	}

	cs := write.NewContentStream()
	cs.SaveState()
	if opacity < 1 {
		cs.SetGraphicsState(StateResource)
	}
	cs.SetMatrix(p.ScaledWidth, 0, 0, p.ScaledHeight, p.OffsetX, p.OffsetY)
	cs.DrawXObject(ImageResource)
	cs.RestoreState()

	return &OverlayPage{
		Width:     g.EffectiveWidth,
		Height:    g.EffectiveHeight,
		Placement: p,
		Content:   cs.Bytes(),
		ImageName: ImageResource,
		Asset:     a,
		Opacity:   opacity,
	}
}
