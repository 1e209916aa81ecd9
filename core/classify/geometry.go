package classify

import (
	"math"

	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"
)

// PageGeometry is the rotation-corrected size of a page. It is derived from
// the page box and /Rotate each time and never stored.
type PageGeometry struct {
	Box             rect.Rect // normalized so that LL is the minimum corner
	RawWidth        float64
	RawHeight       float64
	Rotation        int // one of 0, 90, 180, 270
	EffectiveWidth  float64
	EffectiveHeight float64
}

// NewPageGeometry derives the geometry of a page from its box and /Rotate
// value. Rotation is normalized with NormalizeRotation.
func NewPageGeometry(box rect.Rect, rotate int) PageGeometry {
	box = normalizeBox(box)
	rotation, _ := NormalizeRotation(rotate)

	g := PageGeometry{
		Box:       box,
		RawWidth:  box.URx - box.LLx,
		RawHeight: box.URy - box.LLy,
		Rotation:  rotation,
	}
	g.EffectiveWidth, g.EffectiveHeight = g.RawWidth, g.RawHeight
	if rotation == 90 || rotation == 270 {
		g.EffectiveWidth, g.EffectiveHeight = g.RawHeight, g.RawWidth
	}
	return g
}

// NormalizeRotation maps a /Rotate value into {0, 90, 180, 270}. Negative
// values count counter-clockwise. Values that are not a multiple of 90 are
// invalid; they map to 0 and ok is false.
func NormalizeRotation(rotate int) (rotation int, ok bool) {
	r := ((rotate % 360) + 360) % 360
	if r%90 != 0 {
		return 0, false
	}
	return r, true
}

func normalizeBox(b rect.Rect) rect.Rect {
	return rect.Rect{
		LLx: math.Min(b.LLx, b.URx),
		LLy: math.Min(b.LLy, b.URy),
		URx: math.Max(b.LLx, b.URx),
		URy: math.Max(b.LLy, b.URy),
	}
}

// Ratio returns long side over short side. The short side is clamped to at
// least 1 so that degenerate boxes do not divide by zero.
func (g PageGeometry) Ratio() float64 {
	long := math.Max(g.EffectiveWidth, g.EffectiveHeight)
	short := math.Min(g.EffectiveWidth, g.EffectiveHeight)
	return long / math.Max(short, 1)
}

// Portrait reports whether the page is visually taller than wide. A square
// page is landscape.
func (g PageGeometry) Portrait() bool {
	return g.EffectiveHeight > g.EffectiveWidth
}

// VisualToUser returns the matrix that maps visual space, where the page
// appears upright with its lower-left corner at the origin and size
// EffectiveWidth x EffectiveHeight, onto the page's default user space.
func (g PageGeometry) VisualToUser() matrix.Matrix {
	w, h := g.RawWidth, g.RawHeight
	var m matrix.Matrix
	switch g.Rotation {
	case 90:
		m = matrix.Matrix{0, 1, -1, 0, w, 0}
	case 180:
		m = matrix.Matrix{-1, 0, 0, -1, w, h}
	case 270:
		m = matrix.Matrix{0, -1, 1, 0, 0, h}
	default:
		m = matrix.Identity
	}
	if g.Box.LLx != 0 || g.Box.LLy != 0 {
		m = m.Mul(matrix.Translate(g.Box.LLx, g.Box.LLy))
	}
	return m
}
