package write

import (
	"seehuhn.de/go/geom/rect"

	"github.com/benedoc-inc/pdfwm/core/parse"
)

// AddFormXObject adds a form XObject whose content is drawn in the
// coordinate space bounded by bbox. The bounding box also clips.
func (w *PDFWriter) AddFormXObject(bbox rect.Rect, resources parse.Dict, content []byte) int {
	dict := parse.Dict{
		"Type":     parse.Name("XObject"),
		"Subtype":  parse.Name("Form"),
		"FormType": parse.Integer(1),
		"BBox":     RectArray(bbox),
	}
	if resources != nil {
		dict["Resources"] = resources
	}
	return w.AddStreamObject(dict, content, true)
}

// AddExtGState adds a graphics state parameter dictionary setting the
// fill and stroke alpha
func (w *PDFWriter) AddExtGState(alpha float64) int {
	return w.AddObject(parse.Dict{
		"Type": parse.Name("ExtGState"),
		"ca":   parse.Real(alpha),
		"CA":   parse.Real(alpha),
	})
}

// RectArray converts r to a PDF rectangle array
func RectArray(r rect.Rect) parse.Array {
	return parse.Array{parse.Real(r.LLx), parse.Real(r.LLy), parse.Real(r.URx), parse.Real(r.URy)}
}
