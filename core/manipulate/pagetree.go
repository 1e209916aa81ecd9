package manipulate

import (
	"seehuhn.de/go/geom/rect"

	"github.com/benedoc-inc/pdfwm/core/classify"
	"github.com/benedoc-inc/pdfwm/core/parse"
	"github.com/benedoc-inc/pdfwm/core/write"
	"github.com/benedoc-inc/pdfwm/types"
)

// inheritable page attributes, resolved from the nearest ancestor
var inheritable = []parse.Name{"MediaBox", "CropBox", "Rotate", "Resources"}

// DefaultBox is used when a page has neither a CropBox nor a MediaBox
var DefaultBox = rect.Rect{URx: 612, URy: 792}

const maxTreeDepth = 64

func (d *Document) loadPages() error {
	catalog, err := d.pdf.Catalog()
	if err != nil {
		return types.WrapError(types.ErrCodeMalformedPDF, "cannot read catalog", err)
	}
	root, ok := catalog["Pages"].(parse.Reference)
	if !ok {
		return types.NewPDFError(types.ErrCodeMalformedPDF, "catalog has no /Pages reference")
	}
	d.pagesRoot = root.Number
	return d.walk(root, parse.Dict{}, make(map[int]bool), 0)
}

// walk visits a page tree node, appending leaves in order
func (d *Document) walk(ref parse.Reference, inherited parse.Dict, visited map[int]bool, depth int) error {
	if visited[ref.Number] {
		return types.NewPDFErrorf(types.ErrCodeMalformedPDF, "page tree cycle at object %d", ref.Number)
	}
	if depth > maxTreeDepth {
		return types.NewPDFError(types.ErrCodeMalformedPDF, "page tree too deep")
	}
	visited[ref.Number] = true

	obj, err := d.pdf.GetObject(ref.Number)
	if err != nil {
		return err
	}
	node, ok := obj.(parse.Dict)
	if !ok {
		return types.NewPDFErrorf(types.ErrCodeMalformedPDF, "page tree node %d is %T, not a dictionary", ref.Number, obj)
	}

	kidsObj, err := d.pdf.Resolve(node["Kids"])
	if err != nil {
		return types.WrapErrorf(types.ErrCodeMalformedPDF, err, "page tree node %d", ref.Number)
	}
	kids, hasKids := kidsObj.(parse.Array)

	typ, _ := node.GetName("Type")
	if typ == "Page" || (typ != "Pages" && !hasKids) {
		d.addPage(ref.Number, node, inherited)
		return nil
	}

	next := inherited.Clone()
	for _, key := range inheritable {
		if v, ok := node[key]; ok {
			next[key] = v
		}
	}
	for _, kid := range kids {
		kidRef, ok := kid.(parse.Reference)
		if !ok {
			d.log.Debug().Int("node", ref.Number).Msgf("ignoring direct page tree kid %T", kid)
			continue
		}
		if err := d.walk(kidRef, next, visited, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (d *Document) addPage(num int, node, inherited parse.Dict) {
	dict := copyDict(node)
	for _, key := range inheritable {
		if _, ok := dict[key]; ok {
			continue
		}
		if v, ok := inherited[key]; ok {
			dict[key] = copyValue(v)
		}
	}

	page := &Page{
		Index:        len(d.pages),
		ObjectNumber: num,
		dict:         dict,
	}
	d.resolveGeometry(page)
	d.pages = append(d.pages, page)
}

// resolveGeometry fills in the page's box and rotation
func (d *Document) resolveGeometry(page *Page) {
	box, ok := d.readBox(page.dict, "CropBox")
	if ok {
		page.BoxSource = "CropBox"
	} else if box, ok = d.readBox(page.dict, "MediaBox"); ok {
		page.BoxSource = "MediaBox"
	} else {
		box = DefaultBox
		page.dict["MediaBox"] = write.RectArray(box)
		page.Warnings = append(page.Warnings, types.NewWarningf(types.WarningLevelWarning, types.WarnDefaultBox,
			"page %d has no usable box, assuming %gx%g", page.Index+1, box.Dx(), box.Dy()))
	}

	rotate := 0
	if v, err := d.pdf.Resolve(page.dict["Rotate"]); err == nil {
		if n, ok := parse.Number(v); ok {
			rotate = int(n)
		}
	}
	page.Rotate = rotate

	normalized, ok := classify.NormalizeRotation(rotate)
	if !ok {
		page.Warnings = append(page.Warnings, types.NewWarningf(types.WarningLevelWarning, types.WarnRotationNormalized,
			"page %d has /Rotate %d, which is not a multiple of 90; using 0", page.Index+1, rotate))
	}
	if normalized != rotate {
		page.dict["Rotate"] = parse.Integer(normalized)
	}

	page.Geometry = classify.NewPageGeometry(box, rotate)
}

// readBox reads a rectangle array stored under key
func (d *Document) readBox(dict parse.Dict, key parse.Name) (rect.Rect, bool) {
	v, err := d.pdf.Resolve(dict[key])
	if err != nil {
		return rect.Rect{}, false
	}
	arr, ok := v.(parse.Array)
	if !ok || len(arr) != 4 {
		return rect.Rect{}, false
	}
	var vals [4]float64
	for i, item := range arr {
		item, err := d.pdf.Resolve(item)
		if err != nil {
			return rect.Rect{}, false
		}
		n, ok := parse.Number(item)
		if !ok {
			return rect.Rect{}, false
		}
		vals[i] = n
	}
	return rect.Rect{LLx: vals[0], LLy: vals[1], URx: vals[2], URy: vals[3]}, true
}
