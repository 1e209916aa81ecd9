package write

import (
	"seehuhn.de/go/geom/rect"

	"github.com/benedoc-inc/pdfwm/core/parse"
)

// PageSize represents page dimensions in points (1 point = 1/72 inch)
type PageSize struct {
	Width  float64
	Height float64
}

// Standard page sizes
var (
	PageSizeLetter = PageSize{612, 792}   // 8.5 x 11 inches
	PageSizeA4     = PageSize{595, 842}   // 210 x 297 mm
	PageSizeF4     = PageSize{595, 935.4} // 210 x 330 mm (folio)
	PageSizeA5     = PageSize{420, 595}   // 148 x 210 mm
)

// Landscape returns the size with width and height swapped
func (s PageSize) Landscape() PageSize {
	return PageSize{Width: s.Height, Height: s.Width}
}

// Rect returns the size as a box anchored at the origin
func (s PageSize) Rect() rect.Rect {
	return rect.Rect{URx: s.Width, URy: s.Height}
}

// PageBuilder helps build PDF pages
type PageBuilder struct {
	writer     *PDFWriter
	mediaBox   *rect.Rect
	cropBox    *rect.Rect
	rotate     int
	hasRotate  bool
	xobjects   parse.Dict
	content    *ContentStream
	pageObjNum int
}

// NewPageBuilder creates a new page builder
func (w *PDFWriter) NewPageBuilder(size PageSize) *PageBuilder {
	box := size.Rect()
	return &PageBuilder{
		writer:   w,
		mediaBox: &box,
		xobjects: parse.Dict{},
		content:  NewContentStream(),
	}
}

// Content returns the content stream for adding graphics
func (pb *PageBuilder) Content() *ContentStream {
	return pb.content
}

// SetMediaBox replaces the media box. A nil box leaves /MediaBox off the
// page so that it is inherited from the page tree.
func (pb *PageBuilder) SetMediaBox(box *rect.Rect) *PageBuilder {
	pb.mediaBox = box
	return pb
}

// SetCropBox sets the crop box
func (pb *PageBuilder) SetCropBox(box rect.Rect) *PageBuilder {
	pb.cropBox = &box
	return pb
}

// SetRotate sets the /Rotate attribute in degrees
func (pb *PageBuilder) SetRotate(degrees int) *PageBuilder {
	pb.rotate = degrees
	pb.hasRotate = true
	return pb
}

// AddImage registers an embedded image under a resource name
func (pb *PageBuilder) AddImage(name parse.Name, info *ImageInfo) *PageBuilder {
	pb.xobjects[name] = parse.Reference{Number: info.ObjectNum}
	return pb
}

// Build writes the content stream and page object and returns the page
// object number
func (pb *PageBuilder) Build(pagesObjNum int) int {
	contentObjNum := pb.writer.AddStreamObject(parse.Dict{}, pb.content.Bytes(), true)

	page := parse.Dict{
		"Type":     parse.Name("Page"),
		"Parent":   parse.Reference{Number: pagesObjNum},
		"Contents": parse.Reference{Number: contentObjNum},
	}
	resources := parse.Dict{}
	if len(pb.xobjects) > 0 {
		resources["XObject"] = pb.xobjects
	}
	page["Resources"] = resources
	if pb.mediaBox != nil {
		page["MediaBox"] = RectArray(*pb.mediaBox)
	}
	if pb.cropBox != nil {
		page["CropBox"] = RectArray(*pb.cropBox)
	}
	if pb.hasRotate {
		page["Rotate"] = parse.Integer(pb.rotate)
	}

	pb.pageObjNum = pb.writer.AddObject(page)
	return pb.pageObjNum
}

// SimplePDFBuilder provides a high-level API for creating simple PDFs. The
// stamping pipeline never uses it; it builds input documents for tests and
// for callers that need a quick fixture.
type SimplePDFBuilder struct {
	writer        *PDFWriter
	pages         []int
	pagesObjNum   int
	pagesAttrs    parse.Dict
	catalogObjNum int
}

// NewSimplePDFBuilder creates a new simple PDF builder
func NewSimplePDFBuilder() *SimplePDFBuilder {
	return &SimplePDFBuilder{
		writer:     NewPDFWriter(),
		pages:      make([]int, 0),
		pagesAttrs: parse.Dict{},
	}
}

// Writer returns the underlying PDF writer for advanced operations
func (b *SimplePDFBuilder) Writer() *PDFWriter {
	return b.writer
}

// SetInheritable sets an inheritable attribute (MediaBox, CropBox, Rotate,
// Resources) on the root page tree node
func (b *SimplePDFBuilder) SetInheritable(key parse.Name, value parse.Object) {
	b.pagesAttrs[key] = value
}

// AddPage adds a new page and returns a page builder
func (b *SimplePDFBuilder) AddPage(size PageSize) *PageBuilder {
	return b.writer.NewPageBuilder(size)
}

// FinalizePage adds a built page to the document
func (b *SimplePDFBuilder) FinalizePage(pb *PageBuilder) {
	if b.pagesObjNum == 0 {
		b.pagesObjNum = b.writer.ReserveObject()
	}
	b.pages = append(b.pages, pb.Build(b.pagesObjNum))
}

// Bytes returns the complete PDF
func (b *SimplePDFBuilder) Bytes() ([]byte, error) {
	if b.pagesObjNum == 0 {
		b.pagesObjNum = b.writer.ReserveObject()
	}

	kids := make(parse.Array, 0, len(b.pages))
	for _, pageNum := range b.pages {
		kids = append(kids, parse.Reference{Number: pageNum})
	}
	pages := parse.Dict{
		"Type":  parse.Name("Pages"),
		"Kids":  kids,
		"Count": parse.Integer(len(b.pages)),
	}
	for k, v := range b.pagesAttrs {
		pages[k] = v
	}
	b.writer.SetObject(b.pagesObjNum, pages)

	if b.catalogObjNum == 0 {
		b.catalogObjNum = b.writer.AddObject(parse.Dict{
			"Type":  parse.Name("Catalog"),
			"Pages": parse.Reference{Number: b.pagesObjNum},
		})
		b.writer.SetRoot(b.catalogObjNum)
	}

	return b.writer.Bytes()
}

// Pages returns the list of page object numbers
func (b *SimplePDFBuilder) Pages() []int {
	return b.pages
}
