// Package manipulate opens an existing PDF, exposes its pages with their
// resolved geometry, composites overlays onto them and writes the result as
// a new file.
//
// Output keeps every original object number. Pages are collected into a
// single flat page tree node with their inherited attributes materialized,
// and everything reachable from the catalog is copied unchanged.
package manipulate

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/benedoc-inc/pdfwm/core/asset"
	"github.com/benedoc-inc/pdfwm/core/classify"
	"github.com/benedoc-inc/pdfwm/core/parse"
	"github.com/benedoc-inc/pdfwm/core/write"
	"github.com/benedoc-inc/pdfwm/types"
)

// DefaultProducer is written to the Info dictionary of every output file
const DefaultProducer = "pdfwm"

// Options configures how a document is opened and written
type Options struct {
	Logger *zerolog.Logger

	// Producer replaces /Producer in the Info dictionary
	Producer string

	// ObjectStreams packs objects into object streams with an xref stream
	ObjectStreams bool

	// ModTime is written as /ModDate. Zero means the time of writing.
	ModTime time.Time
}

// Page is one leaf of the page tree
type Page struct {
	Index        int // zero-based position in the document
	ObjectNumber int
	Geometry     classify.PageGeometry

	// BoxSource names the box the geometry came from: CropBox, MediaBox,
	// or empty when neither was usable and the default was applied
	BoxSource parse.Name

	// Rotate is the /Rotate value as stored, before normalization
	Rotate int

	Warnings []*types.Warning
	Overlays int

	dict parse.Dict
}

// Document is an opened PDF being prepared for output. It is not safe for
// concurrent use.
type Document struct {
	pdf       *parse.PDF
	data      []byte
	pages     []*Page
	pagesRoot int
	writer    *write.PDFWriter
	opts      Options
	log       zerolog.Logger

	images  map[*asset.Asset]int
	states  map[float64]int
	prefix  int
	infoNum int
}

// Open parses data and resolves its page tree
func Open(data []byte, opts Options) (*Document, error) {
	d := &Document{
		data:   data,
		opts:   opts,
		log:    zerolog.Nop(),
		images: make(map[*asset.Asset]int),
		states: make(map[float64]int),
	}
	if opts.Logger != nil {
		d.log = *opts.Logger
	}
	if d.opts.Producer == "" {
		d.opts.Producer = DefaultProducer
	}

	pdf, err := parse.OpenWithOptions(data, parse.ParseOptions{Logger: &d.log})
	if err != nil {
		return nil, err
	}
	d.pdf = pdf
	if pdf.Recovered() {
		d.log.Debug().Msg("cross-reference data was rebuilt by scanning the file")
	}

	if err := d.loadPages(); err != nil {
		return nil, err
	}

	d.writer = write.NewPDFWriter()
	d.writer.SkipTo(pdf.MaxObjectNumber() + 1)
	return d, nil
}

// NumPages returns the number of pages
func (d *Document) NumPages() int {
	return len(d.pages)
}

// Pages returns the pages in page tree order
func (d *Document) Pages() []*Page {
	return d.pages
}

// Page returns the page at a zero-based index
func (d *Document) Page(index int) (*Page, error) {
	if index < 0 || index >= len(d.pages) {
		return nil, fmt.Errorf("page index %d out of range (0-%d)", index, len(d.pages)-1)
	}
	return d.pages[index], nil
}

// Version returns the PDF version of the source file
func (d *Document) Version() string {
	return d.pdf.Version()
}

// Bytes assembles and serializes the output document
func (d *Document) Bytes() ([]byte, error) {
	if err := d.assemble(); err != nil {
		return nil, err
	}
	return d.writer.Bytes()
}

// WriteTo writes the output document to out
func (d *Document) WriteTo(out io.Writer) (int64, error) {
	data, err := d.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := out.Write(data)
	return int64(n), err
}

// fileID returns the first /ID string of the source, or a digest of the
// source bytes when it has none
func (d *Document) fileID() []byte {
	if ids, ok := d.pdf.Trailer()["ID"].(parse.Array); ok && len(ids) > 0 {
		if id, ok := ids[0].(parse.String); ok && len(id) > 0 {
			return bytes.Clone(id)
		}
	}
	sum := md5.Sum(d.data)
	return sum[:]
}
