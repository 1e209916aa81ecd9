package manipulate

import (
	"time"

	"github.com/benedoc-inc/pdfwm/core/parse"
	"github.com/benedoc-inc/pdfwm/types"
)

// assemble fills the writer with the output object graph: the catalog, a
// flat page tree node, every page and everything reachable from them
func (d *Document) assemble() error {
	rootRef, ok := d.pdf.Trailer()["Root"].(parse.Reference)
	if !ok {
		return types.NewPDFError(types.ErrCodeMalformedPDF, "trailer has no /Root")
	}
	catalog, err := d.pdf.Catalog()
	if err != nil {
		return types.WrapError(types.ErrCodeMalformedPDF, "cannot read catalog", err)
	}

	w := d.writer
	pagesRef := parse.Reference{Number: d.pagesRoot}
	seen := map[int]bool{rootRef.Number: true, d.pagesRoot: true}
	var queue []parse.Object

	kids := make(parse.Array, 0, len(d.pages))
	for _, page := range d.pages {
		page.dict["Parent"] = pagesRef
		w.SetObject(page.ObjectNumber, page.dict)
		kids = append(kids, parse.Reference{Number: page.ObjectNumber})
		seen[page.ObjectNumber] = true
		queue = append(queue, page.dict)
	}
	w.SetObject(d.pagesRoot, parse.Dict{
		"Type":  parse.Name("Pages"),
		"Kids":  kids,
		"Count": parse.Integer(len(d.pages)),
	})

	cat := copyDict(catalog)
	cat["Pages"] = pagesRef
	w.SetObject(rootRef.Number, cat)
	w.SetRoot(rootRef.Number)
	queue = append(queue, cat)

	copied := 0
	for len(queue) > 0 {
		obj := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		visitRefs(obj, func(ref parse.Reference) {
			if seen[ref.Number] {
				return
			}
			seen[ref.Number] = true
			if existing, ok := w.GetObject(ref.Number); ok {
				queue = append(queue, existing)
				return
			}
			src, err := d.pdf.GetObject(ref.Number)
			if err != nil {
				d.log.Debug().Err(err).Int("object", ref.Number).Msg("dropping unresolvable reference")
				return
			}
			c := copyValue(src)
			w.SetObject(ref.Number, c)
			queue = append(queue, c)
			copied++
		})
	}

	if d.infoNum == 0 {
		info, _ := d.pdf.ResolveDict(d.pdf.Trailer()["Info"])
		modTime := d.opts.ModTime
		if modTime.IsZero() {
			modTime = time.Now()
		}
		d.infoNum = w.SetMetadata(info, d.opts.Producer, modTime)
	}

	version := d.pdf.Version()
	if d.opts.ObjectStreams && version < "1.5" {
		version = "1.5"
	}
	w.SetVersion(version)
	w.UseObjectStream(d.opts.ObjectStreams)
	w.SetFileID(d.fileID())

	d.log.Debug().
		Int("pages", len(d.pages)).
		Int("copied", copied).
		Bool("object_streams", d.opts.ObjectStreams).
		Msg("output assembled")
	return nil
}
