package write

import (
	"fmt"
	"time"

	"github.com/benedoc-inc/pdfwm/core/parse"
)

// SetMetadata writes an Info dictionary based on base (which may be nil),
// with /Producer replaced and /ModDate set to modified. Returns the object
// number.
func (w *PDFWriter) SetMetadata(base parse.Dict, producer string, modified time.Time) int {
	dict := parse.Dict{}
	for k, v := range base {
		// Only plain values survive; references would point into the source file
		switch v.(type) {
		case parse.String, parse.Name, parse.Integer, parse.Real, parse.Bool:
			dict[k] = v
		}
	}
	if producer != "" {
		dict["Producer"] = parse.String(producer)
	}
	dict["ModDate"] = parse.String(FormatPDFDate(modified))

	objNum := w.AddObject(dict)
	w.SetInfo(objNum)
	return objNum
}

// FormatPDFDate formats t as a PDF date string, D:YYYYMMDDHHmmSSOHH'mm'
func FormatPDFDate(t time.Time) string {
	_, offset := t.Zone()
	sign := '+'
	if offset < 0 {
		sign = '-'
		offset = -offset
	}
	if offset == 0 {
		return "D:" + t.Format("20060102150405") + "Z"
	}
	return fmt.Sprintf("D:%s%c%02d'%02d'", t.Format("20060102150405"), sign, offset/3600, (offset%3600)/60)
}
