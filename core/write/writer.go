// Package write serializes PDF object graphs: plain and stream objects,
// cross-reference tables or streams, image and form XObjects.
package write

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/benedoc-inc/pdfwm/core/parse"
)

// PDFObject is one indirect object scheduled for output. Value is either a
// direct object or a *parse.Stream whose Raw data is already encoded.
type PDFObject struct {
	Number     int
	Generation int
	Value      parse.Object
}

// PDFWriter builds PDF files from objects
type PDFWriter struct {
	objects         map[int]*PDFObject
	nextObjNum      int
	rootRef         *parse.Reference
	infoRef         *parse.Reference
	fileID          []byte
	pdfVersion      string
	useXRefStream   bool // write a cross-reference stream instead of a table
	useObjectStream bool // pack non-stream objects into an object stream
	objStmNum       int
}

// NewPDFWriter creates a new PDF writer
func NewPDFWriter() *PDFWriter {
	return &PDFWriter{
		objects:    make(map[int]*PDFObject),
		nextObjNum: 1,
		pdfVersion: "1.7",
	}
}

// SetVersion sets the PDF version written in the header (e.g. "1.7")
func (w *PDFWriter) SetVersion(version string) {
	w.pdfVersion = version
}

// SetFileID sets the first and second /ID entries of the trailer
func (w *PDFWriter) SetFileID(id []byte) {
	w.fileID = id
}

// UseXRefStream enables cross-reference stream writing (PDF 1.5+)
func (w *PDFWriter) UseXRefStream(enable bool) {
	w.useXRefStream = enable
}

// UseObjectStream packs non-stream objects into an object stream. Object
// streams require an xref stream, so this enables one as well.
func (w *PDFWriter) UseObjectStream(enable bool) {
	w.useObjectStream = enable
	if enable {
		w.useXRefStream = true
	}
}

// ReserveObject allocates an object number to be filled in later with
// SetObject
func (w *PDFWriter) ReserveObject() int {
	objNum := w.nextObjNum
	w.nextObjNum++
	return objNum
}

// SkipTo makes the next allocated object number at least n. Use it before
// adding objects to a file whose existing numbers are kept.
func (w *PDFWriter) SkipTo(n int) {
	if n > w.nextObjNum {
		w.nextObjNum = n
	}
}

// AddObject adds a new object and returns its object number
func (w *PDFWriter) AddObject(value parse.Object) int {
	objNum := w.ReserveObject()
	w.objects[objNum] = &PDFObject{Number: objNum, Value: value}
	return objNum
}

// SetObject sets or replaces the object at objNum
func (w *PDFWriter) SetObject(objNum int, value parse.Object) {
	w.objects[objNum] = &PDFObject{Number: objNum, Value: value}
	if objNum >= w.nextObjNum {
		w.nextObjNum = objNum + 1
	}
}

// AddStreamObject adds a stream object, optionally Flate-compressing data
func (w *PDFWriter) AddStreamObject(dict parse.Dict, data []byte, compress bool) int {
	objNum := w.ReserveObject()
	w.SetStreamObject(objNum, dict, data, compress)
	return objNum
}

// SetStreamObject sets a stream object at a specific number
func (w *PDFWriter) SetStreamObject(objNum int, dict parse.Dict, data []byte, compress bool) {
	if dict == nil {
		dict = parse.Dict{}
	}
	streamData := data
	if compress && len(data) > 0 {
		streamData = deflate(data)
		dict["Filter"] = parse.Name("FlateDecode")
	}
	w.SetObject(objNum, &parse.Stream{Dict: dict, Raw: streamData})
}

func deflate(data []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(data)
	zw.Close()
	return buf.Bytes()
}

// SetRoot sets the root (catalog) object reference
func (w *PDFWriter) SetRoot(objNum int) {
	w.rootRef = &parse.Reference{Number: objNum}
}

// SetInfo sets the info dictionary object reference
func (w *PDFWriter) SetInfo(objNum int) {
	w.infoRef = &parse.Reference{Number: objNum}
}

// NextObjectNumber returns the next available object number
func (w *PDFWriter) NextObjectNumber() int {
	return w.nextObjNum
}

// GetObject returns the value stored at objNum
func (w *PDFWriter) GetObject(objNum int) (parse.Object, bool) {
	obj, ok := w.objects[objNum]
	if !ok {
		return nil, false
	}
	return obj.Value, true
}

// Bytes returns the complete PDF as a byte slice
func (w *PDFWriter) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := w.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write outputs the complete PDF to out
func (w *PDFWriter) Write(out io.Writer) error {
	if w.rootRef == nil {
		return fmt.Errorf("no root object set")
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n", w.pdfVersion)
	buf.Write([]byte{0x25, 0xE2, 0xE3, 0xCF, 0xD3, 0x0A}) // binary marker

	packed, err := w.createObjectStreams()
	if err != nil {
		return fmt.Errorf("failed to create object streams: %v", err)
	}

	var objNums []int
	for num := range w.objects {
		objNums = append(objNums, num)
	}
	sort.Ints(objNums)

	positions := make(map[int]int64)
	for _, objNum := range objNums {
		if _, inStream := packed[objNum]; inStream {
			continue
		}
		obj := w.objects[objNum]
		positions[objNum] = int64(buf.Len())
		fmt.Fprintf(&buf, "%d %d obj\n", objNum, obj.Generation)
		if err := writeIndirectValue(&buf, obj.Value); err != nil {
			return fmt.Errorf("object %d: %v", objNum, err)
		}
		buf.WriteString("\nendobj\n")
	}

	var xrefPos int64
	if w.useXRefStream {
		xrefPos, err = w.writeXRefStream(&buf, positions, packed)
		if err != nil {
			return fmt.Errorf("failed to write xref stream: %v", err)
		}
	} else {
		xrefPos = int64(buf.Len())
		buf.WriteString("xref\n")
		fmt.Fprintf(&buf, "0 %d\n", w.nextObjNum)
		fmt.Fprintf(&buf, "%010d %05d f \n", 0, 65535)
		for i := 1; i < w.nextObjNum; i++ {
			if pos, ok := positions[i]; ok {
				fmt.Fprintf(&buf, "%010d %05d n \n", pos, 0)
			} else {
				fmt.Fprintf(&buf, "%010d %05d f \n", 0, 1)
			}
		}
		buf.WriteString("trailer\n")
		writeValue(&buf, w.trailerDict(w.nextObjNum))
		buf.WriteString("\n")
	}

	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", xrefPos)

	_, err = out.Write(buf.Bytes())
	return err
}

func (w *PDFWriter) trailerDict(size int) parse.Dict {
	trailer := parse.Dict{
		"Size": parse.Integer(size),
		"Root": *w.rootRef,
	}
	if w.infoRef != nil {
		trailer["Info"] = *w.infoRef
	}
	if len(w.fileID) > 0 {
		trailer["ID"] = parse.Array{parse.String(w.fileID), parse.String(w.fileID)}
	}
	return trailer
}

// writeIndirectValue writes the body of an indirect object
func writeIndirectValue(buf *bytes.Buffer, value parse.Object) error {
	stream, ok := value.(*parse.Stream)
	if !ok {
		return writeValue(buf, value)
	}
	dict := stream.Dict.Clone()
	dict["Length"] = parse.Integer(len(stream.Raw))
	if err := writeValue(buf, dict); err != nil {
		return err
	}
	buf.WriteString("\nstream\n")
	buf.Write(stream.Raw)
	buf.WriteString("\nendstream")
	return nil
}

// FormatValue returns the PDF syntax for a direct object
func FormatValue(value parse.Object) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, value); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeValue formats a direct object. Dictionary keys are sorted for
// consistent output.
func writeValue(buf *bytes.Buffer, value parse.Object) error {
	switch v := value.(type) {
	case nil:
		buf.WriteString("null")
	case parse.Bool:
		buf.WriteString(strconv.FormatBool(bool(v)))
	case bool:
		buf.WriteString(strconv.FormatBool(v))
	case parse.Integer:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case int:
		buf.WriteString(strconv.Itoa(v))
	case parse.Real:
		buf.WriteString(formatReal(float64(v)))
	case float64:
		buf.WriteString(formatReal(v))
	case parse.String:
		fmt.Fprintf(buf, "<%X>", []byte(v))
	case parse.Name:
		writeName(buf, v)
	case parse.Reference:
		fmt.Fprintf(buf, "%d %d R", v.Number, v.Generation)
	case parse.Array:
		buf.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				buf.WriteByte(' ')
			}
			if err := writeValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case parse.Dict:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, string(k))
		}
		sort.Strings(keys)
		buf.WriteString("<<")
		for _, k := range keys {
			writeName(buf, parse.Name(k))
			buf.WriteByte(' ')
			if err := writeValue(buf, v[parse.Name(k)]); err != nil {
				return err
			}
			buf.WriteByte(' ')
		}
		buf.WriteString(">>")
	case *parse.Stream:
		return fmt.Errorf("stream objects must be indirect")
	default:
		return fmt.Errorf("unsupported value type %T", value)
	}
	return nil
}

func formatReal(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "0"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// writeName writes a name, escaping bytes that cannot appear literally
func writeName(buf *bytes.Buffer, n parse.Name) {
	buf.WriteByte('/')
	for i := 0; i < len(n); i++ {
		c := n[i]
		if c < 0x21 || c > 0x7E || c == '#' || bytes.IndexByte([]byte("()<>[]{}/%"), c) >= 0 {
			fmt.Fprintf(buf, "#%02X", c)
			continue
		}
		buf.WriteByte(c)
	}
}
