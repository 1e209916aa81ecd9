package write

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/geom/rect"

	"github.com/benedoc-inc/pdfwm/core/parse"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		value parse.Object
		want  string
	}{
		{"null", nil, "null"},
		{"bool", parse.Bool(true), "true"},
		{"integer", parse.Integer(-7), "-7"},
		{"whole real", parse.Real(842), "842"},
		{"fraction", parse.Real(-123.5), "-123.5"},
		{"nan", parse.Real(math.NaN()), "0"},
		{"string", parse.String("a)"), "<6129>"},
		{"name", parse.Name("Wm1"), "/Wm1"},
		{"escaped name", parse.Name("A B#"), "/A#20B#23"},
		{"reference", parse.Reference{Number: 3}, "3 0 R"},
		{"array", parse.Array{parse.Integer(1), parse.Name("X")}, "[1 /X]"},
		{"sorted dict", parse.Dict{"B": parse.Name("x"), "A": parse.Integer(1)}, "<</A 1 /B /x >>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatValue(tt.value)
			if err != nil {
				t.Fatalf("FormatValue() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("FormatValue() = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := FormatValue(&parse.Stream{}); err == nil {
		t.Error("FormatValue(stream) should fail")
	}
	if _, err := FormatValue(struct{}{}); err == nil {
		t.Error("FormatValue(struct) should fail")
	}
}

func TestWrite_NoRoot(t *testing.T) {
	w := NewPDFWriter()
	w.AddObject(parse.Dict{})
	if _, err := w.Bytes(); err == nil {
		t.Error("Bytes() without a root should fail")
	}
}

func TestWriter_ObjectNumbers(t *testing.T) {
	w := NewPDFWriter()
	if n := w.AddObject(parse.Integer(1)); n != 1 {
		t.Errorf("first object = %d, want 1", n)
	}
	w.SkipTo(10)
	if n := w.ReserveObject(); n != 10 {
		t.Errorf("after SkipTo(10) = %d, want 10", n)
	}
	w.SkipTo(5)
	if n := w.NextObjectNumber(); n != 11 {
		t.Errorf("SkipTo must not move backwards, next = %d", n)
	}
	w.SetObject(20, parse.Integer(2))
	if n := w.NextObjectNumber(); n != 21 {
		t.Errorf("next after SetObject(20) = %d, want 21", n)
	}
	if v, ok := w.GetObject(20); !ok || v != parse.Integer(2) {
		t.Errorf("GetObject(20) = %v, %v", v, ok)
	}
}

// buildTwoPages writes an A4 page inheriting /Rotate 90 and a landscape
// page with its own crop box
func buildTwoPages(t *testing.T, configure func(*PDFWriter)) []byte {
	t.Helper()
	b := NewSimplePDFBuilder()
	if configure != nil {
		configure(b.Writer())
	}
	b.SetInheritable("Rotate", parse.Integer(90))

	first := b.AddPage(PageSizeA4)
	first.Content().Rectangle(0, 0, 10, 10)
	b.FinalizePage(first)

	second := b.AddPage(PageSizeA4.Landscape()).SetCropBox(rect.Rect{LLx: 10, LLy: 10, URx: 100, URy: 200}).SetRotate(0)
	b.FinalizePage(second)

	data, err := b.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	return data
}

func checkTwoPages(t *testing.T, data []byte) *parse.PDF {
	t.Helper()
	pdf, err := parse.Open(data)
	if err != nil {
		t.Fatalf("parse.Open() error = %v", err)
	}
	catalog, err := pdf.Catalog()
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}
	pages, err := pdf.ResolveDict(catalog["Pages"])
	if err != nil {
		t.Fatalf("Pages error = %v", err)
	}
	if n, _ := pages.GetInt("Count"); n != 2 {
		t.Errorf("/Count = %d, want 2", n)
	}
	if r, _ := pages.GetInt("Rotate"); r != 90 {
		t.Errorf("inherited /Rotate = %d, want 90", r)
	}

	kids := pages["Kids"].(parse.Array)
	second, err := pdf.ResolveDict(kids[1])
	if err != nil {
		t.Fatalf("second page error = %v", err)
	}
	want := parse.Array{parse.Integer(10), parse.Integer(10), parse.Integer(100), parse.Integer(200)}
	if diff := cmp.Diff(want, second["CropBox"]); diff != "" {
		t.Errorf("CropBox mismatch (-want +got):\n%s", diff)
	}
	if r, ok := second.GetInt("Rotate"); !ok || r != 0 {
		t.Errorf("own /Rotate = %d, %v; want 0", r, ok)
	}

	first, err := pdf.ResolveDict(kids[0])
	if err != nil {
		t.Fatalf("first page error = %v", err)
	}
	contents, err := pdf.Resolve(first["Contents"])
	if err != nil {
		t.Fatalf("Contents error = %v", err)
	}
	data, err = parse.DecodeStream(contents.(*parse.Stream))
	if err != nil {
		t.Fatalf("DecodeStream() error = %v", err)
	}
	if string(data) != "0 0 10 10 re\n" {
		t.Errorf("content = %q", data)
	}
	return pdf
}

func TestWrite_ClassicXRef(t *testing.T) {
	data := buildTwoPages(t, nil)
	if !bytes.HasPrefix(data, []byte("%PDF-1.7\n")) {
		t.Errorf("header = %q", data[:9])
	}
	if !bytes.Contains(data, []byte("\ntrailer\n")) {
		t.Error("classic file should have a trailer keyword")
	}
	checkTwoPages(t, data)
}

func TestWrite_XRefStream(t *testing.T) {
	data := buildTwoPages(t, func(w *PDFWriter) {
		w.UseXRefStream(true)
		w.SetVersion("1.5")
	})
	if bytes.Contains(data, []byte("\ntrailer\n")) {
		t.Error("xref stream file should not have a trailer keyword")
	}
	if !bytes.Contains(data, []byte("/XRef")) {
		t.Error("missing /Type /XRef")
	}
	pdf := checkTwoPages(t, data)
	if pdf.Version() != "1.5" {
		t.Errorf("Version() = %q", pdf.Version())
	}
}

func TestWrite_ObjectStreams(t *testing.T) {
	id := []byte("0123456789abcdef")
	data := buildTwoPages(t, func(w *PDFWriter) {
		w.UseObjectStream(true)
		w.SetFileID(id)
	})
	if !bytes.Contains(data, []byte("/ObjStm")) {
		t.Fatal("missing object stream")
	}
	// Dictionaries are packed, so none appear as top-level objects
	if bytes.Contains(data, []byte("/Type /Catalog")) {
		t.Error("catalog should be inside the object stream")
	}

	pdf := checkTwoPages(t, data)
	ids, ok := pdf.Trailer()["ID"].(parse.Array)
	if !ok || len(ids) != 2 {
		t.Fatalf("trailer /ID = %v", pdf.Trailer()["ID"])
	}
	if diff := cmp.Diff(parse.String(id), ids[0]); diff != "" {
		t.Errorf("/ID mismatch (-want +got):\n%s", diff)
	}
}

func TestWrite_WriteError(t *testing.T) {
	w := NewPDFWriter()
	w.SetRoot(w.AddObject(parse.Dict{"Type": parse.Name("Catalog")}))
	want := errors.New("disk full")
	if err := w.Write(failingWriter{want}); !errors.Is(err, want) {
		t.Errorf("Write() error = %v, want %v", err, want)
	}
}

type failingWriter struct{ err error }

func (f failingWriter) Write([]byte) (int, error) { return 0, f.err }

func TestPageBuilder_InheritedMediaBox(t *testing.T) {
	b := NewSimplePDFBuilder()
	b.SetInheritable("MediaBox", RectArray(PageSizeF4.Rect()))
	b.FinalizePage(b.AddPage(PageSizeA4).SetMediaBox(nil))
	data, err := b.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	pdf, err := parse.Open(data)
	if err != nil {
		t.Fatalf("parse.Open() error = %v", err)
	}
	page, err := pdf.ResolveDict(parse.Reference{Number: b.Pages()[0]})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := page["MediaBox"]; ok {
		t.Error("page should inherit /MediaBox, not carry its own")
	}
	if !strings.Contains(string(data), "935.4") {
		t.Error("inherited F4 media box not written")
	}
}
