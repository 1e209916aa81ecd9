package parse

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/benedoc-inc/pdfwm/types"
)

// buildFile writes objects numbered from 1 followed by a classic xref table
// and a trailer with the given entries. It returns the file and the offset
// of every object.
func buildFile(objects []string, trailer string) ([]byte, []int) {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	buf.Write([]byte{0x25, 0xE2, 0xE3, 0xCF, 0xD3, 0x0A})

	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<</Size %d %s>>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, trailer, xref)
	return buf.Bytes(), offsets
}

var basicObjects = []string{
	"<</Type/Catalog/Pages 2 0 R>>",
	"<</Type/Pages/Kids[3 0 R]/Count 1>>",
	"<</Type/Page/Parent 2 0 R/MediaBox[0 0 612 792]>>",
}

func TestOpen(t *testing.T) {
	data, _ := buildFile(basicObjects, "/Root 1 0 R")

	pdf, err := Open(data)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if v := pdf.Version(); v != "1.4" {
		t.Errorf("Version() = %q, want %q", v, "1.4")
	}
	if n := pdf.RevisionCount(); n != 1 {
		t.Errorf("RevisionCount() = %d, want 1", n)
	}
	if pdf.Recovered() {
		t.Error("Recovered() = true for a well-formed file")
	}
	if diff := cmp.Diff([]int{1, 2, 3}, pdf.Objects()); diff != "" {
		t.Errorf("Objects() mismatch (-want +got):\n%s", diff)
	}
	if n := pdf.MaxObjectNumber(); n != 3 {
		t.Errorf("MaxObjectNumber() = %d, want 3", n)
	}

	catalog, err := pdf.Catalog()
	if err != nil {
		t.Fatalf("Catalog() error = %v", err)
	}
	if typ, _ := catalog.GetName("Type"); typ != "Catalog" {
		t.Errorf("Catalog /Type = %q", typ)
	}

	page, err := pdf.ResolveDict(Reference{Number: 3})
	if err != nil {
		t.Fatalf("ResolveDict(3) error = %v", err)
	}
	want := Array{Integer(0), Integer(0), Integer(612), Integer(792)}
	if diff := cmp.Diff(want, page["MediaBox"]); diff != "" {
		t.Errorf("MediaBox mismatch (-want +got):\n%s", diff)
	}
}

func TestGetObject_Missing(t *testing.T) {
	data, _ := buildFile(basicObjects, "/Root 1 0 R")
	pdf, err := Open(data)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if _, err := pdf.GetObject(99); !errors.Is(err, types.ErrObjectNotFound) {
		t.Errorf("GetObject(99) error = %v, want OBJECT_NOT_FOUND", err)
	}

	obj, err := pdf.Resolve(Reference{Number: 99})
	if err != nil || obj != nil {
		t.Errorf("Resolve(dangling) = %v, %v; want nil, nil", obj, err)
	}

	if _, err := pdf.ResolveDict(Integer(3)); err == nil {
		t.Error("ResolveDict(Integer) should fail")
	}
}

func TestGetObject_MisplacedOffset(t *testing.T) {
	data, offsets := buildFile(basicObjects, "/Root 1 0 R")
	// Point object 3 at object 2
	wrong := fmt.Sprintf("%010d 00000 n \n%010d 00000 n \n", offsets[1], offsets[1])
	right := fmt.Sprintf("%010d 00000 n \n%010d 00000 n \n", offsets[1], offsets[2])
	data = bytes.Replace(data, []byte(right), []byte(wrong), 1)

	pdf, err := Open(data)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	page, err := pdf.ResolveDict(Reference{Number: 3})
	if err != nil {
		t.Fatalf("ResolveDict(3) error = %v", err)
	}
	if typ, _ := page.GetName("Type"); typ != "Page" {
		t.Errorf("object 3 /Type = %q, want Page", typ)
	}
}

func TestOpen_IncrementalUpdate(t *testing.T) {
	base, _ := buildFile(basicObjects, "/Root 1 0 R")
	prevXRef, err := findLastStartXRef(base)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	buf.Write(base)
	objOffset := buf.Len()
	buf.WriteString("3 0 obj\n<</Type/Page/Parent 2 0 R/MediaBox[0 0 612 792]/Rotate 90>>\nendobj\n")
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n3 1\n%010d 00000 n \n", objOffset)
	fmt.Fprintf(&buf, "trailer\n<</Size 4/Root 1 0 R/Prev %d>>\nstartxref\n%d\n%%%%EOF\n", prevXRef, xref)

	pdf, err := Open(buf.Bytes())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if n := pdf.RevisionCount(); n != 2 {
		t.Errorf("RevisionCount() = %d, want 2", n)
	}
	if _, ok := pdf.Trailer()["Prev"]; ok {
		t.Error("merged trailer should not carry /Prev")
	}

	page, err := pdf.ResolveDict(Reference{Number: 3})
	if err != nil {
		t.Fatalf("ResolveDict(3) error = %v", err)
	}
	if rot, _ := page.GetInt("Rotate"); rot != 90 {
		t.Errorf("updated page /Rotate = %d, want 90", rot)
	}
}

func TestOpen_Recovery(t *testing.T) {
	t.Run("bad startxref", func(t *testing.T) {
		var buf bytes.Buffer
		buf.WriteString("%PDF-1.3\n")
		for i, body := range basicObjects {
			fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
		}
		buf.WriteString("trailer\n<</Size 4/Root 1 0 R>>\nstartxref\n0\n%%EOF\n")

		pdf, err := Open(buf.Bytes())
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if !pdf.Recovered() {
			t.Error("Recovered() = false, want true")
		}
		if _, err := pdf.Catalog(); err != nil {
			t.Errorf("Catalog() error = %v", err)
		}
	})

	t.Run("no trailer", func(t *testing.T) {
		var buf bytes.Buffer
		buf.WriteString("%PDF-1.3\n")
		for i, body := range basicObjects {
			fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
		}

		pdf, err := Open(buf.Bytes())
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if diff := cmp.Diff(Reference{Number: 1}, pdf.Trailer()["Root"]); diff != "" {
			t.Errorf("recovered /Root mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("trailer without root", func(t *testing.T) {
		data, _ := buildFile(basicObjects, "")
		pdf, err := Open(data)
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		if _, err := pdf.Catalog(); err != nil {
			t.Errorf("Catalog() error = %v", err)
		}
	})
}

func TestOpen_Rejects(t *testing.T) {
	encrypted, _ := buildFile(append(basicObjects, "<</Filter/Standard/V 2>>"), "/Root 1 0 R /Encrypt 4 0 R")

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"not a PDF", []byte("hello world, no header here"), types.ErrMalformedPDF},
		{"too short", []byte("%PDF"), types.ErrMalformedPDF},
		{"no objects", []byte("%PDF-1.4\nthis file has no objects at all\n%%EOF\n"), types.ErrMalformedPDF},
		{"encrypted", encrypted, types.ErrEncrypted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("Open() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStreamLength(t *testing.T) {
	objects := append([]string{}, basicObjects...)
	objects = append(objects,
		"<</Length 5 0 R>>\nstream\nhello\nendstream",
		"5",
		"<</Length 99>>\nstream\nworld\nendstream",
	)
	data, _ := buildFile(objects, "/Root 1 0 R")

	pdf, err := Open(data)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	for num, want := range map[int]string{4: "hello", 6: "world"} {
		obj, err := pdf.GetObject(num)
		if err != nil {
			t.Fatalf("GetObject(%d) error = %v", num, err)
		}
		stream, ok := obj.(*Stream)
		if !ok {
			t.Fatalf("object %d is %T, want *Stream", num, obj)
		}
		if string(stream.Raw) != want {
			t.Errorf("object %d data = %q, want %q", num, stream.Raw, want)
		}
	}
}

func TestStreamLength_ReferenceCycle(t *testing.T) {
	objects := append([]string{}, basicObjects...)
	objects = append(objects,
		"<</Length 4 0 R>>\nstream\nself\nendstream",
		"<</Length 6 0 R>>\nstream\nfirst\nendstream",
		"<</Length 5 0 R>>\nstream\nsecond\nendstream",
	)
	data, _ := buildFile(objects, "/Root 1 0 R")

	pdf, err := Open(data)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	// A /Length that cannot be resolved falls back to the endstream keyword
	for num, want := range map[int]string{4: "self", 5: "first", 6: "second"} {
		obj, err := pdf.GetObject(num)
		if err != nil {
			t.Fatalf("GetObject(%d) error = %v", num, err)
		}
		stream, ok := obj.(*Stream)
		if !ok {
			t.Fatalf("object %d is %T, want *Stream", num, obj)
		}
		if string(stream.Raw) != want {
			t.Errorf("object %d data = %q, want %q", num, stream.Raw, want)
		}
	}
}

func TestObjectStream_ContainsItself(t *testing.T) {
	tests := []struct {
		name  string
		xref  map[int]xrefEntry
		fetch int
	}{
		{"self", map[int]xrefEntry{4: {Type: 2, StreamNum: 4}}, 4},
		{"mutual", map[int]xrefEntry{4: {Type: 2, StreamNum: 5}, 5: {Type: 2, StreamNum: 4}}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, _ := buildFile(basicObjects, "/Root 1 0 R")
			pdf, err := Open(data)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			for num, e := range tt.xref {
				pdf.xref[num] = e
			}

			_, err = pdf.GetObject(tt.fetch)
			if !errors.Is(err, types.ErrMalformedPDF) {
				t.Errorf("GetObject(%d) error = %v, want MALFORMED_PDF", tt.fetch, err)
			}
		})
	}
}

func TestDecodeObjectStream_BadHeader(t *testing.T) {
	tests := []struct {
		name string
		dict Dict
		raw  string
	}{
		{"negative offset", Dict{"N": Integer(1), "First": Integer(7)}, "12 -40 <<>>"},
		{"huge count", Dict{"N": Integer(1 << 40), "First": Integer(4)}, "12 0 <<>>"},
		{"count beyond header", Dict{"N": Integer(3), "First": Integer(4)}, "12 0 <<>>"},
		{"missing first", Dict{"N": Integer(1)}, "12 0 <<>>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := decodeObjectStream(&Stream{Dict: tt.dict, Raw: []byte(tt.raw)}); err == nil {
				t.Error("decodeObjectStream() succeeded, want error")
			}
		})
	}
}
