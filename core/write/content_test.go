package write

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/rect"

	"github.com/benedoc-inc/pdfwm/core/parse"
)

func TestContentStream(t *testing.T) {
	cs := NewContentStream().
		SaveState().
		SetGraphicsState("GS0").
		Transform(matrix.Identity).
		Transform(matrix.Matrix{0, 1, -1, 0, 842, 0}).
		Translate(1.23456, -0.00001).
		SetMatrix(842, 0, 0, 842, -123.5, 0).
		DrawXObject("Wm1").
		RestoreState().
		Raw("% done")

	want := "q\n" +
		"/GS0 gs\n" +
		"0 1 -1 0 842 0 cm\n" +
		"1 0 0 1 1.2346 0 cm\n" +
		"842 0 0 842 -123.5 0 cm\n" +
		"/Wm1 Do\n" +
		"Q\n" +
		"% done\n"
	if got := cs.String(); got != want {
		t.Errorf("content mismatch:\n%s", cmp.Diff(want, got))
	}
	if string(cs.Bytes()) != want {
		t.Error("Bytes() and String() disagree")
	}
}

func TestFormatOperand(t *testing.T) {
	tests := map[float64]string{
		0:         "0",
		-0.00001:  "0",
		595:       "595",
		297.5:     "297.5",
		0.123456:  "0.1235",
		-123.5:    "-123.5",
		935.40001: "935.4",
	}
	for in, want := range tests {
		if got := formatOperand(in); got != want {
			t.Errorf("formatOperand(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestAddFormXObject(t *testing.T) {
	w := NewPDFWriter()
	gs := w.AddExtGState(0.25)
	bbox := rect.Rect{URx: 842, URy: 595}
	res := parse.Dict{"ExtGState": parse.Dict{"GS0": parse.Reference{Number: gs}}}
	num := w.AddFormXObject(bbox, res, []byte("q Q"))

	obj, ok := w.GetObject(num)
	if !ok {
		t.Fatal("form not stored")
	}
	form := obj.(*parse.Stream)
	if st, _ := form.Dict.GetName("Subtype"); st != "Form" {
		t.Errorf("/Subtype = %q", st)
	}
	if diff := cmp.Diff(RectArray(bbox), form.Dict["BBox"]); diff != "" {
		t.Errorf("/BBox mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(res, form.Dict["Resources"]); diff != "" {
		t.Errorf("/Resources mismatch (-want +got):\n%s", diff)
	}
	data, err := parse.DecodeStream(form)
	if err != nil || string(data) != "q Q" {
		t.Errorf("form content = %q, %v", data, err)
	}

	state, _ := w.GetObject(gs)
	want := parse.Dict{"Type": parse.Name("ExtGState"), "ca": parse.Real(0.25), "CA": parse.Real(0.25)}
	if diff := cmp.Diff(want, state); diff != "" {
		t.Errorf("ExtGState mismatch (-want +got):\n%s", diff)
	}
}
