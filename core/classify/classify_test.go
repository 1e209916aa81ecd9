package classify

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"seehuhn.de/go/geom/rect"
)

func box(w, h float64) rect.Rect {
	return rect.Rect{URx: w, URy: h}
}

func TestClassify(t *testing.T) {
	c := DefaultClassifier()

	tests := []struct {
		name    string
		box     rect.Rect
		rotate  int
		class   SizeClass
		matched bool
	}{
		{"A4 portrait", box(595, 842), 0, A4Portrait, true},
		{"A4 landscape", box(842, 595), 0, A4Landscape, true},
		{"A4 landscape box rotated 90", box(842, 595), 90, A4Portrait, true},
		{"A4 portrait box rotated 270", box(595, 842), 270, A4Landscape, true},
		{"A4 portrait rotated 180", box(595, 842), 180, A4Portrait, true},
		{"F4 portrait", box(595, 935), 0, F4Portrait, true},
		{"F4 landscape", box(935, 595), 0, F4Landscape, true},
		{"F4 portrait rotated 90", box(595, 935), 90, F4Landscape, true},
		{"letter falls back to A4", box(612, 792), 0, A4Portrait, false},
		{"legal falls back to A4", box(612, 1008), 0, A4Portrait, false},
		{"square is landscape", box(500, 500), 0, A4Landscape, false},
		{"degenerate box", box(0, 0), 0, A4Landscape, false},
		{"zero height", box(300, 0), 0, A4Landscape, false},
		{"offset box", rect.Rect{LLx: 10, LLy: 20, URx: 605, URy: 862}, 0, A4Portrait, true},
		{"inverted box", rect.Rect{LLx: 595, LLy: 842, URx: 0, URy: 0}, 0, A4Portrait, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewPageGeometry(tt.box, tt.rotate)
			res := c.Evaluate(g)
			if res.Class != tt.class {
				t.Errorf("Expected class %s, got %s (ratio %.4f)", tt.class, res.Class, res.Ratio)
			}
			if res.Matched != tt.matched {
				t.Errorf("Expected matched=%v, got %v", tt.matched, res.Matched)
			}
			if got := Classify(g, A4Ratio, F4Ratio, DefaultTolerance); got != res.Class {
				t.Errorf("Classify() = %s, Evaluate() = %s", got, res.Class)
			}
		})
	}
}

func TestClassify_ToleranceBand(t *testing.T) {
	c := DefaultClassifier()

	// 1000 / 707 is just inside the A4 band, 1000 / 680 just outside
	inside := NewPageGeometry(box(707, 1000), 0)
	if res := c.Evaluate(inside); !res.Matched || res.Class != A4Portrait {
		t.Errorf("Expected matched A4P for ratio %.4f, got %+v", inside.Ratio(), res)
	}

	outside := NewPageGeometry(box(680, 1000), 0)
	if res := c.Evaluate(outside); res.Matched {
		t.Errorf("Expected fallback for ratio %.4f, got %+v", outside.Ratio(), res)
	}
}

func TestClassify_A4WinsTie(t *testing.T) {
	c := Classifier{A4Ratio: 1.25, F4Ratio: 1.75, Tolerance: 0.25}
	g := NewPageGeometry(box(100, 150), 0)

	res := c.Evaluate(g)
	if res.Class != A4Portrait || !res.Matched {
		t.Errorf("Expected equidistant ratio to match A4, got %+v", res)
	}
}

func TestClassify_Idempotent(t *testing.T) {
	c := DefaultClassifier()
	g := NewPageGeometry(box(600, 930), 90)

	first := c.Evaluate(g)
	for i := 0; i < 10; i++ {
		if diff := cmp.Diff(first, c.Evaluate(g)); diff != "" {
			t.Fatalf("classification changed (-first +again):\n%s", diff)
		}
	}
}

func TestNewPageGeometry(t *testing.T) {
	tests := []struct {
		rotate int
		want   PageGeometry
	}{
		{0, PageGeometry{Box: box(842, 595), RawWidth: 842, RawHeight: 595, Rotation: 0, EffectiveWidth: 842, EffectiveHeight: 595}},
		{90, PageGeometry{Box: box(842, 595), RawWidth: 842, RawHeight: 595, Rotation: 90, EffectiveWidth: 595, EffectiveHeight: 842}},
		{180, PageGeometry{Box: box(842, 595), RawWidth: 842, RawHeight: 595, Rotation: 180, EffectiveWidth: 842, EffectiveHeight: 595}},
		{270, PageGeometry{Box: box(842, 595), RawWidth: 842, RawHeight: 595, Rotation: 270, EffectiveWidth: 595, EffectiveHeight: 842}},
		{-90, PageGeometry{Box: box(842, 595), RawWidth: 842, RawHeight: 595, Rotation: 270, EffectiveWidth: 595, EffectiveHeight: 842}},
		{450, PageGeometry{Box: box(842, 595), RawWidth: 842, RawHeight: 595, Rotation: 90, EffectiveWidth: 595, EffectiveHeight: 842}},
		{45, PageGeometry{Box: box(842, 595), RawWidth: 842, RawHeight: 595, Rotation: 0, EffectiveWidth: 842, EffectiveHeight: 595}},
	}

	for _, tt := range tests {
		got := NewPageGeometry(box(842, 595), tt.rotate)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("rotate %d (-want +got):\n%s", tt.rotate, diff)
		}
	}
}

func TestNormalizeRotation(t *testing.T) {
	for _, tt := range []struct {
		in   int
		want int
		ok   bool
	}{
		{0, 0, true}, {90, 90, true}, {360, 0, true}, {-180, 180, true}, {-270, 90, true}, {30, 0, false},
	} {
		got, ok := NormalizeRotation(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NormalizeRotation(%d) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

// apply maps (u, v) through a PDF matrix [a b c d e f]
func apply(m [6]float64, u, v float64) [2]float64 {
	return [2]float64{m[0]*u + m[2]*v + m[4], m[1]*u + m[3]*v + m[5]}
}

func TestVisualToUser(t *testing.T) {
	approx := cmpopts.EquateApprox(0, 1e-9)

	tests := []struct {
		name   string
		box    rect.Rect
		rotate int
		// images of the visual corners (0,0) and (effW,effH)
		origin, corner [2]float64
	}{
		{"rotate 0", box(595, 842), 0, [2]float64{0, 0}, [2]float64{595, 842}},
		{"rotate 90", box(842, 595), 90, [2]float64{842, 0}, [2]float64{0, 595}},
		{"rotate 180", box(595, 842), 180, [2]float64{595, 842}, [2]float64{0, 0}},
		{"rotate 270", box(842, 595), 270, [2]float64{0, 595}, [2]float64{842, 0}},
		{"offset box", rect.Rect{LLx: 10, LLy: 20, URx: 605, URy: 862}, 0, [2]float64{10, 20}, [2]float64{605, 862}},
		{"offset box rotate 90", rect.Rect{LLx: 10, LLy: 20, URx: 852, URy: 615}, 90, [2]float64{852, 20}, [2]float64{10, 615}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewPageGeometry(tt.box, tt.rotate)
			m := g.VisualToUser()
			if diff := cmp.Diff(tt.origin, apply(m, 0, 0), approx); diff != "" {
				t.Errorf("origin (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.corner, apply(m, g.EffectiveWidth, g.EffectiveHeight), approx); diff != "" {
				t.Errorf("corner (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseSizeClass(t *testing.T) {
	for _, c := range AllClasses {
		got, err := ParseSizeClass(c.String())
		if err != nil || got != c {
			t.Errorf("ParseSizeClass(%q) = %v, %v", c.String(), got, err)
		}
	}

	for in, want := range map[string]SizeClass{
		"a4_portrait":  A4Portrait,
		"F4-LANDSCAPE": F4Landscape,
		" f4p ":        F4Portrait,
	} {
		got, err := ParseSizeClass(in)
		if err != nil || got != want {
			t.Errorf("ParseSizeClass(%q) = %v, %v; want %v", in, got, err, want)
		}
	}

	if _, err := ParseSizeClass("A3P"); err == nil {
		t.Error("Expected error for unknown class")
	}
}

func TestSizeClass_Attributes(t *testing.T) {
	if A4Landscape.Format() != "A4" || F4Portrait.Format() != "F4" {
		t.Error("unexpected format prefix")
	}
	if !F4Portrait.Portrait() || A4Landscape.Portrait() {
		t.Error("unexpected orientation")
	}
}
