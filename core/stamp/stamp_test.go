package stamp

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/rs/zerolog"

	"github.com/benedoc-inc/pdfwm/core/asset"
	"github.com/benedoc-inc/pdfwm/core/classify"
	"github.com/benedoc-inc/pdfwm/core/parse"
	"github.com/benedoc-inc/pdfwm/core/write"
	"github.com/benedoc-inc/pdfwm/types"
)

type pageSpec struct {
	size   write.PageSize
	rotate int
}

func buildPDF(t *testing.T, pages ...pageSpec) []byte {
	t.Helper()
	builder := write.NewSimplePDFBuilder()
	for _, ps := range pages {
		page := builder.AddPage(ps.size)
		page.Content().Rectangle(36, 36, 100, 50)
		if ps.rotate != 0 {
			page.SetRotate(ps.rotate)
		}
		builder.FinalizePage(page)
	}
	data, err := builder.Bytes()
	if err != nil {
		t.Fatalf("Failed to build PDF: %v", err)
	}
	return data
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(0, 0, color.RGBA{B: 255, A: 255})
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode %s: %v", path, err)
	}
}

// newStore writes one watermark per class, skipping the classes in missing
func newStore(t *testing.T, missing ...classify.SizeClass) *asset.Store {
	t.Helper()
	dir := t.TempDir()
	paths := map[classify.SizeClass]string{}
	for _, c := range classify.AllClasses {
		paths[c] = "wm_" + c.String() + ".png"
		skip := false
		for _, m := range missing {
			skip = skip || m == c
		}
		if !skip {
			writePNG(t, filepath.Join(dir, paths[c]), 8, 8)
		}
	}
	table, err := asset.NewTable(paths, dir)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return asset.NewStore(table, zerolog.Nop())
}

// stampedPages reports for each output page whether it carries /Wm1
func stampedPages(t *testing.T, data []byte) []bool {
	t.Helper()
	out, err := parse.Open(data)
	if err != nil {
		t.Fatalf("parse output: %v", err)
	}
	catalog, err := out.Catalog()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	pages, err := out.ResolveDict(catalog["Pages"])
	if err != nil {
		t.Fatalf("pages: %v", err)
	}
	var stamped []bool
	for _, kid := range pages["Kids"].(parse.Array) {
		page, err := out.ResolveDict(kid)
		if err != nil {
			t.Fatalf("page: %v", err)
		}
		res, _ := out.ResolveDict(page["Resources"])
		xobj, _ := out.ResolveDict(res["XObject"])
		_, ok := xobj["Wm1"]
		stamped = append(stamped, ok)
	}
	return stamped
}

func TestStampDocument(t *testing.T) {
	data := buildPDF(t,
		pageSpec{size: write.PageSizeA4},
		pageSpec{size: write.PageSizeA4.Landscape(), rotate: 90},
		pageSpec{size: write.PageSizeF4.Landscape()},
		pageSpec{size: write.PageSizeLetter},
	)
	s := New(newStore(t), Options{}, zerolog.Nop())

	out, report, err := s.StampDocument(context.Background(), data)
	if err != nil {
		t.Fatalf("StampDocument failed: %v", err)
	}

	want := map[classify.SizeClass]int{classify.A4Portrait: 3, classify.F4Landscape: 1}
	if diff := cmp.Diff(want, report.PerClass); diff != "" {
		t.Errorf("PerClass mismatch (-want +got):\n%s", diff)
	}
	if report.Pages != 4 || report.Stamped != 4 || report.Skipped != 0 {
		t.Errorf("unexpected counts: %+v", report)
	}
	if report.Fallbacks != 1 {
		t.Errorf("Fallbacks = %d, want 1 for the letter page", report.Fallbacks)
	}
	if diff := cmp.Diff([]bool{true, true, true, true}, stampedPages(t, out)); diff != "" {
		t.Errorf("stamped pages (-want +got):\n%s", diff)
	}
}

func TestStampDocument_ParallelKeepsOrder(t *testing.T) {
	var specs []pageSpec
	sizes := []write.PageSize{write.PageSizeA4, write.PageSizeF4.Landscape(), write.PageSizeA4.Landscape(), write.PageSizeF4}
	for i := 0; i < 24; i++ {
		specs = append(specs, pageSpec{size: sizes[i%len(sizes)], rotate: 90 * (i % 3)})
	}
	data := buildPDF(t, specs...)
	store := newStore(t)

	_, serial, err := New(store, Options{Workers: 1}, zerolog.Nop()).StampDocument(context.Background(), data)
	if err != nil {
		t.Fatalf("serial run failed: %v", err)
	}
	out, parallel, err := New(store, Options{Workers: 8}, zerolog.Nop()).StampDocument(context.Background(), data)
	if err != nil {
		t.Fatalf("parallel run failed: %v", err)
	}

	if diff := cmp.Diff(serial.Results, parallel.Results, cmpopts.EquateErrors()); diff != "" {
		t.Errorf("parallel results differ (-serial +parallel):\n%s", diff)
	}
	for i, res := range parallel.Results {
		if res.Index != i {
			t.Errorf("result %d has index %d", i, res.Index)
		}
	}

	in, _ := parse.Open(data)
	o, _ := parse.Open(out)
	inCat, _ := in.Catalog()
	outCat, _ := o.Catalog()
	inPages, _ := in.ResolveDict(inCat["Pages"])
	outPages, _ := o.ResolveDict(outCat["Pages"])
	inKids := inPages["Kids"].(parse.Array)
	outKids := outPages["Kids"].(parse.Array)
	if len(inKids) != len(outKids) {
		t.Fatalf("page count %d -> %d", len(inKids), len(outKids))
	}
	for i := range inKids {
		a, _ := in.ResolveDict(inKids[i])
		b, _ := o.ResolveDict(outKids[i])
		if diff := cmp.Diff(a["MediaBox"], b["MediaBox"]); diff != "" {
			t.Errorf("page %d MediaBox changed (-in +out):\n%s", i, diff)
		}
		if diff := cmp.Diff(a["Rotate"], b["Rotate"]); diff != "" {
			t.Errorf("page %d Rotate changed (-in +out):\n%s", i, diff)
		}
	}
}

func TestStampDocument_MissingAssetAborts(t *testing.T) {
	data := buildPDF(t, pageSpec{size: write.PageSizeA4}, pageSpec{size: write.PageSizeF4})
	s := New(newStore(t, classify.F4Portrait), Options{}, zerolog.Nop())

	out, report, err := s.StampDocument(context.Background(), data)
	if !errors.Is(err, types.ErrAssetLoad) {
		t.Fatalf("Expected ASSET_LOAD error, got %v", err)
	}
	if out != nil || report != nil {
		t.Error("Expected no output for an aborted document")
	}
}

func TestStampDocument_SkipPage(t *testing.T) {
	data := buildPDF(t, pageSpec{size: write.PageSizeA4}, pageSpec{size: write.PageSizeF4}, pageSpec{size: write.PageSizeA4})
	s := New(newStore(t, classify.F4Portrait), Options{OnPageError: SkipPage, Workers: 2}, zerolog.Nop())

	out, report, err := s.StampDocument(context.Background(), data)
	if err != nil {
		t.Fatalf("StampDocument failed: %v", err)
	}
	if report.Stamped != 2 || report.Skipped != 1 {
		t.Errorf("Stamped=%d Skipped=%d, want 2 and 1", report.Stamped, report.Skipped)
	}
	if len(report.Warnings) != 1 || report.Warnings[0].Code != types.WarnPageSkipped {
		t.Fatalf("expected one PAGE_SKIPPED warning, got %v", report.Warnings)
	}
	if !report.Results[1].Skipped || !errors.Is(report.Results[1].Err, types.ErrAssetLoad) {
		t.Errorf("page 2 result: %+v", report.Results[1])
	}
	if diff := cmp.Diff([]bool{true, false, true}, stampedPages(t, out)); diff != "" {
		t.Errorf("stamped pages (-want +got):\n%s", diff)
	}
}

func TestStampDocument_Cancelled(t *testing.T) {
	data := buildPDF(t, pageSpec{size: write.PageSizeA4})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := New(newStore(t), Options{}, zerolog.Nop()).StampDocument(ctx, data)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
}

func TestStampDocument_BadInput(t *testing.T) {
	_, _, err := New(newStore(t), Options{}, zerolog.Nop()).StampDocument(context.Background(), []byte("not a pdf at all"))
	if !errors.Is(err, types.ErrMalformedPDF) {
		t.Fatalf("Expected MALFORMED_PDF, got %v", err)
	}
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]Policy{"": AbortFile, "abort_file": AbortFile, "Skip_Page": SkipPage} {
		got, err := ParsePolicy(in)
		if err != nil || got != want {
			t.Errorf("ParsePolicy(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParsePolicy("retry"); err == nil {
		t.Error("Expected error for unknown policy")
	}
}

func TestNew_Defaults(t *testing.T) {
	s := New(newStore(t), Options{}, zerolog.Nop())
	opts := s.Options()
	if opts.Workers != 1 || opts.OnPageError != AbortFile || opts.Classifier != classify.DefaultClassifier() {
		t.Errorf("unexpected defaults: %+v", opts)
	}
}
