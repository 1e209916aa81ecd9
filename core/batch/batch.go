// Package batch watermarks every PDF in a directory. Files are processed in
// name order, one at a time, and each file succeeds or fails on its own.
package batch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/benedoc-inc/pdfwm/core/classify"
	"github.com/benedoc-inc/pdfwm/core/stamp"
	"github.com/benedoc-inc/pdfwm/types"
)

// Options configures a Runner
type Options struct {
	InputDir  string
	OutputDir string

	// Start, if set, is called once with the number of PDFs found
	Start func(total int)

	// Progress, if set, is called after each file
	Progress func(Progress)
}

// Progress is reported once per processed file
type Progress struct {
	Done   int
	Total  int
	Result FileResult
}

// FileResult is the outcome for one input file
type FileResult struct {
	Name     string
	Output   string
	Report   *stamp.Report
	Err      error
	Duration time.Duration
}

// Summary describes a whole run
type Summary struct {
	Files     int
	Succeeded int
	Failed    int
	Pages     int
	PerClass  map[classify.SizeClass]int
	Results   []FileResult

	// Ignored lists directory entries without a .pdf suffix
	Ignored []string
}

// Failures returns the results of files that failed
func (s *Summary) Failures() []FileResult {
	var failed []FileResult
	for _, r := range s.Results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}
	return failed
}

// DocumentStamper watermarks one PDF held in memory. *stamp.Stamper
// implements it.
type DocumentStamper interface {
	StampDocument(ctx context.Context, data []byte) ([]byte, *stamp.Report, error)
}

// Runner processes directories
type Runner struct {
	stamper DocumentStamper
	opts    Options
	log     zerolog.Logger
}

// New creates a Runner
func New(stamper DocumentStamper, opts Options, logger zerolog.Logger) *Runner {
	return &Runner{
		stamper: stamper,
		opts:    opts,
		log:     logger.With().Str("component", "batch").Logger(),
	}
}

// ListPDFs returns the names of the files in dir with a .pdf suffix in any
// case, sorted, together with the names of the ignored entries.
// Subdirectories are not searched.
func ListPDFs(dir string) (pdfs, ignored []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, types.WrapErrorf(types.ErrCodeInputIO, err, "read input directory %s", dir)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			pdfs = append(pdfs, e.Name())
		} else {
			ignored = append(ignored, e.Name())
		}
	}
	sort.Strings(pdfs)
	return pdfs, ignored, nil
}

// Run processes every PDF in the input directory. The returned error is
// only set for failures that stop the whole run: an unreadable input
// directory, an output directory that cannot be created, or cancellation.
// Per-file failures are recorded in the Summary.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{PerClass: make(map[classify.SizeClass]int, len(classify.AllClasses))}

	files, ignored, err := ListPDFs(r.opts.InputDir)
	if err != nil {
		return summary, errors.WithStack(err)
	}
	summary.Ignored = ignored
	for _, name := range ignored {
		r.log.Debug().Str("file", name).Msg("skipping non-PDF entry")
	}

	if err := os.MkdirAll(r.opts.OutputDir, 0o755); err != nil {
		return summary, errors.WithStack(
			types.WrapErrorf(types.ErrCodeOutputIO, err, "create output directory %s", r.opts.OutputDir))
	}

	r.log.Info().
		Str("input", r.opts.InputDir).
		Str("output", r.opts.OutputDir).
		Int("files", len(files)).
		Msg("batch started")
	if r.opts.Start != nil {
		r.opts.Start(len(files))
	}

	for i, name := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		res := r.processFile(ctx, name)
		if res.Err != nil && ctx.Err() != nil {
			return summary, ctx.Err()
		}

		summary.Files++
		summary.Results = append(summary.Results, res)
		if res.Err != nil {
			summary.Failed++
		} else {
			summary.Succeeded++
			summary.Pages += res.Report.Pages
			for class, n := range res.Report.PerClass {
				summary.PerClass[class] += n
			}
		}

		if r.opts.Progress != nil {
			r.opts.Progress(Progress{Done: i + 1, Total: len(files), Result: res})
		}
	}

	r.log.Info().
		Int("files", summary.Files).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("pages", summary.Pages).
		Msg("batch finished")
	return summary, nil
}

// processFile stamps one file. Errors are classified: asset problems keep
// their own code, everything else about the input becomes INPUT_IO.
func (r *Runner) processFile(ctx context.Context, name string) FileResult {
	start := time.Now()
	res := FileResult{Name: name}
	log := r.log.With().Str("file", name).Logger()

	fail := func(err error) FileResult {
		res.Err = errors.WithStack(err)
		res.Duration = time.Since(start)
		if ctx.Err() == nil {
			code, _ := types.GetErrorCode(err)
			log.Error().Stack().Err(res.Err).Str("code", string(code)).Msg("file failed")
		}
		return res
	}

	data, err := os.ReadFile(filepath.Join(r.opts.InputDir, name))
	if err != nil {
		return fail(types.WrapError(types.ErrCodeInputIO, "read input", err))
	}

	out, report, err := r.stamp(ctx, data)
	if err != nil {
		if types.IsAssetError(err) || ctx.Err() != nil {
			return fail(err)
		}
		return fail(types.WrapError(types.ErrCodeInputIO, "cannot stamp input", err))
	}
	res.Report = report

	res.Output = filepath.Join(r.opts.OutputDir, name)
	if err := writeFileAtomic(res.Output, out); err != nil {
		return fail(types.WrapError(types.ErrCodeOutputIO, "write output", err).WithContext("path", res.Output))
	}

	res.Duration = time.Since(start)
	log.Info().
		Int("pages", report.Pages).
		Int("skipped", report.Skipped).
		Int("fallbacks", report.Fallbacks).
		Dur("took", res.Duration).
		Msg("file stamped")
	return res
}

// stamp runs the stamper, turning a panic on a corrupt file into an error
// for that file so the remaining files still run
func (r *Runner) stamp(ctx context.Context, data []byte) (out []byte, report *stamp.Report, err error) {
	defer func() {
		if v := recover(); v != nil {
			out, report = nil, nil
			err = types.NewPDFErrorf(types.ErrCodeMalformedPDF, "stamping panicked: %v", v)
		}
	}()
	return r.stamper.StampDocument(ctx, data)
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it into place, so a failed write never leaves a truncated output
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pdfwm-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
