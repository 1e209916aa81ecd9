// Package stamp runs the per-page watermark pipeline over one document:
// geometry, size class, cover placement, overlay rendering and merge.
//
// The first four stages are independent per page and may run on several
// goroutines. Merges always happen afterwards in page order.
package stamp

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/benedoc-inc/pdfwm/core/asset"
	"github.com/benedoc-inc/pdfwm/core/classify"
	"github.com/benedoc-inc/pdfwm/core/cover"
	"github.com/benedoc-inc/pdfwm/core/manipulate"
	"github.com/benedoc-inc/pdfwm/types"
)

// Policy decides what happens to a document when one of its pages cannot
// be stamped
type Policy string

const (
	// AbortFile fails the whole document on the first page error
	AbortFile Policy = "abort_file"
	// SkipPage copies the page without a watermark and records a warning
	SkipPage Policy = "skip_page"
)

// ParsePolicy parses a policy name
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case AbortFile, SkipPage:
		return p, nil
	case "":
		return AbortFile, nil
	}
	return "", fmt.Errorf("unknown page error policy %q (want %s or %s)", s, AbortFile, SkipPage)
}

// Options configures a Stamper. Zero values select the defaults.
type Options struct {
	Classifier    classify.Classifier
	Workers       int
	OnPageError   Policy
	Opacity       float64
	ObjectStreams bool
	Producer      string
}

// Stamper watermarks documents
type Stamper struct {
	store *asset.Store
	opts  Options
	log   zerolog.Logger
}

// New creates a Stamper drawing watermarks from store
func New(store *asset.Store, opts Options, logger zerolog.Logger) *Stamper {
	if opts.Classifier == (classify.Classifier{}) {
		opts.Classifier = classify.DefaultClassifier()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.OnPageError == "" {
		opts.OnPageError = AbortFile
	}
	return &Stamper{
		store: store,
		opts:  opts,
		log:   logger.With().Str("component", "stamp").Logger(),
	}
}

// Options returns the effective options
func (s *Stamper) Options() Options {
	return s.opts
}

// StampDocument watermarks every page of the PDF in data and returns the
// new file
func (s *Stamper) StampDocument(ctx context.Context, data []byte) ([]byte, *Report, error) {
	doc, err := manipulate.Open(data, manipulate.Options{
		Logger:        &s.log,
		Producer:      s.opts.Producer,
		ObjectStreams: s.opts.ObjectStreams,
	})
	if err != nil {
		return nil, nil, err
	}

	pages := doc.Pages()
	results := make([]PageResult, len(pages))
	overlays := make([]*cover.OverlayPage, len(pages))
	pageErrs := make([]error, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i, page := range pages {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ov, res, err := s.preparePage(gctx, page)
			results[i] = res
			if err != nil {
				if s.opts.OnPageError == SkipPage {
					pageErrs[i] = err
					return nil
				}
				return fmt.Errorf("page %d: %w", i+1, err)
			}
			overlays[i] = ov
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	report := newReport(len(pages))
	for i, page := range pages {
		for _, w := range page.Warnings {
			report.addWarning(w)
			s.log.Warn().Str("code", w.Code).Msg(w.Message)
		}

		err := pageErrs[i]
		if err == nil {
			err = doc.MergeOverlay(i, overlays[i])
			overlays[i] = nil
		}
		if err != nil {
			if s.opts.OnPageError != SkipPage {
				return nil, nil, fmt.Errorf("page %d: %w", i+1, err)
			}
			results[i].Skipped = true
			results[i].Err = err
			w := types.NewWarningf(types.WarningLevelError, types.WarnPageSkipped,
				"page %d left without watermark: %v", i+1, err).WithContext("page", i+1)
			report.addWarning(w)
			s.log.Warn().Err(err).Int("page", i+1).Msg("page left without watermark")
		}
		report.add(results[i])
	}

	out, err := doc.Bytes()
	if err != nil {
		return nil, nil, err
	}
	return out, report, nil
}

// preparePage runs the pure stages for one page
func (s *Stamper) preparePage(ctx context.Context, page *manipulate.Page) (*cover.OverlayPage, PageResult, error) {
	g := page.Geometry
	match := s.opts.Classifier.Evaluate(g)
	res := PageResult{
		Index:   page.Index,
		Class:   match.Class,
		Matched: match.Matched,
		Ratio:   match.Ratio,
	}

	wm, err := s.store.Get(ctx, match.Class)
	if err != nil {
		return nil, res, err
	}
	placement, err := cover.PlaceOverlay(g.EffectiveWidth, g.EffectiveHeight, wm)
	if err != nil {
		return nil, res, err
	}
	res.Placement = placement

	s.log.Debug().
		Int("page", page.Index+1).
		Float64("page_w", g.EffectiveWidth).
		Float64("page_h", g.EffectiveHeight).
		Int("rotate", g.Rotation).
		Str("class", match.Class.String()).
		Bool("matched", match.Matched).
		Float64("ratio", match.Ratio).
		Int("wm_w", wm.Width).
		Int("wm_h", wm.Height).
		Float64("scaled_w", placement.ScaledWidth).
		Float64("scaled_h", placement.ScaledHeight).
		Float64("x", placement.OffsetX).
		Float64("y", placement.OffsetY).
		Msg("page placed")

	return cover.Render(placement, wm, g, cover.RenderOptions{Opacity: s.opts.Opacity}), res, nil
}
