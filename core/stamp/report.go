package stamp

import (
	"github.com/benedoc-inc/pdfwm/core/classify"
	"github.com/benedoc-inc/pdfwm/core/cover"
	"github.com/benedoc-inc/pdfwm/types"
)

// PageResult describes what happened to one page
type PageResult struct {
	Index     int
	Class     classify.SizeClass
	Matched   bool // false when the class is the A4 fallback
	Ratio     float64
	Placement cover.Placement
	Skipped   bool
	Err       error
}

// Report summarizes one stamped document
type Report struct {
	Pages     int
	Stamped   int
	Skipped   int
	Fallbacks int
	PerClass  map[classify.SizeClass]int
	Results   []PageResult
	Warnings  []*types.Warning
}

func newReport(pages int) *Report {
	return &Report{
		PerClass: make(map[classify.SizeClass]int, len(classify.AllClasses)),
		Results:  make([]PageResult, 0, pages),
	}
}

func (r *Report) add(res PageResult) {
	r.Pages++
	r.Results = append(r.Results, res)
	if res.Skipped {
		r.Skipped++
		return
	}
	r.Stamped++
	r.PerClass[res.Class]++
	if !res.Matched {
		r.Fallbacks++
	}
}

func (r *Report) addWarning(w *types.Warning) {
	if w != nil {
		r.Warnings = append(r.Warnings, w)
	}
}
