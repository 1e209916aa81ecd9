// Package classify assigns each page one of four paper size classes (A4 or
// F4, portrait or landscape) from its rotation-corrected dimensions.
package classify

import "math"

// Reference aspect ratios and the default match band
const (
	A4Ratio          = 297.0 / 210.0
	F4Ratio          = 330.0 / 210.0
	DefaultTolerance = 0.04
)

// Classifier holds the reference ratios. The zero value is not useful; use
// DefaultClassifier or fill every field.
type Classifier struct {
	A4Ratio   float64
	F4Ratio   float64
	Tolerance float64
}

// DefaultClassifier returns a classifier with the standard A4 and F4 ratios
func DefaultClassifier() Classifier {
	return Classifier{
		A4Ratio:   A4Ratio,
		F4Ratio:   F4Ratio,
		Tolerance: DefaultTolerance,
	}
}

// Result is the outcome of classifying one page
type Result struct {
	Class SizeClass
	Ratio float64
	// Matched is false when no reference ratio was within tolerance and
	// the A4 fallback was used
	Matched bool
}

// Evaluate classifies g and reports whether a reference ratio matched.
// A4 is tested before F4, and a page matching neither falls back to A4.
func (c Classifier) Evaluate(g PageGeometry) Result {
	ratio := g.Ratio()
	portrait := g.Portrait()

	switch {
	case math.Abs(ratio-c.A4Ratio) <= c.Tolerance:
		return Result{Class: classFor(false, portrait), Ratio: ratio, Matched: true}
	case math.Abs(ratio-c.F4Ratio) <= c.Tolerance:
		return Result{Class: classFor(true, portrait), Ratio: ratio, Matched: true}
	default:
		return Result{Class: classFor(false, portrait), Ratio: ratio}
	}
}

// Classify returns the size class of g. It never fails.
func (c Classifier) Classify(g PageGeometry) SizeClass {
	return c.Evaluate(g).Class
}

// Classify classifies g against explicit reference ratios and tolerance
func Classify(g PageGeometry, a4Ratio, f4Ratio, tolerance float64) SizeClass {
	return Classifier{A4Ratio: a4Ratio, F4Ratio: f4Ratio, Tolerance: tolerance}.Classify(g)
}
