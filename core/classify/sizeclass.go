package classify

import (
	"fmt"
	"strings"
)

// SizeClass is the paper format and orientation assigned to a page
type SizeClass int

const (
	A4Portrait SizeClass = iota
	A4Landscape
	F4Portrait
	F4Landscape
)

// AllClasses lists every size class in declaration order
var AllClasses = []SizeClass{A4Portrait, A4Landscape, F4Portrait, F4Landscape}

var classNames = map[SizeClass]string{
	A4Portrait:  "A4P",
	A4Landscape: "A4L",
	F4Portrait:  "F4P",
	F4Landscape: "F4L",
}

// String returns the short label used in configuration, e.g. "A4P"
func (c SizeClass) String() string {
	if s, ok := classNames[c]; ok {
		return s
	}
	return fmt.Sprintf("SizeClass(%d)", int(c))
}

// Format returns the paper format without orientation, "A4" or "F4"
func (c SizeClass) Format() string {
	return c.String()[:2]
}

// Portrait reports whether the class has portrait orientation
func (c SizeClass) Portrait() bool {
	return c == A4Portrait || c == F4Portrait
}

// ParseSizeClass accepts the short labels ("A4P") as well as the long
// forms ("A4_PORTRAIT", "f4-landscape"), case-insensitively
func ParseSizeClass(s string) (SizeClass, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)
	switch norm {
	case "A4P", "A4_PORTRAIT":
		return A4Portrait, nil
	case "A4L", "A4_LANDSCAPE":
		return A4Landscape, nil
	case "F4P", "F4_PORTRAIT":
		return F4Portrait, nil
	case "F4L", "F4_LANDSCAPE":
		return F4Landscape, nil
	}
	return 0, fmt.Errorf("unknown size class %q", s)
}

func classFor(f4, portrait bool) SizeClass {
	switch {
	case f4 && portrait:
		return F4Portrait
	case f4:
		return F4Landscape
	case portrait:
		return A4Portrait
	default:
		return A4Landscape
	}
}
