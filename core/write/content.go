package write

import (
	"bytes"
	"strconv"
	"strings"

	"seehuhn.de/go/geom/matrix"

	"github.com/benedoc-inc/pdfwm/core/parse"
)

// ContentStream builds PDF content streams
type ContentStream struct {
	buf bytes.Buffer
}

// NewContentStream creates a new content stream builder
func NewContentStream() *ContentStream {
	return &ContentStream{}
}

// Bytes returns the content stream data
func (cs *ContentStream) Bytes() []byte {
	return cs.buf.Bytes()
}

// String returns the content stream as a string
func (cs *ContentStream) String() string {
	return cs.buf.String()
}

// --- Graphics State Operations ---

// SaveState saves the current graphics state (q operator)
func (cs *ContentStream) SaveState() *ContentStream {
	cs.buf.WriteString("q\n")
	return cs
}

// RestoreState restores the previous graphics state (Q operator)
func (cs *ContentStream) RestoreState() *ContentStream {
	cs.buf.WriteString("Q\n")
	return cs
}

// SetMatrix concatenates a matrix to the CTM (cm operator)
func (cs *ContentStream) SetMatrix(a, b, c, d, e, f float64) *ContentStream {
	cs.writeOperands(a, b, c, d, e, f)
	cs.buf.WriteString("cm\n")
	return cs
}

// Transform concatenates m to the CTM. The identity matrix writes nothing.
func (cs *ContentStream) Transform(m matrix.Matrix) *ContentStream {
	if m == matrix.Identity {
		return cs
	}
	return cs.SetMatrix(m[0], m[1], m[2], m[3], m[4], m[5])
}

// Translate moves the origin
func (cs *ContentStream) Translate(tx, ty float64) *ContentStream {
	return cs.SetMatrix(1, 0, 0, 1, tx, ty)
}

// SetGraphicsState selects an ExtGState resource (gs operator)
func (cs *ContentStream) SetGraphicsState(name parse.Name) *ContentStream {
	writeName(&cs.buf, name)
	cs.buf.WriteString(" gs\n")
	return cs
}

// --- Path Operations ---

// Rectangle appends a rectangle (re operator)
func (cs *ContentStream) Rectangle(x, y, width, height float64) *ContentStream {
	cs.writeOperands(x, y, width, height)
	cs.buf.WriteString("re\n")
	return cs
}

// --- XObject Operations ---

// DrawXObject paints an image or form XObject (Do operator). An image
// fills the unit square, so position and scale it with SetMatrix first.
func (cs *ContentStream) DrawXObject(name parse.Name) *ContentStream {
	writeName(&cs.buf, name)
	cs.buf.WriteString(" Do\n")
	return cs
}

// Raw writes raw content stream data
func (cs *ContentStream) Raw(data string) *ContentStream {
	cs.buf.WriteString(data)
	if len(data) > 0 && data[len(data)-1] != '\n' {
		cs.buf.WriteByte('\n')
	}
	return cs
}

func (cs *ContentStream) writeOperands(vals ...float64) {
	for _, v := range vals {
		cs.buf.WriteString(formatOperand(v))
		cs.buf.WriteByte(' ')
	}
}

// formatOperand prints v with at most four decimals and no trailing zeros
func formatOperand(v float64) string {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}
