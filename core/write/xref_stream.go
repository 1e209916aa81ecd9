package write

import (
	"bytes"
	"fmt"

	"github.com/benedoc-inc/pdfwm/core/parse"
)

// writeXRefStream writes a cross-reference stream object carrying the
// trailer entries and returns its offset
func (w *PDFWriter) writeXRefStream(buf *bytes.Buffer, positions map[int]int64, packed map[int]packedEntry) (int64, error) {
	xrefObjNum := w.nextObjNum
	size := xrefObjNum + 1
	xrefPos := int64(buf.Len())

	maxField2 := xrefPos
	maxField3 := int64(0)
	for _, e := range packed {
		if int64(e.streamObjNum) > maxField2 {
			maxField2 = int64(e.streamObjNum)
		}
		if int64(e.index) > maxField3 {
			maxField3 = int64(e.index)
		}
	}
	w1, w2, w3 := 1, calculateBytesNeeded(maxField2), calculateBytesNeeded(maxField3)
	entrySize := w1 + w2 + w3

	data := make([]byte, size*entrySize)
	for i := 0; i < size; i++ {
		entry := data[i*entrySize : (i+1)*entrySize]
		switch {
		case i == xrefObjNum:
			entry[0] = 1
			writeBigEndian(entry[w1:w1+w2], xrefPos, w2)
		case positions[i] > 0:
			entry[0] = 1
			writeBigEndian(entry[w1:w1+w2], positions[i], w2)
		default:
			if e, ok := packed[i]; ok {
				entry[0] = 2
				writeBigEndian(entry[w1:w1+w2], int64(e.streamObjNum), w2)
				writeBigEndian(entry[w1+w2:], int64(e.index), w3)
			}
			// otherwise type 0, free
		}
	}

	dict := w.trailerDict(size)
	dict["Type"] = parse.Name("XRef")
	dict["W"] = parse.Array{parse.Integer(w1), parse.Integer(w2), parse.Integer(w3)}
	dict["Filter"] = parse.Name("FlateDecode")

	fmt.Fprintf(buf, "%d 0 obj\n", xrefObjNum)
	if err := writeIndirectValue(buf, &parse.Stream{Dict: dict, Raw: deflate(data)}); err != nil {
		return 0, err
	}
	buf.WriteString("\nendobj\n")
	return xrefPos, nil
}

// calculateBytesNeeded returns how many bytes are needed to represent n
func calculateBytesNeeded(n int64) int {
	if n == 0 {
		return 1
	}
	count := 0
	for n > 0 {
		count++
		n >>= 8
	}
	return count
}

// writeBigEndian writes value into the first width bytes of dst
func writeBigEndian(dst []byte, value int64, width int) {
	for i := width - 1; i >= 0; i-- {
		dst[i] = byte(value & 0xff)
		value >>= 8
	}
}
