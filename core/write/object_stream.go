package write

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/benedoc-inc/pdfwm/core/parse"
)

// packedEntry locates an object that was moved into an object stream
type packedEntry struct {
	streamObjNum int
	index        int
}

// createObjectStreams moves every non-stream, generation-0 object into a
// single object stream. Returns object number -> location in the stream.
func (w *PDFWriter) createObjectStreams() (map[int]packedEntry, error) {
	if !w.useObjectStream {
		return nil, nil
	}

	var eligible []int
	for objNum, obj := range w.objects {
		if _, isStream := obj.Value.(*parse.Stream); isStream || obj.Generation != 0 {
			continue
		}
		eligible = append(eligible, objNum)
	}
	if len(eligible) == 0 {
		return nil, nil
	}
	sort.Ints(eligible)

	if w.objStmNum == 0 {
		w.objStmNum = w.ReserveObject()
	}
	streamObjNum := w.objStmNum

	var header, body bytes.Buffer
	packed := make(map[int]packedEntry, len(eligible))
	for i, objNum := range eligible {
		fmt.Fprintf(&header, "%d %d ", objNum, body.Len())
		if err := writeValue(&body, w.objects[objNum].Value); err != nil {
			return nil, fmt.Errorf("object %d: %v", objNum, err)
		}
		body.WriteByte('\n')
		packed[objNum] = packedEntry{streamObjNum: streamObjNum, index: i}
	}

	data := append(header.Bytes(), body.Bytes()...)
	dict := parse.Dict{
		"Type":  parse.Name("ObjStm"),
		"N":     parse.Integer(len(eligible)),
		"First": parse.Integer(header.Len()),
	}
	w.SetStreamObject(streamObjNum, dict, data, true)

	// Packed objects stay in w.objects so that GetObject keeps working;
	// Write skips them.
	return packed, nil
}
