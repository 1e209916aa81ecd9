package parse

import (
	"bytes"
	"fmt"
	"strconv"
)

// xrefEntry locates one object. Type 0 is free, 1 lives at Offset in the
// file, 2 lives inside object stream StreamNum at position Index.
type xrefEntry struct {
	Type       int
	Offset     int64
	Generation int
	StreamNum  int
	Index      int
}

// xrefSection is one cross-reference section with its trailer
type xrefSection struct {
	Offset  int64
	Entries map[int]xrefEntry
	Trailer Dict
}

// findLastStartXRef finds the startxref value before the last %%EOF
func findLastStartXRef(data []byte) (int64, error) {
	eof := bytes.LastIndex(data, []byte("%%EOF"))
	if eof < 0 {
		eof = len(data)
	}
	idx := bytes.LastIndex(data[:eof], []byte("startxref"))
	if idx < 0 {
		return 0, fmt.Errorf("startxref not found")
	}
	p := newObjectParser(data, idx+len("startxref"))
	p.skipSpace()
	offset, err := strconv.ParseInt(string(p.readToken()), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid startxref offset: %v", err)
	}
	if offset <= 0 || offset >= int64(len(data)) {
		return 0, fmt.Errorf("startxref offset %d out of range", offset)
	}
	return offset, nil
}

// parseXRefChain follows /Prev links from the newest section and returns
// the sections newest first
func (p *PDF) parseXRefChain(start int64) ([]*xrefSection, error) {
	var sections []*xrefSection
	visited := make(map[int64]bool)

	for offset := start; offset > 0; {
		if visited[offset] {
			break
		}
		visited[offset] = true

		section, err := p.parseXRefSection(offset)
		if err != nil {
			if len(sections) == 0 {
				return nil, err
			}
			// An older revision is damaged; keep what the newer ones describe
			p.log.Debug().Err(err).Int64("offset", offset).Msg("ignoring unreadable xref section")
			break
		}
		sections = append(sections, section)

		prev, ok := section.Trailer.GetInt("Prev")
		if !ok {
			break
		}
		offset = int64(prev)
	}
	return sections, nil
}

// parseXRefSection parses either a classic table or an xref stream at offset
func (p *PDF) parseXRefSection(offset int64) (*xrefSection, error) {
	op := newObjectParser(p.data, int(offset))
	op.skipSpace()
	if op.peekKeyword("xref") {
		op.pos += 4
		section, err := p.parseXRefTable(op)
		if err != nil {
			return nil, err
		}
		section.Offset = offset

		// Hybrid files list compressed objects in a separate stream
		if stmOffset, ok := section.Trailer.GetInt("XRefStm"); ok {
			if stm, err := p.parseXRefStream(int64(stmOffset)); err == nil {
				for num, e := range stm.Entries {
					if cur, exists := section.Entries[num]; !exists || cur.Type == 0 {
						section.Entries[num] = e
					}
				}
			}
		}
		return section, nil
	}
	return p.parseXRefStream(offset)
}

// parseXRefTable reads "start count" subsections and the trailer dictionary
func (p *PDF) parseXRefTable(op *objectParser) (*xrefSection, error) {
	section := &xrefSection{Entries: make(map[int]xrefEntry)}

	for {
		op.skipSpace()
		if op.pos >= len(op.data) {
			return nil, fmt.Errorf("xref table without trailer")
		}
		if op.peekKeyword("trailer") {
			op.pos += len("trailer")
			break
		}

		first, err1 := strconv.Atoi(string(op.readToken()))
		op.skipSpace()
		count, err2 := strconv.Atoi(string(op.readToken()))
		if err1 != nil || err2 != nil || count < 0 {
			return nil, fmt.Errorf("invalid xref subsection header at offset %d", op.pos)
		}

		for i := 0; i < count; i++ {
			op.skipSpace()
			offset, err1 := strconv.ParseInt(string(op.readToken()), 10, 64)
			op.skipSpace()
			gen, err2 := strconv.Atoi(string(op.readToken()))
			op.skipSpace()
			kind := string(op.readToken())
			if err1 != nil || err2 != nil || (kind != "n" && kind != "f") {
				return nil, fmt.Errorf("invalid xref entry for object %d", first+i)
			}
			num := first + i
			if _, dup := section.Entries[num]; dup {
				continue
			}
			if kind == "n" && offset > 0 {
				section.Entries[num] = xrefEntry{Type: 1, Offset: offset, Generation: gen}
			} else {
				section.Entries[num] = xrefEntry{Type: 0, Generation: gen}
			}
		}
	}

	trailer, err := op.parseObject()
	if err != nil {
		return nil, fmt.Errorf("invalid trailer: %v", err)
	}
	dict, ok := trailer.(Dict)
	if !ok {
		return nil, fmt.Errorf("trailer is %T, not a dictionary", trailer)
	}
	section.Trailer = dict
	return section, nil
}

// parseXRefStream decodes a /Type /XRef stream at offset
func (p *PDF) parseXRefStream(offset int64) (*xrefSection, error) {
	_, _, obj, err := p.parseIndirectAt(offset, nil)
	if err != nil {
		return nil, fmt.Errorf("xref stream at %d: %v", offset, err)
	}
	stream, ok := obj.(*Stream)
	if !ok {
		return nil, fmt.Errorf("object at %d is not an xref stream", offset)
	}
	if t, _ := stream.Dict.GetName("Type"); t != "XRef" {
		return nil, fmt.Errorf("stream at %d has /Type %q, expected XRef", offset, t)
	}

	data, err := DecodeStream(stream)
	if err != nil {
		return nil, fmt.Errorf("decode xref stream: %v", err)
	}

	wArr, ok := stream.Dict["W"].(Array)
	if !ok || len(wArr) != 3 {
		return nil, fmt.Errorf("xref stream has invalid /W")
	}
	var w [3]int
	for i, v := range wArr {
		n, ok := v.(Integer)
		if !ok || n < 0 || n > 8 {
			return nil, fmt.Errorf("xref stream has invalid /W")
		}
		w[i] = int(n)
	}
	entrySize := w[0] + w[1] + w[2]
	if entrySize == 0 {
		return nil, fmt.Errorf("invalid entry size")
	}

	size, _ := stream.Dict.GetInt("Size")
	type subsection struct{ first, count int }
	var subs []subsection
	if idx, ok := stream.Dict["Index"].(Array); ok {
		for i := 0; i+1 < len(idx); i += 2 {
			first, _ := idx[i].(Integer)
			count, _ := idx[i+1].(Integer)
			subs = append(subs, subsection{int(first), int(count)})
		}
	} else {
		subs = []subsection{{0, size}}
	}

	section := &xrefSection{
		Offset:  offset,
		Entries: make(map[int]xrefEntry),
		Trailer: stream.Dict,
	}

	field := func(b []byte) int64 {
		var v int64
		for _, c := range b {
			v = v<<8 | int64(c)
		}
		return v
	}

	pos := 0
	for _, sub := range subs {
		for num := sub.first; num < sub.first+sub.count; num++ {
			if pos+entrySize > len(data) {
				break
			}
			entry := data[pos : pos+entrySize]
			pos += entrySize

			// A zero-width type field defaults to type 1
			typ := int64(1)
			if w[0] > 0 {
				typ = field(entry[:w[0]])
			}
			f2 := field(entry[w[0] : w[0]+w[1]])
			f3 := field(entry[w[0]+w[1]:])

			switch typ {
			case 0:
				section.Entries[num] = xrefEntry{Type: 0}
			case 1:
				section.Entries[num] = xrefEntry{Type: 1, Offset: f2, Generation: int(f3)}
			case 2:
				section.Entries[num] = xrefEntry{Type: 2, StreamNum: int(f2), Index: int(f3)}
			}
		}
	}

	return section, nil
}

// mergeSections flattens sections (newest first) into one table where the
// newest entry for an object wins, and one trailer where newer keys win
func mergeSections(sections []*xrefSection) (map[int]xrefEntry, Dict) {
	entries := make(map[int]xrefEntry)
	trailer := make(Dict)
	for _, s := range sections {
		for num, e := range s.Entries {
			if _, seen := entries[num]; !seen {
				entries[num] = e
			}
		}
		for k, v := range s.Trailer {
			switch k {
			case "Prev", "XRefStm", "W", "Index", "Filter", "DecodeParms", "Length", "Type":
				continue
			}
			if _, seen := trailer[k]; !seen {
				trailer[k] = v
			}
		}
	}
	return entries, trailer
}
