// Package parse reads the object graph of a PDF file: cross-reference
// tables and streams, incremental updates, object streams and the
// Flate-based filters they rely on.
package parse

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/benedoc-inc/pdfwm/types"
)

// ParseOptions configures how a PDF is opened
type ParseOptions struct {
	// Logger receives debug output about xref recovery. Nil disables it.
	Logger *zerolog.Logger
}

// PDF is a parsed, read-only PDF file
type PDF struct {
	data      []byte
	version   string
	xref      map[int]xrefEntry
	trailer   Dict
	revisions int
	recovered bool
	log       zerolog.Logger

	mu      sync.Mutex
	cache   map[int]Object
	objStms map[int]*objectStream
}

// Open parses a PDF with default options
func Open(data []byte) (*PDF, error) {
	return OpenWithOptions(data, ParseOptions{})
}

// OpenWithOptions parses a PDF. Encrypted files are rejected with
// types.ErrEncrypted.
func OpenWithOptions(data []byte, opts ParseOptions) (*PDF, error) {
	p := &PDF{
		data:    data,
		log:     zerolog.Nop(),
		cache:   make(map[int]Object),
		objStms: make(map[int]*objectStream),
	}
	if opts.Logger != nil {
		p.log = *opts.Logger
	}

	version, err := parseHeader(data)
	if err != nil {
		return nil, types.WrapError(types.ErrCodeMalformedPDF, "invalid header", err)
	}
	p.version = version

	if err := p.parseStandard(); err != nil {
		p.log.Debug().Err(err).Msg("xref unusable, scanning file for objects")
		if rerr := p.reconstruct(); rerr != nil {
			return nil, types.WrapError(types.ErrCodeMalformedPDF, "cannot locate objects", err)
		}
	}

	if _, ok := p.trailer["Encrypt"]; ok {
		return nil, types.NewPDFError(types.ErrCodeEncrypted, "document is encrypted")
	}
	if _, ok := p.trailer["Root"].(Reference); !ok {
		return nil, types.NewPDFError(types.ErrCodeMalformedPDF, "trailer has no /Root")
	}
	return p, nil
}

func parseHeader(data []byte) (string, error) {
	if len(data) < 8 {
		return "", fmt.Errorf("file too short")
	}
	limit := len(data)
	if limit > 1024 {
		limit = 1024
	}
	idx := bytes.Index(data[:limit], []byte("%PDF-"))
	if idx < 0 {
		return "", fmt.Errorf("missing %%PDF- marker")
	}
	op := newObjectParser(data, idx+5)
	version := string(op.readToken())
	if version == "" {
		return "", fmt.Errorf("missing version")
	}
	return version, nil
}

// parseStandard reads the xref chain named by the last startxref
func (p *PDF) parseStandard() error {
	start, err := findLastStartXRef(p.data)
	if err != nil {
		return err
	}
	sections, err := p.parseXRefChain(start)
	if err != nil {
		return err
	}
	p.xref, p.trailer = mergeSections(sections)
	p.revisions = len(sections)
	if _, ok := p.trailer["Root"]; !ok {
		return fmt.Errorf("trailer has no /Root")
	}
	return nil
}

// Version returns the header version, e.g. "1.7"
func (p *PDF) Version() string {
	return p.version
}

// RevisionCount returns the number of xref sections that were read
func (p *PDF) RevisionCount() int {
	return p.revisions
}

// Recovered reports whether the object table had to be rebuilt by scanning
func (p *PDF) Recovered() bool {
	return p.recovered
}

// Trailer returns the merged trailer dictionary
func (p *PDF) Trailer() Dict {
	return p.trailer
}

// Objects returns the sorted numbers of all in-use objects
func (p *PDF) Objects() []int {
	nums := make([]int, 0, len(p.xref))
	for num, e := range p.xref {
		if e.Type != 0 {
			nums = append(nums, num)
		}
	}
	sort.Ints(nums)
	return nums
}

// MaxObjectNumber returns the highest object number in use
func (p *PDF) MaxObjectNumber() int {
	max := 0
	for num, e := range p.xref {
		if e.Type != 0 && num > max {
			max = num
		}
	}
	return max
}

// Catalog returns the document catalog
func (p *PDF) Catalog() (Dict, error) {
	return p.ResolveDict(p.trailer["Root"])
}

// GetObject returns indirect object num. The returned value is shared with
// the cache and must not be modified; Clone dictionaries before editing.
func (p *PDF) GetObject(num int) (Object, error) {
	return p.getObject(num, nil)
}

// getObject loads num while tracking the objects whose parsing is already
// in progress on this call chain. A stream whose /Length points back at
// itself, or an object stream listed inside itself, ends in an error
// instead of unbounded recursion.
func (p *PDF) getObject(num int, visiting map[int]bool) (Object, error) {
	p.mu.Lock()
	if obj, ok := p.cache[num]; ok {
		p.mu.Unlock()
		return obj, nil
	}
	p.mu.Unlock()

	entry, ok := p.xref[num]
	if !ok || entry.Type == 0 {
		return nil, types.NewPDFErrorf(types.ErrCodeObjectNotFound, "object %d not found", num)
	}
	if visiting[num] {
		return nil, types.NewPDFErrorf(types.ErrCodeMalformedPDF, "object %d refers to itself while being read", num)
	}
	if visiting == nil {
		visiting = make(map[int]bool)
	}
	visiting[num] = true
	defer delete(visiting, num)

	var obj Object
	var err error
	switch entry.Type {
	case 1:
		obj, err = p.getDirectObject(num, entry.Offset, visiting)
	case 2:
		obj, err = p.getObjectFromStream(num, entry.StreamNum, entry.Index, visiting)
	}
	if err != nil {
		return nil, types.WrapErrorf(types.ErrCodeMalformedPDF, err, "object %d", num)
	}

	p.mu.Lock()
	p.cache[num] = obj
	p.mu.Unlock()
	return obj, nil
}

func (p *PDF) getDirectObject(num int, offset int64, visiting map[int]bool) (Object, error) {
	if offset < 0 || offset >= int64(len(p.data)) {
		return nil, fmt.Errorf("offset %d out of range", offset)
	}
	gotNum, _, obj, err := p.parseIndirectAt(offset, visiting)
	if err == nil && gotNum == num {
		return obj, nil
	}

	// Offsets in hand-edited files are often a few bytes off; search directly
	if loc := findObjectHeader(p.data, num); loc >= 0 {
		gotNum, _, obj, err2 := p.parseIndirectAt(int64(loc), visiting)
		if err2 == nil && gotNum == num {
			return obj, nil
		}
	}
	if err == nil {
		err = fmt.Errorf("found object %d at offset %d", gotNum, offset)
	}
	return nil, err
}

// Resolve follows references until it reaches a direct object. Dangling
// references resolve to null.
func (p *PDF) Resolve(obj Object) (Object, error) {
	for depth := 0; depth < 32; depth++ {
		ref, ok := obj.(Reference)
		if !ok {
			return obj, nil
		}
		next, err := p.GetObject(ref.Number)
		if err != nil {
			if pdfErr, ok := err.(*types.PDFError); ok && pdfErr.Code == types.ErrCodeObjectNotFound {
				return nil, nil
			}
			return nil, err
		}
		obj = next
	}
	return nil, fmt.Errorf("reference chain too deep")
}

// ResolveDict resolves obj and returns it as a dictionary. A stream
// resolves to its dictionary.
func (p *PDF) ResolveDict(obj Object) (Dict, error) {
	resolved, err := p.Resolve(obj)
	if err != nil {
		return nil, err
	}
	switch v := resolved.(type) {
	case Dict:
		return v, nil
	case *Stream:
		return v.Dict, nil
	}
	return nil, fmt.Errorf("expected dictionary, got %T", resolved)
}

// parseIndirectAt parses "N G obj ... endobj" starting at offset, including
// the stream body when one follows the dictionary
func (p *PDF) parseIndirectAt(offset int64, visiting map[int]bool) (int, int, Object, error) {
	op := newObjectParser(p.data, int(offset))
	num, gen, err := op.parseIndirectHeader()
	if err != nil {
		return 0, 0, nil, err
	}
	obj, err := op.parseObject()
	if err != nil {
		return 0, 0, nil, err
	}

	dict, isDict := obj.(Dict)
	op.skipSpace()
	if !isDict || !op.peekKeyword("stream") {
		return num, gen, obj, nil
	}

	op.pos += len("stream")
	if op.pos < len(p.data) && p.data[op.pos] == '\r' {
		op.pos++
	}
	if op.pos < len(p.data) && p.data[op.pos] == '\n' {
		op.pos++
	}
	raw, err := p.readStreamData(dict, op.pos, visiting)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("object %d: %v", num, err)
	}
	return num, gen, &Stream{Dict: dict, Raw: raw}, nil
}

// readStreamData returns the stream body starting at start, trusting
// /Length when it is consistent with an endstream keyword
func (p *PDF) readStreamData(dict Dict, start int, visiting map[int]bool) ([]byte, error) {
	length := -1
	switch l := dict["Length"].(type) {
	case Integer:
		length = int(l)
	case Reference:
		if p.xref != nil {
			if obj, err := p.getObject(l.Number, visiting); err == nil {
				if n, ok := obj.(Integer); ok {
					length = int(n)
				}
			}
		}
	}

	if length >= 0 && start+length <= len(p.data) {
		op := newObjectParser(p.data, start+length)
		op.skipSpace()
		if op.peekKeyword("endstream") {
			return p.data[start : start+length], nil
		}
	}

	end := bytes.Index(p.data[start:], []byte("endstream"))
	if end < 0 {
		return nil, fmt.Errorf("missing endstream")
	}
	raw := p.data[start : start+end]
	raw = bytes.TrimSuffix(raw, []byte("\n"))
	raw = bytes.TrimSuffix(raw, []byte("\r"))
	return raw, nil
}

// findObjectHeader returns the offset of the last "num G obj" header in data
func findObjectHeader(data []byte, num int) int {
	needle := []byte(fmt.Sprintf("%d ", num))
	found := -1
	for i := 0; i < len(data); {
		idx := bytes.Index(data[i:], needle)
		if idx < 0 {
			break
		}
		pos := i + idx
		i = pos + 1
		if pos > 0 && !isWhitespace(data[pos-1]) {
			continue
		}
		op := newObjectParser(data, pos)
		if n, _, err := op.parseIndirectHeader(); err == nil && n == num {
			found = pos
		}
	}
	return found
}
