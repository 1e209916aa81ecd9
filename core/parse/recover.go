package parse

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
)

var objHeaderPattern = regexp.MustCompile(`(\d+)\s+(\d+)\s+obj\b`)

// reconstruct rebuilds the object table by scanning the whole file for
// "N G obj" headers. Later definitions override earlier ones, matching the
// way incremental updates append replacements.
func (p *PDF) reconstruct() error {
	p.xref = make(map[int]xrefEntry)
	p.cache = make(map[int]Object)
	p.objStms = make(map[int]*objectStream)
	for _, m := range objHeaderPattern.FindAllSubmatchIndex(p.data, -1) {
		if m[0] > 0 && !isWhitespace(p.data[m[0]-1]) && !isDelimiter(p.data[m[0]-1]) {
			continue
		}
		num, err1 := strconv.Atoi(string(p.data[m[2]:m[3]]))
		gen, err2 := strconv.Atoi(string(p.data[m[4]:m[5]]))
		if err1 != nil || err2 != nil {
			continue
		}
		p.xref[num] = xrefEntry{Type: 1, Offset: int64(m[0]), Generation: gen}
	}
	if len(p.xref) == 0 {
		return fmt.Errorf("no objects found")
	}
	p.recovered = true
	p.revisions = 1

	// Compressed objects are only reachable through their object streams
	var xrefStreamTrailer Dict
	for _, num := range p.Objects() {
		obj, err := p.GetObject(num)
		if err != nil {
			continue
		}
		stream, ok := obj.(*Stream)
		if !ok {
			continue
		}
		switch t, _ := stream.Dict.GetName("Type"); t {
		case "XRef":
			xrefStreamTrailer = stream.Dict
		case "ObjStm":
			stm, err := decodeObjectStream(stream)
			if err != nil {
				continue
			}
			for i, inner := range stm.order {
				if _, direct := p.xref[inner]; !direct {
					p.xref[inner] = xrefEntry{Type: 2, StreamNum: num, Index: i}
				}
			}
		}
	}

	p.trailer = p.findTrailer()
	if p.trailer == nil && xrefStreamTrailer != nil {
		p.trailer = xrefStreamTrailer.Clone()
	}
	if p.trailer == nil {
		p.trailer = make(Dict)
	}
	if _, ok := p.trailer["Root"].(Reference); !ok {
		if root, ok := p.findCatalog(); ok {
			p.trailer["Root"] = root
		}
	}
	return nil
}

// findTrailer parses the dictionary after the last "trailer" keyword
func (p *PDF) findTrailer() Dict {
	idx := bytes.LastIndex(p.data, []byte("trailer"))
	if idx < 0 {
		return nil
	}
	obj, err := newObjectParser(p.data, idx+len("trailer")).parseObject()
	if err != nil {
		return nil
	}
	dict, _ := obj.(Dict)
	return dict
}

// findCatalog returns a reference to the last object with /Type /Catalog
func (p *PDF) findCatalog() (Reference, bool) {
	var found Reference
	ok := false
	for _, num := range p.Objects() {
		obj, err := p.GetObject(num)
		if err != nil {
			continue
		}
		if d, isDict := obj.(Dict); isDict {
			if t, _ := d.GetName("Type"); t == "Catalog" {
				found = Reference{Number: num, Generation: p.xref[num].Generation}
				ok = true
			}
		}
	}
	return found, ok
}
