package parse

import (
	"bytes"
	"fmt"
	"strconv"
)

// Object is any PDF object: Bool, Integer, Real, String, Name, Array, Dict,
// Reference, *Stream, or nil for null.
type Object interface{}

// Name is a PDF name without its leading slash
type Name string

// Integer is a PDF integer
type Integer int64

// Real is a PDF real number
type Real float64

// Bool is a PDF boolean
type Bool bool

// String holds the decoded bytes of a literal or hexadecimal string
type String []byte

// Array is a PDF array
type Array []Object

// Dict is a PDF dictionary keyed by name
type Dict map[Name]Object

// Reference is an indirect object reference "N G R"
type Reference struct {
	Number     int
	Generation int
}

// String formats the reference the way it appears in a file
func (r Reference) String() string {
	return fmt.Sprintf("%d %d R", r.Number, r.Generation)
}

// Stream is a stream object. Raw still carries the encoding named by
// Dict["Filter"].
type Stream struct {
	Dict Dict
	Raw  []byte
}

// Number returns a numeric object as float64
func Number(obj Object) (float64, bool) {
	switch v := obj.(type) {
	case Integer:
		return float64(v), true
	case Real:
		return float64(v), true
	}
	return 0, false
}

// GetName returns the name stored under key, if any
func (d Dict) GetName(key Name) (Name, bool) {
	n, ok := d[key].(Name)
	return n, ok
}

// GetInt returns the integer stored under key, if any
func (d Dict) GetInt(key Name) (int, bool) {
	switch v := d[key].(type) {
	case Integer:
		return int(v), true
	case Real:
		return int(v), true
	}
	return 0, false
}

// Clone returns a shallow copy of d
func (d Dict) Clone() Dict {
	out := make(Dict, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// objectParser reads PDF object syntax from a byte slice
type objectParser struct {
	data []byte
	pos  int
}

func newObjectParser(data []byte, pos int) *objectParser {
	return &objectParser{data: data, pos: pos}
}

func isWhitespace(b byte) bool {
	switch b {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// skipSpace skips whitespace and comments
func (p *objectParser) skipSpace() {
	for p.pos < len(p.data) {
		b := p.data[p.pos]
		if isWhitespace(b) {
			p.pos++
			continue
		}
		if b == '%' {
			for p.pos < len(p.data) && p.data[p.pos] != '\n' && p.data[p.pos] != '\r' {
				p.pos++
			}
			continue
		}
		return
	}
}

// readToken reads a regular (non-delimited) token such as a number or keyword
func (p *objectParser) readToken() []byte {
	start := p.pos
	for p.pos < len(p.data) && !isWhitespace(p.data[p.pos]) && !isDelimiter(p.data[p.pos]) {
		p.pos++
	}
	return p.data[start:p.pos]
}

// peekKeyword reports whether kw follows at the current position as a whole token
func (p *objectParser) peekKeyword(kw string) bool {
	end := p.pos + len(kw)
	if end > len(p.data) || !bytes.Equal(p.data[p.pos:end], []byte(kw)) {
		return false
	}
	return end == len(p.data) || isWhitespace(p.data[end]) || isDelimiter(p.data[end])
}

// parseObject parses one direct object
func (p *objectParser) parseObject() (Object, error) {
	p.skipSpace()
	if p.pos >= len(p.data) {
		return nil, fmt.Errorf("unexpected end of data")
	}

	switch b := p.data[p.pos]; {
	case b == '/':
		return p.parseName()
	case b == '<':
		if p.pos+1 < len(p.data) && p.data[p.pos+1] == '<' {
			return p.parseDict()
		}
		return p.parseHexString()
	case b == '[':
		return p.parseArray()
	case b == '(':
		return p.parseLiteralString()
	case b == '+' || b == '-' || b == '.' || (b >= '0' && b <= '9'):
		return p.parseNumberOrReference()
	}

	start := p.pos
	tok := p.readToken()
	switch string(tok) {
	case "true":
		return Bool(true), nil
	case "false":
		return Bool(false), nil
	case "null":
		return nil, nil
	case "":
		return nil, fmt.Errorf("unexpected character %q at offset %d", p.data[p.pos], p.pos)
	}
	return nil, fmt.Errorf("unexpected keyword %q at offset %d", tok, start)
}

func (p *objectParser) parseName() (Object, error) {
	p.pos++ // '/'
	tok := p.readToken()
	if bytes.IndexByte(tok, '#') < 0 {
		return Name(tok), nil
	}
	var buf bytes.Buffer
	for i := 0; i < len(tok); i++ {
		if tok[i] == '#' && i+2 < len(tok) {
			if v, err := strconv.ParseUint(string(tok[i+1:i+3]), 16, 8); err == nil {
				buf.WriteByte(byte(v))
				i += 2
				continue
			}
		}
		buf.WriteByte(tok[i])
	}
	return Name(buf.String()), nil
}

func (p *objectParser) parseDict() (Object, error) {
	p.pos += 2 // "<<"
	dict := make(Dict)
	for {
		p.skipSpace()
		if p.pos+1 < len(p.data) && p.data[p.pos] == '>' && p.data[p.pos+1] == '>' {
			p.pos += 2
			return dict, nil
		}
		if p.pos >= len(p.data) {
			return nil, fmt.Errorf("unterminated dictionary")
		}
		keyObj, err := p.parseObject()
		if err != nil {
			return nil, fmt.Errorf("dictionary key: %w", err)
		}
		key, ok := keyObj.(Name)
		if !ok {
			return nil, fmt.Errorf("dictionary key is %T, not a name", keyObj)
		}
		val, err := p.parseObject()
		if err != nil {
			return nil, fmt.Errorf("dictionary value for /%s: %w", key, err)
		}
		// A null value is equivalent to an absent entry
		if val != nil {
			dict[key] = val
		}
	}
}

func (p *objectParser) parseArray() (Object, error) {
	p.pos++ // '['
	arr := Array{}
	for {
		p.skipSpace()
		if p.pos >= len(p.data) {
			return nil, fmt.Errorf("unterminated array")
		}
		if p.data[p.pos] == ']' {
			p.pos++
			return arr, nil
		}
		val, err := p.parseObject()
		if err != nil {
			return nil, err
		}
		arr = append(arr, val)
	}
}

func (p *objectParser) parseHexString() (Object, error) {
	p.pos++ // '<'
	end := bytes.IndexByte(p.data[p.pos:], '>')
	if end < 0 {
		return nil, fmt.Errorf("unterminated hex string")
	}
	decoded, err := DecodeASCIIHex(p.data[p.pos : p.pos+end])
	if err != nil {
		return nil, err
	}
	p.pos += end + 1
	return String(decoded), nil
}

func (p *objectParser) parseLiteralString() (Object, error) {
	p.pos++ // '('
	var buf bytes.Buffer
	depth := 1
	for p.pos < len(p.data) {
		b := p.data[p.pos]
		p.pos++
		switch b {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return String(buf.Bytes()), nil
			}
		case '\\':
			if p.pos >= len(p.data) {
				continue
			}
			e := p.data[p.pos]
			p.pos++
			switch e {
			case 'n':
				buf.WriteByte('\n')
			case 'r':
				buf.WriteByte('\r')
			case 't':
				buf.WriteByte('\t')
			case 'b':
				buf.WriteByte('\b')
			case 'f':
				buf.WriteByte('\f')
			case '\r':
				if p.pos < len(p.data) && p.data[p.pos] == '\n' {
					p.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && p.pos < len(p.data) && p.data[p.pos] >= '0' && p.data[p.pos] <= '7'; i++ {
						v = v*8 + int(p.data[p.pos]-'0')
						p.pos++
					}
					buf.WriteByte(byte(v))
				} else {
					buf.WriteByte(e)
				}
			}
			continue
		}
		buf.WriteByte(b)
	}
	return nil, fmt.Errorf("unterminated literal string")
}

// parseNumberOrReference parses a number, looking ahead for "G R"
func (p *objectParser) parseNumberOrReference() (Object, error) {
	tok := p.readToken()
	if len(tok) == 0 {
		// a lone sign followed by a delimiter
		p.pos++
		return Integer(0), nil
	}
	if i, err := strconv.ParseInt(string(tok), 10, 64); err == nil {
		save := p.pos
		if ref, ok := p.tryReference(int(i)); ok {
			return ref, nil
		}
		p.pos = save
		return Integer(i), nil
	}
	f, err := strconv.ParseFloat(string(tok), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", tok)
	}
	return Real(f), nil
}

func (p *objectParser) tryReference(num int) (Reference, bool) {
	if num < 0 {
		return Reference{}, false
	}
	p.skipSpace()
	genTok := p.readToken()
	gen, err := strconv.Atoi(string(genTok))
	if err != nil || gen < 0 {
		return Reference{}, false
	}
	p.skipSpace()
	if !p.peekKeyword("R") {
		return Reference{}, false
	}
	p.pos++
	return Reference{Number: num, Generation: gen}, true
}

// parseIndirectHeader parses "N G obj" and returns N and G
func (p *objectParser) parseIndirectHeader() (int, int, error) {
	p.skipSpace()
	num, err := strconv.Atoi(string(p.readToken()))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid object number")
	}
	p.skipSpace()
	gen, err := strconv.Atoi(string(p.readToken()))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid generation number")
	}
	p.skipSpace()
	if !p.peekKeyword("obj") {
		return 0, 0, fmt.Errorf("missing obj keyword")
	}
	p.pos += 3
	return num, gen, nil
}

// ParseObject parses a single direct object from data. It is mainly useful
// for tests and for reading content stream operands.
func ParseObject(data []byte) (Object, error) {
	return newObjectParser(data, 0).parseObject()
}
