package parse

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"fmt"
	"io"
)

// DecodeStream applies every filter named by the stream dictionary and
// returns the decoded bytes. Image filters such as DCTDecode are left to
// consumers; asking to decode them is an error.
func DecodeStream(s *Stream) ([]byte, error) {
	var filters []Name
	var parms []Dict

	switch f := s.Dict["Filter"].(type) {
	case nil:
		return s.Raw, nil
	case Name:
		filters = []Name{f}
		if d, ok := s.Dict["DecodeParms"].(Dict); ok {
			parms = []Dict{d}
		}
	case Array:
		for _, item := range f {
			n, ok := item.(Name)
			if !ok {
				return nil, fmt.Errorf("invalid filter entry %v", item)
			}
			filters = append(filters, n)
		}
		if arr, ok := s.Dict["DecodeParms"].(Array); ok {
			for _, item := range arr {
				d, _ := item.(Dict)
				parms = append(parms, d)
			}
		}
	default:
		return nil, fmt.Errorf("invalid /Filter %v", f)
	}

	data := s.Raw
	for i, name := range filters {
		var p Dict
		if i < len(parms) {
			p = parms[i]
		}
		var err error
		data, err = DecodeFilter(data, name, p)
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

// DecodeFilter applies a single named filter with optional decode parameters
func DecodeFilter(data []byte, filter Name, parms Dict) ([]byte, error) {
	switch filter {
	case "FlateDecode", "Fl":
		out, err := DecodeFlate(data)
		if err != nil {
			return nil, err
		}
		return applyPredictor(out, parms)
	case "ASCIIHexDecode", "AHx":
		return DecodeASCIIHex(data)
	case "ASCII85Decode", "A85":
		return DecodeASCII85(data)
	default:
		return nil, fmt.Errorf("unsupported filter: %s", filter)
	}
}

// DecodeFlate decompresses zlib data, falling back to raw deflate for
// streams written without a zlib header
func DecodeFlate(data []byte) ([]byte, error) {
	if zr, err := zlib.NewReader(bytes.NewReader(data)); err == nil {
		out, err := io.ReadAll(zr)
		zr.Close()
		if err == nil || len(out) > 0 {
			return out, nil
		}
	}
	fr := flate.NewReader(bytes.NewReader(data))
	defer fr.Close()
	out, err := io.ReadAll(fr)
	if err != nil && len(out) == 0 {
		return nil, fmt.Errorf("flate error: %v", err)
	}
	return out, nil
}

// applyPredictor undoes PNG row predictors (10-15). TIFF predictor 2 is not
// used by the xref and object streams this package decodes.
func applyPredictor(data []byte, parms Dict) ([]byte, error) {
	if parms == nil {
		return data, nil
	}
	predictor, _ := parms.GetInt("Predictor")
	if predictor < 10 {
		if predictor == 2 {
			return nil, fmt.Errorf("unsupported TIFF predictor")
		}
		return data, nil
	}

	columns, ok := parms.GetInt("Columns")
	if !ok || columns <= 0 {
		columns = 1
	}
	colors, ok := parms.GetInt("Colors")
	if !ok || colors <= 0 {
		colors = 1
	}
	bpc, ok := parms.GetInt("BitsPerComponent")
	if !ok || bpc <= 0 {
		bpc = 8
	}
	if len(data) == 0 {
		return data, nil
	}
	if colors > 32 || bpc > 16 || columns > len(data)*8 {
		return nil, fmt.Errorf("predictor parameters out of range")
	}
	bpp := (colors*bpc + 7) / 8
	rowLen := (columns*colors*bpc + 7) / 8
	if rowLen >= len(data) {
		return nil, fmt.Errorf("predictor row of %d bytes exceeds %d bytes of data", rowLen, len(data))
	}

	var out bytes.Buffer
	prev := make([]byte, rowLen)
	row := make([]byte, rowLen)
	for pos := 0; pos+1+rowLen <= len(data); pos += rowLen + 1 {
		filterType := data[pos]
		copy(row, data[pos+1:pos+1+rowLen])
		for i := 0; i < rowLen; i++ {
			var left, upLeft byte
			if i >= bpp {
				left = row[i-bpp]
				upLeft = prev[i-bpp]
			}
			up := prev[i]
			switch filterType {
			case 0:
			case 1:
				row[i] += left
			case 2:
				row[i] += up
			case 3:
				row[i] += byte((int(left) + int(up)) / 2)
			case 4:
				row[i] += paeth(left, up, upLeft)
			default:
				return nil, fmt.Errorf("invalid PNG filter type %d", filterType)
			}
		}
		out.Write(row)
		prev, row = row, prev
	}
	return out.Bytes(), nil
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// DecodeASCIIHex converts pairs of hex digits to bytes.
// Whitespace is ignored and '>' marks the end of data.
func DecodeASCIIHex(data []byte) ([]byte, error) {
	var result bytes.Buffer
	var hexByte byte
	var haveNibble bool

	for _, b := range data {
		if isWhitespace(b) {
			continue
		}
		if b == '>' {
			break
		}

		var nibble byte
		switch {
		case b >= '0' && b <= '9':
			nibble = b - '0'
		case b >= 'A' && b <= 'F':
			nibble = b - 'A' + 10
		case b >= 'a' && b <= 'f':
			nibble = b - 'a' + 10
		default:
			return nil, fmt.Errorf("invalid hex character: %c", b)
		}

		if haveNibble {
			result.WriteByte(hexByte<<4 | nibble)
			haveNibble = false
		} else {
			hexByte = nibble
			haveNibble = true
		}
	}

	// odd digit count: the last nibble is padded with 0
	if haveNibble {
		result.WriteByte(hexByte << 4)
	}

	return result.Bytes(), nil
}

// DecodeASCII85 decodes base-85 data; 'z' stands for four zero bytes and
// "~>" ends the data
func DecodeASCII85(data []byte) ([]byte, error) {
	var result bytes.Buffer
	data = bytes.TrimPrefix(data, []byte("<~"))

	var tuple [5]byte
	n := 0
	for i := 0; i < len(data); i++ {
		b := data[i]
		if isWhitespace(b) {
			continue
		}
		if b == '~' {
			break
		}
		if b == 'z' {
			if n != 0 {
				return nil, fmt.Errorf("'z' inside ascii85 tuple")
			}
			result.Write([]byte{0, 0, 0, 0})
			continue
		}
		if b < '!' || b > 'u' {
			return nil, fmt.Errorf("invalid ascii85 character: 0x%02x", b)
		}
		tuple[n] = b - '!'
		n++
		if n == 5 {
			result.Write(ascii85Word(tuple))
			n = 0
		}
	}

	if n > 0 {
		for i := n; i < 5; i++ {
			tuple[i] = 84
		}
		result.Write(ascii85Word(tuple)[:n-1])
	}
	return result.Bytes(), nil
}

func ascii85Word(t [5]byte) []byte {
	v := uint32(t[0])*85*85*85*85 + uint32(t[1])*85*85*85 + uint32(t[2])*85*85 + uint32(t[3])*85 + uint32(t[4])
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}
