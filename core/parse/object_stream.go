package parse

import (
	"fmt"
	"strconv"
)

// objectStream is a decoded /Type /ObjStm stream
type objectStream struct {
	data    []byte
	first   int
	offsets map[int]int // object number -> offset relative to first
	order   []int       // object numbers in stream order
}

func (p *PDF) loadObjectStream(streamNum int, visiting map[int]bool) (*objectStream, error) {
	p.mu.Lock()
	if stm, ok := p.objStms[streamNum]; ok {
		p.mu.Unlock()
		return stm, nil
	}
	p.mu.Unlock()

	obj, err := p.getObject(streamNum, visiting)
	if err != nil {
		return nil, err
	}
	stream, ok := obj.(*Stream)
	if !ok {
		return nil, fmt.Errorf("object %d is not an object stream", streamNum)
	}
	stm, err := decodeObjectStream(stream)
	if err != nil {
		return nil, fmt.Errorf("object stream %d: %v", streamNum, err)
	}

	p.mu.Lock()
	p.objStms[streamNum] = stm
	p.mu.Unlock()
	return stm, nil
}

func decodeObjectStream(stream *Stream) (*objectStream, error) {
	n, ok := stream.Dict.GetInt("N")
	if !ok || n < 0 {
		return nil, fmt.Errorf("missing /N")
	}
	first, ok := stream.Dict.GetInt("First")
	if !ok || first < 0 {
		return nil, fmt.Errorf("missing /First")
	}
	data, err := DecodeStream(stream)
	if err != nil {
		return nil, err
	}
	if first > len(data) {
		return nil, fmt.Errorf("/First %d beyond stream length %d", first, len(data))
	}
	// a header pair needs at least three bytes, so this bound is loose
	if n > (first+1)/2 {
		return nil, fmt.Errorf("/N %d does not fit a %d byte header", n, first)
	}

	stm := &objectStream{
		data:    data,
		first:   first,
		offsets: make(map[int]int, n),
		order:   make([]int, 0, n),
	}
	op := newObjectParser(data[:first], 0)
	for i := 0; i < n; i++ {
		op.skipSpace()
		num, err1 := strconv.Atoi(string(op.readToken()))
		op.skipSpace()
		off, err2 := strconv.Atoi(string(op.readToken()))
		if err1 != nil || err2 != nil || off < 0 {
			return nil, fmt.Errorf("invalid header pair %d", i)
		}
		stm.offsets[num] = off
		stm.order = append(stm.order, num)
	}
	return stm, nil
}

// getObjectFromStream extracts object num from object stream streamNum
func (p *PDF) getObjectFromStream(num, streamNum, index int, visiting map[int]bool) (Object, error) {
	stm, err := p.loadObjectStream(streamNum, visiting)
	if err != nil {
		return nil, err
	}
	off, ok := stm.offsets[num]
	if !ok {
		if index < 0 || index >= len(stm.order) {
			return nil, fmt.Errorf("object %d not in stream %d", num, streamNum)
		}
		off = stm.offsets[stm.order[index]]
	}
	if off < 0 || stm.first+off >= len(stm.data) {
		return nil, fmt.Errorf("object %d offset beyond stream %d", num, streamNum)
	}
	return newObjectParser(stm.data, stm.first+off).parseObject()
}
