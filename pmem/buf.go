package pmem

import (
	"encoding/binary"
	"fmt"
)

// BufRegion is a Region over an ordinary byte slice.
type BufRegion struct {
	name string
	mem  []byte
}

func NewBuf(name string, mem []byte) *BufRegion {
	return &BufRegion{name: name, mem: mem}
}

func (b *BufRegion) Name() string { return b.name }

func (b *BufRegion) Size() int64 { return int64(len(b.mem)) }

func (b *BufRegion) Bytes() []byte { return b.mem }

func (b *BufRegion) check(off int64) {
	if off < 0 || off+4 > int64(len(b.mem)) {
		panic(fmt.Sprintf("%s: offset %#x out of bounds (size %#x)", b.name, off, len(b.mem)))
	}
}

func (b *BufRegion) Read32(off int64) uint32 {
	b.check(off)
	return binary.LittleEndian.Uint32(b.mem[off:])
}

func (b *BufRegion) Write32(off int64, val uint32) {
	b.check(off)
	binary.LittleEndian.PutUint32(b.mem[off:], val)
}

type subRegion struct {
	parent Region
	name   string
	off    int64
	size   int64
}

// Sub returns the size bytes of parent starting at off as a new region.
func Sub(parent Region, name string, off, size int64) Region {
	if off < 0 || size < 0 || off+size > parent.Size() {
		panic(fmt.Sprintf("%s: window %#x+%#x exceeds %s", name, off, size, parent.Name()))
	}
	return &subRegion{parent: parent, name: name, off: off, size: size}
}

func (s *subRegion) Name() string { return s.name }

func (s *subRegion) Size() int64 { return s.size }

func (s *subRegion) check(off int64) {
	if off < 0 || off+4 > s.size {
		panic(fmt.Sprintf("%s: offset %#x out of bounds (size %#x)", s.name, off, s.size))
	}
}

func (s *subRegion) Read32(off int64) uint32 {
	s.check(off)
	return s.parent.Read32(s.off + off)
}

func (s *subRegion) Write32(off int64, val uint32) {
	s.check(off)
	s.parent.Write32(s.off+off, val)
}
