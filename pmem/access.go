package pmem

import "unsafe"

//go:noinline
//go:nosplit
func Read32Go(ptr *uint32) uint32 {
	return *ptr
}

//go:noinline
//go:nosplit
func Write32Go(ptr *uint32, val uint32) {
	*ptr = val
}

func (m *MemRegion) check(off int64) {
	if off < 0 || off+4 > int64(len(m.mem)) || off&3 != 0 {
		panic("out of bounds")
	}
}

func (m *MemRegion) Read32(off int64) uint32 {
	m.check(off)
	return Read32Go((*uint32)(unsafe.Pointer(&m.mem[off])))
}

func (m *MemRegion) Write32(off int64, val uint32) {
	m.check(off)
	Write32Go((*uint32)(unsafe.Pointer(&m.mem[off])), val)
}
