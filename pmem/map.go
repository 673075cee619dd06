package pmem

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

const PageSize = 4096

// Region is a window of host memory accessed in 32-bit little endian words.
// Offsets are relative to the start of the region; out of range accesses
// panic.
type Region interface {
	Name() string
	Size() int64
	Read32(offset int64) uint32
	Write32(offset int64, val uint32)
}

// MapFunc is the signature shared by Map and FileMap. dev is the memory
// device to open, /dev/mem or /dev/kmem.
type MapFunc func(dev, name string, hwaddr int64, write bool, ioLen int64) (Region, error)

type MemRegion struct {
	name string
	mem  []byte
}

func (m *MemRegion) Name() string { return m.name }

func (m *MemRegion) Size() int64 { return int64(len(m.mem)) }

type iomapping struct {
	dev    string
	hwAddr int64
	len    int64
	write  bool
}

type devFile struct {
	dev   string
	write bool
}

var (
	mapLock sync.Mutex
	hwMaps  = make(map[iomapping]*MemRegion)
	devs    = make(map[devFile]*os.File)
)

// getFile opens dev once per access mode. Callers hold mapLock.
func getFile(dev string, write bool) (f *os.File, prot int, err error) {
	openFlag := os.O_RDONLY
	prot = unix.PROT_READ
	if write {
		openFlag = os.O_RDWR
		prot |= unix.PROT_WRITE
	}
	key := devFile{dev, write}
	if f = devs[key]; f == nil {
		if f, err = os.OpenFile(dev, openFlag, 0666); err != nil {
			return nil, 0, err
		}
		devs[key] = f
	}
	return f, prot, nil
}

func memHandle(m iomapping) ([]byte, error) {
	f, prot, err := getFile(m.dev, m.write)
	if err != nil {
		return nil, err
	}
	return unix.Mmap(int(f.Fd()), m.hwAddr, int(m.len), prot, unix.MAP_SHARED)
}

func pageSpan(hwaddr, ioLen int64) (page, off, mapLen int64) {
	if ioLen == 0 {
		ioLen = PageSize
	}
	page = hwaddr &^ (PageSize - 1)
	off = hwaddr - page
	mapLen = off + ioLen
	mapLen += (-mapLen) & (PageSize - 1) // round-up to number of pages
	return page, off, mapLen
}

// Map returns an mmap backed region of ioLen bytes at hwaddr. hwaddr does
// not need to be page aligned; mappings of the same pages are shared.
func Map(dev, name string, hwaddr int64, write bool, ioLen int64) (Region, error) {
	if ioLen == 0 {
		ioLen = PageSize
	}
	page, off, mapLen := pageSpan(hwaddr, ioLen)

	mapLock.Lock()
	defer mapLock.Unlock()
	m := iomapping{dev, page, mapLen, write}
	r := hwMaps[m]
	if r == nil {
		data, err := memHandle(m)
		if err != nil {
			return nil, fmt.Errorf("%s: mmap %#x+%#x: %w", dev, page, mapLen, err)
		}
		r = &MemRegion{name: name, mem: data}
		hwMaps[m] = r
	}
	if off == 0 && ioLen == mapLen {
		return r, nil
	}
	return Sub(r, name, off, ioLen), nil
}

// Unmap releases every mapping made by Map and closes every memory device
// opened by Map and FileMap.
func Unmap() error {
	mapLock.Lock()
	defer mapLock.Unlock()
	var first error
	for m, r := range hwMaps {
		if err := unix.Munmap(r.mem); err != nil && first == nil {
			first = err
		}
		r.mem = nil
		delete(hwMaps, m)
	}
	for k, f := range devs {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
		delete(devs, k)
	}
	return first
}
