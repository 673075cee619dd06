package pmem

import (
	"encoding/binary"
	"os"

	"golang.org/x/sys/unix"

	"github.com/lprylli/oppctl/log"
)

// FileRegion accesses memory with pread/pwrite on a memory device. It is
// the only access method /dev/kmem supports on some kernels.
type FileRegion struct {
	name string
	fd   *os.File
	base int64
	size int64
}

func (m *FileRegion) check(offset int64) {
	if offset < 0 || offset+4 > m.size {
		log.Errorf("%s: offset=%#x size=%#x", m.name, offset, m.size)
		panic("out of bounds")
	}
}

func (m *FileRegion) Read32(offset int64) uint32 {
	m.check(offset)
	var b [4]byte
	n, err := unix.Pread(int(m.fd.Fd()), b[:], offset+m.base)
	if err != nil || n != 4 {
		log.Fatalf("%s: read %#x: n=%d %v", m.name, offset+m.base, n, err)
	}
	return binary.LittleEndian.Uint32(b[:])
}

func (m *FileRegion) Write32(offset int64, val uint32) {
	m.check(offset)
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], val)
	n, err := unix.Pwrite(int(m.fd.Fd()), b[:], offset+m.base)
	if err != nil || n != 4 {
		log.Fatalf("%s: write %#x: n=%d %v", m.name, offset+m.base, n, err)
	}
}

func (m *FileRegion) Name() string { return m.name }

func (m *FileRegion) Size() int64 { return m.size }

func FileMap(dev, name string, hwaddr int64, write bool, ioLen int64) (Region, error) {
	if ioLen == 0 {
		ioLen = PageSize
	}
	mapLock.Lock()
	defer mapLock.Unlock()
	fd, _, err := getFile(dev, write)
	if err != nil {
		return nil, err
	}
	return &FileRegion{name: name, fd: fd, base: hwaddr, size: ioLen}, nil
}
