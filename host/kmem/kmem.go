// Package kmem is a bind.Host over live kernel memory. Structures are found
// at configured kernel virtual addresses and accessed through /dev/kmem or,
// with an offset translation, /dev/mem.
package kmem

import (
	"fmt"

	"github.com/lprylli/oppctl/bind"
	"github.com/lprylli/oppctl/config"
	"github.com/lprylli/oppctl/cpufreq"
	"github.com/lprylli/oppctl/pmem"
)

type Host struct {
	cfg     config.Memory
	maxRows int
	mapFn   pmem.MapFunc
}

var _ bind.Host = (*Host)(nil)

// New returns a host reading cfg.Device. maxRows bounds the live rows of
// the table.
func New(cfg config.Memory, maxRows int) *Host {
	h := &Host{cfg: cfg, maxRows: maxRows, mapFn: pmem.FileMap}
	if cfg.Mmap {
		h.mapFn = pmem.Map
	}
	if h.maxRows <= 0 {
		h.maxRows = bind.DefaultMaxRows
	}
	return h
}

// phys translates a kernel virtual address to a device offset.
func (h *Host) phys(addr uint64) (int64, error) {
	if addr == 0 {
		return 0, fmt.Errorf("address not configured")
	}
	if addr < h.cfg.PageOffset {
		return 0, fmt.Errorf("address %#x below page offset %#x", addr, h.cfg.PageOffset)
	}
	return int64(addr - h.cfg.PageOffset + h.cfg.PhysOffset), nil
}

func (h *Host) mapAt(name string, addr uint64, size int64) (pmem.Region, error) {
	off, err := h.phys(addr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return h.mapFn(h.cfg.Device, name, off, true, size)
}

// deref reads the 32-bit pointer stored at addr.
func (h *Host) deref(name string, addr uint64) (uint32, error) {
	r, err := h.mapAt(name, addr, 4)
	if err != nil {
		return 0, err
	}
	ptr := r.Read32(0)
	if ptr == 0 {
		return 0, fmt.Errorf("%s: NULL pointer at %#x", name, addr)
	}
	return ptr, nil
}

func (h *Host) Table() (pmem.Region, error) {
	// Room for the sentinel row after the last live one.
	return h.mapAt("acpu-freq-table", h.cfg.TableAddr, int64(h.maxRows+1)*bind.RowSize)
}

func (h *Host) Stats() (*cpufreq.Stats, error) {
	ptr, err := h.deref("cpufreq-stats-ptr", h.cfg.StatsAddr)
	if err != nil {
		return nil, err
	}
	st, err := h.mapAt("cpufreq-stats", uint64(ptr), cpufreq.StatsSize)
	if err != nil {
		return nil, err
	}
	states := int64(st.Read32(cpufreq.StatsMaxStateAt))
	table := uint64(st.Read32(cpufreq.StatsFreqTableAt))
	if states == 0 || table == 0 {
		return nil, fmt.Errorf("cpufreq stats at %#x not initialised", ptr)
	}
	freqs, err := h.mapAt("cpufreq-stats-freq-table", table, states*4)
	if err != nil {
		return nil, err
	}
	return cpufreq.NewStats(freqs), nil
}

func (h *Host) Policy(cpu int) (*cpufreq.FrequencyTable, *cpufreq.Policy, error) {
	if cpu != 0 {
		return nil, nil, fmt.Errorf("only the policy of cpu0 is configured")
	}
	ft, err := h.mapAt("cpufreq-table", h.cfg.FreqTableAddr, int64(h.cfg.FreqEntries)*cpufreq.EntrySize)
	if err != nil {
		return nil, nil, err
	}
	pol, err := h.mapAt("cpufreq-policy", h.cfg.PolicyAddr, h.cfg.Policy.Size())
	if err != nil {
		return nil, nil, err
	}
	return cpufreq.NewFrequencyTable(ft), cpufreq.NewPolicy(pol, h.cfg.Policy), nil
}

func (h *Host) Resolve(name string, addr uint32, size int64) (pmem.Region, error) {
	return h.mapAt(name, uint64(addr), size)
}

// Word maps the 32-bit word at the kernel address addr.
func (h *Host) Word(addr uint64) (pmem.Region, error) {
	return h.mapAt(fmt.Sprintf("word@%#x", addr), addr, 4)
}

// Close releases the mappings of every host, as pmem keeps one cache.
func (h *Host) Close() error {
	return pmem.Unmap()
}
