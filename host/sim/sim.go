// Package sim is a bind.Host whose structures live in ordinary memory,
// built from a YAML fixture. The binary layout is the one of the kernel
// structures, so everything above the host runs unchanged.
package sim

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lprylli/oppctl/bind"
	"github.com/lprylli/oppctl/cpufreq"
	"github.com/lprylli/oppctl/pmem"
)

// Invalid marks a cpufreq_frequency_table entry to skip in Fixture.Frequencies.
const Invalid = -1

type PLL struct {
	L      uint32 `yaml:"l"`
	M      uint32 `yaml:"m"`
	N      uint32 `yaml:"n"`
	PreDiv uint32 `yaml:"pre_div"`
}

type Point struct {
	Enabled       bool   `yaml:"enabled"`
	ClockKHz      uint32 `yaml:"clock_khz"`
	Source        int32  `yaml:"source"`
	SourceSelect  uint32 `yaml:"source_select"`
	SourceDivider uint32 `yaml:"source_divider"`
	BusClockHz    uint32 `yaml:"bus_clock_hz"`
	VoltageMv     uint32 `yaml:"voltage_mv"`
	VoltageRaw    uint32 `yaml:"voltage_raw"`
	PLL           *PLL   `yaml:"pll"`
	Calibration   uint32 `yaml:"calibration"`
}

type Policy struct {
	Min uint32 `yaml:"min"`
	Max uint32 `yaml:"max"`
}

// Fixture describes the simulated host. Frequencies, Stats and Policy are
// derived from Points when omitted: one frequency entry per enabled point,
// stats equal to the frequencies and policy bounds spanning the enabled
// points up to the last point.
type Fixture struct {
	Points      []Point  `yaml:"points"`
	Frequencies []int64  `yaml:"frequencies"`
	Stats       []uint32 `yaml:"stats"`
	Policy      *Policy  `yaml:"policy"`
}

// Synthetic addresses of the simulated structures.
const (
	TableAddr = 0xc0888ce8
	pllBase   = 0xc0900000
)

var ErrClosed = errors.New("sim host closed")

type Host struct {
	Rows   *pmem.BufRegion
	Freqs  *pmem.BufRegion
	Stat   *pmem.BufRegion
	Bounds *pmem.BufRegion
	Layout cpufreq.PolicyLayout

	plls   map[uint32]*pmem.BufRegion
	closed bool
}

var _ bind.Host = (*Host)(nil)

// Load reads a fixture file and builds its host.
func Load(path string) (*Host, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return New(f)
}

func New(f Fixture) (*Host, error) {
	h := &Host{
		Layout: cpufreq.DefaultPolicyLayout,
		plls:   make(map[uint32]*pmem.BufRegion),
	}

	h.Rows = pmem.NewBuf("sim-table", make([]byte, int64(len(f.Points)+1)*bind.RowSize))
	for i, p := range f.Points {
		if p.ClockKHz == 0 {
			return nil, fmt.Errorf("point %d: clock_khz 0 is the table sentinel", i)
		}
		var pllAddr uint32
		if p.PLL != nil {
			pllAddr = uint32(pllBase + i*bind.PLLSize)
			r := pmem.NewBuf(fmt.Sprintf("sim-pll[%d]", i), make([]byte, bind.PLLSize))
			r.Write32(0, p.PLL.L)
			r.Write32(4, p.PLL.M)
			r.Write32(8, p.PLL.N)
			r.Write32(12, p.PLL.PreDiv)
			h.plls[pllAddr] = r
		}
		var enabled uint32
		if p.Enabled {
			enabled = 1
		}
		for j, v := range []uint32{
			enabled, p.ClockKHz, uint32(p.Source), p.SourceSelect, p.SourceDivider,
			p.BusClockHz, p.VoltageMv, p.VoltageRaw, pllAddr, p.Calibration,
		} {
			h.Rows.Write32(int64(i)*bind.RowSize+int64(j)*4, v)
		}
	}

	freqs := f.Frequencies
	if freqs == nil {
		for _, p := range f.Points {
			if p.Enabled {
				freqs = append(freqs, int64(p.ClockKHz))
			}
		}
	}
	h.Freqs = pmem.NewBuf("sim-freq-table", make([]byte, (len(freqs)+1)*cpufreq.EntrySize))
	ft := cpufreq.NewFrequencyTable(h.Freqs)
	var live []uint32
	for i, v := range freqs {
		h.Freqs.Write32(int64(i)*cpufreq.EntrySize, uint32(i))
		khz := uint32(v)
		if v == Invalid {
			khz = cpufreq.EntryInvalid
		} else {
			live = append(live, khz)
		}
		ft.SetFrequency(i, khz)
	}
	h.Freqs.Write32(int64(len(freqs))*cpufreq.EntrySize, uint32(len(freqs)))
	ft.SetFrequency(len(freqs), cpufreq.TableEnd)

	stats := f.Stats
	if stats == nil {
		for _, v := range freqs {
			if v == Invalid {
				stats = append(stats, cpufreq.EntryInvalid)
			} else {
				stats = append(stats, uint32(v))
			}
		}
	}
	h.Stat = pmem.NewBuf("sim-stats", make([]byte, len(stats)*4))
	st := cpufreq.NewStats(h.Stat)
	for i, v := range stats {
		st.SetFrequency(i, v)
	}

	pol := f.Policy
	if pol == nil {
		pol = &Policy{}
		if len(live) > 0 {
			pol.Min = live[0]
		}
		if len(f.Points) > 0 {
			pol.Max = f.Points[len(f.Points)-1].ClockKHz
		}
	}
	h.Bounds = pmem.NewBuf("sim-policy", make([]byte, h.Layout.Size()))
	for _, w := range []struct {
		off int64
		v   uint32
	}{
		{h.Layout.Min, pol.Min},
		{h.Layout.CPUInfoMin, pol.Min},
		{h.Layout.UserMin, pol.Min},
		{h.Layout.Max, pol.Max},
		{h.Layout.CPUInfoMax, pol.Max},
		{h.Layout.UserMax, pol.Max},
	} {
		h.Bounds.Write32(w.off, w.v)
	}
	return h, nil
}

func (h *Host) Table() (pmem.Region, error) {
	if h.closed {
		return nil, ErrClosed
	}
	return h.Rows, nil
}

func (h *Host) Stats() (*cpufreq.Stats, error) {
	if h.closed {
		return nil, ErrClosed
	}
	return cpufreq.NewStats(h.Stat), nil
}

func (h *Host) Policy(cpu int) (*cpufreq.FrequencyTable, *cpufreq.Policy, error) {
	if h.closed {
		return nil, nil, ErrClosed
	}
	if cpu != 0 {
		return nil, nil, fmt.Errorf("no cpufreq policy for cpu%d", cpu)
	}
	return cpufreq.NewFrequencyTable(h.Freqs), cpufreq.NewPolicy(h.Bounds, h.Layout), nil
}

func (h *Host) Resolve(name string, addr uint32, size int64) (pmem.Region, error) {
	if h.closed {
		return nil, ErrClosed
	}
	r, ok := h.plls[addr]
	if !ok || size > r.Size() {
		return nil, fmt.Errorf("%s: no simulated structure at %#x", name, addr)
	}
	return r, nil
}

// Closed reports whether Close was called.
func (h *Host) Closed() bool { return h.closed }

func (h *Host) Close() error {
	h.closed = true
	return nil
}
