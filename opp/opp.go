// Package opp models one row of an acpuclock style operating point table.
package opp

import "fmt"

// Source selects the clock feeding the CPU at an operating point.
type Source int32

const (
	LowPowerXO Source = -2
	Bus        Source = -1
	Pll0       Source = 0
	Pll1       Source = 1
	Pll2       Source = 2
	Pll3       Source = 3
	MaxSource  Source = 4
)

// ClampSource bounds v to [LowPowerXO, MaxSource].
func ClampSource(v int64) Source {
	switch {
	case v > int64(MaxSource):
		return MaxSource
	case v < int64(LowPowerXO):
		return LowPowerXO
	}
	return Source(v)
}

func (s Source) String() string {
	switch s {
	case LowPowerXO:
		return "lpxo"
	case Bus:
		return "axi"
	case Pll0, Pll1, Pll2, Pll3:
		return fmt.Sprintf("pll%d", int32(s))
	case MaxSource:
		return "max"
	}
	return fmt.Sprintf("source(%d)", int32(s))
}

// PLL holds the multiplier and divider settings of a PLL clocked point.
type PLL struct {
	L      uint32
	M      uint32
	N      uint32
	PreDiv uint32
}

// OperatingPoint is a snapshot of one table row.
type OperatingPoint struct {
	Enabled       bool
	ClockKHz      uint32
	Source        Source
	SourceSelect  uint32
	SourceDivider uint32
	BusClockHz    uint32
	VoltageMv     uint32
	VoltageRaw    uint32
	// PLL is nil for points not clocked from a PLL.
	PLL *PLL
	// Calibration is the loops_per_jiffy value for this point.
	Calibration uint32
}

// FlatPLL returns the PLL settings, zero filled when absent.
func (p OperatingPoint) FlatPLL() PLL {
	if p.PLL == nil {
		return PLL{}
	}
	return *p.PLL
}
