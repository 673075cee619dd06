// Package cpufreq gives typed access to the cpufreq structures that mirror
// the operating point table: the frequency table of a policy, the stats
// frequency table and the policy bounds.
package cpufreq

import (
	"fmt"

	"github.com/lprylli/oppctl/pmem"
)

const (
	EntryInvalid uint32 = ^uint32(1)
	TableEnd     uint32 = ^uint32(0)

	// struct cpufreq_frequency_table { unsigned int index; unsigned int frequency; }
	EntrySize   = 8
	entryFreqAt = 4
)

// FrequencyTable is a view of a cpufreq_frequency_table array.
type FrequencyTable struct {
	r pmem.Region
}

func NewFrequencyTable(r pmem.Region) *FrequencyTable {
	return &FrequencyTable{r: r}
}

// Len returns the number of entries before TableEnd, or the region capacity
// if no end marker is present.
func (t *FrequencyTable) Len() int {
	n := int(t.r.Size() / EntrySize)
	for i := 0; i < n; i++ {
		if t.Frequency(i) == TableEnd {
			return i
		}
	}
	return n
}

func (t *FrequencyTable) Frequency(i int) uint32 {
	return t.r.Read32(int64(i)*EntrySize + entryFreqAt)
}

func (t *FrequencyTable) SetFrequency(i int, khz uint32) {
	t.r.Write32(int64(i)*EntrySize+entryFreqAt, khz)
}

// Find returns the index of the first live entry equal to khz. Invalid
// entries are skipped and the scan stops at TableEnd.
func (t *FrequencyTable) Find(khz uint32) (int, bool) {
	n := t.Len()
	for i := 0; i < n; i++ {
		f := t.Frequency(i)
		if f == EntryInvalid {
			continue
		}
		if f == khz {
			return i, true
		}
	}
	return 0, false
}

// Frequencies returns all entries up to TableEnd, invalid ones included.
func (t *FrequencyTable) Frequencies() []uint32 {
	n := t.Len()
	freqs := make([]uint32, n)
	for i := range freqs {
		freqs[i] = t.Frequency(i)
	}
	return freqs
}

func (t *FrequencyTable) String() string {
	s := ""
	for i, f := range t.Frequencies() {
		if f == EntryInvalid {
			continue
		}
		s += fmt.Sprintf("[%d]=%d ", i, f)
	}
	return s
}
