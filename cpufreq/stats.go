package cpufreq

import "github.com/lprylli/oppctl/pmem"

// Offsets inside struct cpufreq_stats on a 32-bit kernel.
const (
	StatsMaxStateAt  = 16
	StatsFreqTableAt = 32
	StatsSize        = 36
)

// Stats is a view of the freq_table array of struct cpufreq_stats.
type Stats struct {
	r pmem.Region
}

// NewStats wraps the freq_table array; its length is the number of states.
func NewStats(r pmem.Region) *Stats {
	return &Stats{r: r}
}

func (s *Stats) Len() int { return int(s.r.Size() / 4) }

func (s *Stats) Frequency(i int) uint32 {
	return s.r.Read32(int64(i) * 4)
}

// SetFrequency stores khz at index i and reports false if i is beyond the
// stats table.
func (s *Stats) SetFrequency(i int, khz uint32) bool {
	if i < 0 || i >= s.Len() {
		return false
	}
	s.r.Write32(int64(i)*4, khz)
	return true
}
