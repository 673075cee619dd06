package cpufreq

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lprylli/oppctl/pmem"
)

func freqTable(freqs ...uint32) *FrequencyTable {
	r := pmem.NewBuf("freqs", make([]byte, len(freqs)*EntrySize))
	t := NewFrequencyTable(r)
	for i, f := range freqs {
		r.Write32(int64(i)*EntrySize, uint32(i))
		t.SetFrequency(i, f)
	}
	return t
}

func TestFrequencyTableFind(t *testing.T) {
	ft := freqTable(EntryInvalid, 245760, 368640, 245760, TableEnd, 768000)
	assert.Equal(t, 4, ft.Len())

	i, ok := ft.Find(245760)
	assert.True(t, ok)
	assert.Equal(t, 1, i)

	_, ok = ft.Find(768000)
	assert.False(t, ok, "entries after the end marker are not live")

	_, ok = ft.Find(EntryInvalid)
	assert.False(t, ok)

	assert.Equal(t, "[1]=245760 [2]=368640 [3]=245760 ", ft.String())
}

func TestFrequencyTableWithoutEnd(t *testing.T) {
	ft := freqTable(100, 200)
	assert.Equal(t, 2, ft.Len())
	assert.Equal(t, []uint32{100, 200}, ft.Frequencies())
	ft.SetFrequency(1, 250)
	i, ok := ft.Find(250)
	assert.True(t, ok)
	assert.Equal(t, 1, i)
}

func TestStats(t *testing.T) {
	s := NewStats(pmem.NewBuf("stats", make([]byte, 8)))
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.SetFrequency(1, 300))
	assert.Equal(t, uint32(300), s.Frequency(1))
	assert.False(t, s.SetFrequency(2, 300))
	assert.False(t, s.SetFrequency(-1, 300))
}

func TestPolicy(t *testing.T) {
	l := DefaultPolicyLayout
	assert.Equal(t, int64(72), l.Size())
	r := pmem.NewBuf("policy", make([]byte, l.Size()))
	p := NewPolicy(r, l)
	r.Write32(l.Min, 122880)
	r.Write32(l.UserMin, 122880)

	p.SetMax(1804800)

	assert.Equal(t, Bounds{
		Min:        122880,
		Max:        1804800,
		CPUInfoMax: 1804800,
		UserMin:    122880,
		UserMax:    1804800,
	}, p.Bounds())
	assert.Len(t, p.Monitors(), 6)
}
