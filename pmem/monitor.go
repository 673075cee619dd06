package pmem

import (
	"context"
	"time"
)

// Monitor watches one 32-bit word of a region.
type Monitor struct {
	M        Region
	Off      int64
	Label    string
	OldVal   uint32
	OldValid bool
}

type Change struct {
	Time time.Duration
	Mon  *Monitor
	Old  uint32
	New  uint32
}

// Poll reads the watched word and reports whether it differs from the
// previous read. The first read only records the value.
func (m *Monitor) Poll() (old, val uint32, changed bool) {
	val = m.M.Read32(m.Off)
	old = m.OldVal
	changed = m.OldValid && val != old
	m.OldVal = val
	m.OldValid = true
	return old, val, changed
}

// Watch polls mons every interval and calls fn for each change until ctx is
// done.
func Watch(ctx context.Context, mons []*Monitor, interval time.Duration, fn func(Change)) error {
	start := time.Now()
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		t := time.Since(start)
		for _, m := range mons {
			if old, val, changed := m.Poll(); changed {
				fn(Change{Time: t, Mon: m, Old: old, New: val})
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
}
