package cpufreq

import (
	"fmt"

	"github.com/lprylli/oppctl/pmem"
)

// PolicyLayout locates the frequency bounds inside struct cpufreq_policy.
// The layout depends on the kernel build.
type PolicyLayout struct {
	CPUInfoMax int64
	CPUInfoMin int64
	Min        int64
	Max        int64
	UserMin    int64
	UserMax    int64
}

// DefaultPolicyLayout matches a 2.6.35 32-bit kernel with NR_CPUS <= 32.
var DefaultPolicyLayout = PolicyLayout{
	CPUInfoMax: 16,
	CPUInfoMin: 20,
	Min:        28,
	Max:        32,
	UserMin:    64,
	UserMax:    68,
}

// Size is the number of bytes a region must cover for this layout.
func (l PolicyLayout) Size() int64 {
	var end int64
	for _, off := range []int64{l.CPUInfoMax, l.CPUInfoMin, l.Min, l.Max, l.UserMin, l.UserMax} {
		if off+4 > end {
			end = off + 4
		}
	}
	return end
}

type Bounds struct {
	Min        uint32
	Max        uint32
	CPUInfoMin uint32
	CPUInfoMax uint32
	UserMin    uint32
	UserMax    uint32
}

func (b Bounds) String() string {
	return fmt.Sprintf("cpuinfo.max_freq=%d, user max freq=%d, max=%d", b.CPUInfoMax, b.UserMax, b.Max)
}

// Policy is a view of the bounds of a cpufreq policy.
type Policy struct {
	r pmem.Region
	l PolicyLayout
}

func NewPolicy(r pmem.Region, l PolicyLayout) *Policy {
	return &Policy{r: r, l: l}
}

func (p *Policy) Bounds() Bounds {
	return Bounds{
		Min:        p.r.Read32(p.l.Min),
		Max:        p.r.Read32(p.l.Max),
		CPUInfoMin: p.r.Read32(p.l.CPUInfoMin),
		CPUInfoMax: p.r.Read32(p.l.CPUInfoMax),
		UserMin:    p.r.Read32(p.l.UserMin),
		UserMax:    p.r.Read32(p.l.UserMax),
	}
}

// SetMax advertises khz as the policy maximum, the user maximum and the
// hardware maximum.
func (p *Policy) SetMax(khz uint32) {
	p.r.Write32(p.l.UserMax, khz)
	p.r.Write32(p.l.CPUInfoMax, khz)
	p.r.Write32(p.l.Max, khz)
}

// Monitors returns watchpoints on every bound.
func (p *Policy) Monitors() []*pmem.Monitor {
	return []*pmem.Monitor{
		{M: p.r, Off: p.l.Min, Label: "policy.min"},
		{M: p.r, Off: p.l.Max, Label: "policy.max"},
		{M: p.r, Off: p.l.CPUInfoMin, Label: "policy.cpuinfo.min_freq"},
		{M: p.r, Off: p.l.CPUInfoMax, Label: "policy.cpuinfo.max_freq"},
		{M: p.r, Off: p.l.UserMin, Label: "policy.user_policy.min"},
		{M: p.r, Off: p.l.UserMax, Label: "policy.user_policy.max"},
	}
}
