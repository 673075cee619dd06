// Package bind locates the operating point table and its cpufreq mirrors in
// a host and exposes typed accessors over them.
package bind

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"periph.io/x/periph/conn/physic"

	"github.com/lprylli/oppctl/cpufreq"
	"github.com/lprylli/oppctl/log"
	"github.com/lprylli/oppctl/opp"
	"github.com/lprylli/oppctl/pmem"
)

// Host resolves the structures of the embedding environment.
type Host interface {
	// Table returns the region holding the operating point table.
	Table() (pmem.Region, error)
	// Stats returns the cpufreq stats frequency table.
	Stats() (*cpufreq.Stats, error)
	// Policy returns the frequency table and bounds of the policy of cpu.
	Policy(cpu int) (*cpufreq.FrequencyTable, *cpufreq.Policy, error)
	// Resolve maps size bytes at the host address addr.
	Resolve(name string, addr uint32, size int64) (pmem.Region, error)
	// Close releases every region handed out by the host.
	Close() error
}

const DefaultMaxRows = 64

type options struct {
	maxRows int
	cpu     int
	logger  log.Logger
}

type Option func(*options)

// WithMaxRows bounds the number of live rows, the sentinel excluded.
func WithMaxRows(n int) Option {
	return func(o *options) { o.maxRows = n }
}

// WithCPU selects whose policy mirrors the table. Default is cpu 0.
func WithCPU(cpu int) Option {
	return func(o *options) { o.cpu = cpu }
}

func WithLogger(l log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Table is a bound operating point table with its mirrors.
type Table struct {
	host   Host
	rows   pmem.Region
	plls   []pmem.Region
	freqs  *cpufreq.FrequencyTable
	stats  *cpufreq.Stats
	policy *cpufreq.Policy
	last   int
}

// Bind resolves the table and its mirrors in host and scans the table for
// its sentinel row. On failure the host is closed and nothing stays bound.
func Bind(host Host, opts ...Option) (_ *Table, err error) {
	o := options{maxRows: DefaultMaxRows, logger: log.DefaultLogger}
	for _, opt := range opts {
		opt(&o)
	}
	defer func() {
		if err != nil {
			if cerr := host.Close(); cerr != nil {
				o.logger.Warnf("release after failed bind: %v", cerr)
			}
		}
	}()

	t := &Table{host: host}
	var result *multierror.Error
	if t.rows, err = host.Table(); err != nil {
		result = multierror.Append(result, &UnboundError{What: "operating point table", Err: err})
	}
	if t.stats, err = host.Stats(); err != nil {
		result = multierror.Append(result, &UnboundError{What: "cpufreq stats", Err: err})
	}
	if t.freqs, t.policy, err = host.Policy(o.cpu); err != nil {
		result = multierror.Append(result, &UnboundError{What: fmt.Sprintf("cpufreq policy of cpu%d", o.cpu), Err: err})
	}
	if err = result.ErrorOrNil(); err != nil {
		return nil, err
	}

	n, err := scan(t.rows, o.maxRows)
	if err != nil {
		return nil, err
	}
	t.last = n - 1

	t.plls = make([]pmem.Region, n)
	for i := range t.plls {
		addr := t.rows.Read32(fieldPLLPtr.offset(i))
		if addr == 0 {
			continue
		}
		name := fmt.Sprintf("pll[%d]", i)
		if t.plls[i], err = host.Resolve(name, addr, PLLSize); err != nil {
			result = multierror.Append(result, &UnboundError{What: fmt.Sprintf("%s at %#x", name, addr), Err: err})
		}
	}
	if err = result.ErrorOrNil(); err != nil {
		return nil, err
	}

	t.logBound(o.logger)
	return t, nil
}

// scan counts the rows before the first zero clock. maxRows bounds the
// live rows; the sentinel row after them is read too.
func scan(rows pmem.Region, maxRows int) (int, error) {
	limit := int(rows.Size() / RowSize)
	if maxRows > 0 && maxRows+1 < limit {
		limit = maxRows + 1
	}
	for i := 0; i < limit; i++ {
		if rows.Read32(FieldClockKHz.offset(i)) != 0 {
			continue
		}
		if i == 0 {
			return 0, ErrEmptyTable
		}
		return i, nil
	}
	return 0, fmt.Errorf("%w after %d rows", ErrUnterminated, limit)
}

func (t *Table) logBound(l log.Logger) {
	for i := 0; i <= t.last; i++ {
		p := t.Point(i)
		khz := physic.Frequency(p.ClockKHz) * physic.KiloHertz
		l.Infof("table[%d]: enabled=%t clock=%s src=%s sel=%d div=%d bus=%dHz vdd=%dmV raw=%#x pll=%t lpj=%d",
			i, p.Enabled, khz, p.Source, p.SourceSelect, p.SourceDivider, p.BusClockHz,
			p.VoltageMv, p.VoltageRaw, p.PLL != nil, p.Calibration)
	}
	l.Infof("cpu freq table: %s", t.freqs)
	l.Infof("current policy: %s", t.policy.Bounds())
	if t.stats.Len() > 0 {
		l.Infof("stats: %d states, [0]=%d", t.stats.Len(), t.stats.Frequency(0))
	}
}

// LastIndex is the index of the row before the sentinel, the table maximum.
func (t *Table) LastIndex() int { return t.last }

func (t *Table) Get(i int, f Field) uint32 {
	return t.rows.Read32(f.offset(i))
}

func (t *Table) Set(i int, f Field, v uint32) {
	t.rows.Write32(f.offset(i), v)
}

// PLL returns the PLL settings of row i, if the row has any.
func (t *Table) PLL(i int) (opp.PLL, bool) {
	r := t.plls[i]
	if r == nil {
		return opp.PLL{}, false
	}
	return opp.PLL{
		L:      r.Read32(0),
		M:      r.Read32(4),
		N:      r.Read32(8),
		PreDiv: r.Read32(12),
	}, true
}

// SetPLL stores p in row i and reports false if the row has no PLL.
func (t *Table) SetPLL(i int, p opp.PLL) bool {
	r := t.plls[i]
	if r == nil {
		return false
	}
	r.Write32(0, p.L)
	r.Write32(4, p.M)
	r.Write32(8, p.N)
	r.Write32(12, p.PreDiv)
	return true
}

// Point returns a snapshot of row i.
func (t *Table) Point(i int) opp.OperatingPoint {
	p := opp.OperatingPoint{
		Enabled:       t.Get(i, FieldEnabled) != 0,
		ClockKHz:      t.Get(i, FieldClockKHz),
		Source:        opp.Source(int32(t.Get(i, FieldSource))),
		SourceSelect:  t.Get(i, FieldSourceSelect),
		SourceDivider: t.Get(i, FieldSourceDivider),
		BusClockHz:    t.Get(i, FieldBusClockHz),
		VoltageMv:     t.Get(i, FieldVoltageMv),
		VoltageRaw:    t.Get(i, FieldVoltageRaw),
		Calibration:   t.Get(i, FieldCalibration),
	}
	if pll, ok := t.PLL(i); ok {
		p.PLL = &pll
	}
	return p
}

func (t *Table) FrequencyMirror() *cpufreq.FrequencyTable { return t.freqs }

func (t *Table) StatsMirror() *cpufreq.Stats { return t.stats }

func (t *Table) PolicyBounds() *cpufreq.Policy { return t.policy }

// Watchpoints returns monitors on the clock of every row and on the policy
// bounds.
func (t *Table) Watchpoints() []*pmem.Monitor {
	var mons []*pmem.Monitor
	for i := 0; i <= t.last; i++ {
		mons = append(mons, &pmem.Monitor{
			M:     t.rows,
			Off:   FieldClockKHz.offset(i),
			Label: fmt.Sprintf("table[%d].clock_khz", i),
		})
	}
	return append(mons, t.policy.Monitors()...)
}

// Release unbinds the table. The table must not be used afterwards.
func (t *Table) Release() error {
	return t.host.Close()
}
