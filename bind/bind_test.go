package bind_test

import (
	"errors"
	"io"
	stdlog "log"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lprylli/oppctl/bind"
	"github.com/lprylli/oppctl/cpufreq"
	"github.com/lprylli/oppctl/host/sim"
	"github.com/lprylli/oppctl/log"
	"github.com/lprylli/oppctl/opp"
	"github.com/lprylli/oppctl/pmem"
)

var quiet = bind.WithLogger(log.New(stdlog.New(io.Discard, "", 0)))

func fixture() sim.Fixture {
	return sim.Fixture{
		Points: []sim.Point{
			{Enabled: true, ClockKHz: 122880, Source: int32(opp.LowPowerXO), VoltageMv: 900},
			{Enabled: false, ClockKHz: 245760, Source: int32(opp.Bus)},
			{Enabled: true, ClockKHz: 1804800, Source: int32(opp.Pll2), VoltageMv: 1400,
				VoltageRaw: 0xfa, PLL: &sim.PLL{L: 94, N: 1}, Calibration: 5865344},
		},
	}
}

func TestBind(t *testing.T) {
	host, err := sim.New(fixture())
	require.NoError(t, err)
	table, err := bind.Bind(host, quiet)
	require.NoError(t, err)

	assert.Equal(t, 2, table.LastIndex())
	assert.Equal(t, uint32(245760), table.Get(1, bind.FieldClockKHz))

	_, ok := table.PLL(0)
	assert.False(t, ok)
	pll, ok := table.PLL(2)
	assert.True(t, ok)
	assert.Equal(t, opp.PLL{L: 94, N: 1}, pll)

	p := table.Point(2)
	assert.True(t, p.Enabled)
	assert.Equal(t, opp.Pll2, p.Source)
	assert.Equal(t, uint32(0xfa), p.VoltageRaw)
	assert.Equal(t, uint32(5865344), p.Calibration)
	assert.Equal(t, opp.Bus, table.Point(1).Source)
	assert.False(t, table.Point(1).Enabled)

	assert.Equal(t, []uint32{122880, 1804800}, table.FrequencyMirror().Frequencies())
	assert.Equal(t, uint32(1804800), table.PolicyBounds().Bounds().Max)
	assert.Equal(t, 2, table.StatsMirror().Len())
	assert.Len(t, table.Watchpoints(), 3+6)

	require.NoError(t, table.Release())
	assert.True(t, host.Closed())
}

func TestBindSetters(t *testing.T) {
	host, err := sim.New(fixture())
	require.NoError(t, err)
	table, err := bind.Bind(host, quiet)
	require.NoError(t, err)

	table.Set(0, bind.FieldVoltageMv, 950)
	assert.Equal(t, uint32(950), table.Get(0, bind.FieldVoltageMv))
	assert.Equal(t, uint32(950), host.Rows.Read32(int64(bind.FieldVoltageMv)*4))

	assert.False(t, table.SetPLL(1, opp.PLL{L: 1}))
	assert.True(t, table.SetPLL(2, opp.PLL{L: 1, M: 2, N: 3, PreDiv: 4}))
	pll, _ := table.PLL(2)
	assert.Equal(t, opp.PLL{L: 1, M: 2, N: 3, PreDiv: 4}, pll)
}

func TestBindEmptyTable(t *testing.T) {
	host, err := sim.New(sim.Fixture{})
	require.NoError(t, err)
	_, err = bind.Bind(host, quiet)
	assert.True(t, errors.Is(err, bind.ErrEmptyTable), "%v", err)
	assert.True(t, host.Closed(), "failed bind releases the host")
}

func TestBindUnterminated(t *testing.T) {
	host, err := sim.New(fixture())
	require.NoError(t, err)
	_, err = bind.Bind(host, quiet, bind.WithMaxRows(2))
	assert.True(t, errors.Is(err, bind.ErrUnterminated), "%v", err)
}

func TestBindMaxRowsCountsLiveRows(t *testing.T) {
	host, err := sim.New(fixture())
	require.NoError(t, err)
	table, err := bind.Bind(host, quiet, bind.WithMaxRows(3))
	require.NoError(t, err)
	assert.Equal(t, 2, table.LastIndex())
}

func TestBindScanStopsAtSentinel(t *testing.T) {
	host, err := sim.New(fixture())
	require.NoError(t, err)
	// Clear the clock of row 1: the table now ends there.
	host.Rows.Write32(bind.RowSize+int64(bind.FieldClockKHz)*4, 0)
	table, err := bind.Bind(host, quiet)
	require.NoError(t, err)
	assert.Equal(t, 0, table.LastIndex())
}

// brokenHost fails the lookups named in its fields.
type brokenHost struct {
	*sim.Host
	table, stats, policy, resolve bool
}

var errMissing = errors.New("symbol not found")

func (h *brokenHost) Table() (pmem.Region, error) {
	if h.table {
		return nil, errMissing
	}
	return h.Host.Table()
}

func (h *brokenHost) Stats() (*cpufreq.Stats, error) {
	if h.stats {
		return nil, errMissing
	}
	return h.Host.Stats()
}

func (h *brokenHost) Policy(cpu int) (*cpufreq.FrequencyTable, *cpufreq.Policy, error) {
	if h.policy {
		return nil, nil, errMissing
	}
	return h.Host.Policy(cpu)
}

func (h *brokenHost) Resolve(name string, addr uint32, size int64) (pmem.Region, error) {
	if h.resolve {
		return nil, errMissing
	}
	return h.Host.Resolve(name, addr, size)
}

func TestBindUnbound(t *testing.T) {
	s, err := sim.New(fixture())
	require.NoError(t, err)
	host := &brokenHost{Host: s, stats: true, policy: true}
	_, err = bind.Bind(host, quiet)
	require.Error(t, err)
	assert.True(t, errors.Is(err, bind.ErrUnbound))
	assert.True(t, errors.Is(err, errMissing))

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 2, "every missing binding is reported")
	var uerr *bind.UnboundError
	require.True(t, errors.As(merr.Errors[0], &uerr))
	assert.Equal(t, "cpufreq stats", uerr.What)
	assert.True(t, s.Closed())
}

func TestBindUnresolvedPLL(t *testing.T) {
	s, err := sim.New(fixture())
	require.NoError(t, err)
	_, err = bind.Bind(&brokenHost{Host: s, resolve: true}, quiet)
	assert.True(t, errors.Is(err, bind.ErrUnbound))
	assert.Contains(t, err.Error(), "pll[2]")
}

func TestBindOtherCPU(t *testing.T) {
	s, err := sim.New(fixture())
	require.NoError(t, err)
	_, err = bind.Bind(s, quiet, bind.WithCPU(1))
	assert.True(t, errors.Is(err, bind.ErrUnbound))
}

func TestFieldString(t *testing.T) {
	assert.Equal(t, "clock_khz", bind.FieldClockKHz.String())
	assert.Equal(t, "calibration", bind.FieldCalibration.String())
	assert.Equal(t, "field(?)", bind.Field(42).String())
	assert.Equal(t, int64(40), bind.RowSize)
}

func TestFieldValid(t *testing.T) {
	for f := bind.Field(-1); f < 12; f++ {
		want := f >= bind.FieldEnabled && f <= bind.FieldCalibration && f != 8
		assert.Equal(t, want, f.Valid(), "field %d", int(f))
	}
}
