package profile

import (
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lprylli/oppctl/bind"
	"github.com/lprylli/oppctl/host/sim"
	"github.com/lprylli/oppctl/log"
	"github.com/lprylli/oppctl/surface"
)

type recorder struct {
	writes []string
	fail   string
}

func (r *recorder) Command(name string, rd io.Reader) error {
	v, _ := io.ReadAll(rd)
	r.writes = append(r.writes, name+"="+string(v))
	if name == r.fail {
		return surface.ErrReadOnly
	}
	return nil
}

const preset = `
name: max boost
steps:
  - writes:
      - {endpoint: clock_khz, value: 1804800}
      - {endpoint: pll, value: "94 0 1 0"}
      - {endpoint: calibration, value: 5865344}
    voltage_mv: 1400
    derive_raw: true
  - index: 0
    writes:
      - {endpoint: enabled, value: 0}
`

func TestApplyOrder(t *testing.T) {
	p, err := Parse([]byte(preset))
	require.NoError(t, err)
	assert.Equal(t, "max boost", p.Name)

	var r recorder
	require.NoError(t, Apply(&r, p))
	assert.Equal(t, []string{
		"cursor=18446744073709551615",
		"clock_khz=1804800",
		"pll=94 0 1 0",
		"calibration=5865344",
		"voltage_mv=1400",
		"voltage_raw=250",
		"cursor=0",
		"enabled=0",
	}, r.writes)
}

func TestApplyStopsOnError(t *testing.T) {
	p, err := Parse([]byte(preset))
	require.NoError(t, err)
	r := recorder{fail: "pll"}
	err = Apply(&r, p)
	assert.ErrorIs(t, err, surface.ErrReadOnly)
	assert.ErrorContains(t, err, "step 0")
	assert.Len(t, r.writes, 3)
}

func TestValidate(t *testing.T) {
	for name, body := range map[string]string{
		"empty":             ``,
		"no steps":          `name: x`,
		"unknown field":     "steps:\n  - index: 1\n    clock: 3\n",
		"nothing to write":  "steps:\n  - index: 1\n",
		"missing endpoint":  "steps:\n  - writes: [{value: 1}]\n",
		"derive without mv": "steps:\n  - writes: [{endpoint: enabled, value: 1}]\n    derive_raw: true\n",
		"bad voltage":       "steps:\n  - voltage_mv: 1410\n    derive_raw: true\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body))
			assert.Error(t, err)
		})
	}
}

func TestApplyToSurface(t *testing.T) {
	host, err := sim.New(sim.Fixture{Points: []sim.Point{
		{Enabled: true, ClockKHz: 122880, VoltageMv: 900},
		{Enabled: true, ClockKHz: 998400, VoltageMv: 1275, PLL: &sim.PLL{L: 52, N: 1}},
	}})
	require.NoError(t, err)
	quiet := log.New(stdlog.New(io.Discard, "", 0))
	table, err := bind.Bind(host, bind.WithLogger(quiet))
	require.NoError(t, err)
	s := surface.New(table, surface.WithLogger(quiet))

	path := filepath.Join(t.TempDir(), "boost.yaml")
	require.NoError(t, os.WriteFile(path, []byte(preset), 0o644))
	p, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, Apply(s, p))

	last := table.Point(1)
	assert.Equal(t, uint32(1804800), last.ClockKHz)
	assert.Equal(t, uint32(1400), last.VoltageMv)
	assert.Equal(t, uint32(0xfa), last.VoltageRaw)
	assert.Equal(t, uint32(5865344), last.Calibration)
	require.NotNil(t, last.PLL)
	assert.Equal(t, uint32(94), last.PLL.L)
	assert.False(t, table.Point(0).Enabled)
	assert.Equal(t, uint32(1804800), table.PolicyBounds().Bounds().Max)
	assert.Equal(t, []uint32{122880, 1804800}, table.FrequencyMirror().Frequencies())

	info, err := s.Query("info")
	require.NoError(t, err)
	assert.True(t, strings.Contains(info, "[1] 1 1804800"), info)
}

func TestLoadNamesProfileAfterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.yaml")
	require.NoError(t, os.WriteFile(path, []byte("steps:\n  - voltage_mv: 1000\n"), 0o644))
	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, p.Name)
}
