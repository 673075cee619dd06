package main

import (
	"bytes"
	"encoding/binary"
	"io"
	stdlog "log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lprylli/oppctl/log"
)

const fixture = "testdata/msm7x27.yaml"

func TestMain(m *testing.M) {
	log.DefaultLogger = log.New(stdlog.New(io.Discard, "", 0))
	os.Exit(m.Run())
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestInfo(t *testing.T) {
	out, err := run(t, "--sim", fixture, "info")
	require.NoError(t, err)
	assert.Contains(t, out, "speed: index = [0] 1 122880 -2 0 1 61440000 1000 228 614400\npll: 0 0 0 0\n")
	assert.Contains(t, out, "speed: index = [2] 1 600000 2 1 0 160000000 1200 236 2998272\npll: 31 0 1 0\n")
}

func TestInfoPretty(t *testing.T) {
	out, err := run(t, "--sim", fixture, "info", "--pretty")
	require.NoError(t, err)
	titles := strings.ToLower(out)
	assert.Contains(t, titles, "operating points")
	assert.Contains(t, titles, "policy")
	assert.Contains(t, out, "lpxo")
	assert.Contains(t, out, "31/0/1/0")
	assert.Contains(t, out, "cpufreq table: [0]=122880 [1]=245760 [2]=600000")
}

func TestGet(t *testing.T) {
	out, err := run(t, "--sim", fixture, "get", "cursor")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	out, err = run(t, "--sim", fixture, "get", "--index", "1", "voltage_mv")
	require.NoError(t, err)
	assert.Equal(t, "1100\n", out)

	_, err = run(t, "--sim", fixture, "get", "nope")
	assert.Error(t, err)
}

func TestSet(t *testing.T) {
	out, err := run(t, "--sim", fixture, "set", "clock_khz", "806400")
	require.NoError(t, err)
	assert.Equal(t, "clock_khz = 806400\n", out)

	out, err = run(t, "--sim", fixture, "set", "pll", "42", "0", "1", "0")
	require.NoError(t, err)
	assert.Equal(t, "pll = 42 0 1 0\n", out)

	out, err = run(t, "--sim", fixture, "set", "--index", "0", "source", "9")
	require.NoError(t, err)
	assert.Equal(t, "source = 4\n", out)

	_, err = run(t, "--sim", fixture, "set", "info", "1")
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	out, err := run(t, "--sim", fixture, "apply", "testdata/boost.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "speed: index = [2] 1 806400 2 1 0 160000000 1300 246 4030464\npll: 42 0 1 0\n")

	_, err = run(t, "--sim", fixture, "apply", "testdata/missing.yaml")
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	out, err := run(t, "--sim", fixture, "watch", "--interval", "1ms", "--for", "20ms")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestEnvFileSim(t *testing.T) {
	env := filepath.Join(t.TempDir(), "oppctl.env")
	abs, err := filepath.Abs(fixture)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(env, []byte("OPPCTL_SIM="+abs+"\n"), 0o644))
	t.Setenv("OPPCTL_SIM", "")
	os.Unsetenv("OPPCTL_SIM")

	out, err := run(t, "--env", env, "get", "clock_khz")
	require.NoError(t, err)
	assert.Equal(t, "600000\n", out)
}

func TestPeek(t *testing.T) {
	dev := filepath.Join(t.TempDir(), "kmem")
	img := make([]byte, 4096)
	binary.LittleEndian.PutUint32(img[0x10:], 0xc0888ce8)
	require.NoError(t, os.WriteFile(dev, img, 0o600))
	t.Setenv("OPPCTL_MEM_DEVICE", dev)
	t.Setenv("OPPCTL_PAGE_OFFSET", "0xc0000000")

	out, err := run(t, "peek", "0xc0000010")
	require.NoError(t, err)
	assert.Equal(t, "0xc0000010 = 0xc0888ce8\n", out)

	out, err = run(t, "peek", "0xc0000010", "0x1234")
	require.NoError(t, err)
	assert.Equal(t, "0xc0000010 := 0x00001234\n", out)
	data, err := os.ReadFile(dev)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x1234), binary.LittleEndian.Uint32(data[0x10:]))

	_, err = run(t, "--sim", fixture, "peek", "0xc0000010")
	assert.Error(t, err)
}
