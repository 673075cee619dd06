package opp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampSource(t *testing.T) {
	for _, tc := range []struct {
		in   int64
		want Source
	}{
		{-100, LowPowerXO},
		{-3, LowPowerXO},
		{-2, LowPowerXO},
		{-1, Bus},
		{0, Pll0},
		{3, Pll3},
		{4, MaxSource},
		{5, MaxSource},
		{100, MaxSource},
	} {
		assert.Equal(t, tc.want, ClampSource(tc.in), "ClampSource(%d)", tc.in)
	}
}

func TestSourceString(t *testing.T) {
	assert.Equal(t, "lpxo", LowPowerXO.String())
	assert.Equal(t, "axi", Bus.String())
	assert.Equal(t, "pll2", Pll2.String())
	assert.Equal(t, "source(9)", Source(9).String())
}

func TestFlatPLL(t *testing.T) {
	var p OperatingPoint
	assert.Equal(t, PLL{}, p.FlatPLL())
	p.PLL = &PLL{L: 94, N: 1}
	assert.Equal(t, PLL{L: 94, N: 1}, p.FlatPLL())
}

func TestEncodeVoltage(t *testing.T) {
	raw, err := EncodeVoltage(1400)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xfa), raw)
	assert.Equal(t, uint32(1400), DecodeVoltage(raw))

	raw, err = EncodeVoltage(MinMv)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xe0), raw)
	assert.Equal(t, uint32(MinMv), DecodeVoltage(raw))

	for _, mv := range []uint32{0, 725, 1410, 1550} {
		_, err := EncodeVoltage(mv)
		assert.True(t, errors.Is(err, ErrVoltage), "mv=%d", mv)
	}
}
