package opp

import (
	"errors"
	"fmt"
)

const (
	// 0: 0.625V (50mV step), 1: 0.3125V (25mV step).
	vrefSel = 1
	// VoltStepMv is the minimum voltage step.
	VoltStepMv = 25 * (2 - vrefSel)
	// Enable VREG, pull-down if disabled.
	vregConfig = 1<<7 | 1<<6
	vregData   = vregConfig | vrefSel<<5
	vregBase   = 30
	vregMask   = 0x1f

	MinMv = vregBase * VoltStepMv
	MaxMv = (vregBase + vregMask) * VoltStepMv
)

var ErrVoltage = errors.New("voltage not encodable")

// EncodeVoltage returns the regulator register value for mv.
// mv = (750mV + (raw * 25mV)) * (2 - VREF_SEL)
func EncodeVoltage(mv uint32) (uint32, error) {
	if mv%VoltStepMv != 0 {
		return 0, fmt.Errorf("%w: %dmV is not a multiple of %dmV", ErrVoltage, mv, VoltStepMv)
	}
	if mv < MinMv || mv > MaxMv {
		return 0, fmt.Errorf("%w: %dmV outside [%d, %d]mV", ErrVoltage, mv, MinMv, MaxMv)
	}
	return (mv/VoltStepMv - vregBase) | vregData, nil
}

// DecodeVoltage is the inverse of EncodeVoltage.
func DecodeVoltage(raw uint32) uint32 {
	return (raw&vregMask + vregBase) * VoltStepMv
}
