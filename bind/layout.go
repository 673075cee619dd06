package bind

// Field is a 32-bit word of a table row.
type Field int

// Row layout of struct clkctl_acpu_speed on a 32-bit kernel.
const (
	FieldEnabled Field = iota
	FieldClockKHz
	FieldSource
	FieldSourceSelect
	FieldSourceDivider
	FieldBusClockHz
	FieldVoltageMv
	FieldVoltageRaw
	fieldPLLPtr
	FieldCalibration

	numFields
)

const (
	RowSize = int64(numFields) * 4

	// struct pll { l; m; n; pre_div; }
	PLLSize = 16
)

var fieldNames = [...]string{
	FieldEnabled:       "enabled",
	FieldClockKHz:      "clock_khz",
	FieldSource:        "source",
	FieldSourceSelect:  "source_select",
	FieldSourceDivider: "source_divider",
	FieldBusClockHz:    "bus_clock_hz",
	FieldVoltageMv:     "voltage_mv",
	FieldVoltageRaw:    "voltage_raw",
	fieldPLLPtr:        "pll_rate",
	FieldCalibration:   "calibration",
}

func (f Field) String() string {
	if f < 0 || f >= numFields {
		return "field(?)"
	}
	return fieldNames[f]
}

// Valid reports whether f is an addressable value field of a row.
func (f Field) Valid() bool {
	return f >= 0 && f < numFields && f != fieldPLLPtr
}

func (f Field) offset(row int) int64 {
	return int64(row)*RowSize + int64(f)*4
}
