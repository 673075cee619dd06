package surface

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lprylli/oppctl/bind"
	"github.com/lprylli/oppctl/opp"
)

type handler struct {
	name  string
	read  func(s *Surface) string
	write func(s *Surface, payload string)
}

var handlers = []handler{
	{"info", (*Surface).info, nil},
	{"cursor", readCursor, writeCursor},
	{"enabled", readField(bind.FieldEnabled), writeEnabled},
	{"clock_khz", readField(bind.FieldClockKHz), writeClock},
	{"source", readSource, writeSource},
	plain("source_select", bind.FieldSourceSelect),
	plain("source_divider", bind.FieldSourceDivider),
	plain("bus_clock_hz", bind.FieldBusClockHz),
	plain("voltage_mv", bind.FieldVoltageMv),
	plain("voltage_raw", bind.FieldVoltageRaw),
	{"pll", readPLL, writePLL},
	plain("calibration", bind.FieldCalibration),
}

var handlerByName = make(map[string]*handler)

func init() {
	for i := range handlers {
		handlerByName[handlers[i].name] = &handlers[i]
	}
}

// plain is an unclamped %u field.
func plain(name string, f bind.Field) handler {
	return handler{
		name: name,
		read: readField(f),
		write: func(s *Surface, payload string) {
			if v, ok := scanUint32(payload); ok {
				s.setField(f, v)
				return
			}
			s.ignored(name, payload)
		},
	}
}

func readField(f bind.Field) func(s *Surface) string {
	return func(s *Surface) string {
		return strconv.FormatUint(uint64(s.table.Get(s.cursor, f)), 10)
	}
}

func (s *Surface) ignored(name, payload string) {
	s.log.Warnf("[%d].%s: cannot parse %q, unchanged", s.cursor, name, strings.TrimSpace(payload))
}

func (s *Surface) info() string {
	var b strings.Builder
	t := s.table
	for i := 0; i <= t.LastIndex(); i++ {
		p := t.Point(i)
		pll := p.FlatPLL()
		fmt.Fprintf(&b, "speed: index = [%d] %d %d %d %d %d %d %d %d %d\npll: %d %d %d %d\n",
			i, t.Get(i, bind.FieldEnabled), p.ClockKHz, int32(p.Source), p.SourceSelect,
			p.SourceDivider, p.BusClockHz, p.VoltageMv, p.VoltageRaw, p.Calibration,
			pll.L, pll.M, pll.N, pll.PreDiv)
	}
	return b.String()
}

func readCursor(s *Surface) string {
	return strconv.Itoa(s.cursor)
}

func writeCursor(s *Surface, payload string) {
	if v, ok := scanUint64(payload); ok {
		s.setCursor(v)
		return
	}
	s.ignored("cursor", payload)
}

func writeEnabled(s *Surface, payload string) {
	if v, ok := scanInt(payload); ok {
		s.setEnabled(v)
		return
	}
	s.ignored("enabled", payload)
}

func writeClock(s *Surface, payload string) {
	if v, ok := scanUint32(payload); ok {
		s.setClock(v)
		return
	}
	s.ignored("clock_khz", payload)
}

func readSource(s *Surface) string {
	return strconv.Itoa(int(int32(s.table.Get(s.cursor, bind.FieldSource))))
}

func writeSource(s *Surface, payload string) {
	if v, ok := scanInt(payload); ok {
		s.setSource(v)
		return
	}
	s.ignored("source", payload)
}

func readPLL(s *Surface) string {
	p, _ := s.table.PLL(s.cursor)
	return fmt.Sprintf("%d %d %d %d", p.L, p.M, p.N, p.PreDiv)
}

func writePLL(s *Surface, payload string) {
	if _, ok := s.table.PLL(s.cursor); !ok {
		s.setPLL(opp.PLL{})
		return
	}
	v, ok := scanUint32s(payload, 4)
	if !ok {
		s.ignored("pll", payload)
		return
	}
	s.setPLL(opp.PLL{L: v[0], M: v[1], N: v[2], PreDiv: v[3]})
}
