package surface

import (
	"math"
	"strconv"
)

// Payload parsing follows scanf: leading blanks are skipped, the longest
// numeric prefix is converted and whatever follows it is ignored. A payload
// without a number, or whose number does not fit, does not parse.

type scanner struct {
	s   string
	pos int
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

func isDigit(c byte, base int) bool {
	switch {
	case c >= '0' && c <= '7':
		return true
	case c == '8' || c == '9':
		return base >= 10
	case (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F'):
		return base == 16
	}
	return false
}

func (sc *scanner) skipSpace() {
	for sc.pos < len(sc.s) && isSpace(sc.s[sc.pos]) {
		sc.pos++
	}
}

func (sc *scanner) digits(base int) string {
	start := sc.pos
	for sc.pos < len(sc.s) && isDigit(sc.s[sc.pos], base) {
		sc.pos++
	}
	return sc.s[start:sc.pos]
}

// uint32 scans a %u conversion.
func (sc *scanner) uint32() (uint32, bool) {
	sc.skipSpace()
	d := sc.digits(10)
	if d == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(d, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(v), true
}

// uint64 scans a %lu conversion.
func (sc *scanner) uint64() (uint64, bool) {
	sc.skipSpace()
	d := sc.digits(10)
	if d == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(d, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// int scans a %i conversion: optional sign, then hex with 0x, octal with a
// leading 0, decimal otherwise.
func (sc *scanner) int() (int64, bool) {
	sc.skipSpace()
	neg := false
	if sc.pos < len(sc.s) && (sc.s[sc.pos] == '-' || sc.s[sc.pos] == '+') {
		neg = sc.s[sc.pos] == '-'
		sc.pos++
	}
	base := 10
	if sc.pos+1 < len(sc.s) && sc.s[sc.pos] == '0' && (sc.s[sc.pos+1] == 'x' || sc.s[sc.pos+1] == 'X') &&
		sc.pos+2 < len(sc.s) && isDigit(sc.s[sc.pos+2], 16) {
		base = 16
		sc.pos += 2
	} else if sc.pos < len(sc.s) && sc.s[sc.pos] == '0' {
		base = 8
	}
	d := sc.digits(base)
	if d == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(d, base, 64)
	if err != nil || v > math.MaxInt64 {
		return 0, false
	}
	if neg {
		return -int64(v), true
	}
	return int64(v), true
}

func scanUint32(payload string) (uint32, bool) {
	sc := scanner{s: payload}
	return sc.uint32()
}

func scanUint64(payload string) (uint64, bool) {
	sc := scanner{s: payload}
	return sc.uint64()
}

func scanInt(payload string) (int64, bool) {
	sc := scanner{s: payload}
	return sc.int()
}

// scanUint32s scans n blank separated %u conversions; it fails unless all
// of them parse.
func scanUint32s(payload string, n int) ([]uint32, bool) {
	sc := scanner{s: payload}
	vals := make([]uint32, n)
	for i := range vals {
		v, ok := sc.uint32()
		if !ok {
			return nil, false
		}
		vals[i] = v
	}
	return vals, true
}
