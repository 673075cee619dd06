// Package surface is the runtime control surface of a bound operating point
// table. One cursor selects the row that every per-field endpoint reads and
// writes. Writing the clock of a row also rewrites the cpufreq frequency
// table and stats entry that carried the old clock, and for the last row the
// advertised policy maximum, so that the table and its mirrors agree on the
// system maximum.
//
// All calls on a Surface are serialized by one lock covering the cursor, the
// table and the mirrors.
package surface

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/lprylli/oppctl/bind"
	"github.com/lprylli/oppctl/cpufreq"
	"github.com/lprylli/oppctl/log"
	"github.com/lprylli/oppctl/opp"
)

const DefaultMaxPayload = 1024

// Endpoint describes one named resource of the surface.
type Endpoint struct {
	Name     string
	Writable bool
}

// Registry is the host mechanism that makes endpoints reachable.
type Registry interface {
	Register(ep Endpoint) error
	Unregister(name string)
}

type Surface struct {
	mu         sync.Mutex
	table      *bind.Table
	cursor     int
	maxPayload int
	log        log.Logger
	registries []Registry
}

type Option func(*Surface)

// WithMaxPayload sets the write buffer size; payloads of n bytes or more
// are rejected.
func WithMaxPayload(n int) Option {
	return func(s *Surface) { s.maxPayload = n }
}

func WithLogger(l log.Logger) Option {
	return func(s *Surface) { s.log = l }
}

// New returns a surface over t with the cursor on the last row.
func New(t *bind.Table, opts ...Option) *Surface {
	s := &Surface{
		table:      t,
		cursor:     t.LastIndex(),
		maxPayload: DefaultMaxPayload,
		log:        log.DefaultLogger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Endpoints lists every endpoint in registration order.
func (s *Surface) Endpoints() []Endpoint {
	eps := make([]Endpoint, len(handlers))
	for i, h := range handlers {
		eps[i] = Endpoint{Name: h.name, Writable: h.write != nil}
	}
	return eps
}

// Publish registers every endpoint with reg. If one registration fails the
// ones already made are withdrawn.
func (s *Surface) Publish(reg Registry) error {
	s.mu.Lock()
	closed := s.table == nil
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}

	eps := s.Endpoints()
	for i, ep := range eps {
		if err := reg.Register(ep); err != nil {
			for _, done := range eps[:i] {
				reg.Unregister(done.Name)
			}
			return fmt.Errorf("registering %s: %w", ep.Name, err)
		}
	}
	s.mu.Lock()
	s.registries = append(s.registries, reg)
	s.mu.Unlock()
	return nil
}

// Close withdraws every published endpoint, then waits for calls in flight
// and drops the table. Later calls fail with ErrClosed. The table can be
// released once Close returns.
func (s *Surface) Close() {
	s.mu.Lock()
	regs := s.registries
	s.registries = nil
	s.mu.Unlock()

	for _, reg := range regs {
		for _, h := range handlers {
			reg.Unregister(h.name)
		}
	}

	s.mu.Lock()
	s.table = nil
	s.mu.Unlock()
}

// Query returns the text value of the named endpoint.
func (s *Surface) Query(name string) (string, error) {
	h, ok := handlerByName[name]
	if !ok {
		return "", &EndpointError{Endpoint: name, Err: ErrUnknownEndpoint}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.table == nil {
		return "", &EndpointError{Endpoint: name, Err: ErrClosed}
	}
	return h.read(s), nil
}

// Command writes the payload read from r to the named endpoint. Only
// transport problems are reported; a payload that does not parse leaves the
// value unchanged and out of range values are clamped.
func (s *Surface) Command(name string, r io.Reader) error {
	h, ok := handlerByName[name]
	if !ok {
		return &EndpointError{Endpoint: name, Err: ErrUnknownEndpoint}
	}
	if h.write == nil {
		return &EndpointError{Endpoint: name, Err: ErrReadOnly}
	}
	payload, err := s.transfer(r)
	if err != nil {
		return &EndpointError{Endpoint: name, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.table == nil {
		return &EndpointError{Endpoint: name, Err: ErrClosed}
	}
	h.write(s, string(payload))
	return nil
}

func (s *Surface) transfer(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(io.LimitReader(r, int64(s.maxPayload))); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}
	switch {
	case buf.Len() == 0:
		return nil, ErrEmptyPayload
	case buf.Len() >= s.maxPayload:
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrCapacityExceeded, s.maxPayload-1)
	}
	return buf.Bytes(), nil
}

func (s *Surface) do(fn func(t *bind.Table)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.table == nil {
		return ErrClosed
	}
	fn(s.table)
	return nil
}

// Report returns every row up to the last one.
func (s *Surface) Report() (points []opp.OperatingPoint, err error) {
	err = s.do(func(t *bind.Table) {
		points = make([]opp.OperatingPoint, t.LastIndex()+1)
		for i := range points {
			points[i] = t.Point(i)
		}
	})
	return points, err
}

func (s *Surface) Cursor() (cursor int, err error) {
	err = s.do(func(*bind.Table) { cursor = s.cursor })
	return cursor, err
}

// SetCursor selects row i, clamped to the last row.
func (s *Surface) SetCursor(i uint64) error {
	return s.do(func(*bind.Table) { s.setCursor(i) })
}

func (s *Surface) Enabled() (enabled bool, err error) {
	err = s.do(func(t *bind.Table) { enabled = t.Get(s.cursor, bind.FieldEnabled) != 0 })
	return enabled, err
}

// SetEnabled enables the selected row for scaling if v is non-zero.
func (s *Surface) SetEnabled(v int64) error {
	return s.do(func(*bind.Table) { s.setEnabled(v) })
}

func (s *Surface) Clock() (khz uint32, err error) {
	err = s.do(func(t *bind.Table) { khz = t.Get(s.cursor, bind.FieldClockKHz) })
	return khz, err
}

// SetClock sets the clock of the selected row and propagates it to the
// mirrors.
func (s *Surface) SetClock(khz uint32) error {
	return s.do(func(*bind.Table) { s.setClock(khz) })
}

func (s *Surface) Source() (src opp.Source, err error) {
	err = s.do(func(t *bind.Table) { src = opp.Source(int32(t.Get(s.cursor, bind.FieldSource))) })
	return src, err
}

// SetSource sets the clock source of the selected row, clamped to the
// source range.
func (s *Surface) SetSource(v int64) error {
	return s.do(func(*bind.Table) { s.setSource(v) })
}

// Field reads any field of the selected row.
func (s *Surface) Field(f bind.Field) (v uint32, err error) {
	if !f.Valid() {
		return 0, &EndpointError{Endpoint: f.String(), Err: ErrUnknownEndpoint}
	}
	err = s.do(func(t *bind.Table) { v = t.Get(s.cursor, f) })
	return v, err
}

// SetField writes f of the selected row with the same rules as its
// endpoint.
func (s *Surface) SetField(f bind.Field, v uint32) error {
	if !f.Valid() {
		return &EndpointError{Endpoint: f.String(), Err: ErrUnknownEndpoint}
	}
	switch f {
	case bind.FieldEnabled:
		return s.SetEnabled(int64(v))
	case bind.FieldClockKHz:
		return s.SetClock(v)
	case bind.FieldSource:
		return s.SetSource(int64(int32(v)))
	}
	return s.do(func(*bind.Table) { s.setField(f, v) })
}

// PLL returns the PLL settings of the selected row; ok is false and the
// settings are zero when the row has no PLL.
func (s *Surface) PLL() (p opp.PLL, ok bool, err error) {
	err = s.do(func(t *bind.Table) { p, ok = t.PLL(s.cursor) })
	return p, ok, err
}

// SetPLL stores p in the selected row. Rows without a PLL are left alone and
// ok is false.
func (s *Surface) SetPLL(p opp.PLL) (ok bool, err error) {
	err = s.do(func(*bind.Table) { ok = s.setPLL(p) })
	return ok, err
}

// The set* methods run with s.mu held and s.table bound.

func (s *Surface) setCursor(i uint64) {
	if last := uint64(s.table.LastIndex()); i > last {
		i = last
	}
	s.cursor = int(i)
	s.log.Infof("cursor := %d", s.cursor)
}

func (s *Surface) setEnabled(v int64) {
	var enabled uint32
	if v != 0 {
		enabled = 1
	}
	s.table.Set(s.cursor, bind.FieldEnabled, enabled)
	s.log.Infof("[%d].enabled := %d", s.cursor, enabled)
}

func (s *Surface) setClock(khz uint32) {
	if khz == 0 || khz == cpufreq.EntryInvalid || khz == cpufreq.TableEnd {
		s.log.Warnf("[%d].clock_khz: ignoring reserved value %#x", s.cursor, khz)
		return
	}
	t := s.table
	old := t.Get(s.cursor, bind.FieldClockKHz)

	freqs := t.FrequencyMirror()
	if i, ok := freqs.Find(old); ok {
		freqs.SetFrequency(i, khz)
		if !t.StatsMirror().SetFrequency(i, khz) {
			s.log.Warnf("stats table has no entry %d for %d kHz", i, old)
		}
	}
	if s.cursor == t.LastIndex() {
		t.PolicyBounds().SetMax(khz)
	}
	t.Set(s.cursor, bind.FieldClockKHz, khz)
	s.log.Infof("[%d].clock_khz := %d (was %d)", s.cursor, khz, old)
}

func (s *Surface) setSource(v int64) {
	src := opp.ClampSource(v)
	s.table.Set(s.cursor, bind.FieldSource, uint32(src))
	s.log.Infof("[%d].source := %d", s.cursor, int32(src))
}

func (s *Surface) setField(f bind.Field, v uint32) {
	s.table.Set(s.cursor, f, v)
	s.log.Infof("[%d].%s := %d", s.cursor, f, v)
}

func (s *Surface) setPLL(p opp.PLL) bool {
	if !s.table.SetPLL(s.cursor, p) {
		s.log.Warnf("[%d].pll: row has no pll, write ignored", s.cursor)
		return false
	}
	s.log.Infof("[%d].pll := %d %d %d %d", s.cursor, p.L, p.M, p.N, p.PreDiv)
	return true
}
