// Package profile applies scripted endpoint writes to a control surface.
//
// A profile is an ordered list of steps. Each step selects a row through the
// cursor endpoint and then writes its values:
//
//	steps:
//	  - writes:
//	      - {endpoint: clock_khz, value: 1804800}
//	      - {endpoint: pll, value: "94 0 1 0"}
//	      - {endpoint: calibration, value: 5865344}
//	    voltage_mv: 1400
//	    derive_raw: true
//
// A step without index applies to the last row.
package profile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lprylli/oppctl/opp"
)

// Commander is the write side of a control surface.
type Commander interface {
	Command(name string, r io.Reader) error
}

type Write struct {
	Endpoint string `yaml:"endpoint"`
	Value    string `yaml:"value"`
}

type Step struct {
	Index     *uint64 `yaml:"index"`
	Writes    []Write `yaml:"writes"`
	VoltageMv uint32  `yaml:"voltage_mv"`
	// DeriveRaw also writes voltage_raw, encoded from VoltageMv.
	DeriveRaw bool `yaml:"derive_raw"`
}

type Profile struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

var ErrInvalid = errors.New("invalid profile")

func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = path
	}
	return p, nil
}

// Parse decodes and validates a profile.
func Parse(data []byte) (*Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks what can be checked before touching the surface, so that
// a bad profile is rejected as a whole.
func (p *Profile) Validate() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalid)
	}
	for i, s := range p.Steps {
		for _, w := range s.Writes {
			if w.Endpoint == "" {
				return fmt.Errorf("%w: step %d: write without endpoint", ErrInvalid, i)
			}
		}
		if s.DeriveRaw {
			if s.VoltageMv == 0 {
				return fmt.Errorf("%w: step %d: derive_raw needs voltage_mv", ErrInvalid, i)
			}
			if _, err := opp.EncodeVoltage(s.VoltageMv); err != nil {
				return fmt.Errorf("%w: step %d: %v", ErrInvalid, i, err)
			}
		}
		if len(s.Writes) == 0 && s.VoltageMv == 0 {
			return fmt.Errorf("%w: step %d: nothing to write", ErrInvalid, i)
		}
	}
	return nil
}

// Apply runs the steps of p in order and stops at the first failed write.
func Apply(c Commander, p *Profile) error {
	for i, s := range p.Steps {
		if err := applyStep(c, s); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

func applyStep(c Commander, s Step) error {
	// The cursor clamps, so an oversized index selects the last row.
	index := uint64(math.MaxUint64)
	if s.Index != nil {
		index = *s.Index
	}
	writes := []Write{{Endpoint: "cursor", Value: strconv.FormatUint(index, 10)}}
	writes = append(writes, s.Writes...)
	if s.VoltageMv != 0 {
		writes = append(writes, Write{Endpoint: "voltage_mv", Value: strconv.FormatUint(uint64(s.VoltageMv), 10)})
		if s.DeriveRaw {
			raw, err := opp.EncodeVoltage(s.VoltageMv)
			if err != nil {
				return err
			}
			writes = append(writes, Write{Endpoint: "voltage_raw", Value: strconv.FormatUint(uint64(raw), 10)})
		}
	}
	for _, w := range writes {
		if err := c.Command(w.Endpoint, strings.NewReader(w.Value)); err != nil {
			return err
		}
	}
	return nil
}
