// Package config reads oppctl settings from the environment, optionally
// seeded from .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"

	"github.com/lprylli/oppctl/cpufreq"
)

const Prefix = "OPPCTL_"

// Memory locates the kernel structures for the kmem host.
type Memory struct {
	Device     string
	Mmap       bool
	PageOffset uint64
	PhysOffset uint64

	TableAddr     uint64
	StatsAddr     uint64
	FreqTableAddr uint64
	PolicyAddr    uint64
	FreqEntries   int
	Policy        cpufreq.PolicyLayout
}

type Config struct {
	Memory     Memory
	MaxPayload int
	MaxRows    int
	Listen     string
	// Sim is a fixture file; when set the simulated host replaces kmem.
	Sim string
}

func Default() Config {
	return Config{
		Memory: Memory{
			Device:      "/dev/kmem",
			TableAddr:   0xC0888CE8,
			StatsAddr:   0xC08D8340,
			FreqEntries: 64,
			Policy:      cpufreq.DefaultPolicyLayout,
		},
		MaxPayload: 1024,
		MaxRows:    64,
		Listen:     "127.0.0.1:8086",
	}
}

// Load applies the given .env files (or ./.env if present and none are
// given) to the environment and reads the configuration from it. Variables
// already set in the environment take precedence over the files.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			files = []string{".env"}
		}
	}
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return nil, fmt.Errorf("loading env files: %w", err)
		}
	}
	return FromEnv()
}

// FromEnv reads the configuration from OPPCTL_* variables over Default.
func FromEnv() (*Config, error) {
	c := Default()
	var p envParser
	m := &c.Memory
	p.string("MEM_DEVICE", &m.Device)
	p.bool("MMAP", &m.Mmap)
	p.uint64("PAGE_OFFSET", &m.PageOffset)
	p.uint64("PHYS_OFFSET", &m.PhysOffset)
	p.uint64("TABLE_ADDR", &m.TableAddr)
	p.uint64("STATS_ADDR", &m.StatsAddr)
	p.uint64("FREQ_TABLE_ADDR", &m.FreqTableAddr)
	p.uint64("POLICY_ADDR", &m.PolicyAddr)
	p.int("FREQ_ENTRIES", &m.FreqEntries)
	p.int64("POLICY_CPUINFO_MAX_OFFSET", &m.Policy.CPUInfoMax)
	p.int64("POLICY_CPUINFO_MIN_OFFSET", &m.Policy.CPUInfoMin)
	p.int64("POLICY_MIN_OFFSET", &m.Policy.Min)
	p.int64("POLICY_MAX_OFFSET", &m.Policy.Max)
	p.int64("POLICY_USER_MIN_OFFSET", &m.Policy.UserMin)
	p.int64("POLICY_USER_MAX_OFFSET", &m.Policy.UserMax)
	p.int("MAX_PAYLOAD", &c.MaxPayload)
	p.int("MAX_ROWS", &c.MaxRows)
	p.string("LISTEN", &c.Listen)
	p.string("SIM", &c.Sim)

	if c.MaxPayload < 2 {
		p.fail("MAX_PAYLOAD", errors.New("must be at least 2"))
	}
	if c.MaxRows < 1 {
		p.fail("MAX_ROWS", errors.New("must be positive"))
	}
	if m.FreqEntries < 1 {
		p.fail("FREQ_ENTRIES", errors.New("must be positive"))
	}
	if err := p.result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return &c, nil
}

type envParser struct {
	result *multierror.Error
}

func (p *envParser) fail(key string, err error) {
	p.result = multierror.Append(p.result, fmt.Errorf("%s%s: %w", Prefix, key, err))
}

func (p *envParser) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(Prefix + key)
	return v, ok && v != ""
}

func (p *envParser) string(key string, dst *string) {
	if v, ok := p.lookup(key); ok {
		*dst = v
	}
}

func (p *envParser) bool(key string, dst *bool) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, err)
		return
	}
	*dst = b
}

func (p *envParser) uint64(key string, dst *uint64) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.ParseUint(v, 0, 64)
	if err != nil {
		p.fail(key, err)
		return
	}
	*dst = n
}

func (p *envParser) int64(key string, dst *int64) {
	v, ok := p.lookup(key)
	if !ok {
		return
	}
	n, err := strconv.ParseInt(v, 0, 64)
	if err != nil {
		p.fail(key, err)
		return
	}
	*dst = n
}

func (p *envParser) int(key string, dst *int) {
	n := int64(*dst)
	p.int64(key, &n)
	*dst = int(n)
}
