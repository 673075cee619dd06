package main

import (
	"sync"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/lprylli/oppctl/bind"
	"github.com/lprylli/oppctl/config"
	"github.com/lprylli/oppctl/host/kmem"
	"github.com/lprylli/oppctl/host/sim"
	"github.com/lprylli/oppctl/log"
	"github.com/lprylli/oppctl/surface"
)

type globals struct {
	envFiles []string
	sim      string
}

func newRootCmd() *cobra.Command {
	var g globals
	root := &cobra.Command{
		Use:          "oppctl",
		Short:        "Inspect and tune the CPU operating point table",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringSliceVar(&g.envFiles, "env", nil, ".env files to load (default ./.env if present)")
	root.PersistentFlags().StringVar(&g.sim, "sim", "", "simulated host fixture, overrides OPPCTL_SIM")
	root.AddCommand(
		newInfoCmd(&g),
		newGetCmd(&g),
		newSetCmd(&g),
		newApplyCmd(&g),
		newServeCmd(&g),
		newWatchCmd(&g),
		newPeekCmd(&g),
	)
	return root
}

func (g *globals) config() (*config.Config, error) {
	cfg, err := config.Load(g.envFiles...)
	if err != nil {
		return nil, err
	}
	if g.sim != "" {
		cfg.Sim = g.sim
	}
	return cfg, nil
}

// session is a bound table with its surface.
type session struct {
	cfg     *config.Config
	table   *bind.Table
	surface *surface.Surface
	once    sync.Once
}

func (g *globals) open() (*session, error) {
	cfg, err := g.config()
	if err != nil {
		return nil, err
	}
	var host bind.Host
	if cfg.Sim != "" {
		if host, err = sim.Load(cfg.Sim); err != nil {
			return nil, err
		}
	} else {
		host = kmem.New(cfg.Memory, cfg.MaxRows)
	}
	table, err := bind.Bind(host, bind.WithMaxRows(cfg.MaxRows))
	if err != nil {
		return nil, err
	}
	s := &session{
		cfg:     cfg,
		table:   table,
		surface: surface.New(table, surface.WithMaxPayload(cfg.MaxPayload)),
	}
	atexit.Register(s.close)
	return s, nil
}

// close withdraws the endpoints and releases the table. It runs at most
// once, from the command or at exit.
func (s *session) close() {
	s.once.Do(func() {
		s.surface.Close()
		if err := s.table.Release(); err != nil {
			log.Warnf("release table: %v", err)
		}
	})
}
