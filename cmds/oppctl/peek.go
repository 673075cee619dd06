package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/lprylli/oppctl/host/kmem"
	"github.com/lprylli/oppctl/pmem"
)

func newPeekCmd(g *globals) *cobra.Command {
	var interval time.Duration
	var mon bool
	cmd := &cobra.Command{
		Use:   "peek <address> [value]",
		Short: "Read, write or monitor one 32-bit word of kernel memory",
		Long: "Read, write or monitor one 32-bit word at a kernel virtual address, " +
			"translated as configured for the table. Useful to locate the table " +
			"and the cpufreq structures before binding them.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.config()
			if err != nil {
				return err
			}
			if cfg.Sim != "" {
				return errors.New("peek needs kernel memory, not a simulated host")
			}
			addr, err := strconv.ParseUint(args[0], 0, 64)
			if err != nil {
				return fmt.Errorf("address: %w", err)
			}
			var val uint64
			if len(args) == 2 {
				if val, err = strconv.ParseUint(args[1], 0, 32); err != nil {
					return fmt.Errorf("value: %w", err)
				}
			}

			h := kmem.New(cfg.Memory, cfg.MaxRows)
			defer h.Close()
			r, err := h.Word(addr)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch {
			case len(args) == 2:
				r.Write32(0, uint32(val))
				fmt.Fprintf(out, "%#08x := %#08x\n", addr, val)
			case mon:
				fmt.Fprintf(out, "%#08x = %#08x\n", addr, r.Read32(0))
				return watch(cmd, []*pmem.Monitor{{M: r, Label: fmt.Sprintf("%#08x", addr)}}, interval, 0)
			default:
				fmt.Fprintf(out, "%#08x = %#08x\n", addr, r.Read32(0))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&mon, "mon", false, "monitor the word until interrupted")
	cmd.Flags().DurationVar(&interval, "interval", 100*time.Millisecond, "polling interval with --mon")
	return cmd
}
