package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lprylli/oppctl/pmem"
)

func newWatchCmd(g *globals) *cobra.Command {
	var interval, duration time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Report changes of the row clocks and the policy bounds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := g.open()
			if err != nil {
				return err
			}
			defer s.close()
			return watch(cmd, s.table.Watchpoints(), interval, duration)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 100*time.Millisecond, "polling interval")
	cmd.Flags().DurationVar(&duration, "for", 0, "stop after this long (default: until interrupted)")
	return cmd
}

func watch(cmd *cobra.Command, mons []*pmem.Monitor, interval, duration time.Duration) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}
	out := cmd.OutOrStdout()
	err := pmem.Watch(ctx, mons, interval, func(c pmem.Change) {
		printChange(out, c)
	})
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func printChange(w io.Writer, c pmem.Change) {
	fmt.Fprintf(w, "%10.3fs %s: %d -> %d\n", c.Time.Seconds(), c.Mon.Label, c.Old, c.New)
}
