package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lprylli/oppctl/surface"
)

// selectRow moves the cursor when --index was given.
func selectRow(cmd *cobra.Command, s *surface.Surface, index uint64) error {
	if !cmd.Flags().Changed("index") {
		return nil
	}
	return s.Command("cursor", strings.NewReader(strconv.FormatUint(index, 10)))
}

func newGetCmd(g *globals) *cobra.Command {
	var index uint64
	cmd := &cobra.Command{
		Use:   "get <endpoint>",
		Short: "Read one endpoint of the selected row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open()
			if err != nil {
				return err
			}
			defer s.close()
			if err := selectRow(cmd, s.surface, index); err != nil {
				return err
			}
			v, err := s.surface.Query(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(v, "\n"))
			return nil
		},
	}
	cmd.Flags().Uint64Var(&index, "index", 0, "row to select first (default: the last row)")
	return cmd
}

func newSetCmd(g *globals) *cobra.Command {
	var index uint64
	cmd := &cobra.Command{
		Use:   "set <endpoint> <value>...",
		Short: "Write one endpoint of the selected row",
		Long: "Write one endpoint of the selected row. The values are joined with " +
			"spaces, so \"set pll 94 0 1 0\" writes all four PLL settings. " +
			"The endpoint is read back after the write.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open()
			if err != nil {
				return err
			}
			defer s.close()
			if err := selectRow(cmd, s.surface, index); err != nil {
				return err
			}
			name := args[0]
			if err := s.surface.Command(name, strings.NewReader(strings.Join(args[1:], " "))); err != nil {
				return err
			}
			v, err := s.surface.Query(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", name, strings.TrimRight(v, "\n"))
			return nil
		},
	}
	cmd.Flags().Uint64Var(&index, "index", 0, "row to select first (default: the last row)")
	return cmd
}
