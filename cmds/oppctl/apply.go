package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lprylli/oppctl/log"
	"github.com/lprylli/oppctl/profile"
)

func newApplyCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "apply <profile.yaml>",
		Short: "Apply a profile of endpoint writes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := profile.Load(args[0])
			if err != nil {
				return err
			}
			s, err := g.open()
			if err != nil {
				return err
			}
			defer s.close()

			log.Infof("applying %s: %d steps", p.Name, len(p.Steps))
			if err := profile.Apply(s.surface, p); err != nil {
				return fmt.Errorf("%s: %w", p.Name, err)
			}
			v, err := s.surface.Query("info")
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), v)
			return nil
		},
	}
}
