package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"periph.io/x/periph/conn/physic"
)

func newInfoCmd(g *globals) *cobra.Command {
	var pretty bool
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print every row of the operating point table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := g.open()
			if err != nil {
				return err
			}
			defer s.close()

			if !pretty {
				v, err := s.surface.Query("info")
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), v)
				return nil
			}
			return printTable(cmd, s)
		},
	}
	cmd.Flags().BoolVar(&pretty, "pretty", false, "render a table with units")
	return cmd
}

func printTable(cmd *cobra.Command, s *session) error {
	points, err := s.surface.Report()
	if err != nil {
		return err
	}
	cursor, err := s.surface.Cursor()
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetTitle("Operating points")
	t.AppendHeader(table.Row{"", "Index", "Enabled", "Clock", "Source", "Sel", "Div", "Bus", "Vdd", "Raw", "PLL", "LPJ"})
	for i, p := range points {
		mark := ""
		if i == cursor {
			mark = ">"
		}
		pll := "-"
		if p.PLL != nil {
			pll = fmt.Sprintf("%d/%d/%d/%d", p.PLL.L, p.PLL.M, p.PLL.N, p.PLL.PreDiv)
		}
		t.AppendRow([]interface{}{
			mark,
			i,
			p.Enabled,
			physic.Frequency(p.ClockKHz) * physic.KiloHertz,
			p.Source,
			p.SourceSelect,
			p.SourceDivider,
			physic.Frequency(p.BusClockHz) * physic.Hertz,
			physic.ElectricPotential(p.VoltageMv) * physic.MilliVolt,
			fmt.Sprintf("%#x", p.VoltageRaw),
			pll,
			p.Calibration,
		})
	}
	t.Render()

	b := s.table.PolicyBounds().Bounds()
	khz := func(v uint32) physic.Frequency { return physic.Frequency(v) * physic.KiloHertz }
	h := table.NewWriter()
	h.SetOutputMirror(cmd.OutOrStdout())
	h.SetTitle("Policy")
	h.AppendHeader(table.Row{"Min", "Max", "CPUInfo Min", "CPUInfo Max", "User Min", "User Max"})
	h.AppendRow([]interface{}{khz(b.Min), khz(b.Max), khz(b.CPUInfoMin), khz(b.CPUInfoMax), khz(b.UserMin), khz(b.UserMax)})
	h.Render()
	fmt.Fprintf(cmd.OutOrStdout(), "cpufreq table: %s\n", s.table.FrequencyMirror())
	return nil
}
