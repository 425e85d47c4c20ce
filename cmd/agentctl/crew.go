package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KamdynS/agent-contrib/crew"
)

func newCrewCmd(get func() *app) *cobra.Command {
	in := crew.DefaultInputs()
	cmd := &cobra.Command{
		Use:   "crew",
		Short: "Run the market research crew and print its decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := get().crew(cmd.Context())
			if err != nil {
				return err
			}
			res, err := c.Kickoff(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Raw)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Topic, "topic", in.Topic, "sector to research")
	f.StringVar(&in.RiskProfile, "risk", in.RiskProfile, "risk profile")
	f.StringVar(&in.InvestmentHorizon, "horizon", in.InvestmentHorizon, "investment horizon")
	f.StringVar(&in.Region, "region", in.Region, "region")
	f.StringVar(&in.MarketCapPreference, "market-cap", in.MarketCapPreference, "market cap preference")
	f.IntVar(&in.NumberOfPicks, "picks", in.NumberOfPicks, "number of companies to pick")
	return cmd
}
