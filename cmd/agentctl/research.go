package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KamdynS/agent-contrib/research"
)

func newResearchCmd(get func() *app) *cobra.Command {
	var clarify bool
	cmd := &cobra.Command{
		Use:   "research <query>",
		Short: "Run deep research and stream progress to stdout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, clarifier, err := get().researcher(ctx)
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")
			out := cmd.OutOrStdout()
			if clarify {
				s := research.NewSession(clarifier)
				text, err := s.Start(ctx, query)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, text)
				in := bufio.NewScanner(cmd.InOrStdin())
				for !s.Done() && in.Scan() {
					fmt.Fprintln(out, s.Answer(in.Text()))
				}
				query = s.RefinedQuery()
			}
			for chunk := range r.Run(ctx, query) {
				fmt.Fprint(out, chunk)
			}
			fmt.Fprintln(out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&clarify, "clarify", false, "answer clarifying questions on stdin before researching")
	return cmd
}
