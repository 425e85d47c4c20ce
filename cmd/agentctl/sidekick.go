package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KamdynS/agent-contrib/llm"
	"github.com/KamdynS/agent-contrib/sidekick"
	"github.com/KamdynS/agent-contrib/tools/browser"
)

// turnTaker is a sidekick or the event planner.
type turnTaker interface {
	RunSuperstep(ctx context.Context, message, criteria string, history []llm.Message) ([]llm.Message, error)
	Reset()
}

func newSidekickCmd(get func() *app) *cobra.Command {
	var events bool
	cmd := &cobra.Command{
		Use:   "sidekick",
		Short: "Chat with the sidekick in a REPL (/reset, /criteria <text>, /quit)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a := get()
			var tt turnTaker
			if events {
				model, err := a.model(a.cfg.Sidekick.WorkerModel)
				if err != nil {
					return err
				}
				b := browser.New()
				a.onClose(func() error { b.Close(); return nil })
				reg, err := sidekick.EventToolbox(a.cfg.Keys.Serper, b)
				if err != nil {
					return err
				}
				store, err := a.checkpoints(ctx)
				if err != nil {
					return err
				}
				if tt, err = sidekick.NewEventPlanner(model, reg, store, nil); err != nil {
					return err
				}
			} else {
				newSidekick, err := a.sidekickFactory(ctx)
				if err != nil {
					return err
				}
				if tt, err = newSidekick(); err != nil {
					return err
				}
			}
			return repl(ctx, tt, a.cfg.Sidekick.Criteria, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&events, "events", false, "run the event planner instead of the general sidekick")
	return cmd
}

func repl(ctx context.Context, tt turnTaker, criteria string, in io.Reader, out io.Writer) error {
	var history []llm.Message
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case line == "/quit":
			return nil
		case line == "/reset":
			tt.Reset()
			history = nil
			fmt.Fprintln(out, "Conversation reset.")
		case strings.HasPrefix(line, "/criteria "):
			criteria = strings.TrimSpace(strings.TrimPrefix(line, "/criteria "))
			fmt.Fprintf(out, "Success criteria: %s\n", criteria)
		default:
			next, err := tt.RunSuperstep(ctx, line, criteria, history)
			if err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
				break
			}
			for _, m := range next[len(history):] {
				if m.Role == llm.RoleAssistant {
					fmt.Fprintln(out, m.Content)
				}
			}
			history = next
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}
