package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KamdynS/agent-contrib/llm"
)

func newActivityCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "activity",
		Short: "Ask the activity assistant for things to do, in a REPL",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			assistant, err := get().activity(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			var history []llm.Message
			scanner := bufio.NewScanner(cmd.InOrStdin())
			fmt.Fprint(out, "> ")
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "/quit" {
					return nil
				}
				if line != "" {
					reply, err := assistant.Chat(ctx, history, line)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, reply)
					history = append(history, llm.UserMessage(line), llm.AssistantText(reply))
				}
				fmt.Fprint(out, "> ")
			}
			return scanner.Err()
		},
	}
}
