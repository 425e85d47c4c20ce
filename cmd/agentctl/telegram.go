package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/KamdynS/agent-contrib/gateway"
)

func newTelegramCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "telegram",
		Short: "Answer Telegram messages with the sidekick or deep research",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a := get()
			tc := a.cfg.Telegram
			if tc.Token == "" {
				return errors.New("TELEGRAM_BOT_TOKEN is not set")
			}

			var responder gateway.Responder
			switch tc.Responder {
			case "research":
				r, _, err := a.researcher(ctx)
				if err != nil {
					return err
				}
				responder = gateway.ResearchResponder{Research: r}
			default:
				newSidekick, err := a.sidekickFactory(ctx)
				if err != nil {
					return err
				}
				responder = &gateway.SidekickResponder{
					New:      func() (gateway.Sidekick, error) { return newSidekick() },
					Criteria: a.cfg.Sidekick.Criteria,
				}
			}

			tg, err := gateway.NewTelegram(tc.Token, responder)
			if err != nil {
				return err
			}
			return tg.Start(ctx)
		},
	}
}
