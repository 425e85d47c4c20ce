package main

import (
	"context"
	"fmt"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/KamdynS/agent-contrib/expense"
	"github.com/KamdynS/agent-contrib/langaudit"
	"github.com/KamdynS/agent-contrib/mcp"
	"github.com/KamdynS/agent-contrib/mcpserver"
	"github.com/KamdynS/agent-contrib/tools/weatherapi"
)

func newMCPCmd(get func() *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run an MCP server over stdio",
	}
	serve := func(use, short string, build func(ctx context.Context, a *app) (*sdkmcp.Server, error)) *cobra.Command {
		return &cobra.Command{
			Use:   use,
			Short: short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				srv, err := build(cmd.Context(), get())
				if err != nil {
					return err
				}
				return mcp.Serve(cmd.Context(), srv)
			},
		}
	}
	cmd.AddCommand(
		serve("expense", "Expense tracker backed by SQLite or Postgres", func(ctx context.Context, a *app) (*sdkmcp.Server, error) {
			ec := a.cfg.Expense
			var store expense.Store
			var err error
			switch ec.Driver {
			case "postgres":
				if a.cfg.Memory.DatabaseURL == "" {
					return nil, fmt.Errorf("expense driver postgres needs DATABASE_URL")
				}
				store, err = expense.OpenPostgres(ctx, a.cfg.Memory.DatabaseURL)
			default:
				store, err = expense.OpenSQLite(ec.Path)
			}
			if err != nil {
				return nil, err
			}
			a.onClose(store.Close)
			return expense.NewServer(store, ec.Categories), nil
		}),
		serve("date", "Current date", func(ctx context.Context, a *app) (*sdkmcp.Server, error) {
			return mcpserver.Date(time.Now), nil
		}),
		serve("weather", "WeatherAPI forecasts", func(ctx context.Context, a *app) (*sdkmcp.Server, error) {
			return mcpserver.Weather(weatherapi.New(a.cfg.Keys.WeatherAPI)), nil
		}),
		serve("langaudit", "Web page language auditor", func(ctx context.Context, a *app) (*sdkmcp.Server, error) {
			job := langaudit.NewJob()
			job.InputDir = a.cfg.LangAudit.InputDir
			job.OutputDir = a.cfg.LangAudit.OutputDir
			return langaudit.NewServer(job), nil
		}),
	)
	return cmd
}
