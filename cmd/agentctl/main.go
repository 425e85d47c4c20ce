// Command agentctl runs the example agents: deep research, sidekick, the
// activity assistant, the market research crew, the MCP servers, and the
// HTTP and Telegram front-ends.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/KamdynS/agent-contrib/config"
	obs "github.com/KamdynS/agent-contrib/observability"
)

const version = "v0.2.0"

type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	var a *app

	root := &cobra.Command{
		Use:           "agentctl",
		Short:         "Run the agent-contrib example agents",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.Log.Level = opts.logLevel
			}
			if opts.logFormat != "" {
				cfg.Log.Format = opts.logFormat
			}
			obs.SetLogger(obs.NewLogger(cfg.Log))
			a = newApp(cfg)
			return a.setupTracing()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a != nil {
				a.close()
			}
		},
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "log format (console, json)")

	get := func() *app { return a }
	root.AddCommand(
		newResearchCmd(get),
		newSidekickCmd(get),
		newActivityCmd(get),
		newCrewCmd(get),
		newServeCmd(get),
		newTelegramCmd(get),
		newMCPCmd(get),
		newGraphCmd(),
		newInitCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log := obs.Component("agentctl")
		log.Error().Err(err).Msg("command failed")
		stop()
		os.Exit(1)
	}
}
