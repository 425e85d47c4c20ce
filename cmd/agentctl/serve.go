package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KamdynS/agent-contrib/agent/core"
	"github.com/KamdynS/agent-contrib/mcp"
	"github.com/KamdynS/agent-contrib/memory/inmemory"
	"github.com/KamdynS/agent-contrib/observability/prom"
	serverhttp "github.com/KamdynS/agent-contrib/server/http"
	"github.com/KamdynS/agent-contrib/tools"
)

const chatPrompt = "You are a helpful assistant. Use the search tool when the question needs current information " +
	"and the calculator for arithmetic. " +
	"Use workflow_diagram to explain how the sidekick and event planner agents are wired."

func newServeCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve chat, research, sidekick and activity over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a := get()

			model, err := a.model("")
			if err != nil {
				return err
			}
			searchTool, err := a.searchTool()
			if err != nil {
				return err
			}
			if err := registerGraphs(); err != nil {
				return err
			}
			sc := a.cfg.Server
			reg := tools.NewRegistry(searchTool, &tools.CalculatorTool{}, tools.WorkflowTool{})
			for _, base := range sc.ToolBridges {
				if err := mcp.RegisterAllTools(ctx, reg, mcp.NewClient(mcp.ClientConfig{BaseURL: base})); err != nil {
					return fmt.Errorf("tool bridge %s: %w", base, err)
				}
			}
			chat := core.NewChatAgent(core.ChatConfig{
				Model:      model,
				Tools:      reg,
				Mem:        inmemory.NewConversationStore(),
				Config:     core.AgentConfig{SystemPrompt: chatPrompt},
				Middleware: []core.Middleware{&core.SimpleGuardrails{DenySubstrings: sc.BlockedTerms, MaxInputChars: 20000}},
				Processors: []core.Processor{
					core.ToolCallFilter{Exclude: []string{tools.WorkflowTool{}.Name()}},
					core.TokenLimiter{MaxTokens: sc.ChatMaxTokens, Model: model.Model()},
				},
			})

			r, clarifier, err := a.researcher(ctx)
			if err != nil {
				return err
			}
			newSidekick, err := a.sidekickFactory(ctx)
			if err != nil {
				return err
			}
			assistant, err := a.activity(ctx)
			if err != nil {
				return err
			}

			metrics := prom.New()
			srv := serverhttp.NewServer(chat, serverhttp.Config{
				Port:         sc.Port,
				ReadTimeout:  sc.ReadTimeout,
				WriteTimeout: sc.WriteTimeout,
				EnableCORS:   sc.EnableCORS,
			},
				serverhttp.WithResearch(r, clarifier),
				serverhttp.WithSidekicks(func() (serverhttp.Sidekick, error) { return newSidekick() }),
				serverhttp.WithActivity(assistant),
				serverhttp.WithMetrics(metrics),
			)
			return srv.ListenAndServe(ctx)
		},
	}
}
