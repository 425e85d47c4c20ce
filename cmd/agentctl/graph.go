package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/KamdynS/agent-contrib/sidekick"
	"github.com/KamdynS/agent-contrib/workflow"
)

// Graph names served under /debug/workflows.
const (
	graphSidekick     = "sidekick"
	graphEventPlanner = "event_planner"
)

// registerGraphs builds model-less copies of the graphs for diagrams.
func registerGraphs() error {
	sk, err := sidekick.New(sidekick.Config{})
	if err != nil {
		return err
	}
	ep, err := sidekick.NewEventPlanner(nil, nil, nil, nil)
	if err != nil {
		return err
	}
	for name, g := range map[string]workflow.Diagrammer{graphSidekick: sk.Graph(), graphEventPlanner: ep.Graph()} {
		if _, ok := workflow.Get(name); ok {
			continue
		}
		if err := workflow.Register(name, g); err != nil {
			return err
		}
	}
	return nil
}

func newGraphCmd() *cobra.Command {
	var host, dir string
	var conds bool
	cmd := &cobra.Command{
		Use:   "graph [name]",
		Short: "Print a workflow as Mermaid (default sidekick); --host asks a running server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := graphSidekick
			if len(args) == 1 {
				name = args[0]
			}
			out := cmd.OutOrStdout()
			if host != "" {
				text, err := fetchMermaid(host, name, dir, conds)
				if err != nil {
					return err
				}
				fmt.Fprint(out, text)
				return nil
			}
			if err := registerGraphs(); err != nil {
				return err
			}
			g, ok := workflow.Get(name)
			if !ok {
				return fmt.Errorf("unknown graph %q (have %v)", name, workflow.List())
			}
			var opts []workflow.MermaidOption
			if dir != "" {
				opts = append(opts, workflow.WithDirection(dir))
			}
			if conds {
				opts = append(opts, workflow.WithConditionIndicators(true))
			}
			fmt.Fprint(out, g.Mermaid(opts...))
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "host:port of a running agentctl serve")
	cmd.Flags().StringVar(&dir, "dir", "", "Mermaid direction (TD, LR, BT, RL)")
	cmd.Flags().BoolVar(&conds, "conds", false, "label conditional edges with their route")
	return cmd
}

func fetchMermaid(host, name, dir string, conds bool) (string, error) {
	q := url.Values{"name": {name}}
	if dir != "" {
		q.Set("dir", dir)
	}
	if conds {
		q.Set("conds", "true")
	}
	resp, err := http.Get(fmt.Sprintf("http://%s/debug/workflows/mermaid?%s", host, q.Encode()))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, b)
	}
	return string(b), nil
}
