// Package supervisor composes agents: agents as tools, sequential and
// first-wins policies, and bounded fan-out.
package supervisor

import (
	"context"
	"fmt"

	core "github.com/KamdynS/agent-contrib/agent/core"
	"github.com/KamdynS/agent-contrib/tools"
)

// AgentTool wraps an Agent as a tools.Tool so it can be delegated to.
type AgentTool struct {
	NameStr, Desc string
	Agent         core.Agent
}

func (a *AgentTool) Name() string        { return a.NameStr }
func (a *AgentTool) Description() string { return a.Desc }
func (a *AgentTool) Schema() map[string]interface{} {
	return tools.InputSchema("the request for the " + a.NameStr + " agent")
}

func (a *AgentTool) Execute(ctx context.Context, input string) (string, error) {
	if a.Agent == nil {
		return "", fmt.Errorf("nil agent")
	}
	out, err := a.Agent.Run(ctx, core.Message{Role: "user", Content: input})
	if err != nil {
		return "", err
	}
	return out.Content, nil
}

// DefinitionTool exposes a core.Definition as a tool. Each call is an
// independent run on Runner, so hooks attached to the runner see nested runs.
type DefinitionTool struct {
	NameStr, Desc string
	Def           *core.Definition
	Runner        *core.Runner
}

func (d *DefinitionTool) Name() string        { return d.NameStr }
func (d *DefinitionTool) Description() string { return d.Desc }
func (d *DefinitionTool) Schema() map[string]interface{} {
	return tools.InputSchema("the request for the " + d.NameStr + " agent")
}

func (d *DefinitionTool) Execute(ctx context.Context, input string) (string, error) {
	if d.Def == nil {
		return "", fmt.Errorf("nil agent definition")
	}
	r := d.Runner
	if r == nil {
		r = &core.Runner{}
	}
	res, err := r.Run(ctx, d.Def, input)
	if err != nil {
		return "", err
	}
	return res.FinalOutput, nil
}

var (
	_ tools.Tool = (*AgentTool)(nil)
	_ tools.Tool = (*DefinitionTool)(nil)
)
