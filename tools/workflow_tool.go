package tools

import (
	"context"
	"fmt"
	"strings"

	wf "github.com/KamdynS/agent-contrib/workflow"
)

// WorkflowTool describes registered workflows to the model as Mermaid
// flowcharts. An empty input lists the registered names.
type WorkflowTool struct{}

func (WorkflowTool) Name() string { return "workflow_diagram" }
func (WorkflowTool) Description() string {
	return "Show how an agent workflow is wired, as a Mermaid flowchart. Pass the workflow name, or nothing to list them."
}
func (WorkflowTool) Schema() map[string]interface{} {
	return InputSchema("Workflow name, e.g. sidekick")
}

func (WorkflowTool) Execute(ctx context.Context, input string) (string, error) {
	name := strings.TrimSpace(input)
	names := wf.List()
	if name == "" {
		return "Registered workflows: " + strings.Join(names, ", "), nil
	}
	g, ok := wf.Get(name)
	if !ok {
		return "", fmt.Errorf("unknown workflow %q (have %s)", name, strings.Join(names, ", "))
	}
	return g.Mermaid(wf.WithConditionIndicators(true)), nil
}

var _ Tool = WorkflowTool{}
