package sidekick

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/KamdynS/agent-contrib/llm"
	obs "github.com/KamdynS/agent-contrib/observability"
	"github.com/KamdynS/agent-contrib/tools"
)

// Route keys shared by both graphs.
const (
	nodeWorker        = "worker"
	nodeTools         = "tools"
	nodeClarification = "clarification_check"
	nodeEvaluator     = "evaluator"
	nodeIntake        = "intake"
	routeEnd          = "END"
)

// toolNode runs every call on the last assistant message and appends one
// tool message per call. Tool failures go back to the model as text.
func toolNode(reg tools.Registry, logger *zerolog.Logger) func(ctx context.Context, s State) (State, error) {
	return func(ctx context.Context, s State) (State, error) {
		last := s.Last()
		for _, tc := range last.ToolCalls {
			out := callTool(ctx, reg, tc, logger)
			s.Messages = append(s.Messages, llm.Message{
				Role:       llm.RoleTool,
				Content:    out,
				Name:       tc.Function.Name,
				ToolCallID: tc.ID,
			})
		}
		return s, nil
	}
}

func callTool(ctx context.Context, reg tools.Registry, tc llm.ToolCall, logger *zerolog.Logger) string {
	name := tc.Function.Name
	if reg == nil {
		return fmt.Sprintf("error: tool %s not found", name)
	}
	tool, ok := reg.Get(name)
	if !ok {
		return fmt.Sprintf("error: tool %s not found", name)
	}
	out, err := reg.Execute(ctx, name, tools.Input(tool, tc.Function.Arguments))
	if err != nil {
		log := obs.LoggerOr(logger, "sidekick")
		log.Warn().Str("tool", name).Err(err).Msg("tool failed")
		return fmt.Sprintf("error: %v", err)
	}
	return out
}

// routeTools sends tool calls to the tool node and everything else to next.
func routeTools(next string) func(ctx context.Context, s State) string {
	return func(_ context.Context, s State) string {
		if len(s.Last().ToolCalls) > 0 {
			return nodeTools
		}
		return next
	}
}

func routeEvaluation(_ context.Context, s State) string {
	if s.SuccessCriteriaMet || s.UserInputNeeded {
		return routeEnd
	}
	return nodeWorker
}
