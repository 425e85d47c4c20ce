package core

import (
	"context"

	"github.com/KamdynS/agent-contrib/llm"
)

// RunHooks observe an agent run. They cannot change its course; use
// Middleware for that.
type RunHooks interface {
	OnAgentStart(ctx context.Context, agent *Definition)
	OnAgentEnd(ctx context.Context, agent *Definition, output string)
	OnToolStart(ctx context.Context, agent *Definition, tool string, input string)
	OnToolEnd(ctx context.Context, agent *Definition, tool string, result string)
}

// HookFuncs adapts optional functions to RunHooks. Nil fields are skipped.
type HookFuncs struct {
	AgentStart func(ctx context.Context, agent *Definition)
	AgentEnd   func(ctx context.Context, agent *Definition, output string)
	ToolStart  func(ctx context.Context, agent *Definition, tool, input string)
	ToolEnd    func(ctx context.Context, agent *Definition, tool, result string)
}

func (h HookFuncs) OnAgentStart(ctx context.Context, a *Definition) {
	if h.AgentStart != nil {
		h.AgentStart(ctx, a)
	}
}

func (h HookFuncs) OnAgentEnd(ctx context.Context, a *Definition, output string) {
	if h.AgentEnd != nil {
		h.AgentEnd(ctx, a, output)
	}
}

func (h HookFuncs) OnToolStart(ctx context.Context, a *Definition, tool, input string) {
	if h.ToolStart != nil {
		h.ToolStart(ctx, a, tool, input)
	}
}

func (h HookFuncs) OnToolEnd(ctx context.Context, a *Definition, tool, result string) {
	if h.ToolEnd != nil {
		h.ToolEnd(ctx, a, tool, result)
	}
}

type multiHooks []RunHooks

func (m multiHooks) OnAgentStart(ctx context.Context, a *Definition) {
	for _, h := range m {
		h.OnAgentStart(ctx, a)
	}
}

func (m multiHooks) OnAgentEnd(ctx context.Context, a *Definition, output string) {
	for _, h := range m {
		h.OnAgentEnd(ctx, a, output)
	}
}

func (m multiHooks) OnToolStart(ctx context.Context, a *Definition, tool, input string) {
	for _, h := range m {
		h.OnToolStart(ctx, a, tool, input)
	}
}

func (m multiHooks) OnToolEnd(ctx context.Context, a *Definition, tool, result string) {
	for _, h := range m {
		h.OnToolEnd(ctx, a, tool, result)
	}
}

func combineHooks(hs ...RunHooks) RunHooks {
	var out multiHooks
	for _, h := range hs {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

// Middleware can veto or adjust a run at each step. Any error aborts the run.
type Middleware interface {
	BeforeLLMCall(ctx context.Context, req *llm.ChatRequest) error
	AfterLLMResponse(ctx context.Context, resp *llm.Response) error
	BeforeToolExecute(ctx context.Context, toolName string, input string) error
	AfterToolExecute(ctx context.Context, toolName string, result string, execErr error) error
	AfterRun(ctx context.Context, final Message) error
}

// NopMiddleware implements Middleware with no-ops; embed it to override a subset.
type NopMiddleware struct{}

func (NopMiddleware) BeforeLLMCall(context.Context, *llm.ChatRequest) error   { return nil }
func (NopMiddleware) AfterLLMResponse(context.Context, *llm.Response) error   { return nil }
func (NopMiddleware) BeforeToolExecute(context.Context, string, string) error { return nil }
func (NopMiddleware) AfterToolExecute(context.Context, string, string, error) error {
	return nil
}
func (NopMiddleware) AfterRun(context.Context, Message) error { return nil }
