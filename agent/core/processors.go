package core

import (
	"context"
	"encoding/json"

	"github.com/KamdynS/agent-contrib/llm"
)

// Processor rewrites the conversation sent to the model on each turn. The
// stored conversation is left untouched.
type Processor interface {
	Process(ctx context.Context, msgs []llm.Message) []llm.Message
}

// TokenLimiter drops the oldest non-system messages until the conversation fits
// MaxTokens. The newest message is always kept, as is the tool call turn that
// a kept tool result answers.
type TokenLimiter struct {
	MaxTokens int
	Model     string
	// Count overrides token counting; it defaults to llm.CountTokens.
	Count func(text string) int
}

func (t TokenLimiter) count(m llm.Message) int {
	if t.Count != nil {
		return t.Count(m.Content)
	}
	return llm.CountMessageTokens(t.Model, []llm.Message{m})
}

func (t TokenLimiter) Process(ctx context.Context, msgs []llm.Message) []llm.Message {
	if t.MaxTokens <= 0 || len(msgs) == 0 {
		return msgs
	}
	total := 0
	for _, m := range msgs {
		total += t.count(m)
	}
	drop := make([]bool, len(msgs))
	for i := 0; i < len(msgs)-1 && total > t.MaxTokens; i++ {
		if msgs[i].Role == llm.RoleSystem {
			continue
		}
		drop[i] = true
		total -= t.count(msgs[i])
	}
	out := make([]llm.Message, 0, len(msgs))
	for i, m := range msgs {
		if drop[i] {
			continue
		}
		// A tool result without its call is rejected by providers.
		if m.Role == llm.RoleTool && len(out) > 0 && out[len(out)-1].Role != llm.RoleTool && len(out[len(out)-1].ToolCalls) == 0 {
			continue
		}
		if m.Role == llm.RoleTool && len(out) == 0 {
			continue
		}
		out = append(out, m)
	}
	return out
}

// ToolCallFilter hides tool traffic from the model: tool results and the tool
// calls on assistant turns. Assistant turns left empty are dropped.
type ToolCallFilter struct {
	// Exclude limits filtering to these tool names; empty filters all tools.
	Exclude []string
}

func (f ToolCallFilter) excluded(name string) bool {
	if len(f.Exclude) == 0 {
		return true
	}
	for _, n := range f.Exclude {
		if n == name {
			return true
		}
	}
	return false
}

func (f ToolCallFilter) Process(ctx context.Context, msgs []llm.Message) []llm.Message {
	out := make([]llm.Message, 0, len(msgs))
	for _, m := range msgs {
		switch {
		case m.Role == llm.RoleTool && f.excluded(m.Name):
			continue
		case len(m.ToolCalls) > 0:
			var kept []llm.ToolCall
			for _, tc := range m.ToolCalls {
				if !f.excluded(tc.Function.Name) {
					kept = append(kept, tc)
				}
			}
			m.ToolCalls = kept
			if m.Content == "" && len(kept) == 0 {
				continue
			}
		}
		out = append(out, m)
	}
	return out
}

func jsonIndent(v any) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	return string(b), err
}
