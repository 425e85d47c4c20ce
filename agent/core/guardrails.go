package core

import (
	"context"
	"errors"
	"strings"

	"github.com/KamdynS/agent-contrib/llm"
)

// ErrBlocked is returned by SimpleGuardrails when a request is refused.
var ErrBlocked = errors.New("request blocked by guardrails")

// SimpleGuardrails is a Middleware with substring allow/deny lists and an
// input length cap on the latest user message.
type SimpleGuardrails struct {
	NopMiddleware
	// Deny if any of these substrings appear in the user input
	DenySubstrings []string
	// Allow only if at least one of these substrings appears; if empty, allow all
	AllowSubstrings []string
	// Inputs longer than this are truncated
	MaxInputChars int
}

func containsFold(s string, subs []string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, strings.ToLower(sub)) {
			return true
		}
	}
	return false
}

func (g *SimpleGuardrails) BeforeLLMCall(ctx context.Context, req *llm.ChatRequest) error {
	if req == nil || len(req.Messages) == 0 {
		return nil
	}
	last := &req.Messages[len(req.Messages)-1]
	if last.Role != llm.RoleUser {
		return nil
	}
	if r := []rune(last.Content); g.MaxInputChars > 0 && len(r) > g.MaxInputChars {
		last.Content = string(r[:g.MaxInputChars])
	}
	if containsFold(last.Content, g.DenySubstrings) {
		return ErrBlocked
	}
	if len(g.AllowSubstrings) > 0 && !containsFold(last.Content, g.AllowSubstrings) {
		return errors.New("request not permitted by guardrails")
	}
	return nil
}

// InputGuardrail exposes the deny list as a tripwire so it can guard a
// Definition without being installed as middleware.
func (g *SimpleGuardrails) InputGuardrail() InputGuardrail {
	return InputGuardrail{
		Name: "simple",
		Check: func(ctx context.Context, _ *Definition, input string) (GuardrailResult, error) {
			if containsFold(input, g.DenySubstrings) {
				return GuardrailResult{TripwireTriggered: true, Message: ErrBlocked.Error()}, nil
			}
			return GuardrailResult{}, nil
		},
	}
}
