// Package core is the agent runtime: agent definitions, the tool calling
// Runner with guardrails, hooks and middleware, and a memory backed ChatAgent.
package core

import (
	"context"
)

// Message represents a conversation message with role and content
type Message struct {
	Role    string            `json:"role"`
	Content string            `json:"content"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// Agent defines the core interface for conversational agents
type Agent interface {
	// Run executes one reasoning-action loop with the given input and returns output
	Run(ctx context.Context, input Message) (Message, error)

	// RunStream executes the agent loop and streams responses via the provided channel.
	// Implementations close output before returning.
	RunStream(ctx context.Context, input Message, output chan<- Message) error
}

// AgentConfig holds configuration for creating chat agents
type AgentConfig struct {
	MaxIterations int
	Timeout       string
	SystemPrompt  string
}
