package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/KamdynS/agent-contrib/llm"
	"github.com/KamdynS/agent-contrib/memory"
	obs "github.com/KamdynS/agent-contrib/observability"
	"github.com/KamdynS/agent-contrib/tools"
)

// DefaultSessionID is used when a ChatAgent has memory but no session.
const DefaultSessionID = "default"

// ChatAgent is a conversational Agent that keeps its history in a
// ConversationStore and delegates each turn to a Runner.
type ChatAgent struct {
	Model      llm.Client
	Tools      tools.Registry
	Mem        memory.ConversationStore
	SessionID  string
	Config     AgentConfig
	Middleware []Middleware
	Processors []Processor
	Runner     *Runner
}

// ChatConfig holds configuration for ChatAgent
type ChatConfig struct {
	Model      llm.Client
	Tools      tools.Registry
	Mem        memory.ConversationStore
	SessionID  string
	Config     AgentConfig
	Middleware []Middleware
	Processors []Processor
	Runner     *Runner
}

// NewChatAgent creates a new ChatAgent with the given configuration
func NewChatAgent(config ChatConfig) *ChatAgent {
	if config.Runner == nil {
		config.Runner = &Runner{}
	}
	if config.SessionID == "" {
		config.SessionID = DefaultSessionID
	}
	return &ChatAgent{
		Model:      config.Model,
		Tools:      config.Tools,
		Mem:        config.Mem,
		SessionID:  config.SessionID,
		Config:     config.Config,
		Middleware: config.Middleware,
		Processors: config.Processors,
		Runner:     config.Runner,
	}
}

func (a *ChatAgent) definition() *Definition {
	return &Definition{
		Name:         "chat",
		Instructions: a.Config.SystemPrompt,
		Model:        a.Model,
		Tools:        a.Tools,
		MaxTurns:     a.Config.MaxIterations,
		Middleware:   a.Middleware,
		Processors:   a.Processors,
	}
}

func (a *ChatAgent) withTimeout(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if a.Config.Timeout == "" {
		return ctx, func() {}, nil
	}
	d, err := time.ParseDuration(a.Config.Timeout)
	if err != nil {
		return ctx, func() {}, fmt.Errorf("invalid timeout duration: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	return ctx, cancel, nil
}

func (a *ChatAgent) history(ctx context.Context) ([]llm.Message, error) {
	if a.Mem == nil {
		return nil, nil
	}
	stored, err := a.Mem.GetMessages(ctx, a.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	out := make([]llm.Message, 0, len(stored))
	for _, m := range stored {
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return out, nil
}

func (a *ChatAgent) remember(ctx context.Context, input, output Message) error {
	if a.Mem == nil {
		return nil
	}
	if err := a.Mem.AppendMessage(ctx, a.SessionID, input.Role, input.Content); err != nil {
		return fmt.Errorf("failed to store message: %w", err)
	}
	if err := a.Mem.AppendMessage(ctx, a.SessionID, output.Role, output.Content); err != nil {
		return fmt.Errorf("failed to store response: %w", err)
	}
	return nil
}

func userTurn(input Message) llm.Message {
	role := input.Role
	if role == "" {
		role = llm.RoleUser
	}
	return llm.Message{Role: role, Content: input.Content}
}

// Run implements the Agent interface
func (a *ChatAgent) Run(ctx context.Context, input Message) (Message, error) {
	ctx, cancel, err := a.withTimeout(ctx)
	defer cancel()
	if err != nil {
		return Message{}, err
	}
	history, err := a.history(ctx)
	if err != nil {
		return Message{}, err
	}
	res, err := a.Runner.RunMessages(ctx, a.definition(), append(history, userTurn(input)))
	if err != nil {
		return Message{}, err
	}
	out := Message{Role: llm.RoleAssistant, Content: res.FinalOutput}
	if err := a.remember(ctx, input, out); err != nil {
		return Message{}, err
	}
	return out, nil
}

// RunStream implements the Agent interface. Without tools or middleware the
// model is streamed directly: each chunk is sent as a partial message followed
// by the aggregated reply. Otherwise the run completes first.
func (a *ChatAgent) RunStream(ctx context.Context, input Message, output chan<- Message) error {
	defer close(output)

	if (a.Tools != nil && len(a.Tools.List()) > 0) || len(a.Middleware) > 0 {
		result, err := a.Run(ctx, input)
		if err != nil {
			return err
		}
		return send(ctx, output, result)
	}

	ctx, cancel, err := a.withTimeout(ctx)
	defer cancel()
	if err != nil {
		return err
	}
	history, err := a.history(ctx)
	if err != nil {
		return err
	}
	span, ctx := obs.TracerImpl.StartSpan(ctx, "agent.stream")
	defer span.End()

	msgs := append(history, userTurn(input))
	for _, p := range a.Processors {
		msgs = p.Process(ctx, msgs)
	}
	chunks := make(chan *llm.Response, 16)
	errc := make(chan error, 1)
	go func() {
		errc <- a.Model.Stream(ctx, &llm.ChatRequest{SystemPrompt: a.Config.SystemPrompt, Messages: msgs}, chunks)
	}()

	var sb strings.Builder
	for c := range chunks {
		sb.WriteString(c.Content)
		if err := send(ctx, output, Message{Role: llm.RoleAssistant, Content: c.Content, Meta: map[string]string{"partial": "true"}}); err != nil {
			return err
		}
	}
	if err := <-errc; err != nil {
		span.SetStatus(obs.StatusCodeError, err.Error())
		return err
	}

	final := Message{Role: llm.RoleAssistant, Content: sb.String()}
	if err := a.remember(ctx, input, final); err != nil {
		return err
	}
	span.SetStatus(obs.StatusCodeOk, "")
	return send(ctx, output, final)
}

func send(ctx context.Context, out chan<- Message, m Message) error {
	select {
	case out <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
