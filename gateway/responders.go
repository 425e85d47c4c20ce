package gateway

import (
	"context"
	"strings"
	"sync"

	"github.com/KamdynS/agent-contrib/llm"
)

// Sidekick is one checkpointed worker/evaluator conversation.
type Sidekick interface {
	RunSuperstep(ctx context.Context, message, criteria string, history []llm.Message) ([]llm.Message, error)
	Reset()
}

// ResetCommand clears the chat's sidekick history.
const ResetCommand = "/reset"

// SidekickResponder keeps one sidekick per chat and replies with the
// assistant messages produced by the turn.
type SidekickResponder struct {
	New      func() (Sidekick, error)
	Criteria string

	mu    sync.Mutex
	chats map[string]*sidekickChat
}

type sidekickChat struct {
	mu      sync.Mutex
	sk      Sidekick
	history []llm.Message
}

func (r *SidekickResponder) chat(id string) (*sidekickChat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.chats == nil {
		r.chats = make(map[string]*sidekickChat)
	}
	if c, ok := r.chats[id]; ok {
		return c, nil
	}
	sk, err := r.New()
	if err != nil {
		return nil, err
	}
	c := &sidekickChat{sk: sk}
	r.chats[id] = c
	return c, nil
}

func (r *SidekickResponder) Respond(ctx context.Context, chatID, text string) (string, error) {
	c, err := r.chat(chatID)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if strings.TrimSpace(text) == ResetCommand {
		c.sk.Reset()
		c.history = nil
		return "Conversation reset.", nil
	}
	before := len(c.history)
	history, err := c.sk.RunSuperstep(ctx, text, r.Criteria, c.history)
	if err != nil {
		return "", err
	}
	c.history = history
	var replies []string
	for _, m := range history[before:] {
		if m.Role == llm.RoleAssistant && m.Content != "" {
			replies = append(replies, m.Content)
		}
	}
	return strings.Join(replies, "\n\n"), nil
}

// Researcher streams research status updates and the final report.
type Researcher interface {
	Run(ctx context.Context, query string) <-chan string
}

// ResearchResponder runs a research query per message and replies with the
// whole status stream.
type ResearchResponder struct {
	Research Researcher
}

func (r ResearchResponder) Respond(ctx context.Context, chatID, text string) (string, error) {
	var b strings.Builder
	for chunk := range r.Research.Run(ctx, text) {
		b.WriteString(chunk)
	}
	return b.String(), ctx.Err()
}
