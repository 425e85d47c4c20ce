// Package llmtest provides deterministic llm.Client fakes for tests.
package llmtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/KamdynS/agent-contrib/llm"
)

// Route answers any request whose system prompt or last user message
// contains Match.
type Route struct {
	Match    string
	Response *llm.Response
	Err      error
}

// ScriptedClient replays queued responses in order. When the queue is empty
// it falls back to the first matching route, then to Fallback. Every request
// is recorded.
type ScriptedClient struct {
	mu       sync.Mutex
	queue    []*llm.Response
	errs     []error
	routes   []Route
	requests []llm.ChatRequest

	Fallback *llm.Response
	ModelID  string
}

// New returns a client that replays responses in order.
func New(responses ...*llm.Response) *ScriptedClient {
	return &ScriptedClient{queue: responses, errs: make([]error, len(responses)), ModelID: "scripted"}
}

// Text is shorthand for a plain assistant response.
func Text(content string) *llm.Response {
	return &llm.Response{Content: content, Role: llm.RoleAssistant, FinishReason: "stop"}
}

// ToolCall is shorthand for an assistant turn that calls one tool.
func ToolCall(id, name, args string) *llm.Response {
	return &llm.Response{
		Role:         llm.RoleAssistant,
		FinishReason: "tool_calls",
		ToolCalls:    []llm.ToolCall{{ID: id, Type: "function", Function: llm.Function{Name: name, Arguments: args}}},
	}
}

// Push queues another response.
func (c *ScriptedClient) Push(r *llm.Response) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, r)
	c.errs = append(c.errs, nil)
	return c
}

// PushError queues a failure.
func (c *ScriptedClient) PushError(err error) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append(c.queue, nil)
	c.errs = append(c.errs, err)
	return c
}

// On adds a content route. Routes are checked in insertion order.
func (c *ScriptedClient) On(match string, r *llm.Response) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes = append(c.routes, Route{Match: match, Response: r})
	return c
}

// OnError adds a route that fails.
func (c *ScriptedClient) OnError(match string, err error) *ScriptedClient {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes = append(c.routes, Route{Match: match, Err: err})
	return c
}

// Requests returns a copy of every request seen so far.
func (c *ScriptedClient) Requests() []llm.ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]llm.ChatRequest, len(c.requests))
	copy(out, c.requests)
	return out
}

func (c *ScriptedClient) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *req
	cp.Messages = append([]llm.Message(nil), req.Messages...)
	c.requests = append(c.requests, cp)

	if len(c.queue) > 0 {
		r, err := c.queue[0], c.errs[0]
		c.queue, c.errs = c.queue[1:], c.errs[1:]
		if err != nil {
			return nil, err
		}
		return clone(r, c.ModelID), nil
	}
	haystack := req.SystemPrompt + "\n" + lastUser(req.Messages)
	for _, m := range req.Messages {
		if m.Role == llm.RoleSystem {
			haystack += "\n" + m.Content
		}
	}
	for _, rt := range c.routes {
		if strings.Contains(haystack, rt.Match) {
			if rt.Err != nil {
				return nil, rt.Err
			}
			return clone(rt.Response, c.ModelID), nil
		}
	}
	if c.Fallback != nil {
		return clone(c.Fallback, c.ModelID), nil
	}
	return nil, fmt.Errorf("llmtest: no scripted response for request %d", len(c.requests))
}

func (c *ScriptedClient) Completion(ctx context.Context, prompt string) (*llm.Response, error) {
	return c.Chat(ctx, &llm.ChatRequest{Messages: []llm.Message{llm.UserMessage(prompt)}})
}

// Stream emits the next response word by word.
func (c *ScriptedClient) Stream(ctx context.Context, req *llm.ChatRequest, output chan<- *llm.Response) error {
	defer close(output)
	resp, err := c.Chat(ctx, req)
	if err != nil {
		return err
	}
	for i, w := range strings.SplitAfter(resp.Content, " ") {
		chunk := &llm.Response{Content: w, Role: llm.RoleAssistant, Model: resp.Model}
		if i == 0 {
			chunk.Meta = map[string]string{"streaming": "true"}
		}
		select {
		case output <- chunk:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (c *ScriptedClient) Model() string          { return c.ModelID }
func (c *ScriptedClient) Provider() llm.Provider { return llm.Provider("scripted") }
func (c *ScriptedClient) Validate() error        { return nil }

func clone(r *llm.Response, model string) *llm.Response {
	cp := *r
	cp.ToolCalls = append([]llm.ToolCall(nil), r.ToolCalls...)
	if cp.Model == "" {
		cp.Model = model
	}
	if cp.Role == "" {
		cp.Role = llm.RoleAssistant
	}
	return &cp
}

func lastUser(msgs []llm.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == llm.RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}

var _ llm.Client = (*ScriptedClient)(nil)
