package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KamdynS/agent-contrib/llm"
)

func TestNewClientProviderDefaults(t *testing.T) {
	c, err := NewClient(Config{Provider: llm.ProviderOllama})
	if err != nil {
		t.Fatalf("ollama: %v", err)
	}
	if c.Model() != llm.ModelLlama32 || c.config.APIKey != "ollama" {
		t.Fatalf("ollama defaults not applied: %+v", c.config)
	}

	c, err = NewClient(Config{Provider: llm.ProviderOpenRouter, APIKey: "k"})
	if err != nil {
		t.Fatalf("openrouter: %v", err)
	}
	if c.Model() != llm.ModelMimoFlash || c.Provider() != llm.ProviderOpenRouter {
		t.Fatalf("openrouter defaults: %s %s", c.Model(), c.Provider())
	}

	if _, err := NewClient(Config{APIKey: "k", Model: llm.ModelClaude35Haiku}); err == nil {
		t.Fatalf("expected anthropic model to be rejected")
	}
	if _, err := NewClient(Config{Provider: llm.ProviderAnthropic, APIKey: "k"}); err == nil {
		t.Fatalf("expected provider to be rejected")
	}
	if _, err := NewClient(Config{Provider: llm.ProviderAzure, APIKey: "k", Model: "deploy"}); err == nil {
		t.Fatalf("expected azure without base url to fail")
	}
}

func TestChatRoundTripsToolCalls(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"tool_calls","message":{"role":"assistant","content":"",
				"tool_calls":[{"id":"call_1","type":"function","function":{"name":"search","arguments":"{\"query\":\"go\"}"}}]}}],
			"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := c.Chat(context.Background(), &llm.ChatRequest{
		SystemPrompt: "be brief",
		Messages: []llm.Message{
			llm.UserMessage("find go"),
			{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "call_0", Type: "function", Function: llm.Function{Name: "search", Arguments: `{}`}}}},
			{Role: llm.RoleTool, ToolCallID: "call_0", Content: "nothing"},
		},
		Tools: []llm.Tool{{Type: "function", Function: llm.ToolFunction{Name: "search", Parameters: map[string]any{"type": "object"}}}},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Function.Name != "search" {
		t.Fatalf("tool calls not mapped: %+v", resp.ToolCalls)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 15 {
		t.Fatalf("usage not mapped: %+v", resp.Usage)
	}

	msgs := got["messages"].([]any)
	if len(msgs) != 4 {
		t.Fatalf("expected system + 3 messages, got %d", len(msgs))
	}
	tool := msgs[3].(map[string]any)
	if tool["role"] != "tool" || tool["tool_call_id"] != "call_0" {
		t.Fatalf("tool message not mapped: %+v", tool)
	}
	asst := msgs[2].(map[string]any)
	if calls, _ := asst["tool_calls"].([]any); len(calls) != 1 {
		t.Fatalf("assistant tool calls not echoed: %+v", asst)
	}
}

func TestChatMapsHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"maximum context length exceeded","type":"invalid_request_error","code":"context_length_exceeded"}}`))
	}))
	defer srv.Close()

	c, _ := NewClient(Config{APIKey: "k", BaseURL: srv.URL, Timeout: time.Second})
	_, err := c.Completion(context.Background(), "hi")
	if !llm.IsContextLengthError(err) {
		t.Fatalf("expected context length error, got %v", err)
	}
}
