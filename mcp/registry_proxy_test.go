package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/KamdynS/agent-contrib/agent/core"
	"github.com/KamdynS/agent-contrib/llm"
	"github.com/KamdynS/agent-contrib/llm/llmtest"
	"github.com/KamdynS/agent-contrib/tools"
)

func TestRegisterAllTools_BridgeNextToLocalTools(t *testing.T) {
	b := &bridge{tools: []ToolInfo{{Name: "weather", Description: "Current weather", Schema: map[string]any{
		"type":       "object",
		"properties": map[string]any{"city": map[string]any{"type": "string"}},
	}}}}
	srv := httptest.NewServer(b)
	defer srv.Close()

	reg := tools.NewRegistry(&tools.CalculatorTool{})
	if err := RegisterAllTools(context.Background(), reg, NewClient(ClientConfig{BaseURL: srv.URL})); err != nil {
		t.Fatalf("register: %v", err)
	}

	model := llmtest.New(
		llmtest.ToolCall("c1", "weather", `{"city":"Oslo"}`),
		llmtest.ToolCall("c2", "calculator", `{"input":"2 * 21"}`),
		llmtest.Text("Oslo is mild and the answer is 42"),
	)
	agent := &core.Definition{Name: "chat", Model: model, Tools: reg}
	res, err := (&core.Runner{}).Run(context.Background(), agent, "weather in Oslo, and 2*21?")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.FinalOutput != "Oslo is mild and the answer is 42" {
		t.Fatalf("final %q", res.FinalOutput)
	}
	if n := len(model.Requests()[0].Tools); n != 2 {
		t.Fatalf("model offered %d tools, want 2", n)
	}
	if _, inputs := b.seen(); len(inputs) != 1 || inputs[0] != `{"city":"Oslo"}` {
		t.Fatalf("bridge got %v, want the raw JSON arguments", inputs)
	}
	msgs := model.Requests()[2].Messages
	if msgs[2].Role != llm.RoleTool || msgs[2].Content != `weather <- {"city":"Oslo"}` {
		t.Fatalf("bridge result not fed back: %+v", msgs[2])
	}
}

func TestRegisterAllTools_NameClash(t *testing.T) {
	srv := httptest.NewServer(&bridge{tools: []ToolInfo{{Name: "calculator"}}})
	defer srv.Close()

	reg := tools.NewRegistry(&tools.CalculatorTool{})
	err := RegisterAllTools(context.Background(), reg, NewClient(ClientConfig{BaseURL: srv.URL}))
	if err == nil || !strings.Contains(err.Error(), "already registered") {
		t.Fatalf("expected clash, got %v", err)
	}
}

func TestRegisterAllToolsNil(t *testing.T) {
	if err := RegisterAllTools(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil args")
	}
}

func TestProxyExecuteErrorReachesModel(t *testing.T) {
	b := &bridge{tools: []ToolInfo{{Name: "weather"}}}
	srv := httptest.NewServer(b)
	defer srv.Close()
	reg := tools.NewRegistry()
	if err := RegisterAllTools(context.Background(), reg, NewClient(ClientConfig{BaseURL: srv.URL})); err != nil {
		t.Fatalf("register: %v", err)
	}
	b.fail(http.StatusServiceUnavailable)

	if _, err := reg.Execute(context.Background(), "weather", "{}"); err == nil || !strings.HasPrefix(err.Error(), "mcp weather: ") {
		t.Fatalf("expected wrapped error, got %v", err)
	}

	model := llmtest.New(llmtest.ToolCall("c1", "weather", `{}`), llmtest.Text("sorry"))
	if _, err := (&core.Runner{}).Run(context.Background(), &core.Definition{Name: "chat", Model: model, Tools: reg}, "weather?"); err != nil {
		t.Fatalf("tool failure should not abort the run: %v", err)
	}
	msgs := model.Requests()[1].Messages
	if got := msgs[len(msgs)-1].Content; !strings.HasPrefix(got, "error: mcp weather: ") {
		t.Fatalf("model saw %q", got)
	}
}
