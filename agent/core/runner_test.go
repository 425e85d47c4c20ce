package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/KamdynS/agent-contrib/llm"
	"github.com/KamdynS/agent-contrib/llm/llmtest"
	"github.com/KamdynS/agent-contrib/tools"
)

type echoTool struct{}

func (echoTool) Name() string                                              { return "echo" }
func (echoTool) Description() string                                       { return "echo" }
func (echoTool) Execute(ctx context.Context, input string) (string, error) { return "E:" + input, nil }
func (echoTool) Schema() map[string]interface{}                            { return tools.InputSchema("") }

type failTool struct{}

func (failTool) Name() string                   { return "fail" }
func (failTool) Description() string            { return "always fails" }
func (failTool) Schema() map[string]interface{} { return tools.InputSchema("") }
func (failTool) Execute(ctx context.Context, input string) (string, error) {
	return "", errors.New("backend down")
}

type recordingHooks struct{ events []string }

func (h *recordingHooks) OnAgentStart(ctx context.Context, a *Definition) {
	h.events = append(h.events, "start:"+a.Name)
}
func (h *recordingHooks) OnAgentEnd(ctx context.Context, a *Definition, out string) {
	h.events = append(h.events, "end:"+out)
}
func (h *recordingHooks) OnToolStart(ctx context.Context, a *Definition, tool, input string) {
	h.events = append(h.events, "tool:"+tool+":"+input)
}
func (h *recordingHooks) OnToolEnd(ctx context.Context, a *Definition, tool, result string) {
	h.events = append(h.events, "done:"+result)
}

func TestRunnerToolLoop(t *testing.T) {
	model := llmtest.New(
		llmtest.ToolCall("c1", "echo", `{"input":"ok"}`),
		llmtest.ToolCall("c2", "fail", `{"input":"x"}`),
		llmtest.Text("done"),
	)
	hooks := &recordingHooks{}
	agent := &Definition{
		Name:         "worker",
		Instructions: "sys",
		Model:        model,
		Tools:        tools.NewRegistry(echoTool{}, failTool{}),
		Hooks:        hooks,
	}
	res, err := (&Runner{}).Run(context.Background(), agent, "hi")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.FinalOutput != "done" || res.Turns != 3 {
		t.Fatalf("unexpected result: %+v", res)
	}

	reqs := model.Requests()
	if reqs[0].SystemPrompt != "sys" || len(reqs[0].Tools) != 2 {
		t.Fatalf("first request malformed: %+v", reqs[0])
	}
	last := reqs[2].Messages
	if last[2].Role != llm.RoleTool || last[2].Content != "E:ok" || last[2].ToolCallID != "c1" {
		t.Fatalf("tool result not fed back: %+v", last[2])
	}
	if last[4].Content != "error: backend down" {
		t.Fatalf("tool error not reported to model: %+v", last[4])
	}
	want := "start:worker,tool:echo:ok,done:E:ok,tool:fail:x,done:error: backend down,end:done"
	if got := strings.Join(hooks.events, ","); got != want {
		t.Fatalf("hooks = %s", got)
	}
}

func TestRunnerUnknownToolAndMaxTurns(t *testing.T) {
	model := llmtest.New()
	model.Fallback = llmtest.ToolCall("c", "nope", `{}`)
	agent := &Definition{Name: "loop", Model: model, Tools: tools.NewRegistry(echoTool{}), MaxTurns: 2}
	_, err := (&Runner{}).Run(context.Background(), agent, "go")
	if !errors.Is(err, ErrMaxTurns) {
		t.Fatalf("expected ErrMaxTurns, got %v", err)
	}
	msgs := model.Requests()[1].Messages
	if msgs[len(msgs)-1].Content != "error: tool nope not found" {
		t.Fatalf("missing tool not reported: %+v", msgs)
	}
}

func TestRunnerGuardrailTripwires(t *testing.T) {
	blockInput := InputGuardrail{Name: "topic", Check: func(ctx context.Context, a *Definition, in string) (GuardrailResult, error) {
		return GuardrailResult{TripwireTriggered: strings.Contains(in, "forbidden"), Message: "off topic"}, nil
	}}
	blockOutput := OutputGuardrail{Name: "length", Check: func(ctx context.Context, a *Definition, out string) (GuardrailResult, error) {
		return GuardrailResult{TripwireTriggered: len(out) > 5, Info: len(out)}, nil
	}}

	model := llmtest.New(llmtest.Text("way too long"))
	agent := &Definition{Name: "g", Model: model, InputGuardrails: []InputGuardrail{blockInput}, OutputGuardrails: []OutputGuardrail{blockOutput}}

	_, err := (&Runner{}).Run(context.Background(), agent, "forbidden words")
	var in *InputGuardrailTripwireError
	if !errors.As(err, &in) || in.Guardrail != "topic" || !strings.Contains(err.Error(), "off topic") {
		t.Fatalf("expected input tripwire, got %v", err)
	}
	if len(model.Requests()) != 0 {
		t.Fatalf("model should not be called after input tripwire")
	}

	_, err = (&Runner{}).Run(context.Background(), agent, "fine")
	var out *OutputGuardrailTripwireError
	if !errors.As(err, &out) || out.Result.Info != 12 {
		t.Fatalf("expected output tripwire, got %v", err)
	}
}

func TestRunnerEndHookFiresOnFailure(t *testing.T) {
	cases := []struct {
		name  string
		agent func(h RunHooks) *Definition
	}{
		{"llm error", func(h RunHooks) *Definition {
			return &Definition{Name: "a", Model: llmtest.New().PushError(errors.New("boom")), Hooks: h}
		}},
		{"input tripwire", func(h RunHooks) *Definition {
			g := InputGuardrail{Name: "all", Check: func(ctx context.Context, a *Definition, in string) (GuardrailResult, error) {
				return GuardrailResult{TripwireTriggered: true}, nil
			}}
			return &Definition{Name: "a", Model: llmtest.New(), Hooks: h, InputGuardrails: []InputGuardrail{g}}
		}},
		{"max turns", func(h RunHooks) *Definition {
			m := llmtest.New()
			m.Fallback = llmtest.ToolCall("c", "echo", `{"input":"x"}`)
			return &Definition{Name: "a", Model: m, Hooks: h, Tools: tools.NewRegistry(echoTool{}), MaxTurns: 1}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hooks := &recordingHooks{}
			if _, err := (&Runner{}).Run(context.Background(), tc.agent(hooks), "hi"); err == nil {
				t.Fatal("expected error")
			}
			if len(hooks.events) < 2 || hooks.events[0] != "start:a" || hooks.events[len(hooks.events)-1] != "end:" {
				t.Fatalf("hooks = %v", hooks.events)
			}
		})
	}
}

type verdict struct {
	Score int    `json:"score" validate:"min=1,max=10"`
	Note  string `json:"note"`
}

func TestRunnerOutputSchema(t *testing.T) {
	model := llmtest.New(llmtest.Text("Here you go:\n```json\n{\"score\": 7, \"note\": \"solid\"}\n```"))
	agent := &Definition{Name: "judge", Model: model, OutputSchema: llm.SchemaFor[verdict]()}
	res, err := (&Runner{}).Run(context.Background(), agent, "rate it")
	if err != nil {
		t.Fatal(err)
	}
	v, err := Output[verdict](res)
	if err != nil || v.Score != 7 {
		t.Fatalf("decode: %v %+v", err, v)
	}
	req := model.Requests()[0]
	if req.ResponseFormat == nil || !strings.Contains(req.SystemPrompt, "JSON schema") {
		t.Fatalf("schema not requested: %+v", req)
	}
}

func TestRunnerNoModel(t *testing.T) {
	if _, err := (&Runner{}).Run(context.Background(), &Definition{Name: "x"}, "hi"); err == nil {
		t.Fatal("expected error without model")
	}
}
