package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/KamdynS/agent-contrib/llm"
	obs "github.com/KamdynS/agent-contrib/observability"
	"github.com/KamdynS/agent-contrib/tools"
)

// ErrMaxTurns is returned when the model keeps calling tools past MaxTurns.
var ErrMaxTurns = errors.New("max turns exceeded")

// Runner executes agent definitions. The zero value is ready to use.
type Runner struct {
	// Hooks run for every agent executed by this runner, after the agent's own.
	Hooks  RunHooks
	Logger *zerolog.Logger
}

// NewRunner returns a Runner with the given hooks.
func NewRunner(hooks RunHooks) *Runner { return &Runner{Hooks: hooks} }

// Run executes agent with a single user input.
func (r *Runner) Run(ctx context.Context, agent *Definition, input string) (*RunResult, error) {
	return r.RunMessages(ctx, agent, []llm.Message{llm.UserMessage(input)})
}

// RunMessages executes agent over an existing conversation. Input guardrails see
// the last user message.
func (r *Runner) RunMessages(ctx context.Context, agent *Definition, history []llm.Message) (*RunResult, error) {
	if agent == nil || agent.Model == nil {
		return nil, errors.New("agent has no model")
	}
	log := obs.LoggerOr(r.Logger, "runner").With().Str("agent", agent.Name).Logger()
	hooks := combineHooks(agent.Hooks, r.Hooks)

	span, ctx := obs.TracerImpl.StartSpan(ctx, "agent.run")
	defer span.End()
	span.SetAttribute(obs.AttrAgentName, agent.Name)
	var final string
	failed := false
	fail := func(err error) (*RunResult, error) {
		failed = true
		span.SetStatus(obs.StatusCodeError, err.Error())
		return nil, err
	}

	hooks.OnAgentStart(ctx, agent)
	// End pairs with every Start; a failed run reports no output.
	defer func() {
		if failed {
			hooks.OnAgentEnd(ctx, agent, "")
			return
		}
		hooks.OnAgentEnd(ctx, agent, final)
	}()
	result := &RunResult{Agent: agent.Name, GuardrailInfo: map[string]any{}}

	input := lastUserContent(history)
	for _, g := range agent.InputGuardrails {
		res, err := g.Check(ctx, agent, input)
		if err != nil {
			return fail(fmt.Errorf("input guardrail %s: %w", g.Name, err))
		}
		if res.Info != nil {
			result.GuardrailInfo[g.Name] = res.Info
		}
		if res.TripwireTriggered {
			log.Info().Str("guardrail", g.Name).Msg("input guardrail tripped")
			return fail(&InputGuardrailTripwireError{Guardrail: g.Name, Result: res})
		}
	}

	system := agent.Instructions
	var format *llm.ResponseFormat
	if agent.OutputSchema != nil {
		format = &llm.ResponseFormat{Type: "json_object", Name: agent.Name, JSONSchema: agent.OutputSchema}
		system = strings.TrimSpace(system + "\n\n" + schemaInstruction(agent.OutputSchema))
	}
	toolDefs := tools.Definitions(agent.Tools)

	messages := append([]llm.Message(nil), history...)
	maxTurns := agent.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	done := false
	for turn := 0; turn < maxTurns && !done; turn++ {
		result.Turns = turn + 1
		convo := messages
		for _, p := range agent.Processors {
			convo = p.Process(ctx, convo)
		}
		req := &llm.ChatRequest{
			SystemPrompt:   system,
			Messages:       convo,
			Tools:          toolDefs,
			Temperature:    agent.Temperature,
			ResponseFormat: format,
		}
		for _, mw := range agent.Middleware {
			if err := mw.BeforeLLMCall(ctx, req); err != nil {
				return fail(err)
			}
		}
		resp, err := agent.Model.Chat(ctx, req)
		if err != nil {
			return fail(fmt.Errorf("LLM call failed: %w", err))
		}
		for _, mw := range agent.Middleware {
			if err := mw.AfterLLMResponse(ctx, resp); err != nil {
				return fail(err)
			}
		}
		result.Usage.Add(resp.Usage)

		if len(resp.ToolCalls) == 0 || agent.Tools == nil {
			final = resp.Content
			messages = append(messages, llm.AssistantText(resp.Content))
			done = true
			break
		}

		messages = append(messages, resp.AssistantMessage())
		for _, tc := range resp.ToolCalls {
			out, err := r.callTool(ctx, agent, hooks, tc)
			if err != nil {
				return fail(err)
			}
			messages = append(messages, llm.Message{Role: llm.RoleTool, Content: out, ToolCallID: tc.ID, Name: tc.Function.Name})
		}
	}
	if !done {
		return fail(fmt.Errorf("agent %s: %w (%d)", agent.Name, ErrMaxTurns, maxTurns))
	}

	if agent.OutputSchema != nil {
		final = llm.ExtractJSON(final)
	}
	for _, g := range agent.OutputGuardrails {
		res, err := g.Check(ctx, agent, final)
		if err != nil {
			return fail(fmt.Errorf("output guardrail %s: %w", g.Name, err))
		}
		if res.Info != nil {
			result.GuardrailInfo[g.Name] = res.Info
		}
		if res.TripwireTriggered {
			log.Info().Str("guardrail", g.Name).Msg("output guardrail tripped")
			return fail(&OutputGuardrailTripwireError{Guardrail: g.Name, Result: res})
		}
	}

	for _, mw := range agent.Middleware {
		if err := mw.AfterRun(ctx, Message{Role: llm.RoleAssistant, Content: final}); err != nil {
			return fail(err)
		}
	}
	result.FinalOutput = final
	result.Messages = messages
	span.SetAttribute(obs.AttrTokensInput, result.Usage.InputTokens)
	span.SetAttribute(obs.AttrTokensOutput, result.Usage.OutputTokens)
	span.SetStatus(obs.StatusCodeOk, "")
	return result, nil
}

// callTool runs one requested tool. Tool failures are reported to the model as
// "error: ..." so it can recover; only middleware errors abort the run.
func (r *Runner) callTool(ctx context.Context, agent *Definition, hooks RunHooks, tc llm.ToolCall) (string, error) {
	name := tc.Function.Name
	tool, ok := agent.Tools.Get(name)
	if !ok {
		return fmt.Sprintf("error: tool %s not found", name), nil
	}
	input := tools.Input(tool, tc.Function.Arguments)

	hooks.OnToolStart(ctx, agent, name, input)
	for _, mw := range agent.Middleware {
		if err := mw.BeforeToolExecute(ctx, name, input); err != nil {
			return "", err
		}
	}
	out, execErr := agent.Tools.Execute(ctx, name, input)
	if execErr != nil {
		log := obs.LoggerOr(r.Logger, "runner")
		log.Warn().Str("agent", agent.Name).Str("tool", name).Err(execErr).Msg("tool failed")
		out = fmt.Sprintf("error: %v", execErr)
	}
	for _, mw := range agent.Middleware {
		if err := mw.AfterToolExecute(ctx, name, out, execErr); err != nil {
			return "", err
		}
	}
	hooks.OnToolEnd(ctx, agent, name, out)
	return out, nil
}

func schemaInstruction(schema map[string]any) string {
	b, err := jsonIndent(schema)
	if err != nil {
		return "Respond only with a JSON object."
	}
	return "Respond only with a JSON object that matches this JSON schema:\n" + b
}

func lastUserContent(msgs []llm.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == llm.RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}
