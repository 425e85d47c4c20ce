package core

import (
	"context"
	"fmt"

	"github.com/KamdynS/agent-contrib/llm"
	"github.com/KamdynS/agent-contrib/tools"
)

// DefaultMaxTurns bounds the tool loop when a Definition leaves MaxTurns unset.
const DefaultMaxTurns = 10

// Definition describes an agent: a named prompt bound to a model and tools.
// It holds no conversation state and is safe to share between runs.
type Definition struct {
	Name         string
	Instructions string
	Model        llm.Client
	Tools        tools.Registry
	// OutputSchema, when set, asks the model for a JSON object of this shape.
	// Use Output[T] to decode the final output.
	OutputSchema map[string]any
	Temperature  *float64

	InputGuardrails  []InputGuardrail
	OutputGuardrails []OutputGuardrail

	MaxTurns   int
	Hooks      RunHooks
	Middleware []Middleware
	Processors []Processor
}

// Clone returns a shallow copy with its own guardrail and middleware slices.
func (d *Definition) Clone() *Definition {
	cp := *d
	cp.InputGuardrails = append([]InputGuardrail(nil), d.InputGuardrails...)
	cp.OutputGuardrails = append([]OutputGuardrail(nil), d.OutputGuardrails...)
	cp.Middleware = append([]Middleware(nil), d.Middleware...)
	cp.Processors = append([]Processor(nil), d.Processors...)
	return &cp
}

// GuardrailResult is what a guardrail check reports.
type GuardrailResult struct {
	TripwireTriggered bool
	// Info carries the guardrail's own findings, e.g. a validation struct.
	Info any
	// Message is a user facing explanation when the tripwire fires.
	Message string
}

// InputGuardrail checks the user input before the first model call.
type InputGuardrail struct {
	Name  string
	Check func(ctx context.Context, agent *Definition, input string) (GuardrailResult, error)
}

// OutputGuardrail checks the final output before it is returned.
type OutputGuardrail struct {
	Name  string
	Check func(ctx context.Context, agent *Definition, output string) (GuardrailResult, error)
}

// InputGuardrailTripwireError is returned when an input guardrail trips.
type InputGuardrailTripwireError struct {
	Guardrail string
	Result    GuardrailResult
}

func (e *InputGuardrailTripwireError) Error() string {
	if e.Result.Message != "" {
		return fmt.Sprintf("input guardrail %s triggered: %s", e.Guardrail, e.Result.Message)
	}
	return fmt.Sprintf("input guardrail %s triggered", e.Guardrail)
}

// OutputGuardrailTripwireError is returned when an output guardrail trips.
type OutputGuardrailTripwireError struct {
	Guardrail string
	Result    GuardrailResult
}

func (e *OutputGuardrailTripwireError) Error() string {
	if e.Result.Message != "" {
		return fmt.Sprintf("output guardrail %s triggered: %s", e.Guardrail, e.Result.Message)
	}
	return fmt.Sprintf("output guardrail %s triggered", e.Guardrail)
}

// RunResult is the outcome of Runner.Run.
type RunResult struct {
	Agent       string
	FinalOutput string
	// Messages is the full conversation including tool traffic, without the
	// system prompt.
	Messages      []llm.Message
	Usage         llm.Usage
	Turns         int
	GuardrailInfo map[string]any
}

// Output decodes a run's final output into T and validates it.
func Output[T any](res *RunResult) (T, error) {
	var zero T
	if res == nil {
		return zero, fmt.Errorf("nil run result")
	}
	parsed, err := llm.ParseStructured[T](res.FinalOutput)
	if err != nil {
		return zero, fmt.Errorf("%s output: %w", res.Agent, err)
	}
	return parsed.Data, nil
}
