package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/KamdynS/agent-contrib/llm"
)

// Func is a typed tool. Its schema is reflected from In and the model's JSON
// arguments are decoded and validated into In before fn runs. The result is
// returned as is when it is a string and JSON encoded otherwise.
type Func[In any, Out any] struct {
	name string
	desc string
	fn   func(ctx context.Context, in In) (Out, error)
}

// NewFunc builds a typed tool.
func NewFunc[In any, Out any](name, description string, fn func(ctx context.Context, in In) (Out, error)) *Func[In, Out] {
	return &Func[In, Out]{name: name, desc: description, fn: fn}
}

func (f *Func[In, Out]) Name() string                   { return f.name }
func (f *Func[In, Out]) Description() string            { return f.desc }
func (f *Func[In, Out]) Schema() map[string]interface{} { return llm.SchemaFor[In]() }
func (f *Func[In, Out]) TakesJSON() bool                { return true }

func (f *Func[In, Out]) Execute(ctx context.Context, input string) (string, error) {
	var in In
	if input != "" {
		if err := json.Unmarshal([]byte(llm.ExtractJSON(input)), &in); err != nil {
			return "", fmt.Errorf("%s: invalid arguments: %w", f.name, err)
		}
	}
	if err := llm.ValidateStruct(in); err != nil {
		return "", fmt.Errorf("%s: %w", f.name, err)
	}
	out, err := f.fn(ctx, in)
	if err != nil {
		return "", err
	}
	if s, ok := any(out).(string); ok {
		return s, nil
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("%s: encode result: %w", f.name, err)
	}
	return string(b), nil
}

var _ JSONTool = (*Func[struct{}, string])(nil)
