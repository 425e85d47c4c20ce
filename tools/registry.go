package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/KamdynS/agent-contrib/llm"
	obs "github.com/KamdynS/agent-contrib/observability"
)

// Tool defines the interface for agent tools
type Tool interface {
	// Name returns the tool's name for identification
	Name() string

	// Description returns a human-readable description of what the tool does
	Description() string

	// Execute runs the tool with the given input and returns the result
	Execute(ctx context.Context, input string) (string, error)

	// Schema returns the JSON schema for the tool's input
	Schema() map[string]interface{}
}

// JSONTool is implemented by tools that want the model's raw JSON arguments
// instead of the unwrapped "input" string.
type JSONTool interface {
	Tool
	TakesJSON() bool
}

// Registry manages a collection of tools available to agents
type Registry interface {
	Register(tool Tool) error
	Get(name string) (Tool, bool)
	// List returns tool names in sorted order.
	List() []string
	Execute(ctx context.Context, name string, input string) (string, error)
}

// DefaultRegistry is an in-memory, instrumented tool registry
type DefaultRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a registry holding the given tools. Duplicate names panic
// since they are programming errors.
func NewRegistry(tools ...Tool) *DefaultRegistry {
	r := &DefaultRegistry{tools: make(map[string]Tool)}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}
	return r
}

// Register implements Registry interface
func (r *DefaultRegistry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = tool
	return nil
}

// Get implements Registry interface
func (r *DefaultRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, exists := r.tools[name]
	return tool, exists
}

// List implements Registry interface
func (r *DefaultRegistry) List() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Execute implements Registry interface
func (r *DefaultRegistry) Execute(ctx context.Context, name string, input string) (string, error) {
	tool, exists := r.Get(name)
	if !exists {
		return "", fmt.Errorf("tool %s not found", name)
	}

	start := time.Now()
	span, ctx := obs.TracerImpl.StartSpan(ctx, "tool.execute")
	span.SetAttribute(obs.AttrToolName, name)
	defer span.End()

	result, err := tool.Execute(ctx, input)
	labels := map[string]string{"tool_name": name}
	obs.MetricsImpl.RecordLatency(time.Since(start), labels)
	if err != nil {
		obs.MetricsImpl.RecordError("tool_error", labels)
		span.SetStatus(obs.StatusCodeError, err.Error())
		return "", err
	}
	span.SetStatus(obs.StatusCodeOk, "")
	return result, nil
}

// Definitions renders the registry as provider tool definitions in List order.
func Definitions(r Registry) []llm.Tool {
	if r == nil {
		return nil
	}
	var defs []llm.Tool
	for _, name := range r.List() {
		t, ok := r.Get(name)
		if !ok {
			continue
		}
		defs = append(defs, llm.Tool{
			Type: "function",
			Function: llm.ToolFunction{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Schema(),
			},
		})
	}
	return defs
}

// Input converts model supplied arguments into the string handed to t.Execute.
// JSON tools get the arguments untouched. Other tools get the "input" field
// when the arguments are an object carrying one, otherwise the raw text.
func Input(t Tool, arguments string) string {
	if jt, ok := t.(JSONTool); ok && jt.TakesJSON() {
		return arguments
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(arguments), &obj); err == nil {
		if v, ok := obj["input"].(string); ok {
			return v
		}
	}
	return arguments
}

// InputSchema is the schema shared by tools that take a single string.
func InputSchema(description string) map[string]interface{} {
	prop := map[string]interface{}{"type": "string"}
	if description != "" {
		prop["description"] = description
	}
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"input": prop},
		"required":   []string{"input"},
	}
}
