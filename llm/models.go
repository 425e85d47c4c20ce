package llm

import (
	"fmt"
	"sort"
	"strings"
)

// Provider represents LLM providers
type Provider string

const (
	ProviderOpenAI     Provider = "openai"
	ProviderAnthropic  Provider = "anthropic"
	ProviderOpenRouter Provider = "openrouter"
	ProviderAzure      Provider = "azure"
	ProviderOllama     Provider = "ollama"
)

// OpenCatalogue reports whether the provider serves models outside the built in
// catalogue. OpenRouter and Ollama host arbitrary models and Azure addresses
// deployments by a user chosen name.
func (p Provider) OpenCatalogue() bool {
	switch p {
	case ProviderOpenRouter, ProviderAzure, ProviderOllama:
		return true
	}
	return false
}

// Model represents an LLM model with its properties
type Model struct {
	Provider     Provider     `json:"provider"`
	Name         string       `json:"name"`
	DisplayName  string       `json:"display_name"`
	ContextSize  int          `json:"context_size"`
	InputCost    float64      `json:"input_cost"`  // USD per 1M input tokens
	OutputCost   float64      `json:"output_cost"` // USD per 1M output tokens
	Capabilities Capabilities `json:"capabilities"`
}

// Capabilities represents what a model can do
type Capabilities struct {
	ToolUse   bool `json:"tool_use"`
	JSON      bool `json:"json"`
	Vision    bool `json:"vision"`
	Streaming bool `json:"streaming"`
}

const (
	ModelGPT4o         = "gpt-4o"
	ModelGPT4oMini     = "gpt-4o-mini"
	ModelGPT41Mini     = "gpt-4.1-mini"
	ModelClaude35Haiku = "claude-3-5-haiku-20241022"
	ModelClaudeSonnet4 = "claude-sonnet-4-20250514"
	ModelMimoFlash     = "xiaomi/mimo-v2-flash:free"
	ModelLlama32       = "llama3.2"
	ModelEmbedSmall    = "text-embedding-3-small"
)

var all = Capabilities{ToolUse: true, JSON: true, Vision: true, Streaming: true}

// AvailableModels is the catalogue used for validation and cost estimates.
var AvailableModels = map[string]Model{
	ModelGPT4o:         {ProviderOpenAI, ModelGPT4o, "GPT-4o", 128000, 2.5, 10.0, all},
	ModelGPT4oMini:     {ProviderOpenAI, ModelGPT4oMini, "GPT-4o Mini", 128000, 0.15, 0.60, all},
	ModelGPT41Mini:     {ProviderOpenAI, ModelGPT41Mini, "GPT-4.1 Mini", 1047576, 0.40, 1.60, all},
	ModelClaude35Haiku: {ProviderAnthropic, ModelClaude35Haiku, "Claude 3.5 Haiku", 200000, 0.80, 4.0, all},
	ModelClaudeSonnet4: {ProviderAnthropic, ModelClaudeSonnet4, "Claude Sonnet 4", 200000, 3.0, 15.0, all},
	ModelMimoFlash: {ProviderOpenRouter, ModelMimoFlash, "MiMo V2 Flash (free)", 262144, 0, 0,
		Capabilities{ToolUse: true, JSON: true, Streaming: true}},
	ModelLlama32: {ProviderOllama, ModelLlama32, "Llama 3.2 (local)", 131072, 0, 0,
		Capabilities{ToolUse: true, JSON: true, Streaming: true}},
}

// DefaultModel returns the model used when a provider is configured without one.
func DefaultModel(p Provider) string {
	switch p {
	case ProviderAnthropic:
		return ModelClaude35Haiku
	case ProviderOpenRouter:
		return ModelMimoFlash
	case ProviderOllama:
		return ModelLlama32
	default:
		return ModelGPT4oMini
	}
}

// GetModel returns catalogue metadata for name.
func GetModel(name string) (Model, error) {
	m, ok := AvailableModels[name]
	if !ok {
		return Model{}, fmt.Errorf("unknown model: %s", name)
	}
	return m, nil
}

// GetModelsByProvider lists catalogue entries for a provider sorted by name.
func GetModelsByProvider(p Provider) []Model {
	var out []Model
	for _, m := range AvailableModels {
		if m.Provider == p {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ValidateModel checks that name can be served by provider.
func ValidateModel(p Provider, name string) error {
	if strings.TrimSpace(name) == "" {
		return NewLLMError(p, ErrorTypeInvalidModel, "model name is required")
	}
	if p.OpenCatalogue() {
		return nil
	}
	m, ok := AvailableModels[name]
	if !ok {
		return NewLLMError(p, ErrorTypeInvalidModel, fmt.Sprintf("unsupported model %q", name))
	}
	// Azure deployments are reachable through the OpenAI client too.
	if m.Provider != p {
		return NewLLMError(p, ErrorTypeInvalidModel, fmt.Sprintf("model %q belongs to %s", name, m.Provider))
	}
	return nil
}

// ContextSize returns the context window for name, or fallback when unknown.
func ContextSize(name string, fallback int) int {
	if m, ok := AvailableModels[name]; ok {
		return m.ContextSize
	}
	return fallback
}

func (m Model) String() string { return fmt.Sprintf("%s (%s)", m.DisplayName, m.Provider) }

// EstimateCost returns the USD cost for the given token counts.
func (m Model) EstimateCost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1e6*m.InputCost + float64(outputTokens)/1e6*m.OutputCost
}
