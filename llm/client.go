package llm

import (
	"context"
	"time"
)

// Message represents a message in a conversation with an LLM
type Message struct {
	Role       string     `json:"role"`                   // "system", "user", "assistant", "tool"
	Content    string     `json:"content"`                // Message content
	Name       string     `json:"name,omitempty"`         // Optional name for the message
	ToolCallID string     `json:"tool_call_id,omitempty"` // For tool response messages
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // Calls requested by an assistant turn
}

// Role constants used across the runtime.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Response represents the response from an LLM
type Response struct {
	Content      string            `json:"content"`
	Role         string            `json:"role,omitempty"`
	Model        string            `json:"model"`
	Provider     Provider          `json:"provider"`
	Usage        *Usage            `json:"usage,omitempty"`
	FinishReason string            `json:"finish_reason,omitempty"` // "stop", "length", "tool_calls", etc.
	ToolCalls    []ToolCall        `json:"tool_calls,omitempty"`
	Meta         map[string]string `json:"meta,omitempty"`
	Latency      time.Duration     `json:"latency,omitempty"`
	Timestamp    time.Time         `json:"timestamp,omitempty"`
}

// AssistantMessage converts the response into the assistant turn that produced it,
// keeping any tool calls so they can be echoed back to the provider.
func (r *Response) AssistantMessage() Message {
	return Message{Role: RoleAssistant, Content: r.Content, ToolCalls: r.ToolCalls}
}

// ToolCall represents a tool/function call from the LLM
type ToolCall struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"` // "function"
	Function Function `json:"function"`
}

// Function represents a function call
type Function struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string
}

// Client defines the interface for interacting with Large Language Models
type Client interface {
	// Chat sends a conversation to the LLM and returns a response
	Chat(ctx context.Context, req *ChatRequest) (*Response, error)

	// Completion sends a single prompt to the LLM and returns a response
	Completion(ctx context.Context, prompt string) (*Response, error)

	// Stream enables streaming responses (if supported by the provider)
	Stream(ctx context.Context, req *ChatRequest, output chan<- *Response) error

	// Model returns the model identifier
	Model() string

	// Provider returns the provider name
	Provider() Provider

	// Validate checks if the client configuration is valid
	Validate() error
}

// ChatRequest represents a chat completion request
type ChatRequest struct {
	Messages         []Message       `json:"messages"`
	Model            string          `json:"model,omitempty"`
	SystemPrompt     string          `json:"system_prompt,omitempty"`
	Temperature      *float64        `json:"temperature,omitempty"`
	MaxTokens        *int            `json:"max_tokens,omitempty"`
	TopP             *float64        `json:"top_p,omitempty"`
	FrequencyPenalty *float64        `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64        `json:"presence_penalty,omitempty"`
	Stop             []string        `json:"stop,omitempty"`
	Tools            []Tool          `json:"tools,omitempty"`
	ToolChoice       interface{}     `json:"tool_choice,omitempty"` // "auto", "none", "required" or a tool name
	ResponseFormat   *ResponseFormat `json:"response_format,omitempty"`
	Seed             *int            `json:"seed,omitempty"`
	User             string          `json:"user,omitempty"`
	Meta             map[string]any  `json:"meta,omitempty"` // Provider-specific options
}

// Tool represents a tool/function that the LLM can call
type Tool struct {
	Type     string       `json:"type"` // "function"
	Function ToolFunction `json:"function"`
}

// ToolFunction represents a function definition
type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// ResponseFormat specifies the format of the response
type ResponseFormat struct {
	Type       string         `json:"type"` // "text", "json_object" or "json_schema"
	Name       string         `json:"name,omitempty"`
	JSONSchema map[string]any `json:"json_schema,omitempty"`
}

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxRetries      int           `json:"max_retries" mapstructure:"max_retries"`
	InitialDelay    time.Duration `json:"initial_delay" mapstructure:"initial_delay"`
	MaxDelay        time.Duration `json:"max_delay" mapstructure:"max_delay"`
	BackoffFactor   float64       `json:"backoff_factor" mapstructure:"backoff_factor"`
	RetryableErrors []string      `json:"retryable_errors" mapstructure:"retryable_errors"`
}

// DefaultRetryConfig returns sensible defaults for retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  1 * time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		RetryableErrors: []string{
			"rate_limit_exceeded",
			"server_error",
			"timeout",
			"connection_error",
		},
	}
}

// Config holds common configuration options for LLM clients
type Config struct {
	Provider     Provider          `json:"provider" mapstructure:"provider" validate:"omitempty,oneof=openai anthropic openrouter azure ollama"`
	APIKey       string            `json:"api_key" mapstructure:"api_key"`
	Model        string            `json:"model" mapstructure:"model"`
	BaseURL      string            `json:"base_url,omitempty" mapstructure:"base_url"`
	Temperature  float64           `json:"temperature,omitempty" mapstructure:"temperature"`
	MaxTokens    int               `json:"max_tokens,omitempty" mapstructure:"max_tokens"`
	Timeout      time.Duration     `json:"timeout,omitempty" mapstructure:"timeout"`
	RetryConfig  RetryConfig       `json:"retry_config,omitempty" mapstructure:"retry"`
	Debug        bool              `json:"debug,omitempty" mapstructure:"debug"`
	ExtraHeaders map[string]string `json:"extra_headers,omitempty" mapstructure:"extra_headers"`
}

// SystemMessage, UserMessage and AssistantText are small constructors used by callers
// that assemble conversations by hand.
func SystemMessage(content string) Message { return Message{Role: RoleSystem, Content: content} }

func UserMessage(content string) Message { return Message{Role: RoleUser, Content: content} }

func AssistantText(content string) Message { return Message{Role: RoleAssistant, Content: content} }

// Float and Int return pointers for optional request fields.
func Float(v float64) *float64 { return &v }

func Int(v int) *int { return &v }
