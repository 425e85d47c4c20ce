// Package anthropic adapts Claude's Messages API to llm.Client.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/KamdynS/agent-contrib/llm"
	"github.com/liushuangls/go-anthropic/v2"
)

// Client implements the llm.Client interface for Anthropic Claude
type Client struct {
	client  *anthropic.Client
	config  Config
	retrier *llm.Retrier
}

// Config holds Anthropic-specific configuration
type Config struct {
	APIKey      string          `json:"api_key"`
	Model       string          `json:"model"`
	BaseURL     string          `json:"base_url,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Timeout     time.Duration   `json:"timeout,omitempty"`
	RetryConfig llm.RetryConfig `json:"retry_config,omitempty"`
	Debug       bool            `json:"debug,omitempty"`
}

// FromConfig converts the shared llm.Config into an Anthropic client config.
func FromConfig(c llm.Config) Config {
	return Config{
		APIKey:      c.APIKey,
		Model:       c.Model,
		BaseURL:     c.BaseURL,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		Timeout:     c.Timeout,
		RetryConfig: c.RetryConfig,
		Debug:       c.Debug,
	}
}

// NewClient creates a new Anthropic client
func NewClient(config Config) (*Client, error) {
	if config.Model == "" {
		config.Model = llm.DefaultModel(llm.ProviderAnthropic)
	}
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config.Temperature == 0 {
		config.Temperature = 0.7
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 1024
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.RetryConfig.MaxRetries == 0 {
		config.RetryConfig = llm.DefaultRetryConfig()
	}

	opts := []anthropic.ClientOption{
		anthropic.WithHTTPClient(&http.Client{Timeout: config.Timeout}),
	}
	if config.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(config.BaseURL))
	}

	return &Client{
		client:  anthropic.NewClient(config.APIKey, opts...),
		config:  config,
		retrier: llm.NewRetrier(config.RetryConfig),
	}, nil
}

func validateConfig(config Config) error {
	if config.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if err := llm.ValidateModel(llm.ProviderAnthropic, config.Model); err != nil {
		return fmt.Errorf("invalid model: %w", err)
	}
	if config.Temperature < 0 || config.Temperature > 1 {
		return fmt.Errorf("temperature must be between 0 and 1")
	}
	if config.MaxTokens < 0 {
		return fmt.Errorf("max_tokens must be non-negative")
	}
	return nil
}

// Chat implements llm.Client interface
func (c *Client) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.Response, error) {
	start := time.Now()
	result, err := llm.Execute(c.retrier, ctx, func(ctx context.Context, attempt int) (*llm.Response, error) {
		return c.chat(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	result.Latency = time.Since(start)
	result.Timestamp = start
	return result, nil
}

// convertMessages splits system text out of the conversation and folds tool
// traffic into content blocks. Consecutive tool results share one user turn,
// which is what the Messages API expects after a multi tool assistant turn.
func convertMessages(req *llm.ChatRequest) (string, []anthropic.Message) {
	system := req.SystemPrompt
	var messages []anthropic.Message
	for _, msg := range req.Messages {
		switch msg.Role {
		case llm.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += msg.Content
		case llm.RoleAssistant:
			var blocks []anthropic.MessageContent
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextMessageContent(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				args := tc.Function.Arguments
				if args == "" {
					args = "{}"
				}
				blocks = append(blocks, anthropic.NewToolUseMessageContent(tc.ID, tc.Function.Name, json.RawMessage(args)))
			}
			messages = append(messages, anthropic.Message{Role: anthropic.RoleAssistant, Content: blocks})
		case llm.RoleTool:
			block := anthropic.NewToolResultMessageContent(msg.ToolCallID, msg.Content, false)
			if n := len(messages); n > 0 && messages[n-1].Role == anthropic.RoleUser && isToolResults(messages[n-1]) {
				messages[n-1].Content = append(messages[n-1].Content, block)
				continue
			}
			messages = append(messages, anthropic.Message{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{block}})
		default:
			messages = append(messages, anthropic.NewUserTextMessage(msg.Content))
		}
	}
	return system, messages
}

func isToolResults(m anthropic.Message) bool {
	for _, b := range m.Content {
		if b.Type != anthropic.MessagesContentTypeToolResult {
			return false
		}
	}
	return len(m.Content) > 0
}

func (c *Client) buildRequest(req *llm.ChatRequest) anthropic.MessagesRequest {
	system, messages := convertMessages(req)
	model := c.config.Model
	if req.Model != "" {
		model = req.Model
	}
	if req.ResponseFormat != nil && req.ResponseFormat.Type != "text" {
		if system != "" {
			system += "\n\n"
		}
		system += "Respond with a single JSON object and nothing else."
	}

	temp := float32(c.config.Temperature)
	if req.Temperature != nil {
		temp = float32(*req.Temperature)
	}
	out := anthropic.MessagesRequest{
		Model:         anthropic.Model(model),
		System:        system,
		Messages:      messages,
		MaxTokens:     c.config.MaxTokens,
		Temperature:   &temp,
		StopSequences: req.Stop,
	}
	if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	}
	if req.TopP != nil {
		p := float32(*req.TopP)
		out.TopP = &p
	}
	for _, t := range req.Tools {
		schema := t.Function.Parameters
		if schema == nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out.Tools = append(out.Tools, anthropic.ToolDefinition{
			Name:        t.Function.Name,
			Description: t.Function.Description,
			InputSchema: schema,
		})
	}
	return out
}

func (c *Client) chat(ctx context.Context, req *llm.ChatRequest) (*llm.Response, error) {
	anthReq := c.buildRequest(req)
	resp, err := c.client.CreateMessages(ctx, anthReq)
	if err != nil {
		return nil, c.convertError(err)
	}
	if len(resp.Content) == 0 {
		return nil, llm.NewLLMError(llm.ProviderAnthropic, llm.ErrorTypeUnknown, "no content returned")
	}

	var content strings.Builder
	var toolCalls []llm.ToolCall
	for _, block := range resp.Content {
		switch block.Type {
		case anthropic.MessagesContentTypeText:
			content.WriteString(block.GetText())
		case anthropic.MessagesContentTypeToolUse:
			if block.MessageContentToolUse == nil {
				continue
			}
			toolCalls = append(toolCalls, llm.ToolCall{
				ID:       block.MessageContentToolUse.ID,
				Type:     "function",
				Function: llm.Function{Name: block.MessageContentToolUse.Name, Arguments: string(block.MessageContentToolUse.Input)},
			})
		}
	}

	model := string(anthReq.Model)
	var usage *llm.Usage
	if resp.Usage.OutputTokens > 0 {
		modelInfo, _ := llm.GetModel(model)
		usage = &llm.Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
			Cost:         modelInfo.EstimateCost(resp.Usage.InputTokens, resp.Usage.OutputTokens),
		}
	}

	finish := string(resp.StopReason)
	if len(toolCalls) > 0 {
		finish = "tool_calls"
	}
	return &llm.Response{
		Content:      content.String(),
		Role:         llm.RoleAssistant,
		Model:        model,
		Provider:     llm.ProviderAnthropic,
		Usage:        usage,
		FinishReason: finish,
		ToolCalls:    toolCalls,
		Meta:         map[string]string{"id": resp.ID},
	}, nil
}

// Completion implements llm.Client interface
func (c *Client) Completion(ctx context.Context, prompt string) (*llm.Response, error) {
	return c.Chat(ctx, &llm.ChatRequest{Messages: []llm.Message{llm.UserMessage(prompt)}})
}

// Stream implements llm.Client interface. Text deltas are forwarded as they
// arrive; tool use is only reported by Chat.
func (c *Client) Stream(ctx context.Context, req *llm.ChatRequest, output chan<- *llm.Response) error {
	defer close(output)

	base := c.buildRequest(req)
	model := string(base.Model)
	start := time.Now()
	streamReq := anthropic.MessagesStreamRequest{
		MessagesRequest: base,
		OnContentBlockDelta: func(data anthropic.MessagesEventContentBlockDeltaData) {
			if data.Delta.Text == nil || *data.Delta.Text == "" {
				return
			}
			resp := &llm.Response{
				Content:   *data.Delta.Text,
				Role:      llm.RoleAssistant,
				Model:     model,
				Provider:  llm.ProviderAnthropic,
				Latency:   time.Since(start),
				Timestamp: start,
				Meta:      map[string]string{"streaming": "true"},
			}
			select {
			case output <- resp:
			case <-ctx.Done():
			}
		},
	}
	if _, err := c.client.CreateMessagesStream(ctx, streamReq); err != nil {
		return c.convertError(err)
	}
	return ctx.Err()
}

// convertError converts Anthropic SDK errors to LLM errors
func (c *Client) convertError(err error) error {
	var reqErr *anthropic.RequestError
	if errors.As(err, &reqErr) {
		body := ""
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		e := llm.ParseHTTPError(llm.ProviderAnthropic, reqErr.StatusCode, body)
		e.Cause = err
		return e
	}
	var apiErr *anthropic.APIError
	if errors.As(err, &apiErr) {
		e := llm.NewLLMErrorWithCause(llm.ProviderAnthropic, apiErrorType(apiErr), apiErr.Message, err)
		e.Code = string(apiErr.Type)
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return llm.NewLLMErrorWithCause(llm.ProviderAnthropic, llm.ErrorTypeTimeout, "request timeout", err)
	}
	if errors.Is(err, context.Canceled) {
		return llm.NewLLMErrorWithCause(llm.ProviderAnthropic, llm.ErrorTypeUnknown, "context canceled", err)
	}
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "connection") || strings.Contains(lower, "network") {
		return llm.NewLLMErrorWithCause(llm.ProviderAnthropic, llm.ErrorTypeConnectionError, "connection error", err)
	}
	return llm.NewLLMErrorWithCause(llm.ProviderAnthropic, llm.ErrorTypeUnknown, err.Error(), err)
}

func apiErrorType(e *anthropic.APIError) llm.ErrorType {
	switch {
	case e.IsAuthenticationErr():
		return llm.ErrorTypeAuthentication
	case e.IsPermissionErr():
		return llm.ErrorTypePermission
	case e.IsNotFoundErr():
		return llm.ErrorTypeNotFound
	case e.IsRateLimitErr():
		return llm.ErrorTypeRateLimit
	case e.IsOverloadedErr(), e.IsApiErr():
		return llm.ErrorTypeServerError
	case e.IsInvalidRequestErr():
		if strings.Contains(strings.ToLower(e.Message), "too long") {
			return llm.ErrorTypeContextLength
		}
		return llm.ErrorTypeInvalidRequest
	}
	return llm.ErrorTypeUnknown
}

// Model implements llm.Client interface
func (c *Client) Model() string { return c.config.Model }

// Provider implements llm.Client interface
func (c *Client) Provider() llm.Provider { return llm.ProviderAnthropic }

// Validate implements llm.Client interface
func (c *Client) Validate() error { return validateConfig(c.config) }
