// Package openai adapts the go-openai SDK to llm.Client. The same client serves
// OpenAI, OpenRouter, Azure OpenAI and Ollama since all of them speak the chat
// completions protocol.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/KamdynS/agent-contrib/llm"
	"github.com/sashabaranov/go-openai"
)

const (
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
	OllamaBaseURL     = "http://localhost:11434/v1"
)

// Client implements the llm.Client interface for OpenAI compatible endpoints
type Client struct {
	client  *openai.Client
	config  Config
	retrier *llm.Retrier
}

// Config holds OpenAI-specific configuration
type Config struct {
	Provider     llm.Provider    `json:"provider,omitempty"` // openai (default), openrouter, azure or ollama
	APIKey       string          `json:"api_key"`
	Model        string          `json:"model"`
	BaseURL      string          `json:"base_url,omitempty"`
	Temperature  float64         `json:"temperature,omitempty"`
	MaxTokens    int             `json:"max_tokens,omitempty"`
	Timeout      time.Duration   `json:"timeout,omitempty"`
	RetryConfig  llm.RetryConfig `json:"retry_config,omitempty"`
	Debug        bool            `json:"debug,omitempty"`
	Organization string          `json:"organization,omitempty"`
	APIVersion   string          `json:"api_version,omitempty"` // azure only
}

// FromConfig converts the shared llm.Config into an OpenAI client config.
func FromConfig(c llm.Config) Config {
	return Config{
		Provider:    c.Provider,
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

// NewClient creates a new client for the configured provider
func NewClient(config Config) (*Client, error) {
	if config.Provider == "" {
		config.Provider = llm.ProviderOpenAI
	}
	if config.Provider == llm.ProviderOllama && config.APIKey == "" {
		config.APIKey = "ollama"
	}
	if config.Model == "" {
		config.Model = llm.DefaultModel(config.Provider)
	}
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if config.Temperature == 0 {
		config.Temperature = 0.7
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 1000
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.RetryConfig.MaxRetries == 0 {
		config.RetryConfig = llm.DefaultRetryConfig()
	}

	var oc openai.ClientConfig
	switch config.Provider {
	case llm.ProviderAzure:
		oc = openai.DefaultAzureConfig(config.APIKey, config.BaseURL)
		if config.APIVersion != "" {
			oc.APIVersion = config.APIVersion
		}
	default:
		oc = openai.DefaultConfig(config.APIKey)
		switch {
		case config.BaseURL != "":
			oc.BaseURL = config.BaseURL
		case config.Provider == llm.ProviderOpenRouter:
			oc.BaseURL = OpenRouterBaseURL
		case config.Provider == llm.ProviderOllama:
			oc.BaseURL = OllamaBaseURL
		}
	}
	if config.Organization != "" {
		oc.OrgID = config.Organization
	}
	oc.HTTPClient = &http.Client{Timeout: config.Timeout}

	return &Client{
		client:  openai.NewClientWithConfig(oc),
		config:  config,
		retrier: llm.NewRetrier(config.RetryConfig),
	}, nil
}

func validateConfig(config Config) error {
	switch config.Provider {
	case llm.ProviderOpenAI, llm.ProviderOpenRouter, llm.ProviderAzure, llm.ProviderOllama:
	default:
		return fmt.Errorf("provider %q is not served by the openai client", config.Provider)
	}
	if config.APIKey == "" {
		return fmt.Errorf("API key is required")
	}
	if config.Provider == llm.ProviderAzure && config.BaseURL == "" {
		return fmt.Errorf("azure requires a base URL")
	}
	if err := llm.ValidateModel(config.Provider, config.Model); err != nil {
		return fmt.Errorf("invalid model: %w", err)
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
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

// convertMessages maps the runtime conversation onto the SDK shape. Assistant
// turns keep their tool calls so tool results can reference them by ID.
func convertMessages(req *llm.ChatRequest) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	}
	for _, msg := range req.Messages {
		m := openai.ChatCompletionMessage{Content: msg.Content, Name: msg.Name}
		switch msg.Role {
		case llm.RoleSystem:
			m.Role = openai.ChatMessageRoleSystem
		case llm.RoleAssistant:
			m.Role = openai.ChatMessageRoleAssistant
			for _, tc := range msg.ToolCalls {
				m.ToolCalls = append(m.ToolCalls, openai.ToolCall{
					ID:       tc.ID,
					Type:     openai.ToolTypeFunction,
					Function: openai.FunctionCall{Name: tc.Function.Name, Arguments: tc.Function.Arguments},
				})
			}
		case llm.RoleTool:
			m.Role = openai.ChatMessageRoleTool
			m.ToolCallID = msg.ToolCallID
		default:
			m.Role = openai.ChatMessageRoleUser
		}
		messages = append(messages, m)
	}
	return messages
}

func (c *Client) buildRequest(req *llm.ChatRequest) openai.ChatCompletionRequest {
	model := c.config.Model
	if req.Model != "" {
		model = req.Model
	}
	oaiReq := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    convertMessages(req),
		Temperature: float32(c.config.Temperature),
		MaxTokens:   c.config.MaxTokens,
		Stop:        req.Stop,
		Seed:        req.Seed,
		User:        req.User,
	}
	if req.Temperature != nil {
		oaiReq.Temperature = float32(*req.Temperature)
	}
	if req.MaxTokens != nil {
		oaiReq.MaxTokens = *req.MaxTokens
	}
	if req.TopP != nil {
		oaiReq.TopP = float32(*req.TopP)
	}
	if req.FrequencyPenalty != nil {
		oaiReq.FrequencyPenalty = float32(*req.FrequencyPenalty)
	}
	if req.PresencePenalty != nil {
		oaiReq.PresencePenalty = float32(*req.PresencePenalty)
	}
	if len(req.Tools) > 0 {
		oaiReq.Tools = make([]openai.Tool, len(req.Tools))
		for i, tool := range req.Tools {
			oaiReq.Tools[i] = openai.Tool{
				Type: openai.ToolTypeFunction,
				Function: &openai.FunctionDefinition{
					Name:        tool.Function.Name,
					Description: tool.Function.Description,
					Parameters:  tool.Function.Parameters,
				},
			}
		}
		if req.ToolChoice != nil {
			oaiReq.ToolChoice = req.ToolChoice
		}
	}
	if req.ResponseFormat != nil && req.ResponseFormat.Type != "text" {
		oaiReq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	return oaiReq
}

func (c *Client) chat(ctx context.Context, req *llm.ChatRequest) (*llm.Response, error) {
	oaiReq := c.buildRequest(req)
	resp, err := c.client.CreateChatCompletion(ctx, oaiReq)
	if err != nil {
		return nil, c.convertError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, llm.NewLLMError(c.config.Provider, llm.ErrorTypeUnknown, "no choices returned")
	}
	choice := resp.Choices[0]

	var toolCalls []llm.ToolCall
	for _, tc := range choice.Message.ToolCalls {
		toolCalls = append(toolCalls, llm.ToolCall{
			ID:       tc.ID,
			Type:     string(tc.Type),
			Function: llm.Function{Name: tc.Function.Name, Arguments: tc.Function.Arguments},
		})
	}

	var usage *llm.Usage
	if resp.Usage.TotalTokens > 0 {
		modelInfo, _ := llm.GetModel(oaiReq.Model)
		usage = &llm.Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
			Cost:         modelInfo.EstimateCost(resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
		}
	}

	return &llm.Response{
		Content:      choice.Message.Content,
		Role:         llm.RoleAssistant,
		Model:        oaiReq.Model,
		Provider:     c.config.Provider,
		Usage:        usage,
		FinishReason: string(choice.FinishReason),
		ToolCalls:    toolCalls,
		Meta: map[string]string{
			"id":      resp.ID,
			"created": fmt.Sprintf("%d", resp.Created),
		},
	}, nil
}

// Completion implements llm.Client interface
func (c *Client) Completion(ctx context.Context, prompt string) (*llm.Response, error) {
	return c.Chat(ctx, &llm.ChatRequest{Messages: []llm.Message{llm.UserMessage(prompt)}})
}

// Stream implements llm.Client interface. Only opening the stream is retried;
// a stream that fails midway surfaces the error.
func (c *Client) Stream(ctx context.Context, req *llm.ChatRequest, output chan<- *llm.Response) error {
	defer close(output)

	oaiReq := c.buildRequest(req)
	oaiReq.Stream = true
	stream, err := llm.Execute(c.retrier, ctx, func(ctx context.Context, attempt int) (*openai.ChatCompletionStream, error) {
		s, err := c.client.CreateChatCompletionStream(ctx, oaiReq)
		if err != nil {
			return nil, c.convertError(err)
		}
		return s, nil
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	start := time.Now()
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return c.convertError(err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		choice := chunk.Choices[0]
		resp := &llm.Response{
			Content:      choice.Delta.Content,
			Role:         llm.RoleAssistant,
			Model:        oaiReq.Model,
			Provider:     c.config.Provider,
			FinishReason: string(choice.FinishReason),
			Latency:      time.Since(start),
			Timestamp:    start,
			Meta:         map[string]string{"id": chunk.ID, "streaming": "true"},
		}
		select {
		case output <- resp:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// convertError converts SDK errors to LLM errors
func (c *Client) convertError(err error) error {
	p := c.config.Provider
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		llmErr := llm.ParseHTTPError(p, apiErr.HTTPStatusCode, apiErr.Message)
		if code, ok := apiErr.Code.(string); ok {
			llmErr.Code = code
		}
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests && strings.Contains(strings.ToLower(apiErr.Message), "try again in") {
			llmErr.RetryAfter = 60
		}
		llmErr.Cause = err
		return llmErr
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		llmErr := llm.ParseHTTPError(p, reqErr.HTTPStatusCode, string(reqErr.Body))
		llmErr.Cause = err
		return llmErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return llm.NewLLMErrorWithCause(p, llm.ErrorTypeTimeout, "request timeout", err)
	}
	if errors.Is(err, context.Canceled) {
		return llm.NewLLMErrorWithCause(p, llm.ErrorTypeUnknown, "context canceled", err)
	}
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "connection") || strings.Contains(lower, "network") {
		return llm.NewLLMErrorWithCause(p, llm.ErrorTypeConnectionError, "connection error", err)
	}
	return llm.NewLLMErrorWithCause(p, llm.ErrorTypeUnknown, err.Error(), err)
}

// Model implements llm.Client interface
func (c *Client) Model() string { return c.config.Model }

// Provider implements llm.Client interface
func (c *Client) Provider() llm.Provider { return c.config.Provider }

// Validate implements llm.Client interface
func (c *Client) Validate() error { return validateConfig(c.config) }
