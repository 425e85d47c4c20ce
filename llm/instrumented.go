package llm

import (
	"context"
	"time"

	obs "github.com/KamdynS/agent-contrib/observability"
)

// InstrumentedClient wraps a Client with spans, latency and token metrics.
type InstrumentedClient struct {
	Client
}

// NewInstrumentedClient decorates c. Wrapping twice is harmless but records twice.
func NewInstrumentedClient(c Client) *InstrumentedClient { return &InstrumentedClient{Client: c} }

func (c *InstrumentedClient) labels() map[string]string {
	return map[string]string{"provider": string(c.Client.Provider()), "model": c.Client.Model()}
}

func (c *InstrumentedClient) Chat(ctx context.Context, req *ChatRequest) (*Response, error) {
	span, ctx := obs.TracerImpl.StartSpan(ctx, "llm.chat")
	defer span.End()
	span.SetAttribute(obs.AttrProvider, string(c.Client.Provider()))
	span.SetAttribute(obs.AttrModel, c.Client.Model())

	start := time.Now()
	labels := c.labels()
	obs.MetricsImpl.IncrementRequests(labels)
	resp, err := c.Client.Chat(ctx, req)
	obs.MetricsImpl.RecordLatency(time.Since(start), labels)
	if err != nil {
		obs.MetricsImpl.RecordError("llm_error", labels)
		span.SetStatus(obs.StatusCodeError, err.Error())
		return nil, err
	}
	if resp.Usage != nil {
		span.SetAttribute(obs.AttrTokensInput, resp.Usage.InputTokens)
		span.SetAttribute(obs.AttrTokensOutput, resp.Usage.OutputTokens)
		obs.MetricsImpl.IncrementTokensUsed(resp.Usage.InputTokens, map[string]string{"direction": "input", "model": c.Client.Model()})
		obs.MetricsImpl.IncrementTokensUsed(resp.Usage.OutputTokens, map[string]string{"direction": "output", "model": c.Client.Model()})
	}
	span.SetAttribute(obs.AttrFinishReason, resp.FinishReason)
	span.SetStatus(obs.StatusCodeOk, "")
	return resp, nil
}

func (c *InstrumentedClient) Completion(ctx context.Context, prompt string) (*Response, error) {
	return c.Chat(ctx, &ChatRequest{Messages: []Message{UserMessage(prompt)}})
}
