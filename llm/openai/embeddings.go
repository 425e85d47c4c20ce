package openai

import (
	"context"
	"fmt"

	"github.com/KamdynS/agent-contrib/llm"
	"github.com/sashabaranov/go-openai"
)

// Embed generates an embedding vector for input. An empty model selects
// text-embedding-3-small. It backs rag.OpenAIEmbedder.
func (c *Client) Embed(ctx context.Context, input string, model string) ([]float64, error) {
	if model == "" {
		model = llm.ModelEmbedSmall
	}
	res, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{input},
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, c.convertError(err)
	}
	if len(res.Data) == 0 || len(res.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	out := make([]float64, len(res.Data[0].Embedding))
	for i, v := range res.Data[0].Embedding {
		out[i] = float64(v)
	}
	return out, nil
}
