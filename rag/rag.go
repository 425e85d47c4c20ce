// Package rag stores text as embedded chunks in a vector store and recalls
// the closest chunks as prompt context. The crew uses it as short-term memory.
package rag

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/KamdynS/agent-contrib/llm/openai"
	"github.com/KamdynS/agent-contrib/memory"
)

const (
	DefaultChunkSize = 1200
	DefaultTopK      = 5
)

// Chunk splits text on blank lines into pieces of about size bytes.
// Paragraphs longer than size are cut hard, on a rune boundary.
func Chunk(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var chunks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
	}
	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if cur.Len() > 0 && cur.Len()+2+len(p) > size {
			flush()
		}
		for len(p) > size {
			cut := size
			for cut > 0 && !utf8.RuneStart(p[cut]) {
				cut--
			}
			if cut == 0 {
				cut = size
			}
			chunks = append(chunks, p[:cut])
			p = p[cut:]
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(p)
	}
	flush()
	return chunks
}

// Embedder turns text into a vector.
type Embedder interface {
	EmbedText(ctx context.Context, input string) ([]float64, error)
}

// OpenAIEmbedder embeds through the OpenAI embeddings API.
type OpenAIEmbedder struct {
	Client *openai.Client
	// Model defaults to text-embedding-3-small.
	Model string
}

func (e OpenAIEmbedder) EmbedText(ctx context.Context, input string) ([]float64, error) {
	return e.Client.Embed(ctx, input, e.Model)
}

type metaWriter interface {
	AddDocumentMeta(ctx context.Context, id, content string, embedding []float64, meta map[string]string) error
}

// Memory is a vector store paired with the embedder that fills it.
type Memory struct {
	Store     memory.VectorStore
	Embedder  Embedder
	ChunkSize int
	TopK      int
}

// Remember chunks content and stores each chunk as id#n. Metadata is kept
// when the store supports it.
func (m *Memory) Remember(ctx context.Context, id, content string, meta map[string]string) error {
	for i, ch := range Chunk(content, m.ChunkSize) {
		cid := fmt.Sprintf("%s#%d", id, i)
		vec, err := m.Embedder.EmbedText(ctx, ch)
		if err != nil {
			return fmt.Errorf("embed %s: %w", cid, err)
		}
		if mw, ok := m.Store.(metaWriter); ok && meta != nil {
			err = mw.AddDocumentMeta(ctx, cid, ch, vec, meta)
		} else {
			err = m.Store.AddDocument(ctx, cid, ch, vec)
		}
		if err != nil {
			return fmt.Errorf("store %s: %w", cid, err)
		}
	}
	return nil
}

// Recall returns the chunks closest to query, best first.
func (m *Memory) Recall(ctx context.Context, query string) ([]memory.Document, error) {
	k := m.TopK
	if k <= 0 {
		k = DefaultTopK
	}
	vec, err := m.Embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return m.Store.QuerySimilar(ctx, vec, k)
}

// Context renders recalled documents as numbered prompt sections.
func Context(docs []memory.Document) string {
	var b strings.Builder
	for i, d := range docs {
		fmt.Fprintf(&b, "[D%d]\n%s\n\n", i+1, strings.TrimSpace(d.Content))
	}
	return b.String()
}
