// Package search provides web search tools backed by Serper (Google) or
// DuckDuckGo.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/KamdynS/agent-contrib/tools"
	webhttp "github.com/KamdynS/agent-contrib/tools/http"
	"github.com/tmc/langchaingo/tools/duckduckgo"
)

// SerperEndpoint is Serper's Google search API.
const SerperEndpoint = "https://google.serper.dev/search"

// ErrNoAPIKey is returned when Serper is used without a key.
var ErrNoAPIKey = errors.New("SERPER_API_KEY not set")

// Backend runs one query and returns text for the model.
type Backend interface {
	Run(ctx context.Context, query string) (string, error)
}

// Query is the argument of every search tool.
type Query struct {
	Query string `json:"query" jsonschema:"description=Search query string" validate:"required"`
}

// NewTool exposes backend as a tool. Failures are reported to the model as
// "Search failed: ..." rather than as errors.
func NewTool(name, description string, backend Backend) tools.Tool {
	return tools.NewFunc(name, description, func(ctx context.Context, q Query) (string, error) {
		out, err := backend.Run(ctx, q.Query)
		if err != nil {
			return "Search failed: " + err.Error(), nil
		}
		return out, nil
	})
}

// Result is one organic hit.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// KnowledgeGraph is the info box Google shows for entities.
type KnowledgeGraph struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Response is the part of Serper's reply the tools use.
type Response struct {
	Organic        []Result        `json:"organic"`
	KnowledgeGraph *KnowledgeGraph `json:"knowledgeGraph,omitempty"`
}

// Serper queries google.serper.dev.
type Serper struct {
	APIKey   string
	Endpoint string
	Num      int
	Client   *http.Client
}

// NewSerper returns a client with a 10s timeout asking for 10 results.
func NewSerper(apiKey string) *Serper {
	return &Serper{APIKey: apiKey, Endpoint: SerperEndpoint, Num: 10, Client: webhttp.NewClient(10*time.Second, 5)}
}

// Search performs the raw API call.
func (s *Serper) Search(ctx context.Context, query string) (*Response, error) {
	if s.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	payload, _ := json.Marshal(map[string]any{"q": query, "num": s.Num})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", s.APIKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("serper: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("serper: decode: %w", err)
	}
	return &out, nil
}

// Run implements Backend.
func (s *Serper) Run(ctx context.Context, query string) (string, error) {
	resp, err := s.Search(ctx, query)
	if err != nil {
		return "", err
	}
	return FormatResults(query, resp), nil
}

// FormatResults renders the top five organic results and the knowledge
// graph description as markdown.
func FormatResults(query string, resp *Response) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Search results for: %s\n\n", query)
	if resp == nil {
		return b.String()
	}
	for i, item := range resp.Organic {
		if i == 5 {
			break
		}
		fmt.Fprintf(&b, "%d. **%s**\n", i+1, item.Title)
		fmt.Fprintf(&b, "   %s\n", item.Snippet)
		fmt.Fprintf(&b, "   Source: %s\n\n", item.Link)
	}
	if kg := resp.KnowledgeGraph; kg != nil {
		b.WriteString("\n**Key Information:**\n")
		if kg.Description != "" {
			b.WriteString(kg.Description + "\n")
		}
	}
	return b.String()
}

// DuckDuckGo searches without an API key.
type DuckDuckGo struct {
	tool *duckduckgo.Tool
}

// NewDuckDuckGo returns a backend yielding up to maxResults hits.
func NewDuckDuckGo(maxResults int) (*DuckDuckGo, error) {
	if maxResults <= 0 {
		maxResults = 5
	}
	t, err := duckduckgo.New(maxResults, duckduckgo.DefaultUserAgent)
	if err != nil {
		return nil, err
	}
	return &DuckDuckGo{tool: t}, nil
}

// Run implements Backend.
func (d *DuckDuckGo) Run(ctx context.Context, query string) (string, error) {
	return d.tool.Call(ctx, query)
}

// Default picks Serper when a key is configured and DuckDuckGo otherwise.
func Default(serperKey string) (Backend, error) {
	if serperKey != "" {
		return NewSerper(serperKey), nil
	}
	return NewDuckDuckGo(5)
}
