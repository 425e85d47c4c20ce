// Package http provides the raw HTTP request tool and the rate limited
// transport that the other web facing tools share.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/KamdynS/agent-contrib/tools"
)

const maxBody = 64 << 10

// RequestTool implements a tool for making HTTP requests
type RequestTool struct {
	client *http.Client
}

// NewRequestTool creates a request tool. A zero timeout means 30s. Outbound
// calls go through a LimitedTransport allowing rps requests per host.
func NewRequestTool(timeout time.Duration, rps float64) *RequestTool {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &RequestTool{client: NewClient(timeout, rps)}
}

// Name implements tools.Tool interface
func (t *RequestTool) Name() string { return "http_request" }

// Description implements tools.Tool interface
func (t *RequestTool) Description() string {
	return "Makes HTTP requests to external APIs. Input should be in format: METHOD|URL|BODY (optional)"
}

// Execute implements tools.Tool interface
func (t *RequestTool) Execute(ctx context.Context, input string) (string, error) {
	parts := strings.SplitN(input, "|", 3)
	if len(parts) < 2 {
		return "", fmt.Errorf("invalid input format. Expected: METHOD|URL|BODY (optional)")
	}
	method := strings.ToUpper(strings.TrimSpace(parts[0]))
	url := strings.TrimSpace(parts[1])

	var reqBody io.Reader
	if len(parts) > 2 && parts[2] != "" {
		reqBody = strings.NewReader(parts[2])
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return fmt.Sprintf("Status: %s\nBody: %s", resp.Status, respBody), nil
}

// Schema implements tools.Tool interface
func (t *RequestTool) Schema() map[string]interface{} {
	return tools.InputSchema("HTTP request in format: METHOD|URL|BODY (optional), e.g. GET|https://api.example.com/data|")
}

var _ tools.Tool = (*RequestTool)(nil)
