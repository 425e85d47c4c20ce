package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// StdioConfig defines how to launch an MCP server subprocess.
type StdioConfig struct {
	// Command to launch the MCP server (e.g. path to binary)
	Command string
	// Args to pass to the command
	Args []string
	// Env entries appended to the current environment
	Env []string
	// Optional implementation info
	ClientName    string
	ClientVersion string
}

// StdioClient is a connected MCP session. It implements ClientLike.
type StdioClient struct {
	session *sdkmcp.ClientSession
}

// NewStdioClient starts cfg.Command and performs the MCP handshake.
func NewStdioClient(ctx context.Context, cfg StdioConfig) (*StdioClient, error) {
	if cfg.Command == "" {
		return nil, errors.New("empty MCP server command")
	}
	cmd := exec.Command(cfg.Command, cfg.Args...)
	if len(cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), cfg.Env...)
	}
	return Connect(ctx, &sdkmcp.CommandTransport{Command: cmd}, cfg.ClientName, cfg.ClientVersion)
}

// Connect opens a session over any SDK transport.
func Connect(ctx context.Context, transport sdkmcp.Transport, name, version string) (*StdioClient, error) {
	if name == "" {
		name = "agent-contrib"
	}
	if version == "" {
		version = "v1.0.0"
	}
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: name, Version: version}, nil)
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcp connect: %w", err)
	}
	return &StdioClient{session: session}, nil
}

// Close ends the session and the server process.
func (c *StdioClient) Close() error { return c.session.Close() }

// ListTools returns the server's tools with their input schemas as maps.
func (c *StdioClient) ListTools(ctx context.Context) ([]ToolInfo, error) {
	var out []ToolInfo
	var cursor string
	for {
		res, err := c.session.ListTools(ctx, &sdkmcp.ListToolsParams{Cursor: cursor})
		if err != nil {
			return nil, err
		}
		for _, t := range res.Tools {
			out = append(out, ToolInfo{Name: t.Name, Description: t.Description, Schema: schemaMap(t.InputSchema)})
		}
		if res.NextCursor == "" {
			return out, nil
		}
		cursor = res.NextCursor
	}
}

func schemaMap(s any) map[string]interface{} {
	if s == nil {
		return map[string]interface{}{"type": "object"}
	}
	if m, ok := s.(map[string]interface{}); ok {
		return m
	}
	b, err := json.Marshal(s)
	if err != nil {
		return map[string]interface{}{"type": "object"}
	}
	var m map[string]interface{}
	if err := json.Unmarshal(b, &m); err != nil || m == nil {
		return map[string]interface{}{"type": "object"}
	}
	return m
}

// ExecuteTool calls name with input. Input that is a JSON object is sent as
// the arguments, anything else is wrapped as {"input": input}.
func (c *StdioClient) ExecuteTool(ctx context.Context, name string, input string) (string, error) {
	var args map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(input)), &args); err != nil || args == nil {
		args = map[string]any{"input": input}
	}
	return c.CallTool(ctx, name, args)
}

// CallTool invokes a tool and concatenates its text content. A tool level
// error is returned as an error carrying the tool's text.
func (c *StdioClient) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	res, err := c.session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, content := range res.Content {
		if txt, ok := content.(*sdkmcp.TextContent); ok {
			b.WriteString(txt.Text)
		}
	}
	if res.IsError {
		return "", fmt.Errorf("mcp tool %s: %s", name, b.String())
	}
	return b.String(), nil
}

// ReadResource returns the text of every content block of uri.
func (c *StdioClient) ReadResource(ctx context.Context, uri string) (string, error) {
	res, err := c.session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: uri})
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, rc := range res.Contents {
		if rc.Text != "" {
			b.WriteString(rc.Text)
		} else {
			b.Write(rc.Blob)
		}
	}
	return b.String(), nil
}

var _ ClientLike = (*StdioClient)(nil)
