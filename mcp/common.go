// Package mcp connects agents to Model Context Protocol servers and hosts
// servers of its own. Remote tools are proxied into a tools.Registry.
package mcp

import "context"

// ClientLike abstracts over different MCP client transports
type ClientLike interface {
	ListTools(ctx context.Context) ([]ToolInfo, error)
	ExecuteTool(ctx context.Context, name string, input string) (string, error)
}

// ToolInfo describes one remote tool.
type ToolInfo struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Schema      map[string]interface{} `json:"schema"`
}
