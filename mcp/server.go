package mcp

import (
	"context"
	"encoding/json"
	"errors"

	obs "github.com/KamdynS/agent-contrib/observability"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer creates an SDK server with the given implementation info.
func NewServer(name, version string) *sdkmcp.Server {
	return sdkmcp.NewServer(&sdkmcp.Implementation{Name: name, Version: version}, nil)
}

// Serve runs server over stdin/stdout until ctx is done or the client hangs up.
// Logging goes to stderr since stdout carries the protocol.
func Serve(ctx context.Context, server *sdkmcp.Server) error {
	log := obs.Component("mcp")
	log.Info().Msg("serving MCP over stdio")
	err := server.Run(ctx, &sdkmcp.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("mcp server stopped")
		return err
	}
	return nil
}

// TextResult wraps text as a tool result.
func TextResult(text string) *sdkmcp.CallToolResult {
	return &sdkmcp.CallToolResult{Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: text}}}
}

// JSONResult encodes v as the text of a tool result.
func JSONResult(v any) (*sdkmcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return TextResult(string(b)), nil
}

// ErrorResult reports a tool level failure the model can read.
func ErrorResult(msg string) *sdkmcp.CallToolResult {
	r := TextResult(msg)
	r.IsError = true
	return r
}
