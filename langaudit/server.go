package langaudit

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/KamdynS/agent-contrib/mcp"
)

// AuditArgs is the run_web_lang_audit input.
type AuditArgs struct {
	InputCSV string `json:"input_csv" jsonschema:"CSV file name inside the input directory, not a path"`
}

// NewServer exposes job as the web-lang-auditor MCP server.
func NewServer(job *Job) *sdkmcp.Server {
	server := mcp.NewServer("web-lang-auditor", "v1.0.0")
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "run_web_lang_audit", Description: "Run a web page language audit over the URLs of a CSV file."},
		func(ctx context.Context, _ *sdkmcp.CallToolRequest, in AuditArgs) (*sdkmcp.CallToolResult, any, error) {
			sum, err := job.Run(ctx, in.InputCSV)
			if err != nil {
				return mcp.ErrorResult(err.Error()), nil, nil
			}
			return mcp.TextResult(sum.String()), nil, nil
		})
	return server
}
