package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newInitCmd() *cobra.Command {
	var projectType string
	cmd := &cobra.Command{
		Use:   "init [project-name]",
		Short: "Scaffold a project (--type minimal|sidekick|mcp)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "my-agent"
			if len(args) == 1 {
				name = args[0]
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Initializing new %s agent project: %s\n", projectType, name)
			if err := initProject(name, projectType); err != nil {
				return err
			}
			fmt.Fprintf(out, "Project %s initialized successfully!\nNext steps:\n  cd %s\n  go mod tidy\n  go run .\n", name, name)
			return nil
		},
	}
	cmd.Flags().StringVar(&projectType, "type", "minimal", "project type (minimal, sidekick, mcp)")
	return cmd
}

var projectMains = map[string]string{
	"minimal":  minimalMainGo,
	"sidekick": sidekickMainGo,
	"mcp":      mcpMainGo,
}

func initProject(name, projectType string) error {
	mainGo, ok := projectMains[projectType]
	if !ok {
		return fmt.Errorf("unknown project type: %s", projectType)
	}
	if err := os.MkdirAll(name, 0755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}
	return writeFiles(name, map[string]string{
		"main.go":    mainGo,
		"go.mod":     fmt.Sprintf(goModTemplate, filepath.Base(name)),
		"README.md":  fmt.Sprintf(readmeTemplate, filepath.Base(name), projectType),
		".gitignore": gitignoreTemplate,
	})
}

func writeFiles(projectDir string, files map[string]string) error {
	for filename, content := range files {
		filePath := filepath.Join(projectDir, filename)
		if err := os.WriteFile(filePath, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", filename, err)
		}
	}
	return nil
}

const goModTemplate = `module %s

go 1.24

require github.com/KamdynS/agent-contrib v0.2.0
`

const minimalMainGo = `package main

import (
	"context"
	"fmt"
	"os"

	"github.com/KamdynS/agent-contrib/agent/core"
	"github.com/KamdynS/agent-contrib/llm/openai"
	"github.com/KamdynS/agent-contrib/tools"
)

func main() {
	model, err := openai.NewClient(openai.Config{APIKey: os.Getenv("OPENAI_API_KEY")})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	agent := &core.Definition{
		Name:         "assistant",
		Instructions: "You are a helpful assistant. Use the calculator for arithmetic.",
		Model:        model,
		Tools:        tools.NewRegistry(&tools.CalculatorTool{}),
	}
	res, err := core.NewRunner(nil).Run(context.Background(), agent, "What is 12 * (3 + 4)?")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(res.FinalOutput)
}
`

const sidekickMainGo = `package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/KamdynS/agent-contrib/llm"
	"github.com/KamdynS/agent-contrib/llm/openai"
	"github.com/KamdynS/agent-contrib/sidekick"
)

func main() {
	model, err := openai.NewClient(openai.Config{APIKey: os.Getenv("OPENAI_API_KEY")})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	reg, err := sidekick.Toolbox(sidekick.ToolOptions{Model: model, SerperKey: os.Getenv("SERPER_API_KEY"), SandboxRoot: "sandbox"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	sk, err := sidekick.New(sidekick.Config{Worker: model, Tools: reg})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var history []llm.Message
	in := bufio.NewScanner(os.Stdin)
	for fmt.Print("> "); in.Scan(); fmt.Print("> ") {
		next, err := sk.RunSuperstep(context.Background(), in.Text(), "", history)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		for _, m := range next[len(history):] {
			if m.Role == llm.RoleAssistant {
				fmt.Println(m.Content)
			}
		}
		history = next
	}
}
`

const mcpMainGo = `package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/KamdynS/agent-contrib/mcp"
)

type ShoutArgs struct {
	Text string ` + "`json:\"text\" jsonschema:\"the text to shout\"`" + `
}

func main() {
	server := mcp.NewServer("shout", "v0.1.0")
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: "shout", Description: "Upper-case some text"},
		func(ctx context.Context, req *sdkmcp.CallToolRequest, args ShoutArgs) (*sdkmcp.CallToolResult, any, error) {
			return mcp.TextResult(strings.ToUpper(args.Text)), nil, nil
		})
	if err := mcp.Serve(context.Background(), server); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
`

const readmeTemplate = `# %s

A %s project built on agent-contrib.

## Setup

` + "```" + `bash
export OPENAI_API_KEY=your_api_key_here
go mod tidy
go run .
` + "```" + `
`

const gitignoreTemplate = `# Binaries
*.exe
*.test
*.out
main

# Environment variables
.env

# Agent sandboxes and traces
sandbox/
`
