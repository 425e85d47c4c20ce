package sidekick

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KamdynS/agent-contrib/llm/llmtest"
)

func TestToolboxSelection(t *testing.T) {
	reg, err := Toolbox(ToolOptions{
		Model:        &llmtest.ScriptedClient{},
		SandboxRoot:  t.TempDir(),
		Wikipedia:    true,
		WebPage:      true,
		HTTPRequests: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"fetch_webpage", "file_delete", "http_request", "list_directory", "read_file",
		"search", "smart_summarizer", "translator", "wikipedia", "write_file",
	}, reg.List())

	bare, err := Toolbox(ToolOptions{SearchName: "event_search"})
	require.NoError(t, err)
	assert.Equal(t, []string{"event_search"}, bare.List())
}
