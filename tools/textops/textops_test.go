package textops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KamdynS/agent-contrib/llm/llmtest"
	"github.com/KamdynS/agent-contrib/tools"
)

func TestSummarizerDefaultsLength(t *testing.T) {
	c := llmtest.New(llmtest.Text("  Short summary.  "))
	r := tools.NewRegistry(Tools(c)...)

	out, err := r.Execute(context.Background(), "smart_summarizer", `{"text":"A very long article."}`)
	require.NoError(t, err)
	assert.Equal(t, "Short summary.", out)

	reqs := c.Requests()
	require.Len(t, reqs, 1)
	prompt := reqs[0].Messages[0].Content
	assert.Contains(t, prompt, "no more than 200 words")
	assert.Contains(t, prompt, "A very long article.")
}

func TestTranslatorPrompt(t *testing.T) {
	c := llmtest.New(llmtest.Text("Hola"))
	out, err := Translate(context.Background(), c, "Hello", "Spanish")
	require.NoError(t, err)
	assert.Equal(t, "Hola", out)
	assert.Contains(t, c.Requests()[0].Messages[0].Content, "Translate the following text to Spanish.")
}

func TestTranslatorRequiresLanguage(t *testing.T) {
	tool := Tools(llmtest.New())[1]
	_, err := tool.Execute(context.Background(), `{"text":"Hello"}`)
	assert.Error(t, err)
}
