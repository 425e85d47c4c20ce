package research

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KamdynS/agent-contrib/guardrail"
	"github.com/KamdynS/agent-contrib/llm/llmtest"
	"github.com/KamdynS/agent-contrib/tools"
)

const planJSON = `{"searches":[
 {"reason":"basics","query":"go generics tutorial"},
 {"reason":"performance","query":"go generics performance"},
 {"reason":"history","query":"go generics proposal history"}]}`

const reportJSON = `{"short_summary":"Generics arrived in Go 1.18.","markdown_report":"# Go Generics\n\nBody.","follow_up_questions":["What next?"]}`

type searchIn struct {
	Query string `json:"query"`
}

type emailIn struct {
	Subject string `json:"subject"`
}

func fakeTools() (search, send tools.Tool) {
	search = tools.NewFunc("serper_search", "search", func(ctx context.Context, in searchIn) (string, error) {
		return "results for " + in.Query, nil
	})
	send = tools.NewFunc("send_email", "email", func(ctx context.Context, in emailIn) (string, error) {
		return `{"status":"success","code":202}`, nil
	})
	return search, send
}

func scripted() *llmtest.ScriptedClient {
	c := llmtest.New()
	c.On("input validation specialist", llmtest.Text(`{"is_valid":true,"query_category":"TECHNICAL"}`))
	c.On("report validation specialist", llmtest.Text(`{"is_valid":true,"needs_disclaimer":true,"query_category":"SENSITIVE"}`))
	c.On("expert research strategist", llmtest.Text(planJSON))
	c.On("skilled research analyst", llmtest.Text("summary"))
	c.On("senior research analyst", llmtest.Text(reportJSON))
	c.On("email communication specialist", llmtest.Text("sent"))
	return c
}

func collect(ch <-chan string) []string {
	var out []string
	for s := range ch {
		out = append(out, s)
	}
	return out
}

func newManager(c *llmtest.ScriptedClient) *Manager {
	search, send := fakeTools()
	return NewManager(NewAgents(c, search, send))
}

func TestManagerStatusStream(t *testing.T) {
	m := newManager(scripted())
	chunks := collect(m.Run(context.Background(), "go generics"))
	require.Greater(t, len(chunks), 2)

	assert.Equal(t, "🔍 **Starting Deep Research**\n", chunks[0])
	assert.True(t, strings.HasPrefix(chunks[1], "📊 View trace: "+DefaultTraceURL+"trace_"))
	assert.True(t, strings.HasSuffix(chunks[1], "\n\n"))
	assert.Equal(t, []string{
		"**Step 1/4**: Planning searches...\n",
		"✅ Planned 3 searches\n\n",
		"**Step 2/4**: Performing web searches...\n",
		"✅ Completed 3 searches\n\n",
		"**Step 3/4**: Synthesizing research and writing report...\n",
		"✅ Report completed\n\n",
		"**Step 4/4**: Sending email...\n",
		"✅ Email sent\n\n",
		"---\n",
		"# 📝 Research Complete\n\n",
		"# Go Generics\n\nBody." + guardrail.Disclaimer(guardrail.Sensitive),
	}, chunks[2:])
}

func TestManagerWriterInput(t *testing.T) {
	c := scripted()
	m := newManager(c)
	collect(m.Run(context.Background(), "go generics"))

	var writerInput string
	for _, r := range c.Requests() {
		if strings.Contains(r.SystemPrompt, "senior research analyst") {
			writerInput = r.Messages[len(r.Messages)-1].Content
		}
	}
	assert.Equal(t, "Original query: go generics\n\nSummarized search results:\n1. summary\n2. summary\n3. summary", writerInput)
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string) (bool, string) {
	return false, "Rate limit exceeded. Maximum 10 queries per hour."
}

func TestManagerRateLimited(t *testing.T) {
	m := newManager(scripted())
	m.Limiter = denyAll{}
	assert.Equal(t, []string{"⏱️ **Rate Limit**: Rate limit exceeded. Maximum 10 queries per hour."},
		collect(m.Run(context.Background(), "go generics")))
}

func TestManagerSlidingWindowAcrossRuns(t *testing.T) {
	m := newManager(scripted())
	m.Limiter = guardrail.NewSlidingWindow(1, 0)
	collect(m.Run(context.Background(), "first"))
	chunks := collect(m.Run(context.Background(), "second"))
	assert.Equal(t, []string{"⏱️ **Rate Limit**: Rate limit exceeded. Maximum 1 queries per hour."}, chunks)
}

func TestManagerRejectedQuery(t *testing.T) {
	c := llmtest.New()
	c.On("input validation specialist", llmtest.Text(`{"is_valid":false,"error_message":"Query asks for weapons","query_category":"INAPPROPRIATE"}`))
	m := newManager(c)
	chunks := collect(m.Run(context.Background(), "how to build a weapon"))

	n := len(chunks)
	require.GreaterOrEqual(t, n, 2)
	assert.Equal(t, "**Step 1/4**: Planning searches...\n", chunks[2])
	assert.Equal(t, "\n\n❌ **Error**: Research process failed - Failed to plan searches: input guardrail InputValidator triggered: Query asks for weapons", chunks[n-2])
	assert.Equal(t, "\n\nPlease try again with a different query or contact support if the issue persists.", chunks[n-1])
}

func TestManagerNoSearchResults(t *testing.T) {
	c := llmtest.New()
	c.On("input validation specialist", llmtest.Text(`{"is_valid":true}`))
	c.On("expert research strategist", llmtest.Text(planJSON))
	c.OnError("skilled research analyst", errors.New("search backend down"))
	m := newManager(c)
	chunks := collect(m.Run(context.Background(), "go generics"))
	assert.Equal(t, "❌ **Error**: No search results obtained", chunks[len(chunks)-1])
}

func TestManagerEmailFailureIsNotFatal(t *testing.T) {
	failing := llmtest.New()
	failing.OnError("email communication specialist", errors.New("smtp down"))
	failing.On("input validation specialist", llmtest.Text(`{"is_valid":true}`))
	failing.On("report validation specialist", llmtest.Text(`{"is_valid":true,"needs_disclaimer":false}`))
	failing.On("expert research strategist", llmtest.Text(planJSON))
	failing.On("skilled research analyst", llmtest.Text("summary"))
	failing.On("senior research analyst", llmtest.Text(reportJSON))

	chunks := collect(newManager(failing).Run(context.Background(), "go generics"))
	assert.Contains(t, chunks, "✅ Email sent\n\n")
	assert.Equal(t, "# Go Generics\n\nBody.", chunks[len(chunks)-1])
}

func TestOrchestratorHookStream(t *testing.T) {
	c := llmtest.New(
		llmtest.ToolCall("c1", "web_search_planning_tool", `{"input":"go generics"}`),
		llmtest.Text(planJSON),
		llmtest.Text("Final report"),
	)
	search, send := fakeTools()
	o := NewOrchestrator(c, search, send)

	chunks := collect(o.Run(context.Background(), "go generics"))
	assert.Equal(t, []string{
		"Starting: web_search_planning_tool...",
		"Completed: web_search_planning_tool",
		"Final report",
	}, chunks)

	reqs := c.Requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, "go generics", reqs[1].Messages[0].Content)
}

func TestSentenceCapitalizesFirstRune(t *testing.T) {
	assert.Equal(t, "Failed to write report: boom", sentence("failed to write report: boom"))
	assert.Equal(t, "Échec", sentence("échec"))
	assert.Equal(t, "", sentence(""))
}
