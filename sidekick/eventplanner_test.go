package sidekick

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KamdynS/agent-contrib/llm/llmtest"
)

func TestEventPlannerAsksForMissingFields(t *testing.T) {
	model := llmtest.New(llmtest.Text(`{"country":"Germany","city":"","date":"","vibe":"techno"}`))
	p, err := NewEventPlanner(model, nil, nil, nil)
	require.NoError(t, err)

	history, err := p.RunSuperstep(context.Background(), "techno in Germany", "", nil)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t,
		"Question: I'm missing the following required info to start: city, date (YYYY-MM-DD). Please provide it.",
		history[1].Content)
	assert.Len(t, model.Requests(), 1)
}

func TestEventPlannerPlansWithInput(t *testing.T) {
	model := llmtest.New(
		llmtest.Text(`{"country":"Germany","city":"Berlin","date":"2026-10-13","vibe":"techno","budget":50}`),
		llmtest.ToolCall("c1", "echo", `{"text":"berghain"}`),
		llmtest.Text("Go to Berghain on 2026-10-13."),
		llmtest.Text(`{"feedback":"Specific and on budget","success_criteria_met":true,"user_input_needed":false}`),
	)
	p, err := NewEventPlanner(model, echoRegistry(), nil, nil)
	require.NoError(t, err)

	history, err := p.RunSuperstep(context.Background(), "techno in Berlin on 2026-10-13 under 50", "one event", nil)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "Go to Berghain on 2026-10-13.", history[1].Content)
	assert.Equal(t, EventFeedbackPrefix+"Specific and on budget", history[2].Content)

	reqs := model.Requests()
	require.Len(t, reqs, 4)
	assert.Contains(t, systemOf(reqs[1]), `"city":"Berlin"`)
	assert.Contains(t, systemOf(reqs[1]), `"budget":50`)
	assert.Contains(t, lastUserText(reqs[3].Messages), "Conversation history: \n\nUser: techno in Berlin on 2026-10-13 under 50\nAssistant: [Tool use]\n")

	cp, ok, err := p.Graph().State(context.Background(), p.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, cp.State.EventInput)
	assert.Equal(t, 50, *cp.State.EventInput.Budget)
}

func TestMissingOrder(t *testing.T) {
	assert.Equal(t, []string{"country", "city", "date (YYYY-MM-DD)", "vibe (e.g. techno/house/hiphop/...)"},
		EventPlannerInput{}.Missing())
	assert.Empty(t, EventPlannerInput{Country: "NL", City: "Amsterdam", Date: "2026-01-01", Vibe: "house"}.Missing())
}
