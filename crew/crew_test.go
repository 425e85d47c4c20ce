package crew

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KamdynS/agent-contrib/llm"
	"github.com/KamdynS/agent-contrib/llm/llmtest"
	"github.com/KamdynS/agent-contrib/memory/inmemory"
	"github.com/KamdynS/agent-contrib/rag"
)

type wordEmbedder struct{}

func (wordEmbedder) EmbedText(ctx context.Context, input string) ([]float64, error) {
	l := strings.ToLower(input)
	return []float64{
		float64(strings.Count(l, "company")) + 0.1,
		float64(strings.Count(l, "research")) + 0.1,
	}, nil
}

const (
	findings = `{"companies":[{"name":"Acme Robotics","ticker":"ACR","reason":"new funding round"}]}`
	research = `{"research_list":[{"name":"Acme Robotics","market_position":"leader","future_outlook":"strong","investment_potential":"high"}]}`
	decision = "# Pick\nAcme Robotics, because it leads its niche."
)

func scriptedModel() *llmtest.ScriptedClient {
	return llmtest.New().
		On("Emerging Companies Finder", llmtest.Text(findings)).
		On("Senior Financial Researcher", llmtest.Text(research)).
		On("Stock Picker from Research", llmtest.Text(decision))
}

func TestDefaultConfig(t *testing.T) {
	cfg, err := DefaultConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"find_emerging_companies", "research_emerging_companies", "pick_best_companies"}, cfg.Order)
	assert.Equal(t, "emerging_companies", cfg.Tasks["find_emerging_companies"].Output)
	assert.Equal(t, "company_research", cfg.Tasks["research_emerging_companies"].Output)
	assert.Empty(t, cfg.Tasks["pick_best_companies"].Output)
	assert.Contains(t, cfg.Agents["emerging_companies_finder"].Tools, "search")
}

func TestParseConfigRejectsUnknownAgent(t *testing.T) {
	_, err := ParseConfig([]byte(`
agents: {}
tasks:
  a: {agent: ghost, description: x, expected_output: y}
order: [a]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown agent")

	_, err = ParseConfig([]byte("agents: {}\ntasks: {}\n"))
	require.Error(t, err)
}

func TestKickoffRunsTasksInOrder(t *testing.T) {
	model := scriptedModel()
	c, err := New(model, nil)
	require.NoError(t, err)

	res, err := c.Kickoff(context.Background(), DefaultInputs())
	require.NoError(t, err)
	require.Len(t, res.Tasks, 3)
	assert.Equal(t, decision, res.Raw)

	found, ok := res.Tasks[0].Parsed.(EmergingCompanyList)
	require.True(t, ok)
	assert.Equal(t, "ACR", found.Companies[0].Ticker)
	studied, ok := res.Tasks[1].Parsed.(EmergingCompaniesResearchList)
	require.True(t, ok)
	assert.Equal(t, "leader", studied.ResearchList[0].MarketPosition)
	assert.Nil(t, res.Tasks[2].Parsed)

	reqs := model.Requests()
	require.Len(t, reqs, 3)
	assert.Contains(t, reqs[0].SystemPrompt, "Technology Emerging Companies Finder")
	assert.Contains(t, reqs[0].SystemPrompt, "Europe")
	assert.NotNil(t, reqs[0].ResponseFormat)
	assert.Nil(t, reqs[2].ResponseFormat)

	// each task sees the outputs before it
	second := reqs[1].Messages[len(reqs[1].Messages)-1].Content
	assert.Contains(t, second, "Acme Robotics")
	third := reqs[2].Messages[len(reqs[2].Messages)-1].Content
	assert.Contains(t, third, "market_position")
}

func TestKickoffValidatesInputs(t *testing.T) {
	c, err := New(scriptedModel(), nil)
	require.NoError(t, err)
	_, err = c.Kickoff(context.Background(), Inputs{})
	require.Error(t, err)
	assert.Empty(t, c.Model.(*llmtest.ScriptedClient).Requests())
}

func TestKickoffRejectsMalformedStructuredOutput(t *testing.T) {
	model := llmtest.New()
	model.Fallback = llmtest.Text("no json here")
	c, err := New(model, nil)
	require.NoError(t, err)
	res, err := c.Kickoff(context.Background(), DefaultInputs())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "find_emerging_companies")
	assert.Empty(t, res.Tasks)
}

func TestKickoffUsesMemory(t *testing.T) {
	lt, err := OpenLongTermMemory(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	defer lt.Close()

	model := scriptedModel()
	c, err := New(model, nil)
	require.NoError(t, err)
	c.ShortTerm = &rag.Memory{Store: inmemory.NewVectorStore(), Embedder: wordEmbedder{}}
	c.LongTerm = lt
	c.Now = func() time.Time { return time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC) }

	_, err = c.Kickoff(context.Background(), DefaultInputs())
	require.NoError(t, err)

	mems, err := lt.Load(context.Background(), "pick_best_companies", 5)
	require.NoError(t, err)
	require.Len(t, mems, 1)
	assert.Equal(t, "stock_picker", mems[0].Metadata["agent"])
	assert.Equal(t, decision, mems[0].Metadata["summary"])

	// a second run sees the previous run's results
	_, err = c.Kickoff(context.Background(), DefaultInputs())
	require.NoError(t, err)
	reqs := model.Requests()
	last := reqs[len(reqs)-1]
	prompt := last.Messages[len(last.Messages)-1].Content
	assert.Contains(t, prompt, "Results of previous runs of this task:")
	assert.Contains(t, prompt, "2025-03-04")
	assert.Contains(t, prompt, "Recent insights:")
}

func TestRememberClipsSummaryByRunes(t *testing.T) {
	lt, err := OpenLongTermMemory(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	defer lt.Close()
	ctx := context.Background()

	c := &Crew{LongTerm: lt}
	c.remember(ctx, "find_trending_companies", "financial_researcher", strings.Repeat("é", 400)+strings.Repeat("株", 300))

	mems, err := lt.Load(ctx, "find_trending_companies", 1)
	require.NoError(t, err)
	require.Len(t, mems, 1)
	summary := mems[0].Metadata["summary"]
	assert.True(t, utf8.ValidString(summary))
	assert.Equal(t, summaryRunes, utf8.RuneCountInString(summary))
	assert.True(t, strings.HasSuffix(summary, "株"))
}

func TestLongTermMemoryNewestFirst(t *testing.T) {
	lt, err := OpenLongTermMemory(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	defer lt.Close()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, s := range []string{"first", "second", "third"} {
		require.NoError(t, lt.Save(ctx, "t", map[string]string{"summary": s}, base.Add(time.Duration(i)*time.Hour)))
	}
	mems, err := lt.Load(ctx, "t", 2)
	require.NoError(t, err)
	require.Len(t, mems, 2)
	assert.Equal(t, "third", mems[0].Metadata["summary"])
	assert.Equal(t, base.Add(2*time.Hour), mems[0].Timestamp)

	none, err := lt.Load(ctx, "other", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

var _ llm.Client = (*llmtest.ScriptedClient)(nil)
