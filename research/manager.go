package research

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog"

	core "github.com/KamdynS/agent-contrib/agent/core"
	"github.com/KamdynS/agent-contrib/agent/supervisor"
	"github.com/KamdynS/agent-contrib/guardrail"
	obs "github.com/KamdynS/agent-contrib/observability"
)

// DefaultTraceURL prefixes the trace id in the status stream.
const DefaultTraceURL = "https://platform.openai.com/traces/trace?trace_id="

// DefaultRateKey is the process-wide rate limit bucket.
const DefaultRateKey = "research"

// Manager runs the end-to-end research pipeline.
type Manager struct {
	Agents *Agents
	Runner *core.Runner
	// Limiter is consulted once per run under RateKey. Nil disables it.
	Limiter  guardrail.Limiter
	RateKey  string
	TraceURL string
	// Concurrency bounds parallel searches; 0 runs them all at once.
	Concurrency int
	Logger      *zerolog.Logger
}

// NewManager returns a manager with the default 10 per hour limiter.
func NewManager(agents *Agents) *Manager {
	return &Manager{
		Agents:   agents,
		Runner:   &core.Runner{},
		Limiter:  guardrail.NewSlidingWindow(guardrail.DefaultMaxPerWindow, guardrail.DefaultWindow),
		RateKey:  DefaultRateKey,
		TraceURL: DefaultTraceURL,
	}
}

func (m *Manager) runner() *core.Runner {
	if m.Runner == nil {
		return &core.Runner{}
	}
	return m.Runner
}

// Run streams status updates and finally the report. The channel is closed
// when the run ends or ctx is cancelled.
func (m *Manager) Run(ctx context.Context, query string) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		m.run(ctx, query, out)
	}()
	return out
}

func (m *Manager) run(ctx context.Context, query string, out chan<- string) {
	emit := func(s string) bool {
		select {
		case out <- s:
			return true
		case <-ctx.Done():
			return false
		}
	}
	log := obs.LoggerOr(m.Logger, "research")

	if m.Limiter != nil {
		key := m.RateKey
		if key == "" {
			key = DefaultRateKey
		}
		if ok, msg := m.Limiter.Allow(ctx, key); !ok {
			emit("⏱️ **Rate Limit**: " + msg)
			return
		}
	}

	ctx, trace := obs.WithTrace(ctx, "Research trace")
	defer obs.EndTrace(ctx)
	span, ctx := obs.TracerImpl.StartSpan(ctx, "research.run")
	defer span.End()
	log = log.With().Str("trace_id", trace.ID).Logger()
	log.Info().Str("query", truncate(query, 100)).Msg("processing query")

	fail := func(err error) {
		log.Error().Err(err).Msg("research failed")
		span.SetStatus(obs.StatusCodeError, err.Error())
		if emit("\n\n❌ **Error**: Research process failed - " + sentence(err.Error())) {
			emit("\n\nPlease try again with a different query or contact support if the issue persists.")
		}
	}

	traceURL := m.TraceURL
	if traceURL == "" {
		traceURL = DefaultTraceURL
	}
	if !emit("🔍 **Starting Deep Research**\n") || !emit("📊 View trace: "+traceURL+trace.ID+"\n\n") {
		return
	}

	if !emit("**Step 1/4**: Planning searches...\n") {
		return
	}
	plan, err := m.Plan(ctx, query)
	if err != nil {
		fail(err)
		return
	}
	if !emit(fmt.Sprintf("✅ Planned %d searches\n\n", len(plan.Searches))) {
		return
	}

	if !emit("**Step 2/4**: Performing web searches...\n") {
		return
	}
	results := m.Search(ctx, plan)
	if ctx.Err() != nil {
		return
	}
	if len(results) == 0 {
		emit("❌ **Error**: No search results obtained")
		return
	}
	if !emit(fmt.Sprintf("✅ Completed %d searches\n\n", len(results))) {
		return
	}

	if !emit("**Step 3/4**: Synthesizing research and writing report...\n") {
		return
	}
	report, err := m.Write(ctx, query, results)
	if err != nil {
		fail(err)
		return
	}
	if !emit("✅ Report completed\n\n") {
		return
	}

	if !emit("**Step 4/4**: Sending email...\n") {
		return
	}
	if err := m.Email(ctx, report); err != nil {
		log.Error().Err(err).Msg("email sending failed, continuing")
	}
	if !emit("✅ Email sent\n\n") {
		return
	}

	for _, s := range []string{"---\n", "# 📝 Research Complete\n\n", report.MarkdownReport} {
		if !emit(s) {
			return
		}
	}
	span.SetStatus(obs.StatusCodeOk, "")
	log.Info().Msg("research completed")
}

// Plan asks the planner for a search plan. The planner's input validator may
// reject the query.
func (m *Manager) Plan(ctx context.Context, query string) (WebSearchPlan, error) {
	res, err := m.runner().Run(ctx, m.Agents.Planner, "Query: "+query)
	if err != nil {
		return WebSearchPlan{}, fmt.Errorf("failed to plan searches: %w", err)
	}
	plan, err := core.Output[WebSearchPlan](res)
	if err != nil {
		return WebSearchPlan{}, fmt.Errorf("failed to plan searches: %w", err)
	}
	return plan, nil
}

// Search runs every planned search concurrently. Results are in completion
// order and failed searches are dropped.
func (m *Manager) Search(ctx context.Context, plan WebSearchPlan) []string {
	log := obs.LoggerOr(m.Logger, "research")
	results, err := supervisor.Gather(ctx, m.Concurrency, plan.Searches, m.search)
	if err != nil {
		log.Warn().Err(err).Int("ok", len(results)).Int("planned", len(plan.Searches)).Msg("some searches failed")
	}
	return results
}

func (m *Manager) search(ctx context.Context, item WebSearchItem) (string, error) {
	input := fmt.Sprintf("Search term: %s\nReason for searching: %s", item.Query, item.Reason)
	res, err := m.runner().Run(ctx, m.Agents.Searcher, input)
	if err != nil {
		return "", fmt.Errorf("search %q: %w", item.Query, err)
	}
	return res.FinalOutput, nil
}

// Write produces the report from the search summaries. When the output
// validator asks for a disclaimer it is appended to the markdown.
func (m *Manager) Write(ctx context.Context, query string, results []string) (ReportData, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Original query: %s\n\nSummarized search results:\n", query)
	for i, r := range results {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d. %s", i+1, r)
	}
	res, err := m.runner().Run(ctx, m.Agents.Writer, b.String())
	if err != nil {
		return ReportData{}, fmt.Errorf("failed to write report: %w", err)
	}
	report, err := core.Output[ReportData](res)
	if err != nil {
		return ReportData{}, fmt.Errorf("failed to write report: %w", err)
	}
	if v, ok := res.GuardrailInfo[guardrail.OutputValidatorName].(guardrail.ReportValidationResult); ok && v.NeedsDisclaimer {
		report.MarkdownReport = guardrail.AddDisclaimer(report.MarkdownReport, v.QueryCategory)
	}
	return report, nil
}

// Email hands the report to the email agent.
func (m *Manager) Email(ctx context.Context, report ReportData) error {
	_, err := m.runner().Run(ctx, m.Agents.Emailer, report.MarkdownReport)
	return err
}

// sentence upper-cases the first letter of an error message shown to users.
func sentence(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

func truncate(s string, n int) string {
	if r := []rune(s); len(r) > n {
		return string(r[:n]) + "..."
	}
	return s
}
