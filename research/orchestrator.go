package research

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	core "github.com/KamdynS/agent-contrib/agent/core"
	"github.com/KamdynS/agent-contrib/agent/supervisor"
	"github.com/KamdynS/agent-contrib/llm"
	obs "github.com/KamdynS/agent-contrib/observability"
	"github.com/KamdynS/agent-contrib/tools"
)

// OrchestratorSearches is the plan size of the orchestrator's planning tool.
const OrchestratorSearches = 10

const orchestratorPrompt = `You are Deep Research Agent, an AI specialized in conducting in-depth research on various topics.
Your goal is to gather information, analyze data, and compile comprehensive reports based on user queries.
Follow these steps to complete your tasks:
1. Plan the Research Strategy: Use the Search Planning Tool to outline a research strategy, identifying key areas
to explore.
2. Conduct Research: Utilize the Search Tool to gather relevant information.
3. Analyze Findings: Review and analyze the collected data to extract meaningful insights.
   Continue using the Search Tool as needed to fill in any gaps.
4. Write the Report: Employ the Write Report Tool to write a report that addresses the user's query.
5. Deliver the Report: Use the Send Email Tool to send the completed report to the user or specified recipients.
Use all the tools provided to you effectively. Do not attempt to perform tasks outside of your capabilities.`

var simplePlannerPrompt = fmt.Sprintf("You are a helpful research assistant. Given a query, come up with a set of web searches "+
	"to perform to best answer the query. Output %d terms to query for.", OrchestratorSearches)

const simpleSearchPrompt = `You are a research assistant. Given a search term, you search the web for that term and produce a concise summary of the results. The summary must be 2-3 paragraphs and less than 300 words. Capture the main points. Write succinctly, no need to have complete sentences or good grammar. This will be consumed by someone synthesizing a report, so it's vital you capture the essence and ignore any fluff. Do not include any additional commentary other than the summary itself.`

const simpleWriterPrompt = `You are a senior researcher tasked with writing a cohesive report for a research query. You will be provided with the original query, and some initial research done by a research assistant.
You should first come up with an outline for the report that describes the structure and flow of the report. Then, generate the report and return that as your final output.
The final output should be in markdown format, and it should be lengthy and detailed. Aim for 5-10 pages of content, at least 1000 words.`

const simpleEmailPrompt = `You are able to send a nicely formatted HTML email based on a detailed report.
You will be provided with a detailed report. You should use your tool to send one email, providing the
report converted into clean, well presented HTML with an appropriate subject line.`

// Orchestrator is a single agent that drives planning, searching, writing and
// emailing through sub-agents exposed as tools.
type Orchestrator struct {
	Agent  *core.Definition
	Logger *zerolog.Logger
}

// NewOrchestrator wires the sub-agents on model.
func NewOrchestrator(model llm.Client, search, send tools.Tool) *Orchestrator {
	sub := &core.Runner{}
	asTool := func(name, desc string, def *core.Definition) tools.Tool {
		return &supervisor.DefinitionTool{NameStr: name, Desc: desc, Def: def, Runner: sub}
	}
	registry := tools.NewRegistry(
		asTool("web_search_planning_tool", "Generates a plan of web searches to perform given a research query.",
			&core.Definition{Name: "PlannerAgent", Instructions: simplePlannerPrompt, Model: model, OutputSchema: llm.SchemaFor[WebSearchPlan]()}),
		asTool("search_tool", "Searches the web for a term and summarizes the results.",
			&core.Definition{Name: "Search agent", Instructions: simpleSearchPrompt, Model: model, Tools: tools.NewRegistry(search)}),
		asTool("write_report_tool", "Writes a detailed markdown report from a query and research notes.",
			&core.Definition{Name: "WriterAgent", Instructions: simpleWriterPrompt, Model: model}),
		asTool("send_email_tool", "Sends a nicely formatted HTML email based on a detailed report.",
			&core.Definition{Name: "Email agent", Instructions: simpleEmailPrompt, Model: model, Tools: tools.NewRegistry(send), MaxTurns: 3}),
	)
	return &Orchestrator{Agent: &core.Definition{
		Name:         "Deep Research Agent",
		Instructions: orchestratorPrompt,
		Model:        model,
		Tools:        registry,
		MaxTurns:     30,
	}}
}

// Run streams "Starting: {tool}..." and "Completed: {tool}" as the agent
// works, then the final output. The channel is closed at the end of the run.
func (o *Orchestrator) Run(ctx context.Context, query string) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		emit := func(s string) {
			select {
			case out <- s:
			case <-ctx.Done():
			}
		}
		ctx, trace := obs.WithTrace(ctx, "Deep Research")
		defer obs.EndTrace(ctx)
		log := obs.LoggerOr(o.Logger, "research").With().Str("trace_id", trace.ID).Logger()
		log.Info().Str("trace_url", DefaultTraceURL+trace.ID).Msg("starting research agent")

		runner := core.NewRunner(core.HookFuncs{
			ToolStart: func(_ context.Context, _ *core.Definition, tool, _ string) { emit("Starting: " + tool + "...") },
			ToolEnd:   func(_ context.Context, _ *core.Definition, tool, _ string) { emit("Completed: " + tool) },
		})
		res, err := runner.Run(ctx, o.Agent, query)
		if err != nil {
			log.Error().Err(err).Msg("research agent failed")
			emit("\n\n❌ **Error**: Research process failed - " + err.Error())
			return
		}
		emit(res.FinalOutput)
	}()
	return out
}
