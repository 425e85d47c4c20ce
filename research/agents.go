// Package research is the deep research pipeline: clarify, plan, search,
// write and email, streamed as status lines.
package research

import (
	"fmt"

	core "github.com/KamdynS/agent-contrib/agent/core"
	"github.com/KamdynS/agent-contrib/guardrail"
	"github.com/KamdynS/agent-contrib/llm"
	"github.com/KamdynS/agent-contrib/tools"
)

// HowManySearches is the size of the manager's search plan.
const HowManySearches = 5

// WebSearchItem is one planned search.
type WebSearchItem struct {
	Reason string `json:"reason" jsonschema:"description=Clear explanation of why this search is important and what unique information it will provide" validate:"required"`
	Query  string `json:"query" jsonschema:"description=Specific and well-crafted search term optimized for web search engines" validate:"required"`
}

// WebSearchPlan is the planner's output.
type WebSearchPlan struct {
	Searches []WebSearchItem `json:"searches" jsonschema:"description=Strategic web searches to comprehensively answer the query" validate:"min=1,dive"`
}

// ReportData is the writer's output.
type ReportData struct {
	ShortSummary      string   `json:"short_summary" jsonschema:"description=A concise 2-3 sentence executive summary of the key findings and conclusions" validate:"required"`
	MarkdownReport    string   `json:"markdown_report" jsonschema:"description=The complete research report in well-formatted markdown" validate:"required"`
	FollowUpQuestions []string `json:"follow_up_questions" jsonschema:"description=3-5 suggested topics or questions for further research"`
}

var plannerPrompt = fmt.Sprintf(`You are an expert research strategist. Your task is to analyze a research query 
and create a comprehensive search plan.

Given a query, generate %[1]d distinct web searches that will cover different aspects 
and perspectives of the topic.

**Guidelines:**
1. Ensure searches cover breadth (different aspects) and depth (specific details)
2. Include searches for recent developments, historical context, and expert opinions
3. Consider primary sources, academic research, and practical applications
4. Avoid redundant searches - each should target unique information
5. Make search terms specific enough to get quality results

**Output Format:**
Return a JSON object with this exact structure:
{
  "searches": [
    {
      "reason": "explanation of why this search is important",
      "query": "the search term to use"
    },
    ...exactly %[1]d items...
  ]
}`, HowManySearches)

const searcherPrompt = `You are a skilled research analyst specializing in information extraction and synthesis.

**Task**: Given a search term, use the serper_search tool to search the web and produce a concise, high-quality summary.

**Process:**
1. Use the serper_search tool with the search query
2. Analyze the returned results (titles, snippets, links)
3. Synthesize a concise summary from the information

**Requirements:**
- Length: 2-3 paragraphs, under 300 words
- Focus: Capture key facts, data, and insights
- Style: Succinct and information-dense (no fluff)
- Quality: Prioritize credible sources and recent information
- Format: No introductions or conclusions - just the core information

**Output format:**
Provide ONLY the summary itself. No preambles like "Here's a summary" or "Based on the search".
This summary will be used by another agent to synthesize a comprehensive report.`

const writerPrompt = `You are a senior research analyst and expert writer specializing in comprehensive research reports.

**Task**: Create a detailed, well-structured research report from search results.

**Process:**
1. **Analyze** the original query and search results
2. **Outline** a logical structure that flows naturally
3. **Synthesize** information from multiple sources
4. **Write** a cohesive, professional report in the markdown_report field

**Report Structure (in markdown_report field):**
- **Executive Summary**: Key findings overview (2-3 sentences)
- **Introduction**: Context and scope
- **Main Sections**: Organized by themes/topics (use clear headings)
- **Key Findings**: Highlight important discoveries
- **Analysis**: Interpret patterns and implications
- **Conclusion**: Synthesize main points

**Writing Guidelines:**
- Length: 5-10 pages (minimum 1000 words)
- Format: Professional markdown with clear hierarchy
- Style: Clear, authoritative, objective
- Citations: Reference sources naturally in text
- Data: Include specific statistics and examples
- Balance: Present multiple perspectives when relevant

**REMEMBER**: Return ONLY valid JSON with the three required fields: short_summary, markdown_report, and follow_up_questions.`

const emailerPrompt = `You are an email communication specialist who creates professional, well-formatted emails.

**Task**: Convert a detailed research report into a beautiful HTML email.

**Email Structure:**
1. **Subject Line**: Clear, descriptive, professional (50-70 characters)
2. **Email Body (HTML)**: professional header, executive summary in a highlighted box,
   main content with clear sections, footer with the generation date.

**HTML Guidelines:**
- Use semantic HTML (h1, h2, h3, p, ul, ol)
- Include inline CSS for styling
- Use professional fonts (Arial, Helvetica, sans-serif)
- Make links clickable if any URLs present

Call the send_email function exactly once with your crafted subject and HTML body.`

// Agents are the definitions the Manager sequences.
type Agents struct {
	Planner  *core.Definition
	Searcher *core.Definition
	Writer   *core.Definition
	Emailer  *core.Definition
}

// NewAgents builds the pipeline agents on model. search is exposed to the
// searcher and send to the emailer; the planner and writer carry the research
// input and output validators.
func NewAgents(model llm.Client, search, send tools.Tool) *Agents {
	return &Agents{
		Planner: &core.Definition{
			Name:            "PlannerAgent",
			Instructions:    plannerPrompt,
			Model:           model,
			OutputSchema:    llm.SchemaFor[WebSearchPlan](),
			InputGuardrails: []core.InputGuardrail{guardrail.InputValidator(model)},
		},
		Searcher: &core.Definition{
			Name:         "SearchAgent",
			Instructions: searcherPrompt,
			Model:        model,
			Tools:        tools.NewRegistry(search),
		},
		Writer: &core.Definition{
			Name:             "WriterAgent",
			Instructions:     writerPrompt,
			Model:            model,
			OutputSchema:     llm.SchemaFor[ReportData](),
			OutputGuardrails: []core.OutputGuardrail{guardrail.OutputValidator(model)},
		},
		Emailer: &core.Definition{
			Name:         "EmailAgent",
			Instructions: emailerPrompt,
			Model:        model,
			Tools:        tools.NewRegistry(send),
			MaxTurns:     3,
		},
	}
}
