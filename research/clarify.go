package research

import (
	"context"
	"fmt"
	"strings"

	"github.com/KamdynS/agent-contrib/llm"
)

// ConfidenceThreshold is the clarity score below which questions are asked.
const ConfidenceThreshold = 0.7

// ClarifyingQuestions is the clarifier's structured output.
type ClarifyingQuestions struct {
	ShouldAsk       bool     `json:"should_ask" jsonschema:"description=Whether these questions would significantly improve the research"`
	ConfidenceScore float64  `json:"confidence_score" jsonschema:"description=Confidence that the current query is clear enough (0-1),minimum=0,maximum=1" validate:"min=0,max=1"`
	Questions       []string `json:"questions" jsonschema:"description=List of 3 clarifying questions to improve research quality" validate:"max=5"`
}

const clarifierPrompt = `You are a research assistant that helps improve research queries.

Given a research query, analyze whether it needs clarification and generate exactly 3 helpful 
clarifying questions that would improve the research quality.

Consider these aspects:
1. **Scope**: Is the topic too broad or too narrow? 
   Example: "AI" → "Are you interested in AI applications in healthcare, or AI ethics?"

2. **Depth**: What level of detail is needed?
   Example: "quantum computing" → "Do you need a beginner overview or technical deep-dive?"

3. **Focus**: What specific aspect interests them most?
   Example: "climate change" → "Are you focused on causes, impacts, or solutions?"

4. **Format**: What type of output would be most useful?
   Example: "startup funding" → "Do you need statistics, case studies, or practical advice?"

Return a JSON object with these exact fields:
- should_ask (boolean): True if the query is vague/ambiguous and would benefit from clarification
- confidence_score (float): How clear the query is (1.0 = very clear, 0.0 = very ambiguous)
- questions (array of strings): Exactly 3 clarifying questions

Always generate 3 questions, but mark should_ask=false if the query is already sufficiently clear.`

// Clarifier generates clarifying questions for a query.
type Clarifier struct {
	Model llm.Client
}

// Questions asks the model whether query needs clarification.
func (c *Clarifier) Questions(ctx context.Context, query string) (ClarifyingQuestions, error) {
	res, err := llm.Generate[ClarifyingQuestions](ctx, c.Model,
		[]llm.Message{llm.UserMessage("Research Query: " + query)},
		llm.GenerateOptions{Name: "clarifying_questions", Instructions: clarifierPrompt})
	if err != nil {
		return ClarifyingQuestions{}, fmt.Errorf("clarify: %w", err)
	}
	return res.Data, nil
}

// NeedsClarification reports whether the questions are worth asking.
func NeedsClarification(q ClarifyingQuestions) bool {
	return q.ShouldAsk && q.ConfidenceScore < ConfidenceThreshold && len(q.Questions) > 0
}

// FormatQuestions renders q as markdown, or "" when it should not be asked.
func FormatQuestions(q ClarifyingQuestions) string {
	if !q.ShouldAsk {
		return ""
	}
	var b strings.Builder
	b.WriteString("## 🤔 Clarifying Questions\n\n")
	b.WriteString("To provide better research results, please help clarify:\n\n")
	for i, question := range q.Questions {
		fmt.Fprintf(&b, "**%d.** %s\n\n", i+1, question)
	}
	return b.String()
}

// RefineQuery folds the answered questions into query. Blank answers are
// skipped; with none left the query is returned unchanged.
func RefineQuery(query string, questions, answers []string) string {
	var ctxLines strings.Builder
	for i, q := range questions {
		if i >= len(answers) || strings.TrimSpace(answers[i]) == "" {
			continue
		}
		fmt.Fprintf(&ctxLines, "- %s → %s\n", q, answers[i])
	}
	if ctxLines.Len() == 0 {
		return query
	}
	return query + "\n\nAdditional Context:\n" + ctxLines.String()
}
