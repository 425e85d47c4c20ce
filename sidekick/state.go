// Package sidekick is a worker/evaluator assistant on a workflow graph: the
// worker uses tools until it answers, the answer is checked for open
// questions, and an evaluator grades it against the user's success criteria.
package sidekick

import (
	"strings"

	"github.com/KamdynS/agent-contrib/llm"
)

// DefaultCriteria applies when the user gives no success criteria.
const DefaultCriteria = "Provide a clear, accurate, and helpful response"

// State flows through the sidekick graphs.
type State struct {
	Messages              []llm.Message      `json:"messages"`
	SuccessCriteria       string             `json:"success_criteria"`
	FeedbackOnWork        string             `json:"feedback_on_work,omitempty"`
	SuccessCriteriaMet    bool               `json:"success_criteria_met"`
	UserInputNeeded       bool               `json:"user_input_needed"`
	ClarificationQuestion string             `json:"clarification_question,omitempty"`
	GuardrailsIssues      []string           `json:"guardrails_issues,omitempty"`
	EventInput            *EventPlannerInput `json:"event_input,omitempty"`
}

// Last returns the newest message.
func (s State) Last() llm.Message {
	if len(s.Messages) == 0 {
		return llm.Message{}
	}
	return s.Messages[len(s.Messages)-1]
}

// appendMessages merges a new turn into a saved thread: messages accumulate,
// every other field comes from the new input.
func appendMessages(saved, input State) State {
	msgs := make([]llm.Message, 0, len(saved.Messages)+len(input.Messages))
	msgs = append(msgs, saved.Messages...)
	input.Messages = append(msgs, input.Messages...)
	return input
}

// EvaluatorOutput is the evaluator's verdict.
type EvaluatorOutput struct {
	Feedback           string `json:"feedback" jsonschema:"description=Feedback on the assistant's response" validate:"required"`
	SuccessCriteriaMet bool   `json:"success_criteria_met" jsonschema:"description=Whether the success criteria have been met"`
	UserInputNeeded    bool   `json:"user_input_needed" jsonschema:"description=True if more input is needed from the user or clarifications or the assistant is stuck"`
}

// ClarificationOutput says whether a reply is asking the user something.
type ClarificationOutput struct {
	NeedsClarification bool     `json:"needs_clarification" jsonschema:"description=Whether clarification is needed"`
	Question           string   `json:"question,omitempty" jsonschema:"description=The clarification question to ask user"`
	MissingInfo        []string `json:"missing_info,omitempty" jsonschema:"description=List of missing information needed"`
}

// formatConversation renders user and assistant turns for the evaluator.
func formatConversation(msgs []llm.Message, toolPlaceholder string) string {
	var b strings.Builder
	for _, m := range msgs {
		switch m.Role {
		case llm.RoleUser:
			b.WriteString("User: " + m.Content + "\n\n")
		case llm.RoleAssistant:
			text := m.Content
			if text == "" {
				text = toolPlaceholder
			}
			b.WriteString("Assistant: " + text + "\n\n")
		}
	}
	return b.String()
}

// withSystem replaces the first system message with prompt, or prepends one.
func withSystem(msgs []llm.Message, prompt string) []llm.Message {
	out := make([]llm.Message, 0, len(msgs)+1)
	found := false
	for _, m := range msgs {
		if m.Role == llm.RoleSystem && !found {
			m.Content = prompt
			found = true
		}
		out = append(out, m)
	}
	if !found {
		out = append([]llm.Message{llm.SystemMessage(prompt)}, out...)
	}
	return out
}

// turnResult picks the reply and evaluator feedback out of a finished run.
// Runs that stopped for a clarification question have no feedback.
func turnResult(s State, feedbackPrefix string) (reply, feedback llm.Message, hasFeedback bool) {
	n := len(s.Messages)
	if n == 0 {
		return llm.Message{}, llm.Message{}, false
	}
	last := s.Messages[n-1]
	if last.Role == llm.RoleAssistant && strings.HasPrefix(last.Content, feedbackPrefix) && n >= 2 {
		return s.Messages[n-2], last, true
	}
	return last, llm.Message{}, false
}
