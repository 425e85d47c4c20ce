package sidekick

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/KamdynS/agent-contrib/guardrail"
	"github.com/KamdynS/agent-contrib/llm"
	"github.com/KamdynS/agent-contrib/memory"
	"github.com/KamdynS/agent-contrib/memory/inmemory"
	obs "github.com/KamdynS/agent-contrib/observability"
	"github.com/KamdynS/agent-contrib/tools"
	"github.com/KamdynS/agent-contrib/workflow"
)

// EvaluationPrefix starts every evaluator message.
const EvaluationPrefix = "📊 Evaluation: "

const workerPrompt = `You are a highly capable AI assistant with access to many tools.
Your goal is to help the user complete their task successfully.

CURRENT DATE/TIME: %s

SUCCESS CRITERIA:
%s

IMPORTANT GUIDELINES:
1. If information is missing or unclear, ask a specific clarification question
2. Use tools proactively to gather information
3. For web searches, try multiple tools if one doesn't give good results
4. Be thorough but concise in your responses

AVAILABLE TOOLS:
%s
`

const feedbackPrompt = `
PREVIOUS ATTEMPT FEEDBACK:
Your last response did not meet the success criteria. Here's why:
%s

Please improve your response based on this feedback.
`

const clarificationSystem = "You are an analyzer that detects clarification questions."

const clarificationPrompt = `Analyze this assistant's response to determine if it's asking for clarification:

"%s"

Check if:
1. The response contains a question for the user
2. The assistant is asking for missing information
3. The assistant needs clarification to proceed

If yes, extract the clarification question.`

const evaluatorSystem = `You are an evaluator that determines if a task has been completed successfully.
Assess the assistant's response based on the given success criteria.
Be fair but thorough in your evaluation.`

const evaluatorPrompt = `CONVERSATION HISTORY:
%s

SUCCESS CRITERIA:
%s

ASSISTANT'S FINAL RESPONSE:
%s

EVALUATION INSTRUCTIONS:
1. Check if the success criteria is fully met
2. If the assistant says they completed an action (e.g., "I wrote the file"), trust them
3. Provide constructive feedback if criteria not met
4. Determine if more user input is needed

Previous feedback (if any): %s
`

// Config wires a Sidekick.
type Config struct {
	// Worker answers and calls tools. Evaluator and Clarifier default to it.
	Worker    llm.Client
	Evaluator llm.Client
	Clarifier llm.Client
	Tools     tools.Registry
	// Guardrails screens user messages. Nil skips validation.
	Guardrails *guardrail.Manager
	// Store holds thread checkpoints. Defaults to an in-memory store.
	Store          memory.Store
	RecursionLimit int
	Logger         *zerolog.Logger
}

// Sidekick is a checkpointed worker/evaluator conversation.
type Sidekick struct {
	ID         string
	Guardrails *guardrail.Manager

	worker    llm.Client
	evaluator llm.Client
	clarifier llm.Client
	tools     tools.Registry
	graph     *workflow.Compiled[State]
	logger    *zerolog.Logger
	now       func() time.Time
}

// New builds and compiles the sidekick graph.
func New(cfg Config) (*Sidekick, error) {
	s := &Sidekick{
		ID:         uuid.NewString(),
		Guardrails: cfg.Guardrails,
		worker:     cfg.Worker,
		evaluator:  cfg.Evaluator,
		clarifier:  cfg.Clarifier,
		tools:      cfg.Tools,
		logger:     cfg.Logger,
		now:        time.Now,
	}
	if s.evaluator == nil {
		s.evaluator = s.worker
	}
	if s.clarifier == nil {
		s.clarifier = s.worker
	}
	store := cfg.Store
	if store == nil {
		store = inmemory.NewStore()
	}

	g := workflow.New[State]().
		AddNode(nodeWorker, s.work).
		AddNode(nodeTools, toolNode(s.tools, s.logger)).
		AddNode(nodeClarification, s.checkClarification).
		AddNode(nodeEvaluator, s.evaluate).
		AddEdge(workflow.START, nodeWorker).
		AddConditionalEdges(nodeWorker, routeTools(nodeClarification), map[string]string{
			nodeTools: nodeTools, nodeClarification: nodeClarification,
		}).
		AddEdge(nodeTools, nodeWorker).
		AddConditionalEdges(nodeClarification, routeClarification, map[string]string{
			nodeEvaluator: nodeEvaluator, routeEnd: workflow.END,
		}).
		AddConditionalEdges(nodeEvaluator, routeEvaluation, map[string]string{
			nodeWorker: nodeWorker, routeEnd: workflow.END,
		})

	opts := []workflow.CompileOption[State]{
		workflow.WithCheckpointer(workflow.NewCheckpointer[State](store)),
		workflow.WithMerge(appendMessages),
	}
	if cfg.RecursionLimit > 0 {
		opts = append(opts, workflow.WithRecursionLimit[State](cfg.RecursionLimit))
	}
	compiled, err := g.Compile(opts...)
	if err != nil {
		return nil, fmt.Errorf("compile sidekick graph: %w", err)
	}
	s.graph = compiled
	return s, nil
}

// Graph exposes the compiled graph for diagrams and state inspection.
func (s *Sidekick) Graph() *workflow.Compiled[State] { return s.graph }

// Reset starts a fresh thread.
func (s *Sidekick) Reset() { s.ID = uuid.NewString() }

func (s *Sidekick) toolNames() string {
	if s.tools == nil {
		return "- none"
	}
	var b strings.Builder
	for _, name := range s.tools.List() {
		b.WriteString("- " + name + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *Sidekick) systemPrompt(st State) string {
	prompt := fmt.Sprintf(workerPrompt, s.now().Format("2006-01-02 15:04:05"), st.SuccessCriteria, s.toolNames())
	if st.FeedbackOnWork != "" {
		prompt += fmt.Sprintf(feedbackPrompt, st.FeedbackOnWork)
	}
	return prompt
}

func (s *Sidekick) work(ctx context.Context, st State) (State, error) {
	resp, err := s.worker.Chat(ctx, &llm.ChatRequest{
		Messages: withSystem(st.Messages, s.systemPrompt(st)),
		Tools:    tools.Definitions(s.tools),
	})
	if err != nil {
		return st, fmt.Errorf("worker: %w", err)
	}
	st.Messages = append(st.Messages, resp.AssistantMessage())
	return st, nil
}

func (s *Sidekick) checkClarification(ctx context.Context, st State) (State, error) {
	reply := st.Last().Content
	res, err := llm.Generate[ClarificationOutput](ctx, s.clarifier,
		[]llm.Message{llm.UserMessage(fmt.Sprintf(clarificationPrompt, reply))},
		llm.GenerateOptions{Name: "clarification", Instructions: clarificationSystem})
	if err != nil {
		log := obs.LoggerOr(s.logger, "sidekick")
		log.Debug().Err(err).Msg("clarification analysis failed, falling back to question mark")
		st.UserInputNeeded = strings.Contains(reply, "?")
		st.ClarificationQuestion = ""
		if st.UserInputNeeded {
			st.ClarificationQuestion = reply
		}
		return st, nil
	}
	st.UserInputNeeded = res.Data.NeedsClarification
	st.ClarificationQuestion = res.Data.Question
	return st, nil
}

func routeClarification(_ context.Context, st State) string {
	if st.UserInputNeeded {
		return routeEnd
	}
	return nodeEvaluator
}

func (s *Sidekick) evaluate(ctx context.Context, st State) (State, error) {
	previous := st.FeedbackOnWork
	if previous == "" {
		previous = "None"
	}
	prompt := fmt.Sprintf(evaluatorPrompt,
		formatConversation(st.Messages, "[Using tools...]"), st.SuccessCriteria, st.Last().Content, previous)
	res, err := llm.Generate[EvaluatorOutput](ctx, s.evaluator,
		[]llm.Message{llm.UserMessage(prompt)},
		llm.GenerateOptions{Name: "evaluation", Instructions: evaluatorSystem})
	if err != nil {
		return st, fmt.Errorf("evaluator: %w", err)
	}
	st.Messages = append(st.Messages, llm.AssistantText(EvaluationPrefix+res.Data.Feedback))
	st.FeedbackOnWork = res.Data.Feedback
	st.SuccessCriteriaMet = res.Data.SuccessCriteriaMet
	st.UserInputNeeded = res.Data.UserInputNeeded
	return st, nil
}

// RunSuperstep runs one user turn and returns the updated chat history.
func (s *Sidekick) RunSuperstep(ctx context.Context, message, criteria string, history []llm.Message) ([]llm.Message, error) {
	user := llm.UserMessage(message)
	out := append(append([]llm.Message(nil), history...), user)
	var warnings []string
	if s.Guardrails != nil {
		valid, issues := s.Guardrails.ValidateInput(ctx, message)
		if !valid {
			return append(out,
				llm.AssistantText("⚠️ Input validation failed:\n"+strings.Join(issues, "\n"))), nil
		}
		for _, issue := range issues {
			if strings.Contains(issue, "⚠️") {
				warnings = append(warnings, issue)
			}
		}
	}
	if strings.TrimSpace(criteria) == "" {
		criteria = DefaultCriteria
	}

	result, err := s.graph.Invoke(ctx, s.ID, State{
		Messages:         []llm.Message{user},
		SuccessCriteria:  criteria,
		GuardrailsIssues: warnings,
	})
	if err != nil {
		return history, err
	}

	if len(warnings) > 0 {
		out = append(out, llm.AssistantText(strings.Join(warnings, "\n")))
	}
	reply, feedback, ok := turnResult(result, EvaluationPrefix)
	out = append(out, llm.AssistantText(reply.Content))
	if ok {
		out = append(out, llm.AssistantText(feedback.Content))
	}
	return out, nil
}
