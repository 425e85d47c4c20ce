package sidekick

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/KamdynS/agent-contrib/llm"
	"github.com/KamdynS/agent-contrib/memory"
	"github.com/KamdynS/agent-contrib/memory/inmemory"
	"github.com/KamdynS/agent-contrib/tools"
	"github.com/KamdynS/agent-contrib/workflow"
)

// EventFeedbackPrefix starts every event planner evaluator message.
const EventFeedbackPrefix = "Evaluator Feedback on this answer: "

// EventSandbox is the file root of the event planner's file tools.
const EventSandbox = "events"

// EventPlannerInput holds the fields the planner needs before it starts.
type EventPlannerInput struct {
	Country string `json:"country"`
	City    string `json:"city"`
	Date    string `json:"date" jsonschema:"description=Date must be given, e.g. 2026-10-13"`
	Vibe    string `json:"vibe" jsonschema:"description=What kind of vibe the user is looking for, e.g. House, Techno"`
	Budget  *int   `json:"budget,omitempty" jsonschema:"description=Max budget"`
}

// Missing lists the required fields that are still empty, in asking order.
func (in EventPlannerInput) Missing() []string {
	var missing []string
	if strings.TrimSpace(in.Country) == "" {
		missing = append(missing, "country")
	}
	if strings.TrimSpace(in.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(in.Date) == "" {
		missing = append(missing, "date (YYYY-MM-DD)")
	}
	if strings.TrimSpace(in.Vibe) == "" {
		missing = append(missing, "vibe (e.g. techno/house/hiphop/...)")
	}
	return missing
}

const intakeSystem = "Extract the event planning inputs from the user's message. " +
	"Do not invent missing information. If a required field is missing, ask the user for it"

const eventWorkerPrompt = `You are a helpful event planner assistant that can use tools to complete tasks.
You keep working on a task until either you have a question or need clarification from the user,
or the user input is incomplete. You have tools to browse the internet for the events, navigating and
retrieving web pages.

This is the success criteria:
%s

You should use the structured event input in %s.
You should reply either with a question for the user about this assignment, or with the final response.
If you have any question or you miss some user input, you need to reply by clearly stating your question.
An example might be:

Question: Please provide the missing city.

If you've finished, reply with the final answer, don't ask a question; simply reply with the answer.
`

const eventFeedbackPrompt = `
Previously you thought you completed the task, but your reply was rejected because the success criteria was not met.
Here is the feedback on why this was rejected:
%s
With this feedback, please continue the assignment, ensuring that you meet success criteria or have a specific question for the user.
`

const eventEvaluatorSystem = `You are an evaluator that determines if a task has been completed successfully.
Assess the Assistant's last response based on the given criteria. Respond with your feedback, and with your decision on whether the success criteria has been met,
and whether more input is needed from the user.`

const eventEvaluatorPrompt = `You are evaluating a conversation between the User and Assistant. You decide what action to take based on the last response from the Assistant.

The entire conversation with the assistant, with the user's original request and all replies, is:
%s

The success criteria for this assignment is:
%s

And the final response from the Assistant that you are evaluating is:
%s

Respond with your feedback, and decide if the success criteria is met by this response.
Also, decide if more user input is required, either because the assistant has a question, needs clarification, or seems to be stuck and unable to answer without help.

The Assistant has access to a tool to write files. If the Assistant says they have written a file, then you can assume they have done so.
Overall you should give the Assistant the benefit of the doubt if they say they've done something. But you should reject if you feel that more work should go into this.
`

// EventPlanner is the sidekick variant that collects event details before
// searching for events.
type EventPlanner struct {
	ID string

	model  llm.Client
	tools  tools.Registry
	graph  *workflow.Compiled[State]
	logger *zerolog.Logger
}

// NewEventPlanner compiles the intake, worker, tools and evaluator graph.
func NewEventPlanner(model llm.Client, reg tools.Registry, store memory.Store, logger *zerolog.Logger) (*EventPlanner, error) {
	if store == nil {
		store = inmemory.NewStore()
	}
	p := &EventPlanner{ID: uuid.NewString(), model: model, tools: reg, logger: logger}
	g := workflow.New[State]().
		AddNode(nodeIntake, p.intake).
		AddNode(nodeWorker, p.work).
		AddNode(nodeTools, toolNode(reg, logger)).
		AddNode(nodeEvaluator, p.evaluate).
		AddEdge(workflow.START, nodeIntake).
		AddConditionalEdges(nodeIntake, routeIntake, map[string]string{
			nodeWorker: nodeWorker, routeEnd: workflow.END,
		}).
		AddConditionalEdges(nodeWorker, routeTools(nodeEvaluator), map[string]string{
			nodeTools: nodeTools, nodeEvaluator: nodeEvaluator,
		}).
		AddEdge(nodeTools, nodeWorker).
		AddConditionalEdges(nodeEvaluator, routeEvaluation, map[string]string{
			nodeWorker: nodeWorker, routeEnd: workflow.END,
		})
	compiled, err := g.Compile(
		workflow.WithCheckpointer(workflow.NewCheckpointer[State](store)),
		workflow.WithMerge(appendMessages),
	)
	if err != nil {
		return nil, fmt.Errorf("compile event planner graph: %w", err)
	}
	p.graph = compiled
	return p, nil
}

// Graph exposes the compiled graph.
func (p *EventPlanner) Graph() *workflow.Compiled[State] { return p.graph }

// Reset starts a fresh thread.
func (p *EventPlanner) Reset() { p.ID = uuid.NewString() }

func lastUserText(msgs []llm.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == llm.RoleUser {
			return msgs[i].Content
		}
	}
	return ""
}

func (p *EventPlanner) intake(ctx context.Context, st State) (State, error) {
	res, err := llm.Generate[EventPlannerInput](ctx, p.model,
		[]llm.Message{llm.UserMessage(lastUserText(st.Messages))},
		llm.GenerateOptions{Name: "event_input", Instructions: intakeSystem})
	if err != nil {
		return st, fmt.Errorf("intake: %w", err)
	}
	if missing := res.Data.Missing(); len(missing) > 0 {
		st.UserInputNeeded = true
		st.EventInput = nil
		st.Messages = append(st.Messages, llm.AssistantText(
			"Question: I'm missing the following required info to start: "+strings.Join(missing, ", ")+". Please provide it."))
		return st, nil
	}
	in := res.Data
	st.EventInput = &in
	st.UserInputNeeded = false
	return st, nil
}

func routeIntake(_ context.Context, st State) string {
	if st.UserInputNeeded {
		return routeEnd
	}
	return nodeWorker
}

func (p *EventPlanner) work(ctx context.Context, st State) (State, error) {
	input, _ := json.Marshal(st.EventInput)
	prompt := fmt.Sprintf(eventWorkerPrompt, st.SuccessCriteria, input)
	if st.FeedbackOnWork != "" {
		prompt += fmt.Sprintf(eventFeedbackPrompt, st.FeedbackOnWork)
	}
	resp, err := p.model.Chat(ctx, &llm.ChatRequest{
		Messages: withSystem(st.Messages, prompt),
		Tools:    tools.Definitions(p.tools),
	})
	if err != nil {
		return st, fmt.Errorf("worker: %w", err)
	}
	st.Messages = append(st.Messages, resp.AssistantMessage())
	return st, nil
}

func formatEventConversation(msgs []llm.Message) string {
	var b strings.Builder
	b.WriteString("Conversation history: \n\n")
	for _, m := range msgs {
		switch m.Role {
		case llm.RoleUser:
			b.WriteString("User: " + m.Content + "\n")
		case llm.RoleAssistant:
			text := m.Content
			if text == "" {
				text = "[Tool use]"
			}
			b.WriteString("Assistant: " + text + "\n")
		}
	}
	return b.String()
}

func (p *EventPlanner) evaluate(ctx context.Context, st State) (State, error) {
	prompt := fmt.Sprintf(eventEvaluatorPrompt, formatEventConversation(st.Messages), st.SuccessCriteria, st.Last().Content)
	if st.FeedbackOnWork != "" {
		prompt += "Also, note that in a prior attempt from the Assistant, you provided this feedback: " + st.FeedbackOnWork + "\n"
		prompt += "If you're seeing the Assistant repeating the same mistakes, then consider responding that user input is required."
	}
	res, err := llm.Generate[EvaluatorOutput](ctx, p.model,
		[]llm.Message{llm.UserMessage(prompt)},
		llm.GenerateOptions{Name: "evaluation", Instructions: eventEvaluatorSystem})
	if err != nil {
		return st, fmt.Errorf("evaluator: %w", err)
	}
	st.Messages = append(st.Messages, llm.AssistantText(EventFeedbackPrefix+res.Data.Feedback))
	st.FeedbackOnWork = res.Data.Feedback
	st.SuccessCriteriaMet = res.Data.SuccessCriteriaMet
	st.UserInputNeeded = res.Data.UserInputNeeded
	return st, nil
}

// RunSuperstep runs one user turn and returns the updated chat history.
func (p *EventPlanner) RunSuperstep(ctx context.Context, message, criteria string, history []llm.Message) ([]llm.Message, error) {
	if strings.TrimSpace(criteria) == "" {
		criteria = DefaultCriteria
	}
	user := llm.UserMessage(message)
	result, err := p.graph.Invoke(ctx, p.ID, State{Messages: []llm.Message{user}, SuccessCriteria: criteria})
	if err != nil {
		return history, err
	}
	out := append(append([]llm.Message(nil), history...), user)
	reply, feedback, ok := turnResult(result, EventFeedbackPrefix)
	out = append(out, llm.AssistantText(reply.Content))
	if ok {
		out = append(out, llm.AssistantText(feedback.Content))
	}
	return out, nil
}
