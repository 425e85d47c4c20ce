// Package workflow runs typed state graphs. Nodes receive the current state
// and return the next one; edges, static or routed, pick the node that runs
// after. Compiled graphs checkpoint per thread so a conversation can resume.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	obs "github.com/KamdynS/agent-contrib/observability"
)

const (
	// START is the virtual entry node.
	START = "__start__"
	// END is the virtual exit node.
	END = "__end__"

	// DefaultRecursionLimit bounds the number of node executions per Invoke.
	DefaultRecursionLimit = 25
)

var (
	ErrNoEntry        = errors.New("workflow has no edge from START")
	ErrRecursionLimit = errors.New("workflow recursion limit reached")
	ErrUnknownNode    = errors.New("unknown node")
)

// NodeFunc executes one node.
type NodeFunc[S any] func(ctx context.Context, state S) (S, error)

// RouterFunc returns a route key for conditional edges.
type RouterFunc[S any] func(ctx context.Context, state S) string

// Event represents a single execution event for observability/streaming.
type Event struct {
	Type      string    `json:"type"` // "start_step", "end_step", "interrupt", "error"
	ThreadID  string    `json:"thread_id,omitempty"`
	Step      string    `json:"step"`
	Next      string    `json:"next,omitempty"`
	Status    string    `json:"status"` // "ok" or "error"
	Timestamp time.Time `json:"timestamp"`
	Output    any       `json:"output,omitempty"`
	Error     string    `json:"error,omitempty"`
}

type condEdge[S any] struct {
	router  RouterFunc[S]
	pathMap map[string]string
}

// Graph is a mutable graph definition. Builder errors are collected and
// reported by Compile.
type Graph[S any] struct {
	order []string
	nodes map[string]NodeFunc[S]
	edges map[string]string
	conds map[string]condEdge[S]
	err   error
}

// New creates an empty graph.
func New[S any]() *Graph[S] {
	return &Graph[S]{
		nodes: make(map[string]NodeFunc[S]),
		edges: make(map[string]string),
		conds: make(map[string]condEdge[S]),
	}
}

func (g *Graph[S]) fail(format string, args ...any) *Graph[S] {
	if g.err == nil {
		g.err = fmt.Errorf(format, args...)
	}
	return g
}

// AddNode registers a node under name.
func (g *Graph[S]) AddNode(name string, fn NodeFunc[S]) *Graph[S] {
	switch {
	case name == "" || name == START || name == END:
		return g.fail("invalid node name %q", name)
	case fn == nil:
		return g.fail("node %s: nil func", name)
	}
	if _, dup := g.nodes[name]; dup {
		return g.fail("node %s already exists", name)
	}
	g.nodes[name] = fn
	g.order = append(g.order, name)
	return g
}

// AddEdge adds an unconditional edge. A node has at most one outgoing edge
// or one set of conditional edges.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	if from == END {
		return g.fail("edge from END")
	}
	if g.hasOutgoing(from) {
		return g.fail("node %s already has an outgoing edge", from)
	}
	g.edges[from] = to
	return g
}

// AddConditionalEdges routes from a node by the router's key. With a nil
// pathMap the key is taken as the target node name.
func (g *Graph[S]) AddConditionalEdges(from string, router RouterFunc[S], pathMap map[string]string) *Graph[S] {
	if router == nil {
		return g.fail("node %s: nil router", from)
	}
	if from == END {
		return g.fail("edge from END")
	}
	if g.hasOutgoing(from) {
		return g.fail("node %s already has an outgoing edge", from)
	}
	g.conds[from] = condEdge[S]{router: router, pathMap: pathMap}
	return g
}

func (g *Graph[S]) hasOutgoing(from string) bool {
	_, e := g.edges[from]
	_, c := g.conds[from]
	return e || c
}

func (g *Graph[S]) known(name string) bool {
	if name == END {
		return true
	}
	_, ok := g.nodes[name]
	return ok
}

// Compile validates the graph and returns a runnable copy.
func (g *Graph[S]) Compile(opts ...CompileOption[S]) (*Compiled[S], error) {
	if g.err != nil {
		return nil, g.err
	}
	if !g.hasOutgoing(START) {
		return nil, ErrNoEntry
	}
	for _, from := range append([]string{START}, g.order...) {
		if to, ok := g.edges[from]; ok && !g.known(to) {
			return nil, fmt.Errorf("edge %s -> %s: %w", from, to, ErrUnknownNode)
		}
		if c, ok := g.conds[from]; ok {
			for key, to := range c.pathMap {
				if !g.known(to) {
					return nil, fmt.Errorf("route %s[%s] -> %s: %w", from, key, to, ErrUnknownNode)
				}
			}
		}
		if from != START && !g.hasOutgoing(from) {
			return nil, fmt.Errorf("node %s has no outgoing edge", from)
		}
	}
	c := &Compiled[S]{graph: g, limit: DefaultRecursionLimit}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// CompileOption configures a compiled graph.
type CompileOption[S any] func(*Compiled[S])

// WithCheckpointer persists state per thread after every step.
func WithCheckpointer[S any](cp *Checkpointer[S]) CompileOption[S] {
	return func(c *Compiled[S]) { c.cp = cp }
}

// WithRecursionLimit overrides DefaultRecursionLimit.
func WithRecursionLimit[S any](n int) CompileOption[S] {
	return func(c *Compiled[S]) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithMerge combines a checkpointed state with the input of a new Invoke on
// the same thread. Without it the input replaces the saved state.
func WithMerge[S any](fn func(saved, input S) S) CompileOption[S] {
	return func(c *Compiled[S]) { c.merge = fn }
}

// Option configures workflow runs.
type Option func(*runConfig)

type runConfig struct {
	events chan<- Event
}

// WithEvents streams events to the provided channel during Invoke. Sends
// never block; events are dropped when the channel is full.
func WithEvents(events chan<- Event) Option { return func(rc *runConfig) { rc.events = events } }

// Compiled executes a validated graph.
type Compiled[S any] struct {
	graph *Graph[S]
	cp    *Checkpointer[S]
	limit int
	merge func(saved, input S) S
}

// Invoke runs the graph for threadID until END, an interrupt, or an error.
// The state reached so far is returned in every case.
func (c *Compiled[S]) Invoke(ctx context.Context, threadID string, input S, opts ...Option) (S, error) {
	rc := &runConfig{}
	for _, o := range opts {
		o(rc)
	}
	span, ctx := obs.TracerImpl.StartSpan(ctx, "workflow.invoke")
	defer span.End()
	span.SetAttribute("thread_id", threadID)

	state, cur, step, err := c.resume(ctx, threadID, input)
	if err != nil {
		span.SetStatus(obs.StatusCodeError, err.Error())
		return state, err
	}
	// A failed run is closed off so the thread's next input starts at START
	// from the last good state. Only interrupts re-enter mid-graph.
	fail := func(err error) (S, error) {
		if saveErr := c.save(context.WithoutCancel(ctx), threadID, step, cur, END, state); saveErr != nil {
			err = errors.Join(err, saveErr)
		}
		emit(rc, Event{Type: "error", ThreadID: threadID, Step: cur, Status: "error", Timestamp: time.Now(), Error: err.Error()})
		span.SetStatus(obs.StatusCodeError, err.Error())
		return state, err
	}
	for executed := 0; cur != END; executed++ {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}
		if executed >= c.limit {
			return fail(fmt.Errorf("%w (%d) at node %s", ErrRecursionLimit, c.limit, cur))
		}
		fn := c.graph.nodes[cur]
		emit(rc, Event{Type: "start_step", ThreadID: threadID, Step: cur, Status: "ok", Timestamp: time.Now()})
		out, err := fn(ctx, state)
		var ie *InterruptError
		if errors.As(err, &ie) {
			ie.Node = cur
			state = out
			if saveErr := c.save(ctx, threadID, step, cur, cur, state); saveErr != nil {
				return state, saveErr
			}
			emit(rc, Event{Type: "interrupt", ThreadID: threadID, Step: cur, Next: cur, Status: "ok", Timestamp: time.Now(), Error: ie.Error()})
			return state, err
		}
		if err != nil {
			return fail(fmt.Errorf("node %s: %w", cur, err))
		}
		state = out
		step++
		next, err := c.next(ctx, cur, state)
		if err != nil {
			return fail(err)
		}
		if err := c.save(ctx, threadID, step, cur, next, state); err != nil {
			return state, err
		}
		emit(rc, Event{Type: "end_step", ThreadID: threadID, Step: cur, Next: next, Status: "ok", Timestamp: time.Now(), Output: state})
		cur = next
	}
	span.SetStatus(obs.StatusCodeOk, "")
	return state, nil
}

func (c *Compiled[S]) resume(ctx context.Context, threadID string, input S) (S, string, int, error) {
	if c.cp == nil || threadID == "" {
		next, err := c.next(ctx, START, input)
		return input, next, 0, err
	}
	saved, ok, err := c.cp.Load(ctx, threadID)
	if err != nil {
		return input, "", 0, err
	}
	state := input
	if ok && c.merge != nil {
		state = c.merge(saved.State, input)
	}
	if ok && saved.Next != "" && saved.Next != END {
		return state, saved.Next, saved.Step, nil
	}
	step := 0
	if ok {
		step = saved.Step
	}
	next, err := c.next(ctx, START, state)
	return state, next, step, err
}

func (c *Compiled[S]) next(ctx context.Context, from string, state S) (string, error) {
	if to, ok := c.graph.edges[from]; ok {
		return to, nil
	}
	ce, ok := c.graph.conds[from]
	if !ok {
		return "", fmt.Errorf("node %s has no outgoing edge", from)
	}
	key := ce.router(ctx, state)
	to := key
	if ce.pathMap != nil {
		if to, ok = ce.pathMap[key]; !ok {
			return "", fmt.Errorf("route %s[%s]: %w", from, key, ErrUnknownNode)
		}
	}
	if !c.graph.known(to) {
		return "", fmt.Errorf("route %s -> %s: %w", from, to, ErrUnknownNode)
	}
	return to, nil
}

func (c *Compiled[S]) save(ctx context.Context, threadID string, step int, node, next string, state S) error {
	if c.cp == nil || threadID == "" {
		return nil
	}
	return c.cp.Save(ctx, Checkpoint[S]{ThreadID: threadID, Step: step, Node: node, Next: next, State: state})
}

// State returns the last checkpoint for threadID.
func (c *Compiled[S]) State(ctx context.Context, threadID string) (Checkpoint[S], bool, error) {
	if c.cp == nil {
		return Checkpoint[S]{}, false, nil
	}
	return c.cp.Load(ctx, threadID)
}

// Mermaid renders the compiled graph.
func (c *Compiled[S]) Mermaid(opts ...MermaidOption) string { return c.graph.Mermaid(opts...) }

func emit(rc *runConfig, e Event) {
	if rc != nil && rc.events != nil {
		select {
		case rc.events <- e:
		default:
		}
	}
}
