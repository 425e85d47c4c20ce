package workflow_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/KamdynS/agent-contrib/memory/inmemory"
	wf "github.com/KamdynS/agent-contrib/workflow"
)

type counter struct {
	Trail []string `json:"trail"`
	N     int      `json:"n"`
}

func appendNode(name string) wf.NodeFunc[counter] {
	return func(ctx context.Context, s counter) (counter, error) {
		s.Trail = append(append([]string(nil), s.Trail...), name)
		s.N++
		return s, nil
	}
}

func loopGraph(t *testing.T, until int, opts ...wf.CompileOption[counter]) *wf.Compiled[counter] {
	t.Helper()
	g := wf.New[counter]().
		AddNode("work", appendNode("work")).
		AddNode("check", appendNode("check")).
		AddEdge(wf.START, "work").
		AddEdge("work", "check").
		AddConditionalEdges("check", func(ctx context.Context, s counter) string {
			if s.N >= until {
				return "done"
			}
			return "again"
		}, map[string]string{"done": wf.END, "again": "work"})
	c, err := g.Compile(opts...)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return c
}

func TestInvoke_LoopsUntilRouterEnds(t *testing.T) {
	c := loopGraph(t, 6)
	events := make(chan wf.Event, 64)
	out, err := c.Invoke(context.Background(), "", counter{}, wf.WithEvents(events))
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if got := strings.Join(out.Trail, ","); got != "work,check,work,check,work,check" {
		t.Fatalf("unexpected trail %s", got)
	}
	close(events)
	var starts, ends int
	for e := range events {
		switch e.Type {
		case "start_step":
			starts++
		case "end_step":
			ends++
		}
	}
	if starts != 6 || ends != 6 {
		t.Fatalf("events: %d starts %d ends", starts, ends)
	}
}

func TestInvoke_RecursionLimit(t *testing.T) {
	c := loopGraph(t, 1000, wf.WithRecursionLimit[counter](7))
	out, err := c.Invoke(context.Background(), "", counter{})
	if !errors.Is(err, wf.ErrRecursionLimit) {
		t.Fatalf("expected recursion limit, got %v", err)
	}
	if out.N != 7 {
		t.Fatalf("expected 7 executed nodes, got %d", out.N)
	}

	def := loopGraph(t, 1000)
	out, err = def.Invoke(context.Background(), "", counter{})
	if !errors.Is(err, wf.ErrRecursionLimit) || out.N != wf.DefaultRecursionLimit {
		t.Fatalf("default limit: %v n=%d", err, out.N)
	}
}

func TestCompile_Validation(t *testing.T) {
	noop := func(ctx context.Context, s counter) (counter, error) { return s, nil }
	cases := map[string]*wf.Graph[counter]{
		"no entry":     wf.New[counter]().AddNode("a", noop).AddEdge("a", wf.END),
		"unknown":      wf.New[counter]().AddNode("a", noop).AddEdge(wf.START, "a").AddEdge("a", "b"),
		"dangling":     wf.New[counter]().AddNode("a", noop).AddEdge(wf.START, "a"),
		"duplicate":    wf.New[counter]().AddNode("a", noop).AddNode("a", noop),
		"reserved":     wf.New[counter]().AddNode(wf.END, noop),
		"two outgoing": wf.New[counter]().AddNode("a", noop).AddEdge(wf.START, "a").AddEdge("a", wf.END).AddEdge("a", "a"),
	}
	for name, g := range cases {
		if _, err := g.Compile(); err == nil {
			t.Errorf("%s: expected compile error", name)
		}
	}
}

func TestInvoke_NodeErrorAndBadRoute(t *testing.T) {
	boom := errors.New("boom")
	g := wf.New[counter]().
		AddNode("a", func(ctx context.Context, s counter) (counter, error) { return s, boom }).
		AddEdge(wf.START, "a").
		AddEdge("a", wf.END)
	c, _ := g.Compile()
	if _, err := c.Invoke(context.Background(), "", counter{}); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	g2 := wf.New[counter]().
		AddNode("a", appendNode("a")).
		AddEdge(wf.START, "a").
		AddConditionalEdges("a", func(ctx context.Context, s counter) string { return "nowhere" }, nil)
	c2, err := g2.Compile()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c2.Invoke(context.Background(), "", counter{}); !errors.Is(err, wf.ErrUnknownNode) {
		t.Fatalf("expected unknown node, got %v", err)
	}
}

func TestCheckpointer_ResumesAfterInterrupt(t *testing.T) {
	store := inmemory.NewStore()
	cp := wf.NewCheckpointer[counter](store)
	approved := false
	g := wf.New[counter]().
		AddNode("draft", appendNode("draft")).
		AddNode("approve", func(ctx context.Context, s counter) (counter, error) {
			if !approved {
				return s, wf.Interrupt("waiting for approval")
			}
			return appendNode("approve")(ctx, s)
		}).
		AddEdge(wf.START, "draft").
		AddEdge("draft", "approve").
		AddEdge("approve", wf.END)
	c, err := g.Compile(
		wf.WithCheckpointer(cp),
		wf.WithMerge(func(saved, input counter) counter { return saved }),
	)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	_, err = c.Invoke(ctx, "t1", counter{})
	var ie *wf.InterruptError
	if !errors.As(err, &ie) || ie.Node != "approve" {
		t.Fatalf("expected interrupt at approve, got %v", err)
	}
	saved, ok, err := c.State(ctx, "t1")
	if err != nil || !ok || saved.Next != "approve" || saved.State.N != 1 {
		t.Fatalf("unexpected checkpoint %+v ok=%v err=%v", saved, ok, err)
	}

	approved = true
	out, err := c.Invoke(ctx, "t1", counter{})
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if got := strings.Join(out.Trail, ","); got != "draft,approve" {
		t.Fatalf("resume should not redo draft: %s", got)
	}
	saved, _, _ = c.State(ctx, "t1")
	if saved.Next != wf.END || saved.Step != 2 {
		t.Fatalf("final checkpoint %+v", saved)
	}
}

func TestCheckpointer_FailedRunRestartsFromEntry(t *testing.T) {
	cp := wf.NewCheckpointer[counter](inmemory.NewStore())
	failReview := true
	g := wf.New[counter]().
		AddNode("work", appendNode("work")).
		AddNode("review", func(ctx context.Context, s counter) (counter, error) {
			if failReview {
				return s, errors.New("boom")
			}
			return appendNode("review")(ctx, s)
		}).
		AddEdge(wf.START, "work").
		AddEdge("work", "review").
		AddEdge("review", wf.END)
	c, err := g.Compile(wf.WithCheckpointer(cp), wf.WithMerge(func(saved, input counter) counter {
		saved.Trail = append(saved.Trail, input.Trail...)
		return saved
	}))
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if _, err := c.Invoke(ctx, "t", counter{Trail: []string{"in1"}}); err == nil {
		t.Fatal("expected review failure")
	}
	saved, ok, _ := c.State(ctx, "t")
	if !ok || saved.Next != wf.END || strings.Join(saved.State.Trail, ",") != "in1,work" {
		t.Fatalf("failed run should close the thread: %+v", saved)
	}

	failReview = false
	out, err := c.Invoke(ctx, "t", counter{Trail: []string{"in2"}})
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(out.Trail, ","); got != "in1,work,in2,work,review" {
		t.Fatalf("next input must start at work: %s", got)
	}
}

func TestCheckpointer_RecursionLimitClosesThread(t *testing.T) {
	cp := wf.NewCheckpointer[counter](inmemory.NewStore())
	c := loopGraph(t, 1000, wf.WithCheckpointer(cp), wf.WithRecursionLimit[counter](3))
	ctx := context.Background()
	if _, err := c.Invoke(ctx, "t", counter{}); !errors.Is(err, wf.ErrRecursionLimit) {
		t.Fatalf("expected recursion limit, got %v", err)
	}
	saved, ok, _ := c.State(ctx, "t")
	if !ok || saved.Next != wf.END {
		t.Fatalf("expected closed checkpoint, got %+v", saved)
	}
}

func TestCheckpointer_MergesCompletedThread(t *testing.T) {
	cp := wf.NewCheckpointer[counter](inmemory.NewStore())
	g := wf.New[counter]().
		AddNode("a", appendNode("a")).
		AddEdge(wf.START, "a").
		AddEdge("a", wf.END)
	c, _ := g.Compile(wf.WithCheckpointer(cp), wf.WithMerge(func(saved, input counter) counter {
		saved.Trail = append(saved.Trail, input.Trail...)
		return saved
	}))
	ctx := context.Background()
	_, _ = c.Invoke(ctx, "t", counter{Trail: []string{"in1"}})
	out, err := c.Invoke(ctx, "t", counter{Trail: []string{"in2"}})
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(out.Trail, ","); got != "in1,a,in2,a" {
		t.Fatalf("unexpected merged trail %s", got)
	}
}

func TestMermaid(t *testing.T) {
	c := loopGraph(t, 1)
	out := c.Mermaid(wf.WithConditionIndicators(true), wf.WithDirection("lr"))
	for _, want := range []string{
		"graph LR\n",
		"__start__ --> work\n",
		"work --> check\n",
		"check -.->|again| work\n",
		"check -.->|done| __end__\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in\n%s", want, out)
		}
	}
	if err := wf.Register("loop-test", c); err != nil {
		t.Fatal(err)
	}
	if err := wf.Register("loop-test", c); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
	if _, ok := wf.Get("loop-test"); !ok {
		t.Fatalf("registered graph missing")
	}
}
