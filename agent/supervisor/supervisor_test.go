package supervisor

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	core "github.com/KamdynS/agent-contrib/agent/core"
	"github.com/KamdynS/agent-contrib/llm/llmtest"
)

type fakeAgent struct {
	reply string
	err   error
	delay time.Duration
}

func (f fakeAgent) Run(ctx context.Context, input core.Message) (core.Message, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return core.Message{}, ctx.Err()
		}
	}
	if f.err != nil {
		return core.Message{}, f.err
	}
	return core.Message{Role: "assistant", Content: f.reply + ":" + input.Content}, nil
}
func (f fakeAgent) RunStream(ctx context.Context, input core.Message, output chan<- core.Message) error {
	defer close(output)
	out, err := f.Run(ctx, input)
	if err != nil {
		return err
	}
	output <- out
	return nil
}

func TestAgentTool(t *testing.T) {
	at := &AgentTool{NameStr: "delegate", Desc: "wraps an agent", Agent: fakeAgent{reply: "ok"}}
	if at.Name() != "delegate" || at.Description() != "wraps an agent" {
		t.Fatalf("unexpected name/desc")
	}
	if _, ok := at.Schema()["type"]; !ok {
		t.Fatalf("schema should contain type")
	}
	out, err := at.Execute(context.Background(), "hello")
	if err != nil || out != "ok:hello" {
		t.Fatalf("execute failed: %v %q", err, out)
	}
	at.Agent = nil
	if _, err := at.Execute(context.Background(), "x"); err == nil {
		t.Fatalf("expected error on nil agent")
	}
}

func TestDefinitionToolUsesRunnerHooks(t *testing.T) {
	var started []string
	runner := core.NewRunner(core.HookFuncs{AgentStart: func(ctx context.Context, a *core.Definition) {
		started = append(started, a.Name)
	}})
	dt := &DefinitionTool{NameStr: "writer", Def: &core.Definition{Name: "WriterAgent", Model: llmtest.New(llmtest.Text("report"))}, Runner: runner}
	out, err := dt.Execute(context.Background(), "write")
	if err != nil || out != "report" {
		t.Fatalf("execute: %v %q", err, out)
	}
	if len(started) != 1 || started[0] != "WriterAgent" {
		t.Fatalf("runner hooks not used: %v", started)
	}
}

func TestSequentialPolicy(t *testing.T) {
	out, err := SequentialPolicy{}.Execute(context.Background(), "seed", []core.Agent{fakeAgent{reply: "A1"}, fakeAgent{reply: "A2"}})
	if err != nil || out != "A2:A1:seed" {
		t.Fatalf("unexpected output: %v %q", err, out)
	}
}

func TestFanOutFirst(t *testing.T) {
	p := FanOutFirst{}
	out, err := p.Execute(context.Background(), "q", []core.Agent{
		fakeAgent{err: errors.New("boom")},
		fakeAgent{reply: "SLOW", delay: time.Second},
		fakeAgent{reply: "OK"},
	})
	if err != nil || out != "OK:q" {
		t.Fatalf("expected first success, got %v %q", err, out)
	}

	_, err = p.Execute(context.Background(), "q", []core.Agent{fakeAgent{err: errors.New("e1")}, fakeAgent{err: errors.New("e2")}})
	if err == nil || !strings.Contains(err.Error(), "e1") || !strings.Contains(err.Error(), "e2") {
		t.Fatalf("expected joined error, got %v", err)
	}
}

func TestGatherSkipsFailuresAndBoundsConcurrency(t *testing.T) {
	var inFlight, peak int32
	items := []int{1, 2, 3, 4, 5, 6}
	out, err := Gather(context.Background(), 2, items, func(ctx context.Context, n int) (int, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		if n%3 == 0 {
			return 0, errors.New("skip")
		}
		return n * 10, nil
	})
	if err == nil {
		t.Fatalf("expected joined error for failed items")
	}
	sort.Ints(out)
	if len(out) != 4 || out[0] != 10 || out[3] != 50 {
		t.Fatalf("unexpected results: %v", out)
	}
	if atomic.LoadInt32(&peak) > 2 {
		t.Fatalf("limit exceeded: %d", peak)
	}
}
