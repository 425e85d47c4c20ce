package supervisor

import (
	"context"
	"errors"

	"github.com/sourcegraph/conc/pool"

	core "github.com/KamdynS/agent-contrib/agent/core"
)

// Policy defines how a supervisor coordinates agents.
type Policy interface {
	Execute(ctx context.Context, prompt string, agents []core.Agent) (string, error)
}

// SequentialPolicy calls agents one by one, feeding previous output to next.
type SequentialPolicy struct{}

func (SequentialPolicy) Execute(ctx context.Context, prompt string, agents []core.Agent) (string, error) {
	input := prompt
	for _, a := range agents {
		out, err := a.Run(ctx, core.Message{Role: "user", Content: input})
		if err != nil {
			return "", err
		}
		input = out.Content
	}
	return input, nil
}

// FanOutFirst runs all agents in parallel and returns the first success. The
// others are cancelled.
type FanOutFirst struct{}

func (FanOutFirst) Execute(ctx context.Context, prompt string, agents []core.Agent) (string, error) {
	if len(agents) == 0 {
		return "", errors.New("no agents")
	}
	ctx, cancel := context.WithCancel(ctx)

	type res struct {
		s   string
		err error
	}
	ch := make(chan res, len(agents))
	p := pool.New()
	for _, a := range agents {
		p.Go(func() {
			out, err := a.Run(ctx, core.Message{Role: "user", Content: prompt})
			ch <- res{out.Content, err}
		})
	}
	defer func() {
		cancel()
		p.Wait()
	}()

	var errs []error
	for range agents {
		r := <-ch
		if r.err == nil {
			return r.s, nil
		}
		errs = append(errs, r.err)
	}
	return "", errors.Join(errs...)
}

// Gather runs fn over items with at most limit in flight (0 means unbounded).
// Results arrive in completion order; failed items are left out and their
// errors joined into the returned error.
func Gather[In, Out any](ctx context.Context, limit int, items []In, fn func(ctx context.Context, item In) (Out, error)) ([]Out, error) {
	p := pool.NewWithResults[Out]().WithContext(ctx)
	if limit > 0 {
		p = p.WithMaxGoroutines(limit)
	}
	for _, item := range items {
		p.Go(func(ctx context.Context) (Out, error) {
			return fn(ctx, item)
		})
	}
	return p.Wait()
}
