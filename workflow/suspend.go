package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/KamdynS/agent-contrib/memory"
)

// Checkpoint is the persisted progress of one thread.
type Checkpoint[S any] struct {
	ThreadID  string    `json:"thread_id"`
	Step      int       `json:"step"`
	Node      string    `json:"node"`
	Next      string    `json:"next"` // END once the run finished
	State     S         `json:"state"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Checkpointer persists checkpoints in a memory.Store, so any backend
// (in-memory, redis) can hold graph state.
type Checkpointer[S any] struct {
	store  memory.Store
	prefix string
}

// NewCheckpointer stores checkpoints under "checkpoint:{thread}".
func NewCheckpointer[S any](store memory.Store) *Checkpointer[S] {
	return &Checkpointer[S]{store: store, prefix: "checkpoint:"}
}

func (c *Checkpointer[S]) Save(ctx context.Context, cp Checkpoint[S]) error {
	if cp.ThreadID == "" {
		return errors.New("checkpoint without thread id")
	}
	cp.UpdatedAt = time.Now().UTC()
	raw, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("checkpoint %s: %w", cp.ThreadID, err)
	}
	return c.store.Store(ctx, c.prefix+cp.ThreadID, json.RawMessage(raw))
}

// Load returns false when the thread has no checkpoint.
func (c *Checkpointer[S]) Load(ctx context.Context, threadID string) (Checkpoint[S], bool, error) {
	cp, err := memory.Load[Checkpoint[S]](ctx, c.store, c.prefix+threadID)
	if errors.Is(err, memory.ErrNotFound) {
		return Checkpoint[S]{}, false, nil
	}
	if err != nil {
		return Checkpoint[S]{}, false, err
	}
	return cp, true, nil
}

// Delete forgets a thread.
func (c *Checkpointer[S]) Delete(ctx context.Context, threadID string) error {
	return c.store.Delete(ctx, c.prefix+threadID)
}

// InterruptError pauses a run. The node's returned state is checkpointed and
// the next Invoke on the thread re-enters the same node.
type InterruptError struct {
	Node   string
	Reason string
}

func (e *InterruptError) Error() string {
	if e.Reason == "" {
		return "workflow interrupted at " + e.Node
	}
	return fmt.Sprintf("workflow interrupted at %s: %s", e.Node, e.Reason)
}

// Interrupt can be returned by a node to suspend execution.
func Interrupt(reason string) error { return &InterruptError{Reason: reason} }
