// Package inmemory provides process local memory backends.
package inmemory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/KamdynS/agent-contrib/memory"
)

// Store implements memory.Store over a map
type Store struct {
	mu   sync.RWMutex
	data map[string]interface{}
}

// NewStore creates a new in-memory store
func NewStore() *Store {
	return &Store{data: make(map[string]interface{})}
}

func (s *Store) Store(ctx context.Context, key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *Store) Retrieve(ctx context.Context, key string) (interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, exists := s.data[key]
	if !exists {
		return nil, fmt.Errorf("key %s: %w", key, memory.ErrNotFound)
	}
	return value, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// List returns keys in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	s.mu.RUnlock()
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]interface{})
	return nil
}

// kvStore lets ConversationStore embed Store without a field named Store
// hiding the Store method.
type kvStore = Store

// ConversationStore keeps sessions as message slices next to plain keys.
type ConversationStore struct {
	kvStore
	now func() time.Time
}

// NewConversationStore creates a new in-memory conversation store
func NewConversationStore() *ConversationStore {
	return &ConversationStore{kvStore: Store{data: make(map[string]interface{})}, now: time.Now}
}

func convKey(sessionID string) string { return "conversation:" + sessionID }

func (cs *ConversationStore) AppendMessage(ctx context.Context, sessionID string, role, content string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	key := convKey(sessionID)
	msgs, _ := cs.data[key].([]memory.Message)
	cs.data[key] = append(msgs, memory.Message{Role: role, Content: content, Timestamp: cs.now().Unix()})
	return nil
}

// GetMessages returns a copy of the session history.
func (cs *ConversationStore) GetMessages(ctx context.Context, sessionID string) ([]memory.Message, error) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	value, exists := cs.data[convKey(sessionID)]
	if !exists {
		return []memory.Message{}, nil
	}
	msgs, ok := value.([]memory.Message)
	if !ok {
		return nil, fmt.Errorf("invalid message format for session %s", sessionID)
	}
	return append([]memory.Message(nil), msgs...), nil
}

func (cs *ConversationStore) ClearSession(ctx context.Context, sessionID string) error {
	return cs.Delete(ctx, convKey(sessionID))
}

// VectorStore ranks documents by cosine similarity with a linear scan.
type VectorStore struct {
	mu   sync.RWMutex
	docs map[string]memory.Document
}

// NewVectorStore creates an empty vector store.
func NewVectorStore() *VectorStore {
	return &VectorStore{docs: make(map[string]memory.Document)}
}

func (v *VectorStore) AddDocument(ctx context.Context, id string, content string, embedding []float64) error {
	if len(embedding) == 0 {
		return fmt.Errorf("document %s: empty embedding", id)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.docs[id] = memory.Document{ID: id, Content: content, Embedding: append([]float64(nil), embedding...)}
	return nil
}

func (v *VectorStore) QuerySimilar(ctx context.Context, q []float64, limit int) ([]memory.Document, error) {
	if limit <= 0 {
		limit = 5
	}
	v.mu.RLock()
	out := make([]memory.Document, 0, len(v.docs))
	for _, d := range v.docs {
		d.Score = cosine(q, d.Embedding)
		out = append(out, d)
	}
	v.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].ID < out[j].ID
		}
		return out[i].Score > out[j].Score
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (v *VectorStore) DeleteDocument(ctx context.Context, id string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.docs, id)
	return nil
}

func (v *VectorStore) GetDocument(ctx context.Context, id string) (*memory.Document, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	d, ok := v.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, memory.ErrNotFound)
	}
	return &d, nil
}

func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

var (
	_ memory.Store             = (*Store)(nil)
	_ memory.ConversationStore = (*ConversationStore)(nil)
	_ memory.VectorStore       = (*VectorStore)(nil)
)
