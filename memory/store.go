// Package memory defines the key/value, conversation and vector stores the
// agents keep state in. Backends live in subpackages.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is wrapped by every backend when a key or document is missing.
var ErrNotFound = errors.New("not found")

// Store defines the interface for agent memory/state management
type Store interface {
	// Store saves data with the given key
	Store(ctx context.Context, key string, value interface{}) error

	// Retrieve gets data by key
	Retrieve(ctx context.Context, key string) (interface{}, error)

	// Delete removes data by key
	Delete(ctx context.Context, key string) error

	// List returns all keys
	List(ctx context.Context) ([]string, error)

	// Clear removes all stored data
	Clear(ctx context.Context) error
}

// ConversationStore is a specialized interface for managing conversation history
type ConversationStore interface {
	Store

	// AppendMessage adds a message to the conversation
	AppendMessage(ctx context.Context, sessionID string, role, content string) error

	// GetMessages retrieves conversation history, oldest first
	GetMessages(ctx context.Context, sessionID string) ([]Message, error)

	// ClearSession removes all messages for a session
	ClearSession(ctx context.Context, sessionID string) error
}

// Message represents a conversation message
type Message struct {
	Role      string            `json:"role"`
	Content   string            `json:"content"`
	Timestamp int64             `json:"timestamp"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// VectorStore defines the interface for embedding based retrieval
type VectorStore interface {
	// AddDocument adds or replaces a document with its vector embedding
	AddDocument(ctx context.Context, id string, content string, embedding []float64) error

	// QuerySimilar returns the closest documents, best first
	QuerySimilar(ctx context.Context, queryEmbedding []float64, limit int) ([]Document, error)

	// DeleteDocument removes a document by ID
	DeleteDocument(ctx context.Context, id string) error

	// GetDocument retrieves a document by ID
	GetDocument(ctx context.Context, id string) (*Document, error)
}

// Document represents a stored document with its metadata
type Document struct {
	ID        string            `json:"id"`
	Content   string            `json:"content"`
	Embedding []float64         `json:"embedding"`
	Meta      map[string]string `json:"meta,omitempty"`
	Score     float64           `json:"score,omitempty"` // similarity, higher is closer
}

// Load reads key from s into T. Backends differ in what Retrieve hands back
// (the stored value in memory, decoded JSON from redis), so the value is
// round-tripped through JSON unless it already has type T.
func Load[T any](ctx context.Context, s Store, key string) (T, error) {
	var out T
	v, err := s.Retrieve(ctx, key)
	if err != nil {
		return out, err
	}
	if typed, ok := v.(T); ok {
		return typed, nil
	}
	var raw []byte
	switch x := v.(type) {
	case []byte:
		raw = x
	case json.RawMessage:
		raw = x
	default:
		if raw, err = json.Marshal(v); err != nil {
			return out, fmt.Errorf("load %s: %w", key, err)
		}
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("load %s: %w", key, err)
	}
	return out, nil
}
