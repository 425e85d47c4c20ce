// Package redis persists memory stores in Redis. Values are JSON encoded,
// conversations are kept as one list per session.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/KamdynS/agent-contrib/memory"
	rds "github.com/redis/go-redis/v9"
)

// Store implements memory.Store. Keys are namespaced as prefix:key.
type Store struct {
	client rds.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewStore creates a store. A zero ttl keeps keys forever.
func NewStore(client rds.UniversalClient, ttl time.Duration, prefix string) *Store {
	return &Store{client: client, ttl: ttl, prefix: prefix}
}

// NewFromURL parses a redis:// URL and pings the server.
func NewFromURL(ctx context.Context, url string, ttl time.Duration, prefix string) (*Store, error) {
	opts, err := rds.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	client := rds.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewStore(client, ttl, prefix), nil
}

// Client exposes the underlying connection for stores sharing it.
func (s *Store) Client() rds.UniversalClient { return s.client }

func (s *Store) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *Store) Store(ctx context.Context, key string, value interface{}) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(key), b, s.ttl).Err()
}

func (s *Store) Retrieve(ctx context.Context, key string) (interface{}, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, rds.Nil) {
			return nil, fmt.Errorf("key %s: %w", key, memory.ErrNotFound)
		}
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(val, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

// List returns the keys under the prefix with the prefix stripped.
func (s *Store) List(ctx context.Context) ([]string, error) {
	raw, err := s.scan(ctx, s.key("*"))
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		if s.prefix != "" {
			k = strings.TrimPrefix(k, s.prefix+":")
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) scan(ctx context.Context, pattern string) ([]string, error) {
	var cursor uint64
	keys := []string{}
	for {
		ks, cur, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, ks...)
		if cur == 0 {
			return keys, nil
		}
		cursor = cur
	}
}

func (s *Store) Clear(ctx context.Context) error {
	keys, err := s.scan(ctx, s.key("*"))
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

var _ memory.Store = (*Store)(nil)

type kvStore = Store

// ConversationStore adds per-session message lists to Store.
type ConversationStore struct {
	*kvStore
}

// NewConversationStore creates a conversation store over client.
func NewConversationStore(client rds.UniversalClient, prefix string, ttl time.Duration) *ConversationStore {
	return &ConversationStore{kvStore: NewStore(client, ttl, prefix)}
}

func (cs *ConversationStore) convKey(sessionID string) string {
	return cs.key("conversation:" + sessionID)
}

func (cs *ConversationStore) AppendMessage(ctx context.Context, sessionID string, role, content string) error {
	key := cs.convKey(sessionID)
	b, err := json.Marshal(memory.Message{Role: role, Content: content, Timestamp: time.Now().Unix()})
	if err != nil {
		return err
	}
	pipe := cs.client.TxPipeline()
	pipe.RPush(ctx, key, b)
	if cs.ttl > 0 {
		pipe.Expire(ctx, key, cs.ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (cs *ConversationStore) GetMessages(ctx context.Context, sessionID string) ([]memory.Message, error) {
	vals, err := cs.client.LRange(ctx, cs.convKey(sessionID), 0, -1).Result()
	if err != nil {
		if errors.Is(err, rds.Nil) {
			return []memory.Message{}, nil
		}
		return nil, err
	}
	msgs := make([]memory.Message, 0, len(vals))
	for _, v := range vals {
		var m memory.Message
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("session %s: %w", sessionID, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (cs *ConversationStore) ClearSession(ctx context.Context, sessionID string) error {
	return cs.client.Del(ctx, cs.convKey(sessionID)).Err()
}

var _ memory.ConversationStore = (*ConversationStore)(nil)
