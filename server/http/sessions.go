package http

import (
	"context"
	"sync"

	"github.com/KamdynS/agent-contrib/llm"
)

type sidekickSession struct {
	mu      sync.Mutex
	sk      Sidekick
	history []llm.Message
}

// sidekickPool keeps one sidekick and its visible history per session id.
type sidekickPool struct {
	mu       sync.Mutex
	newFn    func() (Sidekick, error)
	sessions map[string]*sidekickSession
}

func newSidekickPool(newFn func() (Sidekick, error)) *sidekickPool {
	return &sidekickPool{newFn: newFn, sessions: make(map[string]*sidekickSession)}
}

func (p *sidekickPool) get(id string) (*sidekickSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.sessions[id]; ok {
		return s, nil
	}
	sk, err := p.newFn()
	if err != nil {
		return nil, err
	}
	s := &sidekickSession{sk: sk}
	p.sessions[id] = s
	return s, nil
}

// turn serializes turns within a session; different sessions run in parallel.
func (p *sidekickPool) turn(ctx context.Context, id, message, criteria string) ([]llm.Message, error) {
	s, err := p.get(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	history, err := s.sk.RunSuperstep(ctx, message, criteria, s.history)
	if err != nil {
		return nil, err
	}
	s.history = history
	return append([]llm.Message(nil), history...), nil
}

func (p *sidekickPool) reset(id string) {
	p.mu.Lock()
	s, ok := p.sessions[id]
	p.mu.Unlock()
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sk.Reset()
	s.history = nil
}
