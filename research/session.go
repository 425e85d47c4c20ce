package research

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Session walks a user through clarifying questions one at a time.
type Session struct {
	Clarifier *Clarifier

	mu        sync.Mutex
	query     string
	questions []string
	answers   []string
}

// NewSession returns a session using clarifier.
func NewSession(clarifier *Clarifier) *Session { return &Session{Clarifier: clarifier} }

// Start generates questions for query and returns the first one, or a note
// that the query is already clear.
func (s *Session) Start(ctx context.Context, query string) (string, error) {
	if len(strings.TrimSpace(query)) < 3 {
		return "Please enter a research query first.", nil
	}
	q, err := s.Clarifier.Questions(ctx, query)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.query = query
	s.answers = nil
	if !NeedsClarification(q) {
		s.questions = nil
		return fmt.Sprintf("✅ Your query is clear (confidence: %.0f%%). No clarifying questions needed!", q.ConfidenceScore*100), nil
	}
	s.questions = append([]string(nil), q.Questions...)
	return s.questionText(0), nil
}

func (s *Session) questionText(i int) string {
	return fmt.Sprintf("## Question %d of %d\n\n%s", i+1, len(s.questions), s.questions[i])
}

// Answer records the answer to the current question and returns the next
// question or, after the last one, a summary of all answers.
func (s *Session) Answer(text string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.questions) == 0 {
		return "No active questions."
	}
	if len(s.answers) < len(s.questions) {
		s.answers = append(s.answers, text)
	}
	if next := len(s.answers); next < len(s.questions) {
		return s.questionText(next)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## ✅ All Questions Answered\n\n**Original Query:** %s\n\n**Context:**\n", s.query)
	for i, q := range s.questions {
		fmt.Fprintf(&b, "\n**Q%d:** %s\n**A%d:** %s\n", i+1, q, i+1, s.answers[i])
	}
	return b.String()
}

// Done reports whether every question has an answer.
func (s *Session) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.questions) > 0 && len(s.answers) == len(s.questions)
}

// RefinedQuery is the original query with the answers folded in.
func (s *Session) RefinedQuery() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RefineQuery(s.query, s.questions, s.answers)
}
