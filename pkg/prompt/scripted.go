package prompt

import (
	"context"
	"fmt"
	"sync"
)

// Scripted answers prompts from a fixed list, for tests and non-interactive runs.
type Scripted struct {
	mu      sync.Mutex
	answers []string
	asked   []string
}

// NewScripted returns a prompt that replays answers in order.
func NewScripted(answers ...string) *Scripted {
	return &Scripted{answers: answers}
}

// Question returns the next scripted answer.
func (s *Scripted) Question(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.asked = append(s.asked, question)
	if len(s.answers) == 0 {
		return "", fmt.Errorf("%w: no scripted answer for %q", ErrCancelled, question)
	}
	answer := s.answers[0]
	s.answers = s.answers[1:]
	return answer, nil
}

// Select resolves the next scripted answer against options.
func (s *Scripted) Select(ctx context.Context, question string, options []string) (int, error) {
	answer, err := s.Question(ctx, question)
	if err != nil {
		return -1, err
	}
	return ParseChoice(answer, options)
}

// Asked returns the questions asked so far.
func (s *Scripted) Asked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.asked...)
}

// Remaining returns the number of unused answers.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}
