// Package prompt collects operator input for interactive commands.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/peterh/liner"
)

var (
	// ErrCancelled is returned when the operator declines a selection or aborts input.
	ErrCancelled = errors.New("prompt cancelled")

	// ErrInvalidChoice is returned when a selection answer matches no option.
	ErrInvalidChoice = errors.New("invalid choice")
)

// Terminal prompts on the controlling terminal with line editing and history.
type Terminal struct {
	state *liner.State
	out   io.Writer
}

// NewTerminal takes over the terminal until Close is called. Output that is not
// part of a prompt line (selection menus) goes to out.
func NewTerminal(out io.Writer) *Terminal {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	return &Terminal{state: state, out: out}
}

// Close restores the terminal.
func (t *Terminal) Close() error {
	return t.state.Close()
}

// Question asks for a line of free text.
func (t *Terminal) Question(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	answer, err := t.state.Prompt(question)
	if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
		return "", ErrCancelled
	}
	if err != nil {
		return "", fmt.Errorf("failed to read answer: %w", err)
	}
	answer = strings.TrimSpace(answer)
	if answer != "" {
		t.state.AppendHistory(answer)
	}
	return answer, nil
}

// Select lists options and asks for a 1-based choice; 0 cancels.
func (t *Terminal) Select(ctx context.Context, question string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, fmt.Errorf("%w: nothing to select", ErrInvalidChoice)
	}
	for {
		fmt.Fprintln(t.out, RenderMenu(options))
		answer, err := t.Question(ctx, fmt.Sprintf("%s [1-%d, 0 to cancel]: ", question, len(options)))
		if err != nil {
			return -1, err
		}
		index, err := ParseChoice(answer, options)
		if errors.Is(err, ErrInvalidChoice) {
			fmt.Fprintf(t.out, "%v, try again\n", err)
			continue
		}
		return index, err
	}
}

// RenderMenu formats options as a numbered list.
func RenderMenu(options []string) string {
	var b strings.Builder
	for i, opt := range options {
		fmt.Fprintf(&b, "[%d] %s\n", i+1, opt)
	}
	b.WriteString("[0] CANCEL")
	return b.String()
}

// ParseChoice maps an answer to an option index. The answer may be the
// 1-based number or the option text. "0" cancels.
func ParseChoice(answer string, options []string) (int, error) {
	answer = strings.TrimSpace(answer)
	if n, err := strconv.Atoi(answer); err == nil {
		switch {
		case n == 0:
			return -1, ErrCancelled
		case n >= 1 && n <= len(options):
			return n - 1, nil
		default:
			return -1, fmt.Errorf("%w: %d", ErrInvalidChoice, n)
		}
	}
	for i, opt := range options {
		if strings.EqualFold(opt, answer) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrInvalidChoice, answer)
}
