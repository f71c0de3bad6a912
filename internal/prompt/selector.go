package prompt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// maxChoiceAttempts is how many invalid answers Choose accepts before
// giving up.
const maxChoiceAttempts = 3

// Selector asks the user to pick one of several options.
type Selector struct {
	term  *Terminal
	title lipgloss.Style
}

// NewSelector creates a Selector sharing t's input.
func NewSelector(t *Terminal) *Selector {
	return &Selector{
		term:  t,
		title: lipgloss.NewRenderer(t.out).NewStyle().Bold(true).Underline(true),
	}
}

// Choose lists options under title and returns the zero-based index of
// the one picked. An empty answer, "q", end of input or too many invalid
// answers return ErrCanceled.
func (s *Selector) Choose(title string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, fmt.Errorf("%w: nothing to choose from", ErrCanceled)
	}

	fmt.Fprintln(s.term.out, s.title.Render(title))
	width := len(strconv.Itoa(len(options)))
	for i, option := range options {
		fmt.Fprintf(s.term.out, "  %*d) %s\n", width, i+1, option)
	}

	ask := fmt.Sprintf("Type a number from 1 to %d (empty to cancel): ", len(options))
	for attempt := 0; attempt < maxChoiceAttempts; attempt++ {
		answer, err := s.term.ReadLine(ask)
		if errors.Is(err, ErrNoInput) {
			return 0, ErrCanceled
		}
		if err != nil {
			return 0, err
		}

		answer = strings.TrimSpace(answer)
		if answer == "" || strings.EqualFold(answer, "q") {
			return 0, ErrCanceled
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		fmt.Fprintf(s.term.out, "%q is not one of the choices.\n", answer)
	}
	return 0, fmt.Errorf("%w: too many invalid answers", ErrCanceled)
}
