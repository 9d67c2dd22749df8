package oracle

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

const maxPromptAttempts = 3

// Prompt asks a human on a terminal. Labels, when set, names alternatives
// by their rendered score vector.
type Prompt struct {
	in     *bufio.Reader
	out    io.Writer
	Labels map[string]string
}

func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{in: bufio.NewReader(in), out: out}
}

func (p *Prompt) label(a scoring.Alternative) string {
	if l, ok := p.Labels[a.String()]; ok {
		return l + " " + a.String()
	}
	return a.String()
}

func (p *Prompt) Ask(ctx context.Context, x, y scoring.Alternative) (scoring.Alternative, error) {
	for attempt := 0; attempt < maxPromptAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fmt.Fprintf(p.out, "Which do you prefer?\n  1) %s\n  2) %s\n> ", p.label(x), p.label(y))
		line, err := p.in.ReadString('\n')
		switch strings.TrimSpace(line) {
		case "1":
			return x, nil
		case "2":
			return y, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read answer: %w", err)
		}
		fmt.Fprintln(p.out, "please answer 1 or 2")
	}
	return nil, fmt.Errorf("no valid answer after %d attempts", maxPromptAttempts)
}
