package oracle

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

// PromptFunc shows two rendered tuples and returns the user's choice.
type PromptFunc func(in io.Reader, out io.Writer, first, second string) (Preference, error)

// Interactive asks a person at a terminal.
type Interactive struct {
	in      io.Reader
	out     io.Writer
	columns []string
	prompt  PromptFunc
}

// NewInteractive builds a terminal oracle. columns labels each attribute in
// the rendered tuples and may be nil.
func NewInteractive(in io.Reader, out io.Writer, columns []string) *Interactive {
	return &Interactive{in: in, out: out, columns: columns, prompt: huhPrompt}
}

// WithPrompt replaces the prompt, mainly for tests.
func (o *Interactive) WithPrompt(p PromptFunc) *Interactive {
	o.prompt = p
	return o
}

func (o *Interactive) Query(ctx context.Context, p1, p2 scoring.Vector) (Preference, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(p1) != len(p2) {
		return 0, fmt.Errorf("%w: got %d and %d", ErrDimensionMismatch, len(p1), len(p2))
	}
	return o.prompt(o.in, o.out, o.render(p1), o.render(p2))
}

func (o *Interactive) render(p scoring.Vector) string {
	if len(o.columns) != len(p) {
		return p.String()
	}
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = o.columns[i] + "=" + strconv.FormatFloat(v, 'g', 6, 64)
	}
	return strings.Join(parts, "  ")
}

func huhPrompt(in io.Reader, out io.Writer, first, second string) (Preference, error) {
	choice := PrefersFirst
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[Preference]().
				Title("Which option do you prefer?").
				Options(
					huh.NewOption(first, PrefersFirst),
					huh.NewOption(second, PrefersSecond),
				).
				Value(&choice),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Accessible mode reads plain lines when input is not a terminal.
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return 0, fmt.Errorf("preference prompt: %w", err)
	}
	return choice, nil
}
