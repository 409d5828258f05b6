// Package oracle defines the preference oracle contract and its
// implementations: a simulated oracle with known weights, an interactive
// terminal prompt and a remote oracle reached over NATS.
package oracle

import (
	"context"
	"errors"
	"fmt"

	"github.com/MikeSquared-Agency/Elicit/internal/scoring"
)

var (
	// ErrContractViolation marks an oracle that broke its contract. It is
	// fatal to the run.
	ErrContractViolation = errors.New("oracle contract violation")
	// ErrDimensionMismatch is a contract violation caused by a query whose
	// vectors do not match the declared dimension.
	ErrDimensionMismatch = fmt.Errorf("%w: dimension mismatch", ErrContractViolation)
)

// Preference is an oracle answer.
type Preference int

const (
	PrefersFirst  Preference = 1
	PrefersSecond Preference = 2
)

// Valid reports whether p is one of the two defined answers.
func (p Preference) Valid() bool {
	return p == PrefersFirst || p == PrefersSecond
}

func (p Preference) String() string {
	switch p {
	case PrefersFirst:
		return "first"
	case PrefersSecond:
		return "second"
	default:
		return fmt.Sprintf("preference(%d)", int(p))
	}
}

// Oracle answers pairwise preference queries consistently with one hidden
// linear utility.
type Oracle interface {
	Query(ctx context.Context, p1, p2 scoring.Vector) (Preference, error)
}

// Func adapts a function to the Oracle interface.
type Func func(ctx context.Context, p1, p2 scoring.Vector) (Preference, error)

func (f Func) Query(ctx context.Context, p1, p2 scoring.Vector) (Preference, error) {
	return f(ctx, p1, p2)
}
