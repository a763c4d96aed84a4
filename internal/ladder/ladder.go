// Package ladder runs a base query through an ordered list of progressively
// looser refinements and keeps the first tier that matches anything.
//
// Tiers go from strictest to loosest. The final tier must leave the base
// query untouched, so the ladder always ends on the plain base predicate and
// a run only comes back empty when the base predicate itself matches nothing.
// An empty tier is not an error: the attempt is logged and the next tier is
// tried. A fetch error aborts the run.
package ladder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var (
	// ErrNoTiers is returned when Run is given an empty ladder.
	ErrNoTiers = errors.New("ladder: no tiers")
	// ErrOpenEnded is returned when the last tier still refines the base query.
	ErrOpenEnded = errors.New("ladder: last tier must not refine the base query")
)

// Tier is one strictness level. A nil Refine leaves the base query as is.
type Tier[Q any] struct {
	Name   string
	Refine func(Q) Q
}

// Apply returns the query this tier sends.
func (t Tier[Q]) Apply(base Q) Q {
	if t.Refine == nil {
		return base
	}
	return t.Refine(base)
}

// Result is the outcome of a ladder run.
type Result[T any] struct {
	// Tier is the zero-based index of the accepted tier, or of the last
	// tier when every tier came back empty.
	Tier     int
	Name     string
	Items    []T
	Attempts int
}

// Empty reports whether no tier matched anything.
func (r Result[T]) Empty() bool {
	return len(r.Items) == 0
}

// Option configures Run.
type Option func(*settings)

type settings struct {
	logger *slog.Logger
}

// WithLogger sets the logger used to report each attempt.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Validate checks the ladder invariants without running it.
func Validate[Q any](tiers []Tier[Q]) error {
	if len(tiers) == 0 {
		return ErrNoTiers
	}
	if tiers[len(tiers)-1].Refine != nil {
		return ErrOpenEnded
	}
	return nil
}

// Run tries each tier in order against base and stops at the first tier that
// yields at least one item.
func Run[Q, T any](ctx context.Context, base Q, tiers []Tier[Q], fetch func(ctx context.Context, query Q) ([]T, error), opts ...Option) (Result[T], error) {
	s := settings{logger: slog.Default()}
	for _, opt := range opts {
		opt(&s)
	}

	if err := Validate(tiers); err != nil {
		return Result[T]{}, err
	}

	result := Result[T]{Items: []T{}}
	for i, tier := range tiers {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		items, err := fetch(ctx, tier.Apply(base))
		result.Attempts++
		if err != nil {
			return result, fmt.Errorf("tier %d (%s): %w", i+1, tier.Name, err)
		}

		result.Tier = i
		result.Name = tier.Name
		if len(items) > 0 {
			result.Items = items
			s.logger.Info("tier matched",
				"tier", i+1,
				"tier_name", tier.Name,
				"matches", len(items),
			)
			return result, nil
		}
		s.logger.Info("tier empty, relaxing",
			"tier", i+1,
			"tier_name", tier.Name,
		)
	}

	s.logger.Warn("no candidates after all relaxations", "tiers", len(tiers))
	return result, nil
}
