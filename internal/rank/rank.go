// Package rank attaches a popularity signal to each item, orders the items
// by a derived score and keeps the top N.
//
// Signals are fetched with bounded parallelism. A failed fetch gives that
// item a zero signal and never cancels its siblings. Ordering is stable:
// items with equal scores keep their input order.
package rank

import (
	"context"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"
)

const (
	defaultWorkers = 8
	defaultLimit   = 6
)

// Signal is the secondary popularity data fetched for one item.
type Signal struct {
	// Positive and Negative are review counts.
	Positive int64 `json:"positive"`
	Negative int64 `json:"negative"`
	// Primary and Secondary are typed popularity primitives.
	Primary   float64 `json:"primary"`
	Secondary float64 `json:"secondary"`
	// Count is a raw popularity count such as followers.
	Count int64 `json:"count"`
}

// Total is the number of reviews.
func (s Signal) Total() int64 {
	return s.Positive + s.Negative
}

// Ratio is the share of positive reviews, zero without reviews.
func (s Signal) Ratio() float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return float64(s.Positive) / float64(total)
}

// ScoreFunc derives the ranking key from a signal.
type ScoreFunc func(Signal) float64

// RawCount scores by the raw popularity count.
func RawCount(s Signal) float64 {
	return float64(s.Count)
}

// CappedRatio scores min(total, ceiling) times the positive ratio.
func CappedRatio(ceiling int64) ScoreFunc {
	return func(s Signal) float64 {
		return float64(min(s.Total(), ceiling)) * s.Ratio()
	}
}

// PrimitiveSum scores the sum of the two popularity primitives.
func PrimitiveSum(s Signal) float64 {
	return s.Primary + s.Secondary
}

// FilterFunc decides whether a fetched item may be ranked at all.
type FilterFunc func(Signal) bool

// MinReviews keeps items with at least total reviews and at least the given
// positive ratio.
func MinReviews(total int64, ratio float64) FilterFunc {
	return func(s Signal) bool {
		return s.Total() >= total && s.Ratio() >= ratio
	}
}

// Ranked is an item with its signal and score.
type Ranked[T any] struct {
	Item   T
	Signal Signal
	Score  float64
	// Failed is set when the signal fetch errored and the zero signal was used.
	Failed bool
}

// Option configures a Ranker.
type Option func(*settings)

type settings struct {
	workers int
	limit   int
	score   ScoreFunc
	filter  FilterFunc
	logger  *slog.Logger
}

// WithWorkers bounds the number of concurrent signal fetches.
func WithWorkers(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLimit sets N, the shortlist size.
func WithLimit(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithScore sets the ranking key. The default is RawCount.
func WithScore(score ScoreFunc) Option {
	return func(s *settings) {
		if score != nil {
			s.score = score
		}
	}
}

// WithFilter drops items whose signal does not pass f before ordering.
func WithFilter(f FilterFunc) Option {
	return func(s *settings) {
		s.filter = f
	}
}

// WithLogger sets the logger used for failed fetches.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Ranker scores and orders items of type T.
type Ranker[T any] struct {
	fetch func(ctx context.Context, item T) (Signal, error)
	cfg   settings
}

// New creates a Ranker that fetches each item's signal with fetch.
func New[T any](fetch func(ctx context.Context, item T) (Signal, error), opts ...Option) *Ranker[T] {
	cfg := settings{
		workers: defaultWorkers,
		limit:   defaultLimit,
		score:   RawCount,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Ranker[T]{fetch: fetch, cfg: cfg}
}

// Rank fetches every signal, then returns the top N items by score.
func (r *Ranker[T]) Rank(ctx context.Context, items []T) []Ranked[T] {
	scored := r.Score(ctx, items)
	if r.cfg.filter != nil {
		scored = slices.DeleteFunc(scored, func(it Ranked[T]) bool {
			return !r.cfg.filter(it.Signal)
		})
	}
	return Top(scored, r.cfg.limit)
}

// Score fetches and scores every item, keeping input order.
func (r *Ranker[T]) Score(ctx context.Context, items []T) []Ranked[T] {
	out := make([]Ranked[T], len(items))

	// Workers never return an error, so the group never cancels siblings.
	var g errgroup.Group
	g.SetLimit(r.cfg.workers)
	for i, item := range items {
		g.Go(func() error {
			out[i] = r.scoreOne(ctx, i, item)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (r *Ranker[T]) scoreOne(ctx context.Context, index int, item T) Ranked[T] {
	ranked := Ranked[T]{Item: item}
	sig, err := r.fetch(ctx, item)
	if err != nil {
		r.cfg.logger.Warn("signal fetch failed, scoring zero",
			"index", index,
			"error", err,
		)
		ranked.Failed = true
		return ranked
	}
	ranked.Signal = sig
	ranked.Score = r.cfg.score(sig)
	return ranked
}

// Top sorts by descending score, ties keeping their input order, and
// truncates to n. The input slice is not modified.
func Top[T any](items []Ranked[T], n int) []Ranked[T] {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b Ranked[T]) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	if sorted == nil {
		sorted = []Ranked[T]{}
	}
	return sorted
}
