// Package pipeline wires the gamefeed stages into the runs behind each
// command: fetch, resolve, rank, enrich and write.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gauthierbraillon/gamefeed/internal/catalog"
	"github.com/gauthierbraillon/gamefeed/internal/display"
	"github.com/gauthierbraillon/gamefeed/internal/enrich"
	"github.com/gauthierbraillon/gamefeed/internal/igdb"
	"github.com/gauthierbraillon/gamefeed/internal/ladder"
	"github.com/gauthierbraillon/gamefeed/internal/logging"
	"github.com/gauthierbraillon/gamefeed/internal/output"
	"github.com/gauthierbraillon/gamefeed/internal/rank"
	"github.com/gauthierbraillon/gamefeed/internal/steam"
	"github.com/gauthierbraillon/gamefeed/internal/xref"
)

// GameSource is the metadata API as the trending run uses it.
type GameSource interface {
	xref.ExternalSource
	enrich.Resolver
	Games(ctx context.Context, q igdb.Query) ([]catalog.Candidate, error)
	Popularity(ctx context.Context, gameID int64, types []int64) (map[int64]float64, error)
}

// Score names accepted by TrendingOptions.
const (
	ScoreFollows    = "follows"
	ScorePopularity = "popularity"
)

// TrendingOptions configures a trending run.
type TrendingOptions struct {
	Filter igdb.BaseFilter
	// Tiers are refinement clauses, strictest first; "" means the base
	// query alone.
	Tiers           []string
	Score           string
	PopularityTypes []int64
	Limit           int
	Workers         int
	Output          string
	// NoIDOutput, when set, receives the candidates no storefront id was
	// found for.
	NoIDOutput string
}

// Game is one entry of the trending output file.
type Game struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Released    string   `json:"released"`
	ReleasedAt  int64    `json:"release_timestamp"`
	AppID       string   `json:"steam_appid"`
	StoreURL    string   `json:"store_url"`
	HeaderImage string   `json:"header_image"`
	Cover       *string  `json:"cover"`
	Platforms   []string `json:"platforms"`
	Genres      []string `json:"genres"`
	Themes      []string `json:"themes"`
	Follows     int64    `json:"follows"`
	Rating      float64  `json:"rating"`
	Score       float64  `json:"score"`
}

// NoIDGame is a candidate that could not be cross-referenced.
type NoIDGame struct {
	ID       int64             `json:"id"`
	Name     string            `json:"name"`
	Released string            `json:"released"`
	Websites []catalog.Website `json:"websites"`
}

// TrendingResult is the outcome of a trending run.
type TrendingResult struct {
	Tier  ladder.Result[catalog.Candidate]
	Games []Game
	NoID  []NoIDGame
}

// Rows renders the shortlist for the terminal summary.
func (r TrendingResult) Rows() []display.Row {
	rows := make([]display.Row, 0, len(r.Games))
	for _, g := range r.Games {
		rows = append(rows, display.Row{
			Name:     g.Name,
			StoreID:  g.AppID,
			Released: unixUTC(g.ReleasedAt),
			Detail:   strings.Join(g.Platforms, ", "),
			Score:    g.Score,
			URL:      g.StoreURL,
		})
	}
	return rows
}

// Tiers turns refinement clauses into ladder tiers.
func Tiers(clauses []string) []ladder.Tier[igdb.Query] {
	tiers := make([]ladder.Tier[igdb.Query], 0, len(clauses))
	for i, clause := range clauses {
		clause = strings.TrimSpace(clause)
		tier := ladder.Tier[igdb.Query]{Name: fmt.Sprintf("tier %d", i+1)}
		if clause != "" {
			tier.Refine = func(q igdb.Query) igdb.Query { return q.And(clause) }
		} else {
			tier.Name += " (base)"
		}
		tiers = append(tiers, tier)
	}
	return tiers
}

// Trending finds recent releases on the metadata API and ranks them.
type Trending struct {
	source GameSource
	opts   TrendingOptions
	logger *slog.Logger
}

// NewTrending creates a trending run.
func NewTrending(source GameSource, opts TrendingOptions, logger *slog.Logger) *Trending {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trending{source: source, opts: opts, logger: logger}
}

// Run executes the pipeline and writes the output files.
func (t *Trending) Run(ctx context.Context) (TrendingResult, error) {
	var result TrendingResult

	tiered, err := ladder.Run(ctx, t.opts.Filter.Query(), Tiers(t.opts.Tiers), t.source.Games,
		ladder.WithLogger(logging.Component(t.logger, "fetcher")))
	if err != nil {
		return result, fmt.Errorf("candidate query failed: %w", err)
	}
	result.Tier = tiered

	resolution := xref.NewResolver(t.source, xref.WithLogger(logging.Component(t.logger, "xref"))).
		Resolve(ctx, tiered.Items)
	result.NoID = noIDGames(resolution.Unresolved)

	ranker := rank.New(t.signal(),
		rank.WithWorkers(t.opts.Workers),
		rank.WithLimit(t.opts.Limit),
		rank.WithScore(t.score()),
		rank.WithLogger(logging.Component(t.logger, "ranker")),
	)
	shortlist := ranker.Rank(ctx, resolution.Resolved)

	cands := make([]catalog.Candidate, 0, len(shortlist))
	for _, r := range shortlist {
		cands = append(cands, r.Item)
	}
	maps, err := enrich.New(t.source, logging.Component(t.logger, "enricher")).Enrich(ctx,
		enrich.ForShortlist(cands, catalog.KindPlatforms, catalog.KindGenres, catalog.KindThemes, catalog.KindCovers))
	if err != nil {
		return result, err
	}

	result.Games = make([]Game, 0, len(shortlist))
	for _, r := range shortlist {
		result.Games = append(result.Games, newGame(r, maps))
	}

	if err := output.WriteJSON(t.opts.Output, result.Games); err != nil {
		return result, err
	}
	if t.opts.NoIDOutput != "" {
		if err := output.WriteJSON(t.opts.NoIDOutput, result.NoID); err != nil {
			return result, err
		}
	}

	t.logger.Info("trending shortlist written",
		logging.FieldTier, tiered.Name,
		"candidates", len(tiered.Items),
		"resolved", len(resolution.Resolved),
		"shortlist", len(result.Games),
		"output", t.opts.Output,
	)
	return result, nil
}

func (t *Trending) signal() func(context.Context, catalog.Candidate) (rank.Signal, error) {
	if t.opts.Score != ScorePopularity {
		return func(_ context.Context, c catalog.Candidate) (rank.Signal, error) {
			return rank.Signal{Count: c.Follows}, nil
		}
	}
	types := t.opts.PopularityTypes
	return func(ctx context.Context, c catalog.Candidate) (rank.Signal, error) {
		values, err := t.source.Popularity(ctx, c.ID, types)
		if err != nil {
			return rank.Signal{}, fmt.Errorf("popularity for game %d: %w", c.ID, err)
		}
		var sig rank.Signal
		if len(types) > 0 {
			sig.Primary = values[types[0]]
		}
		if len(types) > 1 {
			sig.Secondary = values[types[1]]
		}
		return sig, nil
	}
}

func (t *Trending) score() rank.ScoreFunc {
	if t.opts.Score == ScorePopularity {
		return rank.PrimitiveSum
	}
	return rank.RawCount
}

func newGame(r rank.Ranked[catalog.Candidate], maps enrich.Maps) Game {
	c := r.Item
	g := Game{
		ID:          c.ID,
		Name:        c.Name,
		AppID:       c.StoreID,
		StoreURL:    steam.StorePageURL(c.StoreID),
		HeaderImage: steam.HeaderURL(c.StoreID),
		Platforms:   maps.Names(catalog.KindPlatforms, c.Platforms),
		Genres:      maps.Names(catalog.KindGenres, c.Genres),
		Themes:      maps.Names(catalog.KindThemes, c.Themes),
		Follows:     c.Follows,
		Rating:      c.Rating,
		Score:       r.Score,
	}
	if c.Cover != 0 {
		g.Cover = maps.Value(catalog.KindCovers, c.Cover)
	}
	if !c.ReleasedAt.IsZero() {
		g.Released = c.ReleasedAt.UTC().Format(dateLayout)
		g.ReleasedAt = c.ReleasedAt.Unix()
	}
	return g
}

func noIDGames(cands []catalog.Candidate) []NoIDGame {
	out := make([]NoIDGame, 0, len(cands))
	for _, c := range cands {
		g := NoIDGame{ID: c.ID, Name: c.Name, Websites: c.Websites}
		if g.Websites == nil {
			g.Websites = []catalog.Website{}
		}
		if !c.ReleasedAt.IsZero() {
			g.Released = c.ReleasedAt.UTC().Format(dateLayout)
		}
		out = append(out, g)
	}
	return out
}
