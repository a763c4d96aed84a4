package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gauthierbraillon/gamefeed/internal/display"
	"github.com/gauthierbraillon/gamefeed/internal/logging"
	"github.com/gauthierbraillon/gamefeed/internal/output"
	"github.com/gauthierbraillon/gamefeed/internal/rank"
	"github.com/gauthierbraillon/gamefeed/internal/steam"
	"github.com/gauthierbraillon/gamefeed/internal/xref"
)

// Storefront is the store API as the top-recent run uses it.
type Storefront interface {
	Search(ctx context.Context, filter steam.SearchFilter) ([]steam.SearchItem, error)
	AppDetails(ctx context.Context, appID string) (steam.AppDetails, error)
	Reviews(ctx context.Context, appID string) (steam.Reviews, error)
}

// CapsuleSource looks up library artwork.
type CapsuleSource interface {
	CapsuleURL(ctx context.Context, appID string) (string, error)
}

// TopRecentOptions configures a top-recent run.
type TopRecentOptions struct {
	Search             steam.SearchFilter
	ExcludedGenres     []string
	ExcludedCategories []string
	MinReviews         int64
	MinRatio           float64
	ReviewCeiling      int64
	Limit              int
	Workers            int
	Output             string
}

// StoreGame is one entry of the top-recent output file.
type StoreGame struct {
	AppID         string  `json:"appid"`
	Name          string  `json:"name"`
	TotalReviews  int64   `json:"total_reviews"`
	TotalPositive int64   `json:"total_positive"`
	Ratio         float64 `json:"ratio"`
	WeightedScore float64 `json:"weighted_score"`
	CoverURL      *string `json:"cover_url"`
}

// TopRecentResult is the outcome of a top-recent run.
type TopRecentResult struct {
	Searched int
	NoID     int
	Excluded int
	Games    []StoreGame
}

// Rows renders the shortlist for the terminal summary.
func (r TopRecentResult) Rows() []display.Row {
	rows := make([]display.Row, 0, len(r.Games))
	for _, g := range r.Games {
		rows = append(rows, display.Row{
			Name:    g.Name,
			StoreID: g.AppID,
			Detail:  fmt.Sprintf("%.1f%% of %d reviews", g.Ratio*100, g.TotalReviews),
			Score:   g.WeightedScore,
			URL:     steam.StorePageURL(g.AppID),
		})
	}
	return rows
}

type storeItem struct {
	appID string
	name  string
}

// TopRecent ranks the newest storefront releases by review quality.
type TopRecent struct {
	store    Storefront
	capsules CapsuleSource
	opts     TopRecentOptions
	logger   *slog.Logger
}

// NewTopRecent creates a top-recent run. capsules may be nil, in which
// case covers are left empty.
func NewTopRecent(store Storefront, capsules CapsuleSource, opts TopRecentOptions, logger *slog.Logger) *TopRecent {
	if logger == nil {
		logger = slog.Default()
	}
	return &TopRecent{store: store, capsules: capsules, opts: opts, logger: logger}
}

// Run executes the pipeline and writes the output file.
func (t *TopRecent) Run(ctx context.Context) (TopRecentResult, error) {
	var result TopRecentResult

	hits, err := t.store.Search(ctx, t.opts.Search)
	if err != nil {
		return result, fmt.Errorf("storefront search failed: %w", err)
	}
	result.Searched = len(hits)

	items := make([]storeItem, 0, len(hits))
	for _, hit := range hits {
		appID, ok := xref.LogoPattern.Extract(hit.Logo)
		if !ok {
			t.logger.Debug("no app id in logo, skipping", "name", hit.Name)
			result.NoID++
			continue
		}
		if t.excluded(ctx, appID) {
			t.logger.Debug("excluded by genre or category", logging.FieldAppID, appID, "name", hit.Name)
			result.Excluded++
			continue
		}
		items = append(items, storeItem{appID: appID, name: hit.Name})
	}

	ranker := rank.New(t.reviews,
		rank.WithWorkers(t.opts.Workers),
		rank.WithLimit(t.opts.Limit),
		rank.WithScore(rank.CappedRatio(t.opts.ReviewCeiling)),
		rank.WithFilter(func(s rank.Signal) bool {
			return s.Total() > 0 && rank.MinReviews(t.opts.MinReviews, t.opts.MinRatio)(s)
		}),
		rank.WithLogger(logging.Component(t.logger, "ranker")),
	)
	shortlist := ranker.Rank(ctx, items)

	result.Games = make([]StoreGame, 0, len(shortlist))
	for _, r := range shortlist {
		result.Games = append(result.Games, StoreGame{
			AppID:         r.Item.appID,
			Name:          r.Item.name,
			TotalReviews:  r.Signal.Total(),
			TotalPositive: r.Signal.Positive,
			Ratio:         r.Signal.Ratio(),
			WeightedScore: r.Score,
			CoverURL:      t.cover(ctx, r.Item.appID),
		})
	}

	if err := output.WriteJSON(t.opts.Output, result.Games); err != nil {
		return result, err
	}
	t.logger.Info("top recent shortlist written",
		"searched", result.Searched,
		"excluded", result.Excluded,
		"shortlist", len(result.Games),
		"output", t.opts.Output,
	)
	return result, nil
}

func (t *TopRecent) reviews(ctx context.Context, item storeItem) (rank.Signal, error) {
	r, err := t.store.Reviews(ctx, item.appID)
	if err != nil {
		return rank.Signal{}, fmt.Errorf("reviews for app %s: %w", item.appID, err)
	}
	return rank.Signal{Positive: r.Positive, Negative: r.Negative}, nil
}

// excluded treats lookup errors as not excluded.
func (t *TopRecent) excluded(ctx context.Context, appID string) bool {
	if len(t.opts.ExcludedGenres) == 0 && len(t.opts.ExcludedCategories) == 0 {
		return false
	}
	details, err := t.store.AppDetails(ctx, appID)
	if err != nil {
		t.logger.Warn("app details lookup failed, keeping app", logging.FieldAppID, appID, logging.FieldError, err)
		return false
	}
	return details.Excluded(t.opts.ExcludedGenres, t.opts.ExcludedCategories)
}

func (t *TopRecent) cover(ctx context.Context, appID string) *string {
	if t.capsules == nil {
		return nil
	}
	url, err := t.capsules.CapsuleURL(ctx, appID)
	if err != nil {
		t.logger.Warn("cover lookup failed", logging.FieldAppID, appID, logging.FieldError, err)
		return nil
	}
	if url == "" {
		return nil
	}
	return &url
}
