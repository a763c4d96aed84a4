package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/gauthierbraillon/gamefeed/internal/catalog"
	"github.com/gauthierbraillon/gamefeed/internal/config"
	"github.com/gauthierbraillon/gamefeed/internal/depot"
	"github.com/gauthierbraillon/gamefeed/internal/display"
	"github.com/gauthierbraillon/gamefeed/internal/igdb"
	"github.com/gauthierbraillon/gamefeed/internal/ledger"
	"github.com/gauthierbraillon/gamefeed/internal/logging"
	"github.com/gauthierbraillon/gamefeed/internal/patches"
	"github.com/gauthierbraillon/gamefeed/internal/pipeline"
	"github.com/gauthierbraillon/gamefeed/internal/steam"
	"github.com/gauthierbraillon/gamefeed/internal/steamcmd"
	"github.com/gauthierbraillon/gamefeed/pkg/browser"
	"github.com/gauthierbraillon/gamefeed/pkg/oauth"
)

// newTrendingCmd creates the trending subcommand.
func newTrendingCmd(a *app) *cobra.Command {
	var output string
	var limit, windowDays int
	var open bool

	cmd := &cobra.Command{
		Use:   "trending",
		Short: "Rank trending new releases from IGDB",
		Long: "Query IGDB for recent releases, relaxing the popularity filter tier by tier " +
			"until something matches, keep the games sold on Steam and write the top ranked ones.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := *a.cfg
			if output != "" {
				cfg.Trending.Output = output
			}
			if cmd.Flags().Changed("limit") {
				cfg.Trending.Limit = limit
			}
			if cmd.Flags().Changed("window-days") {
				cfg.Trending.WindowDays = windowDays
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := cfg.RequireIGDB(); err != nil {
				return err
			}

			ctx := cmd.Context()
			client, err := newIGDBClient(ctx, &cfg, a.logger)
			if err != nil {
				return err
			}

			t := cfg.Trending
			run := pipeline.NewTrending(client, pipeline.TrendingOptions{
				Filter: igdb.BaseFilter{
					Window:         catalog.LastDays(time.Now(), t.WindowDays),
					Platforms:      t.Platforms,
					ExcludedThemes: t.ExcludedThemes,
					ExcludedGenres: t.ExcludedGenres,
					Categories:     t.Categories,
					Limit:          t.QueryLimit,
				},
				Tiers:           t.Tiers,
				Score:           t.Score,
				PopularityTypes: t.PopularityTypes,
				Limit:           t.Limit,
				Workers:         t.Workers,
				Output:          t.Output,
				NoIDOutput:      t.NoIDOutput,
			}, a.logger)

			result, err := run.Run(ctx)
			if err != nil {
				return err
			}
			title := fmt.Sprintf("Trending releases (%s)", result.Tier.Name)
			show(cmd, title, result.Rows(), open)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output JSON file (default from config)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Number of games to keep")
	cmd.Flags().IntVar(&windowDays, "window-days", 0, "Release window in days")
	cmd.Flags().BoolVar(&open, "open", false, "Open the top game's store page in the browser")

	return cmd
}

// newTopRecentCmd creates the toprecent subcommand.
func newTopRecentCmd(a *app) *cobra.Command {
	var output string
	var limit int
	var open bool

	cmd := &cobra.Command{
		Use:   "toprecent",
		Short: "Rank the best reviewed recent Steam releases",
		Long: "Search the Steam store for the newest releases, drop excluded genres and " +
			"games with too few or too mixed reviews, and write the top ranked ones.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := *a.cfg
			if output != "" {
				cfg.TopRecent.Output = output
			}
			if cmd.Flags().Changed("limit") {
				cfg.TopRecent.Limit = limit
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			t := cfg.TopRecent
			run := pipeline.NewTopRecent(newStoreClient(&cfg), newSteamCMDClient(&cfg), pipeline.TopRecentOptions{
				Search: steam.SearchFilter{
					Untags: t.Untags,
					Params: t.SearchParams,
					Count:  t.PoolSize,
				},
				ExcludedGenres:     t.ExcludedGenres,
				ExcludedCategories: t.ExcludedCategories,
				MinReviews:         t.MinReviews,
				MinRatio:           t.MinRatio,
				ReviewCeiling:      t.ReviewCeiling,
				Limit:              t.Limit,
				Workers:            t.Workers,
				Output:             t.Output,
			}, a.logger)

			result, err := run.Run(cmd.Context())
			if err != nil {
				return err
			}
			show(cmd, "Top recent releases", result.Rows(), open)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output JSON file (default from config)")
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "Number of games to keep")
	cmd.Flags().BoolVar(&open, "open", false, "Open the top game's store page in the browser")

	return cmd
}

// newPatchesCmd creates the patches subcommand.
func newPatchesCmd(a *app) *cobra.Command {
	var output, ledgerPath string
	var updateLedger, open bool

	cmd := &cobra.Command{
		Use:   "patches",
		Short: "Report Steam apps whose build changed",
		Long: "Compare the latest public build of every app in the build ledger with the " +
			"recorded one and write an entry for each app that was updated.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := *a.cfg
			if output != "" {
				cfg.Patches.Output = output
			}
			if ledgerPath != "" {
				cfg.Patches.Ledger = ledgerPath
			}
			if cmd.Flags().Changed("update-ledger") {
				cfg.Patches.UpdateLedger = updateLedger
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			tracker, err := newTracker(&cfg, a.logger)
			if err != nil {
				return err
			}
			p := cfg.Patches
			run := pipeline.NewPatches(ledger.NewStore(p.Ledger), tracker, pipeline.PatchesOptions{
				Output:       p.Output,
				CSVOutput:    p.CSVOutput,
				UpdateLedger: p.UpdateLedger,
			}, a.logger)

			result, err := run.Run(cmd.Context())
			if err != nil {
				return err
			}
			show(cmd, "Updated builds", result.Rows(), open)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output JSON file (default from config)")
	cmd.Flags().StringVar(&ledgerPath, "ledger", "", "Build ledger CSV (default from config)")
	cmd.Flags().BoolVar(&updateLedger, "update-ledger", false, "Record the new builds in the ledger")
	cmd.Flags().BoolVar(&open, "open", false, "Open the first updated app's build history in the browser")

	return cmd
}

// show prints the shortlist and optionally opens its first page.
func show(cmd *cobra.Command, title string, rows []display.Row, open bool) {
	out := cmd.OutOrStdout()
	fmt.Fprint(out, display.NewTerminalFormatter().FormatShortlist(title, rows))
	if !open || len(rows) == 0 || rows[0].URL == "" {
		return
	}
	if err := browser.Open(rows[0].URL); err != nil {
		fmt.Fprintf(out, "Could not open browser. Please visit:\n%s\n", rows[0].URL)
	}
}

func newLimiter(cfg *config.Config) *rate.Limiter {
	if cfg.Endpoints.RequestsPerSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(cfg.Endpoints.RequestsPerSecond), 1)
}

func newIGDBClient(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*igdb.Client, error) {
	oauthConfig := oauth.TwitchConfig(cfg.Credentials.IGDBClientID, cfg.Credentials.IGDBClientSecret)
	if cfg.Endpoints.Token != "" {
		oauthConfig.TokenURL = cfg.Endpoints.Token
	}
	flow := oauth.NewFlow(oauthConfig)
	source := oauth.NewSource(flow, oauth.NewTokenStorage(cfg.TokenDir), "igdb", logging.Component(logger, "oauth"))
	token, err := source.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain IGDB token: %w", err)
	}
	return igdb.NewClient(cfg.Credentials.IGDBClientID, token,
		igdb.WithBaseURL(cfg.Endpoints.IGDB),
		igdb.WithRateLimit(newLimiter(cfg)),
	), nil
}

func newStoreClient(cfg *config.Config) *steam.Client {
	return steam.NewClient(
		steam.WithBaseURL(cfg.Endpoints.Store),
		steam.WithNewsURL(cfg.Endpoints.News),
		steam.WithRateLimit(newLimiter(cfg)),
	)
}

func newSteamCMDClient(cfg *config.Config) *steamcmd.Client {
	return steamcmd.NewClient(
		steamcmd.WithBaseURL(cfg.Endpoints.SteamCMD),
		steamcmd.WithRateLimit(newLimiter(cfg)),
	)
}

func newTracker(cfg *config.Config, logger *slog.Logger) (*patches.Tracker, error) {
	p := cfg.Patches

	var builds patches.BuildSource
	switch p.Source {
	case "depot":
		if err := cfg.RequireSteamLogin(); err != nil {
			return nil, err
		}
		builds = depot.NewLister(depot.Credentials{
			Username: cfg.Credentials.SteamUsername,
			Password: cfg.Credentials.SteamPassword,
		}, depot.WithCommand(p.DepotBinary, p.DepotAssembly))
	default:
		builds = newSteamCMDClient(cfg)
	}

	matchers, err := patches.ParseMatchers(p.Matchers, time.Duration(p.RecentHours)*time.Hour, p.Keywords)
	if err != nil {
		return nil, err
	}
	opts := []patches.Option{patches.WithLogger(logging.Component(logger, "tracker"))}
	if len(matchers) > 0 {
		opts = append(opts, patches.WithNews(newStoreClient(cfg), p.NewsCount, matchers...))
	}
	return patches.NewTracker(builds, opts...), nil
}
