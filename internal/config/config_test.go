package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gamefeed.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, used, err := load("", env(nil))

	require.NoError(t, err)
	require.Empty(t, used)
	want := Default()
	if diff := cmp.Diff(&want, cfg); diff != "" {
		t.Errorf("defaults changed (-want +got):\n%s", diff)
	}
}

func TestLoad_FileOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
[trending]
window_days = 14
platforms = [6]

[toprecent.search_params]
supportedlang = "french"

[patches]
matchers = ["keyword", "recent"]
`)

	cfg, used, err := load(path, env(nil))

	require.NoError(t, err)
	require.Equal(t, path, used)
	require.Equal(t, 14, cfg.Trending.WindowDays)
	require.Equal(t, []int64{6}, cfg.Trending.Platforms)
	require.Equal(t, "data/games.json", cfg.Trending.Output, "unset keys keep their defaults")
	require.Len(t, cfg.Trending.Tiers, 4)
	require.Equal(t, "french", cfg.TopRecent.SearchParams["supportedlang"])
	require.Equal(t, "998", cfg.TopRecent.SearchParams["category1"], "map keys merge instead of replacing")
	require.Equal(t, []string{"keyword", "recent"}, cfg.Patches.Matchers)
}

func TestLoad_FileZeroValuesReplaceDefaults(t *testing.T) {
	path := writeConfig(t, `
[endpoints]
requests_per_second = 0

[toprecent]
min_ratio = 0.0
excluded_genres = []
`)

	cfg, _, err := load(path, env(nil))

	require.NoError(t, err)
	require.Zero(t, cfg.Endpoints.RequestsPerSecond, "0 disables throttling")
	require.Zero(t, cfg.TopRecent.MinRatio)
	require.NotNil(t, cfg.TopRecent.ExcludedGenres)
	require.Empty(t, cfg.TopRecent.ExcludedGenres)
	require.Equal(t, int64(1600), cfg.TopRecent.MinReviews, "unset keys keep their defaults")
}

func TestLoad_BlankEnvironmentKeepsFileValue(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "debug"
`)

	cfg, _, err := load(path, env(map[string]string{"GAMEFEED_LOG_LEVEL": "  "}))

	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_PathFromEnvironment(t *testing.T) {
	path := writeConfig(t, "[logging]\nformat = \"json\"\n")

	cfg, used, err := load("", env(map[string]string{"GAMEFEED_CONFIG": path}))

	require.NoError(t, err)
	require.Equal(t, path, used)
	require.Equal(t, "json", cfg.Logging.Format)
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	_, _, err := load(filepath.Join(t.TempDir(), "nope.toml"), env(nil))
	require.Error(t, err)
}

func TestLoad_UnknownKeyFails(t *testing.T) {
	path := writeConfig(t, "[trending]\nwindow_dayz = 3\n")

	_, _, err := load(path, env(nil))

	require.ErrorContains(t, err, "parse config")
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, _, err := load("", env(map[string]string{
		"IGDB_CLIENT_ID":     "abc",
		"IGDB_CLIENT_SECRET": "shh",
		"GAMEFEED_IGDB_URL":  "http://127.0.0.1:9999",
		"GAMEFEED_LOG_LEVEL": "debug",
	}))

	require.NoError(t, err)
	require.Equal(t, "abc", cfg.Credentials.IGDBClientID)
	require.Equal(t, "http://127.0.0.1:9999", cfg.Endpoints.IGDB)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.NoError(t, cfg.RequireIGDB())
	require.Error(t, cfg.RequireSteamLogin())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"open-ended ladder", func(c *Config) { c.Trending.Tiers = []string{"follows > 3"} }, "empty tier"},
		{"no tiers", func(c *Config) { c.Trending.Tiers = nil }, "tiers"},
		{"bad score", func(c *Config) { c.Trending.Score = "vibes" }, "trending.score"},
		{"bad ratio", func(c *Config) { c.TopRecent.MinRatio = 1.5 }, "min_ratio"},
		{"bad source", func(c *Config) { c.Patches.Source = "scraper" }, "patches.source"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"negative rate", func(c *Config) { c.Endpoints.RequestsPerSecond = -1 }, "requests_per_second"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			require.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestRequireIGDB_MissingCredentials(t *testing.T) {
	cfg := Default()
	require.ErrorContains(t, cfg.RequireIGDB(), "IGDB_CLIENT_ID")
}
