// Package config loads gamefeed settings.
//
// Settings start from Default, are overlaid with an optional TOML file and
// then with environment variables, and are finally validated. Credentials
// only ever come from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"dario.cat/mergo"
	"github.com/pelletier/go-toml/v2"
)

// DefaultFile is the config file picked up from the working directory.
const DefaultFile = "gamefeed.toml"

// Credentials are secrets read from the environment.
type Credentials struct {
	IGDBClientID     string `toml:"-"`
	IGDBClientSecret string `toml:"-"`
	SteamUsername    string `toml:"-"`
	SteamPassword    string `toml:"-"`
}

// Endpoints are the API base URLs. Tests point them at local servers.
type Endpoints struct {
	IGDB     string `toml:"igdb"`
	Token    string `toml:"token"`
	Store    string `toml:"store"`
	News     string `toml:"news"`
	SteamCMD string `toml:"steamcmd"`
	// RequestsPerSecond throttles each API host; 0 disables throttling.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// Trending configures the metadata-API ladder pipeline.
type Trending struct {
	Output         string  `toml:"output"`
	NoIDOutput     string  `toml:"no_id_output"`
	WindowDays     int     `toml:"window_days"`
	Platforms      []int64 `toml:"platforms"`
	ExcludedThemes []int64 `toml:"excluded_themes"`
	ExcludedGenres []int64 `toml:"excluded_genres"`
	Categories     []int64 `toml:"categories"`
	QueryLimit     int     `toml:"query_limit"`
	// Tiers are refinement clauses, strictest first. The last must be
	// empty so the ladder ends on the base query.
	Tiers []string `toml:"tiers"`
	// Score is "follows" or "popularity".
	Score           string  `toml:"score"`
	PopularityTypes []int64 `toml:"popularity_types"`
	Limit           int     `toml:"limit"`
	Workers         int     `toml:"workers"`
}

// TopRecent configures the storefront search pipeline.
type TopRecent struct {
	Output             string            `toml:"output"`
	PoolSize           int               `toml:"pool_size"`
	Untags             []int64           `toml:"untags"`
	SearchParams       map[string]string `toml:"search_params"`
	ExcludedGenres     []string          `toml:"excluded_genres"`
	ExcludedCategories []string          `toml:"excluded_categories"`
	MinReviews         int64             `toml:"min_reviews"`
	MinRatio           float64           `toml:"min_ratio"`
	ReviewCeiling      int64             `toml:"review_ceiling"`
	Limit              int               `toml:"limit"`
	Workers            int               `toml:"workers"`
}

// Patches configures the build tracker.
type Patches struct {
	Ledger    string `toml:"ledger"`
	Output    string `toml:"output"`
	CSVOutput string `toml:"csv_output"`
	// Source is "steamcmd" or "depot".
	Source        string `toml:"source"`
	DepotBinary   string `toml:"depot_binary"`
	DepotAssembly string `toml:"depot_assembly"`
	UpdateLedger  bool   `toml:"update_ledger"`
	// Matchers name the announcement heuristics, tried in order. Empty
	// disables the news lookup.
	Matchers    []string `toml:"matchers"`
	RecentHours int      `toml:"recent_hours"`
	Keywords    []string `toml:"keywords"`
	NewsCount   int      `toml:"news_count"`
}

// Logging configures the slog handler.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all gamefeed settings.
type Config struct {
	TokenDir    string      `toml:"token_dir"`
	Credentials Credentials `toml:"-"`
	Endpoints   Endpoints   `toml:"endpoints"`
	Trending    Trending    `toml:"trending"`
	TopRecent   TopRecent   `toml:"toprecent"`
	Patches     Patches     `toml:"patches"`
	Logging     Logging     `toml:"logging"`
}

// Load builds the configuration. An empty path falls back to
// $GAMEFEED_CONFIG and then to DefaultFile; a missing default file is not
// an error. It returns the file actually read, or "".
func Load(path string) (*Config, string, error) {
	return load(path, os.Getenv)
}

func load(path string, getenv func(string) string) (*Config, string, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = getenv("GAMEFEED_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultFile
	}

	used := ""
	switch err := readFile(path, &cfg); {
	case err == nil:
		used = path
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, "", err
	}

	if err := mergo.Merge(&cfg, envOverlay(getenv), mergo.WithOverride); err != nil {
		return nil, "", fmt.Errorf("merge environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, used, nil
}

// readFile decodes path onto cfg. Only keys present in the file are
// written, so zero values in the file replace the defaults.
func readFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// envOverlay collects the environment overrides. Unset or blank
// variables stay empty and leave the underlying value alone.
func envOverlay(getenv func(string) string) Config {
	var c Config
	set := func(dst *string, key string) {
		*dst = strings.TrimSpace(getenv(key))
	}
	set(&c.Credentials.IGDBClientID, "IGDB_CLIENT_ID")
	set(&c.Credentials.IGDBClientSecret, "IGDB_CLIENT_SECRET")
	set(&c.Credentials.SteamUsername, "STEAM_USERNAME")
	set(&c.Credentials.SteamPassword, "STEAM_PASSWORD")

	set(&c.Endpoints.IGDB, "GAMEFEED_IGDB_URL")
	set(&c.Endpoints.Token, "GAMEFEED_TOKEN_URL")
	set(&c.Endpoints.Store, "GAMEFEED_STORE_URL")
	set(&c.Endpoints.News, "GAMEFEED_NEWS_URL")
	set(&c.Endpoints.SteamCMD, "GAMEFEED_STEAMCMD_URL")

	set(&c.TokenDir, "GAMEFEED_TOKEN_DIR")
	set(&c.Logging.Format, "GAMEFEED_LOG_FORMAT")
	set(&c.Logging.Level, "GAMEFEED_LOG_LEVEL")
	return c
}
