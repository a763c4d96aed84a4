package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable. Credentials are checked by
// the commands that need them.
func (c *Config) Validate() error {
	if err := c.validateTrending(); err != nil {
		return err
	}
	if err := c.validateTopRecent(); err != nil {
		return err
	}
	if err := c.validatePatches(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if c.Endpoints.RequestsPerSecond < 0 {
		return errors.New("endpoints.requests_per_second must not be negative")
	}
	return nil
}

func (c *Config) validateTrending() error {
	t := c.Trending
	if strings.TrimSpace(t.Output) == "" {
		return errors.New("trending.output must be set")
	}
	if t.WindowDays <= 0 {
		return errors.New("trending.window_days must be positive")
	}
	if len(t.Tiers) == 0 {
		return errors.New("trending.tiers must not be empty")
	}
	if strings.TrimSpace(t.Tiers[len(t.Tiers)-1]) != "" {
		return errors.New("trending.tiers must end with an empty tier so the ladder always terminates on the base query")
	}
	switch t.Score {
	case "follows", "popularity":
	default:
		return fmt.Errorf("trending.score must be \"follows\" or \"popularity\", got %q", t.Score)
	}
	if t.Limit <= 0 || t.Workers <= 0 {
		return errors.New("trending.limit and trending.workers must be positive")
	}
	return nil
}

func (c *Config) validateTopRecent() error {
	t := c.TopRecent
	if strings.TrimSpace(t.Output) == "" {
		return errors.New("toprecent.output must be set")
	}
	if t.MinRatio < 0 || t.MinRatio > 1 {
		return errors.New("toprecent.min_ratio must be between 0 and 1")
	}
	if t.ReviewCeiling <= 0 {
		return errors.New("toprecent.review_ceiling must be positive")
	}
	if t.Limit <= 0 || t.Workers <= 0 || t.PoolSize <= 0 {
		return errors.New("toprecent.limit, toprecent.workers and toprecent.pool_size must be positive")
	}
	return nil
}

func (c *Config) validatePatches() error {
	p := c.Patches
	if strings.TrimSpace(p.Ledger) == "" {
		return errors.New("patches.ledger must be set")
	}
	if strings.TrimSpace(p.Output) == "" {
		return errors.New("patches.output must be set")
	}
	switch p.Source {
	case "steamcmd", "depot":
	default:
		return fmt.Errorf("patches.source must be \"steamcmd\" or \"depot\", got %q", p.Source)
	}
	if p.RecentHours <= 0 {
		return errors.New("patches.recent_hours must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not recognised", c.Logging.Level)
	}
	return nil
}

// RequireIGDB reports missing metadata API credentials.
func (c *Config) RequireIGDB() error {
	if c.Credentials.IGDBClientID == "" || c.Credentials.IGDBClientSecret == "" {
		return errors.New("missing credentials: set IGDB_CLIENT_ID and IGDB_CLIENT_SECRET (a .env file works too)")
	}
	return nil
}

// RequireSteamLogin reports a missing storefront login for the depot source.
func (c *Config) RequireSteamLogin() error {
	if c.Credentials.SteamUsername == "" || c.Credentials.SteamPassword == "" {
		return errors.New("missing credentials: set STEAM_USERNAME and STEAM_PASSWORD for patches.source = \"depot\"")
	}
	return nil
}
