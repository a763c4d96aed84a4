package config

import (
	"os"
	"path/filepath"
)

// Default returns the built-in settings.
func Default() Config {
	return Config{
		TokenDir: defaultTokenDir(),
		Endpoints: Endpoints{
			IGDB:              "https://api.igdb.com/v4",
			Token:             "https://id.twitch.tv/oauth2/token",
			Store:             "https://store.steampowered.com",
			News:              "https://api.steampowered.com",
			SteamCMD:          "https://api.steamcmd.net/v1",
			RequestsPerSecond: 4,
		},
		Trending: Trending{
			Output:         "data/games.json",
			WindowDays:     30,
			Platforms:      []int64{6, 48, 49, 130, 167, 169},
			ExcludedThemes: []int64{42},
			ExcludedGenres: []int64{},
			Categories:     []int64{0, 8, 9},
			QueryLimit:     50,
			Tiers: []string{
				"(follows > 15 | rating_count > 20 | aggregated_rating_count > 5) & cover != null & game_modes = (1)",
				"(follows > 8 | rating_count > 10)",
				"follows > 3",
				"",
			},
			Score:           "follows",
			PopularityTypes: []int64{1, 2},
			Limit:           6,
			Workers:         8,
		},
		TopRecent: TopRecent{
			Output:   "data/top_recent.json",
			PoolSize: 100,
			Untags: []int64{
				599, 701, 5055, 1667, 3978, 1100689, 24904, 3799, 1666, 1663, 10437, 21978,
				615955, 10383, 1084988, 1100687, 255534, 699, 4102, 1665, 4885, 4255, 5395, 5537, 1664,
				493, 1770, 353880, 597, 1718, 1645, 1754,
			},
			SearchParams: map[string]string{
				"category1":         "998",
				"category3":         "2",
				"controllersupport": "18",
				"supportedlang":     "english",
				"hidef2p":           "1",
				"filter":            "topsellers",
				"ndl":               "1",
			},
			ExcludedGenres:     []string{"Early Access"},
			ExcludedCategories: []string{},
			MinReviews:         1600,
			MinRatio:           0.90,
			ReviewCeiling:      2000,
			Limit:              3,
			Workers:            8,
		},
		Patches: Patches{
			Ledger:        "data/builds.csv",
			Output:        "data/temp.json",
			Source:        "steamcmd",
			DepotBinary:   "dotnet",
			DepotAssembly: "depotdownloader/DepotDownloader.dll",
			Matchers:      []string{},
			RecentHours:   48,
			Keywords:      []string{"patch", "update", "hotfix"},
			NewsCount:     5,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}

func defaultTokenDir() string {
	if base, err := os.UserCacheDir(); err == nil {
		return filepath.Join(base, "gamefeed")
	}
	return filepath.Join(os.TempDir(), "gamefeed")
}
