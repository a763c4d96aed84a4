package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gauthierbraillon/gamefeed/internal/catalog"
	"github.com/gauthierbraillon/gamefeed/internal/igdb"
	"github.com/gauthierbraillon/gamefeed/internal/logging"
)

var released = time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

type fakeGames struct {
	mu       sync.Mutex
	byClause map[string][]catalog.Candidate
	base     []catalog.Candidate
	external map[int64]string
	names    map[catalog.Kind]map[int64]string
	pop      map[int64]map[int64]float64
	popErr   map[int64]error
	queries  []string
	resolved map[catalog.Kind][]int64
	popCalls int
}

func (f *fakeGames) Games(_ context.Context, q igdb.Query) ([]catalog.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	text := q.String()
	f.queries = append(f.queries, text)
	for clause, cands := range f.byClause {
		if strings.Contains(text, clause) {
			return cands, nil
		}
	}
	if strings.Contains(text, "follows >") {
		return nil, nil
	}
	return f.base, nil
}

func (f *fakeGames) ExternalGames(_ context.Context, _ []int64, _ int) (map[int64]string, error) {
	return f.external, nil
}

func (f *fakeGames) Resolve(_ context.Context, kind catalog.Kind, ids []int64) (map[int64]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.resolved == nil {
		f.resolved = make(map[catalog.Kind][]int64)
	}
	f.resolved[kind] = append(f.resolved[kind], ids...)
	out := make(map[int64]string)
	for _, id := range ids {
		if name, ok := f.names[kind][id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

func (f *fakeGames) Popularity(_ context.Context, gameID int64, _ []int64) (map[int64]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.popCalls++
	if err := f.popErr[gameID]; err != nil {
		return nil, err
	}
	return f.pop[gameID], nil
}

func candidates() []catalog.Candidate {
	return []catalog.Candidate{
		{ID: 1, Name: "Quiet Harbor", ReleasedAt: released, Platforms: []int64{6}, Cover: 11, Follows: 20},
		{ID: 2, Name: "Kite Season", ReleasedAt: released, Platforms: []int64{6, 167}, Follows: 50,
			Websites: []catalog.Website{{URL: "https://store.steampowered.com/app/777/Kite_Season/", Category: 13}}},
		{ID: 3, Name: "Console Only", ReleasedAt: released, Platforms: []int64{167}, Follows: 90},
	}
}

func trendingOptions(dir string) TrendingOptions {
	return TrendingOptions{
		Filter: igdb.BaseFilter{
			Window: catalog.LastDays(released.AddDate(0, 0, 5), 30),
			Limit:  50,
		},
		Tiers:   []string{"follows > 15", "follows > 3", ""},
		Score:   ScoreFollows,
		Limit:   6,
		Workers: 4,
		Output:  filepath.Join(dir, "games.json"),
	}
}

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func TestTrending_RelaxesToBaseTierAndRanksResolvedCandidates(t *testing.T) {
	dir := t.TempDir()
	source := &fakeGames{
		base:     candidates(),
		external: map[int64]string{1: "2400"},
		names: map[catalog.Kind]map[int64]string{
			catalog.KindPlatforms: {6: "PC (Microsoft Windows)"},
			catalog.KindCovers:    {11: "https://images.igdb.com/igdb/image/upload/t_cover_big/co11.jpg"},
		},
	}
	opts := trendingOptions(dir)
	opts.NoIDOutput = filepath.Join(dir, "noid.json")

	result, err := NewTrending(source, opts, logging.Discard()).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, result.Tier.Tier, "the two refined tiers match nothing")
	assert.Equal(t, 3, result.Tier.Attempts)
	assert.Equal(t, "tier 3 (base)", result.Tier.Name)
	require.Len(t, source.queries, 3)

	var games []Game
	readJSON(t, opts.Output, &games)
	require.Len(t, games, 2)

	assert.Equal(t, int64(2), games[0].ID, "higher follow count ranks first")
	assert.Equal(t, "777", games[0].AppID, "store link fills the missing join")
	assert.Nil(t, games[0].Cover)
	assert.Equal(t, []string{"PC (Microsoft Windows)", "Unknown"}, games[0].Platforms)
	assert.Equal(t, []string{}, games[0].Genres)

	assert.Equal(t, int64(1), games[1].ID)
	assert.Equal(t, "2400", games[1].AppID)
	assert.Equal(t, "https://store.steampowered.com/app/2400", games[1].StoreURL)
	assert.Equal(t, "https://steamcdn-a.akamaihd.net/steam/apps/2400/header.jpg", games[1].HeaderImage)
	require.NotNil(t, games[1].Cover)
	assert.Equal(t, "https://images.igdb.com/igdb/image/upload/t_cover_big/co11.jpg", *games[1].Cover)
	assert.Equal(t, "2025-10-01", games[1].Released)

	var noID []NoIDGame
	readJSON(t, opts.NoIDOutput, &noID)
	require.Len(t, noID, 1)
	assert.Equal(t, int64(3), noID[0].ID)
	assert.Equal(t, []catalog.Website{}, noID[0].Websites)

	assert.Len(t, result.Rows(), 2)
}

func TestTrending_EnrichesShortlistOnly(t *testing.T) {
	dir := t.TempDir()
	base := make([]catalog.Candidate, 0, 20)
	external := make(map[int64]string)
	for i := int64(1); i <= 20; i++ {
		base = append(base, catalog.Candidate{ID: i, Name: "game", Platforms: []int64{100 + i}, Follows: i})
		external[i] = "9"
	}
	source := &fakeGames{base: base, external: external}
	opts := trendingOptions(dir)
	opts.Limit = 3

	_, err := NewTrending(source, opts, logging.Discard()).Run(context.Background())

	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{120, 119, 118}, source.resolved[catalog.KindPlatforms],
		"only the three ranked games have their platforms resolved")
	assert.NotContains(t, source.resolved, catalog.KindCovers, "no covers means no cover lookup")
}

func TestTrending_FirstMatchingTierWins(t *testing.T) {
	dir := t.TempDir()
	strict := []catalog.Candidate{{ID: 8, Name: "Hyped", Follows: 400}}
	source := &fakeGames{
		byClause: map[string][]catalog.Candidate{"follows > 15": strict},
		base:     candidates(),
		external: map[int64]string{8: "80"},
	}

	result, err := NewTrending(source, trendingOptions(dir), logging.Discard()).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, result.Tier.Tier)
	assert.Len(t, source.queries, 1)
	require.Len(t, result.Games, 1)
	assert.Equal(t, "80", result.Games[0].AppID)
}

func TestTrending_EmptyBaseWritesEmptyList(t *testing.T) {
	dir := t.TempDir()
	source := &fakeGames{}

	result, err := NewTrending(source, trendingOptions(dir), logging.Discard()).Run(context.Background())

	require.NoError(t, err)
	assert.True(t, result.Tier.Empty())
	data, err := os.ReadFile(filepath.Join(dir, "games.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestTrending_PopularityFailureDropsToBottom(t *testing.T) {
	dir := t.TempDir()
	source := &fakeGames{
		base:     candidates(),
		external: map[int64]string{1: "10", 2: "20", 3: "30"},
		pop: map[int64]map[int64]float64{
			1: {1: 0.5, 2: 0.25},
			3: {1: 0.1},
		},
		popErr: map[int64]error{2: errors.New("upstream timeout")},
	}
	opts := trendingOptions(dir)
	opts.Score = ScorePopularity
	opts.PopularityTypes = []int64{1, 2}

	result, err := NewTrending(source, opts, logging.Discard()).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, source.popCalls)
	require.Len(t, result.Games, 3)
	ids := []int64{result.Games[0].ID, result.Games[1].ID, result.Games[2].ID}
	assert.Equal(t, []int64{1, 3, 2}, ids)
	assert.InDelta(t, 0.75, result.Games[0].Score, 1e-9)
	assert.Zero(t, result.Games[2].Score)
}

func TestTrending_QueryFailureAborts(t *testing.T) {
	dir := t.TempDir()
	opts := trendingOptions(dir)
	opts.Tiers = []string{"follows > 3"}

	_, err := NewTrending(&fakeGames{}, opts, logging.Discard()).Run(context.Background())

	require.Error(t, err, "an open-ended ladder is rejected")
	_, statErr := os.Stat(opts.Output)
	assert.True(t, os.IsNotExist(statErr), "nothing is written on failure")
}

func TestTiers_NamesAndRefinements(t *testing.T) {
	tiers := Tiers([]string{"follows > 15", " "})

	require.Len(t, tiers, 2)
	assert.Equal(t, "tier 1", tiers[0].Name)
	assert.Equal(t, "tier 2 (base)", tiers[1].Name)
	assert.Nil(t, tiers[1].Refine)
	assert.Equal(t, "fields name; where follows > 15;", tiers[0].Apply(igdb.NewQuery("name")).String())
}
