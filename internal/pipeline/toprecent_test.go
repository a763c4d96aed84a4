package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gauthierbraillon/gamefeed/internal/logging"
	"github.com/gauthierbraillon/gamefeed/internal/steam"
)

type fakeStore struct {
	mu        sync.Mutex
	items     []steam.SearchItem
	searchErr error
	details   map[string]steam.AppDetails
	reviews   map[string]steam.Reviews
	detailErr error
	lookups   []string
}

func (f *fakeStore) Search(_ context.Context, _ steam.SearchFilter) ([]steam.SearchItem, error) {
	return f.items, f.searchErr
}

func (f *fakeStore) AppDetails(_ context.Context, appID string) (steam.AppDetails, error) {
	f.lookups = append(f.lookups, appID)
	if f.detailErr != nil {
		return steam.AppDetails{}, f.detailErr
	}
	return f.details[appID], nil
}

func (f *fakeStore) Reviews(_ context.Context, appID string) (steam.Reviews, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reviews[appID]
	if !ok {
		return steam.Reviews{}, errors.New("reviews unavailable")
	}
	return r, nil
}

type fakeCapsules map[string]string

func (f fakeCapsules) CapsuleURL(_ context.Context, appID string) (string, error) {
	url, ok := f[appID]
	if !ok {
		return "", errors.New("no such app")
	}
	return url, nil
}

func item(name, appID string) steam.SearchItem {
	return steam.SearchItem{Name: name, Logo: "https://shared.akamai.steamstatic.com/store_item_assets/steam/apps/" + appID + "/capsule_sm_120.jpg"}
}

func topRecentOptions(dir string) TopRecentOptions {
	return TopRecentOptions{
		ExcludedGenres: []string{"Early Access"},
		MinReviews:     1600,
		MinRatio:       0.90,
		ReviewCeiling:  2000,
		Limit:          3,
		Workers:        4,
		Output:         filepath.Join(dir, "top_recent.json"),
	}
}

func TestTopRecent_FiltersExcludesAndRanks(t *testing.T) {
	dir := t.TempDir()
	store := &fakeStore{
		items: []steam.SearchItem{
			item("Big Hit", "10"),
			item("Too Few Reviews", "20"),
			item("Mixed", "30"),
			item("Early Build", "40"),
			{Name: "Bundle", Logo: "https://example.com/bundle.jpg"},
			item("Capped", "50"),
			item("Broken Reviews", "60"),
		},
		details: map[string]steam.AppDetails{
			"40": {Name: "Early Build", Genres: []string{"Action", "Early Access"}},
		},
		reviews: map[string]steam.Reviews{
			"10": {Positive: 1900, Negative: 100},
			"20": {Positive: 1000, Negative: 10},
			"30": {Positive: 3000, Negative: 1000},
			"40": {Positive: 9000, Negative: 10},
			"50": {Positive: 9600, Negative: 400},
		},
	}
	capsules := fakeCapsules{"10": "https://cdn.example/10.jpg", "50": ""}

	result, err := NewTopRecent(store, capsules, topRecentOptions(dir), logging.Discard()).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 7, result.Searched)
	assert.Equal(t, 1, result.NoID)
	assert.Equal(t, 1, result.Excluded)
	assert.Len(t, store.lookups, 6, "every app with an id gets a details lookup")

	var games []StoreGame
	readJSON(t, filepath.Join(dir, "top_recent.json"), &games)
	require.Len(t, games, 2)

	assert.Equal(t, "50", games[0].AppID, "a capped review count still ranks by ratio")
	assert.InDelta(t, 1920.0, games[0].WeightedScore, 1e-9)
	assert.Nil(t, games[0].CoverURL, "an empty capsule is reported as null")

	assert.Equal(t, "10", games[1].AppID)
	assert.Equal(t, int64(2000), games[1].TotalReviews)
	assert.Equal(t, int64(1900), games[1].TotalPositive)
	assert.InDelta(t, 0.95, games[1].Ratio, 1e-9)
	assert.InDelta(t, 1900.0, games[1].WeightedScore, 1e-9)
	require.NotNil(t, games[1].CoverURL)
	assert.Equal(t, "https://cdn.example/10.jpg", *games[1].CoverURL)

	rows := result.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "https://store.steampowered.com/app/50", rows[0].URL)
}

func TestTopRecent_DetailsFailureKeepsApp(t *testing.T) {
	dir := t.TempDir()
	store := &fakeStore{
		items:     []steam.SearchItem{item("Big Hit", "10")},
		reviews:   map[string]steam.Reviews{"10": {Positive: 1900, Negative: 100}},
		detailErr: errors.New("store unavailable"),
	}

	result, err := NewTopRecent(store, nil, topRecentOptions(dir), logging.Discard()).Run(context.Background())

	require.NoError(t, err)
	assert.Zero(t, result.Excluded)
	require.Len(t, result.Games, 1)
	assert.Nil(t, result.Games[0].CoverURL)
}

func TestTopRecent_NoExclusionsSkipsDetails(t *testing.T) {
	dir := t.TempDir()
	store := &fakeStore{
		items:   []steam.SearchItem{item("Big Hit", "10")},
		reviews: map[string]steam.Reviews{"10": {Positive: 1900, Negative: 100}},
	}
	opts := topRecentOptions(dir)
	opts.ExcludedGenres = nil

	_, err := NewTopRecent(store, nil, opts, logging.Discard()).Run(context.Background())

	require.NoError(t, err)
	assert.Empty(t, store.lookups)
}

func TestTopRecent_SearchFailureAborts(t *testing.T) {
	dir := t.TempDir()
	store := &fakeStore{searchErr: errors.New("503")}

	_, err := NewTopRecent(store, nil, topRecentOptions(dir), logging.Discard()).Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "storefront search failed")
}
