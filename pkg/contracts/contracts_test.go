package contracts

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gauthierbraillon/gamefeed/internal/catalog"
	"github.com/gauthierbraillon/gamefeed/internal/igdb"
	"github.com/gauthierbraillon/gamefeed/internal/steam"
	"github.com/gauthierbraillon/gamefeed/internal/steamcmd"
	"github.com/gauthierbraillon/gamefeed/internal/xref"
	"github.com/gauthierbraillon/gamefeed/pkg/oauth"
)

// replay serves body for every request.
func replay(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func igdbClient(url string) *igdb.Client {
	return igdb.NewClient("id", &oauth.Token{AccessToken: "t"}, igdb.WithBaseURL(url))
}

func TestOAuthFlow_ParsesTwitchContract(t *testing.T) {
	server := replay(t, TwitchTokenContract)

	token, err := oauth.NewFlow(oauth.Config{ClientID: "id", ClientSecret: "secret", TokenURL: server.URL}).
		ClientCredentials(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "jostpf5q0uzmxmkba9iyug38kjtgh", token.AccessToken)
	assert.Equal(t, "bearer", token.TokenType)
}

func TestIGDBClient_ParsesGamesContract(t *testing.T) {
	server := replay(t, IGDBGamesContract)

	cands, err := igdbClient(server.URL).Games(context.Background(), igdb.NewQuery(igdb.GameFields...))

	require.NoError(t, err)
	require.Len(t, cands, 1)
	c := cands[0]
	assert.Equal(t, "Hollow Lantern", c.Name)
	assert.Equal(t, int64(372120), c.Cover)
	assert.Equal(t, int64(17), c.Follows)
	assert.Equal(t, time.Unix(1759968000, 0).UTC(), c.ReleasedAt)

	id, ok := xref.StorePagePattern.FromWebsites(c.Websites)
	assert.True(t, ok, "the store website carries the app id")
	assert.Equal(t, "2531310", id)
}

func TestIGDBClient_ParsesExternalGamesContract(t *testing.T) {
	server := replay(t, IGDBExternalGamesContract)

	got, err := igdbClient(server.URL).ExternalGames(context.Background(), []int64{325591}, igdb.SteamCategory)

	require.NoError(t, err)
	assert.Equal(t, map[int64]string{325591: "2531310"}, got)
}

func TestIGDBClient_ParsesPlatformsContract(t *testing.T) {
	server := replay(t, IGDBPlatformsContract)

	got, err := igdbClient(server.URL).Resolve(context.Background(), catalog.KindPlatforms, []int64{6, 167})

	require.NoError(t, err)
	assert.Equal(t, map[int64]string{6: "PC (Microsoft Windows)", 167: "PlayStation 5"}, got)
}

func TestSteamClient_ParsesSearchContract(t *testing.T) {
	server := replay(t, SteamSearchContract)

	items, err := steam.NewClient(steam.WithBaseURL(server.URL)).Search(context.Background(), steam.SearchFilter{Count: 100})

	require.NoError(t, err)
	require.Len(t, items, 2)
	ids := make([]string, 0, len(items))
	for _, item := range items {
		id, ok := xref.LogoPattern.Extract(item.Logo)
		require.True(t, ok, "logo %s should carry an app id", item.Logo)
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"2531310", "2400"}, ids)
}

func TestSteamClient_ParsesReviewsContract(t *testing.T) {
	server := replay(t, SteamReviewsContract)

	reviews, err := steam.NewClient(steam.WithBaseURL(server.URL)).Reviews(context.Background(), "2531310")

	require.NoError(t, err)
	assert.Equal(t, steam.Reviews{Positive: 1931, Negative: 102}, reviews)
}

func TestSteamClient_ParsesAppDetailsContract(t *testing.T) {
	server := replay(t, SteamAppDetailsContract)

	details, err := steam.NewClient(steam.WithBaseURL(server.URL)).AppDetails(context.Background(), "2531310")

	require.NoError(t, err)
	assert.Equal(t, []string{"Action", "Early Access"}, details.Genres)
	assert.True(t, details.Excluded([]string{"Early Access"}, nil))
}

func TestSteamClient_ParsesNewsContract(t *testing.T) {
	server := replay(t, SteamNewsContract)

	notes, err := steam.NewClient(steam.WithNewsURL(server.URL)).News(context.Background(), "2531310", 5)

	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Patch 1.0.4", notes[0].Title)
	assert.Equal(t, []string{"patchnotes"}, notes[0].Tags)
	assert.Equal(t, time.Unix(1760000000, 0).UTC(), notes[0].PublishedAt)
}

func TestSteamCMDClient_ParsesInfoContract(t *testing.T) {
	server := replay(t, SteamCMDInfoContract)
	client := steamcmd.NewClient(steamcmd.WithBaseURL(server.URL))

	build, err := client.Latest(context.Background(), "2531310")
	require.NoError(t, err)
	assert.Equal(t, "20411825", build.BuildID)

	capsule, err := client.CapsuleURL(context.Background(), "2531310")
	require.NoError(t, err)
	assert.Equal(t, "https://shared.fastly.steamstatic.com/store_item_assets/steam/apps/2531310/library_600x900.jpg", capsule)
}

func TestContracts_AreValidJSON(t *testing.T) {
	contracts := map[string]string{
		"TwitchToken":       TwitchTokenContract,
		"IGDBGames":         IGDBGamesContract,
		"IGDBExternalGames": IGDBExternalGamesContract,
		"IGDBPlatforms":     IGDBPlatformsContract,
		"SteamSearch":       SteamSearchContract,
		"SteamReviews":      SteamReviewsContract,
		"SteamAppDetails":   SteamAppDetailsContract,
		"SteamNews":         SteamNewsContract,
		"SteamCMDInfo":      SteamCMDInfoContract,
	}

	for name, contract := range contracts {
		var v any
		if err := json.Unmarshal([]byte(contract), &v); err != nil {
			t.Errorf("%s contract is not valid JSON: %v", name, err)
		}
	}
}
