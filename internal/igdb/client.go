// Package igdb provides a client for the IGDB v4 game metadata API.
package igdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/gauthierbraillon/gamefeed/internal/catalog"
	"github.com/gauthierbraillon/gamefeed/pkg/oauth"
)

const (
	defaultBaseURL  = "https://api.igdb.com/v4"
	coverURLPattern = "https://images.igdb.com/igdb/image/upload/t_cover_big/%s.jpg"

	// SteamCategory is the external_games category for the Steam storefront.
	SteamCategory = 1
)

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithBaseURL sets a custom base URL (useful for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithRateLimit throttles outgoing requests; the API allows four per second.
func WithRateLimit(limiter *rate.Limiter) ClientOption {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// Client is an IGDB API client.
type Client struct {
	clientID   string
	token      *oauth.Token
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	http       *resty.Client
}

// NewClient creates a new IGDB client authenticated with the given token.
func NewClient(clientID string, token *oauth.Token, opts ...ClientOption) *Client {
	c := &Client{
		clientID:   clientID,
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http = resty.NewWithClient(c.httpClient).
		SetBaseURL(c.baseURL).
		SetTimeout(15*time.Second).
		SetHeader("Client-ID", c.clientID).
		SetHeader("Accept", "application/json")
	if c.token != nil {
		c.http.SetAuthToken(c.token.AccessToken)
	}
	if c.limiter != nil {
		limiter := c.limiter
		c.http.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}
	return c
}

// Games runs a games query and returns the matching candidates.
func (c *Client) Games(ctx context.Context, q Query) ([]catalog.Candidate, error) {
	var rows []gameRow
	if err := c.post(ctx, "/games", q, &rows); err != nil {
		return nil, err
	}

	cands := make([]catalog.Candidate, 0, len(rows))
	for _, row := range rows {
		cands = append(cands, row.candidate())
	}
	return cands, nil
}

// ExternalGames maps game ids to their uid on the storefront identified by
// category.
func (c *Client) ExternalGames(ctx context.Context, gameIDs []int64, category int) (map[int64]string, error) {
	out := make(map[int64]string)
	if len(gameIDs) == 0 {
		return out, nil
	}

	q := NewQuery("game", "uid", "category").
		And("game = "+IDList(gameIDs), fmt.Sprintf("category = %d", category)).
		Limit(500)

	var rows []externalRow
	if err := c.post(ctx, "/external_games", q, &rows); err != nil {
		return nil, err
	}
	for _, row := range rows {
		if row.UID == "" {
			continue
		}
		if _, ok := out[row.Game]; !ok {
			out[row.Game] = row.UID
		}
	}
	return out, nil
}

// Resolve looks up display values for coded ids of one attribute kind in a
// single request. Platforms, genres and themes resolve to names; covers
// resolve to image URLs. Unknown ids are simply absent from the result.
func (c *Client) Resolve(ctx context.Context, kind catalog.Kind, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string)
	if len(ids) == 0 {
		return out, nil
	}

	switch kind {
	case catalog.KindPlatforms, catalog.KindGenres, catalog.KindThemes:
		q := NewQuery("name").And("id = " + IDList(ids)).Limit(len(ids))
		var rows []namedRow
		if err := c.post(ctx, "/"+string(kind), q, &rows); err != nil {
			return nil, err
		}
		for _, row := range rows {
			out[row.ID] = row.Name
		}
	case catalog.KindCovers:
		q := NewQuery("image_id").And("id = " + IDList(ids)).Limit(len(ids))
		var rows []coverRow
		if err := c.post(ctx, "/covers", q, &rows); err != nil {
			return nil, err
		}
		for _, row := range rows {
			if row.ImageID == "" {
				continue
			}
			out[row.ID] = CoverURL(row.ImageID)
		}
	default:
		return nil, fmt.Errorf("unsupported attribute kind %q", kind)
	}
	return out, nil
}

// Popularity returns the popularity primitive values for one game, keyed by
// popularity type.
func (c *Client) Popularity(ctx context.Context, gameID int64, types []int64) (map[int64]float64, error) {
	q := NewQuery("game_id", "value", "popularity_type").
		And(fmt.Sprintf("game_id = %d", gameID))
	if len(types) > 0 {
		q = q.And("popularity_type = " + IDList(types))
	}
	q = q.Limit(50)

	var rows []popularityRow
	if err := c.post(ctx, "/popularity_primitives", q, &rows); err != nil {
		return nil, err
	}
	out := make(map[int64]float64, len(rows))
	for _, row := range rows {
		out[row.PopularityType] += row.Value
	}
	return out, nil
}

// CoverURL builds the public image URL for a cover image id.
func CoverURL(imageID string) string {
	return fmt.Sprintf(coverURLPattern, imageID)
}

func (c *Client) post(ctx context.Context, endpoint string, q Query, out any) error {
	requestStart := time.Now()
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "text/plain").
		SetBody(q.String()).
		Post(endpoint)
	latency := time.Since(requestStart)
	if err != nil {
		return fmt.Errorf("igdb %s (latency=%v): %w", endpoint, latency, err)
	}

	if res.StatusCode() != http.StatusOK {
		return handleAPIError(endpoint, res.StatusCode(), res.String())
	}

	if err := json.Unmarshal(res.Body(), out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", endpoint, err)
	}
	return nil
}

func handleAPIError(endpoint string, statusCode int, body string) error {
	switch statusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("IGDB %s: authentication failed - check IGDB_CLIENT_ID and IGDB_CLIENT_SECRET", endpoint)
	case http.StatusForbidden:
		return fmt.Errorf("IGDB %s: access denied", endpoint)
	case http.StatusTooManyRequests:
		return fmt.Errorf("IGDB %s: rate limit exceeded", endpoint)
	case http.StatusBadRequest:
		return fmt.Errorf("IGDB %s: query rejected: %s", endpoint, strings.TrimSpace(body))
	default:
		return fmt.Errorf("IGDB %s: API error (status %d)", endpoint, statusCode)
	}
}

// API response types (private - implementation detail)

type gameRow struct {
	ID                    int64   `json:"id"`
	Name                  string  `json:"name"`
	FirstReleaseDate      int64   `json:"first_release_date"`
	Platforms             []int64 `json:"platforms"`
	Genres                []int64 `json:"genres"`
	Themes                []int64 `json:"themes"`
	GameModes             []int64 `json:"game_modes"`
	Cover                 int64   `json:"cover"`
	Follows               int64   `json:"follows"`
	Hypes                 int64   `json:"hypes"`
	Rating                float64 `json:"rating"`
	RatingCount           int64   `json:"rating_count"`
	AggregatedRating      float64 `json:"aggregated_rating"`
	AggregatedRatingCount int64   `json:"aggregated_rating_count"`
	Websites              []struct {
		URL      string `json:"url"`
		Category int    `json:"category"`
	} `json:"websites"`
}

func (r gameRow) candidate() catalog.Candidate {
	c := catalog.Candidate{
		ID:                    r.ID,
		Name:                  r.Name,
		Platforms:             r.Platforms,
		Genres:                r.Genres,
		Themes:                r.Themes,
		GameModes:             r.GameModes,
		Cover:                 r.Cover,
		Follows:               r.Follows,
		Hypes:                 r.Hypes,
		Rating:                r.Rating,
		RatingCount:           r.RatingCount,
		AggregatedRating:      r.AggregatedRating,
		AggregatedRatingCount: r.AggregatedRatingCount,
	}
	if r.FirstReleaseDate > 0 {
		c.ReleasedAt = time.Unix(r.FirstReleaseDate, 0).UTC()
	}
	for _, w := range r.Websites {
		c.Websites = append(c.Websites, catalog.Website{URL: w.URL, Category: w.Category})
	}
	return c
}

type externalRow struct {
	Game     int64  `json:"game"`
	UID      string `json:"uid"`
	Category int    `json:"category"`
}

type namedRow struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type coverRow struct {
	ID      int64  `json:"id"`
	ImageID string `json:"image_id"`
}

type popularityRow struct {
	GameID         int64   `json:"game_id"`
	Value          float64 `json:"value"`
	PopularityType int64   `json:"popularity_type"`
}
