// Package steam provides a client for the public storefront endpoints:
// search, app details, review summaries and the news feed.
package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/gauthierbraillon/gamefeed/internal/catalog"
)

const (
	defaultStoreURL = "https://store.steampowered.com"
	defaultNewsURL  = "https://api.steampowered.com"

	headerURLPattern     = "https://steamcdn-a.akamaihd.net/steam/apps/%s/header.jpg"
	storePageURLPattern  = "https://store.steampowered.com/app/%s"
	patchNotesURLPattern = "https://steamdb.info/app/%s/patchnotes"
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

// WithBaseURL sets the storefront base URL (useful for testing).
func WithBaseURL(url string) ClientOption {
	return func(c *Client) {
		if url != "" {
			c.storeURL = strings.TrimRight(url, "/")
		}
	}
}

// WithNewsURL sets the web API base URL serving the news feed.
func WithNewsURL(url string) ClientOption {
	return func(c *Client) {
		if url != "" {
			c.newsURL = strings.TrimRight(url, "/")
		}
	}
}

// WithRateLimit throttles requests to both hosts.
func WithRateLimit(limiter *rate.Limiter) ClientOption {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// Client talks to the storefront.
type Client struct {
	storeURL   string
	newsURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	http       *resty.Client
}

// NewClient creates a new storefront client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		storeURL:   defaultStoreURL,
		newsURL:    defaultNewsURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http = resty.NewWithClient(c.httpClient).
		SetTimeout(10*time.Second).
		SetHeader("Accept", "application/json")
	if c.limiter != nil {
		limiter := c.limiter
		c.http.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}
	return c
}

// SearchFilter holds the storefront search parameters.
type SearchFilter struct {
	// Untags are tag ids the results must not carry.
	Untags []int64
	// Params are extra query parameters such as category1 or supportedlang.
	Params map[string]string
	Count  int
}

// SearchItem is one storefront search hit.
type SearchItem struct {
	Name string `json:"name"`
	Logo string `json:"logo"`
}

// Search returns the newest releases matching filter.
func (c *Client) Search(ctx context.Context, filter SearchFilter) ([]SearchItem, error) {
	params := map[string]string{
		"sort_by": "Released_DESC",
		"json":    "1",
	}
	if len(filter.Untags) > 0 {
		tags := make([]string, len(filter.Untags))
		for i, tag := range filter.Untags {
			tags[i] = strconv.FormatInt(tag, 10)
		}
		params["untags"] = strings.Join(tags, ",")
	}
	for k, v := range filter.Params {
		params[k] = v
	}
	if filter.Count > 0 {
		params["count"] = strconv.Itoa(filter.Count)
	}

	var resp searchResponse
	if err := c.get(ctx, c.storeURL+"/search/results/", params, &resp); err != nil {
		return nil, err
	}
	items := resp.Items
	if items == nil {
		items = []SearchItem{}
	}
	return items, nil
}

// Reviews is the review summary of an app.
type Reviews struct {
	Positive int64
	Negative int64
}

// Total is the number of reviews.
func (r Reviews) Total() int64 {
	return r.Positive + r.Negative
}

// Reviews fetches the review summary for appID. An unsuccessful summary
// yields zero counts.
func (c *Client) Reviews(ctx context.Context, appID string) (Reviews, error) {
	var resp reviewsResponse
	params := map[string]string{
		"json":         "1",
		"language":     "all",
		"num_per_page": "0",
	}
	if err := c.get(ctx, c.storeURL+"/appreviews/"+appID, params, &resp); err != nil {
		return Reviews{}, err
	}
	if resp.Success != 1 {
		return Reviews{}, nil
	}
	return Reviews{
		Positive: resp.QuerySummary.TotalPositive,
		Negative: resp.QuerySummary.TotalNegative,
	}, nil
}

// AppDetails is the subset of store details used for exclusion checks.
type AppDetails struct {
	Name       string
	Genres     []string
	Categories []string
}

// Excluded reports whether any genre or category description is listed.
func (d AppDetails) Excluded(genres, categories []string) bool {
	return anyIn(d.Genres, genres) || anyIn(d.Categories, categories)
}

// AppDetails fetches the store details for appID. An unknown app yields
// empty details.
func (c *Client) AppDetails(ctx context.Context, appID string) (AppDetails, error) {
	var resp map[string]appDetailsEnvelope
	if err := c.get(ctx, c.storeURL+"/api/appdetails", map[string]string{"appids": appID}, &resp); err != nil {
		return AppDetails{}, err
	}
	env, ok := resp[appID]
	if !ok || !env.Success {
		return AppDetails{}, nil
	}

	details := AppDetails{Name: env.Data.Name}
	for _, g := range env.Data.Genres {
		details.Genres = append(details.Genres, g.Description)
	}
	for _, cat := range env.Data.Categories {
		details.Categories = append(details.Categories, cat.Description)
	}
	return details, nil
}

// News returns up to count recent news posts for appID, newest first.
func (c *Client) News(ctx context.Context, appID string, count int) ([]catalog.Announcement, error) {
	params := map[string]string{
		"appid": appID,
		"count": strconv.Itoa(count),
	}
	var resp newsResponse
	if err := c.get(ctx, c.newsURL+"/ISteamNews/GetNewsForApp/v2/", params, &resp); err != nil {
		return nil, err
	}

	notes := make([]catalog.Announcement, 0, len(resp.AppNews.NewsItems))
	for _, item := range resp.AppNews.NewsItems {
		notes = append(notes, catalog.Announcement{
			ID:          item.GID,
			Title:       strings.TrimSpace(item.Title),
			URL:         item.URL,
			Contents:    item.Contents,
			Tags:        item.Tags,
			PublishedAt: time.Unix(item.Date, 0).UTC(),
		})
	}
	return notes, nil
}

// HeaderURL is the header image of an app.
func HeaderURL(appID string) string {
	return fmt.Sprintf(headerURLPattern, appID)
}

// StorePageURL is the store page of an app.
func StorePageURL(appID string) string {
	return fmt.Sprintf(storePageURLPattern, appID)
}

// PatchNotesURL is the build history page of an app.
func PatchNotesURL(appID string) string {
	return fmt.Sprintf(patchNotesURLPattern, appID)
}

func (c *Client) get(ctx context.Context, url string, params map[string]string, out any) error {
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(url)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	if res.StatusCode() != http.StatusOK {
		return handleAPIError(url, res.StatusCode())
	}

	if err := json.Unmarshal(res.Body(), out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", url, err)
	}
	return nil
}

func handleAPIError(url string, statusCode int) error {
	switch statusCode {
	case http.StatusForbidden:
		return fmt.Errorf("storefront %s: access denied", url)
	case http.StatusNotFound:
		return fmt.Errorf("storefront %s: not found", url)
	case http.StatusTooManyRequests:
		return fmt.Errorf("storefront %s: rate limit exceeded", url)
	default:
		return fmt.Errorf("storefront %s: API error (status %d)", url, statusCode)
	}
}

func anyIn(values, listed []string) bool {
	for _, v := range values {
		if slices.Contains(listed, v) {
			return true
		}
	}
	return false
}

// API response types (private - implementation detail)

type searchResponse struct {
	Items []SearchItem `json:"items"`
}

type reviewsResponse struct {
	Success      int `json:"success"`
	QuerySummary struct {
		TotalPositive int64 `json:"total_positive"`
		TotalNegative int64 `json:"total_negative"`
	} `json:"query_summary"`
}

type appDetailsEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		Name   string `json:"name"`
		Genres []struct {
			Description string `json:"description"`
		} `json:"genres"`
		Categories []struct {
			Description string `json:"description"`
		} `json:"categories"`
	} `json:"data"`
}

type newsResponse struct {
	AppNews struct {
		NewsItems []struct {
			GID      string   `json:"gid"`
			Title    string   `json:"title"`
			URL      string   `json:"url"`
			Contents string   `json:"contents"`
			Tags     []string `json:"tags"`
			Date     int64    `json:"date"`
		} `json:"newsitems"`
	} `json:"appnews"`
}
