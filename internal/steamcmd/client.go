// Package steamcmd reads app metadata from the public steamcmd info API:
// the public branch build and the library capsule artwork.
package steamcmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/gauthierbraillon/gamefeed/internal/catalog"
)

const (
	defaultBaseURL    = "https://api.steamcmd.net/v1"
	capsuleURLPattern = "https://shared.fastly.steamstatic.com/store_item_assets/steam/apps/%s/%s"
	capsuleLanguage   = "english"
)

// ErrNoBuild is returned when an app has no public branch build.
var ErrNoBuild = errors.New("no public build")

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

// WithRateLimit throttles outgoing requests.
func WithRateLimit(limiter *rate.Limiter) ClientOption {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// Client is a steamcmd info API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	http       *resty.Client
}

// NewClient creates a new steamcmd client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.http = resty.NewWithClient(c.httpClient).
		SetBaseURL(c.baseURL).
		SetTimeout(10 * time.Second)
	if c.limiter != nil {
		limiter := c.limiter
		c.http.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}
	return c
}

// AppInfo is the part of an app's info record gamefeed uses.
type AppInfo struct {
	AppID     string
	BuildID   string
	UpdatedAt time.Time
	// Capsule is the library capsule asset path, relative to the app's
	// asset directory.
	Capsule string
}

// Info fetches the info record for appID.
func (c *Client) Info(ctx context.Context, appID string) (AppInfo, error) {
	res, err := c.http.R().
		SetContext(ctx).
		SetPathParam("appid", appID).
		Get("/info/{appid}")
	if err != nil {
		return AppInfo{}, fmt.Errorf("failed to fetch info for app %s: %w", appID, err)
	}
	if res.StatusCode() != http.StatusOK {
		return AppInfo{}, fmt.Errorf("steamcmd info %s: API error (status %d)", appID, res.StatusCode())
	}

	var resp infoResponse
	if err := json.Unmarshal(res.Body(), &resp); err != nil {
		return AppInfo{}, fmt.Errorf("failed to parse info for app %s: %w", appID, err)
	}

	app := resp.Data[appID]
	info := AppInfo{
		AppID:   appID,
		BuildID: string(app.Depots.Branches.Public.BuildID),
		Capsule: app.Common.LibraryAssetsFull.LibraryCapsule.Image[capsuleLanguage],
	}
	if ts := string(app.Depots.Branches.Public.TimeUpdated); ts != "" {
		secs, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return AppInfo{}, fmt.Errorf("invalid timeupdated %q for app %s: %w", ts, appID, err)
		}
		info.UpdatedAt = time.Unix(secs, 0).UTC()
	}
	return info, nil
}

// Latest returns the public branch build of appID.
func (c *Client) Latest(ctx context.Context, appID string) (catalog.Build, error) {
	info, err := c.Info(ctx, appID)
	if err != nil {
		return catalog.Build{}, err
	}
	if info.BuildID == "" {
		return catalog.Build{}, fmt.Errorf("app %s: %w", appID, ErrNoBuild)
	}
	return catalog.Build{AppID: appID, BuildID: info.BuildID, UpdatedAt: info.UpdatedAt}, nil
}

// CapsuleURL returns the library capsule image URL of appID, or "" when the
// app has none.
func (c *Client) CapsuleURL(ctx context.Context, appID string) (string, error) {
	info, err := c.Info(ctx, appID)
	if err != nil {
		return "", err
	}
	if info.Capsule == "" {
		return "", nil
	}
	return fmt.Sprintf(capsuleURLPattern, appID, info.Capsule), nil
}

// flexString accepts a JSON string or number; the API emits both for ids
// and timestamps.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// API response types (private - implementation detail)

type infoResponse struct {
	Status string             `json:"status"`
	Data   map[string]appData `json:"data"`
}

type appData struct {
	Common struct {
		LibraryAssetsFull struct {
			LibraryCapsule struct {
				Image map[string]string `json:"image"`
			} `json:"library_capsule"`
		} `json:"library_assets_full"`
	} `json:"common"`
	Depots struct {
		Branches struct {
			Public struct {
				BuildID     flexString `json:"buildid"`
				TimeUpdated flexString `json:"timeupdated"`
			} `json:"public"`
		} `json:"branches"`
	} `json:"depots"`
}
