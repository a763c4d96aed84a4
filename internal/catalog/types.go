// Package catalog holds the game records shared by every gamefeed pipeline.
//
// This package enables gamefeed to:
// - Describe metadata-API candidates independently of the wire format
// - Name the coded attribute kinds resolved during enrichment
// - Carry storefront builds and announcements through the patch tracker
package catalog

import "time"

// Kind identifies a coded attribute resolved by the enricher.
type Kind string

const (
	KindPlatforms Kind = "platforms"
	KindCovers    Kind = "covers"
	KindGenres    Kind = "genres"
	KindThemes    Kind = "themes"
)

// Website is a link record attached to a candidate.
type Website struct {
	URL      string `json:"url"`
	Category int    `json:"category"`
}

// Candidate is a game fetched from the metadata API before ranking.
type Candidate struct {
	ID                    int64     `json:"id"`
	Name                  string    `json:"name"`
	ReleasedAt            time.Time `json:"released_at"`
	Platforms             []int64   `json:"platforms,omitempty"`
	Genres                []int64   `json:"genres,omitempty"`
	Themes                []int64   `json:"themes,omitempty"`
	GameModes             []int64   `json:"game_modes,omitempty"`
	Cover                 int64     `json:"cover,omitempty"`
	Follows               int64     `json:"follows"`
	Hypes                 int64     `json:"hypes"`
	RatingCount           int64     `json:"rating_count"`
	AggregatedRatingCount int64     `json:"aggregated_rating_count"`
	Rating                float64   `json:"rating"`
	AggregatedRating      float64   `json:"aggregated_rating"`
	Websites              []Website `json:"websites,omitempty"`

	// StoreID is the storefront app id, set by cross-reference resolution.
	StoreID string `json:"store_id,omitempty"`
}

// Build is the latest public build of a storefront app.
type Build struct {
	AppID     string    `json:"appid"`
	BuildID   string    `json:"buildid"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Announcement is a news post published for a storefront app.
type Announcement struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Contents    string    `json:"contents"`
	Tags        []string  `json:"tags,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}
