// Package patches detects new public builds of tracked apps by comparing
// them with the build ledger.
//
// Each tracked app is in one of two states. Unchanged means the fetched
// build id equals the ledger's and nothing is emitted. Updated means it
// differs and an entry dated from the build's update time is emitted,
// optionally paired with a news post found by the configured matchers.
package patches

import (
	"context"
	"log/slog"
	"time"

	"github.com/gauthierbraillon/gamefeed/internal/catalog"
	"github.com/gauthierbraillon/gamefeed/internal/ledger"
	"github.com/gauthierbraillon/gamefeed/internal/steam"
)

// DateLayout is the human date format of emitted entries.
const DateLayout = "2006-01-02"

// BuildSource returns the latest public build of an app.
type BuildSource interface {
	Latest(ctx context.Context, appID string) (catalog.Build, error)
}

// NewsSource returns recent news posts of an app.
type NewsSource interface {
	News(ctx context.Context, appID string, count int) ([]catalog.Announcement, error)
}

// State is the comparison outcome for one app.
type State int

const (
	Unchanged State = iota
	Updated
)

func (s State) String() string {
	if s == Updated {
		return "updated"
	}
	return "unchanged"
}

// Classify compares the stored build id with the fetched one.
func Classify(stored string, fetched catalog.Build) State {
	if fetched.BuildID == stored {
		return Unchanged
	}
	return Updated
}

// FormatDate renders t as a UTC day, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}

// PatchNote is the news post paired with a build.
type PatchNote struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	MatchedBy string `json:"matched_by"`
}

// Entry is the record emitted for an updated app.
type Entry struct {
	SteamHeader string     `json:"steamheader"`
	SteamDBURL  string     `json:"steamdburl"`
	Date        string     `json:"date"`
	PatchNote   *PatchNote `json:"patchnote,omitempty"`
}

// Update is an app whose build changed since the ledger was written.
type Update struct {
	AppID    string
	Previous string
	Build    catalog.Build
	Entry    Entry
}

// Report is the outcome of one Check.
type Report struct {
	Updates   []Update
	Unchanged int
	Skipped   int
}

// Entries maps app ids to their emitted entries.
func (r Report) Entries() map[string]Entry {
	out := make(map[string]Entry, len(r.Updates))
	for _, u := range r.Updates {
		out[u.AppID] = u.Entry
	}
	return out
}

// Apply records every updated build in l so the next run compares against
// it.
func (r Report) Apply(l *ledger.Ledger) {
	for _, u := range r.Updates {
		l.Put(ledger.Record{AppID: u.AppID, BuildID: u.Build.BuildID, Date: u.Entry.Date})
	}
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithNews pairs updated builds with news posts using matchers. Without
// matchers no news is fetched.
func WithNews(news NewsSource, count int, matchers ...Matcher) Option {
	return func(t *Tracker) {
		t.news = news
		if count > 0 {
			t.newsCount = count
		}
		t.matchers = matchers
	}
}

// WithClock sets the time source used by the matchers.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// Tracker compares fetched builds with a ledger.
type Tracker struct {
	builds    BuildSource
	news      NewsSource
	newsCount int
	matchers  []Matcher
	now       func() time.Time
	logger    *slog.Logger
}

// NewTracker creates a tracker reading builds from builds.
func NewTracker(builds BuildSource, opts ...Option) *Tracker {
	t := &Tracker{
		builds:    builds,
		newsCount: 5,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Check fetches the latest build of every app in l. Fetch errors and
// missing builds skip the app with a warning; they never fail the run.
func (t *Tracker) Check(ctx context.Context, l *ledger.Ledger) (Report, error) {
	report := Report{Updates: make([]Update, 0)}
	for _, appID := range l.AppIDs() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		logger := t.logger.With("app_id", appID)

		build, err := t.builds.Latest(ctx, appID)
		if err != nil {
			logger.Warn("build lookup failed, skipping", "error", err)
			report.Skipped++
			continue
		}
		if build.BuildID == "" {
			logger.Warn("no build reported, skipping")
			report.Skipped++
			continue
		}

		stored, _ := l.Get(appID)
		if Classify(stored.BuildID, build) == Unchanged {
			logger.Debug("build unchanged", "buildid", build.BuildID)
			report.Unchanged++
			continue
		}

		build.AppID = appID
		update := Update{
			AppID:    appID,
			Previous: stored.BuildID,
			Build:    build,
			Entry: Entry{
				SteamHeader: steam.HeaderURL(appID),
				SteamDBURL:  steam.PatchNotesURL(appID),
				Date:        FormatDate(build.UpdatedAt),
				PatchNote:   t.announcement(ctx, logger, build),
			},
		}
		logger.Info("build updated",
			"previous", stored.BuildID,
			"buildid", build.BuildID,
			"date", update.Entry.Date,
		)
		report.Updates = append(report.Updates, update)
	}
	return report, nil
}

func (t *Tracker) announcement(ctx context.Context, logger *slog.Logger, build catalog.Build) *PatchNote {
	if t.news == nil || len(t.matchers) == 0 {
		return nil
	}
	notes, err := t.news.News(ctx, build.AppID, t.newsCount)
	if err != nil {
		logger.Warn("news lookup failed, no announcement", "error", err)
		return nil
	}

	// Matchers are tried in configured order; posts come newest first.
	now := t.now()
	for _, m := range t.matchers {
		for _, note := range notes {
			if titled(note) && m.Match(build, note, now) {
				return &PatchNote{Title: note.Title, URL: note.URL, MatchedBy: m.Name()}
			}
		}
	}
	return nil
}
