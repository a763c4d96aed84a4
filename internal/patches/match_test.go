package patches

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gauthierbraillon/gamefeed/internal/catalog"
)

func TestMatchers(t *testing.T) {
	build := catalog.Build{AppID: "620", BuildID: "14123456", UpdatedAt: time.Date(2025, 10, 9, 3, 0, 0, 0, time.UTC)}

	tests := []struct {
		name    string
		matcher Matcher
		note    catalog.Announcement
		want    bool
	}{
		{"recent inside window", RecentNote{Within: 48 * time.Hour}, catalog.Announcement{PublishedAt: now.Add(-47 * time.Hour)}, true},
		{"recent outside window", RecentNote{Within: 48 * time.Hour}, catalog.Announcement{PublishedAt: now.Add(-49 * time.Hour)}, false},
		{"recent in the future", RecentNote{Within: 48 * time.Hour}, catalog.Announcement{PublishedAt: now.Add(time.Hour)}, false},
		{"same day", SameDay{}, catalog.Announcement{PublishedAt: time.Date(2025, 10, 9, 23, 59, 0, 0, time.UTC)}, true},
		{"next day", SameDay{}, catalog.Announcement{PublishedAt: time.Date(2025, 10, 10, 0, 1, 0, 0, time.UTC)}, false},
		{"build id in html", BuildIDInText{}, catalog.Announcement{Contents: "<p>Build <b>14123456</b> is live</p>"}, true},
		{"build id as prefix only", BuildIDInText{}, catalog.Announcement{Contents: "Build 141234567"}, false},
		{"keyword in title", KeywordTag{}, catalog.Announcement{Title: "Hotfix #2"}, true},
		{"keyword in tag", KeywordTag{}, catalog.Announcement{Title: "Notes", Tags: []string{"patchnotes"}}, true},
		{"custom keywords", KeywordTag{Keywords: []string{"balance"}}, catalog.Announcement{Title: "Balance changes"}, true},
		{"no keyword", KeywordTag{}, catalog.Announcement{Title: "Steam Next Fest"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.matcher.Match(build, tt.note, now))
		})
	}
}

func TestSameDay_UnknownUpdateTime(t *testing.T) {
	note := catalog.Announcement{PublishedAt: now}
	require.False(t, SameDay{}.Match(catalog.Build{BuildID: "1"}, note, now))
}

func TestParseMatchers(t *testing.T) {
	matchers, err := ParseMatchers([]string{"keyword", " Same-Day ", "build-id", "recent"}, 48*time.Hour, nil)
	require.NoError(t, err)

	names := make([]string, 0, len(matchers))
	for _, m := range matchers {
		names = append(names, m.Name())
	}
	require.Equal(t, []string{"keyword", "same-day", "build-id", "recent"}, names)

	_, err = ParseMatchers([]string{"telepathy"}, 0, nil)
	require.ErrorContains(t, err, "telepathy")
}

func TestPlainText(t *testing.T) {
	require.Equal(t, "Patch 1.2 Fixed crashes", PlainText("<h1>Patch 1.2</h1>\n<ul><li>Fixed   crashes</li></ul>"))
	require.Equal(t, "[b]plain[/b] text", PlainText("[b]plain[/b]   text"))
}

func TestTitled(t *testing.T) {
	require.False(t, titled(catalog.Announcement{Title: "  "}))
	require.False(t, titled(catalog.Announcement{Title: "No title"}))
	require.True(t, titled(catalog.Announcement{Title: "Update 3"}))
}
