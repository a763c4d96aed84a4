package patches

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/gauthierbraillon/gamefeed/internal/catalog"
)

// Matcher is one heuristic for pairing a build with a news post. Matchers
// are independent and none of them is exact.
type Matcher interface {
	Name() string
	Match(build catalog.Build, note catalog.Announcement, now time.Time) bool
}

// RecentNote matches any post published within Within of now.
type RecentNote struct {
	Within time.Duration
}

// Name returns "recent", the name ParseMatchers accepts.
func (RecentNote) Name() string { return "recent" }

// Match reports whether note was published in the Within window ending at now.
func (m RecentNote) Match(_ catalog.Build, note catalog.Announcement, now time.Time) bool {
	w := catalog.Window{Since: now.Add(-m.Within), Until: now}
	return w.Contains(note.PublishedAt)
}

// SameDay matches a post published on the build's UTC update day.
type SameDay struct{}

// Name returns "same-day".
func (SameDay) Name() string { return "same-day" }

// Match reports whether build and note fall on the same UTC date. A
// missing timestamp on either side never matches.
func (SameDay) Match(build catalog.Build, note catalog.Announcement, _ time.Time) bool {
	if build.UpdatedAt.IsZero() || note.PublishedAt.IsZero() {
		return false
	}
	return FormatDate(build.UpdatedAt) == FormatDate(note.PublishedAt)
}

// BuildIDInText matches a post whose text contains the build id as a
// whole number.
type BuildIDInText struct{}

// Name returns "build-id".
func (BuildIDInText) Name() string { return "build-id" }

// Match reports whether the post text, stripped of markup, contains the
// build id as a separate number.
func (BuildIDInText) Match(build catalog.Build, note catalog.Announcement, _ time.Time) bool {
	if build.BuildID == "" {
		return false
	}
	numbers := strings.FieldsFunc(PlainText(note.Contents), func(r rune) bool {
		return !unicode.IsDigit(r)
	})
	for _, n := range numbers {
		if n == build.BuildID {
			return true
		}
	}
	return false
}

// DefaultKeywords are the words KeywordTag looks for.
var DefaultKeywords = []string{"patch", "update", "hotfix"}

// KeywordTag matches a post whose title or tags mention a keyword.
type KeywordTag struct {
	Keywords []string
}

// Name returns "keyword".
func (KeywordTag) Name() string { return "keyword" }

// Match reports whether the title or a tag contains a keyword, ignoring
// case. An empty Keywords falls back to DefaultKeywords.
func (m KeywordTag) Match(_ catalog.Build, note catalog.Announcement, _ time.Time) bool {
	keywords := m.Keywords
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	haystacks := append([]string{note.Title}, note.Tags...)
	for _, h := range haystacks {
		h = strings.ToLower(h)
		for _, kw := range keywords {
			if strings.Contains(h, strings.ToLower(kw)) {
				return true
			}
		}
	}
	return false
}

// ParseMatchers builds matchers from their names, in the given order.
func ParseMatchers(names []string, recentWithin time.Duration, keywords []string) ([]Matcher, error) {
	matchers := make([]Matcher, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "recent":
			matchers = append(matchers, RecentNote{Within: recentWithin})
		case "same-day":
			matchers = append(matchers, SameDay{})
		case "build-id":
			matchers = append(matchers, BuildIDInText{})
		case "keyword":
			matchers = append(matchers, KeywordTag{Keywords: keywords})
		default:
			return nil, fmt.Errorf("unknown announcement matcher %q", name)
		}
	}
	return matchers, nil
}

// PlainText strips markup from post contents and collapses whitespace.
func PlainText(contents string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(contents))
	if err != nil {
		return strings.Join(strings.Fields(contents), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// titled reports whether a post has a real title.
func titled(note catalog.Announcement) bool {
	title := strings.TrimSpace(note.Title)
	return title != "" && !strings.EqualFold(title, "no title")
}
