package catalog

import "time"

// Window is a release-date range. Since is exclusive and Until inclusive.
type Window struct {
	Since time.Time
	Until time.Time
}

// LastDays returns the window covering the given number of days up to now.
func LastDays(now time.Time, days int) Window {
	return Window{
		Since: now.AddDate(0, 0, -days),
		Until: now,
	}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.Since.IsZero() && !t.After(w.Since) {
		return false
	}
	if !w.Until.IsZero() && t.After(w.Until) {
		return false
	}
	return true
}

// UniqueIDs merges id lists, dropping zero ids and duplicates while keeping
// first-seen order.
func UniqueIDs(lists ...[]int64) []int64 {
	seen := make(map[int64]struct{})
	ids := make([]int64, 0)
	for _, list := range lists {
		for _, id := range list {
			if id == 0 {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// AttributeIDs collects the ids of one attribute kind across candidates.
func AttributeIDs(cands []Candidate, kind Kind) []int64 {
	lists := make([][]int64, 0, len(cands))
	for _, c := range cands {
		switch kind {
		case KindPlatforms:
			lists = append(lists, c.Platforms)
		case KindGenres:
			lists = append(lists, c.Genres)
		case KindThemes:
			lists = append(lists, c.Themes)
		case KindCovers:
			lists = append(lists, []int64{c.Cover})
		}
	}
	return UniqueIDs(lists...)
}
