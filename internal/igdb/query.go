package igdb

import (
	"slices"
	"strconv"
	"strings"

	"github.com/gauthierbraillon/gamefeed/internal/catalog"
)

// Query is an immutable builder for the textual query body the API expects.
// Every method returns a copy, so one base query can feed several tiers.
type Query struct {
	fields []string
	where  []string
	sort   string
	limit  int
}

// NewQuery starts a query selecting the given fields.
func NewQuery(fields ...string) Query {
	return Query{fields: slices.Clone(fields)}
}

// And adds a clause joined to the existing ones with "&". Blank clauses are
// ignored.
func (q Query) And(clauses ...string) Query {
	out := q
	out.where = slices.Clone(q.where)
	for _, clause := range clauses {
		clause = strings.TrimSpace(clause)
		if clause == "" {
			continue
		}
		out.where = append(out.where, clause)
	}
	return out
}

// Sort sets the sort expression, e.g. "first_release_date desc".
func (q Query) Sort(expr string) Query {
	q.where = slices.Clone(q.where)
	q.sort = expr
	return q
}

// Limit caps the number of rows returned.
func (q Query) Limit(n int) Query {
	q.where = slices.Clone(q.where)
	q.limit = n
	return q
}

// String renders the query body.
func (q Query) String() string {
	var b strings.Builder
	fields := "*"
	if len(q.fields) > 0 {
		fields = strings.Join(q.fields, ",")
	}
	b.WriteString("fields ")
	b.WriteString(fields)
	b.WriteString(";")
	if len(q.where) > 0 {
		b.WriteString(" where ")
		b.WriteString(strings.Join(q.where, " & "))
		b.WriteString(";")
	}
	if q.sort != "" {
		b.WriteString(" sort ")
		b.WriteString(q.sort)
		b.WriteString(";")
	}
	if q.limit > 0 {
		b.WriteString(" limit ")
		b.WriteString(strconv.Itoa(q.limit))
		b.WriteString(";")
	}
	return b.String()
}

// IDList renders ids as a parenthesised set, e.g. "(6,48,130)".
func IDList(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "(" + strings.Join(parts, ",") + ")"
}

// GameFields are the fields fetched for every candidate.
var GameFields = []string{
	"name", "first_release_date",
	"platforms", "genres", "themes", "game_modes", "cover",
	"follows", "hypes", "rating", "rating_count",
	"aggregated_rating", "aggregated_rating_count",
	"websites.url", "websites.category",
}

// BaseFilter is the fixed predicate every relaxation tier builds on.
type BaseFilter struct {
	Window         catalog.Window
	Platforms      []int64
	ExcludedThemes []int64
	ExcludedGenres []int64
	Categories     []int64
	Limit          int
}

// Query renders the base query, newest releases first.
func (f BaseFilter) Query() Query {
	q := NewQuery(GameFields...).And(
		"first_release_date > "+strconv.FormatInt(f.Window.Since.Unix(), 10),
		"first_release_date <= "+strconv.FormatInt(f.Window.Until.Unix(), 10),
	)
	if len(f.Platforms) > 0 {
		q = q.And("platforms = " + IDList(f.Platforms))
	}
	if len(f.ExcludedThemes) > 0 {
		q = q.And("themes != " + IDList(f.ExcludedThemes))
	}
	if len(f.ExcludedGenres) > 0 {
		q = q.And("genres != " + IDList(f.ExcludedGenres))
	}
	if len(f.Categories) > 0 {
		q = q.And("category = " + IDList(f.Categories))
	}
	return q.Sort("first_release_date desc").Limit(f.Limit)
}
