// Package xref maps metadata-API candidates to storefront app ids.
//
// Two strategies are tried per candidate. The external-id join is exact and
// wins; the link pattern scans the candidate's website URLs and only fills
// the gaps the join left. A candidate neither strategy resolves ends up in
// Resolution.Unresolved. A failed join degrades to an empty mapping.
package xref

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/gauthierbraillon/gamefeed/internal/catalog"
	"github.com/gauthierbraillon/gamefeed/internal/igdb"
)

// ExternalSource performs the batch external-id join.
type ExternalSource interface {
	ExternalGames(ctx context.Context, gameIDs []int64, category int) (map[int64]string, error)
}

// LinkPattern extracts a numeric storefront id from a URL. The pattern's
// first capture group is the id.
type LinkPattern struct {
	re *regexp.Regexp
}

// NewLinkPattern compiles expr, which must have exactly one capture group.
func NewLinkPattern(expr string) (LinkPattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return LinkPattern{}, fmt.Errorf("invalid link pattern %q: %w", expr, err)
	}
	if re.NumSubexp() != 1 {
		return LinkPattern{}, fmt.Errorf("link pattern %q must have one capture group", expr)
	}
	return LinkPattern{re: re}, nil
}

// MustLinkPattern is like NewLinkPattern but panics on a bad expression.
func MustLinkPattern(expr string) LinkPattern {
	p, err := NewLinkPattern(expr)
	if err != nil {
		panic(err)
	}
	return p
}

var (
	// StorePagePattern matches storefront product page links.
	StorePagePattern = MustLinkPattern(`store\.steampowered\.com/app/(\d+)`)
	// LogoPattern matches the capsule image URLs returned by storefront search.
	LogoPattern = MustLinkPattern(`steam/\w+/(\d+)`)
)

// Extract returns the id found in url.
func (p LinkPattern) Extract(url string) (string, bool) {
	if p.re == nil {
		return "", false
	}
	m := p.re.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// FromWebsites returns the id of the first website whose URL matches.
func (p LinkPattern) FromWebsites(sites []catalog.Website) (string, bool) {
	for _, site := range sites {
		if id, ok := p.Extract(site.URL); ok {
			return id, true
		}
	}
	return "", false
}

// Resolution splits candidates by whether a storefront id was found.
// Resolved candidates carry it in StoreID. Input order is kept in both lists.
type Resolution struct {
	Resolved   []catalog.Candidate
	Unresolved []catalog.Candidate
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for degraded lookups.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Resolver cross-references candidates with a storefront.
type Resolver struct {
	source ExternalSource
	logger *slog.Logger
}

// NewResolver creates a resolver. A nil source disables the join and leaves
// only the link pattern.
func NewResolver(source ExternalSource, opts ...Option) *Resolver {
	r := &Resolver{
		source: source,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve maps every candidate to a storefront id. It never fails: a join
// error is logged and resolution continues from the link pattern alone.
func (r *Resolver) Resolve(ctx context.Context, cands []catalog.Candidate) Resolution {
	res := Resolution{
		Resolved:   make([]catalog.Candidate, 0, len(cands)),
		Unresolved: make([]catalog.Candidate, 0),
	}
	joined := r.join(ctx, cands)

	for _, c := range cands {
		if id, ok := joined[c.ID]; ok {
			c.StoreID = id
			res.Resolved = append(res.Resolved, c)
			continue
		}
		if id, ok := StorePagePattern.FromWebsites(c.Websites); ok {
			c.StoreID = id
			res.Resolved = append(res.Resolved, c)
			continue
		}
		c.StoreID = ""
		res.Unresolved = append(res.Unresolved, c)
	}

	r.logger.Info("cross-reference resolved",
		"resolved", len(res.Resolved),
		"unresolved", len(res.Unresolved),
	)
	return res
}

func (r *Resolver) join(ctx context.Context, cands []catalog.Candidate) map[int64]string {
	if r.source == nil || len(cands) == 0 {
		return map[int64]string{}
	}
	ids := make([]int64, 0, len(cands))
	for _, c := range cands {
		ids = append(ids, c.ID)
	}
	ids = catalog.UniqueIDs(ids)

	mapping, err := r.source.ExternalGames(ctx, ids, igdb.SteamCategory)
	if err != nil {
		r.logger.Warn("external id lookup failed, falling back to link pattern",
			"candidates", len(ids),
			"error", err,
		)
		return map[int64]string{}
	}
	if mapping == nil {
		return map[int64]string{}
	}
	return mapping
}
