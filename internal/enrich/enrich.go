// Package enrich resolves coded attribute ids into display values for the
// shortlist only.
//
// Each attribute kind costs exactly one batch request. Ids are collected
// from the shortlist, never from the full candidate pool, so the number of
// secondary requests stays bounded by the number of kinds.
package enrich

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gauthierbraillon/gamefeed/internal/catalog"
)

// Placeholder is the display value used for ids the batch did not resolve.
const Placeholder = "Unknown"

// Resolver performs one batch lookup for a kind.
type Resolver interface {
	Resolve(ctx context.Context, kind catalog.Kind, ids []int64) (map[int64]string, error)
}

// Request asks for the values of one kind. An Optional request degrades to
// an empty map when its lookup fails.
type Request struct {
	Kind     catalog.Kind
	IDs      []int64
	Optional bool
}

// ForShortlist builds one request per kind from the shortlist's ids.
// Covers are optional.
func ForShortlist(shortlist []catalog.Candidate, kinds ...catalog.Kind) []Request {
	reqs := make([]Request, 0, len(kinds))
	for _, kind := range kinds {
		reqs = append(reqs, Request{
			Kind:     kind,
			IDs:      catalog.AttributeIDs(shortlist, kind),
			Optional: kind == catalog.KindCovers,
		})
	}
	return reqs
}

// Maps holds the resolved values: kind, then id, then value.
type Maps map[catalog.Kind]map[int64]string

// Lookup returns the value for id, with ok false when it is absent.
func (m Maps) Lookup(kind catalog.Kind, id int64) (string, bool) {
	v, ok := m[kind][id]
	return v, ok
}

// Value returns a pointer to the value for id, or nil when it is absent.
// Absent covers serialize as JSON null through it.
func (m Maps) Value(kind catalog.Kind, id int64) *string {
	v, ok := m.Lookup(kind, id)
	if !ok {
		return nil
	}
	return &v
}

// Names maps ids to display names, substituting Placeholder for absent ids.
func (m Maps) Names(kind catalog.Kind, ids []int64) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if v, ok := m.Lookup(kind, id); ok {
			out = append(out, v)
			continue
		}
		out = append(out, Placeholder)
	}
	return out
}

// Enricher batches attribute lookups.
type Enricher struct {
	resolver Resolver
	logger   *slog.Logger
}

// New creates an Enricher backed by resolver.
func New(resolver Resolver, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{resolver: resolver, logger: logger}
}

// Enrich runs one lookup per request kind. Requests without ids are
// skipped. Requests of the same kind are merged into one lookup.
func (e *Enricher) Enrich(ctx context.Context, reqs []Request) (Maps, error) {
	maps := make(Maps, len(reqs))
	for _, req := range merge(reqs) {
		if len(req.IDs) == 0 {
			maps[req.Kind] = map[int64]string{}
			continue
		}

		values, err := e.resolver.Resolve(ctx, req.Kind, req.IDs)
		if err != nil {
			if !req.Optional {
				return nil, fmt.Errorf("failed to resolve %s: %w", req.Kind, err)
			}
			e.logger.Warn("optional lookup failed, leaving values empty",
				"kind", string(req.Kind),
				"ids", len(req.IDs),
				"error", err,
			)
			values = map[int64]string{}
		}
		if values == nil {
			values = map[int64]string{}
		}
		maps[req.Kind] = values
	}
	return maps, nil
}

// merge collapses requests of the same kind, de-duplicating ids and keeping
// the first-seen kind order. A merged request is optional only if every
// part was.
func merge(reqs []Request) []Request {
	index := make(map[catalog.Kind]int, len(reqs))
	out := make([]Request, 0, len(reqs))
	for _, req := range reqs {
		i, ok := index[req.Kind]
		if !ok {
			index[req.Kind] = len(out)
			out = append(out, Request{Kind: req.Kind, IDs: catalog.UniqueIDs(req.IDs), Optional: req.Optional})
			continue
		}
		out[i].IDs = catalog.UniqueIDs(out[i].IDs, req.IDs)
		out[i].Optional = out[i].Optional && req.Optional
	}
	return out
}
