package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/openglide/skysearch/pkg/entities"
)

// EnrichedResult is a ranked result with the optional attributes of its
// entity merged in. Fields never holds empty values.
type EnrichedResult struct {
	Kind   string
	ID     int64
	Name   string
	Weight int
	Fields map[string]string

	// Explain is set when the caller asked for a score breakdown
	Explain []Contribution
}

// MarshalJSON flattens the record: type, id and name, then every present
// attribute. Weight and its breakdown are only written when explained.
func (r EnrichedResult) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+5)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["type"] = r.Kind
	out["id"] = r.ID
	out["name"] = r.Name
	if r.Explain != nil {
		out["weight"] = r.Weight
		out["explain"] = r.Explain
	}
	return json.Marshal(out)
}

// Enricher fetches optional attributes for ranked results.
type Enricher struct {
	db       Querier
	dialect  Dialect
	registry *entities.Registry
}

// NewEnricher creates an enricher over the same store as the engine.
func NewEnricher(db Querier, dialect Dialect, registry *entities.Registry) *Enricher {
	return &Enricher{db: db, dialect: dialect, registry: registry}
}

// Enrich issues one fetch-by-id query per kind present in results, in
// parallel, and returns the results in their original ranked order.
func (e *Enricher) Enrich(ctx context.Context, results []RankedResult) ([]EnrichedResult, error) {
	idsByKind := make(map[string][]int64)
	for _, r := range results {
		idsByKind[r.Kind] = append(idsByKind[r.Kind], r.ID)
	}

	tags := make([]string, 0, len(idsByKind))
	for tag := range idsByKind {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	fetched := make([]map[int64]map[string]string, len(tags))

	g, gctx := errgroup.WithContext(ctx)
	for i, tag := range tags {
		kind, ok := e.registry.Lookup(tag)
		if !ok || len(kind.Attributes) == 0 {
			continue
		}
		ids := idsByKind[tag]
		i := i
		g.Go(func() error {
			fields, err := e.fetch(gctx, kind, ids)
			if err != nil {
				return err
			}
			fetched[i] = fields
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byKind := make(map[string]map[int64]map[string]string, len(tags))
	for i, tag := range tags {
		byKind[tag] = fetched[i]
	}

	out := make([]EnrichedResult, len(results))
	for i, r := range results {
		out[i] = EnrichedResult{
			Kind:   r.Kind,
			ID:     r.ID,
			Name:   r.Name,
			Weight: r.Weight,
			Fields: byKind[r.Kind][r.ID],
		}
	}
	return out, nil
}

func (e *Enricher) fetch(ctx context.Context, kind entities.Kind, ids []int64) (map[int64]map[string]string, error) {
	query, args := BuildFetchQuery(e.dialect, kind, ids)

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StoreError{Op: "enrich " + kind.Tag, Err: err}
	}
	defer rows.Close()

	fields := make(map[int64]map[string]string, len(ids))
	for rows.Next() {
		var id int64
		raw := make([]sql.NullString, len(kind.Attributes))
		dest := make([]any, 0, len(raw)+1)
		dest = append(dest, &id)
		for j := range raw {
			dest = append(dest, &raw[j])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, &StoreError{Op: "enrich " + kind.Tag, Err: err}
		}

		for j, attr := range kind.Attributes {
			value := attr.Value(raw[j])
			if value == "" {
				continue
			}
			if fields[id] == nil {
				fields[id] = make(map[string]string, len(kind.Attributes))
			}
			fields[id][attr.Name] = value
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "enrich " + kind.Tag, Err: err}
	}
	return fields, nil
}
