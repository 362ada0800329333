package search

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/openglide/skysearch/pkg/entities"
)

var searchTracer = otel.Tracer("skysearch/search/engine")

const (
	// DefaultLimit is used when a caller passes a non-positive limit.
	DefaultLimit = 20

	// MaxLimit caps every search; unbounded results are never returned.
	MaxLimit = 100
)

// Querier is the store surface the engine needs. *sql.DB and the
// storage connection manager both satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// RankedResult is one candidate row: a kind tag, entity id, display name
// and the weight the store computed for it.
type RankedResult struct {
	Kind   string `json:"kind"`
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Weight int    `json:"weight"`
}

// Engine runs ranked searches across every registered kind.
type Engine struct {
	db           Querier
	dialect      Dialect
	registry     *entities.Registry
	defaultLimit int
	maxLimit     int
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithDefaultLimit overrides DefaultLimit.
func WithDefaultLimit(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.defaultLimit = n
		}
	}
}

// WithMaxLimit overrides MaxLimit.
func WithMaxLimit(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxLimit = n
		}
	}
}

// NewEngine creates a search engine over db.
func NewEngine(db Querier, dialect Dialect, registry *entities.Registry, opts ...EngineOption) *Engine {
	e := &Engine{
		db:           db,
		dialect:      dialect,
		registry:     registry,
		defaultLimit: DefaultLimit,
		maxLimit:     MaxLimit,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.defaultLimit > e.maxLimit {
		e.defaultLimit = e.maxLimit
	}
	return e
}

// Registry returns the kinds the engine searches.
func (e *Engine) Registry() *entities.Registry {
	return e.registry
}

// Dialect returns the SQL dialect the engine renders for.
func (e *Engine) Dialect() Dialect {
	return e.dialect
}

// Limit normalizes a requested limit: non-positive means the default,
// anything above the maximum is capped.
func (e *Engine) Limit(limit int) int {
	if limit <= 0 {
		return e.defaultLimit
	}
	if limit > e.maxLimit {
		return e.maxLimit
	}
	return limit
}

// Search tokenizes raw and returns the top ranked rows across all kinds.
// Empty or whitespace-only input returns an empty list without touching
// the store.
func (e *Engine) Search(ctx context.Context, raw string, limit int) ([]RankedResult, error) {
	tokens, err := Parse(raw)
	if errors.Is(err, ErrEmptyQuery) {
		return []RankedResult{}, nil
	}
	if err != nil {
		return nil, err
	}
	return e.SearchTokens(ctx, tokens, limit)
}

// SearchTokens runs one UNION ALL query over every registered kind for an
// already escaped token set.
func (e *Engine) SearchTokens(ctx context.Context, tokens TokenSet, limit int) ([]RankedResult, error) {
	if len(tokens) == 0 || e.registry.Len() == 0 {
		return []RankedResult{}, nil
	}
	limit = e.Limit(limit)

	ctx, span := searchTracer.Start(ctx, "Engine.Search",
		trace.WithAttributes(
			attribute.Int("token_count", len(tokens)),
			attribute.String("kinds", strings.Join(e.registry.Tags(), ",")),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	query, args := BuildSearchQuery(e.dialect, e.registry.Kinds(), tokens, limit)

	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to execute search")
		return nil, &StoreError{Op: "query", Err: err}
	}
	defer rows.Close()

	results := make([]RankedResult, 0, limit)
	for rows.Next() {
		var r RankedResult
		if err := rows.Scan(&r.Kind, &r.ID, &r.Name, &r.Weight); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to scan result")
			return nil, &StoreError{Op: "scan", Err: err}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read results")
		return nil, &StoreError{Op: "rows", Err: err}
	}

	span.SetAttributes(attribute.Int("result_count", len(results)))
	return results, nil
}
