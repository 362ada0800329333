package search

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/openglide/skysearch/pkg/observability"
)

// Request is one search as received from a caller.
type Request struct {
	Text    string
	Limit   int
	Explain bool
}

// Response is the rendered search result view.
type Response struct {
	Query   string           `json:"query"`
	Results []EnrichedResult `json:"results"`
	Count   int              `json:"count"`
}

// Recorder receives per-search outcomes. *observability.Metrics implements it.
type Recorder interface {
	RecordSearch(status string, duration time.Duration, results int)
}

// Service runs the full pipeline: rank, enrich and optionally explain.
type Service struct {
	engine   *Engine
	enricher *Enricher
	metrics  Recorder
	logger   *observability.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithRecorder reports search outcomes to r.
func WithRecorder(r Recorder) ServiceOption {
	return func(s *Service) {
		s.metrics = r
	}
}

// WithLogger sets the fallback logger used when the request context
// carries none.
func WithLogger(logger *observability.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService combines a ranking engine and an enricher.
func NewService(engine *Engine, enricher *Enricher, opts ...ServiceOption) *Service {
	s := &Service{
		engine:   engine,
		enricher: enricher,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the underlying ranking engine.
func (s *Service) Engine() *Engine {
	return s.engine
}

// Search ranks, enriches and renders one request. Empty text renders an
// empty view without touching the store.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	query := strings.TrimSpace(req.Text)

	ctx, span := searchTracer.Start(ctx, "Service.Search",
		trace.WithAttributes(
			attribute.String("query", query),
			attribute.Int("limit", req.Limit),
			attribute.Bool("explain", req.Explain),
		),
	)
	defer span.End()

	resp, err := s.search(ctx, query, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		s.record("error", start, 0)
		s.log(ctx).WithError(err).WithField("query", query).Error("search failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int("result_count", resp.Count))
	s.record("ok", start, resp.Count)
	s.log(ctx).WithFields(map[string]interface{}{
		"query":    query,
		"results":  resp.Count,
		"duration": time.Since(start).String(),
	}).Debug("search served")

	return resp, nil
}

func (s *Service) search(ctx context.Context, query string, req Request) (*Response, error) {
	empty := &Response{Query: query, Results: []EnrichedResult{}}

	tokens, err := Parse(query)
	if errors.Is(err, ErrEmptyQuery) {
		return empty, nil
	}
	if err != nil {
		return nil, err
	}

	ranked, err := s.engine.SearchTokens(ctx, tokens, req.Limit)
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 {
		return empty, nil
	}

	results, err := s.enricher.Enrich(ctx, ranked)
	if err != nil {
		return nil, err
	}

	if req.Explain {
		dialect := s.engine.Dialect()
		for i := range results {
			results[i].Explain = dialect.Explain(results[i].Name, tokens)
			if results[i].Explain == nil {
				results[i].Explain = []Contribution{}
			}
		}
	}

	return &Response{Query: query, Results: results, Count: len(results)}, nil
}

func (s *Service) record(status string, start time.Time, results int) {
	if s.metrics != nil {
		s.metrics.RecordSearch(status, time.Since(start), results)
	}
}

func (s *Service) log(ctx context.Context) *observability.Logger {
	if _, ok := ctx.Value(observability.LoggerKey).(*observability.Logger); !ok && s.logger != nil {
		ctx = observability.WithLogger(ctx, s.logger)
	}
	return observability.UpdateLoggerWithTraceContext(ctx, observability.FromContext(ctx))
}
