package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/openglide/skysearch/pkg/cache"
	"github.com/openglide/skysearch/pkg/httputil"
	"github.com/openglide/skysearch/pkg/observability"
	"github.com/openglide/skysearch/pkg/search"
)

// SearchHandlers provides HTTP handlers for cross-entity search
type SearchHandlers struct {
	service *search.Service
	cache   *cache.ResultCache
}

// NewSearchHandlers creates search handlers. A nil cache disables caching.
func NewSearchHandlers(service *search.Service, c *cache.ResultCache) *SearchHandlers {
	return &SearchHandlers{
		service: service,
		cache:   c,
	}
}

// RegisterRoutes registers search routes
func (h *SearchHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/search", h.search).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/search", h.search).Methods(http.MethodGet)
}

// search handles GET /search
// Query parameters:
//   - text: whitespace separated tokens, `*` is a wildcard
//   - limit: max results (default: 20, capped at 100)
//   - explain: include per-token weight contributions (default: false)
func (h *SearchHandlers) search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, ok := httputil.ParseQueryIntOrError(w, r, "limit", 0)
	if !ok {
		return
	}
	if limit < 0 {
		httputil.WriteBadRequest(w, "limit must not be negative")
		return
	}

	explain, ok := httputil.ParseQueryBoolOrError(w, r, "explain", false)
	if !ok {
		return
	}

	req := search.Request{
		Text:    httputil.ParseQueryString(r, "text", ""),
		Limit:   limit,
		Explain: explain,
	}

	key, cacheable := h.cacheKey(req)
	if cacheable {
		if body, err := h.cache.Get(ctx, key); err == nil {
			httputil.WriteJSONBytes(w, http.StatusOK, body)
			return
		}
	}

	resp, err := h.service.Search(ctx, req)
	if err != nil {
		var storeErr *search.StoreError
		if errors.As(err, &storeErr) {
			observability.FromContext(ctx).WithError(err).WithField("op", storeErr.Op).Error("search store failure")
		}
		httputil.WriteInternalErrorWithRequestID(w, observability.GetRequestID(ctx))
		return
	}

	body, err := json.Marshal(resp)
	if err != nil {
		observability.FromContext(ctx).WithError(err).Error("failed to encode search response")
		httputil.WriteInternalErrorWithRequestID(w, observability.GetRequestID(ctx))
		return
	}

	if cacheable {
		if err := h.cache.Set(ctx, key, body); err != nil {
			observability.FromContext(ctx).WithError(err).Warn("failed to cache search response")
		}
	}

	httputil.WriteJSONBytes(w, http.StatusOK, body)
}

// cacheKey derives the cache key for req. Empty searches are never cached.
func (h *SearchHandlers) cacheKey(req search.Request) (cache.Key, bool) {
	if h.cache == nil {
		return cache.Key{}, false
	}

	query := strings.TrimSpace(req.Text)
	tokens, err := search.Parse(query)
	if err != nil {
		return cache.Key{}, false
	}

	// The body echoes the query, so texts differing only in spacing get
	// separate entries
	engine := h.service.Engine()
	key := cache.NewKey(engine.Registry().Tags(), query, tokens, engine.Limit(req.Limit), req.Explain)
	return key, key.Valid()
}
