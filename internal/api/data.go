package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/models"
	"github.com/mabhinav2955-coder/kisan-sub000/internal/sources"
	"github.com/mabhinav2955-coder/kisan-sub000/internal/tracing"
)

// Response headers of the data routes.
const (
	HeaderProvenance = "X-Data-Provenance"
	HeaderCache      = "X-Cache"
	cacheControl     = "public, max-age=300"
)

// Data handlers

// MarketPrices handles GET /api/data/market-prices.
func (h *Handler) MarketPrices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := sources.MarketFilter{Crop: strings.TrimSpace(q.Get("crop"))}
	key := cacheKey(sources.SourceMarket, url.Values{"crop": {filter.Crop}})

	serveDataset(h, w, r, sources.SourceMarket, key, func(ctx context.Context) models.Dataset[models.MarketPrice] {
		return h.data.FetchMarketPrices(ctx, filter)
	})
}

// PestAlerts handles GET /api/data/pest-alerts.
func (h *Handler) PestAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := sources.PestFilter{
		Crop:     strings.TrimSpace(q.Get("crop")),
		District: strings.TrimSpace(q.Get("district")),
		Date:     strings.TrimSpace(q.Get("date")),
		PestName: strings.TrimSpace(q.Get("pest_name")),
	}
	key := cacheKey(sources.SourcePestAlerts, url.Values{
		"crop":      {filter.Crop},
		"district":  {filter.District},
		"date":      {filter.Date},
		"pest_name": {filter.PestName},
	})

	serveDataset(h, w, r, sources.SourcePestAlerts, key, func(ctx context.Context) models.Dataset[models.PestAlert] {
		return h.data.FetchPestAlerts(ctx, filter)
	})
}

// GovernmentAdvisories handles GET /api/data/government-advisories.
func (h *Handler) GovernmentAdvisories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := sources.AdvisoryFilter{
		SchemeType: strings.TrimSpace(q.Get("scheme_type")),
		Crop:       strings.TrimSpace(q.Get("crop")),
	}
	key := cacheKey(sources.SourceAdvisories, url.Values{
		"scheme_type": {filter.SchemeType},
		"crop":        {filter.Crop},
	})

	serveDataset(h, w, r, sources.SourceAdvisories, key, func(ctx context.Context) models.Dataset[models.GovernmentAdvisory] {
		return h.data.FetchGovernmentAdvisories(ctx, filter)
	})
}

// serveDataset answers a data route from the cache, fetching on a miss.
// A cache hit whose ETag matches If-None-Match gets 304 with no body.
// Pagination is applied to the cached list; total is the full list length.
func serveDataset[T any](h *Handler, w http.ResponseWriter, r *http.Request, resource, key string, fetch func(context.Context) models.Dataset[T]) {
	page, limit := pagination(r)

	entry, hit, err := h.cache.GetOrLoad(r.Context(), key, h.dataTTL, func(ctx context.Context) (any, error) {
		// Shared by concurrent callers, so it must not inherit one request's cancellation.
		return fetch(context.WithoutCancel(ctx)), nil
	})
	if err != nil {
		h.logger.Error().Err(err).Str("resource", resource).Msg("Failed to cache dataset")
		h.WriteAPIError(w, ErrInternalError)
		return
	}
	ds, ok := entry.Value.(models.Dataset[T])
	if !ok {
		h.logger.Error().Str("resource", resource).Str("key", key).Msg("Unexpected cached value type")
		h.WriteAPIError(w, ErrInternalError)
		return
	}

	result := "miss"
	if hit {
		result = "hit"
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(tracing.AttrCacheKey.String(key), tracing.AttrProvenance.String(string(ds.Provenance)))

	header := w.Header()
	header.Set("ETag", entry.ETag)
	header.Set("Cache-Control", cacheControl)
	header.Set(HeaderProvenance, string(ds.Provenance))
	header.Set(HeaderCache, strings.ToUpper(result))

	if hit && etagMatches(r.Header.Get("If-None-Match"), entry.ETag) {
		h.metrics.RecordCacheLookup(resource, "not_modified")
		w.WriteHeader(http.StatusNotModified)
		return
	}
	h.metrics.RecordCacheLookup(resource, result)

	h.writeJSON(w, http.StatusOK, ListResponse{
		Success:    true,
		Data:       ds.Page(page, limit),
		Total:      ds.Len(),
		Page:       page,
		Provenance: string(ds.Provenance),
	})
}

// cacheKey builds a stable key from the non-empty filters. Filters match
// case-insensitively, so values are lower-cased.
func cacheKey(resource string, filters url.Values) string {
	q := url.Values{}
	for k, vs := range filters {
		for _, v := range vs {
			if v != "" {
				q.Add(k, strings.ToLower(v))
			}
		}
	}
	if len(q) == 0 {
		return resource
	}
	return resource + "?" + q.Encode()
}

// etagMatches reports whether an If-None-Match header names etag. The weak
// prefix is ignored on both sides.
func etagMatches(header, etag string) bool {
	if header == "" || etag == "" {
		return false
	}
	want := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == want {
			return true
		}
	}
	return false
}
