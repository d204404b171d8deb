package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/advisor"
	"github.com/mabhinav2955-coder/kisan-sub000/internal/api"
	"github.com/mabhinav2955-coder/kisan-sub000/internal/models"
	"github.com/mabhinav2955-coder/kisan-sub000/internal/sources"
	"github.com/mabhinav2955-coder/kisan-sub000/internal/storage"
)

type staticProvider struct{}

func (staticProvider) Name() string { return "static" }

func (staticProvider) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	return "Apply lime before sowing.", nil
}

// newServer runs the real router with unreachable upstreams, so every
// dataset comes from the built-in fallback rows.
func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	logger := zerolog.Nop()
	data := sources.New(sources.Config{
		Market:     sources.MarketConfig{CSVURL: deadURL},
		PestAlerts: sources.FeedConfig{URL: deadURL},
		Advisories: sources.FeedConfig{URL: deadURL},
	}, logger)
	handler := api.NewHandler(api.Dependencies{
		Data:  data,
		Chat:  advisor.NewAssembler(data, staticProvider{}, logger),
		Store: storage.NewMemoryStore(),
	}, logger)

	srv := httptest.NewServer(api.NewRouter(handler, logger))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_MarketPricesRevalidates(t *testing.T) {
	srv := newServer(t)
	client := NewClient(srv.URL)
	ctx := context.Background()

	first, err := client.MarketPrices(ctx, MarketQuery{ListOptions: ListOptions{Page: 1, Limit: 2}})
	if err != nil {
		t.Fatalf("MarketPrices failed: %v", err)
	}
	if first.NotModified || len(first.Items) != 2 || first.Total < 2 {
		t.Fatalf("unexpected first page %+v", first)
	}
	if first.Provenance != models.ProvenanceFallback || first.ETag == "" {
		t.Errorf("provenance=%q etag=%q", first.Provenance, first.ETag)
	}

	second, err := client.MarketPrices(ctx, MarketQuery{ListOptions: ListOptions{Page: 1, Limit: 2}})
	if err != nil {
		t.Fatalf("second MarketPrices failed: %v", err)
	}
	if !second.NotModified {
		t.Error("expected the cached page to be revalidated with 304")
	}
	if len(second.Items) != 2 || second.Items[0].Crop != first.Items[0].Crop || second.ETag != first.ETag {
		t.Errorf("revalidated page differs: %+v", second)
	}

	client.ForgetETags()
	third, err := client.MarketPrices(ctx, MarketQuery{ListOptions: ListOptions{Page: 1, Limit: 2}})
	if err != nil {
		t.Fatal(err)
	}
	if third.NotModified {
		t.Error("expected a full response after ForgetETags")
	}
}

func TestClient_PestAlertsAndSchemes(t *testing.T) {
	srv := newServer(t)
	client := NewClient(srv.URL)
	ctx := context.Background()

	pests, err := client.PestAlerts(ctx, PestQuery{Crop: "Rice"})
	if err != nil {
		t.Fatal(err)
	}
	if len(pests.Items) == 0 {
		t.Fatal("expected fallback pest alerts")
	}
	for _, p := range pests.Items {
		if !models.EqualFold(p.Crop, "Rice") {
			t.Errorf("unexpected crop %q", p.Crop)
		}
	}

	schemes, err := client.GovernmentAdvisories(ctx, AdvisoryQuery{SchemeType: "insurance"})
	if err != nil {
		t.Fatal(err)
	}
	if schemes.Total == 0 {
		t.Error("expected fallback schemes")
	}
}

func TestClient_ChatAndActivities(t *testing.T) {
	srv := newServer(t)
	client := NewClient(srv.URL)
	ctx := context.Background()

	reply, err := client.Chat(ctx, ChatRequest{Message: "When should I sow paddy?"})
	if err != nil || reply != "Apply lime before sowing." {
		t.Errorf("Chat = %q, %v", reply, err)
	}

	full, err := client.ChatWithContext(ctx, ChatRequest{Message: "hi"})
	if err != nil || full.Provider != "static" {
		t.Errorf("ChatWithContext = %+v, %v", full, err)
	}

	mobile, err := client.MobileChat(ctx, ChatRequest{Message: "hi"})
	if err != nil || mobile.Provider != "static" {
		t.Errorf("MobileChat = %+v, %v", mobile, err)
	}

	_, err = client.Chat(ctx, ChatRequest{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 APIError, got %v", err)
	}

	created, err := client.CreateActivity(ctx, &NewActivity{FarmerID: "f1", Type: "harvest", Description: "Harvested banana"})
	if err != nil {
		t.Fatalf("CreateActivity failed: %v", err)
	}
	got, err := client.GetActivity(ctx, created.ID)
	if err != nil || got.Description != "Harvested banana" {
		t.Errorf("GetActivity = %+v, %v", got, err)
	}
	list, err := client.ListActivities(ctx, ActivityQuery{FarmerID: "f1"})
	if err != nil || list.Total != 1 {
		t.Errorf("ListActivities = %+v, %v", list, err)
	}
	if err := client.DeleteActivity(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := client.GetActivity(ctx, created.ID); !IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestClient_NotModifiedWithoutCopy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotModified)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).MarketPrices(context.Background(), MarketQuery{})
	if !errors.Is(err, ErrNotModified) {
		t.Errorf("expected ErrNotModified, got %v", err)
	}
}

func TestClient_SendsQueryAndHeaders(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		q := r.URL.Query()
		if q.Get("crop") != "Rice" || q.Get("district") != "Thrissur" || q.Get("pest_name") != "blast" || q.Get("limit") != "5" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		w.Header().Set("ETag", `W/"1"`)
		json.NewEncoder(w).Encode(map[string]any{"success": true, "data": []any{}, "total": 0, "page": 1})
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", WithUserAgent("test-agent"))
	page, err := client.PestAlerts(context.Background(), PestQuery{
		Crop: "Rice", District: "Thrissur", PestName: "blast",
		ListOptions: ListOptions{Limit: 5},
	})
	if err != nil {
		t.Fatal(err)
	}
	if page.ETag != `W/"1"` || page.Total != 0 {
		t.Errorf("unexpected page %+v", page)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d", calls.Load())
	}
}

func TestAPIError_Fallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Health(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 500 || apiErr.Code != "unknown" {
		t.Errorf("unexpected error %v", err)
	}
}
