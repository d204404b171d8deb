// Package sdk provides a client for the Krishi Sakhi API.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mabhinav2955-coder/kisan-sub000/internal/models"
)

// ErrNotModified is returned by the data methods when the server answers
// 304 and the client has no cached body to return.
var ErrNotModified = errors.New("not modified")

// Client is a Krishi Sakhi API client. Data methods remember the ETag of
// each request and revalidate with If-None-Match.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string

	mu    sync.Mutex
	etags map[string]cachedPage
}

type cachedPage struct {
	etag string
	body []byte
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a new API client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		userAgent: "krishi-sdk",
		etags:     make(map[string]cachedPage),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// ListOptions selects a page of a list route. Zero values use the server
// defaults.
type ListOptions struct {
	Page  int
	Limit int
}

func (o ListOptions) apply(q url.Values) {
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
}

// Page is one page of a list route.
type Page[T any] struct {
	Items      []T
	Total      int
	Page       int
	Provenance models.Provenance
	ETag       string
	// NotModified is set when the server answered 304 and Items came from
	// the client's copy of the previous response.
	NotModified bool
}

// MarketQuery filters market prices.
type MarketQuery struct {
	Crop string
	ListOptions
}

// PestQuery filters pest alerts.
type PestQuery struct {
	Crop     string
	District string
	Date     string
	PestName string
	ListOptions
}

// AdvisoryQuery filters government schemes.
type AdvisoryQuery struct {
	SchemeType string
	Crop       string
	ListOptions
}

// ActivityQuery filters the activity log.
type ActivityQuery struct {
	FarmerID string
	ListOptions
}

// ChatRequest is a chat question.
type ChatRequest struct {
	Message  string           `json:"message"`
	Language string           `json:"language,omitempty"`
	Location *models.Location `json:"location,omitempty"`
}

// ChatReply is the answer from the mobile and v2 chat routes.
type ChatReply struct {
	Content  string         `json:"content"`
	Provider string         `json:"provider,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewActivity is the body for logging farm work.
type NewActivity struct {
	FarmerID    string           `json:"farmer_id" yaml:"farmer_id"`
	Type        string           `json:"type" yaml:"type"`
	Crop        string           `json:"crop,omitempty" yaml:"crop,omitempty"`
	Description string           `json:"description" yaml:"description"`
	Quantity    string           `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	Location    *models.Location `json:"location,omitempty" yaml:"location,omitempty"`
	Date        string           `json:"date,omitempty" yaml:"date,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s (status %d)", e.Code, e.Message, e.StatusCode)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// MarketPrices lists mandi prices.
func (c *Client) MarketPrices(ctx context.Context, query MarketQuery) (*Page[models.MarketPrice], error) {
	q := url.Values{}
	setIf(q, "crop", query.Crop)
	query.apply(q)
	return getList[models.MarketPrice](ctx, c, "/api/data/market-prices", q)
}

// PestAlerts lists pest alerts, most severe first.
func (c *Client) PestAlerts(ctx context.Context, query PestQuery) (*Page[models.PestAlert], error) {
	q := url.Values{}
	setIf(q, "crop", query.Crop)
	setIf(q, "district", query.District)
	setIf(q, "date", query.Date)
	setIf(q, "pest_name", query.PestName)
	query.apply(q)
	return getList[models.PestAlert](ctx, c, "/api/data/pest-alerts", q)
}

// GovernmentAdvisories lists government schemes.
func (c *Client) GovernmentAdvisories(ctx context.Context, query AdvisoryQuery) (*Page[models.GovernmentAdvisory], error) {
	q := url.Values{}
	setIf(q, "scheme_type", query.SchemeType)
	setIf(q, "crop", query.Crop)
	query.apply(q)
	return getList[models.GovernmentAdvisory](ctx, c, "/api/data/government-advisories", q)
}

// Chat asks the main chat route. Provider failures come back as the
// server's fallback text, not as an error.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	var result struct {
		Reply string `json:"reply"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/chat/message", req, &result); err != nil {
		return "", err
	}
	return result.Reply, nil
}

// ChatWithContext asks the v2 chat route and returns the reply together
// with the data that informed it.
func (c *Client) ChatWithContext(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	var result struct {
		Response ChatReply `json:"response"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v2/chat/message", req, &result); err != nil {
		return nil, err
	}
	if p, ok := result.Response.Metadata["provider"].(string); ok {
		result.Response.Provider = p
	}
	return &result.Response, nil
}

// MobileChat asks the mobile route, which tries each configured provider.
func (c *Client) MobileChat(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	var result struct {
		Reply    string `json:"reply"`
		Provider string `json:"provider"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/mobile/chat", req, &result); err != nil {
		return nil, err
	}
	return &ChatReply{Content: result.Reply, Provider: result.Provider}, nil
}

// CreateActivity logs farm work.
func (c *Client) CreateActivity(ctx context.Context, activity *NewActivity) (*models.Activity, error) {
	var result struct {
		Data models.Activity `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/activities", activity, &result); err != nil {
		return nil, err
	}
	return &result.Data, nil
}

// GetActivity retrieves an activity by ID.
func (c *Client) GetActivity(ctx context.Context, id string) (*models.Activity, error) {
	var result struct {
		Data models.Activity `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/activities/"+url.PathEscape(id), nil, &result); err != nil {
		return nil, err
	}
	return &result.Data, nil
}

// ListActivities lists logged work, newest first.
func (c *Client) ListActivities(ctx context.Context, query ActivityQuery) (*Page[models.Activity], error) {
	q := url.Values{}
	setIf(q, "farmer_id", query.FarmerID)
	query.apply(q)

	var result listEnvelope[models.Activity]
	if err := c.do(ctx, http.MethodGet, "/api/activities?"+q.Encode(), nil, &result); err != nil {
		return nil, err
	}
	return result.page(""), nil
}

// DeleteActivity deletes an activity.
func (c *Client) DeleteActivity(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/activities/"+url.PathEscape(id), nil, nil)
}

// Health checks the server health.
func (c *Client) Health(ctx context.Context) (map[string]interface{}, error) {
	var result struct {
		Data map[string]interface{} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

type listEnvelope[T any] struct {
	Success    bool              `json:"success"`
	Data       []T               `json:"data"`
	Total      int               `json:"total"`
	Page       int               `json:"page"`
	Provenance models.Provenance `json:"provenance"`
}

func (e listEnvelope[T]) page(etag string) *Page[T] {
	return &Page[T]{
		Items:      e.Data,
		Total:      e.Total,
		Page:       e.Page,
		Provenance: e.Provenance,
		ETag:       etag,
	}
}

// getList fetches a data route, revalidating with the ETag of the last
// response for the same URL.
func getList[T any](ctx context.Context, c *Client, path string, q url.Values) (*Page[T], error) {
	target := path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}

	c.mu.Lock()
	prev, known := c.etags[target]
	c.mu.Unlock()

	req, err := c.newRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if known {
		req.Header.Set("If-None-Match", prev.etag)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body := prev.body
	notModified := resp.StatusCode == http.StatusNotModified
	switch {
	case notModified:
		if !known {
			return nil, ErrNotModified
		}
	case resp.StatusCode >= 400:
		return nil, decodeAPIError(resp)
	default:
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
	}

	var envelope listEnvelope[T]
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	etag := resp.Header.Get("ETag")
	if etag == "" {
		etag = prev.etag
	}
	if !notModified && etag != "" {
		c.mu.Lock()
		c.etags[target] = cachedPage{etag: etag, body: body}
		c.mu.Unlock()
	}

	page := envelope.page(etag)
	page.NotModified = notModified
	if p := resp.Header.Get("X-Data-Provenance"); p != "" {
		page.Provenance = models.Provenance(p)
	}
	return page, nil
}

// ForgetETags drops remembered ETags so the next requests fetch full bodies.
func (c *Client) ForgetETags() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.etags = make(map[string]cachedPage)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body interface{}) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var apiErr APIError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Message == "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Code:       "unknown",
			Message:    fmt.Sprintf("request failed with status %d", resp.StatusCode),
		}
	}
	apiErr.StatusCode = resp.StatusCode
	return &apiErr
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
