// Package upstream is the HTTP client for the marketplace REST API.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"estatehub/gateway/internal/models"
)

// NetworkError means no response was received from upstream.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError is a non-2xx response carrying the server's message.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: upstream returned %d: %s", e.Op, e.Status, e.Message)
}

// IsNotFound reports whether err is an upstream 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type tokenKey struct{}

// WithToken returns a context whose upstream calls are authorized with token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

// TokenFrom returns the token set by WithToken, or "".
func TokenFrom(ctx context.Context) string {
	tok, _ := ctx.Value(tokenKey{}).(string)
	return tok
}

// Tuning supplies runtime overrides for page size and search radius.
type Tuning interface {
	GetInt(ctx context.Context, key string, defaultValue int) int
}

// Options configures a Client.
type Options struct {
	Tuning         Tuning
	BaseURL        string
	Timeout        time.Duration
	PageSize       int
	NearbyRadiusKM int
	HTTPClient     *http.Client
	UserAgent      string
}

// Client calls the marketplace API. It has no retry policy; the HTTP client's
// fixed timeout bounds each request.
type Client struct {
	baseURL   string
	http      *http.Client
	pageSize  int
	radiusKM  int
	userAgent string
	tuning    Tuning
}

func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = "EstatehubGateway/1.0"
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		http:      hc,
		pageSize:  pageSize,
		radiusKM:  opts.NearbyRadiusKM,
		userAgent: ua,
		tuning:    opts.Tuning,
	}
}

func (c *Client) tuned(ctx context.Context, key string, def int) int {
	if c.tuning == nil {
		return def
	}
	if v := c.tuning.GetInt(ctx, key, def); v > 0 {
		return v
	}
	return def
}

// NearbyListings fetches one page of listings around at.
func (c *Client) NearbyListings(ctx context.Context, page int, at models.GeoPoint) (*models.ListingPage, error) {
	q := c.pageQuery(ctx, page)
	q.Set("latitude", strconv.FormatFloat(at.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(at.Longitude, 'f', -1, 64))
	if radius := c.tuned(ctx, "NEARBY_RADIUS_KM", c.radiusKM); radius > 0 {
		q.Set("radius", strconv.Itoa(radius))
	}
	var out models.ListingPage
	if err := c.getJSON(ctx, "nearby listings", "/listings/nearby", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AllListings fetches one page of listings without a location scope.
func (c *Client) AllListings(ctx context.Context, page int) (*models.ListingPage, error) {
	var out models.ListingPage
	if err := c.getJSON(ctx, "listings", "/listings", c.pageQuery(ctx, page), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Conversations fetches one page of the caller's conversations.
func (c *Client) Conversations(ctx context.Context, page int) (*models.ConversationPage, error) {
	var out models.ConversationPage
	if err := c.getJSON(ctx, "conversations", "/conversations", c.pageQuery(ctx, page), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateListing posts a multipart listing body.
func (c *Client) CreateListing(ctx context.Context, contentType string, body io.Reader) (*models.Listing, error) {
	var out models.Listing
	if err := c.send(ctx, "create listing", http.MethodPost, "/listings", contentType, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateListing puts a multipart listing body for an existing listing.
func (c *Client) UpdateListing(ctx context.Context, id, contentType string, body io.Reader) (*models.Listing, error) {
	var out models.Listing
	if err := c.send(ctx, "update listing", http.MethodPut, "/listings/"+url.PathEscape(id), contentType, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile puts a multipart profile body.
func (c *Client) UpdateProfile(ctx context.Context, contentType string, body io.Reader) (*models.Profile, error) {
	var out models.Profile
	if err := c.send(ctx, "update profile", http.MethodPut, "/users/profile", contentType, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) pageQuery(ctx context.Context, page int) url.Values {
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(c.tuned(ctx, "FEED_PAGE_SIZE", c.pageSize)))
	return q
}

func (c *Client) getJSON(ctx context.Context, op, path string, q url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	return c.do(op, req, out)
}

func (c *Client) send(ctx context.Context, op, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", contentType)
	return c.do(op, req, out)
}

func (c *Client) do(op string, req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if tok := TokenFrom(req.Context()); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	// Limit read to 8MB
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8*1024*1024))
	if err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Op: op, Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, body)}
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

// errorMessage extracts the human-readable message of an upstream error body.
func errorMessage(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 {
		return text
	}
	return http.StatusText(status)
}
