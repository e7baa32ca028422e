package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultTimeout = 60 * time.Second
	rateLimit      = 2 // requests per second, conservative for shared feed keys
)

// Client is a rate-limited client for the pharmacy data-feed tables API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rateLimiter
}

// rateLimiter implements a simple token bucket rate limiter.
type rateLimiter struct {
	mu       sync.Mutex
	lastCall time.Time
	interval time.Duration
}

func newRateLimiter(requestsPerSecond int) *rateLimiter {
	return &rateLimiter{
		interval: time.Second / time.Duration(requestsPerSecond),
	}
}

func (r *rateLimiter) Wait() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(r.lastCall)
	if elapsed < r.interval {
		time.Sleep(r.interval - elapsed)
	}
	r.lastCall = time.Now()
}

// NewClient creates a new feed API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter: newRateLimiter(rateLimit),
	}
}

// FetchTable fetches data from a feed table with the given parameters.
// Handles cursor pagination automatically and returns all rows.
func (c *Client) FetchTable(ctx context.Context, table string, params map[string]string) (*Response, error) {
	allData := &Response{}
	var cursorID *string

	for {
		resp, err := c.fetchPage(ctx, table, params, cursorID)
		if err != nil {
			return nil, err
		}

		// Columns only need merging on the first page
		if len(allData.Datatable.Columns) == 0 {
			allData.Datatable.Columns = resp.Datatable.Columns
		}

		allData.Datatable.Data = append(allData.Datatable.Data, resp.Datatable.Data...)

		if resp.Meta.NextCursorID == nil || *resp.Meta.NextCursorID == "" {
			break
		}
		cursorID = resp.Meta.NextCursorID
		log.Printf("Fetching next page (cursor: %s...)", (*cursorID)[:min(20, len(*cursorID))])
	}

	return allData, nil
}

// fetchPage fetches a single page of data.
func (c *Client) fetchPage(ctx context.Context, table string, params map[string]string, cursorID *string) (*Response, error) {
	u, err := url.Parse(fmt.Sprintf("%s/%s.json", c.baseURL, table))
	if err != nil {
		return nil, fmt.Errorf("invalid table name: %w", err)
	}

	q := u.Query()
	q.Set("api_key", c.apiKey)
	for k, v := range params {
		q.Set(k, v)
	}
	if cursorID != nil {
		q.Set("qopts.cursor_id", *cursorID)
	}
	u.RawQuery = q.Encode()

	c.limiter.Wait()

	var resp *Response
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<attempt) * time.Second
			log.Printf("Retry attempt %d after %v", attempt, backoff)
			time.Sleep(backoff)
		}

		resp, lastErr = c.doRequest(ctx, u.String())
		if lastErr == nil {
			return resp, nil
		}

		// Don't retry on context cancellation
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		log.Printf("Request failed (attempt %d): %v", attempt+1, lastErr)
	}

	return nil, fmt.Errorf("all retries failed: %w", lastErr)
}

func (c *Client) doRequest(ctx context.Context, urlStr string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if httpResp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited (429)")
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", httpResp.StatusCode, string(body))
	}

	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	return &resp, nil
}

// FetchPharmacies fetches the network's pharmacies. If ids is empty, fetches
// all pharmacies.
func (c *Client) FetchPharmacies(ctx context.Context, ids []int64) ([]PharmacyRow, error) {
	params := map[string]string{}
	if len(ids) > 0 {
		params["pharmacy_id"] = joinIDs(ids)
	}

	resp, err := c.FetchTable(ctx, "feed/pharmacies", params)
	if err != nil {
		return nil, fmt.Errorf("fetching pharmacies: %w", err)
	}

	return ParsePharmacies(resp)
}

// FetchCatalog fetches the global product reference. If since is zero,
// fetches the full catalog.
func (c *Client) FetchCatalog(ctx context.Context, since time.Time) ([]CatalogRow, error) {
	params := map[string]string{}
	if !since.IsZero() {
		params["last_updated.gte"] = since.Format("2006-01-02")
	}

	resp, err := c.FetchTable(ctx, "feed/catalog", params)
	if err != nil {
		return nil, fmt.Errorf("fetching catalog: %w", err)
	}

	return ParseCatalog(resp)
}

// FetchSales fetches sell-out facts. pharmacyIDs is required (at least one).
// If since is zero, fetches all history.
func (c *Client) FetchSales(ctx context.Context, pharmacyIDs []int64, since time.Time) ([]SaleRow, error) {
	if len(pharmacyIDs) == 0 {
		return nil, fmt.Errorf("at least one pharmacy required for sales fetch")
	}

	params := map[string]string{
		"pharmacy_id": joinIDs(pharmacyIDs),
	}
	if !since.IsZero() {
		params["last_updated.gte"] = since.Format("2006-01-02")
	}

	resp, err := c.FetchTable(ctx, "feed/sales", params)
	if err != nil {
		return nil, fmt.Errorf("fetching sales: %w", err)
	}

	return ParseSales(resp)
}

// FetchSnapshots fetches stock/price snapshots. pharmacyIDs is required.
// If since is zero, fetches all history.
func (c *Client) FetchSnapshots(ctx context.Context, pharmacyIDs []int64, since time.Time) ([]SnapshotRow, error) {
	if len(pharmacyIDs) == 0 {
		return nil, fmt.Errorf("at least one pharmacy required for snapshot fetch")
	}

	params := map[string]string{
		"pharmacy_id": joinIDs(pharmacyIDs),
	}
	if !since.IsZero() {
		params["last_updated.gte"] = since.Format("2006-01-02")
	}

	resp, err := c.FetchTable(ctx, "feed/snapshots", params)
	if err != nil {
		return nil, fmt.Errorf("fetching snapshots: %w", err)
	}

	return ParseSnapshots(resp)
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}
