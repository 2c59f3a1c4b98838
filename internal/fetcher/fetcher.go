// Package fetcher retrieves historical closing prices from the upstream
// market APIs (TSETMC, TGJU, NFusion) and normalizes every response shape
// into the common PricePoint row.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/alirezadp10/market-trends/internal/config"
	"github.com/alirezadp10/market-trends/internal/models"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// Fetcher fetches and normalizes price history for a single market.
type Fetcher interface {
	// Source reports which API kind this fetcher handles.
	Source() models.DataSource
	// Fetch returns the normalized price history for the market.
	Fetch(ctx context.Context, market config.Market) ([]models.PricePoint, error)
}

// Client is the shared HTTP layer with retry and backoff.
type Client struct {
	httpClient *http.Client
	maxRetries int
}

// NewClient creates an HTTP client for the upstream APIs.
func NewClient(timeout time.Duration, maxRetries int) *Client {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}
}

// GetJSON performs a GET request and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, out interface{}) error {
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		rawURL = rawURL + sep + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

// PostForm performs a form-encoded POST request and decodes the JSON
// response into out.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values, headers map[string]string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.do(req, out)
}

// do executes the request with retries and decodes the response body.
// Network errors, 429 and 5xx responses are retried with linear backoff;
// other statuses fail immediately.
func (c *Client) do(req *http.Request, out interface{}) error {
	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		// Rewind the body so retried POSTs resend the form.
		if attempt > 0 && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return errors.Wrap(err, "failed to rewind request body")
			}
			req.Body = body
		}
		resp, lastErr = c.httpClient.Do(req)
		if lastErr == nil && resp.StatusCode == http.StatusOK {
			break
		}

		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
				return errors.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Host)
			}
			lastErr = errors.Errorf("status %d", resp.StatusCode)
			resp = nil
		}

		log.Printf("Attempt %d/%d failed for %s: %v", attempt+1, c.maxRetries, req.URL.Host, lastErr)

		// No backoff after the last attempt.
		if attempt == c.maxRetries-1 {
			break
		}

		select {
		case <-req.Context().Done():
			return errors.Wrap(req.Context().Err(), "context canceled during retry")
		case <-time.After(time.Duration(attempt+1) * 500 * time.Millisecond):
		}
	}

	if resp == nil {
		return errors.Wrapf(lastErr, "request to %s failed after %d attempts", req.URL.Host, c.maxRetries)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}

// MarketFetcher dispatches fetch requests to the per-source fetchers.
type MarketFetcher struct {
	fetchers map[models.DataSource]Fetcher
}

// New creates a MarketFetcher covering every registered source.
func New(cfg *config.Config) *MarketFetcher {
	client := NewClient(cfg.APITimeout(), cfg.MaxRetries)
	tgju := NewTGJUFetcher(client)
	mf := &MarketFetcher{fetchers: make(map[models.DataSource]Fetcher)}
	for _, f := range []Fetcher{
		NewTSETMCFetcher(client),
		tgju.ForSource(models.TGJUIndexSource),
		tgju.ForSource(models.TGJUStockSource),
		tgju.ForSource(models.TGJUIndicatorSource),
		NewNFusionFetcher(client, cfg.NFusionToken),
	} {
		mf.fetchers[f.Source()] = f
	}
	return mf
}

// FetchMarket fetches the price history for a single named market.
func (mf *MarketFetcher) FetchMarket(ctx context.Context, name string) ([]models.PricePoint, error) {
	market, ok := config.FindMarket(name)
	if !ok {
		return nil, fmt.Errorf("unknown market: %s", name)
	}
	f, ok := mf.fetchers[market.Source]
	if !ok {
		return nil, fmt.Errorf("no fetcher for source: %s", market.Source)
	}

	points, err := f.Fetch(ctx, market)
	if err != nil {
		return nil, fmt.Errorf("error fetching %s: %w", name, err)
	}
	if len(points) == 0 {
		log.Printf("No data for %s", name)
	}
	return points, nil
}
