// Package rolimons is the client for the public Rolimons item and trade-ad APIs.
package rolimons

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/metrics"
)

const (
	DefaultItemDetailsURL = "https://www.rolimons.com/itemapi/itemdetails"
	DefaultTradeAdsURL    = "https://api.rolimons.com/tradeads/v1/getrecentads"
)

// Config holds the endpoint URLs and the per-request timeout.
type Config struct {
	ItemDetailsURL string
	TradeAdsURL    string
	Timeout        time.Duration
}

// Client fetches the value table and recent trade ads.
type Client struct {
	itemDetailsURL string
	tradeAdsURL    string
	httpClient     *http.Client
}

// NewClient creates a Rolimons client. Empty URLs fall back to the public
// endpoints.
func NewClient(cfg Config) *Client {
	if cfg.ItemDetailsURL == "" {
		cfg.ItemDetailsURL = DefaultItemDetailsURL
	}
	if cfg.TradeAdsURL == "" {
		cfg.TradeAdsURL = DefaultTradeAdsURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Client{
		itemDetailsURL: cfg.ItemDetailsURL,
		tradeAdsURL:    cfg.TradeAdsURL,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
	}
}

type itemDetailsResponse struct {
	Success   *bool                      `json:"success"`
	ItemCount int                        `json:"item_count"`
	Items     map[string]domain.ValueRow `json:"items"`
}

// FetchValues downloads the full itemdetails table. A non-2xx status, a body
// without an items object, or a row of the wrong shape is an error.
func (c *Client) FetchValues(ctx context.Context) (map[string]domain.ValueRow, error) {
	body, err := c.doGet(ctx, "itemdetails", c.itemDetailsURL)
	if err != nil {
		return nil, fmt.Errorf("rolimons: fetch values: %w", err)
	}

	var resp itemDetailsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("rolimons: decode values: %w", wrapShape(err))
	}
	if resp.Success != nil && !*resp.Success {
		return nil, fmt.Errorf("rolimons: fetch values: %w: success=false", domain.ErrBadPayload)
	}
	if resp.Items == nil {
		return nil, fmt.Errorf("rolimons: decode values: %w: no items object", domain.ErrBadPayload)
	}
	return resp.Items, nil
}

type tradeAdsResponse struct {
	Success  bool                `json:"success"`
	TradeAds [][]json.RawMessage `json:"trade_ads"`
}

// tradeAdUserIdx is the position of the poster's user id in a trade ad row.
const tradeAdUserIdx = 2

// RecentTraders returns the user ids behind the most recent trade ads, in
// feed order with duplicates removed.
func (c *Client) RecentTraders(ctx context.Context) ([]int64, error) {
	body, err := c.doGet(ctx, "tradeads", c.tradeAdsURL)
	if err != nil {
		return nil, fmt.Errorf("rolimons: fetch trade ads: %w", err)
	}

	var resp tradeAdsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("rolimons: decode trade ads: %w", wrapShape(err))
	}
	if !resp.Success {
		return nil, fmt.Errorf("rolimons: fetch trade ads: %w: success=false", domain.ErrBadPayload)
	}

	seen := make(map[int64]struct{}, len(resp.TradeAds))
	ids := make([]int64, 0, len(resp.TradeAds))
	for _, ad := range resp.TradeAds {
		if len(ad) <= tradeAdUserIdx {
			continue
		}
		var id int64
		if err := json.Unmarshal(ad[tradeAdUserIdx], &id); err != nil || id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *Client) doGet(ctx context.Context, endpoint, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()
	metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	snippet := string(body)
	if len(snippet) > 256 {
		snippet = snippet[:256]
	}
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, snippet)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, snippet)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, snippet)
	}
}

// wrapShape makes every decode failure match domain.ErrBadPayload.
func wrapShape(err error) error {
	if errors.Is(err, domain.ErrBadPayload) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrBadPayload, err)
}

var (
	_ domain.ValueFeed          = (*Client)(nil)
	_ domain.CounterpartySource = (*Client)(nil)
)
