// Package roblox wraps the Roblox inventory and trade endpoints the scanner
// needs: collectible inventories, the can-trade check and trade links.
package roblox

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/alanyoungcy/limitedbot/internal/domain"
	"github.com/alanyoungcy/limitedbot/internal/metrics"
)

const (
	DefaultInventoryURL = "https://inventory.roblox.com"
	DefaultTradesURL    = "https://trades.roblox.com"

	pageLimit = 100
	maxPages  = 50

	// RateLimitKey is the key requests are paced under on a shared limiter.
	RateLimitKey = "roblox"
)

// Config holds endpoints, credentials and pacing.
type Config struct {
	InventoryURL string
	TradesURL    string
	// Cookie is the .ROBLOSECURITY value. It is required by the can-trade check.
	Cookie            string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	// Limiter, when set, paces requests across every process sharing it and
	// replaces the in-process limiter.
	Limiter domain.RateLimiter
}

// Client is safe for concurrent use.
type Client struct {
	inventoryURL string
	tradesURL    string
	http         *resty.Client
	limiter      *rate.Limiter
	shared       domain.RateLimiter
}

// NewClient builds a client. Zero values select the public endpoints, a 15s
// timeout and two requests per second.
func NewClient(cfg Config) *Client {
	if cfg.InventoryURL == "" {
		cfg.InventoryURL = DefaultInventoryURL
	}
	if cfg.TradesURL == "" {
		cfg.TradesURL = DefaultTradesURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	hc := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	if cfg.Cookie != "" {
		hc.SetCookie(&http.Cookie{Name: ".ROBLOSECURITY", Value: cfg.Cookie})
	}

	return &Client{
		inventoryURL: strings.TrimRight(cfg.InventoryURL, "/"),
		tradesURL:    strings.TrimRight(cfg.TradesURL, "/"),
		http:         hc,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		shared:       cfg.Limiter,
	}
}

type collectible struct {
	UserAssetID        int64  `json:"userAssetId"`
	AssetID            int64  `json:"assetId"`
	Name               string `json:"name"`
	RecentAveragePrice *int64 `json:"recentAveragePrice"`
	IsOnHold           *bool  `json:"isOnHold"`
}

type collectiblesPage struct {
	NextPageCursor *string       `json:"nextPageCursor"`
	Data           []collectible `json:"data"`
}

// FetchInventory returns the user's tradable collectibles, following page
// cursors. Items on hold, or with no hold flag at all, are dropped.
func (c *Client) FetchInventory(ctx context.Context, userID int64) ([]domain.InventoryItem, error) {
	var items []domain.InventoryItem
	cursor := ""

	for page := 0; page < maxPages; page++ {
		var body collectiblesPage
		req := c.http.R().
			SetContext(ctx).
			SetPathParam("userId", strconv.FormatInt(userID, 10)).
			SetQueryParams(map[string]string{
				"assetType": "All",
				"sortOrder": "Asc",
				"limit":     strconv.Itoa(pageLimit),
			}).
			SetResult(&body)
		if cursor != "" {
			req.SetQueryParam("cursor", cursor)
		}

		if err := c.do(ctx, "inventory", req, c.inventoryURL+"/v1/users/{userId}/assets/collectibles"); err != nil {
			return nil, fmt.Errorf("roblox: fetch inventory %d: %w", userID, err)
		}

		for _, it := range body.Data {
			if it.IsOnHold == nil || *it.IsOnHold {
				continue
			}
			var rap int64
			if it.RecentAveragePrice != nil {
				rap = *it.RecentAveragePrice
			}
			items = append(items, domain.InventoryItem{
				OwnedInstanceID: it.UserAssetID,
				AssetID:         it.AssetID,
				Name:            it.Name,
				FallbackValue:   rap,
			})
		}

		if body.NextPageCursor == nil || *body.NextPageCursor == "" {
			return items, nil
		}
		cursor = *body.NextPageCursor
	}
	return items, nil
}

type canTradeResponse struct {
	CanTrade bool   `json:"canTrade"`
	Status   string `json:"status"`
}

// CanTradeWith asks whether the authenticated account may trade with userID.
func (c *Client) CanTradeWith(ctx context.Context, userID int64) (bool, error) {
	var body canTradeResponse
	req := c.http.R().
		SetContext(ctx).
		SetPathParam("userId", strconv.FormatInt(userID, 10)).
		SetResult(&body)

	if err := c.do(ctx, "can_trade", req, c.tradesURL+"/v1/users/{userId}/can-trade-with"); err != nil {
		return false, fmt.Errorf("roblox: can trade with %d: %w", userID, err)
	}
	return body.CanTrade, nil
}

func (c *Client) do(ctx context.Context, endpoint string, req *resty.Request, url string) error {
	if err := c.wait(ctx); err != nil {
		return fmt.Errorf("wait for rate limiter: %w", err)
	}

	resp, err := req.Get(url)
	if err != nil {
		metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("http request: %w", err)
	}
	metrics.UpstreamRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode())).Inc()

	switch code := resp.StatusCode(); {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", domain.ErrUnauthorized, code)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d", domain.ErrRateLimited, code)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: HTTP %d", domain.ErrNotFound, code)
	default:
		return fmt.Errorf("HTTP %d: %s", code, truncate(resp.String(), 256))
	}
}

func (c *Client) wait(ctx context.Context) error {
	if c.shared != nil {
		return c.shared.Wait(ctx, RateLimitKey)
	}
	return c.limiter.Wait(ctx)
}

// TradeLink builds the trade window URL preselecting the given owned
// instances of the counterparty.
func TradeLink(userID int64, ownedIDs []int64) string {
	parts := make([]string, len(ownedIDs))
	for i, id := range ownedIDs {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return fmt.Sprintf("https://www.roblox.com/users/%d/trade?ritems=%s", userID, strings.Join(parts, ","))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var (
	_ domain.InventoryFetcher = (*Client)(nil)
	_ domain.TradeChecker     = (*Client)(nil)
)
