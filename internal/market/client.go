package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/coindash/coindash-server/internal/apperrors"
)

// Client talks to the CoinGecko REST API. Every call is bounded by the
// http.Client timeout; idempotent GETs get one retry. Per-coin lookups are
// memoized for a short TTL so repeated dashboard views do not hammer the
// upstream.
type Client struct {
	baseURL string
	http    *http.Client
	lookups *cache.Cache
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		lookups: cache.New(5*time.Minute, 10*time.Minute),
	}
}

// ListMarkets fetches the top-50 coins by market cap in USD. Callers are
// expected to sit behind the snapshot cache, so this is never memoized here.
func (c *Client) ListMarkets(ctx context.Context) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("order", "market_cap_desc")
	params.Set("per_page", "50")
	params.Set("page", "1")
	return c.doGet(ctx, c.baseURL+"/coins/markets?"+params.Encode())
}

func (c *Client) CoinDetail(ctx context.Context, coinID string) (json.RawMessage, error) {
	cacheKey := "detail_" + coinID
	if cached, found := c.lookups.Get(cacheKey); found {
		logrus.WithField("coin_id", coinID).Debug("coin detail served from cache")
		return cached.(json.RawMessage), nil
	}

	params := url.Values{}
	params.Set("localization", "false")
	params.Set("market_data", "true")
	body, err := c.doGet(ctx, c.baseURL+"/coins/"+url.PathEscape(coinID)+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	c.lookups.Set(cacheKey, body, 5*time.Minute)
	return body, nil
}

func (c *Client) MarketChart(ctx context.Context, coinID string, days int) (json.RawMessage, error) {
	cacheKey := fmt.Sprintf("chart_%s_%d", coinID, days)
	if cached, found := c.lookups.Get(cacheKey); found {
		return cached.(json.RawMessage), nil
	}

	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("days", fmt.Sprintf("%d", days))
	body, err := c.doGet(ctx, c.baseURL+"/coins/"+url.PathEscape(coinID)+"/market_chart?"+params.Encode())
	if err != nil {
		return nil, err
	}

	c.lookups.Set(cacheKey, body, 5*time.Minute)
	return body, nil
}

func (c *Client) SimplePrice(ctx context.Context, coinID string) (json.RawMessage, error) {
	cacheKey := "price_" + coinID
	if cached, found := c.lookups.Get(cacheKey); found {
		return cached.(json.RawMessage), nil
	}

	params := url.Values{}
	params.Set("ids", coinID)
	params.Set("vs_currencies", "usd")
	body, err := c.doGet(ctx, c.baseURL+"/simple/price?"+params.Encode())
	if err != nil {
		return nil, err
	}

	c.lookups.Set(cacheKey, body, time.Minute)
	return body, nil
}

// CoinName resolves the display name used as the news search query.
func (c *Client) CoinName(ctx context.Context, coinID string) (string, error) {
	body, err := c.CoinDetail(ctx, coinID)
	if err != nil {
		return "", err
	}

	var coin struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &coin); err != nil {
		return "", fmt.Errorf("%w: decoding coin detail: %v", apperrors.ErrUpstream, err)
	}
	if coin.Name == "" {
		return coinID, nil
	}
	return coin.Name, nil
}

func (c *Client) doGet(ctx context.Context, rawURL string) (json.RawMessage, error) {
	body, err := c.get(ctx, rawURL)
	if err == nil {
		return body, nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	// One retry on idempotent reads; the upstream has transient failures.
	logrus.WithField("url", rawURL).WithError(err).Warn("upstream fetch failed, retrying once")
	return c.get(ctx, rawURL)
}

func (c *Client) get(ctx context.Context, rawURL string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: unexpected status %d", apperrors.ErrUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", apperrors.ErrUpstream, err)
	}
	return json.RawMessage(body), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
