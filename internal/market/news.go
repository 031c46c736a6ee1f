package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"github.com/coindash/coindash-server/internal/apperrors"
)

// NewsClient fetches recent English-language headlines for a coin from
// NewsAPI. Responses are memoized briefly since the free tier is tightly
// rate limited.
type NewsClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	lookups *cache.Cache
}

func NewNewsClient(baseURL, apiKey string, timeout time.Duration) *NewsClient {
	return &NewsClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		lookups: cache.New(5*time.Minute, 10*time.Minute),
	}
}

// Everything returns the raw NewsAPI response for the query, newest first,
// capped at five articles.
func (n *NewsClient) Everything(ctx context.Context, query string) (json.RawMessage, error) {
	cacheKey := "news_" + query
	if cached, found := n.lookups.Get(cacheKey); found {
		logrus.WithField("query", query).Debug("news served from cache")
		return cached.(json.RawMessage), nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", "5")
	params.Set("apiKey", n.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/everything?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUpstream, err)
	}

	resp, err := n.http.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", apperrors.ErrUpstreamTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: unexpected status %d", apperrors.ErrUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", apperrors.ErrUpstream, err)
	}

	n.lookups.Set(cacheKey, json.RawMessage(body), 5*time.Minute)
	return json.RawMessage(body), nil
}

// Headlines extracts article titles from an Everything response.
func Headlines(body json.RawMessage) []string {
	var parsed struct {
		Articles []struct {
			Title string `json:"title"`
		} `json:"articles"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil
	}

	titles := make([]string, 0, len(parsed.Articles))
	for _, a := range parsed.Articles {
		if a.Title != "" {
			titles = append(titles, a.Title)
		}
	}
	return titles
}
