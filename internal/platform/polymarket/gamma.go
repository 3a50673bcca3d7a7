package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/poiselabs/poise/internal/domain"
)

// GammaClient is the REST client for the Polymarket Gamma API, which
// provides market metadata: titles, slugs, and live outcome prices.
type GammaClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewGammaClient creates a new Gamma API client.
//
// baseURL is the Gamma API root, e.g. "https://gamma-api.polymarket.com".
func NewGammaClient(baseURL string) *GammaClient {
	return &GammaClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// GetMarketsByConditionIDs returns market metadata for the given condition
// IDs. The Gamma API requires repeated params, not a comma-joined value:
//
//	?condition_ids=a&condition_ids=b   (works)
//	?condition_ids=a,b                 (returns empty)
func (g *GammaClient) GetMarketsByConditionIDs(ctx context.Context, conditionIDs []string) ([]domain.MarketInfo, error) {
	if len(conditionIDs) == 0 {
		return nil, nil
	}

	params := url.Values{}
	for _, cid := range conditionIDs {
		params.Add("condition_ids", cid)
	}

	body, err := g.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/gamma: get markets: %w", err)
	}

	var apiMarkets []APIMarketInfo
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return nil, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}

	markets := make([]domain.MarketInfo, 0, len(apiMarkets))
	for i := range apiMarkets {
		markets = append(markets, apiMarkets[i].ToMarketInfo())
	}

	return markets, nil
}

// GetMarketBySlug returns a single market looked up by its URL slug.
func (g *GammaClient) GetMarketBySlug(ctx context.Context, slug string) (domain.MarketInfo, error) {
	params := url.Values{}
	params.Set("slug", slug)

	body, err := g.doGet(ctx, "/markets?"+params.Encode())
	if err != nil {
		return domain.MarketInfo{}, fmt.Errorf("polymarket/gamma: get market by slug %s: %w", slug, err)
	}

	var apiMarkets []APIMarketInfo
	if err := json.Unmarshal(body, &apiMarkets); err != nil {
		return domain.MarketInfo{}, fmt.Errorf("polymarket/gamma: decode markets: %w", err)
	}
	if len(apiMarkets) == 0 {
		return domain.MarketInfo{}, fmt.Errorf("polymarket/gamma: market by slug %s: %w", slug, domain.ErrNotFound)
	}

	return apiMarkets[0].ToMarketInfo(), nil
}

// doGet issues a GET request and returns the raw response body.
func (g *GammaClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}
