package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/poiselabs/poise/internal/domain"
)

// defaultActivityLimit caps one activity page when the caller passes no
// limit.
const defaultActivityLimit = 500

// DataClient is the REST client for the Polymarket Data API, which serves
// the per-wallet activity log (fills and redemptions with display metadata
// already attached).
type DataClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewDataClient creates a new Data API client.
//
// baseURL is the Data API root, e.g. "https://data-api.polymarket.com".
func NewDataClient(baseURL string) *DataClient {
	return &DataClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// GetActivity returns the activity log for a wallet, most recent first as
// served by the API. Entries of kinds other than TRADE and REDEEM (splits,
// merges, conversions) are dropped; they carry no cash flow the ledger
// accounts for. Malformed TRADE/REDEEM entries fail the call.
func (d *DataClient) GetActivity(ctx context.Context, user string, limit int) ([]domain.Activity, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}

	params := url.Values{}
	params.Set("user", user)
	params.Set("limit", strconv.Itoa(limit))

	body, err := d.doGet(ctx, "/activity?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/data: get activity: %w", err)
	}

	var entries []APIActivity
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("polymarket/data: decode activity: %w", err)
	}

	acts := make([]domain.Activity, 0, len(entries))
	for i := range entries {
		if entries[i].Type != "TRADE" && entries[i].Type != "REDEEM" {
			continue
		}
		act, err := entries[i].ToActivity()
		if err != nil {
			return nil, fmt.Errorf("polymarket/data: convert activity: %w", err)
		}
		acts = append(acts, act)
	}

	return acts, nil
}

// doGet issues a GET request and returns the raw response body.
func (d *DataClient) doGet(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
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
