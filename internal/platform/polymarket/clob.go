package polymarket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/poiselabs/poise/internal/crypto"
	"github.com/poiselabs/poise/internal/domain"
)

// gnosisSafeSignatureType identifies the Gnosis Safe proxy wallet, where
// MetaMask users' USDC collateral lives.
const gnosisSafeSignatureType = 2

// ClobClient is the REST client for the Polymarket CLOB (Central Limit
// Order Book) API. The tracker uses it read-only: fills, collateral
// balance, and the auth flow that derives HMAC credentials.
type ClobClient struct {
	baseURL    string
	httpClient *http.Client
	address    string
	signer     *crypto.Signer
	hmacAuth   *crypto.HMACAuth
}

// NewClobClient creates a new CLOB REST client.
//
// baseURL is the CLOB API root, e.g. "https://clob.polymarket.com".
// address is the signing address sent in POLY_ADDRESS headers; when empty
// it is taken from the signer. signer is the EIP-712 signer for ClobAuth
// messages and may be nil when hmac carries pre-provisioned credentials.
// hmac may be nil to derive credentials later via DeriveAPIKey.
func NewClobClient(baseURL, address string, signer *crypto.Signer, hmac *crypto.HMACAuth) *ClobClient {
	if address == "" && signer != nil {
		address = signer.Address().Hex()
	}
	return &ClobClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		address:  address,
		signer:   signer,
		hmacAuth: hmac,
	}
}

// GetTrades returns all fills for the authenticated wallet. Malformed
// records fail the call rather than being coerced; a corrupt fill would
// silently skew every aggregate built on top.
func (c *ClobClient) GetTrades(ctx context.Context) ([]domain.Trade, error) {
	respBody, err := c.doAuthenticatedRequest(ctx, http.MethodGet, "/data/trades", nil)
	if err != nil {
		return nil, fmt.Errorf("polymarket/clob: get trades: %w", err)
	}

	var apiFills []APIFill
	if err := json.Unmarshal(respBody, &apiFills); err != nil {
		return nil, fmt.Errorf("polymarket/clob: decode trades: %w", err)
	}

	trades := make([]domain.Trade, 0, len(apiFills))
	for i := range apiFills {
		trade, err := apiFills[i].ToTrade()
		if err != nil {
			return nil, fmt.Errorf("polymarket/clob: convert trade: %w", err)
		}
		trades = append(trades, trade)
	}

	return trades, nil
}

// GetBalanceAllowance returns the wallet's USDC collateral balance in whole
// currency units.
func (c *ClobClient) GetBalanceAllowance(ctx context.Context) (decimal.Decimal, error) {
	params := url.Values{}
	params.Set("asset_type", "COLLATERAL")
	params.Set("signature_type", fmt.Sprintf("%d", gnosisSafeSignatureType))

	path := "/balance-allowance?" + params.Encode()

	respBody, err := c.doAuthenticatedRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("polymarket/clob: get balance: %w", err)
	}

	var apiBalance APIBalanceAllowance
	if err := json.Unmarshal(respBody, &apiBalance); err != nil {
		return decimal.Zero, fmt.Errorf("polymarket/clob: decode balance: %w", err)
	}

	balance, err := apiBalance.ToBalance()
	if err != nil {
		return decimal.Zero, fmt.Errorf("polymarket/clob: convert balance: %w", err)
	}

	return balance, nil
}

// DeriveAPIKey performs the CLOB auth flow to obtain an HMAC API key. It
// signs a ClobAuth EIP-712 message and sends it with L1 headers to the
// derive-api-key endpoint. Per Polymarket docs, L1 requires POLY_ADDRESS,
// POLY_SIGNATURE, POLY_TIMESTAMP, POLY_NONCE. On success it populates the
// client's hmacAuth field.
func (c *ClobClient) DeriveAPIKey(ctx context.Context) error {
	if c.signer == nil {
		return fmt.Errorf("polymarket/clob: derive api key: no signer configured")
	}
	address := c.signer.Address().Hex()
	timestamp := time.Now().Unix()
	nonce := int64(0)

	sig, err := c.signer.SignAuthMessage(address, timestamp, nonce)
	if err != nil {
		return fmt.Errorf("polymarket/clob: sign auth message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/derive-api-key", nil)
	if err != nil {
		return fmt.Errorf("polymarket/clob: create auth request: %w", err)
	}
	req.Header.Set("POLY_ADDRESS", address)
	req.Header.Set("POLY_SIGNATURE", sig)
	req.Header.Set("POLY_TIMESTAMP", fmt.Sprintf("%d", timestamp))
	req.Header.Set("POLY_NONCE", fmt.Sprintf("%d", nonce))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("polymarket/clob: auth request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("polymarket/clob: read auth response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("polymarket/clob: auth failed (HTTP %d): %s", resp.StatusCode, string(respBody))
	}

	var authResp struct {
		APIKey     string `json:"apiKey"`
		Secret     string `json:"secret"`
		Passphrase string `json:"passphrase"`
	}
	if err := json.Unmarshal(respBody, &authResp); err != nil {
		return fmt.Errorf("polymarket/clob: decode auth response: %w", err)
	}

	c.hmacAuth = &crypto.HMACAuth{
		Key:        authResp.APIKey,
		Secret:     authResp.Secret,
		Passphrase: authResp.Passphrase,
	}

	return nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doAuthenticatedRequest builds, signs (HMAC), sends, and reads an HTTP
// request against the CLOB API. It returns the raw response body.
func (c *ClobClient) doAuthenticatedRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var bodyReader io.Reader
	var bodyStr string

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyStr = string(jsonBody)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Apply HMAC authentication headers.
	if c.hmacAuth != nil {
		headers := c.hmacAuth.L2Headers(c.address, method, path, bodyStr)
		for k, v := range headers {
			req.Header.Set(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	return respBody, nil
}

// checkHTTPStatus maps non-2xx status codes to appropriate domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
