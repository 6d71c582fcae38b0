// Package exchange implements a minimal Binance spot REST client, pointed
// at the testnet by default. Read-only market data calls are rate limited
// and retried with exponential backoff; order submission is signed and
// never retried, since a duplicate submit is worse than a failed one.
package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://testnet.binance.vision"

// Config carries the client's connection settings.
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string
	Timeout   time.Duration
}

// Client talks to the exchange's spot REST API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	apiSecret  string
	baseURL    string
	logger     zerolog.Logger
}

// New creates a rate-limited exchange client.
func New(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := log.With().Str("component", "exchange_client").Logger()
	if cfg.APIKey == "" || cfg.APISecret == "" {
		logger.Warn().Msg("exchange client created with empty API key/secret, signed endpoints will fail")
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Second), 5), // 5 requests per second
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		baseURL:    baseURL,
		logger:     logger,
	}
}

// GetKlines fetches raw candlestick records. Each record is a positional
// array exactly as the exchange sends it; normalization happens upstream.
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, limit int) ([][]any, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	body, err := c.getWithRetry(ctx, "/api/v3/klines", params, false)
	if err != nil {
		return nil, err
	}

	var raw [][]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &APIError{Err: fmt.Errorf("decoding klines: %w", err)}
	}

	c.logger.Debug().Str("symbol", symbol).Str("interval", interval).Int("count", len(raw)).Msg("fetched klines")
	return raw, nil
}

// GetAccount fetches the account snapshot (balances and the raw body).
func (c *Client) GetAccount(ctx context.Context) (*AccountSnapshot, error) {
	body, err := c.getWithRetry(ctx, "/api/v3/account", url.Values{}, true)
	if err != nil {
		return nil, err
	}

	var snap AccountSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, &APIError{Err: fmt.Errorf("decoding account: %w", err)}
	}
	snap.Raw = body
	return &snap, nil
}

// GetOpenOrders lists resting orders, optionally filtered by symbol.
func (c *Client) GetOpenOrders(ctx context.Context, symbol string) ([]OpenOrder, error) {
	params := url.Values{}
	if symbol != "" {
		params.Set("symbol", symbol)
	}

	body, err := c.getWithRetry(ctx, "/api/v3/openOrders", params, true)
	if err != nil {
		return nil, err
	}

	var orders []OpenOrder
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, &APIError{Err: fmt.Errorf("decoding open orders: %w", err)}
	}
	return orders, nil
}

// CreateOrder submits an order. With test=true it goes to the non-binding
// validation endpoint. Exactly one attempt is made either way.
func (c *Client) CreateOrder(ctx context.Context, p OrderParams, test bool) (*OrderResult, error) {
	params := url.Values{}
	params.Set("symbol", p.Symbol)
	params.Set("side", p.Side)
	params.Set("type", p.Type)
	if p.Quantity != 0 {
		params.Set("quantity", strconv.FormatFloat(p.Quantity, 'f', -1, 64))
	}
	if p.Price != 0 {
		params.Set("price", strconv.FormatFloat(p.Price, 'f', -1, 64))
	}
	if p.TimeInForce != "" && p.Type != TypeMarket {
		params.Set("timeInForce", p.TimeInForce)
	}

	path := "/api/v3/order"
	if test {
		path = "/api/v3/order/test"
	}

	c.logger.Info().
		Bool("test", test).
		Str("symbol", p.Symbol).
		Str("side", p.Side).
		Str("type", p.Type).
		Float64("quantity", p.Quantity).
		Msg("submitting order")

	body, err := c.do(ctx, http.MethodPost, path, params, true)
	if err != nil {
		return nil, err
	}

	result := &OrderResult{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return nil, &APIError{Err: fmt.Errorf("decoding order result: %w", err)}
		}
	}
	result.Raw = body
	return result, nil
}

// getWithRetry wraps a GET in the limiter plus exponential backoff. Only
// used for idempotent reads.
func (c *Client) getWithRetry(ctx context.Context, path string, params url.Values, signed bool) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	var body []byte
	operation := func() error {
		var err error
		body, err = c.do(ctx, http.MethodGet, path, params, signed)
		return err
	}

	backoffStrategy := backoff.NewExponentialBackOff()
	backoffStrategy.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(backoffStrategy, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

// do performs a single request. Signed requests carry a timestamp and an
// HMAC-SHA256 signature over the encoded query, per the exchange's scheme.
func (c *Client) do(ctx context.Context, method, path string, params url.Values, signed bool) ([]byte, error) {
	query := params.Encode()
	if signed {
		sp := url.Values{}
		for k, vs := range params {
			sp[k] = vs
		}
		sp.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
		sp.Set("recvWindow", "5000")
		encoded := sp.Encode()
		sp.Set("signature", c.sign(encoded))
		query = sp.Encode()
	}

	endpoint := c.baseURL + path
	if query != "" {
		endpoint += "?" + query
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if signed {
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Err: fmt.Errorf("reading response body: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func (c *Client) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
