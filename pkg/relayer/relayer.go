package relayer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/haadi101/lazorpay/pkg/wallet"
)

// Relayer endpoints. The portal holds the passkey session; the paymaster
// sponsors execution.
const (
	signMessagePath   = "/v1/sign-message"
	submitGaslessPath = "/v1/gasless/submit"
)

// Default client-side rate limit. The relayer starts returning 429s around
// two requests per second per wallet; staying under that avoids burning
// retry budget on self-inflicted throttling.
const (
	DefaultRequestsPerSecond = 1.0
	DefaultBurst             = 2
)

// Config holds the configuration for the relayer client
type Config struct {
	// BaseURL is the relayer endpoint, e.g. https://portal.example.com
	BaseURL string

	// WalletAddress is the smart-wallet address requests are issued for
	WalletAddress string

	// RequestsPerSecond caps outgoing request rate (0 = DefaultRequestsPerSecond)
	RequestsPerSecond float64

	// Burst is the rate limiter burst size (0 = DefaultBurst)
	Burst int
}

// Client is an HTTP implementation of wallet.Remote.
type Client struct {
	baseURL       string
	walletAddress string
	httpClient    *http.Client
	limiter       *rate.Limiter
	logger        *zap.Logger
}

var _ wallet.Remote = (*Client)(nil)

// NewClient creates a relayer client.
func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("relayer base URL is required")
	}
	if cfg.WalletAddress == "" {
		return nil, fmt.Errorf("wallet address is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = DefaultRequestsPerSecond
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = DefaultBurst
	}

	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		walletAddress: cfg.WalletAddress,
		httpClient:    &http.Client{},
		limiter:       rate.NewLimiter(rate.Limit(rps), burst),
		logger:        logger,
	}, nil
}

// SetHttpClient allows setting a custom HTTP client.
// Useful for testing or custom transport configuration.
func (c *Client) SetHttpClient(client *http.Client) {
	c.httpClient = client
}

// SignMessage asks the relayer to produce a passkey signature over message.
func (c *Client) SignMessage(ctx context.Context, message []byte) (*wallet.SignedMessage, error) {
	req := map[string]string{
		"wallet":  c.walletAddress,
		"message": base64.StdEncoding.EncodeToString(message),
	}

	body, err := c.post(ctx, signMessagePath, req)
	if err != nil {
		return nil, err
	}

	var signed wallet.SignedMessage
	if err := json.Unmarshal(body, &signed); err != nil {
		return nil, fmt.Errorf("failed to decode sign-message response: %w", err)
	}
	if signed.Signature == "" {
		return nil, fmt.Errorf("sign-message response missing signature")
	}

	return &signed, nil
}

// SubmitGasless submits instructions for sponsored execution. The response
// body is returned raw; shape classification belongs to the wallet layer.
func (c *Client) SubmitGasless(ctx context.Context, payload *wallet.GaslessPayload) (json.RawMessage, error) {
	if payload == nil || len(payload.Instructions) == 0 {
		return nil, fmt.Errorf("payload must carry at least one instruction")
	}

	req := struct {
		Wallet       string            `json:"wallet"`
		Instructions []json.RawMessage `json:"instructions"`
	}{
		Wallet:       c.walletAddress,
		Instructions: payload.Instructions,
	}

	return c.post(ctx, submitGaslessPath, req)
}

// post issues one JSON POST to the relayer. Non-2xx responses become errors
// whose message carries the status code, so the wallet layer's rate-limit
// classification sees "429" verbatim.
func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	requestID := uuid.New().String()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("relayer request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read relayer response: %w", err)
	}

	c.logger.Sugar().Debugw("Relayer request completed",
		"path", path,
		"request_id", requestID,
		"status_code", resp.StatusCode,
		"duration", time.Since(start).String(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Sugar().Warnw("Relayer returned error",
			"path", path,
			"request_id", requestID,
			"status_code", resp.StatusCode,
			"body", truncateBody(body),
		)
		return nil, fmt.Errorf("relayer returned status %d: %s", resp.StatusCode, truncateBody(body))
	}

	return body, nil
}

func truncateBody(body []byte) string {
	const max = 512
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}
