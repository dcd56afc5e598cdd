// internal/origin/http.go
package origin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/javajoker/paper-ledger/internal/config"
)

// HTTPClient calls a remote origin service over JSON/HTTP.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	limiter *rate.Limiter
}

func NewHTTPClient(cfg config.OriginConfig, client *http.Client) *HTTPClient {
	if client == nil {
		client = &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second}
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  client,
		limiter: rate.NewLimiter(limit, burst),
	}
}

type registerAssetRequest struct {
	AssetID uint64 `json:"asset_id"`
	Creator string `json:"creator"`
}

type ownershipResponse struct {
	Verified bool `json:"verified"`
}

type royaltyRequest struct {
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
}

func (c *HTTPClient) RegisterAsset(ctx context.Context, assetID uint64, creator string) error {
	body := registerAssetRequest{AssetID: assetID, Creator: creator}
	return c.do(ctx, http.MethodPost, "/assets", body, nil)
}

func (c *HTTPClient) VerifyOwnership(ctx context.Context, assetID uint64, claimedOwner string) (bool, error) {
	path := fmt.Sprintf("/assets/%s/ownership?owner=%s", strconv.FormatUint(assetID, 10), url.QueryEscape(claimedOwner))

	var result ownershipResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		if errors.Is(err, ErrAssetNotFound) {
			return false, nil
		}
		return false, err
	}
	return result.Verified, nil
}

func (c *HTTPClient) RecordRoyaltyPayment(ctx context.Context, assetID uint64, recipient string, amount int64) error {
	path := fmt.Sprintf("/assets/%s/royalties", strconv.FormatUint(assetID, 10))
	return c.do(ctx, http.MethodPost, path, royaltyRequest{Recipient: recipient, Amount: amount}, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("origin rate limit: %w", err)
	}

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode origin request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build origin request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	logrus.WithFields(logrus.Fields{
		"method":   method,
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	}).Debug("Origin request completed")

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrAssetNotFound
	case resp.StatusCode == http.StatusConflict:
		return ErrAssetExists
	case resp.StatusCode >= 300:
		return fmt.Errorf("%w: origin returned %s", ErrUnavailable, resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode origin response: %w", err)
	}
	return nil
}

// New builds the client selected by configuration.
func New(cfg config.OriginConfig) Client {
	if cfg.Mode == "http" {
		return NewHTTPClient(cfg, nil)
	}
	return NewMockClient()
}
