// Package tracking talks to an MLflow-compatible experiment tracking server
// (including Databricks-hosted ones). All operations are read-only
// connectivity and existence checks; no runs are created or modified.
package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/fclairamb/expkit/internal/apperrors"
)

const (
	// apiPrefix is the MLflow REST API prefix appended to the tracking URI.
	apiPrefix = "/api/2.0/mlflow"

	// HTTP client configuration.
	httpTimeout = 30 * time.Second // Timeout for HTTP requests

	// Rate limiting configuration (~3 requests/second).
	rateLimitInterval = 350 * time.Millisecond

	// HTTP status codes.
	httpStatusBadRequest = 400 // First status code indicating an error
)

// Client is an MLflow tracking API client with rate limiting.
type Client struct {
	httpClient  *http.Client
	token       string
	rateLimiter *rate.Limiter
	baseURL     string
	logger      *slog.Logger
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = l
	}
}

// WithToken sets the bearer token used for Databricks-hosted servers.
// Local MLflow servers typically need none.
func WithToken(token string) ClientOption {
	return func(client *Client) {
		client.token = token
	}
}

// NewClient creates a tracking client for the given tracking URI, e.g.
// "http://localhost:5000" or "https://myworkspace.azuredatabricks.net".
func NewClient(trackingURI string, opts ...ClientOption) *Client {
	client := &Client{
		httpClient:  &http.Client{Timeout: httpTimeout},
		rateLimiter: rate.NewLimiter(rate.Every(rateLimitInterval), 1), // ~3 req/s
		baseURL:     strings.TrimSuffix(trackingURI, "/") + apiPrefix,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// do performs an HTTP request with rate limiting and retries.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	// Wait for rate limiter
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.DebugContext(ctx, "API request", "method", method, "path", path)
	startTime := time.Now()

	// Retry with exponential backoff on rate limit
	maxRetries := 5
	backoff := time.Second

	for attempt := range maxRetries {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("do request: %w", err)
		}

		respBody, err := io.ReadAll(resp.Body)
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.WarnContext(ctx, "failed to close response body", "error", closeErr)
		}
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			c.logger.WarnContext(ctx, "rate limited, backing off", "attempt", attempt+1, "backoff", backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
				continue
			}
		}

		if resp.StatusCode >= httpStatusBadRequest {
			var errResp APIError
			if err := json.Unmarshal(respBody, &errResp); err != nil || errResp.ErrorCode == "" {
				return apperrors.NewHTTPError(resp.StatusCode, string(respBody))
			}
			return &errResp
		}

		if result != nil {
			if err := json.Unmarshal(respBody, result); err != nil {
				return fmt.Errorf("unmarshal response: %w", err)
			}
		}

		c.logger.DebugContext(ctx, "API response",
			"method", method,
			"path", path,
			"status", resp.StatusCode,
			"duration", time.Since(startTime))

		return nil
	}

	return apperrors.ErrMaxRetriesExceeded
}
