// Package callback notifies an external consumer when an async lookup task
// completes, so pollers of the tasks endpoint are optional rather than
// required. Delivery is best-effort: transient failures are retried a few
// times with backoff, then the completion is logged and dropped.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"multascan/internal/logging"
)

// ClientConfig holds configuration for the callback client
type ClientConfig struct {
	URL        string        `yaml:"url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// Client delivers task completion notifications over HTTP
type Client struct {
	url        string
	timeout    time.Duration
	maxRetries int
	httpClient *http.Client
	logger     logging.Logger
}

// CompletionPayload is the body posted to the callback URL
type CompletionPayload struct {
	ProcessID      string      `json:"processId"`
	Status         string      `json:"status"`
	Data           interface{} `json:"data,omitempty"`
	Error          string      `json:"error,omitempty"`
	FailureCode    string      `json:"failure_code,omitempty"`
	ProcessingTime string      `json:"processingTime,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
}

// NewClient creates a new callback client
func NewClient(cfg *ClientConfig, logger logging.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("callback url is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 3
	}

	return &Client{
		url:        cfg.URL,
		timeout:    timeout,
		maxRetries: maxRetries,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// SendCompletion posts the completion payload to the callback URL. Transient
// failures are retried with linear backoff up to the configured cap.
func (c *Client) SendCompletion(ctx context.Context, payload *CompletionPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal callback payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(time.Duration(attempt) * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = c.post(ctx, body)
		if lastErr == nil {
			c.logger.Info("Callback delivered", map[string]interface{}{
				"process_id": payload.ProcessID,
				"status":     payload.Status,
				"attempt":    attempt + 1,
			})
			return nil
		}
	}

	return fmt.Errorf("callback delivery failed after %d attempts: %w", c.maxRetries, lastErr)
}

func (c *Client) post(ctx context.Context, body []byte) error {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
