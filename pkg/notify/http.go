package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const requestTimeout = 30 * time.Second

// HTTPClient posts delivery requests to the messaging gateway. Failures are
// returned to the caller; the send_message action decides whether to retry
// or fall back to a queued notification row.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var (
	_ Mailer = (*HTTPClient)(nil)
	_ Sender = (*HTTPClient)(nil)
)

func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

func (c *HTTPClient) SendTemplated(ctx context.Context, email TemplatedEmail) error {
	return c.post(ctx, "/send-templated-email", email)
}

func (c *HTTPClient) Send(ctx context.Context, message Message) error {
	return c.post(ctx, "/send-message", message)
}

func (c *HTTPClient) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal delivery request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build delivery request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("delivery request failed: %w", err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return fmt.Errorf("delivery request returned %d: %s", resp.StatusCode, string(detail))
	}

	return nil
}
