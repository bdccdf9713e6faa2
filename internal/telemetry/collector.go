package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultCollectorTimeout bounds a single delivery to the collector.
const DefaultCollectorTimeout = 5 * time.Second

// Collector posts events to the remote log collection endpoint.
type Collector struct {
	url    string
	client *http.Client
}

// NewCollector creates a collector client. A non-positive timeout falls back
// to DefaultCollectorTimeout.
func NewCollector(url string, timeout time.Duration) *Collector {
	if timeout <= 0 {
		timeout = DefaultCollectorTimeout
	}

	return &Collector{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Send posts a single event as JSON. Any non-2xx answer is an error.
// The response body is discarded.
func (c *Collector) Send(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("collector responded with status %d", resp.StatusCode)
	}

	return nil
}
