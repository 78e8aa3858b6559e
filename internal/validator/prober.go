package validator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Prober checks that an article link is reachable.
type Prober interface {
	Probe(ctx context.Context, rawURL string) error
}

// HTTPProber probes links with HEAD, falling back to GET for servers that
// reject HEAD with 403 or 405. Redirects are followed.
type HTTPProber struct {
	client    *http.Client
	userAgent string
}

// NewHTTPProber creates a prober. A nil client gets a default with timeout.
func NewHTTPProber(client *http.Client, userAgent string, timeout time.Duration) *HTTPProber {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPProber{client: client, userAgent: userAgent}
}

// Probe returns nil when the link answers with a status below 400.
func (p *HTTPProber) Probe(ctx context.Context, rawURL string) error {
	status, err := p.do(ctx, http.MethodHead, rawURL)
	if err != nil {
		return err
	}
	if status == http.StatusForbidden || status == http.StatusMethodNotAllowed {
		status, err = p.do(ctx, http.MethodGet, rawURL)
		if err != nil {
			return err
		}
	}
	if status >= 400 {
		return fmt.Errorf("probe %s: status %d", rawURL, status)
	}
	return nil
}

func (p *HTTPProber) do(ctx context.Context, method, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", rawURL, err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", rawURL, err)
	}
	// Only the status matters; drain a little so the connection can be reused.
	io.CopyN(io.Discard, resp.Body, 4096)
	resp.Body.Close()
	return resp.StatusCode, nil
}
