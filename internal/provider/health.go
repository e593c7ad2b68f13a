package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HealthChecker probes a backend without spending tokens.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// httpCheck issues a GET and expects a 2xx answer.
type httpCheck struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// NewHealthCheck returns a zero-cost probe for backends that expose a cheap
// listing endpoint, or nil when none is known (gemini, ark).
func NewHealthCheck(cfg *Config) HealthChecker {
	client := &http.Client{Timeout: 5 * time.Second}
	switch cfg.Backend {
	case BackendOpenAI:
		base := cfg.OpenAI.BaseURL
		if base == "" {
			base = defaultOpenAIURL
		}
		return &httpCheck{
			url:     strings.TrimRight(base, "/") + "/models",
			headers: map[string]string{"Authorization": "Bearer " + cfg.OpenAI.APIKey},
			client:  client,
		}
	case BackendAzure:
		az := cfg.AzureOpenAI
		q := url.Values{"api-version": {az.APIVersion}}
		return &httpCheck{
			url:     strings.TrimRight(az.Endpoint, "/") + "/openai/models?" + q.Encode(),
			headers: map[string]string{"api-key": az.APIKey},
			client:  client,
		}
	case BackendOllama:
		host := cfg.Ollama.Host
		if host == "" {
			host = defaultOllamaHost
		}
		return &httpCheck{url: strings.TrimRight(host, "/") + "/api/tags", client: client}
	default:
		return nil
	}
}

// HealthCheck implements HealthChecker.
func (c *httpCheck) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, req.URL.Redacted())
	}
	return nil
}
