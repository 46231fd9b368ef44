package invalidate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Revalidator expires origin-rendered responses by cache tag. The actual
// tag-to-response association lives inside the origin platform; this is
// only the trigger.
type Revalidator interface {
	Revalidate(ctx context.Context, tags []string) error
}

// HTTPRevalidator calls the origin's revalidation endpoint.
type HTTPRevalidator struct {
	httpClient *http.Client
	endpoint   string
	secret     string
}

// NewHTTPRevalidator creates a revalidator posting to the origin's
// revalidation endpoint (baseURL + /api/revalidate).
func NewHTTPRevalidator(baseURL, secret string, timeout time.Duration) (*HTTPRevalidator, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("origin base url is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPRevalidator{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   strings.TrimSuffix(baseURL, "/") + "/api/revalidate",
		secret:     secret,
	}, nil
}

// Revalidate posts the tag list to the origin.
func (r *HTTPRevalidator) Revalidate(ctx context.Context, tags []string) error {
	payload, err := json.Marshal(map[string]any{"tags": tags})
	if err != nil {
		return fmt.Errorf("marshal revalidation payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create revalidation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.secret != "" {
		req.Header.Set("Authorization", "Bearer "+r.secret)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revalidation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("revalidation failed (status %d): %s", resp.StatusCode, body)
	}
	return nil
}

// NoopRevalidator is used when no origin revalidation endpoint is
// configured; tag expiry then relies entirely on the edge purge.
type NoopRevalidator struct {
	logger zerolog.Logger
}

// NewNoopRevalidator creates a logging no-op revalidator.
func NewNoopRevalidator(logger zerolog.Logger) *NoopRevalidator {
	logger.Warn().Msg("Origin revalidation endpoint absent, tag revalidation is a no-op")
	return &NoopRevalidator{logger: logger}
}

// Revalidate implements Revalidator.
func (r *NoopRevalidator) Revalidate(_ context.Context, tags []string) error {
	r.logger.Debug().Strs("tags", tags).Msg("Skipping origin revalidation (not configured)")
	return nil
}
