// Package docstore implements the read-through proxy against the remote
// document store's REST interface. Responses arrive in the store's typed
// wire format and are normalized through pkg/wire; every successful fetch
// carries a content fingerprint usable as an ETag.
package docstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/calderamotors/edge-cache/pkg/wire"
)

// Prometheus metrics for document store fetches.
var (
	fetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docstore_fetches_total",
		Help: "Total document store fetches by collection and status",
	}, []string{"collection", "status"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "docstore_fetch_duration_seconds",
		Help:    "Document store fetch duration by collection",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"collection"})

	fetchErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docstore_errors_total",
		Help: "Total document store errors by class",
	}, []string{"class"})

	fetchRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "docstore_retries_total",
		Help: "Total document store retry attempts by error class",
	}, []string{"error_class"})

	fetchRetryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "docstore_retry_exhausted_total",
		Help: "Total number of times document store retries were exhausted",
	})
)

// DefaultBaseURL is the public REST endpoint of the document store.
const DefaultBaseURL = "https://firestore.googleapis.com/v1"

// Config holds the client configuration.
type Config struct {
	// BaseURL of the store's REST interface.
	BaseURL string

	// ProjectID is the store project the site reads from (required).
	ProjectID string

	// APIKey authenticates read requests; passed as a query parameter.
	APIKey string

	// UserAgent identifies this proxy to the upstream.
	UserAgent string

	// Timeout bounds a single upstream call.
	Timeout time.Duration

	// PageSize for collection listing requests.
	PageSize int

	// Retry controls backoff for server and network errors.
	Retry RetryConfig
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(projectID string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		ProjectID: projectID,
		UserAgent: "caldera-edge-cache/1.0 (+https://www.calderamotors.example)",
		Timeout:   10 * time.Second,
		PageSize:  300,
		Retry:     DefaultRetryConfig(),
	}
}

// Client fetches and normalizes documents. It holds no mutable state and is
// safe for concurrent use.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// CollectionResult is a normalized collection fetch with its fingerprint.
type CollectionResult struct {
	Documents []wire.Document
	ETag      string
}

// DocumentResult is a normalized document fetch with its fingerprint.
type DocumentResult struct {
	Document wire.Document
	ETag     string
}

// New creates a document store client.
func New(cfg Config) (*Client, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project id is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		logger:     log.With().Str("component", "docstore").Logger(),
	}, nil
}

// documentsURL builds the base resource path for the configured project.
func (c *Client) documentsURL() string {
	return fmt.Sprintf("%s/projects/%s/databases/(default)/documents", c.config.BaseURL, c.config.ProjectID)
}

// FetchDocument retrieves and normalizes a single document. Returns
// ErrNotFound for a missing document and a typed UpstreamError for any
// other non-success upstream status.
func (c *Client) FetchDocument(ctx context.Context, collection, id string) (*DocumentResult, error) {
	target := fmt.Sprintf("%s/%s/%s", c.documentsURL(), url.PathEscape(collection), url.PathEscape(id))

	body, err := c.fetch(ctx, collection, target, nil)
	if err != nil {
		return nil, err
	}

	doc, err := wire.DecodeDocument(body)
	if err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	return &DocumentResult{
		Document: doc,
		ETag:     Fingerprint(doc.Plain()),
	}, nil
}

// FetchCollection retrieves and normalizes a whole collection, following
// the store's page token chaining until the listing is exhausted.
func (c *Client) FetchCollection(ctx context.Context, collection string) (*CollectionResult, error) {
	target := fmt.Sprintf("%s/%s", c.documentsURL(), url.PathEscape(collection))

	var all []wire.Document
	pageToken := ""
	for {
		params := url.Values{}
		if c.config.PageSize > 0 {
			params.Set("pageSize", fmt.Sprintf("%d", c.config.PageSize))
		}
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		body, err := c.fetch(ctx, collection, target, params)
		if err != nil {
			return nil, err
		}

		docs, next, err := wire.DecodeDocumentList(body)
		if err != nil {
			return nil, fmt.Errorf("decode collection %s: %w", collection, err)
		}
		all = append(all, docs...)

		if next == "" {
			break
		}
		pageToken = next
	}

	plain := make([]map[string]any, len(all))
	for i, d := range all {
		plain[i] = d.Plain()
	}

	return &CollectionResult{
		Documents: all,
		ETag:      Fingerprint(plain),
	}, nil
}

// fetch performs a GET against the store with retry for transient errors.
func (c *Client) fetch(ctx context.Context, collection, target string, params url.Values) ([]byte, error) {
	if params == nil {
		params = url.Values{}
	}
	if c.config.APIKey != "" {
		params.Set("key", c.config.APIKey)
	}
	if len(params) > 0 {
		target = target + "?" + params.Encode()
	}

	start := time.Now()
	defer func() {
		fetchDuration.WithLabelValues(collection).Observe(time.Since(start).Seconds())
	}()

	var body []byte
	err := retryWithBackoff(ctx, c.config.Retry, c.logger, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			fetchErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			fetchesTotal.WithLabelValues(collection, "network_error").Inc()
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			fetchErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return fmt.Errorf("read response body: %w", err)
		}

		fetchesTotal.WithLabelValues(collection, fmt.Sprintf("%d", resp.StatusCode)).Inc()

		if resp.StatusCode == http.StatusNotFound {
			return ErrNotFound
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			ue := &UpstreamError{StatusCode: resp.StatusCode, Body: string(data)}
			fetchErrorsTotal.WithLabelValues(string(ue.Class())).Inc()
			c.logger.Warn().
				Str("collection", collection).
				Int("status", resp.StatusCode).
				Msg("Document store request error")
			return ue
		}

		body = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}
