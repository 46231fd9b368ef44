package edge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var edgePurgesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "edge_provider_purges_total",
	Help: "Total edge provider purge calls by mode and outcome",
}, []string{"mode", "outcome"}) // mode: "all"|"tags", outcome: "ok"|"error"

// DefaultBaseURL is the edge provider's API root.
const DefaultBaseURL = "https://api.cloudflare.com/client/v4"

// Config holds the zone client configuration.
type Config struct {
	// BaseURL of the provider API.
	BaseURL string

	// ZoneID identifies the site's zone (required).
	ZoneID string

	// APIToken authenticates purge calls (required).
	APIToken string

	// TagPurge enables tag-scoped purge when the provider plan supports it.
	TagPurge bool

	// Timeout bounds a single provider call.
	Timeout time.Duration
}

// ZoneClient purges the edge provider zone over its REST API.
type ZoneClient struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// NewZoneClient creates a zone purge client.
func NewZoneClient(cfg Config) (*ZoneClient, error) {
	if cfg.ZoneID == "" {
		return nil, fmt.Errorf("zone id is required")
	}
	if cfg.APIToken == "" {
		return nil, fmt.Errorf("api token is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &ZoneClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		logger:     log.With().Str("component", "edge-provider").Logger(),
	}, nil
}

// Name implements Provider.
func (c *ZoneClient) Name() string { return "zone" }

// SupportsTags implements Provider.
func (c *ZoneClient) SupportsTags() bool { return c.config.TagPurge }

// PurgeAll expires the whole zone.
func (c *ZoneClient) PurgeAll(ctx context.Context) error {
	err := c.purge(ctx, map[string]any{"purge_everything": true})
	c.record("all", err)
	return err
}

// PurgeTags expires responses by cache tag.
func (c *ZoneClient) PurgeTags(ctx context.Context, cacheTags []string) error {
	if !c.config.TagPurge {
		return fmt.Errorf("tag purge not supported by this zone")
	}
	err := c.purge(ctx, map[string]any{"tags": cacheTags})
	c.record("tags", err)
	return err
}

func (c *ZoneClient) record(mode string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	edgePurgesTotal.WithLabelValues(mode, outcome).Inc()
}

// purge posts a purge request to the zone endpoint.
func (c *ZoneClient) purge(ctx context.Context, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal purge payload: %w", err)
	}

	target := fmt.Sprintf("%s/zones/%s/purge_cache", c.config.BaseURL, c.config.ZoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create purge request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("purge request: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("purge failed (status %d): %s", resp.StatusCode, data)
	}

	// The provider wraps results in a success envelope; a 2xx with
	// success=false still means the purge did not happen.
	var envelope struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(data, &envelope); err == nil && !envelope.Success {
		return fmt.Errorf("purge rejected by provider: %s", data)
	}

	c.logger.Debug().Str("zone", c.config.ZoneID).Msg("Edge purge dispatched")
	return nil
}

// Ping verifies the zone is reachable with the configured credentials.
func (c *ZoneClient) Ping(ctx context.Context) error {
	target := fmt.Sprintf("%s/zones/%s", c.config.BaseURL, c.config.ZoneID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.config.APIToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ping request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ping failed (status %d)", resp.StatusCode)
	}
	return nil
}
