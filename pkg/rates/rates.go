// Package rates keeps the currency conversion rate shown next to vehicle
// prices. The rate changes rarely, so a single cached slot with a stale
// check is enough; a fetch failure serves the previous value rather than
// dropping the rate from rendered prices.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTTL is how long a fetched rate is considered fresh.
const DefaultTTL = 1 * time.Hour

// Rate is a single currency conversion quote.
type Rate struct {
	// Currency is the ISO 4217 code the rate converts into.
	Currency string `json:"currency"`

	// Value is the conversion multiplier from the base currency.
	Value float64 `json:"value"`

	// FetchedAt is when the quote was retrieved from the source.
	FetchedAt time.Time `json:"fetchedAt"`
}

// IsStale returns true if the quote is older than maxAge at the given time.
func (r Rate) IsStale(now time.Time, maxAge time.Duration) bool {
	return now.Sub(r.FetchedAt) > maxAge
}

// Source produces the current conversion rate for a currency.
type Source interface {
	Fetch(ctx context.Context, currency string) (float64, error)
}

// Cache is a read-through single-slot rate cache. Concurrent readers share
// one slot; only one fetch runs at a time and a failed refresh falls back
// to the last known value.
type Cache struct {
	source   Source
	currency string
	ttl      time.Duration
	now      func() time.Time
	logger   zerolog.Logger

	mu   sync.Mutex
	rate Rate
	ok   bool
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the freshness window.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithClock injects the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// NewCache creates a rate cache for one currency.
func NewCache(source Source, currency string, logger zerolog.Logger, opts ...Option) *Cache {
	c := &Cache{
		source:   source,
		currency: currency,
		ttl:      DefaultTTL,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached rate, refreshing it from the source when stale.
// A refresh failure returns the previous value with no error; only a cold
// cache with a failed fetch surfaces the error.
func (c *Cache) Get(ctx context.Context) (Rate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.ok && !c.rate.IsStale(now, c.ttl) {
		return c.rate, nil
	}

	value, err := c.source.Fetch(ctx, c.currency)
	if err != nil {
		if c.ok {
			c.logger.Warn().
				Err(err).
				Str("currency", c.currency).
				Time("fetched_at", c.rate.FetchedAt).
				Msg("Rate refresh failed, serving stale value")
			return c.rate, nil
		}
		return Rate{}, fmt.Errorf("fetch rate for %s: %w", c.currency, err)
	}

	c.rate = Rate{Currency: c.currency, Value: value, FetchedAt: now}
	c.ok = true
	c.logger.Debug().
		Str("currency", c.currency).
		Float64("value", value).
		Msg("Rate refreshed")
	return c.rate, nil
}

// HTTPSource fetches rates from a JSON endpoint shaped like
// {"rates": {"EUR": 0.92, ...}}.
type HTTPSource struct {
	httpClient *http.Client
	url        string
}

// NewHTTPSource creates a source for the given rates URL.
func NewHTTPSource(url string, timeout time.Duration) (*HTTPSource, error) {
	if url == "" {
		return nil, fmt.Errorf("rates url is required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSource{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
	}, nil
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context, currency string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return 0, fmt.Errorf("create rates request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("rates request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("rates endpoint returned status %d: %s", resp.StatusCode, body)
	}

	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decode rates response: %w", err)
	}

	value, found := payload.Rates[currency]
	if !found {
		return 0, fmt.Errorf("rates response has no entry for %s", currency)
	}
	return value, nil
}
