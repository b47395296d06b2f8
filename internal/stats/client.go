package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"agencyhub/internal/platform/metrics"
	id "agencyhub/pkg/domain"
	"agencyhub/pkg/platform/circuit"
)

const maxResponseBytes = 64 << 10

// HTTPClient fetches stats from GET {base}/recruiters/{id}/stats. A 404 means
// no stats. Consecutive failures open the breaker, after which failures
// degrade to nil instead of errors until the upstream recovers.
type HTTPClient struct {
	base    string
	http    *http.Client
	breaker *circuit.Breaker
	metrics *metrics.Metrics
	logger  *slog.Logger
}

type ClientOption func(*HTTPClient)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(h *HTTPClient) { h.http = c }
}

func WithMetrics(m *metrics.Metrics) ClientOption {
	return func(h *HTTPClient) { h.metrics = m }
}

func WithLogger(logger *slog.Logger) ClientOption {
	return func(h *HTTPClient) { h.logger = logger }
}

func WithFailureThreshold(n int) ClientOption {
	return func(h *HTTPClient) { h.breaker = circuit.New("stats", circuit.WithFailureThreshold(n)) }
}

func NewHTTPClient(baseURL string, timeout time.Duration, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		base:    strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		breaker: circuit.New("stats"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) GetStats(ctx context.Context, recruiterID id.RecruiterID) (*Stats, error) {
	st, err := c.fetch(ctx, recruiterID)
	if err != nil {
		useFallback, change := c.breaker.RecordFailure()
		if change.Opened {
			c.logger.WarnContext(ctx, "stats circuit opened", "error", err)
		}
		if useFallback {
			c.metrics.IncStatsLookup("open")
			return nil, nil
		}
		c.metrics.IncStatsLookup("error")
		return nil, err
	}
	usePrimary, change := c.breaker.RecordSuccess()
	if change.Closed {
		c.logger.InfoContext(ctx, "stats circuit closed")
	}
	if !usePrimary {
		c.metrics.IncStatsLookup("open")
		return nil, nil
	}
	c.metrics.IncStatsLookup("fetched")
	return st, nil
}

func (c *HTTPClient) fetch(ctx context.Context, recruiterID id.RecruiterID) (*Stats, error) {
	endpoint := c.base + "/recruiters/" + url.PathEscape(recruiterID.String()) + "/stats"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build stats request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stats request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("stats upstream returned %d", resp.StatusCode)
	}
	var st Stats
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	return &st, nil
}
