package analytics

import (
	"context"
	"fmt"
	"strings"
	"time"

	svcmetrics "AutoTrade/internal/service/metrics"
	"AutoTrade/pkg/config"
	xhttp "AutoTrade/pkg/http"
)

// HTTPServiceBase is the shared foundation for analytics HTTP clients.
// Calls go through a circuit breaker and are timed per endpoint.
type HTTPServiceBase struct {
	baseURL string
	client  *xhttp.Client
	breaker *Breaker
}

// NewHTTPServiceBase builds the client, base URL and breaker from config.
func NewHTTPServiceBase(cfg *config.Config) *HTTPServiceBase {
	timeout := cfg.Analytics.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	b := cfg.Analytics.Breaker
	return &HTTPServiceBase{
		baseURL: strings.TrimRight(cfg.Analytics.FactorsServiceURL, "/"),
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
		breaker: NewBreaker(BreakerSettings{
			Name:         "factors",
			MaxRequests:  b.MaxRequests,
			Interval:     b.Interval,
			Timeout:      b.Timeout,
			FailureRatio: b.FailureRatio,
			MinRequests:  b.MinRequests,
		}),
	}
}

// Enabled reports whether a base URL is configured.
func (b *HTTPServiceBase) Enabled() bool { return b != nil && b.baseURL != "" }

// GetJSON issues GET baseURL+path and decodes the JSON body into dest.
func (b *HTTPServiceBase) GetJSON(ctx context.Context, path string, query map[string][]string, dest interface{}) error {
	if !b.Enabled() {
		return fmt.Errorf("analytics http client not initialized")
	}
	start := time.Now()
	err := b.breaker.Do(func() error {
		return b.client.GetJSON(ctx, b.baseURL+path, query, dest)
	})
	svcmetrics.FactorsLatency.WithLabelValues(path).Observe(time.Since(start).Seconds())
	if err != nil {
		svcmetrics.FactorsErrors.WithLabelValues(path).Inc()
		return fmt.Errorf("get %s: %w", path, err)
	}
	return nil
}
