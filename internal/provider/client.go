// Package provider wraps every external data-source call with rate limiting,
// retry-with-backoff, circuit breaking and credential rotation.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/carworth/carworth/internal/clock"
	"github.com/carworth/carworth/internal/domain"
	"github.com/carworth/carworth/internal/metrics"
	"github.com/carworth/carworth/internal/net/ratelimit"
)

// ClientConfig tunes the rate-limited client.
type ClientConfig struct {
	RPS         float64
	Burst       int
	MaxRetries  int
	BaseBackoff time.Duration
}

// DefaultClientConfig matches the shared external quota: a small constant
// request rate and three attempts per call.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		RPS:         4,
		Burst:       4,
		MaxRetries:  3,
		BaseBackoff: 200 * time.Millisecond,
	}
}

// Client executes external calls under the shared limiter and key pool.
type Client struct {
	config  ClientConfig
	limiter *ratelimit.Limiter
	pool    *KeyPool
	breaker *gobreaker.CircuitBreaker
	clock   clock.Clock
	metrics *metrics.Registry
}

// SetMetrics attaches the retry and rotation counters. Optional; nil
// disables them.
func (c *Client) SetMetrics(m *metrics.Registry) { c.metrics = m }

// NewClient builds a rate-limited client over a credential pool.
func NewClient(config ClientConfig, pool *KeyPool, clk clock.Clock) *Client {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.BaseBackoff <= 0 {
		config.BaseBackoff = 200 * time.Millisecond
	}
	if config.RPS <= 0 {
		config.RPS = 4
	}
	if config.Burst <= 0 {
		config.Burst = int(config.RPS)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "upstream",
		MaxRequests: 2,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})

	return &Client{
		config:  config,
		limiter: ratelimit.NewLimiter(config.RPS, config.Burst),
		pool:    pool,
		breaker: breaker,
		clock:   clk,
	}
}

// Do executes call under the endpoint's rate limit with the current
// credential. Transient failures are retried with exponential backoff; a
// quota-exhausted or invalid-credential response rotates the pool and retries
// once with the next key. When no key is usable, domain.ErrAllKeysExhausted
// is returned for callers to degrade from.
func (c *Client) Do(ctx context.Context, endpoint string, call func(ctx context.Context, apiKey string) error) error {
	if err := c.limiter.Wait(ctx, endpoint); err != nil {
		return fmt.Errorf("rate limit wait for %s: %w", endpoint, err)
	}

	key, err := c.pool.Current(c.clock.Now())
	if err != nil {
		return err
	}

	err = c.attempt(ctx, endpoint, key, call)
	if err == nil || !isCredentialFailure(err) {
		return err
	}

	// Rotate and retry exactly once with the next credential.
	c.rotateFor(key, err)
	nextKey, poolErr := c.pool.Current(c.clock.Now())
	if poolErr != nil {
		return poolErr
	}
	return c.attempt(ctx, endpoint, nextKey, call)
}

// attempt runs one credential's worth of retries through the breaker.
func (c *Client) attempt(ctx context.Context, endpoint, key string, call func(ctx context.Context, apiKey string) error) error {
	var lastErr error
	backoff := c.config.BaseBackoff

	for try := 0; try < c.config.MaxRetries; try++ {
		if try > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if c.metrics != nil {
				c.metrics.ProviderRetries.Inc()
			}
		}

		_, err := c.breaker.Execute(func() (interface{}, error) {
			return nil, call(ctx, key)
		})
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%s: %w", endpoint, domain.ErrUpstreamUnavailable)
		}
		if !isRetryable(err) {
			return err
		}
		log.Debug().Err(err).Str("endpoint", endpoint).Int("try", try+1).
			Msg("transient upstream failure, backing off")
	}
	return fmt.Errorf("%s after %d attempts: %w", endpoint, c.config.MaxRetries, lastErr)
}

func (c *Client) rotateFor(key string, err error) {
	if c.metrics != nil {
		c.metrics.KeyRotations.Inc()
	}
	now := c.clock.Now()
	if errors.Is(err, ErrInvalidCredential) {
		c.pool.MarkInvalid(key, now)
		return
	}
	c.pool.MarkExhausted(key, endOfBillingPeriod(now), now)
}

// endOfBillingPeriod returns the first instant of the next calendar month. An
// exhausted key stays benched until its quota resets.
func endOfBillingPeriod(now time.Time) time.Time {
	year, month, _ := now.Date()
	return time.Date(year, month, 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
}
