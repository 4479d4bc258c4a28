package rgbwebln

import (
	"context"
	"errors"
	"time"

	"github.com/lightningnetwork/lnd/healthcheck"
)

// errProviderDisabled is reported by the health check when the provider
// answers but no longer grants access.
var errProviderDisabled = errors.New("provider no longer enabled")

// providerCheck returns a check asking the provider whether access is still
// granted, giving each attempt at most timeout.
func (c *Client) providerCheck(timeout time.Duration) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(
			context.Background(), timeout,
		)
		defer cancel()

		enabled, err := c.IsEnabled(ctx)
		if err != nil {
			return err
		}
		if !enabled {
			return errProviderDisabled
		}

		return nil
	}
}

// providerObservation builds the provider liveness observation described by
// cfg.
func (c *Client) providerObservation(
	cfg *HealthCheckConfig) *healthcheck.Observation {

	return healthcheck.NewObservation(
		"provider", c.providerCheck(cfg.Timeout), cfg.Interval,
		cfg.Timeout, cfg.Backoff, cfg.Attempts,
	)
}

// NewHealthMonitor returns a monitor that periodically checks the provider
// still grants access, calling shutdown once cfg.Attempts checks in a row
// failed. It returns nil when the check is disabled. The monitor must be
// started by the caller.
func (c *Client) NewHealthMonitor(cfg *HealthCheckConfig,
	shutdown func(format string, params ...interface{})) *healthcheck.Monitor {

	if cfg.Attempts == 0 {
		log.Infof("Provider health check disabled")
		return nil
	}

	return healthcheck.NewMonitor(&healthcheck.Config{
		Checks:   []*healthcheck.Observation{c.providerObservation(cfg)},
		Shutdown: shutdown,
	})
}
