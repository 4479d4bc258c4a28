package rgbwebln

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/lightningnetwork/lnd/healthcheck"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/rgbwebln/rgbwebln/rgbrpc"
	"github.com/rgbwebln/rgbwebln/rgbtest"
	"github.com/stretchr/testify/require"
)

func TestProviderCheck(t *testing.T) {
	t.Parallel()

	fake := rgbtest.NewFakeProvider()
	c, _ := newTestClient(t, fake)
	check := c.providerCheck(time.Second)

	require.ErrorIs(t, check(), errProviderDisabled)

	require.NoError(t, c.Enable(context.Background(), fn.None[string]()))
	require.NoError(t, check())

	gone := errors.New("provider gone")
	fake.Fail(rgbrpc.MethodIsEnabled, gone)
	require.ErrorIs(t, check(), gone)
}

func TestHealthMonitorDisabled(t *testing.T) {
	t.Parallel()

	c, _ := newTestClient(t, rgbtest.NewFakeProvider())

	monitor := c.NewHealthMonitor(
		&HealthCheckConfig{Attempts: 0}, func(string, ...interface{}) {},
	)
	require.Nil(t, monitor)
}

// TestHealthMonitorShutdown asserts the monitor requests a shutdown once the
// provider stops granting access.
func TestHealthMonitorShutdown(t *testing.T) {
	t.Parallel()

	fake := rgbtest.NewFakeProvider()
	c, _ := newEnabledClient(t, fake)

	obs := c.providerObservation(&HealthCheckConfig{
		Interval: time.Hour,
		Timeout:  time.Second,
		Attempts: 2,
	})
	intervalTicker := ticker.NewForce(time.Hour)
	obs.Interval = intervalTicker

	shutdown := make(chan string, 1)
	monitor := healthcheck.NewMonitor(&healthcheck.Config{
		Checks: []*healthcheck.Observation{obs},
		Shutdown: func(format string, params ...interface{}) {
			shutdown <- fmt.Sprintf(format, params...)
		},
	})
	require.NoError(t, monitor.Start())
	t.Cleanup(func() {
		require.NoError(t, monitor.Stop())
	})

	tick := func() {
		select {
		case intervalTicker.Force <- time.Now():
		case <-time.After(5 * time.Second):
			t.Fatal("could not tick timer")
		}
	}

	// A healthy provider doesn't trigger anything.
	tick()
	require.Eventually(t, func() bool {
		return fake.CallCount(rgbrpc.MethodIsEnabled) == 1
	}, 5*time.Second, 10*time.Millisecond)

	select {
	case reason := <-shutdown:
		t.Fatalf("unexpected shutdown: %v", reason)
	default:
	}

	fake.Fail(rgbrpc.MethodIsEnabled, errors.New("provider gone"))
	tick()

	select {
	case <-shutdown:
	case <-time.After(5 * time.Second):
		t.Fatal("no shutdown after failed checks")
	}
	require.Equal(t, 3, fake.CallCount(rgbrpc.MethodIsEnabled))
}
