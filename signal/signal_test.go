package signal

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitShutdown(t *testing.T, c *Interceptor) {
	t.Helper()

	select {
	case <-c.ShutdownChannel():
	case <-time.After(5 * time.Second):
		t.Fatal("interceptor didn't shut down")
	}
}

func TestRequestShutdown(t *testing.T) {
	t.Parallel()

	c := newInterceptor()
	go c.mainInterruptHandler()

	require.True(t, c.Alive())
	c.RequestShutdown()
	waitShutdown(t, c)
	require.False(t, c.Alive())

	// Later requests return immediately.
	c.RequestShutdown()
}

func TestInterruptShutdown(t *testing.T) {
	t.Parallel()

	c := newInterceptor()
	go c.mainInterruptHandler()

	c.interruptChannel <- os.Interrupt
	waitShutdown(t, c)
	require.False(t, c.Alive())
}
