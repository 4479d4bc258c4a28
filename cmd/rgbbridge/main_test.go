package main

import (
	"bytes"
	"net"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/stretchr/testify/require"
)

// syncBuffer is a bytes.Buffer safe for the concurrent writes of a logger.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func newTestLogger() (btclog.Logger, *syncBuffer) {
	var buf syncBuffer
	log := btclog.NewBackend(&buf).Logger("BRDG")
	log.SetLevel(btclog.LevelDebug)

	return log, &buf
}

// TestServeLogsFailure asserts a listener failing under the server is logged.
func TestServeLogsFailure(t *testing.T) {
	t.Parallel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, lis.Close())

	log, buf := newTestLogger()
	stop := serveListener(lis, http.NotFoundHandler(), log)
	t.Cleanup(stop)

	require.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "Unable to serve")
	}, 5*time.Second, 10*time.Millisecond)
}

// TestServeShutdownQuiet asserts a regular shutdown isn't reported as a
// failure.
func TestServeShutdownQuiet(t *testing.T) {
	t.Parallel()

	log, buf := newTestLogger()
	stop, err := serve("127.0.0.1:0", http.NotFoundHandler(), log)
	require.NoError(t, err)

	stop()

	// Give the serving goroutine time to return.
	time.Sleep(100 * time.Millisecond)
	require.NotContains(t, buf.String(), "Unable to serve")
}
