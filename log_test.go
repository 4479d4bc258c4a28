package rgbwebln

import (
	"testing"

	"github.com/btcsuite/btclog"
	"github.com/rgbwebln/rgbwebln/build"
	"github.com/stretchr/testify/require"
)

func TestSetupLoggers(t *testing.T) {
	root := build.NewRotatingLogWriter()
	SetupLoggers(root)
	t.Cleanup(func() {
		for _, s := range subLoggers {
			s.useLogger(btclog.Disabled)
		}
	})

	require.Equal(t, []string{
		"ASST", "BLNC", "EVNT", "INVC", "PRVD", "RGBW", "SGNL", "WSPR",
		"XFER",
	}, root.SupportedSubsystems())

	require.NoError(t, build.ParseAndSetDebugLevels("warn,XFER=debug", root))
	require.Equal(t, btclog.LevelDebug, root.SubLoggers()["XFER"].Level())
	require.Equal(t, btclog.LevelWarn, root.SubLoggers()["RGBW"].Level())

	err := build.ParseAndSetDebugLevels("info,LNWL=debug", root)
	require.Error(t, err)
}
