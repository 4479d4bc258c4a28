//go:build stdlog

package build

// LoggingType sends every line to the console only. Used for test runs that
// should show provider traffic without touching the disk.
const LoggingType = LogTypeStdOut
