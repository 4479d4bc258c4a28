//go:build nolog

package build

// LoggingType drops all output.
const LoggingType = LogTypeNone
