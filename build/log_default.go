//go:build !stdlog && !nolog

package build

// LoggingType mirrors every line to the console and, once InitLogRotator ran,
// to the rotated log file of the bridge.
const LoggingType = LogTypeDefault
