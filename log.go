package rgbwebln

import (
	"github.com/btcsuite/btclog"
	"github.com/rgbwebln/rgbwebln/assets"
	"github.com/rgbwebln/rgbwebln/balance"
	"github.com/rgbwebln/rgbwebln/build"
	"github.com/rgbwebln/rgbwebln/events"
	"github.com/rgbwebln/rgbwebln/invoices"
	"github.com/rgbwebln/rgbwebln/provider"
	"github.com/rgbwebln/rgbwebln/signal"
	"github.com/rgbwebln/rgbwebln/transfers"
	"github.com/rgbwebln/rgbwebln/wsprovider"
)

// Subsystem defines the logging code for the client facade.
const Subsystem = "RGBW"

// log is a logger that is initialized with no output filters. This means the
// package will not perform any logging by default until the caller requests
// it.
var log btclog.Logger

// The default amount of logging is none.
func init() {
	UseLogger(build.NewSubLogger(Subsystem, nil))
}

// DisableLog disables all library log output. Logging output is disabled by
// default until UseLogger is called.
func DisableLog() {
	UseLogger(btclog.Disabled)
}

// UseLogger uses a specified Logger to output package logging info. This
// should be used in preference to SetLogWriter if the caller is also using
// btclog.
func UseLogger(logger btclog.Logger) {
	log = logger
}

// subLogger pairs a subsystem tag with the function installing its logger.
type subLogger struct {
	subsystem string
	useLogger func(btclog.Logger)
}

// subLoggers lists every subsystem of the module.
var subLoggers = []subLogger{
	{Subsystem, UseLogger},
	{provider.Subsystem, provider.UseLogger},
	{invoices.Subsystem, invoices.UseLogger},
	{transfers.Subsystem, transfers.UseLogger},
	{balance.Subsystem, balance.UseLogger},
	{assets.Subsystem, assets.UseLogger},
	{events.Subsystem, events.UseLogger},
	{wsprovider.Subsystem, wsprovider.UseLogger},
	{signal.Subsystem, signal.UseLogger},
}

// SetupLoggers initializes all package-global logger variables to write to
// root.
func SetupLoggers(root *build.RotatingLogWriter) {
	for _, s := range subLoggers {
		AddSubLogger(root, s.subsystem, s.useLogger)
	}
}

// AddSubLogger is a helper method to conveniently create and register the
// logger of one or more sub systems.
func AddSubLogger(root *build.RotatingLogWriter, subsystem string,
	useLoggers ...func(btclog.Logger)) {

	// Create and register just a single logger to prevent them from
	// overwriting each other internally.
	logger := build.NewSubLogger(subsystem, root.GenSubLogger)
	SetSubLogger(root, subsystem, logger, useLoggers...)
}

// SetSubLogger is a helper method to conveniently register the logger of a sub
// system.
func SetSubLogger(root *build.RotatingLogWriter, subsystem string,
	logger btclog.Logger, useLoggers ...func(btclog.Logger)) {

	root.RegisterSubLogger(subsystem, logger)
	for _, useLogger := range useLoggers {
		useLogger(logger)
	}
}

// levelChecker returns a writer knowing every subsystem without installing
// any of its loggers, so debug levels can be validated up front.
func levelChecker() *build.RotatingLogWriter {
	w := build.NewRotatingLogWriter()
	for _, s := range subLoggers {
		w.RegisterSubLogger(s.subsystem, w.GenSubLogger(s.subsystem))
	}

	return w
}
