// Command rgbbridge connects to a remote RGB WebLN provider, requests access
// and serves it again over a websocket, adding request metrics and a liveness
// check in front of it.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/btcsuite/btclog"
	"github.com/jessevdk/go-flags"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rgbwebln/rgbwebln"
	"github.com/rgbwebln/rgbwebln/build"
	"github.com/rgbwebln/rgbwebln/rgbrpc"
	"github.com/rgbwebln/rgbwebln/signal"
	"github.com/rgbwebln/rgbwebln/wsprovider"
)

// shutdownTimeout bounds how long open connections may take to close.
const shutdownTimeout = 5 * time.Second

func main() {
	// Load the configuration, and parse any command line options.
	cfg, err := rgbwebln.LoadConfig(os.Args[1:])
	if err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
			os.Exit(0)
		}

		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Call the "real" main in a nested manner so the defers will properly
	// be executed in the case of a graceful shutdown.
	if err := run(cfg); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *rgbwebln.Config) error {
	if cfg.Websocket.Endpoint == "" {
		return errors.New("the bridge needs a remote provider, set " +
			"--ws.endpoint")
	}

	logWriter := build.NewRotatingLogWriter()
	defer func() {
		_ = logWriter.Close()
	}()

	log := build.NewSubLogger("BRDG", logWriter.GenSubLogger)
	rgbwebln.SetSubLogger(logWriter, "BRDG", log)
	if err := cfg.SetupLogging(logWriter); err != nil {
		return err
	}

	interceptor := signal.Intercept()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-interceptor.ShutdownChannel():
			cancel()
		case <-ctx.Done():
		}
	}()

	var metrics *rgbwebln.Metrics
	if cfg.Metrics {
		metrics = rgbwebln.NewMetrics()
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			return fmt.Errorf("unable to register metrics: %w", err)
		}

		stop, err := serve(cfg.MetricsListen, promhttp.Handler(), log)
		if err != nil {
			return fmt.Errorf("unable to serve metrics: %w", err)
		}
		defer stop()

		log.Infof("Metrics exported on %s", cfg.MetricsListen)
	}

	client, err := rgbwebln.Connect(ctx, cfg, metrics)
	if err != nil {
		return fmt.Errorf("unable to connect to provider: %w", err)
	}
	defer func() {
		if err := client.Stop(); err != nil {
			log.Errorf("Unable to stop client: %v", err)
		}
	}()

	if err := client.Enable(ctx, fn.None[string]()); err != nil {
		return fmt.Errorf("unable to enable provider: %w", err)
	}

	info, err := client.GetInfo(ctx)
	if err != nil {
		return err
	}
	log.Infof("Bridging node %s (%x), %d methods", info.Alias,
		info.PubKey.SerializeCompressed(), len(info.Methods))

	monitor := client.NewHealthMonitor(
		cfg.HealthCheck, func(format string, params ...interface{}) {
			log.Criticalf("Provider health check failed: "+format,
				params...)
			interceptor.RequestShutdown()
		},
	)
	if monitor != nil {
		if err := monitor.Start(); err != nil {
			return fmt.Errorf("unable to start health monitor: %w",
				err)
		}
		defer func() {
			if err := monitor.Stop(); err != nil {
				log.Errorf("Unable to stop health monitor: %v",
					err)
			}
		}()
	}

	server := wsprovider.NewServer(
		client, rgbrpc.EventTransferUpdate, rgbrpc.EventAccountChanged,
	)
	stop, err := serve(cfg.Listen, server, log)
	if err != nil {
		return fmt.Errorf("unable to serve provider: %w", err)
	}
	defer stop()

	log.Infof("Serving provider on ws://%s", cfg.Listen)

	// Wait for shutdown, or for the upstream connection to drop.
	var upstream <-chan struct{}
	if ws, ok := client.Provider().(*wsprovider.Client); ok {
		upstream = ws.Done()
	}

	select {
	case <-interceptor.ShutdownChannel():
		log.Infof("Shutdown complete")
		return nil

	case <-upstream:
		return errors.New("provider connection lost")
	}
}

// serve runs handler on addr in the background, returning a function stopping
// it.
func serve(addr string, handler http.Handler, log btclog.Logger) (func(),
	error) {

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	return serveListener(lis, handler, log), nil
}

// serveListener serves handler on lis until the returned function is called.
// Serve failures other than the shutdown itself are logged.
func serveListener(lis net.Listener, handler http.Handler,
	log btclog.Logger) func() {

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		err := srv.Serve(lis)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Unable to serve on %v: %v", lis.Addr(), err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(
			context.Background(), shutdownTimeout,
		)
		defer cancel()

		_ = srv.Shutdown(ctx)
	}
}
