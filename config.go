package rgbwebln

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/jessevdk/go-flags"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/rgbwebln/rgbwebln/build"
	"github.com/rgbwebln/rgbwebln/provider"
	"github.com/rgbwebln/rgbwebln/wsprovider"
)

const (
	defaultConfigFilename = "rgbwebln.conf"
	defaultLogFilename    = "rgbwebln.log"
	defaultLogDirname     = "logs"
	defaultLogLevel       = "info"

	// DefaultDiscoveryTimeout is how long discovery waits for a provider
	// to be injected.
	DefaultDiscoveryTimeout = 6 * time.Second

	defaultRequestTimeout = 30 * time.Second

	defaultHealthCheckInterval = time.Minute
	defaultHealthCheckTimeout  = 10 * time.Second
	defaultHealthCheckBackoff  = 30 * time.Second
	defaultHealthCheckAttempts = 3

	defaultMetricsListen = "localhost:9092"
	defaultBridgeListen  = "localhost:3001"
)

var (
	// DefaultAppDir is the default directory holding the config file and
	// logs.
	DefaultAppDir = btcutil.AppDataDir("rgbwebln", false)

	// DefaultConfigFile is the default full path of the config file.
	DefaultConfigFile = filepath.Join(DefaultAppDir, defaultConfigFilename)

	defaultLogDir = filepath.Join(DefaultAppDir, defaultLogDirname)
)

// DiscoveryConfig holds the options of injected provider discovery.
//
//nolint:lll
type DiscoveryConfig struct {
	Timeout      time.Duration `long:"timeout" description:"How long to wait for a provider to be injected before giving up"`
	PollInterval time.Duration `long:"pollinterval" description:"The interval between two lookups of the injection point"`
}

// WebsocketConfig holds the options of a provider reached over a websocket.
//
//nolint:lll
type WebsocketConfig struct {
	Endpoint       string        `long:"endpoint" description:"The ws:// or wss:// URL of a remote provider. If unset, an injected provider is discovered instead"`
	RequestTimeout time.Duration `long:"requesttimeout" description:"The maximum time a single request may take, 0 to only rely on the caller's deadline"`
	PingInterval   time.Duration `long:"pinginterval" description:"The interval between two keepalive pings, 0 to disable"`
	PongWait       time.Duration `long:"pongwait" description:"How long to wait for a pong before considering the connection dead"`
}

// HealthCheckConfig holds the options of the provider liveness check.
//
//nolint:lll
type HealthCheckConfig struct {
	Interval time.Duration `long:"interval" description:"How often to check that the provider is still enabled"`
	Timeout  time.Duration `long:"timeout" description:"The time allowed for a single check"`
	Backoff  time.Duration `long:"backoff" description:"The time to wait between failed attempts"`
	Attempts int           `long:"attempts" description:"The number of failed attempts tolerated before shutting down, 0 disables the check"`
}

// Config holds everything an embedding application may tune.
//
//nolint:lll
type Config struct {
	AppDir     string `long:"appdir" description:"The base directory that contains the config file and logs"`
	ConfigFile string `short:"C" long:"configfile" description:"Path to configuration file"`

	Origin string `long:"origin" description:"The origin presented to the provider when requesting access"`

	LogDir         string `long:"logdir" description:"Directory to log output"`
	DebugLevel     string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <global-level>,<subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems"`
	MaxLogFiles    int    `long:"maxlogfiles" description:"Maximum logfiles to keep (0 disables the log file)"`
	MaxLogFileSize int    `long:"maxlogfilesize" description:"Maximum logfile size in MB"`

	Listen string `long:"listen" description:"The address the bridge serves the provider on over a websocket"`

	Metrics       bool   `long:"metrics" description:"Export request and diagnostic counters over HTTP"`
	MetricsListen string `long:"metricslisten" description:"The address the metrics endpoint listens on"`

	Discovery   *DiscoveryConfig   `group:"discovery" namespace:"discovery"`
	Websocket   *WebsocketConfig   `group:"ws" namespace:"ws"`
	HealthCheck *HealthCheckConfig `group:"healthcheck" namespace:"healthcheck"`
}

// DefaultConfig returns all default values for the Config struct.
func DefaultConfig() Config {
	return Config{
		AppDir:         DefaultAppDir,
		ConfigFile:     DefaultConfigFile,
		LogDir:         defaultLogDir,
		DebugLevel:     defaultLogLevel,
		MaxLogFiles:    build.DefaultMaxLogFiles,
		MaxLogFileSize: build.DefaultMaxLogFileSize,
		Listen:         defaultBridgeListen,
		MetricsListen:  defaultMetricsListen,
		Discovery: &DiscoveryConfig{
			Timeout:      DefaultDiscoveryTimeout,
			PollInterval: provider.DefaultPollInterval,
		},
		Websocket: &WebsocketConfig{
			RequestTimeout: defaultRequestTimeout,
			PingInterval:   wsprovider.DefaultPingInterval,
			PongWait:       wsprovider.DefaultPongWait,
		},
		HealthCheck: &HealthCheckConfig{
			Interval: defaultHealthCheckInterval,
			Timeout:  defaultHealthCheckTimeout,
			Backoff:  defaultHealthCheckBackoff,
			Attempts: defaultHealthCheckAttempts,
		},
	}
}

// LoadConfig initializes and parses the config using a config file and the
// command line options in args.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
func LoadConfig(args []string) (*Config, error) {
	// Pre-parse the command line options to pick up an alternative config
	// file.
	preCfg := DefaultConfig()
	if _, err := flags.NewParser(&preCfg, flags.Default).ParseArgs(
		args,
	); err != nil {
		return nil, err
	}

	// If the config file path has not been modified by the user, then
	// we'll use the default config file path. However, if the user has
	// modified their appdir, then we should assume they intend to use the
	// config file within it.
	configFileDir := CleanAndExpandPath(preCfg.AppDir)
	configFilePath := CleanAndExpandPath(preCfg.ConfigFile)
	if configFileDir != DefaultAppDir && configFilePath == DefaultConfigFile {
		configFilePath = filepath.Join(
			configFileDir, defaultConfigFilename,
		)
	}

	// Next, load any additional configuration options from the file.
	var configFileError error
	cfg := preCfg
	if err := flags.IniParse(configFilePath, &cfg); err != nil {
		// If it's a parsing related error, then we'll return
		// immediately, otherwise we can proceed as possibly the config
		// file doesn't exist which is OK.
		var iniErr *flags.IniError
		if errors.As(err, &iniErr) {
			return nil, err
		}

		configFileError = err
	}

	// Finally, parse the remaining command line options again to ensure
	// they take precedence.
	if _, err := flags.NewParser(&cfg, flags.Default).ParseArgs(
		args,
	); err != nil {
		return nil, err
	}

	// Make sure everything we just loaded makes sense.
	cleanCfg, err := ValidateConfig(cfg)
	if err != nil {
		return nil, err
	}

	// Warn about missing config file only after all other configuration is
	// done.
	if configFileError != nil {
		log.Warnf("%v", configFileError)
	}

	return cleanCfg, nil
}

// ValidateConfig checks the given configuration to be sane. This makes sure
// no illegal values or combination of values are set. All file system paths
// are normalized. The cleaned up config is returned on success.
func ValidateConfig(cfg Config) (*Config, error) {
	// If the provided app directory is not the default, we'll move the
	// logs within it unless they were placed explicitly.
	appDir := CleanAndExpandPath(cfg.AppDir)
	if appDir != DefaultAppDir && cfg.LogDir == defaultLogDir {
		cfg.LogDir = filepath.Join(appDir, defaultLogDirname)
	}
	cfg.AppDir = appDir
	cfg.ConfigFile = CleanAndExpandPath(cfg.ConfigFile)
	cfg.LogDir = CleanAndExpandPath(cfg.LogDir)

	switch {
	case cfg.Discovery.Timeout <= 0:
		return nil, fmt.Errorf("discovery.timeout must be positive, "+
			"got %v", cfg.Discovery.Timeout)

	case cfg.Discovery.PollInterval <= 0:
		return nil, fmt.Errorf("discovery.pollinterval must be "+
			"positive, got %v", cfg.Discovery.PollInterval)

	case cfg.Websocket.RequestTimeout < 0:
		return nil, fmt.Errorf("ws.requesttimeout must not be "+
			"negative, got %v", cfg.Websocket.RequestTimeout)

	case cfg.Websocket.PingInterval < 0 || cfg.Websocket.PongWait < 0:
		return nil, errors.New("ws.pinginterval and ws.pongwait must " +
			"not be negative")

	case cfg.HealthCheck.Attempts < 0:
		return nil, fmt.Errorf("healthcheck.attempts must not be "+
			"negative, got %d", cfg.HealthCheck.Attempts)

	case cfg.HealthCheck.Attempts > 0 && (cfg.HealthCheck.Interval <= 0 ||
		cfg.HealthCheck.Timeout <= 0):

		return nil, errors.New("healthcheck.interval and " +
			"healthcheck.timeout must be positive when the health " +
			"check is enabled")

	case cfg.MaxLogFiles < 0 || cfg.MaxLogFileSize < 0:
		return nil, errors.New("maxlogfiles and maxlogfilesize must " +
			"not be negative")

	case cfg.Metrics && cfg.MetricsListen == "":
		return nil, errors.New("metricslisten must be set when " +
			"metrics are enabled")
	}

	if cfg.Websocket.Endpoint != "" {
		endpoint, err := url.Parse(cfg.Websocket.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid ws.endpoint: %w", err)
		}
		if endpoint.Scheme != "ws" && endpoint.Scheme != "wss" {
			return nil, fmt.Errorf("ws.endpoint must use the ws or "+
				"wss scheme, got %q", endpoint.Scheme)
		}
	}

	// Parse the debug level against a throwaway writer that knows every
	// subsystem, so a bad level is caught before any logger is touched.
	err := build.ParseAndSetDebugLevels(cfg.DebugLevel, levelChecker())
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LogFile returns the path of the main log file.
func (c *Config) LogFile() string {
	return filepath.Join(c.LogDir, defaultLogFilename)
}

// EnableOrigin returns the origin to present on enable, if any.
func (c *Config) EnableOrigin() fn.Option[string] {
	if c.Origin == "" {
		return fn.None[string]()
	}

	return fn.Some(c.Origin)
}

// ProviderDiscovery returns the discovery settings for the provider package.
func (c *Config) ProviderDiscovery() provider.DiscoveryConfig {
	cfg := provider.DefaultDiscoveryConfig()
	cfg.PollInterval = c.Discovery.PollInterval

	return cfg
}

// WebsocketClient returns the settings of the websocket adapter.
func (c *Config) WebsocketClient() wsprovider.Config {
	return wsprovider.Config{
		URL:            c.Websocket.Endpoint,
		RequestTimeout: c.Websocket.RequestTimeout,
		PingInterval:   c.Websocket.PingInterval,
		PongWait:       c.Websocket.PongWait,
	}
}

// SetupLogging starts writing logs to the rotating log file and applies the
// configured debug levels to every subsystem.
func (c *Config) SetupLogging(root *build.RotatingLogWriter) error {
	SetupLoggers(root)

	if c.MaxLogFiles > 0 {
		err := root.InitLogRotator(
			c.LogFile(), c.MaxLogFileSize, c.MaxLogFiles,
		)
		if err != nil {
			return err
		}
	}

	return build.ParseAndSetDebugLevels(c.DebugLevel, root)
}

// CleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
// This function is taken from https://github.com/btcsuite/btcd
func CleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		u, err := user.Current()
		if err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}
