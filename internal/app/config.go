package app

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/specialistvlad/simgridgo/internal/job"
	"github.com/specialistvlad/simgridgo/internal/poller"
	"github.com/specialistvlad/simgridgo/internal/transport"
)

// Environment keys read by ConfigFromEnv.
const (
	EnvAPIURL      = "SIMGRID_API_URL"
	EnvAPIToken    = "SIMGRID_API_TOKEN"
	EnvAPIVersion  = "SIMGRID_API_VERSION"
	EnvEncoding    = "SIMGRID_ENCODING"
	EnvGzip        = "SIMGRID_GZIP"
	EnvPollInitial = "SIMGRID_POLL_INITIAL"
	EnvPollMax     = "SIMGRID_POLL_MAX"
	EnvPollGrowth  = "SIMGRID_POLL_GROWTH"
	EnvPollTimeout = "SIMGRID_POLL_TIMEOUT"
	EnvHTTPTimeout = "SIMGRID_HTTP_TIMEOUT"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	APIURL     string
	APIToken   string
	APIVersion string
	Encoding   string
	Gzip       bool
	UserAgent  string

	HTTPTimeout time.Duration
	PollInitial time.Duration
	PollMax     time.Duration
	PollGrowth  float64
	PollTimeout time.Duration // 0 polls until a terminal status.

	LogFormat string
	LogLevel  string
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return Config{
		APIVersion:  job.DefaultAPIVersion,
		Encoding:    string(transport.EncodingJSON),
		UserAgent:   "simgridgo",
		HTTPTimeout: transport.DefaultTimeout,
		PollInitial: poller.DefaultInitialInterval,
		PollMax:     poller.DefaultMaxInterval,
		PollGrowth:  poller.DefaultGrowthFactor,
		LogFormat:   "text",
		LogLevel:    "info",
	}
}

// ConfigFromEnv overlays DefaultConfig with SIMGRID_* variables. If envFile
// is non-empty and exists its entries are used for keys the process
// environment does not set.
func ConfigFromEnv(envFile string) (Config, error) {
	fileVars := map[string]string{}
	if envFile != "" {
		vars, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			fileVars = vars
		case errors.Is(err, os.ErrNotExist):
			// Running from the environment alone is fine.
		default:
			return Config{}, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVars[key]
		return v, ok
	}

	cfg := DefaultConfig()
	var errs []error
	if v, ok := lookup(EnvAPIURL); ok {
		cfg.APIURL = v
	}
	if v, ok := lookup(EnvAPIToken); ok {
		cfg.APIToken = v
	}
	if v, ok := lookup(EnvAPIVersion); ok {
		cfg.APIVersion = v
	}
	if v, ok := lookup(EnvEncoding); ok {
		cfg.Encoding = v
	}
	if v, ok := lookup(EnvGzip); ok {
		b, err := strconv.ParseBool(v)
		errs = append(errs, envErr(EnvGzip, err))
		cfg.Gzip = b
	}
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{EnvPollInitial, &cfg.PollInitial},
		{EnvPollMax, &cfg.PollMax},
		{EnvPollTimeout, &cfg.PollTimeout},
		{EnvHTTPTimeout, &cfg.HTTPTimeout},
	}
	for _, d := range durations {
		if v, ok := lookup(d.key); ok {
			parsed, err := time.ParseDuration(v)
			errs = append(errs, envErr(d.key, err))
			if err == nil {
				*d.dst = parsed
			}
		}
	}
	if v, ok := lookup(EnvPollGrowth); ok {
		f, err := strconv.ParseFloat(v, 64)
		errs = append(errs, envErr(EnvPollGrowth, err))
		if err == nil {
			cfg.PollGrowth = f
		}
	}
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func envErr(key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("invalid %s: %w", key, err)
}

// NewConfig validates cfg and returns a copy ready for NewApp.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("API URL is required (flag --api-url or %s)", EnvAPIURL)
	}
	u, err := url.Parse(cfg.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("API URL %q is not an absolute URL", cfg.APIURL)
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = job.DefaultAPIVersion
	}
	if strings.Contains(cfg.APIVersion, "/") {
		return nil, fmt.Errorf("API version %q must be a single path segment", cfg.APIVersion)
	}
	if _, err := transport.ParseEncoding(cfg.Encoding); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout < 0 {
		return nil, errors.New("HTTP timeout must not be negative")
	}
	if err := cfg.PollerConfig().Validate(); err != nil {
		return nil, err
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.LogFormat)
	}
	return &cfg, nil
}

// PollerConfig derives the poller settings.
func (c Config) PollerConfig() poller.Config {
	pc := poller.DefaultConfig()
	pc.InitialInterval = c.PollInitial
	pc.MaxInterval = c.PollMax
	pc.GrowthFactor = c.PollGrowth
	pc.Timeout = c.PollTimeout
	return pc
}

// TransportConfig derives the transport settings.
func (c Config) TransportConfig() transport.Config {
	enc, _ := transport.ParseEncoding(c.Encoding)
	return transport.Config{
		BaseURL:   c.APIURL,
		Token:     c.APIToken,
		UserAgent: c.UserAgent,
		Timeout:   c.HTTPTimeout,
		Encoding:  enc,
		Gzip:      c.Gzip,
	}
}
