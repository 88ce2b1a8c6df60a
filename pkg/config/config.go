// Package config loads the client configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/Masterminds/semver"
	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/openslides/openslides.go/pkg/autoupdate"
	"github.com/openslides/openslides.go/pkg/codec"
	"github.com/openslides/openslides.go/pkg/constants"
	"github.com/openslides/openslides.go/pkg/logger"
)

const (
	StrategyFixed       = "fixed"
	StrategyExponential = "exponential"

	TransportGorilla = "gorilla"
	TransportGWS     = "gws"

	BackendSlog    = "slog"
	BackendZerolog = "zerolog"
	BackendZap     = "zap"
)

type Config struct {
	URL            string `env:"OPENSLIDES_URL" envDefault:"http://localhost:8000"`
	AutoupdatePath string `env:"OPENSLIDES_AUTOUPDATE_PATH" envDefault:"/ws/"`
	// Codec is the autoupdate wire encoding, json or cbor.
	Codec string `env:"OPENSLIDES_CODEC" envDefault:"json"`
	// Transport selects the WebSocket implementation, gorilla or gws.
	Transport      string        `env:"OPENSLIDES_TRANSPORT" envDefault:"gorilla"`
	RequestTimeout time.Duration `env:"OPENSLIDES_REQUEST_TIMEOUT" envDefault:"30s"`

	ReconnectStrategy   string        `env:"OPENSLIDES_RECONNECT_STRATEGY" envDefault:"fixed"`
	ReconnectDelay      time.Duration `env:"OPENSLIDES_RECONNECT_DELAY" envDefault:"5s"`
	ReconnectMaxDelay   time.Duration `env:"OPENSLIDES_RECONNECT_MAX_DELAY" envDefault:"30s"`
	ReconnectMultiplier float64       `env:"OPENSLIDES_RECONNECT_MULTIPLIER" envDefault:"2"`
	// ReconnectMaxRetries of 0 retries forever.
	ReconnectMaxRetries int     `env:"OPENSLIDES_RECONNECT_MAX_RETRIES" envDefault:"0"`
	ReconnectJitter     float64 `env:"OPENSLIDES_RECONNECT_JITTER" envDefault:"0.3"`

	// ServerVersion is the semver constraint the server version must meet.
	ServerVersion string `env:"OPENSLIDES_SERVER_VERSION" envDefault:">= 3.0, < 4.0"`

	LogBackend string `env:"LOG_BACKEND" envDefault:"slog"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	// LogFile is only used by the zerolog backend; empty logs to stdout.
	LogFile string `env:"LOG_FILE"`
}

// Load reads the given .env files, or ./.env if it exists and none are
// given, and then parses the process environment. Variables already set in
// the environment win over the files.
func Load(files ...string) (*Config, error) {
	if len(files) > 0 {
		if err := godotenv.Load(files...); err != nil {
			return nil, fmt.Errorf("failed to load env files: %w", err)
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	return parse(env.Options{})
}

// FromMap parses cfg from vars instead of the process environment.
func FromMap(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.URL)
	if err != nil || u.Host == "" || (u.Scheme != constants.HTTPScheme && u.Scheme != constants.HTTPSecureScheme) {
		errs = append(errs, fmt.Errorf("OPENSLIDES_URL: %w: %q", constants.ErrNoURL, c.URL))
	}
	if !strings.HasPrefix(c.AutoupdatePath, "/") {
		errs = append(errs, fmt.Errorf("OPENSLIDES_AUTOUPDATE_PATH must start with '/', got %q", c.AutoupdatePath))
	}
	if _, err := codec.ByName(c.Codec); err != nil {
		errs = append(errs, fmt.Errorf("OPENSLIDES_CODEC: %w", err))
	}
	switch c.Transport {
	case TransportGorilla, TransportGWS:
	default:
		errs = append(errs, fmt.Errorf("OPENSLIDES_TRANSPORT must be %q or %q, got %q", TransportGorilla, TransportGWS, c.Transport))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("OPENSLIDES_REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout))
	}

	switch c.ReconnectStrategy {
	case StrategyFixed, StrategyExponential:
	default:
		errs = append(errs, fmt.Errorf("OPENSLIDES_RECONNECT_STRATEGY must be %q or %q, got %q", StrategyFixed, StrategyExponential, c.ReconnectStrategy))
	}
	if c.ReconnectDelay <= 0 {
		errs = append(errs, fmt.Errorf("OPENSLIDES_RECONNECT_DELAY must be positive, got %s", c.ReconnectDelay))
	}
	switch {
	case c.ReconnectMaxDelay < 0:
		errs = append(errs, fmt.Errorf("OPENSLIDES_RECONNECT_MAX_DELAY must not be negative, got %s", c.ReconnectMaxDelay))
	case c.ReconnectStrategy == StrategyExponential && c.ReconnectMaxDelay == 0:
		errs = append(errs, errors.New("OPENSLIDES_RECONNECT_MAX_DELAY must be set for the exponential strategy"))
	case c.ReconnectMaxDelay > constants.MaxReconnectDelay:
		errs = append(errs, fmt.Errorf("OPENSLIDES_RECONNECT_MAX_DELAY must be at most %s, got %s", constants.MaxReconnectDelay, c.ReconnectMaxDelay))
	}
	if c.ReconnectMultiplier < 1 {
		errs = append(errs, fmt.Errorf("OPENSLIDES_RECONNECT_MULTIPLIER must be at least 1, got %v", c.ReconnectMultiplier))
	}
	if c.ReconnectMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("OPENSLIDES_RECONNECT_MAX_RETRIES must not be negative, got %d", c.ReconnectMaxRetries))
	}
	if c.ReconnectJitter < 0 || c.ReconnectJitter > 1 {
		errs = append(errs, fmt.Errorf("OPENSLIDES_RECONNECT_JITTER must be between 0 and 1, got %v", c.ReconnectJitter))
	}

	if _, err := semver.NewConstraint(c.ServerVersion); err != nil {
		errs = append(errs, fmt.Errorf("OPENSLIDES_SERVER_VERSION: %w", err))
	}

	switch c.LogBackend {
	case BackendSlog, BackendZerolog, BackendZap:
	default:
		errs = append(errs, fmt.Errorf("LOG_BACKEND must be one of slog, zerolog, zap, got %q", c.LogBackend))
	}

	return errors.Join(errs...)
}

// WireCodec returns the autoupdate codec.
func (c *Config) WireCodec() codec.Codec {
	cd, err := codec.ByName(c.Codec)
	if err != nil {
		return codec.JSON()
	}
	return cd
}

// Constraint returns the accepted server versions.
func (c *Config) Constraint() *semver.Constraints {
	cs, err := semver.NewConstraint(c.ServerVersion)
	if err != nil {
		cs, _ = semver.NewConstraint(constants.DefaultServerConstraint)
	}
	return cs
}

// Retryer builds the reconnect strategy.
func (c *Config) Retryer() autoupdate.Retryer {
	if c.ReconnectStrategy == StrategyExponential {
		return &autoupdate.Backoff{
			Delay:      c.ReconnectDelay,
			MaxDelay:   c.ReconnectMaxDelay,
			Multiplier: c.ReconnectMultiplier,
			MaxRetries: c.ReconnectMaxRetries,
			Jitter:     c.ReconnectJitter,
		}
	}
	return autoupdate.FixedBackoff(c.ReconnectDelay, c.ReconnectMaxRetries)
}

// Logger builds the configured logging backend.
func (c *Config) Logger() (logger.Logger, error) {
	level := logger.ParseLevel(c.LogLevel)
	switch c.LogBackend {
	case BackendZerolog:
		build := logger.NewZerolog().Level(level)
		if c.LogFile != "" {
			build = build.FromPath(c.LogFile)
		}
		l, err := build.Make()
		if err != nil {
			return nil, err
		}
		return l, nil
	case BackendZap:
		l, err := logger.NewZapProduction(level)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return logger.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
	}
}
