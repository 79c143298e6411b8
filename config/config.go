// Package config holds the tunables of the bridge: where adb lives, how
// input is paced, how often capture and bring-up are retried, logging and
// the JSON-RPC server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix is prepended to every environment override, e.g. TOUCHBRIDGE_ADB_PATH
const EnvPrefix = "TOUCHBRIDGE_"

type Config struct {
	Adb     AdbConfig     `toml:"adb" yaml:"adb" ini:"adb"`
	Input   InputConfig   `toml:"input" yaml:"input" ini:"input"`
	Capture CaptureConfig `toml:"capture" yaml:"capture" ini:"capture"`
	Bringup BringupConfig `toml:"bringup" yaml:"bringup" ini:"bringup"`
	Logging LoggingConfig `toml:"logging" yaml:"logging" ini:"logging"`
	Server  ServerConfig  `toml:"server" yaml:"server" ini:"server"`

	// Source is the file the configuration was read from, empty for defaults
	Source string `toml:"-" yaml:"-" ini:"-"`
}

type AdbConfig struct {
	Path   string `toml:"path" yaml:"path" ini:"path"`
	Serial string `toml:"serial" yaml:"serial" ini:"serial"`
}

// InputConfig paces synthesized gestures.
type InputConfig struct {
	// MoveDuration is used by SmoothMove when the caller gives no duration
	MoveDuration time.Duration `toml:"move_duration" yaml:"move_duration" ini:"move_duration"`
	TickInterval time.Duration `toml:"tick_interval" yaml:"tick_interval" ini:"tick_interval"`
	TapDuration  time.Duration `toml:"tap_duration" yaml:"tap_duration" ini:"tap_duration"`
}

type CaptureConfig struct {
	Attempts   int           `toml:"attempts" yaml:"attempts" ini:"attempts"`
	RetryDelay time.Duration `toml:"retry_delay" yaml:"retry_delay" ini:"retry_delay"`
}

type BringupConfig struct {
	Retries    int           `toml:"retries" yaml:"retries" ini:"retries"`
	RetryDelay time.Duration `toml:"retry_delay" yaml:"retry_delay" ini:"retry_delay"`
}

type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level" ini:"level"`
	Format string `toml:"format" yaml:"format" ini:"format"`
}

type ServerConfig struct {
	Listen string `toml:"listen" yaml:"listen" ini:"listen"`
	CORS   bool   `toml:"cors" yaml:"cors" ini:"cors"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Adb: AdbConfig{
			Path: "adb",
		},
		Input: InputConfig{
			MoveDuration: 500 * time.Millisecond,
			TickInterval: 10 * time.Millisecond,
			TapDuration:  50 * time.Millisecond,
		},
		Capture: CaptureConfig{
			Attempts:   3,
			RetryDelay: 100 * time.Millisecond,
		},
		Bringup: BringupConfig{
			Retries:    5,
			RetryDelay: time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Listen: "localhost:12000",
		},
	}
}

// Validate reports every problem found, joined into one error.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Adb.Path) == "" {
		errs = append(errs, errors.New("adb.path must not be empty"))
	}
	if c.Input.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("input.tick_interval must be positive, got %s", c.Input.TickInterval))
	}
	if c.Input.MoveDuration < 0 {
		errs = append(errs, fmt.Errorf("input.move_duration must not be negative, got %s", c.Input.MoveDuration))
	}
	if c.Input.TapDuration < 0 {
		errs = append(errs, fmt.Errorf("input.tap_duration must not be negative, got %s", c.Input.TapDuration))
	}
	if c.Capture.Attempts < 1 {
		errs = append(errs, fmt.Errorf("capture.attempts must be at least 1, got %d", c.Capture.Attempts))
	}
	if c.Capture.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("capture.retry_delay must not be negative, got %s", c.Capture.RetryDelay))
	}
	if c.Bringup.Retries < 0 {
		errs = append(errs, fmt.Errorf("bringup.retries must not be negative, got %d", c.Bringup.Retries))
	}
	if c.Bringup.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("bringup.retry_delay must not be negative, got %s", c.Bringup.RetryDelay))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format))
	}

	return errors.Join(errs...)
}

// ApplyEnvOverrides overwrites fields from TOUCHBRIDGE_* variables. Values that
// fail to parse are ignored.
func (c *Config) ApplyEnvOverrides() {
	if v, ok := lookupEnv("ADB_PATH"); ok {
		c.Adb.Path = v
	}
	if v, ok := lookupEnv("ADB_SERIAL"); ok {
		c.Adb.Serial = v
	}
	if v, ok := lookupEnv("LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
	if v, ok := lookupEnv("LOG_FORMAT"); ok {
		c.Logging.Format = v
	}
	if v, ok := lookupEnv("SERVER_LISTEN"); ok {
		c.Server.Listen = v
	}
	if d, ok := lookupDuration("MOVE_DURATION"); ok {
		c.Input.MoveDuration = d
	}
	if d, ok := lookupDuration("CAPTURE_RETRY_DELAY"); ok {
		c.Capture.RetryDelay = d
	}
	if d, ok := lookupDuration("BRINGUP_RETRY_DELAY"); ok {
		c.Bringup.RetryDelay = d
	}
	if v, ok := lookupEnv("BRINGUP_RETRIES"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.Bringup.Retries = n
		}
	}
}

func lookupEnv(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func lookupDuration(name string) (time.Duration, bool) {
	v, ok := lookupEnv(name)
	if !ok {
		return 0, false
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, false
	}
	return d, true
}
