package config

import (
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the bridge process settings. It is loaded once at startup
// and treated as immutable afterwards.
type Config struct {
	// DevicePort is the serial device path of the controller, e.g. /dev/ttyACM0 or COM3.
	DevicePort string `yaml:"device_port"`
	// BaudRate is the serial transfer rate.
	BaudRate int `yaml:"baud_rate"`
	// HighTempThreshold is the strict upper bound for the high-temperature alert.
	// A nil value means DefaultHighTempThreshold.
	HighTempThreshold *float64 `yaml:"high_temp_threshold,omitempty"`
	// ListenAddress is the HTTP address serving WebSocket subscribers and metrics.
	ListenAddress string `yaml:"listen_addr"`
	// AllowedOrigins lists extra origin patterns accepted for WebSocket upgrades.
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
	// GRPCAddress is the gRPC listen address. Empty disables the gRPC API.
	GRPCAddress string `yaml:"grpc_addr,omitempty"`
	// SubscriberBuffer is the number of messages buffered per subscriber.
	SubscriberBuffer int `yaml:"subscriber_buffer"`
	// NotifyInterval is the minimum interval between two notifications of the same alert kind.
	// Zero disables suppression.
	NotifyInterval time.Duration `yaml:"notify_interval"`
	// LogLevel is the zap level name.
	LogLevel string `yaml:"log_level"`
	// PipelineLogLevel overrides LogLevel for per-line pipeline logs. Empty inherits LogLevel.
	PipelineLogLevel string `yaml:"pipeline_log_level,omitempty"`
}

const (
	// DefaultConfigFilename is the default filename for bridge settings.
	DefaultConfigFilename = "alarm-bridge.yaml"

	// DefaultBaudRate matches the controller firmware.
	DefaultBaudRate = 115200

	// DefaultHighTempThreshold is used when the threshold is not configured.
	DefaultHighTempThreshold = 30.0

	// DefaultListenAddress is the default HTTP listen address.
	DefaultListenAddress = ":3000"

	// DefaultSubscriberBuffer is the default per-subscriber buffer size.
	DefaultSubscriberBuffer = 64

	// DefaultLogLevel is the default log level name.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errDevicePortRequired is returned when the serial device is missing.
	errDevicePortRequired = errors.New("device port must be provided")
	// errInvalidBaudRate is returned for non-positive baud rates.
	errInvalidBaudRate = errors.New("baud rate must be positive")
	// errInvalidSubscriberBuffer is returned for negative buffer sizes.
	errInvalidSubscriberBuffer = errors.New("subscriber buffer must not be negative")
	// errInvalidNotifyInterval is returned for negative notification intervals.
	errInvalidNotifyInterval = errors.New("notify interval must not be negative")
	// errInvalidThreshold is returned for NaN or infinite temperature thresholds.
	errInvalidThreshold = errors.New("high temperature threshold must be a finite number")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills in defaults.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.DevicePort == "" {
		return errDevicePortRequired
	}

	if settings.BaudRate == 0 {
		settings.BaudRate = DefaultBaudRate
	}

	if settings.BaudRate < 0 {
		return errInvalidBaudRate
	}

	switch threshold := settings.HighTempThreshold; {
	case threshold == nil:
		value := DefaultHighTempThreshold
		settings.HighTempThreshold = &value
	case math.IsNaN(*threshold) || math.IsInf(*threshold, 0):
		return errInvalidThreshold
	}

	if settings.ListenAddress == "" {
		settings.ListenAddress = DefaultListenAddress
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}

	if settings.GRPCAddress != "" {
		if _, err := net.ResolveTCPAddr("tcp", settings.GRPCAddress); err != nil {
			return fmt.Errorf("invalid gRPC address: %w", err)
		}
	}

	switch {
	case settings.SubscriberBuffer < 0:
		return errInvalidSubscriberBuffer
	case settings.SubscriberBuffer == 0:
		settings.SubscriberBuffer = DefaultSubscriberBuffer
	}

	if settings.NotifyInterval < 0 {
		return errInvalidNotifyInterval
	}

	if settings.LogLevel == "" {
		settings.LogLevel = DefaultLogLevel
	}

	return nil
}

// Threshold returns the configured high-temperature threshold or the default one.
func (c *Config) Threshold() float64 {
	if c == nil || c.HighTempThreshold == nil {
		return DefaultHighTempThreshold
	}

	return *c.HighTempThreshold
}
