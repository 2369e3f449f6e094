package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Nest bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Nest     NestConfig     `yaml:"nest"`
	HomeKit  HomeKitConfig  `yaml:"homekit"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	API      APIConfig      `yaml:"api"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// NestConfig contains Nest developer API settings.
type NestConfig struct {
	APIURL string `yaml:"api_url"`
	Token  string `yaml:"token"`

	// RequestTimeout bounds a single write, in seconds. The event stream
	// is not subject to it.
	RequestTimeout int `yaml:"request_timeout"`

	// ReconnectDelay is the pause before reopening a dropped stream, in seconds.
	ReconnectDelay int `yaml:"reconnect_delay"`

	// Thermostats limits which thermostats are exposed. Empty exposes
	// every thermostat on the account.
	Thermostats []ThermostatConfig `yaml:"thermostats"`
}

// ThermostatConfig selects one thermostat and optionally renames it.
type ThermostatConfig struct {
	DeviceID string `yaml:"device_id"`
	Name     string `yaml:"name"`
}

// HomeKitConfig contains HomeKit accessory server settings.
type HomeKitConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Pin         string `yaml:"pin"`
	StoragePath string `yaml:"storage_path"`
	BridgeName  string `yaml:"bridge_name"`
	Port        int    `yaml:"port"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains local HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings, in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains rotating log file settings. Used when
// output is "file".
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: NESTBRIDGE_SECTION_KEY
// For example: NESTBRIDGE_NEST_TOKEN, NESTBRIDGE_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Nest: NestConfig{
			APIURL:         "https://developer-api.nest.com",
			RequestTimeout: 10,
			ReconnectDelay: 5,
		},
		HomeKit: HomeKitConfig{
			Enabled:     true,
			Pin:         "03145154",
			StoragePath: "./data/homekit",
			BridgeName:  "Nest",
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "nestbridge",
			},
			QoS:         1,
			TopicPrefix: "nestbridge",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				Path:       "./logs/nestbridge.log",
				MaxSize:    10,
				MaxBackups: 3,
				MaxAge:     28,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: NESTBRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Nest
	if v := os.Getenv("NESTBRIDGE_NEST_TOKEN"); v != "" {
		cfg.Nest.Token = v
	}
	if v := os.Getenv("NESTBRIDGE_NEST_API_URL"); v != "" {
		cfg.Nest.APIURL = v
	}

	// HomeKit
	if v := os.Getenv("NESTBRIDGE_HOMEKIT_PIN"); v != "" {
		cfg.HomeKit.Pin = v
	}

	// MQTT
	if v := os.Getenv("NESTBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("NESTBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("NESTBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("NESTBRIDGE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("NESTBRIDGE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// InfluxDB
	if v := os.Getenv("NESTBRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("NESTBRIDGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Every problem is reported, not just the first.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Nest validation
	if c.Nest.APIURL == "" {
		errs = append(errs, "nest.api_url is required")
	}
	if c.Nest.Token == "" {
		errs = append(errs, "nest.token is required (set NESTBRIDGE_NEST_TOKEN environment variable)")
	}
	if c.Nest.RequestTimeout < 1 {
		errs = append(errs, "nest.request_timeout must be at least 1 second")
	}
	seen := make(map[string]bool, len(c.Nest.Thermostats))
	for i, t := range c.Nest.Thermostats {
		switch {
		case t.DeviceID == "":
			errs = append(errs, fmt.Sprintf("nest.thermostats[%d].device_id is required", i))
		case seen[t.DeviceID]:
			errs = append(errs, fmt.Sprintf("nest.thermostats[%d].device_id %q is listed twice", i, t.DeviceID))
		}
		seen[t.DeviceID] = true
	}

	// HomeKit validation
	if c.HomeKit.Enabled {
		if !validPin(c.HomeKit.Pin) {
			errs = append(errs, "homekit.pin must be 8 digits")
		}
		if c.HomeKit.StoragePath == "" {
			errs = append(errs, "homekit.storage_path is required")
		}
		if c.HomeKit.Port < 0 || c.HomeKit.Port > 65535 {
			errs = append(errs, "homekit.port must be between 0 and 65535")
		}
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required")
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.org and influxdb.bucket are required when influxdb is enabled")
		}
	}

	// Logging validation
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, "logging.level must be debug, info, warn or error")
	}
	switch c.Logging.Output {
	case "stdout", "stderr":
	case "file":
		if c.Logging.File.Path == "" {
			errs = append(errs, "logging.file.path is required when logging.output is file")
		}
	default:
		errs = append(errs, "logging.output must be stdout, stderr or file")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

func validPin(pin string) bool {
	if len(pin) != 8 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ThermostatName returns the configured name for deviceID, or "".
func (c *NestConfig) ThermostatName(deviceID string) string {
	for _, t := range c.Thermostats {
		if t.DeviceID == deviceID {
			return t.Name
		}
	}
	return ""
}

// Selected reports whether deviceID should be exposed.
func (c *NestConfig) Selected(deviceID string) bool {
	if len(c.Thermostats) == 0 {
		return true
	}
	for _, t := range c.Thermostats {
		if t.DeviceID == deviceID {
			return true
		}
	}
	return false
}

// GetRequestTimeout returns the Nest write timeout as a Duration.
func (c *NestConfig) GetRequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// GetReconnectDelay returns the stream reconnect delay as a Duration.
func (c *NestConfig) GetReconnectDelay() time.Duration {
	return time.Duration(c.ReconnectDelay) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *APIConfig) GetReadTimeout() time.Duration {
	return time.Duration(c.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *APIConfig) GetWriteTimeout() time.Duration {
	return time.Duration(c.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *APIConfig) GetIdleTimeout() time.Duration {
	return time.Duration(c.Timeouts.Idle) * time.Second
}
