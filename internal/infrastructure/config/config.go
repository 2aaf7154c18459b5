package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/vme-thermal/internal/thermal"
)

// Config is the root configuration structure for VME Thermal.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Crate     CrateConfig     `yaml:"crate"`
	Sensors   []SensorConfig  `yaml:"sensors"`
	Polling   PollingConfig   `yaml:"polling"`
	Report    ReportConfig    `yaml:"report"`
	ADC       ADCConfig       `yaml:"adc"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// CrateConfig identifies the monitored VME crate.
type CrateConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// SensorConfig describes a sensor registered at startup.
type SensorConfig struct {
	Address uint16 `yaml:"address"`
	// Kind is "voltage_0_10v" or "current_4_20ma".
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`
	// ScalingFactor defaults to 1 when omitted.
	ScalingFactor *float64 `yaml:"scaling_factor"`
	Offset        float64  `yaml:"offset"`
}

// PollingConfig controls the measurement loop.
type PollingConfig struct {
	// Interval between report cycles, in milliseconds.
	Interval int `yaml:"interval"`
	// MaxCycles stops the loop after that many cycles. 0 means run until shutdown.
	MaxCycles int `yaml:"max_cycles"`
}

// ReportConfig contains YAML report output settings.
type ReportConfig struct {
	// Path is the report file. Reports are appended; the file is rotated
	// when it reaches MaxSize megabytes.
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	Compress   bool   `yaml:"compress"`
	// Stdout writes reports to standard output instead of Path.
	Stdout bool `yaml:"stdout"`
}

// ADCConfig contains settings of the simulated ADC board.
type ADCConfig struct {
	Seed       uint64 `yaml:"seed"`
	Fixed      bool   `yaml:"fixed"`
	FixedValue int    `yaml:"fixed_value"`
}

// DatabaseConfig contains SQLite report archive settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
	// Retain is the number of report batches kept in the archive. 0 keeps all.
	Retain int `yaml:"retain"`
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

// APIConfig contains HTTP API server settings.
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

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings, used when output is "file".
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT token settings.
type JWTConfig struct {
	Secret string `yaml:"secret"`
	// TokenTTL is the lifetime of operator tokens, in minutes.
	TokenTTL int `yaml:"token_ttl"`
}

// minJWTSecretLength is the shortest accepted HMAC secret.
const minJWTSecretLength = 32

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: VMETHERMAL_SECTION_KEY
// For example: VMETHERMAL_REPORT_PATH, VMETHERMAL_MQTT_HOST
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
		Crate: CrateConfig{
			ID:   "crate-001",
			Name: "VME crate",
		},
		Polling: PollingConfig{
			Interval: 60000,
		},
		Report: ReportConfig{
			Path:       "report.yaml",
			MaxSize:    100,
			MaxBackups: 5,
		},
		Database: DatabaseConfig{
			Path:        "./data/vmethermal.db",
			WALMode:     true,
			BusyTimeout: 5,
			Retain:      10000,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "vmethermal",
			},
			QoS:         1,
			TopicPrefix: "vmethermal",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				Path:       "./logs/vmethermal.log",
				MaxSize:    50,
				MaxBackups: 3,
				MaxAge:     28,
			},
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				TokenTTL: 60,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: VMETHERMAL_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VMETHERMAL_CRATE_ID"); v != "" {
		cfg.Crate.ID = v
	}

	// Report
	if v := os.Getenv("VMETHERMAL_REPORT_PATH"); v != "" {
		cfg.Report.Path = v
	}
	if v := os.Getenv("VMETHERMAL_POLLING_INTERVAL"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Polling.Interval = ms
		}
	}

	// Database
	if v := os.Getenv("VMETHERMAL_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("VMETHERMAL_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("VMETHERMAL_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("VMETHERMAL_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("VMETHERMAL_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Security - JWT secret (always override in production)
	if v := os.Getenv("VMETHERMAL_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// Validate checks the configuration for errors.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []string

	if c.Crate.ID == "" {
		errs = append(errs, "crate.id is required")
	}

	seen := make(map[uint16]bool, len(c.Sensors))
	for i, s := range c.Sensors {
		if s.Address >= thermal.MaxAddresses {
			errs = append(errs, fmt.Sprintf("sensors[%d].address must be below %d", i, thermal.MaxAddresses))
		}
		if seen[s.Address] {
			errs = append(errs, fmt.Sprintf("sensors[%d].address %d is registered twice", i, s.Address))
		}
		seen[s.Address] = true
		if _, err := thermal.ParseKind(s.Kind); err != nil {
			errs = append(errs, fmt.Sprintf("sensors[%d].kind %q must be voltage_0_10v or current_4_20ma", i, s.Kind))
		}
	}

	if c.Polling.Interval <= 0 {
		errs = append(errs, "polling.interval must be positive")
	}
	if c.Polling.MaxCycles < 0 {
		errs = append(errs, "polling.max_cycles cannot be negative")
	}

	if !c.Report.Stdout && c.Report.Path == "" {
		errs = append(errs, "report.path is required unless report.stdout is set")
	}

	if c.ADC.Fixed && (c.ADC.FixedValue < 0 || c.ADC.FixedValue > thermal.MaxRaw) {
		errs = append(errs, fmt.Sprintf("adc.fixed_value must be between 0 and %d", thermal.MaxRaw))
	}

	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required")
	}

	if c.API.Enabled {
		if c.API.Port < 1 || c.API.Port > 65535 {
			errs = append(errs, "api.port must be between 1 and 65535")
		}

		// The API can recalibrate and remove sensors; it must not run with
		// a forgeable token secret.
		if c.Security.JWT.Secret == "" {
			errs = append(errs, "security.jwt.secret is required (set VMETHERMAL_JWT_SECRET environment variable)")
		} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
			errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetPollingInterval returns the polling interval as a Duration.
func (c *Config) GetPollingInterval() time.Duration {
	return time.Duration(c.Polling.Interval) * time.Millisecond
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetTokenTTL returns the operator token lifetime as a Duration.
func (c *Config) GetTokenTTL() time.Duration {
	return time.Duration(c.Security.JWT.TokenTTL) * time.Minute
}
