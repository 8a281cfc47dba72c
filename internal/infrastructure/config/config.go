package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the tracker.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Tracker  TrackerConfig  `yaml:"tracker"`
	Vendor   VendorConfig   `yaml:"vendor"`
	Database DatabaseConfig `yaml:"database"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Git      GitConfig      `yaml:"git"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// TrackerConfig controls a single tracking cycle.
type TrackerConfig struct {
	// WorkDir is the root of the snapshot tree (per-region YAML files).
	WorkDir string `yaml:"work_dir"`

	// Source selects the fetch implementation: "official" or "replay".
	Source string `yaml:"source"`

	// ReplayDir holds saved vendor responses when Source is "replay".
	ReplayDir string `yaml:"replay_dir,omitempty"`

	// Concurrency bounds the number of devices fetched at once within a region.
	Concurrency int `yaml:"concurrency"`

	// FetchTimeout is the per-request deadline for vendor calls.
	FetchTimeout time.Duration `yaml:"fetch_timeout"`

	// Regions are processed in the order listed.
	Regions []RegionConfig `yaml:"regions"`
}

// RegionConfig maps a vendor store code to a display name.
type RegionConfig struct {
	Code string `yaml:"code"`
	Name string `yaml:"name"`
}

// VendorConfig contains OnePlus API endpoint settings.
type VendorConfig struct {
	BaseURL   string `yaml:"base_url"`
	CNBaseURL string `yaml:"cn_base_url"`
	UserAgent string `yaml:"user_agent"`
	Timeout   int    `yaml:"timeout"` // seconds
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`

	// TopicPrefix is prepended to every published topic.
	TopicPrefix string `yaml:"topic_prefix"`

	// PublishInterval paces release notifications (milliseconds).
	PublishInterval int `yaml:"publish_interval"`
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

// GitConfig controls the commit-and-push step at the end of a cycle.
type GitConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Dir         string `yaml:"dir"`
	Remote      string `yaml:"remote"`
	Branch      string `yaml:"branch"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`

	// Token is injected into https remotes. Prefer OPTRACKER_GIT_TOKEN.
	Token string `yaml:"token"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
// Used when Output is "file".
type FileLoggingConfig struct {
	Path string `yaml:"path"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: OPTRACKER_SECTION_KEY
// For example: OPTRACKER_DATABASE_PATH, OPTRACKER_GIT_TOKEN
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
		Tracker: TrackerConfig{
			WorkDir:      "./data",
			Source:       "official",
			Concurrency:  4,
			FetchTimeout: 30 * time.Second,
		},
		Vendor: VendorConfig{
			BaseURL:   "https://www.oneplus.com",
			CNBaseURL: "https://store.oneplus.com",
			UserAgent: "optracker/1.0",
			Timeout:   30,
		},
		Database: DatabaseConfig{
			Path:        "./data/optracker.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "optracker",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			TopicPrefix:     "optracker",
			PublishInterval: 5000,
		},
		Git: GitConfig{
			Dir:         ".",
			Remote:      "origin",
			Branch:      "master",
			AuthorName:  "CI",
			AuthorEmail: "CI@example.com",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: OPTRACKER_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OPTRACKER_WORK_DIR"); v != "" {
		cfg.Tracker.WorkDir = v
	}
	if v := os.Getenv("OPTRACKER_SOURCE"); v != "" {
		cfg.Tracker.Source = v
	}
	if v := os.Getenv("OPTRACKER_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Tracker.Concurrency = n
		}
	}

	if v := os.Getenv("OPTRACKER_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("OPTRACKER_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("OPTRACKER_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("OPTRACKER_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("OPTRACKER_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Never keep push credentials in the config file.
	if v := os.Getenv("OPTRACKER_GIT_TOKEN"); v != "" {
		cfg.Git.Token = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Tracker.WorkDir == "" {
		errs = append(errs, "tracker.work_dir is required")
	}
	switch c.Tracker.Source {
	case "official":
	case "replay":
		if c.Tracker.ReplayDir == "" {
			errs = append(errs, "tracker.replay_dir is required when tracker.source is replay")
		}
	default:
		errs = append(errs, fmt.Sprintf("tracker.source %q is not one of official, replay", c.Tracker.Source))
	}
	if c.Tracker.Concurrency < 1 {
		errs = append(errs, "tracker.concurrency must be at least 1")
	}
	if c.Tracker.FetchTimeout <= 0 {
		errs = append(errs, "tracker.fetch_timeout must be positive")
	}
	if len(c.Tracker.Regions) == 0 {
		errs = append(errs, "tracker.regions must list at least one region")
	}
	seen := make(map[string]bool, len(c.Tracker.Regions))
	for i, r := range c.Tracker.Regions {
		if r.Code == "" {
			errs = append(errs, fmt.Sprintf("tracker.regions[%d].code is required", i))
			continue
		}
		if seen[r.Code] {
			errs = append(errs, fmt.Sprintf("tracker.regions[%d].code %q is duplicated", i, r.Code))
		}
		seen[r.Code] = true
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required when mqtt is enabled")
	}

	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when influxdb is enabled")
	}

	if c.Git.Enabled && c.Git.Branch == "" {
		errs = append(errs, "git.branch is required when git is enabled")
	}

	if strings.EqualFold(c.Logging.Output, "file") && c.Logging.File.Path == "" {
		errs = append(errs, "logging.file.path is required when logging.output is file")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// RegionName returns the display name for a region code, falling back to the code.
func (c *Config) RegionName(code string) string {
	for _, r := range c.Tracker.Regions {
		if r.Code == code && r.Name != "" {
			return r.Name
		}
	}
	return code
}

// GetVendorTimeout returns the vendor HTTP client timeout as a Duration.
func (c *Config) GetVendorTimeout() time.Duration {
	return time.Duration(c.Vendor.Timeout) * time.Second
}

// GetPublishInterval returns the MQTT notification pacing as a Duration.
func (c *Config) GetPublishInterval() time.Duration {
	return time.Duration(c.MQTT.PublishInterval) * time.Millisecond
}
