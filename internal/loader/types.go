// Package loader - Configuration Types
//
// Defines the YAML configuration structure for cardiowatch.
//
//	store:      JSON document path, capacity, seed size
//	sensor:     generation interval and error backoff
//	monitor:    refresh interval, analysis thresholds, timezone
//	anomaly:    isolation forest parameters
//	dashboard:  HTTP listen address and table size
//	telegram:   chat alert destination
//	archive:    S3-compatible upload target for reports and exports
//	logging:    level and output format
package loader

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xtxerr/cardiowatch/config"
)

// =============================================================================
// Root Configuration
// =============================================================================

// Config is the root configuration structure for cardiowatch.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Sensor    SensorConfig    `yaml:"sensor"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Anomaly   AnomalyConfig   `yaml:"anomaly"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// =============================================================================
// Record Store
// =============================================================================

// StoreConfig configures the JSON record store.
type StoreConfig struct {
	// Path is the canonical document path.
	// Default: "mock_db.json"
	Path string `yaml:"path"`

	// Capacity is the history bound written into a newly created document.
	// Default: 200
	Capacity int `yaml:"capacity"`

	// SeedReadings is the number of synthetic readings in a new document.
	// Default: 10
	SeedReadings int `yaml:"seed_readings"`
}

// =============================================================================
// Sensor
// =============================================================================

// SensorConfig configures the reading producer.
type SensorConfig struct {
	// Interval between readings.
	// Default: 2s
	Interval Duration `yaml:"interval"`

	// ErrorBackoff is the wait after a failed append.
	// Default: 5s
	ErrorBackoff Duration `yaml:"error_backoff"`

	// BradycardiaChance is the probability of a low reading.
	// Default: 0.05
	BradycardiaChance float64 `yaml:"bradycardia_chance"`

	// TachycardiaChance is the probability of a high reading.
	// Default: 0.05
	TachycardiaChance float64 `yaml:"tachycardia_chance"`
}

// =============================================================================
// Monitor
// =============================================================================

// MonitorConfig configures the reading consumer.
type MonitorConfig struct {
	RefreshInterval Duration `yaml:"refresh_interval"`
	MinSamples      int      `yaml:"min_samples"`
	TachycardiaBPM  int      `yaml:"tachycardia_bpm"`
	BradycardiaBPM  int      `yaml:"bradycardia_bpm"`

	// NotifyThresholds also sends alerts for tachycardia and bradycardia,
	// not only for model anomalies.
	// Default: false
	NotifyThresholds bool `yaml:"notify_thresholds"`

	// Timezone is an IANA name used to render reading times.
	// Default: "America/Sao_Paulo"
	Timezone string `yaml:"timezone"`

	// AlertLogSize is the number of notification attempts kept in memory.
	AlertLogSize int `yaml:"alert_log_size"`
}

// Location resolves Timezone, falling back to UTC.
func (m MonitorConfig) Location() *time.Location {
	if m.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AnomalyConfig configures the isolation forest.
type AnomalyConfig struct {
	Trees         int     `yaml:"trees"`
	Subsample     int     `yaml:"subsample"`
	Contamination float64 `yaml:"contamination"`
	Seed          uint64  `yaml:"seed"`
}

// =============================================================================
// Outer surfaces
// =============================================================================

// DashboardConfig configures the web dashboard.
type DashboardConfig struct {
	// Listen is the HTTP listen address.
	// Format: "host:port" or ":port"
	// Default: ":8501"
	Listen string `yaml:"listen"`

	// TableRows is the number of recent readings listed.
	// Default: 10
	TableRows int `yaml:"table_rows"`

	// ShutdownTimeout bounds the graceful shutdown.
	// Default: 10s
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// TelegramConfig configures chat alerts. Alerts are disabled unless both
// Token and ChatID are set.
type TelegramConfig struct {
	Enabled bool     `yaml:"enabled"`
	APIURL  string   `yaml:"api_url"`
	Token   string   `yaml:"token"`
	ChatID  string   `yaml:"chat_id"`
	Timeout Duration `yaml:"timeout"`
}

// Configured reports whether alerts can be sent.
func (t TelegramConfig) Configured() bool {
	return t.Enabled && t.Token != "" && t.ChatID != ""
}

// ArchiveConfig configures uploads to S3-compatible object storage.
type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
	UseSSL    bool   `yaml:"use_ssl"`

	// Compression is the Parquet codec: "zstd", "snappy", "gzip" or "none".
	Compression string `yaml:"compression"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	// Default: "info"
	Level string `yaml:"level"`

	// JSON switches to JSON log lines.
	// Default: false
	JSON bool `yaml:"json"`
}

// =============================================================================
// Defaults
// =============================================================================

// DefaultConfig returns a configuration with every default applied.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Path:         config.DefaultStorePath,
			Capacity:     config.DefaultCapacity,
			SeedReadings: config.DefaultSeedReadings,
		},

		Sensor: SensorConfig{
			Interval:          Duration(config.DefaultSensorInterval),
			ErrorBackoff:      Duration(config.DefaultSensorErrorBackoff),
			BradycardiaChance: config.DefaultBradycardiaChance,
			TachycardiaChance: config.DefaultTachycardiaChance,
		},

		Monitor: MonitorConfig{
			RefreshInterval: Duration(config.DefaultRefreshInterval),
			MinSamples:      config.DefaultMinSamples,
			TachycardiaBPM:  config.DefaultTachycardiaBPM,
			BradycardiaBPM:  config.DefaultBradycardiaBPM,
			Timezone:        config.DefaultTimezone,
			AlertLogSize:    config.DefaultAlertLogSize,
		},

		Anomaly: AnomalyConfig{
			Trees:         config.DefaultForestTrees,
			Subsample:     config.DefaultForestSubsample,
			Contamination: config.DefaultContamination,
			Seed:          config.DefaultForestSeed,
		},

		Dashboard: DashboardConfig{
			Listen:          config.DefaultListenAddress,
			TableRows:       config.DefaultTableRows,
			ShutdownTimeout: Duration(config.DefaultShutdownTimeout),
		},

		Telegram: TelegramConfig{
			Enabled: true,
			APIURL:  config.DefaultTelegramAPI,
			Timeout: Duration(config.DefaultTelegramTimeout),
		},

		Archive: ArchiveConfig{
			Prefix:      config.DefaultArchivePrefix,
			UseSSL:      true,
			Compression: config.DefaultParquetCompression,
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// Helper Types
// =============================================================================

// Duration is a time.Duration that can be unmarshaled from YAML.
// Accepts "2s", "500ms", "1m" or a plain integer number of seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler. An integer scalar is read as
// seconds, anything else goes through time.ParseDuration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode && value.Tag == "!!int" {
		var i int
		if err := value.Decode(&i); err != nil {
			return err
		}
		*d = Duration(time.Duration(i) * time.Second)
		return nil
	}

	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration %q: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Duration returns the time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}
