// Package loader handles configuration file loading and validation.
//
// This package is responsible for:
//   - Loading YAML configuration files
//   - Expanding environment variables (${TELEGRAM_TOKEN} and friends)
//   - Falling back to defaults when no file exists
//   - Validating the merged result
package loader

import (
	"fmt"
	"os"

	"github.com/xtxerr/cardiowatch/internal/errors"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Load
// =============================================================================

// Load loads configuration from a YAML file on top of DefaultConfig.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// LoadOrDefault is Load, except that an empty path or a missing file yields
// the defaults.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return cfg, err
}

// Parse decodes YAML bytes on top of DefaultConfig.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// Validate
// =============================================================================

// Validate validates the configuration.
func Validate(cfg *Config) error {
	errs := errors.NewValidationErrors()

	if cfg.Store.Path == "" {
		errs.AddMissing("store.path")
	}
	if cfg.Store.Capacity <= 0 {
		errs.AddField("store.capacity", "must be positive")
	}
	if cfg.Store.SeedReadings < 0 {
		errs.AddField("store.seed_readings", "cannot be negative")
	}

	if cfg.Sensor.Interval.Duration() <= 0 {
		errs.AddField("sensor.interval", "must be positive")
	}
	if cfg.Sensor.ErrorBackoff.Duration() < 0 {
		errs.AddField("sensor.error_backoff", "cannot be negative")
	}
	if p := cfg.Sensor.BradycardiaChance + cfg.Sensor.TachycardiaChance; cfg.Sensor.BradycardiaChance < 0 ||
		cfg.Sensor.TachycardiaChance < 0 || p > 1 {
		errs.AddField("sensor", "chances must be non-negative and sum to at most 1")
	}

	if cfg.Monitor.RefreshInterval.Duration() <= 0 {
		errs.AddField("monitor.refresh_interval", "must be positive")
	}
	if cfg.Monitor.MinSamples < 1 {
		errs.AddField("monitor.min_samples", "must be at least 1")
	}
	if cfg.Monitor.BradycardiaBPM >= cfg.Monitor.TachycardiaBPM {
		errs.AddField("monitor.bradycardia_bpm", "must be below monitor.tachycardia_bpm")
	}
	if cfg.Monitor.AlertLogSize < 1 {
		errs.AddField("monitor.alert_log_size", "must be at least 1")
	}

	if cfg.Anomaly.Trees < 1 {
		errs.AddField("anomaly.trees", "must be at least 1")
	}
	if cfg.Anomaly.Subsample < 2 {
		errs.AddField("anomaly.subsample", "must be at least 2")
	}
	if c := cfg.Anomaly.Contamination; c <= 0 || c > 0.5 {
		errs.AddField("anomaly.contamination", "must be in (0, 0.5]")
	}

	if cfg.Dashboard.Listen == "" {
		errs.AddMissing("dashboard.listen")
	}
	if cfg.Dashboard.TableRows < 1 {
		errs.AddField("dashboard.table_rows", "must be at least 1")
	}

	if cfg.Telegram.Enabled && (cfg.Telegram.Token != "") != (cfg.Telegram.ChatID != "") {
		errs.AddField("telegram", "token and chat_id must be set together")
	}

	if cfg.Archive.Enabled {
		if cfg.Archive.Endpoint == "" {
			errs.AddMissing("archive.endpoint")
		}
		if cfg.Archive.Bucket == "" {
			errs.AddMissing("archive.bucket")
		}
	}
	switch cfg.Archive.Compression {
	case "", "none", "zstd", "snappy", "gzip":
	default:
		errs.AddField("archive.compression", fmt.Sprintf("unknown codec %q", cfg.Archive.Compression))
	}

	return errs.Err()
}
