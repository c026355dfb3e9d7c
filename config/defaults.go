// Package config provides configuration defaults for cardiowatch.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via cardiowatch.yaml, environment
// variables referenced from it, or command line flags.
package config

import "time"

// =============================================================================
// Record Store Defaults
// =============================================================================

const (
	// DefaultStorePath is the JSON document shared by sensor and dashboard.
	// Override via config: store.path or --db
	DefaultStorePath = "mock_db.json"

	// DefaultCapacity bounds the number of readings kept in the document.
	// Applied only when the file is created; an existing file keeps its own.
	// Override via config: store.capacity
	DefaultCapacity = 200

	// DefaultSeedReadings is the number of synthetic readings written into a
	// freshly created document so the dashboard never starts empty.
	// Override via config: store.seed_readings
	DefaultSeedReadings = 10

	// DefaultSeedMinBPM and DefaultSeedMaxBPM bound the seeded values.
	DefaultSeedMinBPM = 65
	DefaultSeedMaxBPM = 80
)

// =============================================================================
// Sensor Defaults
// =============================================================================

const (
	// DefaultSensorInterval is the time between two generated readings.
	// Override via config: sensor.interval
	DefaultSensorInterval = 2 * time.Second

	// DefaultSensorErrorBackoff is the wait after a failed append.
	// Override via config: sensor.error_backoff
	DefaultSensorErrorBackoff = 5 * time.Second

	// DefaultBradycardiaChance and DefaultTachycardiaChance are the
	// probabilities of generating an out-of-range reading.
	DefaultBradycardiaChance = 0.05
	DefaultTachycardiaChance = 0.05
)

// =============================================================================
// Monitor Defaults
// =============================================================================

const (
	// DefaultRefreshInterval is how often the monitor re-reads the store.
	// Override via config: monitor.refresh_interval
	DefaultRefreshInterval = 2 * time.Second

	// DefaultMinSamples is the history length required before analysis.
	// Override via config: monitor.min_samples
	DefaultMinSamples = 20

	// DefaultTachycardiaBPM and DefaultBradycardiaBPM are the thresholds of
	// the level-1 statuses.
	DefaultTachycardiaBPM = 100
	DefaultBradycardiaBPM = 60

	// DefaultTimezone is used to render reading times.
	// Override via config: monitor.timezone
	DefaultTimezone = "America/Sao_Paulo"

	// DefaultAlertLogSize is the number of notification attempts kept.
	DefaultAlertLogSize = 50
)

// =============================================================================
// Anomaly Detection Defaults
// =============================================================================

const (
	// DefaultForestTrees is the number of isolation trees.
	DefaultForestTrees = 100

	// DefaultForestSubsample caps the number of values each tree is built on.
	DefaultForestSubsample = 256

	// DefaultContamination is the expected share of anomalous readings.
	// Range: (0, 0.5]
	DefaultContamination = 0.1

	// DefaultForestSeed keeps the classification deterministic between refreshes.
	DefaultForestSeed = 42
)

// =============================================================================
// Dashboard Defaults
// =============================================================================

const (
	// DefaultListenAddress is the dashboard listen address.
	// Override via config: dashboard.listen or --listen
	DefaultListenAddress = ":8501"

	// DefaultTableRows is the number of recent readings in the table.
	DefaultTableRows = 10

	// DefaultShutdownTimeout bounds the graceful HTTP shutdown.
	DefaultShutdownTimeout = 10 * time.Second
)

// =============================================================================
// Notification Defaults
// =============================================================================

const (
	// DefaultTelegramAPI is the Bot API base URL.
	// Override via config: telegram.api_url
	DefaultTelegramAPI = "https://api.telegram.org"

	// DefaultTelegramTimeout bounds a single sendMessage call.
	DefaultTelegramTimeout = 10 * time.Second
)

// =============================================================================
// Archive Defaults
// =============================================================================

const (
	// DefaultArchivePrefix is prepended to uploaded object names.
	DefaultArchivePrefix = "cardiowatch/"

	// DefaultParquetCompression is the codec of exported Parquet files.
	DefaultParquetCompression = "zstd"
)
