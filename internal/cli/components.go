package cli

import (
	"github.com/xtxerr/cardiowatch/internal/anomaly"
	"github.com/xtxerr/cardiowatch/internal/archive"
	"github.com/xtxerr/cardiowatch/internal/dashboard"
	"github.com/xtxerr/cardiowatch/internal/errors"
	"github.com/xtxerr/cardiowatch/internal/export"
	"github.com/xtxerr/cardiowatch/internal/loader"
	"github.com/xtxerr/cardiowatch/internal/monitor"
	"github.com/xtxerr/cardiowatch/internal/notify"
	"github.com/xtxerr/cardiowatch/internal/sensor"
	"github.com/xtxerr/cardiowatch/internal/store"
)

// Builders that turn the loaded configuration into components.

func openStore(cfg *loader.Config) (*store.Store, error) {
	st := store.New(cfg.Store.Path,
		store.WithDefaultCapacity(cfg.Store.Capacity),
		store.WithSeedReadings(cfg.Store.SeedReadings),
	)
	if err := st.Initialize(cfg.Store.Capacity); err != nil {
		return nil, errors.Wrapf(err, "initialize %s", cfg.Store.Path)
	}
	return st, nil
}

func newSensor(cfg *loader.Config, st sensor.Appender) *sensor.Sensor {
	return sensor.New(sensor.Config{
		Interval:          cfg.Sensor.Interval.Duration(),
		ErrorBackoff:      cfg.Sensor.ErrorBackoff.Duration(),
		BradycardiaChance: cfg.Sensor.BradycardiaChance,
		TachycardiaChance: cfg.Sensor.TachycardiaChance,
	}, st)
}

func newDetector(cfg *loader.Config) *anomaly.Detector {
	return anomaly.New(anomaly.Config{
		Trees:         cfg.Anomaly.Trees,
		Subsample:     cfg.Anomaly.Subsample,
		Contamination: cfg.Anomaly.Contamination,
		Seed:          cfg.Anomaly.Seed,
		MinSamples:    cfg.Monitor.MinSamples,
	})
}

func newNotifier(cfg *loader.Config) notify.Notifier {
	if !cfg.Telegram.Enabled {
		return notify.Nop{}
	}
	return notify.New(notify.TelegramConfig{
		APIURL:  cfg.Telegram.APIURL,
		Token:   cfg.Telegram.Token,
		ChatID:  cfg.Telegram.ChatID,
		Timeout: cfg.Telegram.Timeout.Duration(),
	})
}

func monitorConfig(cfg *loader.Config) monitor.Config {
	return monitor.Config{
		RefreshInterval:  cfg.Monitor.RefreshInterval.Duration(),
		MinSamples:       cfg.Monitor.MinSamples,
		TachycardiaBPM:   cfg.Monitor.TachycardiaBPM,
		BradycardiaBPM:   cfg.Monitor.BradycardiaBPM,
		NotifyThresholds: cfg.Monitor.NotifyThresholds,
		Location:         cfg.Monitor.Location(),
		AlertLogSize:     cfg.Monitor.AlertLogSize,
	}
}

func newMonitor(cfg *loader.Config, st monitor.Source) *monitor.Monitor {
	return monitor.New(monitorConfig(cfg), st, newDetector(cfg), newNotifier(cfg))
}

func exportOptions(cfg *loader.Config) export.Options {
	return export.Options{
		Compression: export.ParseCompressionType(cfg.Archive.Compression),
		Location:    cfg.Monitor.Location(),
	}
}

func newDashboard(cfg *loader.Config, st dashboard.ProfileStore, mon dashboard.Analyzer) *dashboard.Server {
	return dashboard.New(dashboard.Config{
		Listen:          cfg.Dashboard.Listen,
		TableRows:       cfg.Dashboard.TableRows,
		MinSamples:      cfg.Monitor.MinSamples,
		RefreshInterval: cfg.Monitor.RefreshInterval.Duration(),
		ShutdownTimeout: cfg.Dashboard.ShutdownTimeout.Duration(),
		Export:          exportOptions(cfg),
	}, st, mon)
}

// newArchive returns ErrNotConfigured unless the archive section is enabled.
func newArchive(cfg *loader.Config) (*archive.Client, error) {
	if !cfg.Archive.Enabled {
		return nil, errors.Wrap(errors.ErrNotConfigured, "archive disabled; set archive.enabled")
	}
	return archive.New(archive.Config{
		Endpoint:  cfg.Archive.Endpoint,
		AccessKey: cfg.Archive.AccessKey,
		SecretKey: cfg.Archive.SecretKey,
		Bucket:    cfg.Archive.Bucket,
		Region:    cfg.Archive.Region,
		Prefix:    cfg.Archive.Prefix,
		UseSSL:    cfg.Archive.UseSSL,
	})
}
