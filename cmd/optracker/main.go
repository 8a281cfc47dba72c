// optracker - OnePlus firmware update tracker
//
// Each invocation runs one tracking cycle: poll the vendor for every
// configured region, persist per-device snapshots, detect new releases,
// rebuild the merged views, announce new releases, and commit the snapshot
// tree. Schedule it with cron or a systemd timer.
//
// Exit status is non-zero when configuration or startup fails, when every
// region fails, or when the commit-and-push step fails.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/optracker/internal/cycle"
	"github.com/nerrad567/optracker/internal/firmware"
	"github.com/nerrad567/optracker/internal/gitsync"
	"github.com/nerrad567/optracker/internal/infrastructure/config"
	"github.com/nerrad567/optracker/internal/infrastructure/database"
	"github.com/nerrad567/optracker/internal/infrastructure/influxdb"
	"github.com/nerrad567/optracker/internal/infrastructure/logging"
	"github.com/nerrad567/optracker/internal/infrastructure/mqtt"
	"github.com/nerrad567/optracker/internal/merge"
	"github.com/nerrad567/optracker/internal/notify"
	"github.com/nerrad567/optracker/internal/release"
	"github.com/nerrad567/optracker/internal/snapshot"
	"github.com/nerrad567/optracker/internal/tracker"
	"github.com/nerrad567/optracker/internal/vendor"
	"github.com/nerrad567/optracker/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// errCycleFailed marks a cycle that ran but must exit non-zero.
var errCycleFailed = errors.New("cycle failed")

func main() {
	// Cancel the cycle on Ctrl+C or SIGTERM; the run log still gets its final row.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting optracker",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err = logging.New(cfg.Logging, version)
	if err != nil {
		return fmt.Errorf("initialising logger: %w", err)
	}
	defer log.Close()
	log.Info("configuration loaded",
		"path", configPath,
		"source", cfg.Tracker.Source,
		"regions", len(cfg.Tracker.Regions),
	)

	source, err := vendor.ParseSource(cfg.Tracker.Source)
	if err != nil {
		return fmt.Errorf("selecting fetch source: %w", err)
	}
	fetcher, err := vendor.New(source, cfg.Tracker, cfg.Vendor)
	if err != nil {
		return fmt.Errorf("creating fetcher: %w", err)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", db.Path())

	store := snapshot.New(cfg.Tracker.WorkDir)
	index := release.NewSQLiteRepository(db.DB)

	detector := release.NewDetector(store, index)
	detector.SetLogger(log)

	merger := merge.New(store)
	merger.SetHistory(index)
	merger.SetLogger(log)

	runs := cycle.NewSQLiteRepository(db.DB)
	logPreviousRun(ctx, runs, log)

	deps := tracker.Deps{
		Fetcher:  fetcher,
		Store:    store,
		Mapper:   firmware.NewMapper(index),
		Detector: detector,
		Merger:   merger,
		Runs:     runs,
	}

	notifier, closeNotifier := newNotifier(cfg, log)
	defer closeNotifier()
	deps.Notifier = notifier

	if cfg.InfluxDB.Enabled {
		influxClient, influxErr := influxdb.Connect(cfg.InfluxDB)
		if influxErr != nil {
			log.Warn("InfluxDB unavailable, metrics disabled", "error", influxErr)
		} else {
			defer func() {
				if closeErr := influxClient.Close(); closeErr != nil {
					log.Error("error closing InfluxDB", "error", closeErr)
				}
			}()
			influxClient.SetOnError(func(err error) {
				log.Error("InfluxDB write error", "error", err)
			})
			deps.Metrics = influxClient
			log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
		}
	}

	if cfg.Git.Enabled {
		syncer := gitsync.New(cfg.Git)
		syncer.SetLogger(log)
		deps.VCS = syncer
	} else {
		log.Info("git sync disabled")
	}

	orch, err := tracker.New(tracker.Options{
		Regions:      regions(cfg),
		Concurrency:  cfg.Tracker.Concurrency,
		FetchTimeout: cfg.Tracker.FetchTimeout,
		Source:       source.String(),
	}, deps)
	if err != nil {
		return fmt.Errorf("creating orchestrator: %w", err)
	}
	orch.SetLogger(log)

	report, err := orch.RunCycle(ctx)
	if report != nil {
		summary := notify.Summarize(report, time.Now())
		if postErr := notifier.PostCycle(context.WithoutCancel(ctx), summary); postErr != nil {
			log.Warn("publishing cycle summary failed", "error", postErr)
		}
	}
	if err != nil {
		return fmt.Errorf("running cycle: %w", err)
	}
	if report.Failed() {
		return fmt.Errorf("%w: %w", errCycleFailed, report.PushErr)
	}

	log.Info("optracker finished", "new_releases", len(report.NewReleases))
	return nil
}

// releaseNotifier announces releases and the outcome of each cycle.
type releaseNotifier interface {
	tracker.Notifier
	PostCycle(ctx context.Context, s notify.CycleSummary) error
}

// newNotifier returns the MQTT notifier when enabled and reachable, and the
// log notifier otherwise. The returned func releases the connection.
func newNotifier(cfg *config.Config, log *logging.Logger) (releaseNotifier, func()) {
	if !cfg.MQTT.Enabled {
		log.Info("MQTT disabled, releases will be logged")
		return notify.NewLogNotifier(log), func() {}
	}

	client, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		log.Warn("MQTT unavailable, releases will be logged", "error", err)
		return notify.NewLogNotifier(log), func() {}
	}
	client.SetLogger(log)
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	n := notify.NewMQTTNotifier(client, client.Topics(), byte(cfg.MQTT.QoS), cfg.GetPublishInterval())
	n.SetLogger(log)
	return n, func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}
}

// logPreviousRun reports how the last cycle ended.
func logPreviousRun(ctx context.Context, runs *cycle.SQLiteRepository, log *logging.Logger) {
	last, err := runs.Last(ctx)
	switch {
	case errors.Is(err, cycle.ErrNotFound):
		log.Info("no previous cycle recorded")
	case err != nil:
		log.Warn("reading previous cycle", "error", err)
	case !last.Finished():
		log.Warn("previous cycle did not finish", "run_id", last.ID, "started_at", last.StartedAt)
	default:
		log.Info("previous cycle",
			"run_id", last.ID,
			"finished_at", last.FinishedAt,
			"new_releases", last.NewReleases,
			"push_status", last.PushStatus,
		)
	}
}

// regions converts configured regions to orchestrator regions.
func regions(cfg *config.Config) []tracker.Region {
	out := make([]tracker.Region, 0, len(cfg.Tracker.Regions))
	for _, r := range cfg.Tracker.Regions {
		out = append(out, tracker.Region{Code: r.Code, Name: cfg.RegionName(r.Code)})
	}
	return out
}

// getConfigPath returns the configuration file path.
// Uses OPTRACKER_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("OPTRACKER_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
