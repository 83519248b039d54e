package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/cgs-earth/hydrosync/internal/cache"
	"github.com/cgs-earth/hydrosync/internal/engine"
	"github.com/cgs-earth/hydrosync/internal/frost"
	"github.com/cgs-earth/hydrosync/internal/schedule"
	"github.com/cgs-earth/hydrosync/internal/upstream"
	"github.com/cgs-earth/hydrosync/pkg/config"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: hydrosync <command> [flags]

Commands:
  load     full historical load (fixed epoch through now, or explicit window)
  update   incremental load from the persisted watermark through now
  delete   remove the station collection from the serving API
  publish  register the datastream and observation collections
  watch    run update on a fixed interval
`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	switch os.Args[1] {
	case "load":
		runLoad(cfg, os.Args[2:])
	case "update":
		runUpdate(cfg, os.Args[2:])
	case "delete":
		runDelete(cfg)
	case "publish":
		runPublish(cfg)
	case "watch":
		runWatch(cfg, os.Args[2:])
	default:
		usage()
	}
}

// buildEngine wires the orchestrator from configuration. The returned
// cleanup closes the cache backend and any optional sinks.
func buildEngine(cfg *config.Config, forceRefetch bool) (*engine.Orchestrator, func(), error) {
	httpClient := &http.Client{Timeout: cfg.Upstream.HTTPTimeout}

	var store cache.Store
	var err error
	switch cfg.Cache.Backend {
	case "redis":
		store, err = cache.NewRedisStore(context.Background(), cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
	case "sqlite":
		store, err = cache.NewSQLiteStore(cfg.Cache.Path)
	default:
		err = fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open cache: %w", err)
	}

	responseCache := cache.New(store, httpClient)
	catalog := upstream.NewCatalogClient(cfg.Upstream.CatalogURL, httpClient, cfg.Upstream.CatalogBatchSize)
	fetcher := upstream.NewSeriesFetcher(cfg.Upstream.DownloadURL, responseCache, upstream.DefaultParameters())
	frostClient := frost.NewClient(cfg.Frost.BackendURL, nil)

	watermark, err := engine.NewWatermark(cfg.Sync.WatermarkPath)
	if err != nil {
		responseCache.Close()
		return nil, nil, err
	}

	var journal *engine.Journal
	if cfg.Journal.DSN != "" {
		journal, err = engine.OpenJournal(cfg.Journal.DSN)
		if err != nil {
			responseCache.Close()
			return nil, nil, err
		}
	}

	var events *engine.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		events = engine.NewEventPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	}

	orchestrator := engine.NewOrchestrator(catalog, fetcher, frostClient, watermark, journal, events, engine.Options{
		Stations:          upstream.DefaultStations(),
		Parameters:        upstream.DefaultParameters(),
		StationWorkers:    cfg.Sync.StationWorkers,
		StreamConcurrency: cfg.Sync.StreamConcurrency,
		ForceRefetch:      forceRefetch,
	})

	cleanup := func() {
		responseCache.Close()
		journal.Close()
		events.Close()
	}
	return orchestrator, cleanup, nil
}

// resolveStations expands the --station flag: "*" selects the full built-in
// set, anything else must be a single station number.
func resolveStations(flagValue string, all []int) ([]int, error) {
	if flagValue == "*" {
		return all, nil
	}
	id, err := strconv.Atoi(flagValue)
	if err != nil {
		return nil, fmt.Errorf("invalid station %q: %w", flagValue, err)
	}
	return []int{id}, nil
}

func runLoad(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	station := fs.String("station", "*", "station number, or * for the full set")
	begin := fs.String("begin", "", "window start (M/D/YYYY H:MM:SS AM), default fixed epoch")
	end := fs.String("end", "", "window end, default now")
	refetch := fs.Bool("refetch", false, "bypass cache hits")
	fs.Parse(args)

	orchestrator, cleanup, err := buildEngine(cfg, *refetch)
	if err != nil {
		log.Fatalf("Failed to build engine: %v", err)
	}
	defer cleanup()

	stations, err := resolveStations(*station, orchestrator.Stations())
	if err != nil {
		log.Fatalf("%v", err)
	}

	report, err := orchestrator.Load(contextWithSignals(), stations, *begin, *end)
	if err != nil {
		log.Fatalf("Load run failed: %v", err)
	}
	finishRun(report)
}

func runUpdate(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	station := fs.String("station", "*", "station number, or * for the full set")
	end := fs.String("end", "", "window end, default now")
	refetch := fs.Bool("refetch", false, "bypass cache hits")
	fs.Parse(args)

	orchestrator, cleanup, err := buildEngine(cfg, *refetch)
	if err != nil {
		log.Fatalf("Failed to build engine: %v", err)
	}
	defer cleanup()

	stations, err := resolveStations(*station, orchestrator.Stations())
	if err != nil {
		log.Fatalf("%v", err)
	}

	report, err := orchestrator.Update(contextWithSignals(), stations, *end)
	if err != nil {
		log.Fatalf("Update run failed: %v", err)
	}
	finishRun(report)
}

func runDelete(cfg *config.Config) {
	admin := frost.NewAdminClient(cfg.Frost.AdminURL, nil)
	if err := admin.RemoveCollection(context.Background(), frost.ThingsCollection); err != nil {
		log.Fatalf("Failed to remove collection: %v", err)
	}
	log.Printf("Removed collection %s", frost.ThingsCollection)
}

func runPublish(cfg *config.Config) {
	admin := frost.NewAdminClient(cfg.Frost.AdminURL, nil)
	ctx := context.Background()
	for _, meta := range []frost.CollectionMeta{frost.ThingCollectionMeta, frost.DatastreamCollectionMeta, frost.ObservationCollectionMeta} {
		if err := admin.RegisterCollection(ctx, meta); err != nil {
			log.Fatalf("Failed to register collection %s: %v", meta.ID, err)
		}
		log.Printf("Registered collection %s", meta.ID)
	}
}

func runWatch(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	interval := fs.Duration("interval", cfg.Sync.WatchInterval, "time between update runs")
	station := fs.String("station", "*", "station number, or * for the full set")
	fs.Parse(args)

	orchestrator, cleanup, err := buildEngine(cfg, false)
	if err != nil {
		log.Fatalf("Failed to build engine: %v", err)
	}
	defer cleanup()

	stations, err := resolveStations(*station, orchestrator.Stations())
	if err != nil {
		log.Fatalf("%v", err)
	}

	scheduler := schedule.New(*interval, func(ctx context.Context) error {
		report, err := orchestrator.Update(ctx, stations, "")
		if err != nil {
			return err
		}
		if report.Failed > 0 {
			return fmt.Errorf("%d stations failed", report.Failed)
		}
		return nil
	})
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer scheduler.Stop()

	log.Printf("Watching %d stations every %s", len(stations), *interval)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("Shutting down")
}

// contextWithSignals returns a context cancelled on SIGINT/SIGTERM so
// in-flight fetches stop instead of leaking.
func contextWithSignals() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx
}

func finishRun(report *engine.RunReport) {
	elapsed := report.FinishedAt.Sub(report.StartedAt).Round(time.Second)
	log.Printf("Run %s finished in %s: %d observations, %d failed stations, watermark advanced: %v",
		report.RunID, elapsed, report.Observations, report.Failed, report.WatermarkAdvanced)
	if report.Failed > 0 {
		os.Exit(1)
	}
}
