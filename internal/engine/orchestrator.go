// Package engine drives the incremental synchronization run: station
// discovery, concurrent per-stream fetching, observation assembly, batched
// upload, and watermark advancement.
package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cgs-earth/hydrosync/internal/frost"
	"github.com/cgs-earth/hydrosync/internal/sta"
	"github.com/cgs-earth/hydrosync/internal/upstream"
)

// RunKind distinguishes a full historical load from an incremental update.
type RunKind string

const (
	RunKindLoad   RunKind = "load"
	RunKindUpdate RunKind = "update"
)

// Options tunes a run. The station list and parameter table are injected
// here once at construction and treated as immutable afterwards.
type Options struct {
	Stations   []int
	Parameters []upstream.Parameter

	// StationWorkers bounds how many stations are synchronized at once;
	// StreamConcurrency bounds parallel series fetches within one station.
	// Both default to 4: the upstream service is a shared state resource
	// and unbounded fan-out has been observed to overwhelm it.
	StationWorkers    int
	StreamConcurrency int

	// ForceRefetch bypasses cache hits, refreshing every entry.
	ForceRefetch bool
}

// StationResult is the outcome of synchronizing one station.
type StationResult struct {
	StationNbr   string
	Datastreams  int
	Observations int
	Err          error
}

// RunReport summarizes a completed run.
type RunReport struct {
	RunID             string
	Kind              RunKind
	DataStart         string
	DataEnd           string
	Results           []StationResult
	Failed            int
	Observations      int
	StartedAt         time.Time
	FinishedAt        time.Time
	WatermarkAdvanced bool
}

// Orchestrator coordinates one synchronization run at a time. Running two
// orchestrators against the same cache or watermark concurrently is not
// supported.
type Orchestrator struct {
	catalog   *upstream.CatalogClient
	fetcher   *upstream.SeriesFetcher
	store     *frost.Client
	watermark *Watermark
	journal   *Journal
	events    *EventPublisher
	opts      Options
}

// NewOrchestrator wires the engine together. journal and events may be nil.
func NewOrchestrator(
	catalog *upstream.CatalogClient,
	fetcher *upstream.SeriesFetcher,
	store *frost.Client,
	watermark *Watermark,
	journal *Journal,
	events *EventPublisher,
	opts Options,
) *Orchestrator {
	if opts.StationWorkers <= 0 {
		opts.StationWorkers = 4
	}
	if opts.StreamConcurrency <= 0 {
		opts.StreamConcurrency = 4
	}
	opts.Stations = append([]int(nil), opts.Stations...)
	opts.Parameters = append([]upstream.Parameter(nil), opts.Parameters...)

	return &Orchestrator{
		catalog:   catalog,
		fetcher:   fetcher,
		store:     store,
		watermark: watermark,
		journal:   journal,
		events:    events,
		opts:      opts,
	}
}

// Stations returns the configured station set.
func (o *Orchestrator) Stations() []int {
	return append([]int(nil), o.opts.Stations...)
}

// Load runs a full synchronization. An empty begin defaults to the fixed
// epoch; an empty end defaults to "now" at invocation time, pinned once so
// every station fetches the same window.
func (o *Orchestrator) Load(ctx context.Context, stations []int, begin, end string) (*RunReport, error) {
	if begin == "" {
		begin = upstream.StartOfRecord
	}
	if end == "" {
		end = upstream.ToUpstreamTime(time.Now())
	}
	return o.run(ctx, RunKindLoad, stations, begin, end)
}

// Update runs an incremental synchronization starting exactly at the
// previously persisted watermark end. An empty end defaults to "now".
func (o *Orchestrator) Update(ctx context.Context, stations []int, end string) (*RunReport, error) {
	_, prevEnd, err := o.watermark.Range()
	if err != nil {
		return nil, err
	}
	if prevEnd == "" {
		return nil, fmt.Errorf("no previous run watermark; run a load first")
	}
	if end == "" {
		end = upstream.ToUpstreamTime(time.Now())
	}
	return o.run(ctx, RunKindUpdate, stations, prevEnd, end)
}

// run executes DISCOVER, FETCH_PER_STATION, UPLOAD_PER_STATION, and (when
// every station succeeded) ADVANCE_WATERMARK.
//
// Upload-failure policy: a failing station is logged, journaled, and
// skipped; the run continues with the remaining stations. The watermark only
// advances on a fully clean run, so a rerun of the same window picks the
// skipped stations back up.
func (o *Orchestrator) run(ctx context.Context, kind RunKind, stations []int, start, end string) (*RunReport, error) {
	if err := upstream.ValidateUpstreamTime(start); err != nil {
		return nil, err
	}
	if err := upstream.ValidateUpstreamTime(end); err != nil {
		return nil, err
	}

	report := &RunReport{
		RunID:     uuid.New().String(),
		Kind:      kind,
		DataStart: start,
		DataEnd:   end,
		StartedAt: time.Now().UTC(),
	}
	log.Printf("run %s (%s): window %q .. %q, %d stations", report.RunID, kind, start, end, len(stations))

	if err := o.journal.RecordRunStart(ctx, report.RunID, string(kind), start, end, report.StartedAt); err != nil {
		log.Printf("run %s: journal start failed: %v", report.RunID, err)
	}

	records, err := o.catalog.FetchStations(ctx, stations)
	if err != nil {
		return nil, fmt.Errorf("discover stations: %w", err)
	}

	jobs := make(chan upstream.StationRecord)
	results := make(chan StationResult, len(records))

	var wg sync.WaitGroup
	for i := 0; i < o.opts.StationWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for record := range jobs {
				results <- o.syncStation(ctx, record, start, end)
			}
		}()
	}

	for _, record := range records {
		jobs <- record
	}
	close(jobs)
	wg.Wait()
	close(results)

	for result := range results {
		if result.Err != nil {
			report.Failed++
			log.Printf("run %s: station %s failed, skipping: %v", report.RunID, result.StationNbr, result.Err)
		} else {
			report.Observations += result.Observations
		}
		if err := o.journal.RecordStationResult(ctx, report.RunID, result.StationNbr, result.Datastreams, result.Observations, result.Err); err != nil {
			log.Printf("run %s: journal station %s failed: %v", report.RunID, result.StationNbr, err)
		}
		report.Results = append(report.Results, result)
	}
	sort.Slice(report.Results, func(i, j int) bool {
		return report.Results[i].StationNbr < report.Results[j].StationNbr
	})

	if report.Failed == 0 {
		if err := o.watermark.UpdateRange(start, end); err != nil {
			return nil, fmt.Errorf("advance watermark: %w", err)
		}
		report.WatermarkAdvanced = true
	} else {
		log.Printf("run %s: %d of %d stations failed; watermark not advanced", report.RunID, report.Failed, len(records))
	}

	report.FinishedAt = time.Now().UTC()
	if err := o.journal.RecordRunFinish(ctx, report.RunID, len(records), report.Failed, report.FinishedAt); err != nil {
		log.Printf("run %s: journal finish failed: %v", report.RunID, err)
	}

	event := RunEvent{
		RunID:        report.RunID,
		Kind:         string(kind),
		DataStart:    start,
		DataEnd:      end,
		Stations:     len(records),
		Failed:       report.Failed,
		Observations: report.Observations,
		StartedAt:    report.StartedAt,
		FinishedAt:   report.FinishedAt,
	}
	if err := o.events.PublishRunCompleted(ctx, event); err != nil {
		log.Printf("run %s: publish run event failed: %v", report.RunID, err)
	}

	log.Printf("run %s: done, %d observations, %d failed stations", report.RunID, report.Observations, report.Failed)
	return report, nil
}

// syncStation fetches every available stream of one station, assembles the
// entities, and uploads them. The Thing upsert is issued before the
// observation batch so the batch's datastream references resolve.
func (o *Orchestrator) syncStation(ctx context.Context, record upstream.StationRecord, start, end string) StationResult {
	attrs := &record.Attributes
	result := StationResult{StationNbr: attrs.StationNbr}

	available := attrs.AvailableParameters(o.opts.Parameters)

	type fetched struct {
		series upstream.Series
		err    error
	}
	streams := make([]fetched, len(available))

	sem := make(chan struct{}, o.opts.StreamConcurrency)
	var wg sync.WaitGroup
	for i, param := range available {
		wg.Add(1)
		go func(i int, param upstream.Parameter) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			series, err := o.fetcher.FetchSeries(ctx, param.Key, attrs.StationNbr, start, end, o.opts.ForceRefetch)
			streams[i] = fetched{series: series, err: err}
		}(i, param)
	}
	wg.Wait()

	var datastreams []sta.Datastream
	var observations []sta.Observation
	for i, param := range available {
		if streams[i].err != nil {
			result.Err = fmt.Errorf("fetch %s: %w", param.Key, streams[i].err)
			return result
		}

		series := streams[i].series
		interval, _ := series.TimeInterval()
		ds, err := sta.BuildDatastream(attrs, series.Unit, interval, param, i)
		if err != nil {
			result.Err = err
			return result
		}
		datastreams = append(datastreams, ds)

		for k, timestamp := range series.Timestamps {
			obs, err := sta.BuildObservation(attrs, series.Values[k], timestamp, i)
			if err != nil {
				result.Err = err
				return result
			}
			observations = append(observations, obs)
		}
	}

	thing, err := sta.BuildThing(attrs, datastreams)
	if err != nil {
		result.Err = err
		return result
	}
	if err := o.store.UpsertThing(ctx, thing); err != nil {
		result.Err = fmt.Errorf("upsert thing: %w", err)
		return result
	}
	if err := o.store.PostObservations(ctx, observations); err != nil {
		result.Err = fmt.Errorf("post observation batch: %w", err)
		return result
	}

	result.Datastreams = len(datastreams)
	result.Observations = len(observations)
	return result
}
