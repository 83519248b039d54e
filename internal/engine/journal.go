package engine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Journal records run and per-station outcomes in Postgres so operators can
// see which stations failed and when data last moved. It is optional: a nil
// Journal is a no-op, and the engine works without one.
type Journal struct {
	db *sql.DB
}

// OpenJournal connects to the journal database and creates the schema if it
// is missing.
func OpenJournal(dsn string) (*Journal, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping journal database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate journal schema: %w", err)
	}
	return j, nil
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sync_runs (
		run_id      UUID PRIMARY KEY,
		kind        TEXT NOT NULL,
		data_start  TEXT NOT NULL,
		data_end    TEXT NOT NULL,
		started_at  TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		stations    INT NOT NULL DEFAULT 0,
		failed      INT NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS sync_station_results (
		id           BIGSERIAL PRIMARY KEY,
		run_id       UUID NOT NULL REFERENCES sync_runs(run_id),
		station_nbr  TEXT NOT NULL,
		datastreams  INT NOT NULL,
		observations INT NOT NULL,
		status       TEXT NOT NULL,
		error        TEXT,
		recorded_at  TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_station_results_run ON sync_station_results(run_id);
	`
	_, err := j.db.Exec(schema)
	return err
}

// RecordRunStart inserts the run row at the beginning of a run.
func (j *Journal) RecordRunStart(ctx context.Context, runID, kind, dataStart, dataEnd string, startedAt time.Time) error {
	if j == nil {
		return nil
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO sync_runs (run_id, kind, data_start, data_end, started_at)
		VALUES ($1, $2, $3, $4, $5)`,
		runID, kind, dataStart, dataEnd, startedAt,
	)
	return err
}

// RecordStationResult inserts one station's outcome.
func (j *Journal) RecordStationResult(ctx context.Context, runID, stationNbr string, datastreams, observations int, stationErr error) error {
	if j == nil {
		return nil
	}

	status := "ok"
	var errText sql.NullString
	if stationErr != nil {
		status = "failed"
		errText = sql.NullString{String: stationErr.Error(), Valid: true}
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO sync_station_results (run_id, station_nbr, datastreams, observations, status, error, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		runID, stationNbr, datastreams, observations, status, errText, time.Now().UTC(),
	)
	return err
}

// RecordRunFinish stamps the run row with its final counts.
func (j *Journal) RecordRunFinish(ctx context.Context, runID string, stations, failed int, finishedAt time.Time) error {
	if j == nil {
		return nil
	}
	_, err := j.db.ExecContext(ctx, `
		UPDATE sync_runs
		SET finished_at = $1, stations = $2, failed = $3
		WHERE run_id = $4`,
		finishedAt, stations, failed, runID,
	)
	return err
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	return j.db.Close()
}
