package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/reactorrt/internal/trace"
)

const runColumns = `id, seq, program, params, mode, workers, timeout_ns, reason,
	final_elapsed_ns, final_microstep, tags_processed, reactions_executed, error, digest`

// ReadRun retrieves a single run by ID.
// Returns ErrRunNotFound if no such run exists.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// ListRuns returns all runs ordered by seq ASC, id ASC.
//
// Returns an empty slice (not nil) if the store holds no runs.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	return collectRuns(rows)
}

// ListRunsForProgram returns the runs of one program ordered by seq ASC.
func (s *Store) ListRunsForProgram(ctx context.Context, program string) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		WHERE program = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, program)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	return collectRuns(rows)
}

func collectRuns(rows *sql.Rows) ([]Run, error) {
	defer rows.Close()
	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run                   Run
		params                string
		timeout, finalElapsed int64
	)
	err := row.Scan(
		&run.ID,
		&run.Seq,
		&run.Program,
		&params,
		&run.Mode,
		&run.Workers,
		&timeout,
		&run.Reason,
		&finalElapsed,
		&run.FinalMicrostep,
		&run.TagsProcessed,
		&run.ReactionsExecuted,
		&run.Error,
		&run.Digest,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Timeout = time.Duration(timeout)
	run.FinalElapsed = time.Duration(finalElapsed)
	if run.Params, err = unmarshalParams(params); err != nil {
		return Run{}, fmt.Errorf("run %s: %w", run.ID, err)
	}
	return run, nil
}

// ReadTrace returns the trace of a run ordered by seq ASC.
//
// Values come back as decoded JSON (numbers as json.Number), so the trace
// digest of the result equals the digest recorded with the run.
func (s *Store) ReadTrace(ctx context.Context, runID string) ([]trace.Event, error) {
	return s.queryTrace(ctx, `WHERE run_id = ?`, runID)
}

// ReadTraceKind returns the events of one kind from a run's trace.
func (s *Store) ReadTraceKind(ctx context.Context, runID string, kind trace.Kind) ([]trace.Event, error) {
	return s.queryTrace(ctx, `WHERE run_id = ? AND kind = ?`, runID, string(kind))
}

func (s *Store) queryTrace(ctx context.Context, where string, args ...any) ([]trace.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind, elapsed_ns, microstep, reaction, trigger_label, triggers,
		       value, target_elapsed_ns, target_microstep, reason
		FROM trace_events
		`+where+`
		ORDER BY seq ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query trace: %w", err)
	}
	defer rows.Close()

	events := []trace.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace: %w", err)
	}
	return events, nil
}

func scanEvent(rows *sql.Rows) (trace.Event, error) {
	var (
		e                              trace.Event
		kind, triggers                 string
		elapsed                        int64
		value                          sql.NullString
		targetElapsed, targetMicrostep sql.NullInt64
	)
	if err := rows.Scan(
		&e.Seq,
		&kind,
		&elapsed,
		&e.At.Microstep,
		&e.Reaction,
		&e.Trigger,
		&triggers,
		&value,
		&targetElapsed,
		&targetMicrostep,
		&e.Reason,
	); err != nil {
		return trace.Event{}, fmt.Errorf("scan trace event: %w", err)
	}
	e.Kind = trace.Kind(kind)
	e.At.Elapsed = time.Duration(elapsed)

	var err error
	if e.Triggers, err = unmarshalStrings(triggers); err != nil {
		return trace.Event{}, fmt.Errorf("trace event %d: %w", e.Seq, err)
	}
	if e.Value, err = unmarshalValue(value); err != nil {
		return trace.Event{}, fmt.Errorf("trace event %d: %w", e.Seq, err)
	}
	if targetElapsed.Valid {
		e.Target = &trace.Stamp{
			Elapsed:   time.Duration(targetElapsed.Int64),
			Microstep: uint32(targetMicrostep.Int64),
		}
	}
	return e, nil
}
