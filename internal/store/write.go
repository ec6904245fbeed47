package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/reactorrt/internal/trace"
)

// WriteRun inserts a run and its trace in one transaction.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - writing the same run id
// twice keeps the first record and its trace. Returns whether the run was
// inserted.
//
// The run's Seq is assigned here, one past the highest stored seq.
func (s *Store) WriteRun(ctx context.Context, run Run, events []trace.Event) (inserted bool, err error) {
	params, err := marshalParams(run.Params)
	if err != nil {
		return false, fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, seq, program, params, mode, workers, timeout_ns, reason,
		 final_elapsed_ns, final_microstep, tags_processed, reactions_executed, error, digest)
		VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Program,
		params,
		run.Mode,
		run.Workers,
		int64(run.Timeout),
		run.Reason,
		int64(run.FinalElapsed),
		run.FinalMicrostep,
		run.TagsProcessed,
		run.ReactionsExecuted,
		run.Error,
		run.Digest,
	)
	if err != nil {
		return false, fmt.Errorf("write run: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("write run: rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if err := writeEvents(ctx, tx, run.ID, events); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("write run: commit: %w", err)
	}
	return true, nil
}

func writeEvents(ctx context.Context, tx *sql.Tx, runID string, events []trace.Event) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trace_events
		(run_id, seq, kind, elapsed_ns, microstep, reaction, trigger_label, triggers,
		 value, target_elapsed_ns, target_microstep, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write trace: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		value, err := marshalValue(e.Value)
		if err != nil {
			return fmt.Errorf("write trace event %d: %w", e.Seq, err)
		}
		triggers, err := marshalStrings(e.Triggers)
		if err != nil {
			return fmt.Errorf("write trace event %d: %w", e.Seq, err)
		}
		var targetElapsed, targetMicrostep sql.NullInt64
		if e.Target != nil {
			targetElapsed = sql.NullInt64{Int64: int64(e.Target.Elapsed), Valid: true}
			targetMicrostep = sql.NullInt64{Int64: int64(e.Target.Microstep), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			runID,
			e.Seq,
			string(e.Kind),
			int64(e.At.Elapsed),
			e.At.Microstep,
			e.Reaction,
			e.Trigger,
			triggers,
			value,
			targetElapsed,
			targetMicrostep,
			e.Reason,
		); err != nil {
			return fmt.Errorf("write trace event %d: %w", e.Seq, err)
		}
	}
	return nil
}

// DeleteRun removes a run and, through the foreign key cascade, its trace.
// Deleting an unknown run is not an error.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}
