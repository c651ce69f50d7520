package trace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SourceCount is one source's contribution to a run.
type SourceCount struct {
	Name    string
	Records int64
}

// RuleCount is one rule's hit count for a run.
type RuleCount struct {
	Label string
	Hits  int64
}

// Run is one journal entry: a single job execution.
type Run struct {
	ID        string
	Program   string
	StartedAt time.Time
	Records   int64
	Outcome   string // "ok" or "error"
	Error     string
	Sources   []SourceCount
	Rules     []RuleCount
}

// ErrNotFound reports a run ID with no journal entry.
var ErrNotFound = errors.New("run not found")

// Record writes a run and its per-source and per-rule counts in one
// transaction. Writing the same run ID twice is a silent no-op.
func (j *Journal) Record(ctx context.Context, run Run) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, program, started_at, records, outcome, error)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.Program, run.StartedAt.Unix(), run.Records, run.Outcome, run.Error)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Already recorded.
		return nil
	}

	for i, src := range run.Sources {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_sources (run_id, position, name, records)
			VALUES (?, ?, ?, ?)
		`, run.ID, i, src.Name, src.Records); err != nil {
			return fmt.Errorf("record run source %s: %w", src.Name, err)
		}
	}
	for i, r := range run.Rules {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO run_rules (run_id, position, label, hits)
			VALUES (?, ?, ?, ?)
		`, run.ID, i, r.Label, r.Hits); err != nil {
			return fmt.Errorf("record run rule %s: %w", r.Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first. Ties on start time are
// broken by ID so the order is stable.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, program, started_at, records, outcome, error
		FROM runs
		ORDER BY started_at DESC, id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started int64
		if err := rows.Scan(&r.ID, &r.Program, &started, &r.Records, &r.Outcome, &r.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.Unix(started, 0).UTC()
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}

	for i := range runs {
		if err := j.loadCounts(ctx, &runs[i]); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// Get returns one run by ID, or ErrNotFound.
func (j *Journal) Get(ctx context.Context, id string) (Run, error) {
	var r Run
	var started int64
	err := j.db.QueryRowContext(ctx, `
		SELECT id, program, started_at, records, outcome, error
		FROM runs WHERE id = ?
	`, id).Scan(&r.ID, &r.Program, &started, &r.Records, &r.Outcome, &r.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	r.StartedAt = time.Unix(started, 0).UTC()
	if err := j.loadCounts(ctx, &r); err != nil {
		return Run{}, err
	}
	return r, nil
}

func (j *Journal) loadCounts(ctx context.Context, r *Run) error {
	rows, err := j.db.QueryContext(ctx, `
		SELECT name, records FROM run_sources
		WHERE run_id = ? ORDER BY position ASC
	`, r.ID)
	if err != nil {
		return fmt.Errorf("load sources for %s: %w", r.ID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var s SourceCount
		if err := rows.Scan(&s.Name, &s.Records); err != nil {
			return fmt.Errorf("scan source: %w", err)
		}
		r.Sources = append(r.Sources, s)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	ruleRows, err := j.db.QueryContext(ctx, `
		SELECT label, hits FROM run_rules
		WHERE run_id = ? ORDER BY position ASC
	`, r.ID)
	if err != nil {
		return fmt.Errorf("load rules for %s: %w", r.ID, err)
	}
	defer ruleRows.Close()
	for ruleRows.Next() {
		var rc RuleCount
		if err := ruleRows.Scan(&rc.Label, &rc.Hits); err != nil {
			return fmt.Errorf("scan rule: %w", err)
		}
		r.Rules = append(r.Rules, rc)
	}
	return ruleRows.Err()
}
