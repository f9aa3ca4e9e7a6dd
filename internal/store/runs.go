package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// RunStatus is the lifecycle state of an extraction run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

// ErrRunNotFound is returned when a run ID is unknown.
var ErrRunNotFound = errors.New("run not found")

// Run is one row of extraction history.
type Run struct {
	ID          string     `json:"id"`
	Source      string     `json:"source"`
	Output      string     `json:"output"`
	Status      RunStatus  `json:"status"`
	Frames      int        `json:"frames"`
	EmptyFrames int        `json:"empty_frames"`
	Lines       int        `json:"lines"`
	CacheHits   int        `json:"cache_hits"`
	OptionsJSON string     `json:"options,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// Duration returns the wall time of a finished run, or zero.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunResult carries the counters recorded when a run finishes.
type RunResult struct {
	Frames      int
	EmptyFrames int
	Lines       int
	CacheHits   int
	Err         error
}

const runColumns = "id, source, output, status, frames, empty_frames, lines, cache_hits, options_json, error_message, started_at, finished_at"

// StartRun records a new run in the running state.
func (s *Store) StartRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("start run: id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, source, output, status, options_json, started_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.Output, RunRunning, nullString(run.OptionsJSON), formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// FinishRun stores the final status and counters of a run.
func (s *Store) FinishRun(ctx context.Context, id string, status RunStatus, result RunResult) error {
	var errMsg sql.NullString
	if result.Err != nil {
		errMsg = sql.NullString{String: result.Err.Error(), Valid: true}
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, frames = ?, empty_frames = ?, lines = ?, cache_hits = ?,
         error_message = ?, finished_at = ? WHERE id = ?`,
		status, result.Frames, result.EmptyFrames, result.Lines, result.CacheHits,
		errMsg, formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// GetRun fetches one run by ID or unique ID prefix.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	ctx = ensureContext(ctx)
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrRunNotFound
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs WHERE id = ? OR id LIKE ? ESCAPE '\\' ORDER BY id LIMIT 2",
		id, escapeLike(id)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	defer rows.Close()

	var found []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.ID == id {
			return run, nil
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
	}
}

// ListRuns returns the most recent runs first. A non-positive limit returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// PruneRuns deletes finished runs that started before cutoff.
func (s *Store) PruneRuns(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx,
		"DELETE FROM runs WHERE status != ? AND started_at < ?",
		RunRunning, formatTime(cutoff),
	)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		status      string
		optionsJSON sql.NullString
		errMsg      sql.NullString
		startedRaw  sql.NullString
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Source,
		&run.Output,
		&status,
		&run.Frames,
		&run.EmptyFrames,
		&run.Lines,
		&run.CacheHits,
		&optionsJSON,
		&errMsg,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	run.OptionsJSON = optionsJSON.String
	run.Error = errMsg.String
	run.StartedAt = parseTime(startedRaw)
	if finished := parseTime(finishedRaw); !finished.IsZero() {
		run.FinishedAt = &finished
	}
	return &run, nil
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func escapeLike(value string) string {
	return strings.NewReplacer(`%`, `\%`, `_`, `\_`).Replace(value)
}
