package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Run statuses.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// RunRecord is one row in generation_runs.
type RunRecord struct {
	ID           int64
	RunID        string
	Status       string
	FinalPrompt  string
	ImagePath    string
	PromptPath   string
	Backend      string
	Seed         int64
	ErrorKind    string
	ErrorMessage string
	DurationMS   int64
	CreatedAt    time.Time
}

// Repository provides CRUD access to the run history.
type Repository struct {
	db *sql.DB
}

// NewRepository wraps an open database handle.
func NewRepository(db *sql.DB) (*Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("history: database cannot be nil")
	}
	return &Repository{db: db}, nil
}

// InsertRun stores one finished run and returns its row ID.
func (r *Repository) InsertRun(ctx context.Context, rec RunRecord) (int64, error) {
	if rec.RunID == "" {
		return 0, fmt.Errorf("history: run ID is required")
	}
	if rec.Status != StatusSuccess && rec.Status != StatusFailure {
		return 0, fmt.Errorf("history: invalid status %q", rec.Status)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO generation_runs
			(run_id, status, final_prompt, image_path, prompt_path, backend,
			 seed, error_kind, error_message, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Status, rec.FinalPrompt, rec.ImagePath, rec.PromptPath,
		rec.Backend, rec.Seed, rec.ErrorKind, rec.ErrorMessage, rec.DurationMS,
		rec.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("history: insert run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("history: last insert id: %w", err)
	}
	return id, nil
}

// GetRun fetches a record by its run ID.
func (r *Repository) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, run_id, status, final_prompt, image_path, prompt_path,
		       backend, seed, error_kind, error_message, duration_ms, created_at
		FROM generation_runs WHERE run_id = ?`, runID)

	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("history: run %s not found", runID)
	}
	if err != nil {
		return nil, fmt.Errorf("history: get run: %w", err)
	}
	return rec, nil
}

// ListRecent returns up to limit runs, newest first, skipping offset rows.
// Limit 0 means 50.
func (r *Repository) ListRecent(ctx context.Context, limit, offset int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, run_id, status, final_prompt, image_path, prompt_path,
		       backend, seed, error_kind, error_message, duration_ms, created_at
		FROM generation_runs
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: iterate runs: %w", err)
	}
	return out, nil
}

// CountByStatus returns how many runs finished with the given status.
func (r *Repository) CountByStatus(ctx context.Context, status string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM generation_runs WHERE status = ?`, status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("history: count runs: %w", err)
	}
	return n, nil
}

// DeleteOlderThan removes records created before cutoff, returning how many
// rows went away. History grows unbounded otherwise on long loops.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM generation_runs WHERE created_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("history: delete old runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("history: rows affected: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var rec RunRecord
	err := row.Scan(&rec.ID, &rec.RunID, &rec.Status, &rec.FinalPrompt,
		&rec.ImagePath, &rec.PromptPath, &rec.Backend, &rec.Seed,
		&rec.ErrorKind, &rec.ErrorMessage, &rec.DurationMS, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
