package render

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// History stores render jobs.
type History interface {
	Save(ctx context.Context, job Job) error
	List(ctx context.Context, limit int) ([]Job, error)
}

// SQLiteHistory keeps render jobs in the render_jobs table.
type SQLiteHistory struct {
	db *sql.DB
}

func NewSQLiteHistory(db *sql.DB) *SQLiteHistory {
	return &SQLiteHistory{db: db}
}

// Save inserts the job or updates the row it already has.
func (h *SQLiteHistory) Save(ctx context.Context, job Job) error {
	outputs := job.Outputs
	if outputs == nil {
		outputs = []string{}
	}
	encoded, err := json.Marshal(outputs)
	if err != nil {
		return fmt.Errorf("encode outputs: %w", err)
	}

	var finishedAt sql.NullString
	if job.FinishedAt != nil {
		finishedAt = sql.NullString{String: job.FinishedAt.UTC().Format(timeLayout), Valid: true}
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT INTO render_jobs (id, timeline_file, output_dir, status, outputs, error, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			outputs = excluded.outputs,
			error = excluded.error,
			finished_at = excluded.finished_at
	`, job.ID, job.TimelineFile, job.OutputDir, job.Status, string(encoded), nullString(job.Error),
		job.StartedAt.UTC().Format(timeLayout), finishedAt)
	return err
}

// List returns the most recently started jobs first.
func (h *SQLiteHistory) List(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := h.db.QueryContext(ctx, `
		SELECT id, timeline_file, output_dir, status, outputs, error, started_at, finished_at
		FROM render_jobs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs := make([]Job, 0)
	for rows.Next() {
		var (
			job        Job
			outputs    string
			errMsg     sql.NullString
			startedAt  string
			finishedAt sql.NullString
		)
		if err := rows.Scan(&job.ID, &job.TimelineFile, &job.OutputDir, &job.Status, &outputs, &errMsg, &startedAt, &finishedAt); err != nil {
			return nil, err
		}

		if err := json.Unmarshal([]byte(outputs), &job.Outputs); err != nil {
			return nil, fmt.Errorf("decode outputs of job %s: %w", job.ID, err)
		}
		job.Error = errMsg.String
		job.StartedAt = parseTime(startedAt)
		if finishedAt.Valid {
			t := parseTime(finishedAt.String)
			job.FinishedAt = &t
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func parseTime(s string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
