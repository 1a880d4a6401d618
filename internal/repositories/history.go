package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/persona/internal/models"
)

// JobHistoryRepository keeps a local record of submitted jobs.
type JobHistoryRepository struct {
	db *sql.DB
}

// NewJobHistoryRepository creates a new [JobHistoryRepository] with the given database connection
func NewJobHistoryRepository(db *sql.DB) *JobHistoryRepository {
	return &JobHistoryRepository{db: db}
}

// Record inserts a freshly submitted job. Recording the same id twice is an error.
func (r *JobHistoryRepository) Record(ctx context.Context, entry *models.HistoryEntry) error {
	if entry.ID == "" {
		return fmt.Errorf("history entry has no job id")
	}

	now := time.Now().UTC()
	if entry.SubmittedAt.IsZero() {
		entry.SubmittedAt = now
	}
	entry.UpdatedAt = now

	query := `
		INSERT INTO job_history (id, prompt, status, result_video_url, submitted_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.Prompt, string(entry.Status), nullString(entry.ResultVideoURL), entry.SubmittedAt, entry.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

// UpdateStatus sets the last known status, and the result URL when one is given.
func (r *JobHistoryRepository) UpdateStatus(ctx context.Context, id string, status models.JobStatus, videoURL string) error {
	query := `
		UPDATE job_history
		SET status = ?, result_video_url = COALESCE(?, result_video_url), updated_at = ?
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, query, string(status), nullString(videoURL), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update history entry: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("history entry not found: %s", id)
	}
	return nil
}

// Get retrieves a single entry by job id.
func (r *JobHistoryRepository) Get(ctx context.Context, id string) (*models.HistoryEntry, error) {
	query := `
		SELECT id, prompt, status, result_video_url, submitted_at, updated_at
		FROM job_history
		WHERE id = ?
	`
	entry, err := scanEntry(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("history entry not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query history entry: %w", err)
	}
	return entry, nil
}

// List returns up to limit entries, most recent submission first. A non-positive limit returns everything.
func (r *JobHistoryRepository) List(ctx context.Context, limit int) ([]models.HistoryEntry, error) {
	query := `
		SELECT id, prompt, status, result_video_url, submitted_at, updated_at
		FROM job_history
		ORDER BY submitted_at DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []models.HistoryEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return entries, nil
}

// Delete removes an entry. Deleting an unknown id is not an error.
func (r *JobHistoryRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM job_history WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete history entry: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.HistoryEntry, error) {
	var (
		entry    models.HistoryEntry
		status   string
		videoURL sql.NullString
	)
	if err := s.Scan(&entry.ID, &entry.Prompt, &status, &videoURL, &entry.SubmittedAt, &entry.UpdatedAt); err != nil {
		return nil, err
	}
	entry.Status = models.JobStatus(status)
	entry.ResultVideoURL = videoURL.String
	return &entry, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
