package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/cleanify/internal/models"
	"github.com/desertthunder/cleanify/internal/shared"
)

// JobRepository implements [models.Repository] for [models.Job] persistence.
type JobRepository struct {
	db *sql.DB
}

// NewJobRepository creates a new [JobRepository] with the given database connection
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new job into the database with generated ID and sequence
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	sequence, err := NextSequence(ctx, r.db, "jobs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	job.SetID(shared.GenerateID())
	job.SetSequence(sequence)

	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO jobs (
			id, sequence, user_id, source_playlist_id, source_playlist_name,
			target_playlist_id, target_playlist_name, status,
			total_tracks, processed_tracks, matched_tracks, current_batch,
			error_message, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		job.ID(), job.Sequence(), job.UserID(), job.SourcePlaylistID(), job.SourcePlaylistName(),
		job.TargetPlaylistID(), job.TargetPlaylistName(), string(job.Status()),
		job.TotalTracks(), job.ProcessedTracks(), job.MatchedTracks(), job.CurrentBatch(),
		job.ErrorMessage(), job.CreatedAt(), job.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}

	return nil
}

// Get retrieves a job by ID
func (r *JobRepository) Get(ctx context.Context, id string) (*models.Job, error) {
	query := `
		SELECT id, sequence, user_id, source_playlist_id, source_playlist_name,
			target_playlist_id, target_playlist_name, status,
			total_tracks, processed_tracks, matched_tracks, current_batch,
			error_message, created_at, updated_at
		FROM jobs
		WHERE id = ?
	`

	job, err := scanJob(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query job: %w", err)
	}

	return job, nil
}

// Update persists the job's mutable fields: status, target playlist,
// counters and error message.
func (r *JobRepository) Update(ctx context.Context, job *models.Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	job.SetUpdatedAt(now)

	query := `
		UPDATE jobs
		SET target_playlist_id = ?, target_playlist_name = ?, status = ?,
			total_tracks = ?, processed_tracks = ?, matched_tracks = ?,
			current_batch = ?, error_message = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		job.TargetPlaylistID(), job.TargetPlaylistName(), string(job.Status()),
		job.TotalTracks(), job.ProcessedTracks(), job.MatchedTracks(),
		job.CurrentBatch(), job.ErrorMessage(), now, job.ID())
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrJobNotFound, job.ID())
	}

	return nil
}

// Delete removes a job and its track mappings
func (r *JobRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM track_mappings WHERE job_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete job mappings: %w", err)
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM jobs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete transaction: %w", err)
	}

	return nil
}

// List retrieves all jobs matching the given criteria, ordered newest first
func (r *JobRepository) List(ctx context.Context, criteria map[string]any) ([]*models.Job, error) {
	query := `
		SELECT id, sequence, user_id, source_playlist_id, source_playlist_name,
			target_playlist_id, target_playlist_name, status,
			total_tracks, processed_tracks, matched_tracks, current_batch,
			error_message, created_at, updated_at
		FROM jobs
		WHERE 1 = 1
	`

	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}

	return jobs, nil
}

// ListPending retrieves jobs in the pending state, oldest first, for the worker to claim.
func (r *JobRepository) ListPending(ctx context.Context, limit int) ([]*models.Job, error) {
	query := `
		SELECT id, sequence, user_id, source_playlist_id, source_playlist_name,
			target_playlist_id, target_playlist_name, status,
			total_tracks, processed_tracks, matched_tracks, current_batch,
			error_message, created_at, updated_at
		FROM jobs
		WHERE status = ?
		ORDER BY sequence ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, string(models.JobPending), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending jobs: %w", err)
	}

	return jobs, nil
}

// scanner abstracts sql.Row and sql.Rows for shared scan logic.
type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*models.Job, error) {
	var (
		id, userID, sourceID, sourceName string
		targetID, targetName             sql.NullString
		status, currentBatch             string
		errorMessage                     sql.NullString
		sequence                         int
		total, processed, matched        int
		createdAt, updatedAt             time.Time
	)

	err := row.Scan(&id, &sequence, &userID, &sourceID, &sourceName,
		&targetID, &targetName, &status,
		&total, &processed, &matched, &currentBatch,
		&errorMessage, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	job := models.NewJob(sequence, userID, sourceID, sourceName)
	job.SetID(id)
	job.SetStatusUnchecked(models.JobStatus(status))
	job.SetTargetPlaylist(targetID.String, targetName.String)
	job.SetTotalTracks(total)
	job.SetProcessedTracks(processed)
	job.SetMatchedTracks(matched)
	job.SetCurrentBatch(currentBatch)
	job.SetErrorMessage(errorMessage.String)
	job.SetCreatedAt(createdAt)
	job.SetUpdatedAt(updatedAt)

	return job, nil
}
