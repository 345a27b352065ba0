package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/cleanify/internal/models"
	"github.com/desertthunder/cleanify/internal/shared"
)

// SyncConfigRepository implements [models.Repository] for [models.SyncConfig] persistence.
type SyncConfigRepository struct {
	db *sql.DB
}

// NewSyncConfigRepository creates a new [SyncConfigRepository] with the given database connection
func NewSyncConfigRepository(db *sql.DB) *SyncConfigRepository {
	return &SyncConfigRepository{db: db}
}

// Create inserts a new sync config with generated ID and sequence.
// At most one active config may exist per job.
func (r *SyncConfigRepository) Create(ctx context.Context, config *models.SyncConfig) error {
	existing, err := r.GetActiveByJob(ctx, config.JobID())
	if err == nil && existing != nil {
		return fmt.Errorf("%w: job %s", shared.ErrSyncAlreadyExists, config.JobID())
	}

	sequence, err := NextSequence(ctx, r.db, "sync_configs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	config.SetID(shared.GenerateID())
	config.SetSequence(sequence)

	if err := config.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO sync_configs (
			id, sequence, user_id, job_id, source_playlist_id, source_playlist_name,
			target_playlist_id, target_playlist_name, active, frequency,
			last_synced_at, last_sync_status, last_sync_error, next_scheduled_sync,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		config.ID(), config.Sequence(), config.UserID(), config.JobID(),
		config.SourcePlaylistID(), config.SourcePlaylistName(),
		config.TargetPlaylistID(), config.TargetPlaylistName(),
		config.Active(), string(config.Frequency()),
		nullableTime(config.LastSyncedAt()), string(config.LastSyncStatus()), config.LastSyncError(),
		nullableTime(config.NextScheduledSync()), config.CreatedAt(), config.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert sync config: %w", err)
	}

	return nil
}

// Get retrieves a sync config by ID
func (r *SyncConfigRepository) Get(ctx context.Context, id string) (*models.SyncConfig, error) {
	config, err := scanSyncConfig(r.db.QueryRowContext(ctx, syncConfigSelect+" WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrSyncNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sync config: %w", err)
	}

	return config, nil
}

// Update persists the config's mutable fields: activation, frequency and
// last-run bookkeeping.
func (r *SyncConfigRepository) Update(ctx context.Context, config *models.SyncConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	config.SetUpdatedAt(now)

	query := `
		UPDATE sync_configs
		SET active = ?, frequency = ?, last_synced_at = ?, last_sync_status = ?,
			last_sync_error = ?, next_scheduled_sync = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		config.Active(), string(config.Frequency()),
		nullableTime(config.LastSyncedAt()), string(config.LastSyncStatus()),
		config.LastSyncError(), nullableTime(config.NextScheduledSync()), now, config.ID())
	if err != nil {
		return fmt.Errorf("failed to update sync config: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSyncNotFound, config.ID())
	}

	return nil
}

// Delete deactivates a sync config; history rows are kept.
func (r *SyncConfigRepository) Delete(ctx context.Context, id string) error {
	return r.Deactivate(ctx, id)
}

// Deactivate marks a sync config inactive and clears its schedule.
func (r *SyncConfigRepository) Deactivate(ctx context.Context, id string) error {
	query := `
		UPDATE sync_configs
		SET active = 0, next_scheduled_sync = NULL, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate sync config: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSyncNotFound, id)
	}

	return nil
}

// List retrieves all sync configs matching the given criteria
func (r *SyncConfigRepository) List(ctx context.Context, criteria map[string]any) ([]*models.SyncConfig, error) {
	query := syncConfigSelect + " WHERE 1 = 1"
	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	if active, ok := criteria["active"].(bool); ok {
		query += " AND active = ?"
		args = append(args, active)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync configs: %w", err)
	}
	defer rows.Close()

	return collectSyncConfigs(rows)
}

// GetActiveByJob retrieves the active config for a job, if any.
func (r *SyncConfigRepository) GetActiveByJob(ctx context.Context, jobID string) (*models.SyncConfig, error) {
	config, err := scanSyncConfig(r.db.QueryRowContext(ctx,
		syncConfigSelect+" WHERE job_id = ? AND active = 1", jobID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: job %s", shared.ErrSyncNotFound, jobID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sync config: %w", err)
	}

	return config, nil
}

// ListDueBefore retrieves active configs whose next scheduled sync is at or
// before the given time, soonest first.
func (r *SyncConfigRepository) ListDueBefore(ctx context.Context, cutoff time.Time) ([]*models.SyncConfig, error) {
	query := syncConfigSelect + `
		WHERE active = 1 AND next_scheduled_sync IS NOT NULL AND next_scheduled_sync <= ?
		ORDER BY next_scheduled_sync ASC
	`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query due sync configs: %w", err)
	}
	defer rows.Close()

	return collectSyncConfigs(rows)
}

const syncConfigSelect = `
	SELECT id, sequence, user_id, job_id, source_playlist_id, source_playlist_name,
		target_playlist_id, target_playlist_name, active, frequency,
		last_synced_at, last_sync_status, last_sync_error, next_scheduled_sync,
		created_at, updated_at
	FROM sync_configs
`

func scanSyncConfig(row scanner) (*models.SyncConfig, error) {
	var (
		id, userID, jobID                          string
		sourceID, sourceName, targetID, targetName string
		sequence                                   int
		active                                     bool
		frequency                                  string
		lastSyncedAt, nextScheduled                sql.NullTime
		lastStatus, lastError                      sql.NullString
		createdAt, updatedAt                       time.Time
	)

	err := row.Scan(&id, &sequence, &userID, &jobID, &sourceID, &sourceName,
		&targetID, &targetName, &active, &frequency,
		&lastSyncedAt, &lastStatus, &lastError, &nextScheduled,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	config := &models.SyncConfig{}
	config.SetID(id)
	config.SetSequence(sequence)
	config.SetOwners(userID, jobID)
	config.SetPlaylists(sourceID, sourceName, targetID, targetName)
	config.SetActive(active)
	config.SetFrequency(models.Frequency(frequency))
	config.SetLastSyncStatus(models.SyncStatus(lastStatus.String))
	config.SetLastSyncError(lastError.String)
	config.SetCreatedAt(createdAt)
	config.SetUpdatedAt(updatedAt)

	if lastSyncedAt.Valid {
		config.SetLastSyncedAt(&lastSyncedAt.Time)
	}
	if nextScheduled.Valid {
		config.SetNextScheduledSync(&nextScheduled.Time)
	}

	return config, nil
}

func collectSyncConfigs(rows *sql.Rows) ([]*models.SyncConfig, error) {
	var configs []*models.SyncConfig
	for rows.Next() {
		config, err := scanSyncConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync config: %w", err)
		}
		configs = append(configs, config)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sync configs: %w", err)
	}

	return configs, nil
}

// nullableTime converts an optional timestamp for storage.
func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
