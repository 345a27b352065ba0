package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/cleanify/internal/models"
	"github.com/desertthunder/cleanify/internal/shared"
)

// SyncHistoryRepository implements [models.Repository] for [models.SyncHistory] persistence.
//
// History is append-only: a row is created when a run starts and finalized
// exactly once with the run's outcome.
type SyncHistoryRepository struct {
	db *sql.DB
}

// NewSyncHistoryRepository creates a new [SyncHistoryRepository] with the given database connection
func NewSyncHistoryRepository(db *sql.DB) *SyncHistoryRepository {
	return &SyncHistoryRepository{db: db}
}

// Create inserts a new running history row with generated ID and sequence
func (r *SyncHistoryRepository) Create(ctx context.Context, history *models.SyncHistory) error {
	sequence, err := NextSequence(ctx, r.db, "sync_history")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	history.SetID(shared.GenerateID())
	history.SetSequence(sequence)

	if err := history.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO sync_history (
			id, sequence, sync_config_id, started_at, completed_at, status,
			tracks_added, tracks_removed, tracks_unchanged, error_message, execution_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		history.ID(), history.Sequence(), history.SyncConfigID(),
		history.StartedAt(), nullableTime(history.CompletedAt()), string(history.Status()),
		history.TracksAdded(), history.TracksRemoved(), history.TracksUnchanged(),
		history.ErrorMessage(), history.ExecutionMS())
	if err != nil {
		return fmt.Errorf("failed to insert sync history: %w", err)
	}

	return nil
}

// Get retrieves a history row by ID
func (r *SyncHistoryRepository) Get(ctx context.Context, id string) (*models.SyncHistory, error) {
	history, err := scanSyncHistory(r.db.QueryRowContext(ctx, syncHistorySelect+" WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sync history not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sync history: %w", err)
	}

	return history, nil
}

// Update persists a history row's outcome fields
func (r *SyncHistoryRepository) Update(ctx context.Context, history *models.SyncHistory) error {
	return r.Finalize(ctx, history)
}

// Finalize writes the run's outcome to an existing history row.
func (r *SyncHistoryRepository) Finalize(ctx context.Context, history *models.SyncHistory) error {
	if err := history.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE sync_history
		SET completed_at = ?, status = ?, tracks_added = ?, tracks_removed = ?,
			tracks_unchanged = ?, error_message = ?, execution_ms = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		nullableTime(history.CompletedAt()), string(history.Status()),
		history.TracksAdded(), history.TracksRemoved(), history.TracksUnchanged(),
		history.ErrorMessage(), history.ExecutionMS(), history.ID())
	if err != nil {
		return fmt.Errorf("failed to finalize sync history: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("sync history not found: %s", history.ID())
	}

	return nil
}

// Delete removes a history row by ID
func (r *SyncHistoryRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sync_history WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete sync history: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("sync history not found: %s", id)
	}

	return nil
}

// List retrieves history rows matching the given criteria, newest first
func (r *SyncHistoryRepository) List(ctx context.Context, criteria map[string]any) ([]*models.SyncHistory, error) {
	query := syncHistorySelect + " WHERE 1 = 1"
	args := []any{}

	if configID, ok := criteria["sync_config_id"].(string); ok && configID != "" {
		query += " AND sync_config_id = ?"
		args = append(args, configID)
	}
	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY started_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync history: %w", err)
	}
	defer rows.Close()

	var records []*models.SyncHistory
	for rows.Next() {
		record, err := scanSyncHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync history: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sync history: %w", err)
	}

	return records, nil
}

// ListByConfig retrieves the most recent history rows for a config.
func (r *SyncHistoryRepository) ListByConfig(ctx context.Context, configID string, limit int) ([]*models.SyncHistory, error) {
	query := syncHistorySelect + `
		WHERE sync_config_id = ?
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, configID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync history: %w", err)
	}
	defer rows.Close()

	var records []*models.SyncHistory
	for rows.Next() {
		record, err := scanSyncHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync history: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sync history: %w", err)
	}

	return records, nil
}

const syncHistorySelect = `
	SELECT id, sequence, sync_config_id, started_at, completed_at, status,
		tracks_added, tracks_removed, tracks_unchanged, error_message, execution_ms
	FROM sync_history
`

func scanSyncHistory(row scanner) (*models.SyncHistory, error) {
	var (
		id, configID              string
		sequence                  int
		startedAt                 time.Time
		completedAt               sql.NullTime
		status                    string
		added, removed, unchanged int
		errorMessage              sql.NullString
		executionMS               int64
	)

	err := row.Scan(&id, &sequence, &configID, &startedAt, &completedAt, &status,
		&added, &removed, &unchanged, &errorMessage, &executionMS)
	if err != nil {
		return nil, err
	}

	history := models.NewSyncHistory(sequence, configID)
	history.SetID(id)
	history.SetStartedAt(startedAt)

	var completed *time.Time
	if completedAt.Valid {
		completed = &completedAt.Time
	}
	history.SetOutcome(completed, models.SyncStatus(status), added, removed, unchanged, errorMessage.String, executionMS)

	return history, nil
}
