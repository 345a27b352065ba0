package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/cleanify/internal/models"
	"github.com/desertthunder/cleanify/internal/shared"
)

// MappingRepository implements [models.Repository] for [models.TrackMapping] persistence.
//
// Mappings are append-only: one row per (job, source track) pair, enforced
// by a unique constraint. Update is unsupported.
type MappingRepository struct {
	db *sql.DB
}

// NewMappingRepository creates a new [MappingRepository] with the given database connection
func NewMappingRepository(db *sql.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

// Create inserts a new track mapping with generated ID and sequence
func (r *MappingRepository) Create(ctx context.Context, mapping *models.TrackMapping) error {
	sequence, err := NextSequence(ctx, r.db, "track_mappings")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	mapping.SetID(shared.GenerateID())
	mapping.SetSequence(sequence)

	if err := mapping.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO track_mappings (
			id, sequence, job_id, source_track_id, source_track_name,
			source_artist_name, is_explicit, target_track_id, target_track_name,
			target_artist_name, has_clean_match, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		mapping.ID(), mapping.Sequence(), mapping.JobID(),
		mapping.SourceTrackID(), mapping.SourceTrackName(), mapping.SourceArtistName(),
		mapping.IsExplicit(), mapping.TargetTrackID(), mapping.TargetTrackName(),
		mapping.TargetArtistName(), mapping.HasCleanMatch(), mapping.CreatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert track mapping: %w", err)
	}

	return nil
}

// Get retrieves a track mapping by ID
func (r *MappingRepository) Get(ctx context.Context, id string) (*models.TrackMapping, error) {
	query := mappingSelect + " WHERE id = ?"

	mapping, err := scanMapping(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("track mapping not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query track mapping: %w", err)
	}

	return mapping, nil
}

// Update is unsupported; mappings are immutable once written.
func (r *MappingRepository) Update(ctx context.Context, mapping *models.TrackMapping) error {
	return fmt.Errorf("track mappings are immutable")
}

// Delete removes a track mapping by ID
func (r *MappingRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM track_mappings WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete track mapping: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("track mapping not found: %s", id)
	}

	return nil
}

// List retrieves all track mappings matching the given criteria
func (r *MappingRepository) List(ctx context.Context, criteria map[string]any) ([]*models.TrackMapping, error) {
	query := mappingSelect + " WHERE 1 = 1"
	args := []any{}

	if jobID, ok := criteria["job_id"].(string); ok && jobID != "" {
		query += " AND job_id = ?"
		args = append(args, jobID)
	}
	if hasMatch, ok := criteria["has_clean_match"].(bool); ok {
		query += " AND has_clean_match = ?"
		args = append(args, hasMatch)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query track mappings: %w", err)
	}
	defer rows.Close()

	return collectMappings(rows)
}

// ListByJob retrieves all mappings for a job in insertion order.
func (r *MappingRepository) ListByJob(ctx context.Context, jobID string) ([]*models.TrackMapping, error) {
	rows, err := r.db.QueryContext(ctx, mappingSelect+" WHERE job_id = ? ORDER BY sequence ASC", jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query job mappings: %w", err)
	}
	defer rows.Close()

	return collectMappings(rows)
}

// ExistsForTrack reports whether a mapping row already exists for the given
// job and source track.
func (r *MappingRepository) ExistsForTrack(ctx context.Context, jobID, sourceTrackID string) (bool, error) {
	var exists bool
	query := "SELECT EXISTS(SELECT 1 FROM track_mappings WHERE job_id = ? AND source_track_id = ?)"
	if err := r.db.QueryRowContext(ctx, query, jobID, sourceTrackID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check track mapping: %w", err)
	}
	return exists, nil
}

const mappingSelect = `
	SELECT id, sequence, job_id, source_track_id, source_track_name,
		source_artist_name, is_explicit, target_track_id, target_track_name,
		target_artist_name, has_clean_match, created_at
	FROM track_mappings
`

func scanMapping(row scanner) (*models.TrackMapping, error) {
	var (
		id, jobID, sourceID, sourceName, sourceArtist string
		targetID, targetName, targetArtist            sql.NullString
		sequence                                      int
		isExplicit, hasMatch                          bool
		createdAt                                     time.Time
	)

	err := row.Scan(&id, &sequence, &jobID, &sourceID, &sourceName,
		&sourceArtist, &isExplicit, &targetID, &targetName,
		&targetArtist, &hasMatch, &createdAt)
	if err != nil {
		return nil, err
	}

	mapping := models.RestoreTrackMapping(sequence, jobID, sourceID, sourceName, sourceArtist, isExplicit)
	mapping.SetID(id)
	mapping.SetResolution(targetID.String, targetName.String, targetArtist.String, hasMatch)
	mapping.SetCreatedAt(createdAt)

	return mapping, nil
}

func collectMappings(rows *sql.Rows) ([]*models.TrackMapping, error) {
	var mappings []*models.TrackMapping
	for rows.Next() {
		mapping, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track mapping: %w", err)
		}
		mappings = append(mappings, mapping)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate track mappings: %w", err)
	}

	return mappings, nil
}
