// package models defines the data model for the playlist cleanup service
package models

import (
	"context"
	"time"
)

// Model defines the base interface for all persistent models in the cleanup service.
// Implementations include Job, TrackMapping, SyncConfig, and SyncHistory.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(ctx context.Context, model T) error                      // Create inserts a new model into the database
	Get(ctx context.Context, id string) (T, error)                  // Get retrieves a model by its ID
	Update(ctx context.Context, model T) error                      // Update modifies an existing model in the database
	Delete(ctx context.Context, id string) error                    // Delete removes a model from the database by its ID
	List(ctx context.Context, criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// Playlist represents a music playlist on the external platform
type Playlist struct {
	ID          string
	Name        string
	Description string
	TrackCount  int
	Public      bool
}

// Track represents a music track on the external platform
type Track struct {
	ID         string
	Title      string
	Artist     string
	Album      string
	Explicit   bool
	Popularity int    // Platform popularity score (0-100)
	Duration   int    // Duration in seconds
	ISRC       string // International Standard Recording Code for matching
}

// PlaylistExport represents a playlist with all its tracks
type PlaylistExport struct {
	Playlist Playlist
	Tracks   []Track
}
