// package services defines interface Service for interacting with music platform HTTP APIs
package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/cleanify/internal/models"
	"github.com/desertthunder/cleanify/internal/shared"
	"golang.org/x/oauth2"
)

// Service defines the interface for music platform providers that can read
// and mutate playlists and search the platform catalog.
type Service interface {
	// Authenticate performs OAuth or API key authentication with the platform.
	// Returns an error if authentication fails.
	Authenticate(ctx context.Context, credentials map[string]string) error

	// GetPlaylists retrieves all playlists for the authenticated user.
	GetPlaylists(ctx context.Context) ([]models.Playlist, error)

	// GetPlaylist retrieves a specific playlist by ID.
	GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error)

	// ListPlaylistTracks retrieves the full ordered track list of a playlist,
	// paging through the platform API transparently.
	ListPlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error)

	// CreatePlaylist creates a new private playlist for the authenticated user.
	CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error)

	// AddTracks inserts tracks into a playlist in the given order, starting
	// at position. A negative position appends.
	AddTracks(ctx context.Context, playlistID string, trackIDs []string, position int) error

	// RemoveTracks removes all occurrences of the given tracks from a playlist.
	RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error

	// SearchTracks searches the platform catalog and returns candidate tracks.
	SearchTracks(ctx context.Context, query string) ([]models.Track, error)

	// Name returns the name of the platform (e.g., "Spotify")
	Name() string
}

// OAuthService is implemented by platforms that authenticate users through
// the OAuth2 authorization code flow.
type OAuthService interface {
	GetAuthURL(state string) string
	OAuthConfig() *oauth2.Config
	SetToken(token *oauth2.Token)
}

// NewService creates the Service implementation for the given platform
// identifier. Each platform implements the same matching contract, so the
// cleanup engine is platform-agnostic.
func NewService(platform string, credentials map[string]string) (Service, error) {
	switch platform {
	case "spotify":
		return NewSpotifyService(credentials)
	default:
		return nil, fmt.Errorf("%w: %s", shared.ErrUnknownPlatform, platform)
	}
}
