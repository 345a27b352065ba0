// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/cleanify/internal/models"
)

// MockService is a test double for [services.Service]
type MockService struct {
	Playlists    []models.Playlist
	Tracks       map[string][]models.Track
	SearchResult []models.Track
	Err          error
}

func (m *MockService) Authenticate(ctx context.Context, credentials map[string]string) error {
	return m.Err
}

func (m *MockService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	return m.Playlists, m.Err
}

func (m *MockService) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for _, p := range m.Playlists {
		if p.ID == playlistID {
			return &p, nil
		}
	}
	return &models.Playlist{ID: playlistID}, nil
}

func (m *MockService) ListPlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Tracks[playlistID], nil
}

func (m *MockService) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return &models.Playlist{ID: "mock-playlist", Name: name, Description: description}, nil
}

func (m *MockService) AddTracks(ctx context.Context, playlistID string, trackIDs []string, position int) error {
	return m.Err
}

func (m *MockService) RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	return m.Err
}

func (m *MockService) SearchTracks(ctx context.Context, query string) ([]models.Track, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.SearchResult, nil
}

func (m *MockService) Name() string { return "mock" }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}
