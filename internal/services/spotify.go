// Spotify API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/desertthunder/cleanify/internal/models"
	"github.com/desertthunder/cleanify/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// Transient failures (429, 5xx, transport errors) are retried with
	// exponential backoff before surfacing to the caller.
	spotifyMaxAttempts = 3
	spotifyBaseBackoff = 500 * time.Millisecond

	// Spotify allows ~180 requests per minute per client.
	spotifyRequestsPerSecond = 3
)

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email"`
	Country     string    `json:"country"`
	Product     string    `json:"product"` // premium, free, etc.
	Followers   followers `json:"followers"`
}

type externalIDs struct {
	ISRC string `json:"isrc"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       SpotifyAlbum    `json:"album"`
	DurationMS  int             `json:"duration_ms"`
	Explicit    bool            `json:"explicit"`
	ExternalIDs externalIDs     `json:"external_ids"`
	Popularity  int             `json:"popularity"`
	URI         string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ReleaseDate string `json:"release_date"`
	TotalTracks int    `json:"total_tracks"`
	URI         string `json:"uri"`
}

type owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
type SpotifyPlaylistTrack struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

type playlistTracks struct {
	Total int `json:"total"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Owner       owner          `json:"owner"`
	Public      bool           `json:"public"`
	Tracks      playlistTracks `json:"tracks"`
	URI         string         `json:"uri"`
}

// SpotifyPaginatedPlaylistTracks represents a paginated response of playlist items.
type SpotifyPaginatedPlaylistTracks struct {
	Items    []SpotifyPlaylistTrack `json:"items"`
	Total    int                    `json:"total"`
	Limit    int                    `json:"limit"`
	Offset   int                    `json:"offset"`
	Next     *string                `json:"next"`
	Previous *string                `json:"previous"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items    []SpotifyPlaylist `json:"items"`
	Total    int               `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
	Next     *string           `json:"next"`
	Previous *string           `json:"previous"`
}

type searchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

// SpotifyService implements the Service interface for Spotify API interactions.
// Uses [oauth2] for authentication, a [rate.Limiter] shared across all calls,
// and bounded retry with backoff for transient failures.
type SpotifyService struct {
	config      *oauth2.Config
	token       *oauth2.Token
	httpClient  *http.Client
	credentials map[string]string
	limiter     *rate.Limiter
	userID      string
	maxAttempts int
	sleep       func(time.Duration) // injectable for tests
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("missing client_id in credentials")
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("missing client_secret in credentials")
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"user-read-email",
			"playlist-read-private",
			"playlist-read-collaborative",
			"playlist-modify-public",
			"playlist-modify-private",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:      config,
		httpClient:  http.DefaultClient,
		credentials: credentials,
		limiter:     rate.NewLimiter(rate.Limit(spotifyRequestsPerSecond), 1),
		maxAttempts: spotifyMaxAttempts,
		sleep:       time.Sleep,
	}, nil
}

// Authenticate performs OAuth2 authentication with Spotify. Expects either an "access_token" or "auth_code" in credentials.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken, ok := credentials["access_token"]; ok && accessToken != "" {
		s.token = &oauth2.Token{AccessToken: accessToken}
		return nil
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		token, err := s.config.Exchange(ctx, authCode)
		if err != nil {
			return fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
		}
		s.token = token
		return nil
	}

	return fmt.Errorf("%w: missing access_token or auth_code in credentials", shared.ErrMissingCredentials)
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// OAuthConfig returns the OAuth2 config for the authorization code flow.
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// SetToken installs a previously obtained OAuth2 token.
func (s *SpotifyService) SetToken(token *oauth2.Token) {
	s.token = token
}

// backoffDelay computes the exponential backoff with jitter for the given attempt.
func backoffDelay(attempt int) time.Duration {
	delay := spotifyBaseBackoff * time.Duration(1<<attempt)
	jitter := time.Duration(rand.Int63n(int64(spotifyBaseBackoff / 2)))
	return delay + jitter
}

// doRequest performs an authenticated HTTP request to the Spotify API with
// rate limiting and bounded retry on transient failures.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body any, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	apiURL := spotifyBaseURL + endpoint

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = data
	}

	var lastErr error
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		if attempt > 0 {
			s.sleep(backoffDelay(attempt - 1))
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrTimeout, err)
		}

		var reqBody io.Reader
		if payload != nil {
			reqBody = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, apiURL, reqBody)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("Authorization", "Bearer "+s.token.AccessToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
			if ctx.Err() != nil {
				return lastErr
			}
			continue
		}

		retryable, retryAfter, err := s.handleResponse(resp, result)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return lastErr
		}
		if retryAfter > 0 {
			s.sleep(retryAfter)
		}
	}

	return lastErr
}

// handleResponse decodes a successful response or classifies the failure.
// Returns whether the failure is retryable and any Retry-After delay.
func (s *SpotifyService) handleResponse(resp *http.Response, result any) (bool, time.Duration, error) {
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if result != nil {
			if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
				return false, 0, fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return false, 0, nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		var retryAfter time.Duration
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			retryAfter = time.Duration(secs) * time.Second
		}
		return true, retryAfter, fmt.Errorf("%w: status %d", shared.ErrRateLimited, resp.StatusCode)
	}

	if resp.StatusCode >= 500 {
		return true, 0, fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return false, 0, fmt.Errorf("%w: status %d", shared.ErrTokenExpired, resp.StatusCode)
	}

	return false, 0, fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// currentUserID returns the authenticated user's ID, cached after the first lookup.
func (s *SpotifyService) currentUserID(ctx context.Context) (string, error) {
	if s.userID != "" {
		return s.userID, nil
	}

	user, err := s.UserProfile(ctx)
	if err != nil {
		return "", err
	}

	s.userID = user.ID
	return s.userID, nil
}

// Playlist retrieves a playlist by ID.
func (s *SpotifyService) Playlist(ctx context.Context, playlistID string) (*SpotifyPlaylist, error) {
	endpoint := fmt.Sprintf("/playlists/%s", playlistID)

	var playlist SpotifyPlaylist
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &playlist); err != nil {
		return nil, err
	}

	return &playlist, nil
}

// UserPlaylists retrieves the current user's playlists with pagination.
func (s *SpotifyService) UserPlaylists(ctx context.Context, limit, offset int) (*SpotifyPaginatedPlaylists, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)

	var response SpotifyPaginatedPlaylists
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// Service interface implementation

// GetPlaylists retrieves all playlists for the authenticated user.
func (s *SpotifyService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var allPlaylists []models.Playlist
	limit := 50
	offset := 0

	for {
		response, err := s.UserPlaylists(ctx, limit, offset)
		if err != nil {
			return nil, err
		}

		for _, sp := range response.Items {
			allPlaylists = append(allPlaylists, models.Playlist{
				ID:          sp.ID,
				Name:        sp.Name,
				Description: sp.Description,
				TrackCount:  sp.Tracks.Total,
				Public:      sp.Public,
			})
		}

		if response.Next == nil {
			break
		}
		offset += limit
	}

	return allPlaylists, nil
}

// GetPlaylist retrieves a specific playlist by ID.
func (s *SpotifyService) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	sp, err := s.Playlist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	return &models.Playlist{
		ID:          sp.ID,
		Name:        sp.Name,
		Description: sp.Description,
		TrackCount:  sp.Tracks.Total,
		Public:      sp.Public,
	}, nil
}

// ListPlaylistTracks retrieves the full ordered track list of a playlist, paging transparently.
func (s *SpotifyService) ListPlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	var tracks []models.Track
	limit := 100
	offset := 0

	for {
		endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", playlistID, limit, offset)

		var response SpotifyPaginatedPlaylistTracks
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
			return nil, err
		}

		for _, item := range response.Items {
			// Local files and removed tracks come back with an empty ID.
			if item.Track.ID == "" {
				continue
			}
			tracks = append(tracks, toModelTrack(item.Track))
		}

		if response.Next == nil {
			break
		}
		offset += limit
	}

	return tracks, nil
}

// CreatePlaylist creates a new private playlist for the authenticated user.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, name, description string) (*models.Playlist, error) {
	userID, err := s.currentUserID(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      false,
	}

	var created SpotifyPlaylist
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &created); err != nil {
		return nil, err
	}

	return &models.Playlist{
		ID:          created.ID,
		Name:        created.Name,
		Description: created.Description,
		TrackCount:  created.Tracks.Total,
		Public:      created.Public,
	}, nil
}

// AddTracks inserts tracks into a playlist in the given order, in chunks of
// 100. A negative position appends; otherwise each chunk's position advances
// so the tracks land contiguously starting at position.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, trackIDs []string, position int) error {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)

	offset := 0
	for _, chunk := range chunkIDs(trackIDs, 100) {
		uris := make([]string, len(chunk))
		for i, id := range chunk {
			uris[i] = "spotify:track:" + id
		}

		body := map[string]any{"uris": uris}
		if position >= 0 {
			body["position"] = position + offset
		}
		if err := s.doRequest(ctx, http.MethodPost, endpoint, body, nil); err != nil {
			return err
		}
		offset += len(chunk)
	}

	return nil
}

// RemoveTracks removes all occurrences of the given tracks from a playlist, in chunks of 100.
func (s *SpotifyService) RemoveTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", playlistID)

	for _, chunk := range chunkIDs(trackIDs, 100) {
		items := make([]map[string]string, len(chunk))
		for i, id := range chunk {
			items[i] = map[string]string{"uri": "spotify:track:" + id}
		}

		body := map[string]any{"tracks": items}
		if err := s.doRequest(ctx, http.MethodDelete, endpoint, body, nil); err != nil {
			return err
		}
	}

	return nil
}

// SearchTracks searches the Spotify catalog and returns candidate tracks.
func (s *SpotifyService) SearchTracks(ctx context.Context, query string) ([]models.Track, error) {
	endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=20", url.QueryEscape(query))

	var response searchResponse
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(response.Tracks.Items))
	for _, item := range response.Tracks.Items {
		tracks = append(tracks, toModelTrack(item))
	}

	return tracks, nil
}

// toModelTrack converts a Spotify API track to the service-neutral DTO.
func toModelTrack(st SpotifyTrack) models.Track {
	track := models.Track{
		ID:         st.ID,
		Title:      st.Name,
		Album:      st.Album.Name,
		Explicit:   st.Explicit,
		Popularity: st.Popularity,
		Duration:   st.DurationMS / 1000,
		ISRC:       st.ExternalIDs.ISRC,
	}

	if len(st.Artists) > 0 {
		track.Artist = st.Artists[0].Name
	}

	return track
}

// chunkIDs splits ids into slices of at most size elements.
func chunkIDs(ids []string, size int) [][]string {
	var chunks [][]string
	for len(ids) > size {
		chunks = append(chunks, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}
