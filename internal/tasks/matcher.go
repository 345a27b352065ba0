package tasks

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cleanify/internal/models"
	"github.com/desertthunder/cleanify/internal/services"
	"github.com/desertthunder/cleanify/internal/shared"
	"github.com/sahilm/fuzzy"
)

const (
	matcherMaxAttempts = 3
	matcherBaseBackoff = 250 * time.Millisecond
	exactTitleBonus    = 1 << 20
)

// TrackMatcher resolves a source track to a clean alternative on the
// external platform.
//
// Non-explicit tracks are treated as already clean and map to themselves.
// Explicit tracks are searched by artist and title; the best candidate
// requires an exact artist match, then prefers the same album, then higher
// platform popularity, then the closest title. A track with no clean
// candidate is recorded as unmatched, never as a job failure.
type TrackMatcher struct {
	service     services.Service
	logger      *log.Logger
	maxAttempts int
	sleep       func(time.Duration) // injectable for tests
}

// MatcherOption configures a TrackMatcher.
type MatcherOption func(*TrackMatcher)

// WithMatcherSleep injects the backoff sleep function for tests.
func WithMatcherSleep(sleep func(time.Duration)) MatcherOption {
	return func(m *TrackMatcher) { m.sleep = sleep }
}

// WithMatcherAttempts bounds search retries.
func WithMatcherAttempts(attempts int) MatcherOption {
	return func(m *TrackMatcher) {
		if attempts > 0 {
			m.maxAttempts = attempts
		}
	}
}

// NewTrackMatcher creates a matcher backed by the given platform service.
func NewTrackMatcher(service services.Service, logger *log.Logger, opts ...MatcherOption) *TrackMatcher {
	m := &TrackMatcher{
		service:     service,
		logger:      logger,
		maxAttempts: matcherMaxAttempts,
		sleep:       time.Sleep,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Resolve produces the TrackMapping for one source track.
//
// Search failures degrade to "no clean match" after bounded retries; a
// single unresolvable track must never abort the whole job. A cancelled
// context is the one exception: the search never ran to completion, so
// Resolve returns the context error instead of an unmatched mapping that
// a later run would wrongly trust.
func (m *TrackMatcher) Resolve(ctx context.Context, jobID string, source models.Track) (*models.TrackMapping, error) {
	if !source.Explicit {
		return models.NewTrackMapping(0, jobID, source, nil), nil
	}

	candidates, err := m.search(ctx, source)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		if m.logger != nil {
			m.logger.Warn("track search failed, recording as unmatched",
				"job_id", jobID, "track", source.Title, "artist", source.Artist, "err", err)
		}
		return models.NewTrackMapping(0, jobID, source, nil), nil
	}

	best := selectCleanCandidate(source, candidates)
	return models.NewTrackMapping(0, jobID, source, best), nil
}

// search queries the platform with bounded retry and backoff. The platform
// client retries transport-level failures itself; this layer bounds the
// whole search so one bad track cannot stall the pipeline.
func (m *TrackMatcher) search(ctx context.Context, source models.Track) ([]models.Track, error) {
	query := fmt.Sprintf("track:%s artist:%s", source.Title, source.Artist)

	var lastErr error
	for attempt := 0; attempt < m.maxAttempts; attempt++ {
		if attempt > 0 {
			m.sleep(matcherBackoff(attempt - 1))
		}

		candidates, err := m.service.SearchTracks(ctx, query)
		if err == nil {
			return candidates, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// matcherBackoff computes the exponential backoff with jitter for the given attempt.
func matcherBackoff(attempt int) time.Duration {
	delay := matcherBaseBackoff * time.Duration(1<<attempt)
	jitter := time.Duration(rand.Int63n(int64(matcherBaseBackoff / 2)))
	return delay + jitter
}

// selectCleanCandidate picks the best clean alternative, or nil when none
// qualifies. Artist must match exactly (case-insensitive); ties break on
// same album, then popularity, then fuzzy title similarity.
func selectCleanCandidate(source models.Track, candidates []models.Track) *models.Track {
	var eligible []models.Track
	for _, c := range candidates {
		if c.Explicit || c.ID == "" {
			continue
		}
		if !strings.EqualFold(c.Artist, source.Artist) {
			continue
		}
		eligible = append(eligible, c)
	}

	if len(eligible) == 0 {
		return nil
	}

	titles := make([]string, len(eligible))
	for i, c := range eligible {
		titles[i] = strings.ToLower(c.Title)
	}

	// fuzzy.Find returns only matching titles; everything else scores
	// below any match. An exact title always outranks a partial one, so
	// "Song" beats "Song (Remix)".
	titleScores := make(map[int]int, len(eligible))
	for _, match := range fuzzy.Find(strings.ToLower(source.Title), titles) {
		titleScores[match.Index] = match.Score
	}
	sourceKey := shared.NormalizeTrackKey(source.Title, source.Artist)
	for i, c := range eligible {
		if shared.NormalizeTrackKey(c.Title, c.Artist) == sourceKey {
			titleScores[i] += exactTitleBonus
		}
	}

	bestIdx := 0
	for i := 1; i < len(eligible); i++ {
		if candidateLess(source, eligible[bestIdx], titleScores[bestIdx], eligible[i], titleScores[i]) {
			bestIdx = i
		}
	}

	best := eligible[bestIdx]
	return &best
}

// candidateLess reports whether challenger outranks current.
func candidateLess(source models.Track, current models.Track, currentScore int, challenger models.Track, challengerScore int) bool {
	currentAlbum := strings.EqualFold(current.Album, source.Album)
	challengerAlbum := strings.EqualFold(challenger.Album, source.Album)
	if currentAlbum != challengerAlbum {
		return challengerAlbum
	}

	if current.Popularity != challenger.Popularity {
		return challenger.Popularity > current.Popularity
	}

	return challengerScore > currentScore
}
