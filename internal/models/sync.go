package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/cleanify/internal/shared"
)

// Frequency controls how often a sync config runs.
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

// ParseFrequency validates a frequency string.
func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case FrequencyDaily, FrequencyWeekly:
		return Frequency(s), nil
	default:
		return "", fmt.Errorf("%w: %q", shared.ErrUnknownFrequency, s)
	}
}

// SyncStatus represents the outcome of a sync run.
type SyncStatus string

const (
	SyncRunning   SyncStatus = "running"
	SyncCompleted SyncStatus = "completed"
	SyncFailed    SyncStatus = "failed"
)

// SyncConfig represents an enabled recurring synchronization between a
// source playlist and the clean target playlist a completed job produced.
//
// At most one active config exists per (user, job). Configs are
// deactivated rather than deleted.
type SyncConfig struct {
	id                 string
	sequence           int
	userID             string
	jobID              string
	sourcePlaylistID   string
	sourcePlaylistName string
	targetPlaylistID   string
	targetPlaylistName string
	active             bool
	frequency          Frequency
	lastSyncedAt       *time.Time
	lastSyncStatus     SyncStatus
	lastSyncError      string
	nextScheduledSync  *time.Time
	createdAt          time.Time
	updatedAt          time.Time
}

// NewSyncConfig creates an active SyncConfig from a completed job.
func NewSyncConfig(sequence int, job *Job, frequency Frequency) *SyncConfig {
	now := time.Now()
	return &SyncConfig{
		sequence:           sequence,
		userID:             job.UserID(),
		jobID:              job.ID(),
		sourcePlaylistID:   job.SourcePlaylistID(),
		sourcePlaylistName: job.SourcePlaylistName(),
		targetPlaylistID:   job.TargetPlaylistID(),
		targetPlaylistName: job.TargetPlaylistName(),
		active:             true,
		frequency:          frequency,
		createdAt:          now,
		updatedAt:          now,
	}
}

func (c *SyncConfig) ID() string                    { return c.id }
func (c *SyncConfig) Sequence() int                 { return c.sequence }
func (c *SyncConfig) UserID() string                { return c.userID }
func (c *SyncConfig) JobID() string                 { return c.jobID }
func (c *SyncConfig) SourcePlaylistID() string      { return c.sourcePlaylistID }
func (c *SyncConfig) SourcePlaylistName() string    { return c.sourcePlaylistName }
func (c *SyncConfig) TargetPlaylistID() string      { return c.targetPlaylistID }
func (c *SyncConfig) TargetPlaylistName() string    { return c.targetPlaylistName }
func (c *SyncConfig) Active() bool                  { return c.active }
func (c *SyncConfig) Frequency() Frequency          { return c.frequency }
func (c *SyncConfig) LastSyncedAt() *time.Time      { return c.lastSyncedAt }
func (c *SyncConfig) LastSyncStatus() SyncStatus    { return c.lastSyncStatus }
func (c *SyncConfig) LastSyncError() string         { return c.lastSyncError }
func (c *SyncConfig) NextScheduledSync() *time.Time { return c.nextScheduledSync }
func (c *SyncConfig) CreatedAt() time.Time          { return c.createdAt }
func (c *SyncConfig) UpdatedAt() time.Time          { return c.updatedAt }

func (c *SyncConfig) SetID(id string)                   { c.id = id }
func (c *SyncConfig) SetSequence(seq int)               { c.sequence = seq }
func (c *SyncConfig) SetCreatedAt(t time.Time)          { c.createdAt = t }
func (c *SyncConfig) SetUpdatedAt(t time.Time)          { c.updatedAt = t }
func (c *SyncConfig) SetActive(active bool)             { c.active = active }
func (c *SyncConfig) SetLastSyncedAt(t *time.Time)      { c.lastSyncedAt = t }
func (c *SyncConfig) SetLastSyncStatus(s SyncStatus)    { c.lastSyncStatus = s }
func (c *SyncConfig) SetLastSyncError(msg string)       { c.lastSyncError = msg }
func (c *SyncConfig) SetNextScheduledSync(t *time.Time) { c.nextScheduledSync = t }
func (c *SyncConfig) SetFrequency(f Frequency)          { c.frequency = f }

// SetPlaylists restores playlist fields when scanning from storage.
func (c *SyncConfig) SetPlaylists(sourceID, sourceName, targetID, targetName string) {
	c.sourcePlaylistID = sourceID
	c.sourcePlaylistName = sourceName
	c.targetPlaylistID = targetID
	c.targetPlaylistName = targetName
}

// SetOwners restores ownership fields when scanning from storage.
func (c *SyncConfig) SetOwners(userID, jobID string) {
	c.userID = userID
	c.jobID = jobID
}

// Validate checks if the config's data is valid.
func (c *SyncConfig) Validate() error {
	if c.userID == "" || c.jobID == "" {
		return fmt.Errorf("sync config requires user and job references")
	}
	if c.sourcePlaylistID == "" || c.targetPlaylistID == "" {
		return fmt.Errorf("sync config requires source and target playlists")
	}
	if _, err := ParseFrequency(string(c.frequency)); err != nil {
		return err
	}
	return nil
}

// SyncHistory is one append-only record of a sync attempt.
type SyncHistory struct {
	id              string
	sequence        int
	syncConfigID    string
	startedAt       time.Time
	completedAt     *time.Time
	status          SyncStatus
	tracksAdded     int
	tracksRemoved   int
	tracksUnchanged int
	errorMessage    string
	executionMS     int64
}

// NewSyncHistory creates a running history entry for the given config.
func NewSyncHistory(sequence int, syncConfigID string) *SyncHistory {
	return &SyncHistory{
		sequence:     sequence,
		syncConfigID: syncConfigID,
		startedAt:    time.Now(),
		status:       SyncRunning,
	}
}

func (h *SyncHistory) ID() string              { return h.id }
func (h *SyncHistory) Sequence() int           { return h.sequence }
func (h *SyncHistory) SyncConfigID() string    { return h.syncConfigID }
func (h *SyncHistory) StartedAt() time.Time    { return h.startedAt }
func (h *SyncHistory) CompletedAt() *time.Time { return h.completedAt }
func (h *SyncHistory) Status() SyncStatus      { return h.status }
func (h *SyncHistory) TracksAdded() int        { return h.tracksAdded }
func (h *SyncHistory) TracksRemoved() int      { return h.tracksRemoved }
func (h *SyncHistory) TracksUnchanged() int    { return h.tracksUnchanged }
func (h *SyncHistory) ErrorMessage() string    { return h.errorMessage }
func (h *SyncHistory) ExecutionMS() int64      { return h.executionMS }
func (h *SyncHistory) CreatedAt() time.Time    { return h.startedAt }
func (h *SyncHistory) UpdatedAt() time.Time    { return h.startedAt }

func (h *SyncHistory) SetID(id string)           { h.id = id }
func (h *SyncHistory) SetSequence(seq int)       { h.sequence = seq }
func (h *SyncHistory) SetStartedAt(t time.Time)  { h.startedAt = t }

// Finalize closes the history entry with the run's outcome.
func (h *SyncHistory) Finalize(status SyncStatus, added, removed, unchanged int, errMsg string) {
	now := time.Now()
	h.completedAt = &now
	h.status = status
	h.tracksAdded = added
	h.tracksRemoved = removed
	h.tracksUnchanged = unchanged
	h.errorMessage = errMsg
	h.executionMS = now.Sub(h.startedAt).Milliseconds()
}

// SetOutcome restores outcome fields when scanning from storage.
func (h *SyncHistory) SetOutcome(completedAt *time.Time, status SyncStatus, added, removed, unchanged int, errMsg string, executionMS int64) {
	h.completedAt = completedAt
	h.status = status
	h.tracksAdded = added
	h.tracksRemoved = removed
	h.tracksUnchanged = unchanged
	h.errorMessage = errMsg
	h.executionMS = executionMS
}

// Validate checks if the history entry's data is valid.
func (h *SyncHistory) Validate() error {
	if h.syncConfigID == "" {
		return fmt.Errorf("sync history requires a config reference")
	}
	switch h.status {
	case SyncRunning, SyncCompleted, SyncFailed:
	default:
		return fmt.Errorf("invalid sync status: %s", h.status)
	}
	return nil
}
