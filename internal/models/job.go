package models

import (
	"fmt"
	"time"
)

// JobStatus represents the lifecycle state of a cleanup job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// validJobTransitions maps each status to the statuses it may move to.
var validJobTransitions = map[JobStatus][]JobStatus{
	JobPending:    {JobProcessing},
	JobProcessing: {JobCompleted, JobFailed, JobProcessing},
	JobCompleted:  {},
	JobFailed:     {JobProcessing}, // restart-from-zero after failure
}

// CanTransition reports whether a job may move from its current status to next.
func (s JobStatus) CanTransition(next JobStatus) bool {
	for _, allowed := range validJobTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Job represents one playlist cleanup run: the transformation of a source
// playlist into a clean target playlist.
//
// A job is owned exclusively by the pipeline executing it; counters are
// updated via read-modify-write against the repository, never shared
// in-memory across goroutines.
type Job struct {
	id                 string
	sequence           int
	userID             string
	sourcePlaylistID   string
	sourcePlaylistName string
	targetPlaylistID   string // empty until the target playlist is created
	targetPlaylistName string
	status             JobStatus
	totalTracks        int
	processedTracks    int
	matchedTracks      int
	currentBatch       string
	errorMessage       string
	createdAt          time.Time
	updatedAt          time.Time
}

// NewJob creates a pending Job for the given user and source playlist.
func NewJob(sequence int, userID, sourcePlaylistID, sourcePlaylistName string) *Job {
	now := time.Now()
	return &Job{
		sequence:           sequence,
		userID:             userID,
		sourcePlaylistID:   sourcePlaylistID,
		sourcePlaylistName: sourcePlaylistName,
		status:             JobPending,
		createdAt:          now,
		updatedAt:          now,
	}
}

func (j *Job) ID() string                 { return j.id }
func (j *Job) Sequence() int              { return j.sequence }
func (j *Job) UserID() string             { return j.userID }
func (j *Job) SourcePlaylistID() string   { return j.sourcePlaylistID }
func (j *Job) SourcePlaylistName() string { return j.sourcePlaylistName }
func (j *Job) TargetPlaylistID() string   { return j.targetPlaylistID }
func (j *Job) TargetPlaylistName() string { return j.targetPlaylistName }
func (j *Job) Status() JobStatus          { return j.status }
func (j *Job) TotalTracks() int           { return j.totalTracks }
func (j *Job) ProcessedTracks() int       { return j.processedTracks }
func (j *Job) MatchedTracks() int         { return j.matchedTracks }
func (j *Job) CurrentBatch() string       { return j.currentBatch }
func (j *Job) ErrorMessage() string       { return j.errorMessage }
func (j *Job) CreatedAt() time.Time       { return j.createdAt }
func (j *Job) UpdatedAt() time.Time       { return j.updatedAt }

func (j *Job) SetID(id string)                { j.id = id }
func (j *Job) SetSequence(seq int)            { j.sequence = seq }
func (j *Job) SetUpdatedAt(t time.Time)       { j.updatedAt = t }
func (j *Job) SetCreatedAt(t time.Time)       { j.createdAt = t }
func (j *Job) SetCurrentBatch(b string)       { j.currentBatch = b }
func (j *Job) SetTotalTracks(n int)           { j.totalTracks = n }
func (j *Job) SetProcessedTracks(n int)       { j.processedTracks = n }
func (j *Job) SetMatchedTracks(n int)         { j.matchedTracks = n }
func (j *Job) SetErrorMessage(msg string)     { j.errorMessage = msg }
func (j *Job) SetStatusUnchecked(s JobStatus) { j.status = s }

// SetTargetPlaylist records the created target playlist.
func (j *Job) SetTargetPlaylist(id, name string) {
	j.targetPlaylistID = id
	j.targetPlaylistName = name
}

// Transition moves the job to the next status, enforcing the state machine
// pending → processing → {completed, failed}.
func (j *Job) Transition(next JobStatus) error {
	if !j.status.CanTransition(next) {
		return fmt.Errorf("invalid job transition %s → %s", j.status, next)
	}
	j.status = next
	j.updatedAt = time.Now()
	return nil
}

// Validate checks if the job's data is valid.
func (j *Job) Validate() error {
	if j.userID == "" {
		return fmt.Errorf("job user ID is required")
	}
	if j.sourcePlaylistID == "" {
		return fmt.Errorf("job source playlist ID is required")
	}
	switch j.status {
	case JobPending, JobProcessing, JobCompleted, JobFailed:
	default:
		return fmt.Errorf("invalid job status: %s", j.status)
	}
	if j.processedTracks < 0 || j.matchedTracks < 0 || j.totalTracks < 0 {
		return fmt.Errorf("job counters must not be negative")
	}
	return nil
}
