package models

import (
	"fmt"
	"time"
)

// TrackMapping records the resolution of one source track within a job.
//
// Exactly one mapping exists per (job, source track) pair. A non-explicit
// source track maps to itself with HasCleanMatch true. Mappings are
// immutable once written; later sync runs read them as the set of
// already-resolved tracks.
type TrackMapping struct {
	id               string
	sequence         int
	jobID            string
	sourceTrackID    string
	sourceTrackName  string
	sourceArtistName string
	isExplicit       bool
	targetTrackID    string // empty when no clean match exists
	targetTrackName  string
	targetArtistName string
	hasCleanMatch    bool
	createdAt        time.Time
}

// NewTrackMapping creates a mapping for an explicit track resolved to the
// given target. Pass an empty target ID for an unmatched track.
func NewTrackMapping(sequence int, jobID string, source Track, target *Track) *TrackMapping {
	m := &TrackMapping{
		sequence:         sequence,
		jobID:            jobID,
		sourceTrackID:    source.ID,
		sourceTrackName:  source.Title,
		sourceArtistName: source.Artist,
		isExplicit:       source.Explicit,
		createdAt:        time.Now(),
	}

	if !source.Explicit {
		// Already clean: the track maps to itself.
		m.targetTrackID = source.ID
		m.targetTrackName = source.Title
		m.targetArtistName = source.Artist
		m.hasCleanMatch = true
		return m
	}

	if target != nil {
		m.targetTrackID = target.ID
		m.targetTrackName = target.Title
		m.targetArtistName = target.Artist
		m.hasCleanMatch = true
	}

	return m
}

func (m *TrackMapping) ID() string               { return m.id }
func (m *TrackMapping) Sequence() int            { return m.sequence }
func (m *TrackMapping) JobID() string            { return m.jobID }
func (m *TrackMapping) SourceTrackID() string    { return m.sourceTrackID }
func (m *TrackMapping) SourceTrackName() string  { return m.sourceTrackName }
func (m *TrackMapping) SourceArtistName() string { return m.sourceArtistName }
func (m *TrackMapping) IsExplicit() bool         { return m.isExplicit }
func (m *TrackMapping) TargetTrackID() string    { return m.targetTrackID }
func (m *TrackMapping) TargetTrackName() string  { return m.targetTrackName }
func (m *TrackMapping) TargetArtistName() string { return m.targetArtistName }
func (m *TrackMapping) HasCleanMatch() bool      { return m.hasCleanMatch }
func (m *TrackMapping) CreatedAt() time.Time     { return m.createdAt }
func (m *TrackMapping) UpdatedAt() time.Time     { return m.createdAt } // immutable

func (m *TrackMapping) SetID(id string)          { m.id = id }
func (m *TrackMapping) SetSequence(seq int)      { m.sequence = seq }
func (m *TrackMapping) SetCreatedAt(t time.Time) { m.createdAt = t }

// SetResolution restores resolution fields when scanning from storage.
func (m *TrackMapping) SetResolution(targetID, targetName, targetArtist string, hasMatch bool) {
	m.targetTrackID = targetID
	m.targetTrackName = targetName
	m.targetArtistName = targetArtist
	m.hasCleanMatch = hasMatch
}

// Validate checks if the mapping's data is valid.
func (m *TrackMapping) Validate() error {
	if m.jobID == "" {
		return fmt.Errorf("mapping job ID is required")
	}
	if m.sourceTrackID == "" {
		return fmt.Errorf("mapping source track ID is required")
	}
	if m.hasCleanMatch && m.targetTrackID == "" {
		return fmt.Errorf("mapping with clean match must have a target track")
	}
	if !m.isExplicit && !m.hasCleanMatch {
		return fmt.Errorf("non-explicit track must map to itself")
	}
	return nil
}

// RestoreTrackMapping rebuilds a mapping from raw storage fields.
func RestoreTrackMapping(sequence int, jobID, sourceID, sourceName, sourceArtist string, explicit bool) *TrackMapping {
	return &TrackMapping{
		sequence:         sequence,
		jobID:            jobID,
		sourceTrackID:    sourceID,
		sourceTrackName:  sourceName,
		sourceArtistName: sourceArtist,
		isExplicit:       explicit,
	}
}
