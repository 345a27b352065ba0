package tasks

import "github.com/desertthunder/cleanify/internal/models"

// Delta describes the work needed to bring a target playlist back in line
// with its source after either side changed.
type Delta struct {
	// ToAdd holds resolved clean track IDs missing from the target, in
	// source order.
	ToAdd []string
	// ToRemove holds target track IDs whose source track left the playlist.
	ToRemove []string
	// NeedsMatch holds new source tracks with no stored mapping yet.
	NeedsMatch []models.Track
	// DesiredOrder holds the resolved target-track IDs for every currently
	// mapped source track, in source order.
	DesiredOrder []string
	// Unchanged counts source tracks already present on the target.
	Unchanged int
}

// Empty reports whether the delta requires no playlist mutation.
func (d Delta) Empty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0 && len(d.NeedsMatch) == 0
}

// ComputeDelta diffs the current source and target track lists against the
// stored mappings. It is a pure function: applying the resulting additions
// and removals to target and recomputing yields an empty delta.
//
// Duplicate source tracks collapse to their first occurrence. A removal is
// emitted only when the mapped track is still present on the target, so
// manual target edits cannot produce double removals.
func ComputeDelta(source, target []models.Track, mappings []*models.TrackMapping) Delta {
	bySource := make(map[string]*models.TrackMapping, len(mappings))
	for _, m := range mappings {
		if _, ok := bySource[m.SourceTrackID()]; !ok {
			bySource[m.SourceTrackID()] = m
		}
	}

	targetIDs := make(map[string]struct{}, len(target))
	for _, t := range target {
		targetIDs[t.ID] = struct{}{}
	}

	var delta Delta
	seen := make(map[string]struct{}, len(source))
	sourceIDs := make(map[string]struct{}, len(source))

	for _, t := range source {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		sourceIDs[t.ID] = struct{}{}

		mapping, ok := bySource[t.ID]
		if !ok {
			delta.NeedsMatch = append(delta.NeedsMatch, t)
			continue
		}

		if !mapping.HasCleanMatch() {
			continue
		}

		resolved := mapping.TargetTrackID()
		delta.DesiredOrder = append(delta.DesiredOrder, resolved)

		if _, present := targetIDs[resolved]; present {
			delta.Unchanged++
		} else {
			delta.ToAdd = append(delta.ToAdd, resolved)
		}
	}

	// Reverse index so a target track can be traced back to its source.
	byTarget := make(map[string]string, len(mappings))
	for _, m := range mappings {
		if m.HasCleanMatch() {
			byTarget[m.TargetTrackID()] = m.SourceTrackID()
		}
	}

	removed := make(map[string]struct{})
	for _, t := range target {
		sourceID, mapped := byTarget[t.ID]
		if !mapped {
			// Track added to the target by hand; leave it alone.
			continue
		}
		if _, stillThere := sourceIDs[sourceID]; stillThere {
			continue
		}
		if _, dup := removed[t.ID]; dup {
			continue
		}
		removed[t.ID] = struct{}{}
		delta.ToRemove = append(delta.ToRemove, t.ID)
	}

	return delta
}
