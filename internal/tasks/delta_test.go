package tasks

import (
	"reflect"
	"testing"

	"github.com/desertthunder/cleanify/internal/models"
)

func track(id string) models.Track {
	return models.Track{ID: id, Title: "Title " + id, Artist: "Artist"}
}

func explicitTrack(id string) models.Track {
	t := track(id)
	t.Explicit = true
	return t
}

// mapped builds a stored mapping resolving sourceID to targetID.
func mapped(sourceID, targetID string) *models.TrackMapping {
	m := models.RestoreTrackMapping(0, "job1", sourceID, "Title "+sourceID, "Artist", sourceID != targetID)
	m.SetResolution(targetID, "Title "+targetID, "Artist", true)
	return m
}

// unmatched builds a stored mapping for an explicit track with no clean
// alternative.
func unmatched(sourceID string) *models.TrackMapping {
	return models.RestoreTrackMapping(0, "job1", sourceID, "Title "+sourceID, "Artist", true)
}

func TestComputeDeltaInSync(t *testing.T) {
	source := []models.Track{track("a"), explicitTrack("b")}
	target := []models.Track{track("a"), track("b-clean")}
	mappings := []*models.TrackMapping{mapped("a", "a"), mapped("b", "b-clean")}

	delta := ComputeDelta(source, target, mappings)

	if !delta.Empty() {
		t.Errorf("expected empty delta, got %+v", delta)
	}
	if delta.Unchanged != 2 {
		t.Errorf("expected 2 unchanged, got %d", delta.Unchanged)
	}
	if want := []string{"a", "b-clean"}; !reflect.DeepEqual(delta.DesiredOrder, want) {
		t.Errorf("expected desired order %v, got %v", want, delta.DesiredOrder)
	}
}

func TestComputeDeltaAdditions(t *testing.T) {
	source := []models.Track{track("a"), track("b"), explicitTrack("c")}
	target := []models.Track{track("a")}
	mappings := []*models.TrackMapping{mapped("a", "a"), mapped("b", "b")}

	delta := ComputeDelta(source, target, mappings)

	if want := []string{"b"}; !reflect.DeepEqual(delta.ToAdd, want) {
		t.Errorf("expected additions %v, got %v", want, delta.ToAdd)
	}
	if len(delta.NeedsMatch) != 1 || delta.NeedsMatch[0].ID != "c" {
		t.Errorf("expected c to need matching, got %v", delta.NeedsMatch)
	}
	if len(delta.ToRemove) != 0 {
		t.Errorf("expected no removals, got %v", delta.ToRemove)
	}
}

func TestComputeDeltaRemovals(t *testing.T) {
	source := []models.Track{track("a")}
	target := []models.Track{track("a"), track("b-clean")}
	mappings := []*models.TrackMapping{mapped("a", "a"), mapped("b", "b-clean")}

	delta := ComputeDelta(source, target, mappings)

	if want := []string{"b-clean"}; !reflect.DeepEqual(delta.ToRemove, want) {
		t.Errorf("expected removals %v, got %v", want, delta.ToRemove)
	}
	if len(delta.ToAdd) != 0 {
		t.Errorf("expected no additions, got %v", delta.ToAdd)
	}
}

func TestComputeDeltaSkipsManualTargetEdits(t *testing.T) {
	// A track the user added to the target by hand has no mapping and must
	// never be removed.
	source := []models.Track{track("a")}
	target := []models.Track{track("a"), track("manual")}
	mappings := []*models.TrackMapping{mapped("a", "a")}

	delta := ComputeDelta(source, target, mappings)

	if len(delta.ToRemove) != 0 {
		t.Errorf("expected manual addition untouched, got removals %v", delta.ToRemove)
	}
}

func TestComputeDeltaAlreadyRemovedFromTarget(t *testing.T) {
	// Source track left and its clean copy is already gone from the target;
	// no double removal.
	source := []models.Track{track("a")}
	target := []models.Track{track("a")}
	mappings := []*models.TrackMapping{mapped("a", "a"), mapped("b", "b-clean")}

	delta := ComputeDelta(source, target, mappings)

	if len(delta.ToRemove) != 0 {
		t.Errorf("expected no removals, got %v", delta.ToRemove)
	}
}

func TestComputeDeltaUnmatchedTracksStayAbsent(t *testing.T) {
	source := []models.Track{track("a"), explicitTrack("b")}
	target := []models.Track{track("a")}
	mappings := []*models.TrackMapping{mapped("a", "a"), unmatched("b")}

	delta := ComputeDelta(source, target, mappings)

	if !delta.Empty() {
		t.Errorf("expected empty delta, got %+v", delta)
	}
}

func TestComputeDeltaDuplicateSourceTracks(t *testing.T) {
	source := []models.Track{track("a"), track("a"), track("b")}
	target := []models.Track{}
	mappings := []*models.TrackMapping{mapped("a", "a"), mapped("b", "b")}

	delta := ComputeDelta(source, target, mappings)

	if want := []string{"a", "b"}; !reflect.DeepEqual(delta.ToAdd, want) {
		t.Errorf("expected first-occurrence additions %v, got %v", want, delta.ToAdd)
	}
}

func TestComputeDeltaIdempotent(t *testing.T) {
	source := []models.Track{track("a"), track("b"), explicitTrack("c")}
	target := []models.Track{track("stale")}
	mappings := []*models.TrackMapping{
		mapped("a", "a"),
		mapped("b", "b"),
		mapped("c", "c-clean"),
		mapped("stale-source", "stale"),
	}

	delta := ComputeDelta(source, target, mappings)

	// Apply the delta to the target.
	next := make(map[string]models.Track)
	for _, t := range target {
		next[t.ID] = t
	}
	for _, id := range delta.ToRemove {
		delete(next, id)
	}
	for _, id := range delta.ToAdd {
		next[id] = track(id)
	}
	var applied []models.Track
	for _, id := range delta.DesiredOrder {
		if tr, ok := next[id]; ok {
			applied = append(applied, tr)
		}
	}

	second := ComputeDelta(source, applied, mappings)
	if !second.Empty() {
		t.Errorf("expected recomputed delta to be empty, got %+v", second)
	}
	if second.Unchanged != len(delta.DesiredOrder) {
		t.Errorf("expected %d unchanged, got %d", len(delta.DesiredOrder), second.Unchanged)
	}
}
