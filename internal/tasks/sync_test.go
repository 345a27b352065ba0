package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/desertthunder/cleanify/internal/models"
	"github.com/desertthunder/cleanify/internal/shared"
)

type memSyncConfigStore struct {
	updated *models.SyncConfig
}

func (s *memSyncConfigStore) Update(ctx context.Context, config *models.SyncConfig) error {
	s.updated = config
	return nil
}

type memSyncHistoryStore struct {
	records []*models.SyncHistory
}

func (s *memSyncHistoryStore) Create(ctx context.Context, history *models.SyncHistory) error {
	s.records = append(s.records, history)
	return nil
}

func (s *memSyncHistoryStore) Finalize(ctx context.Context, history *models.SyncHistory) error {
	return nil
}

func newTestSyncConfig() *models.SyncConfig {
	job := newTestJob("job1")
	job.SetTargetPlaylist("tgt1", "Road Trip (Clean)")
	config := models.NewSyncConfig(1, job, models.FrequencyDaily)
	config.SetID("cfg1")
	return config
}

func newSyncEngine(svc *fakeService, configs *memSyncConfigStore, history *memSyncHistoryStore, mappings *memMappingStore) *SyncEngine {
	matcher := NewTrackMatcher(svc, testLogger(), WithMatcherSleep(noSleep))
	return NewSyncEngine(configs, history, mappings, svc, matcher, testLogger())
}

func seedMappings(t *testing.T, store *memMappingStore, ms ...*models.TrackMapping) {
	t.Helper()
	for _, m := range ms {
		if err := store.Create(context.Background(), m); err != nil {
			t.Fatal(err)
		}
	}
}

func TestRunSyncNoChanges(t *testing.T) {
	svc := newFakeService()
	svc.playlists["src1"] = []models.Track{track("a")}
	svc.playlists["tgt1"] = []models.Track{track("a")}

	config := newTestSyncConfig()
	configs := &memSyncConfigStore{}
	history := &memSyncHistoryStore{}
	mappings := newMemMappingStore()
	seedMappings(t, mappings, mapped("a", "a"))

	engine := newSyncEngine(svc, configs, history, mappings)
	result, err := engine.RunSync(context.Background(), config)
	if err != nil {
		t.Fatal(err)
	}

	if result.Added != 0 || result.Removed != 0 || result.Unchanged != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
	if len(svc.added["tgt1"]) != 0 || len(svc.removed["tgt1"]) != 0 {
		t.Error("expected no playlist mutations")
	}
	if config.LastSyncStatus() != models.SyncCompleted {
		t.Errorf("expected completed status, got %s", config.LastSyncStatus())
	}
	if config.NextScheduledSync() == nil {
		t.Error("expected next run scheduled")
	}
	if len(history.records) != 1 {
		t.Fatalf("expected one history record, got %d", len(history.records))
	}
	if history.records[0].Status() != models.SyncCompleted {
		t.Errorf("expected completed history, got %s", history.records[0].Status())
	}
}

func TestRunSyncAddsAndRemoves(t *testing.T) {
	svc := newFakeService()
	svc.playlists["src1"] = []models.Track{track("a"), track("b")}
	svc.playlists["tgt1"] = []models.Track{track("a"), track("gone-clean")}

	config := newTestSyncConfig()
	mappings := newMemMappingStore()
	seedMappings(t, mappings,
		mapped("a", "a"),
		mapped("b", "b"),
		mapped("gone", "gone-clean"),
	)

	engine := newSyncEngine(svc, &memSyncConfigStore{}, &memSyncHistoryStore{}, mappings)
	result, err := engine.RunSync(context.Background(), config)
	if err != nil {
		t.Fatal(err)
	}

	if result.Added != 1 || result.Removed != 1 || result.Unchanged != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
	if added := svc.added["tgt1"]; len(added) != 1 || added[0] != "b" {
		t.Errorf("expected b added, got %v", added)
	}
	if removed := svc.removed["tgt1"]; len(removed) != 1 || removed[0] != "gone-clean" {
		t.Errorf("expected gone-clean removed, got %v", removed)
	}
}

func TestRunSyncInsertsAtSourcePosition(t *testing.T) {
	// Tracks added mid-playlist on the source land mid-playlist on the
	// target, and a run of consecutive additions goes out as one call.
	// Tracks added to the target by hand stay where they are.
	svc := newFakeService()
	svc.playlists["src1"] = []models.Track{track("a"), track("b"), track("c"), track("d")}
	svc.playlists["tgt1"] = []models.Track{track("extra"), track("a"), track("d")}

	config := newTestSyncConfig()
	mappings := newMemMappingStore()
	seedMappings(t, mappings,
		mapped("a", "a"), mapped("b", "b"), mapped("c", "c"), mapped("d", "d"),
	)

	engine := newSyncEngine(svc, &memSyncConfigStore{}, &memSyncHistoryStore{}, mappings)
	result, err := engine.RunSync(context.Background(), config)
	if err != nil {
		t.Fatal(err)
	}

	if result.Added != 2 || result.Removed != 0 || result.Unchanged != 2 {
		t.Errorf("unexpected result: %+v", result)
	}
	if positions := svc.addPositions["tgt1"]; len(positions) != 1 || positions[0] != 2 {
		t.Errorf("expected one insertion at position 2, got %v", positions)
	}

	got := svc.playlists["tgt1"]
	want := []string{"extra", "a", "b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("expected target order %v, got %d tracks", want, len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestRunSyncResolvesNewTracks(t *testing.T) {
	svc := newFakeService()
	svc.playlists["src1"] = []models.Track{track("a"), explicitTrack("new")}
	svc.playlists["tgt1"] = []models.Track{track("a")}
	svc.searchResults = []models.Track{
		{ID: "new-clean", Title: "Title new", Artist: "Artist"},
	}

	config := newTestSyncConfig()
	mappings := newMemMappingStore()
	seedMappings(t, mappings, mapped("a", "a"))

	engine := newSyncEngine(svc, &memSyncConfigStore{}, &memSyncHistoryStore{}, mappings)
	result, err := engine.RunSync(context.Background(), config)
	if err != nil {
		t.Fatal(err)
	}

	if result.Matched != 1 || result.Added != 1 {
		t.Errorf("unexpected result: %+v", result)
	}
	if added := svc.added["tgt1"]; len(added) != 1 || added[0] != "new-clean" {
		t.Errorf("expected new-clean added, got %v", added)
	}

	stored, _ := mappings.ListByJob(context.Background(), "job1")
	if len(stored) != 2 {
		t.Errorf("expected new mapping persisted, got %d", len(stored))
	}
}

func TestRunSyncInactiveConfig(t *testing.T) {
	config := newTestSyncConfig()
	config.SetActive(false)

	engine := newSyncEngine(newFakeService(), &memSyncConfigStore{}, &memSyncHistoryStore{}, newMemMappingStore())
	_, err := engine.RunSync(context.Background(), config)
	if !errors.Is(err, shared.ErrSyncInactive) {
		t.Errorf("expected ErrSyncInactive, got %v", err)
	}
}

func TestRunSyncTransientFailureStaysActive(t *testing.T) {
	svc := newFakeService()
	svc.listErr["src1"] = errors.New("timeout")

	config := newTestSyncConfig()
	history := &memSyncHistoryStore{}
	engine := newSyncEngine(svc, &memSyncConfigStore{}, history, newMemMappingStore())

	if _, err := engine.RunSync(context.Background(), config); err == nil {
		t.Fatal("expected error")
	}

	if !config.Active() {
		t.Error("expected config to stay active after transient failure")
	}
	if config.LastSyncStatus() != models.SyncFailed {
		t.Errorf("expected failed status, got %s", config.LastSyncStatus())
	}
	if config.LastSyncError() == "" {
		t.Error("expected error message recorded")
	}
	if config.NextScheduledSync() == nil {
		t.Error("expected next run still scheduled")
	}
	if len(history.records) != 1 || history.records[0].Status() != models.SyncFailed {
		t.Error("expected a failed history record")
	}
}

func TestRunSyncAuthFailureDeactivates(t *testing.T) {
	svc := newFakeService()
	svc.listErr["src1"] = fmt.Errorf("refreshing token: %w", shared.ErrTokenExpired)

	config := newTestSyncConfig()
	engine := newSyncEngine(svc, &memSyncConfigStore{}, &memSyncHistoryStore{}, newMemMappingStore())

	if _, err := engine.RunSync(context.Background(), config); err == nil {
		t.Fatal("expected error")
	}

	if config.Active() {
		t.Error("expected config deactivated after auth failure")
	}
	if config.NextScheduledSync() != nil {
		t.Error("expected no next run for deactivated config")
	}
}

func TestRunSyncPartialFailureRecordsCounts(t *testing.T) {
	// Additions succeed, removals fail; the history record keeps the
	// counts of what was applied.
	svc := newFakeService()
	svc.playlists["src1"] = []models.Track{track("b")}
	svc.playlists["tgt1"] = []models.Track{track("gone-clean")}
	svc.removeErr = errors.New("rate limited")

	config := newTestSyncConfig()
	history := &memSyncHistoryStore{}
	mappings := newMemMappingStore()
	seedMappings(t, mappings, mapped("b", "b"), mapped("gone", "gone-clean"))

	engine := newSyncEngine(svc, &memSyncConfigStore{}, history, mappings)
	if _, err := engine.RunSync(context.Background(), config); err == nil {
		t.Fatal("expected error")
	}

	record := history.records[0]
	if record.TracksAdded() != 1 {
		t.Errorf("expected 1 track recorded as added, got %d", record.TracksAdded())
	}
	if record.TracksRemoved() != 0 {
		t.Errorf("expected 0 tracks recorded as removed, got %d", record.TracksRemoved())
	}
	if record.Status() != models.SyncFailed {
		t.Errorf("expected failed record, got %s", record.Status())
	}
}
