package tasks

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/cleanify/internal/shared"
)

func TestNewProgressTracker(t *testing.T) {
	t.Run("rejects non-positive totals", func(t *testing.T) {
		for _, total := range []int{0, -1} {
			if _, err := NewProgressTracker(total, 0, 0); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("total=%d: expected ErrInvalidArgument, got %v", total, err)
			}
		}
	})

	t.Run("persist cadence never finer than report cadence", func(t *testing.T) {
		tracker, err := NewProgressTracker(100, 20, 5)
		if err != nil {
			t.Fatal(err)
		}
		if tracker.persistEvery < tracker.reportEvery {
			t.Errorf("persistEvery %d finer than reportEvery %d", tracker.persistEvery, tracker.reportEvery)
		}
	})
}

func TestBatchSize(t *testing.T) {
	tc := []struct {
		name    string
		total   int
		percent int
		want    int
	}{
		{"hundred tracks at five percent", 100, 5, 5},
		{"thousand tracks at five percent", 1000, 5, 50},
		{"small playlist floors at one", 10, 5, 1},
		{"single track", 1, 5, 1},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := batchSize(tt.total, tt.percent); got != tt.want {
				t.Errorf("batchSize(%d, %d) = %d, want %d", tt.total, tt.percent, got, tt.want)
			}
		})
	}
}

func TestShouldReportCount(t *testing.T) {
	// Around twenty reports regardless of playlist size, plus start and end.
	for _, total := range []int{10, 100, 1000, 10000} {
		clock := time.Now()
		tracker, err := NewProgressTracker(total, 0, 0, WithClock(func() time.Time { return clock }))
		if err != nil {
			t.Fatal(err)
		}

		reports := 0
		for i := 0; i <= total; i++ {
			if tracker.ShouldReport(i) {
				reports++
			}
		}

		if reports < 2 {
			t.Errorf("total=%d: expected at least start and end reports, got %d", total, reports)
		}
		if total >= 100 && (reports < 18 || reports > 25) {
			t.Errorf("total=%d: expected roughly twenty reports, got %d", total, reports)
		}
	}
}

func TestShouldReportBoundaries(t *testing.T) {
	clock := time.Now()
	tracker, err := NewProgressTracker(100, 0, 0, WithClock(func() time.Time { return clock }))
	if err != nil {
		t.Fatal(err)
	}

	if !tracker.ShouldReport(0) {
		t.Error("expected report at index 0")
	}
	if tracker.ShouldReport(3) {
		t.Error("did not expect report at index 3")
	}
	if !tracker.ShouldReport(5) {
		t.Error("expected report at batch boundary 5")
	}
	if !tracker.ShouldReport(100) {
		t.Error("expected report at final index")
	}
}

func TestShouldReportInterval(t *testing.T) {
	clock := time.Now()
	tracker, err := NewProgressTracker(1000, 0, 0, WithClock(func() time.Time { return clock }))
	if err != nil {
		t.Fatal(err)
	}

	if tracker.ShouldReport(3) {
		t.Fatal("did not expect report at off-boundary index")
	}

	clock = clock.Add(reportInterval + time.Second)
	if !tracker.ShouldReport(4) {
		t.Error("expected report after interval elapsed")
	}

	// The interval report resets the clock reference.
	if tracker.ShouldReport(6) {
		t.Error("did not expect another interval report immediately after")
	}
}

func TestShouldPersist(t *testing.T) {
	tracker, err := NewProgressTracker(100, 5, 10)
	if err != nil {
		t.Fatal(err)
	}

	if tracker.ShouldPersist(0) {
		t.Error("did not expect persist at index 0")
	}
	if tracker.ShouldPersist(5) {
		t.Error("did not expect persist at report boundary 5")
	}
	if !tracker.ShouldPersist(10) {
		t.Error("expected persist at boundary 10")
	}
	if !tracker.ShouldPersist(100) {
		t.Error("expected persist at final index")
	}
}

func TestSnapshotMessages(t *testing.T) {
	tracker, err := NewProgressTracker(40, 0, 0)
	if err != nil {
		t.Fatal(err)
	}

	start := tracker.Snapshot(0, "")
	if start.Message != "Initializing..." || start.Percent != 0 {
		t.Errorf("unexpected start snapshot: %+v", start)
	}

	mid := tracker.Snapshot(20, "Some Song")
	if !strings.Contains(mid.Message, "Some Song") {
		t.Errorf("expected track name in message, got %q", mid.Message)
	}
	if mid.Percent != 50 {
		t.Errorf("expected 50%%, got %d", mid.Percent)
	}
	if !strings.HasPrefix(mid.Batch, "Processing tracks ") {
		t.Errorf("unexpected batch label %q", mid.Batch)
	}

	end := tracker.Snapshot(40, "")
	if end.Message != "Finalizing..." || end.Percent != 100 {
		t.Errorf("unexpected end snapshot: %+v", end)
	}
}

func TestCheckIndexPanics(t *testing.T) {
	tracker, err := NewProgressTracker(10, 0, 0)
	if err != nil {
		t.Fatal(err)
	}

	for _, index := range []int{-1, 11} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("expected panic for index %d", index)
				}
			}()
			tracker.Snapshot(index, "")
		}()
	}
}
