package tasks

import (
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/cleanify/internal/models"
	"github.com/desertthunder/cleanify/internal/shared"
)

func TestNextRunTime(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	lastRun := now.Add(-48 * time.Hour)

	tc := []struct {
		name      string
		frequency models.Frequency
		lastRun   *time.Time
		want      time.Time
	}{
		{"daily from last run", models.FrequencyDaily, &lastRun, lastRun.Add(24 * time.Hour)},
		{"weekly from last run", models.FrequencyWeekly, &lastRun, lastRun.Add(7 * 24 * time.Hour)},
		{"daily anchors on now when never run", models.FrequencyDaily, nil, now.Add(24 * time.Hour)},
		{"weekly anchors on now when never run", models.FrequencyWeekly, nil, now.Add(7 * 24 * time.Hour)},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got, err := nextRunTimeAt(tt.frequency, tt.lastRun, now)
			if err != nil {
				t.Fatal(err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	t.Run("unknown frequency", func(t *testing.T) {
		_, err := nextRunTimeAt("hourly", nil, now)
		if !errors.Is(err, shared.ErrUnknownFrequency) {
			t.Errorf("expected ErrUnknownFrequency, got %v", err)
		}
	})
}
