package tasks

import (
	"fmt"
	"time"

	"github.com/desertthunder/cleanify/internal/models"
	"github.com/desertthunder/cleanify/internal/shared"
)

// NextRunTime computes when a sync should next run. With no prior run the
// schedule anchors on the current time, so a freshly enabled daily sync
// first fires roughly a day later.
func NextRunTime(frequency models.Frequency, lastRun *time.Time) (time.Time, error) {
	return nextRunTimeAt(frequency, lastRun, time.Now())
}

func nextRunTimeAt(frequency models.Frequency, lastRun *time.Time, now time.Time) (time.Time, error) {
	anchor := now
	if lastRun != nil {
		anchor = *lastRun
	}

	switch frequency {
	case models.FrequencyDaily:
		return anchor.Add(24 * time.Hour), nil
	case models.FrequencyWeekly:
		return anchor.Add(7 * 24 * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", shared.ErrUnknownFrequency, frequency)
	}
}
