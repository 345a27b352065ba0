// package formatter exports cleanup job reports to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/desertthunder/cleanify/internal/models"
	"github.com/desertthunder/cleanify/internal/shared"
)

// ReportToCSV renders a job's track mappings as CSV with one row per source track.
func ReportToCSV(mappings []*models.TrackMapping) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Source ID", "Source Title", "Artist", "Explicit", "Clean ID", "Clean Title", "Matched"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, m := range mappings {
		record := []string{
			m.SourceTrackID(),
			m.SourceTrackName(),
			m.SourceArtistName(),
			boolString(m.IsExplicit()),
			m.TargetTrackID(),
			m.TargetTrackName(),
			boolString(m.HasCleanMatch()),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ReportToMarkdown renders a cleanup report: job summary plus per-track
// resolution, with unmatched tracks called out at the end.
func ReportToMarkdown(job *models.Job, mappings []*models.TrackMapping) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", job.SourcePlaylistName()))
	if job.TargetPlaylistName() != "" {
		buf.WriteString(fmt.Sprintf("**Clean copy**: %s\n", job.TargetPlaylistName()))
	}
	buf.WriteString(fmt.Sprintf("**Status**: %s\n", job.Status()))
	buf.WriteString(fmt.Sprintf("**Tracks**: %d total, %d matched\n\n", job.TotalTracks(), job.MatchedTracks()))

	buf.WriteString("## Tracks\n\n")
	var unmatched []*models.TrackMapping
	for i, m := range mappings {
		if !m.HasCleanMatch() {
			unmatched = append(unmatched, m)
			buf.WriteString(fmt.Sprintf("%d. %s - %s *(no clean version found)*\n", i+1, m.SourceArtistName(), m.SourceTrackName()))
			continue
		}
		if m.IsExplicit() {
			buf.WriteString(fmt.Sprintf("%d. %s - %s → %s\n", i+1, m.SourceArtistName(), m.SourceTrackName(), m.TargetTrackName()))
			continue
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, m.SourceArtistName(), m.SourceTrackName()))
	}

	if len(unmatched) > 0 {
		buf.WriteString(fmt.Sprintf("\n## Unmatched (%d)\n\n", len(unmatched)))
		for _, m := range unmatched {
			buf.WriteString(fmt.Sprintf("- %s - %s\n", m.SourceArtistName(), m.SourceTrackName()))
		}
	}

	return buf.Bytes(), nil
}

// ReportToText renders a plain text cleanup report.
func ReportToText(job *models.Job, mappings []*models.TrackMapping) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", job.SourcePlaylistName()))
	buf.WriteString(fmt.Sprintf("Status: %s\n", job.Status()))
	buf.WriteString(fmt.Sprintf("Tracks: %d total, %d matched\n\n", job.TotalTracks(), job.MatchedTracks()))

	for i, m := range mappings {
		marker := ""
		if !m.HasCleanMatch() {
			marker = " [unmatched]"
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s%s\n", i+1, m.SourceArtistName(), m.SourceTrackName(), marker))
	}

	return buf.Bytes(), nil
}

// ToJobJSON generates a JSON representation of the job's summary fields.
func ToJobJSON(job *models.Job) ([]byte, error) {
	summary := struct {
		ID                 string `json:"id"`
		SourcePlaylistName string `json:"source_playlist_name"`
		TargetPlaylistName string `json:"target_playlist_name,omitempty"`
		Status             string `json:"status"`
		TotalTracks        int    `json:"total_tracks"`
		ProcessedTracks    int    `json:"processed_tracks"`
		MatchedTracks      int    `json:"matched_tracks"`
		ErrorMessage       string `json:"error_message,omitempty"`
	}{
		ID:                 job.ID(),
		SourcePlaylistName: job.SourcePlaylistName(),
		TargetPlaylistName: job.TargetPlaylistName(),
		Status:             string(job.Status()),
		TotalTracks:        job.TotalTracks(),
		ProcessedTracks:    job.ProcessedTracks(),
		MatchedTracks:      job.MatchedTracks(),
		ErrorMessage:       job.ErrorMessage(),
	}
	return shared.MarshalJSON(summary, true)
}

// WriteReport writes a report in the given format ("csv", "markdown" or
// "text") to path. An empty path defaults to the job ID plus extension.
func WriteReport(job *models.Job, mappings []*models.TrackMapping, format, path string) (string, error) {
	var (
		data []byte
		ext  string
		err  error
	)

	switch format {
	case "csv":
		data, err = ReportToCSV(mappings)
		ext = ".csv"
	case "markdown", "md":
		data, err = ReportToMarkdown(job, mappings)
		ext = ".md"
	case "text", "txt":
		data, err = ReportToText(job, mappings)
		ext = ".txt"
	default:
		return "", fmt.Errorf("%w: unknown report format %q", shared.ErrInvalidInput, format)
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate report: %w", err)
	}

	if path == "" {
		path = job.ID() + ext
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	return path, nil
}

func boolString(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
