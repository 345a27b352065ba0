package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/cleanify/internal/shared"
	"github.com/urfave/cli/v3"
)

// Playlists lists the authenticated user's playlists with optional limit.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}

	r.logger.Infof("listing playlists with limit %v", limit)

	playlists, err := r.spotify.GetPlaylists(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	if useJSON {
		return r.writeJSON(playlists, pretty)
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.TrackCount)
		r.writePlain("\n")
	}

	return nil
}
