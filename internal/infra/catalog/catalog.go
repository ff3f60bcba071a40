// Package catalog fetches complete playlists from a music catalog.
//
// The network side is the Catalog interface; Client drives it page by page
// and owns the retry and re-authentication policy, so the policy can be
// exercised against scripted fakes.
package catalog

import (
	"context"

	"github.com/osa030/playlog/internal/domain/track"
)

// Catalog is the minimal capability the driver needs from a music catalog.
type Catalog interface {
	// FetchPage returns the playlist entries starting at offset.
	FetchPage(ctx context.Context, playlistID string, offset int) (*Page, error)
	// RefreshToken discards the cached credential and obtains a new one.
	RefreshToken(ctx context.Context) error
	// PlaylistName returns the playlist's display name.
	PlaylistName(ctx context.Context, playlistID string) (string, error)
}

// Page is one page of playlist entries.
type Page struct {
	Items   []Item
	Total   int
	HasMore bool
}

// Item is one playlist entry. Track is nil for entries that are not music
// tracks (podcast episodes, removed tracks).
type Item struct {
	Track *track.Track
}
