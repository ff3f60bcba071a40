// Package convert provides the playlist conversion service.
package convert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/osa030/playlog/internal/app/mapper"
	"github.com/osa030/playlog/internal/app/render"
	"github.com/osa030/playlog/internal/domain/logsheet"
	"github.com/osa030/playlog/internal/domain/playlist"
)

// ShowDateLayout is the accepted show date input format.
const ShowDateLayout = "2006-01-02"

// Request is one conversion request.
type Request struct {
	PlaylistURL string
	Format      logsheet.Format
	ShowTitle   string
	ShowDate    string
}

// Result is the outcome of a successful conversion.
type Result struct {
	PlaylistName string
	Body         string
	Warnings     []string
	TrackCount   int
}

// PlaylistFetcher retrieves a whole playlist.
type PlaylistFetcher interface {
	FetchPlaylist(ctx context.Context, playlistID string) (*playlist.Playlist, error)
}

// Service converts playlists into log sheets.
type Service struct {
	fetcher PlaylistFetcher
}

// NewService creates a new Service.
func NewService(fetcher PlaylistFetcher) *Service {
	return &Service{fetcher: fetcher}
}

// Convert fetches the playlist named by req and renders it in the requested
// format. Catalog errors are returned unchanged; nothing is rendered for a
// partially fetched playlist.
func (s *Service) Convert(ctx context.Context, req Request) (*Result, error) {
	log := zerolog.Ctx(ctx)

	id, show, err := validate(req)
	if err != nil {
		return nil, err
	}

	p, err := s.fetcher.FetchPlaylist(ctx, id)
	if err != nil {
		return nil, err
	}

	m := mapper.New(req.Format, show)
	rows := make([]logsheet.Row, 0, len(p.Tracks))
	warnings := make([]string, 0)
	for _, t := range p.Tracks {
		row, w := m.Map(t, t.Position)
		rows = append(rows, row)
		warnings = append(warnings, w...)
	}
	for _, pos := range p.Skipped {
		warnings = append(warnings, fmt.Sprintf("Item %d: not a track (podcast episodes and removed items are skipped)", pos))
	}

	body, err := render.CSV(rows, req.Format)
	if err != nil {
		return nil, errors.Wrap(err, "failed to render playlist")
	}

	log.Info().
		Str("playlist_id", id).
		Str("format", req.Format.String()).
		Int("tracks", len(rows)).
		Int("skipped", len(p.Skipped)).
		Int("local_files", p.LocalCount()).
		Dur("total_duration", p.TotalDuration()).
		Int("warnings", len(warnings)).
		Msg("playlist converted")

	return &Result{
		PlaylistName: p.Name,
		Body:         body,
		Warnings:     warnings,
		TrackCount:   len(rows),
	}, nil
}

func validate(req Request) (string, logsheet.Show, error) {
	var show logsheet.Show

	id, err := playlist.ParseID(req.PlaylistURL)
	if err != nil {
		return "", show, &ValidationError{Field: "playlist_url", Message: playlist.ErrInvalidURL.Error()}
	}

	if !req.Format.Valid() {
		return "", show, &ValidationError{Field: "format", Message: `format must be "new" or "old"`}
	}
	if !req.Format.RequiresShow() {
		return id, show, nil
	}

	show.Title = strings.TrimSpace(req.ShowTitle)
	if show.Title == "" {
		return "", show, &ValidationError{Field: "show_title", Message: "show title is required for the old playlist editor"}
	}

	date := strings.TrimSpace(req.ShowDate)
	if date == "" {
		return "", show, &ValidationError{Field: "show_date", Message: "show date is required for the old playlist editor"}
	}
	show.Date, err = time.Parse(ShowDateLayout, date)
	if err != nil {
		return "", show, &ValidationError{Field: "show_date", Message: "show date must be a date like 2024-03-15"}
	}

	return id, show, nil
}
