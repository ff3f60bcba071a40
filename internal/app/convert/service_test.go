package convert

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/playlog/internal/domain/logsheet"
	"github.com/osa030/playlog/internal/domain/playlist"
	"github.com/osa030/playlog/internal/domain/track"
	"github.com/osa030/playlog/internal/infra/catalog"
)

const playlistURL = "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc"

type fakeFetcher struct {
	playlist *playlist.Playlist
	err      error
	calls    int
	lastID   string
}

func (f *fakeFetcher) FetchPlaylist(_ context.Context, id string) (*playlist.Playlist, error) {
	f.calls++
	f.lastID = id
	if f.err != nil {
		return nil, f.err
	}
	return f.playlist, nil
}

func twoTracks() *playlist.Playlist {
	return &playlist.Playlist{
		ID:   "37i9dQZF1DXcBWIGoYBM5M",
		Name: "Tuesday late show",
		Tracks: []track.Track{
			{
				Position:    1,
				Title:       "Range Life",
				Artists:     []string{"Pavement"},
				Album:       "Crooked Rain, Crooked Rain",
				Label:       "Matador",
				ReleaseYear: 1994,
				Duration:    4*time.Minute + 54*time.Second,
			},
			{
				Position: 2,
				Title:    "voice memo 0412",
				Duration: 61 * time.Second,
				IsLocal:  true,
			},
		},
	}
}

func TestService_Convert_NewEditor(t *testing.T) {
	f := &fakeFetcher{playlist: twoTracks()}
	s := NewService(f)

	res, err := s.Convert(context.Background(), Request{PlaylistURL: playlistURL, Format: logsheet.NewEditor})
	require.NoError(t, err)

	assert.Equal(t, "37i9dQZF1DXcBWIGoYBM5M", f.lastID)
	assert.Equal(t, "Tuesday late show", res.PlaylistName)
	assert.Equal(t, 2, res.TrackCount)
	assert.Equal(t, []string{"Track 2: local file metadata unavailable"}, res.Warnings)

	lines := strings.Split(strings.TrimSuffix(res.Body, "\r\n"), "\r\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "title,duration,performer,album,year,label,composer,notes", lines[0])
	assert.Equal(t, "Range Life,04:54,Pavement,\"Crooked Rain, Crooked Rain\",1994,Matador,,", lines[1])
	assert.Equal(t, "voice memo 0412,01:01,,,,,,", lines[2])
}

func TestService_Convert_OldEditor(t *testing.T) {
	f := &fakeFetcher{playlist: twoTracks()}
	s := NewService(f)

	res, err := s.Convert(context.Background(), Request{
		PlaylistURL: playlistURL,
		Format:      logsheet.OldEditor,
		ShowTitle:   "  Night Moves  ",
		ShowDate:    "2025-03-07",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Track 1: composer unknown",
		"Track 2: local file metadata unavailable",
		"Track 2: composer unknown",
	}, res.Warnings)

	lines := strings.Split(strings.TrimSuffix(res.Body, "\r\n"), "\r\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "Night Moves,03/07/25,Range Life,"))
	assert.True(t, strings.HasPrefix(lines[2], "Night Moves,03/07/25,voice memo 0412,"))
}

func TestService_Convert_SkippedItems(t *testing.T) {
	p := twoTracks()
	p.Tracks[1].Position = 3
	p.Skipped = []int{2}
	s := NewService(&fakeFetcher{playlist: p})

	res, err := s.Convert(context.Background(), Request{PlaylistURL: playlistURL, Format: logsheet.NewEditor})
	require.NoError(t, err)

	assert.Equal(t, 2, res.TrackCount)
	assert.Equal(t, []string{
		"Track 3: local file metadata unavailable",
		"Item 2: not a track (podcast episodes and removed items are skipped)",
	}, res.Warnings)
}

func TestService_Convert_EmptyPlaylist(t *testing.T) {
	s := NewService(&fakeFetcher{playlist: &playlist.Playlist{ID: "x"}})

	res, err := s.Convert(context.Background(), Request{PlaylistURL: playlistURL, Format: logsheet.NewEditor})
	require.NoError(t, err)

	assert.NotNil(t, res.Warnings)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, "title,duration,performer,album,year,label,composer,notes\r\n", res.Body)
}

func TestService_Convert_Idempotent(t *testing.T) {
	s := NewService(&fakeFetcher{playlist: twoTracks()})
	req := Request{PlaylistURL: playlistURL, Format: logsheet.OldEditor, ShowTitle: "Night Moves", ShowDate: "2025-03-07"}

	first, err := s.Convert(context.Background(), req)
	require.NoError(t, err)
	second, err := s.Convert(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Body, second.Body)
	assert.Equal(t, first.Warnings, second.Warnings)
}

func TestService_Convert_Validation(t *testing.T) {
	tests := []struct {
		name  string
		req   Request
		field string
	}{
		{
			name:  "not a url",
			req:   Request{PlaylistURL: "not-a-url", Format: logsheet.NewEditor},
			field: "playlist_url",
		},
		{
			name:  "track url",
			req:   Request{PlaylistURL: "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", Format: logsheet.NewEditor},
			field: "playlist_url",
		},
		{
			name:  "unknown format",
			req:   Request{PlaylistURL: playlistURL},
			field: "format",
		},
		{
			name:  "old editor without show title",
			req:   Request{PlaylistURL: playlistURL, Format: logsheet.OldEditor, ShowDate: "2025-03-07"},
			field: "show_title",
		},
		{
			name:  "old editor with blank show title",
			req:   Request{PlaylistURL: playlistURL, Format: logsheet.OldEditor, ShowTitle: "   ", ShowDate: "2025-03-07"},
			field: "show_title",
		},
		{
			name:  "old editor without show date",
			req:   Request{PlaylistURL: playlistURL, Format: logsheet.OldEditor, ShowTitle: "Night Moves"},
			field: "show_date",
		},
		{
			name:  "old editor with bad show date",
			req:   Request{PlaylistURL: playlistURL, Format: logsheet.OldEditor, ShowTitle: "Night Moves", ShowDate: "03/07/2025"},
			field: "show_date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{playlist: twoTracks()}
			s := NewService(f)

			res, err := s.Convert(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, 0, f.calls)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, ClassValidation, Classify(err))
			assert.Equal(t, verr.Message, UserMessage(err))
		})
	}
}

func TestService_Convert_NewEditorIgnoresShowFields(t *testing.T) {
	s := NewService(&fakeFetcher{playlist: twoTracks()})

	_, err := s.Convert(context.Background(), Request{PlaylistURL: playlistURL, Format: logsheet.NewEditor, ShowDate: "garbage"})
	assert.NoError(t, err)
}

func TestService_Convert_CatalogErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		class   Class
		message string
	}{
		{
			name:    "rate limited beyond retry budget",
			err:     errors.Wrap(catalog.NewError(catalog.KindRateLimit, errors.New("429")), "giving up after 3 retries"),
			class:   ClassRateLimit,
			message: "the music catalog is busy, try again later",
		},
		{
			name:    "transient",
			err:     catalog.NewError(catalog.KindTransient, errors.New("timeout")),
			class:   ClassTransient,
			message: "the music catalog is busy, try again later",
		},
		{
			name:    "not found",
			err:     catalog.NewError(catalog.KindNotFound, errors.New("404")),
			class:   ClassNotFound,
			message: "playlist not found or private",
		},
		{
			name:    "auth",
			err:     catalog.NewError(catalog.KindAuth, errors.New("invalid_client")),
			class:   ClassAuth,
			message: "service authentication failed",
		},
		{
			name:    "unclassified",
			err:     errors.New("unexpected catalog response (HTTP 418)"),
			class:   ClassInternal,
			message: "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewService(&fakeFetcher{err: tt.err})

			res, err := s.Convert(context.Background(), Request{PlaylistURL: playlistURL, Format: logsheet.NewEditor})
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, tt.err, err)
			assert.Equal(t, tt.class, Classify(err))
			assert.Equal(t, tt.message, UserMessage(err))
		})
	}
}
