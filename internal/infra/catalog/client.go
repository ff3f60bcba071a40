package catalog

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/osa030/playlog/internal/domain/playlist"
)

// Config represents the retry policy of the driver.
type Config struct {
	// MaxRetries bounds rate-limit and transient retries for one playlist.
	MaxRetries int
	// DefaultRetryAfter is used when the catalog gives no backoff hint, and
	// as the base delay for transient failures.
	DefaultRetryAfter time.Duration
	// MaxRetryAfter caps any single wait.
	MaxRetryAfter time.Duration
}

// Client fetches whole playlists through a Catalog.
type Client struct {
	catalog           Catalog
	maxRetries        int
	defaultRetryAfter time.Duration
	maxRetryAfter     time.Duration
	sleep             func(ctx context.Context, d time.Duration) error
}

// New creates a new Client.
func New(c Catalog, cfg Config) *Client {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.DefaultRetryAfter <= 0 {
		cfg.DefaultRetryAfter = time.Second
	}
	if cfg.MaxRetryAfter <= 0 {
		cfg.MaxRetryAfter = 5 * time.Second
	}
	return &Client{
		catalog:           c,
		maxRetries:        cfg.MaxRetries,
		defaultRetryAfter: cfg.DefaultRetryAfter,
		maxRetryAfter:     cfg.MaxRetryAfter,
		sleep:             sleepContext,
	}
}

// fetchState is the retry budget of one FetchPlaylist call.
type fetchState struct {
	retries  int
	reauthed bool
}

// FetchPlaylist retrieves every entry of a playlist, following pages until
// the catalog reports no more. Any error aborts the whole fetch.
func (c *Client) FetchPlaylist(ctx context.Context, playlistID string) (*playlist.Playlist, error) {
	log := zerolog.Ctx(ctx)
	state := &fetchState{}
	p := &playlist.Playlist{ID: playlistID}

	offset := 0
	for {
		page, err := c.fetchPage(ctx, state, playlistID, offset)
		if err != nil {
			return nil, err
		}

		for i, item := range page.Items {
			position := offset + i + 1
			if item.Track == nil {
				p.Skipped = append(p.Skipped, position)
				continue
			}
			t := *item.Track
			t.Position = position
			p.Tracks = append(p.Tracks, t)
		}

		log.Debug().
			Str("playlist_id", playlistID).
			Int("offset", offset).
			Int("items", len(page.Items)).
			Int("total", page.Total).
			Msg("fetched playlist page")

		if !page.HasMore || len(page.Items) == 0 {
			break
		}
		offset += len(page.Items)
	}

	name, err := c.catalog.PlaylistName(ctx, playlistID)
	if err != nil {
		log.Debug().Err(err).Str("playlist_id", playlistID).Msg("playlist name unavailable")
	} else {
		p.Name = name
	}

	return p, nil
}

// fetchPage fetches one page, re-authenticating once per playlist and
// retrying throttled or transient failures within the shared budget.
func (c *Client) fetchPage(ctx context.Context, state *fetchState, playlistID string, offset int) (*Page, error) {
	log := zerolog.Ctx(ctx)
	for {
		page, err := c.catalog.FetchPage(ctx, playlistID, offset)
		if err == nil {
			return page, nil
		}

		kind := KindOf(err)
		switch {
		case kind == KindAuth:
			if state.reauthed {
				return nil, err
			}
			state.reauthed = true
			log.Info().Msg("catalog rejected credential, re-authenticating")
			if rerr := c.catalog.RefreshToken(ctx); rerr != nil {
				return nil, rerr
			}

		case kind.Retryable():
			if state.retries >= c.maxRetries {
				return nil, errors.Wrapf(err, "giving up after %d retries", state.retries)
			}
			state.retries++
			wait := c.backoff(err, state.retries)
			log.Warn().
				Err(err).
				Int("attempt", state.retries).
				Int("max_retries", c.maxRetries).
				Dur("wait", wait).
				Msg("catalog request failed, retrying")
			if serr := c.sleep(ctx, wait); serr != nil {
				return nil, NewError(KindTransient, serr)
			}

		default:
			return nil, err
		}
	}
}

// backoff returns how long to wait before retry number attempt.
func (c *Client) backoff(err error, attempt int) time.Duration {
	var wait time.Duration
	if KindOf(err) == KindRateLimit {
		wait = RetryAfterOf(err)
		if wait <= 0 {
			wait = c.defaultRetryAfter
		}
	} else {
		wait = c.defaultRetryAfter * time.Duration(attempt)
	}
	if wait > c.maxRetryAfter {
		wait = c.maxRetryAfter
	}
	return wait
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
