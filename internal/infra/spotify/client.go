// Package spotify implements the playlist catalog on top of the Spotify Web API.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"

	"github.com/osa030/playlog/internal/domain/track"
	"github.com/osa030/playlog/internal/infra/catalog"
)

const (
	// DefaultAPIBaseURL is the Spotify Web API root.
	DefaultAPIBaseURL = "https://api.spotify.com/v1/"
	// maxAlbumsPerRequest is the several-albums endpoint limit.
	maxAlbumsPerRequest = 20
	// maxPageSize is the playlist items endpoint limit.
	maxPageSize = 100
)

// Config represents Spotify client configuration.
type Config struct {
	ClientID          string
	ClientSecret      string
	Market            string
	APIBaseURL        string
	TokenURL          string
	PageSize          int
	RequestTimeout    time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Catalog is a catalog.Catalog backed by the Spotify Web API using the
// client-credentials flow. It is safe for concurrent use.
type Catalog struct {
	client     *spotify.Client
	httpClient *http.Client
	tokens     *tokenCache
	limiter    *rate.Limiter
	baseURL    string
	market     string
	pageSize   int
}

var _ catalog.Catalog = (*Catalog)(nil)

// New creates a new Spotify catalog. No request is made until first use.
func New(cfg Config) (*Catalog, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("spotify credentials are required")
	}

	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if !strings.HasSuffix(cfg.APIBaseURL, "/") {
		cfg.APIBaseURL += "/"
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = spotifyauth.TokenURL
	}
	if cfg.PageSize <= 0 || cfg.PageSize > maxPageSize {
		cfg.PageSize = 50
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 5 * time.Second
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	tokens := newTokenCache(&clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}, cfg.RequestTimeout)

	httpClient := &http.Client{
		Timeout: cfg.RequestTimeout,
		Transport: &oauth2.Transport{
			Source: tokens,
			Base:   &metaTransport{base: http.DefaultTransport},
		},
	}

	return &Catalog{
		client:     spotify.New(httpClient, spotify.WithBaseURL(cfg.APIBaseURL)),
		httpClient: httpClient,
		tokens:     tokens,
		limiter:    rate.NewLimiter(limit, cfg.Burst),
		baseURL:    cfg.APIBaseURL,
		market:     cfg.Market,
		pageSize:   cfg.PageSize,
	}, nil
}

// RefreshToken discards the cached token and exchanges the credentials again.
func (c *Catalog) RefreshToken(ctx context.Context) error {
	return c.tokens.invalidate(ctx)
}

// FetchPage retrieves one page of playlist entries, with record labels
// resolved from the albums endpoint.
func (c *Catalog) FetchPage(ctx context.Context, playlistID string, offset int) (*catalog.Page, error) {
	opts := []spotify.RequestOption{
		spotify.Limit(c.pageSize),
		spotify.Offset(offset),
	}
	if c.market != "" {
		opts = append(opts, spotify.Market(c.market))
	}

	var page *spotify.PlaylistItemPage
	err := c.call(ctx, "failed to get playlist items", func(ctx context.Context) error {
		p, err := c.client.GetPlaylistItems(ctx, spotify.ID(playlistID), opts...)
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := &catalog.Page{
		Items:   make([]catalog.Item, 0, len(page.Items)),
		Total:   int(page.Total),
		HasMore: page.Next != "",
	}
	albumIDs := make([]string, 0, len(page.Items))
	seen := make(map[string]bool)
	for _, item := range page.Items {
		// Only tracks carry log data (episodes and removed tracks are skipped)
		if item.Track.Track == nil {
			out.Items = append(out.Items, catalog.Item{})
			continue
		}
		t := c.convertTrack(item.Track.Track)
		out.Items = append(out.Items, catalog.Item{Track: t})

		albumID := string(item.Track.Track.Album.ID)
		if !t.IsLocal && albumID != "" && !seen[albumID] {
			seen[albumID] = true
			albumIDs = append(albumIDs, albumID)
		}
	}

	labels, err := c.albumLabels(ctx, albumIDs)
	if err != nil {
		return nil, err
	}
	for i, item := range page.Items {
		if t := out.Items[i].Track; t != nil && !t.IsLocal {
			t.Label = labels[string(item.Track.Track.Album.ID)]
		}
	}

	return out, nil
}

// PlaylistName retrieves the playlist's display name.
func (c *Catalog) PlaylistName(ctx context.Context, playlistID string) (string, error) {
	var name string
	err := c.call(ctx, "failed to get playlist", func(ctx context.Context) error {
		p, err := c.client.GetPlaylist(ctx, spotify.ID(playlistID), spotify.Fields("name"))
		if err != nil {
			return err
		}
		name = p.Name
		return nil
	})
	return name, err
}

// call runs one rate limited catalog request and classifies its failure.
func (c *Catalog) call(ctx context.Context, msg string, fn func(ctx context.Context) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return catalog.NewError(catalog.KindTransient, errors.Wrap(err, msg))
	}
	ctx, meta := withResponseMeta(ctx)
	if err := fn(ctx); err != nil {
		status, retryAfter := meta.get()
		return classify(errors.Wrap(err, msg), status, retryAfter)
	}
	return nil
}

type albumsResponse struct {
	Albums []*struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	} `json:"albums"`
}

// albumLabels looks up record labels, which playlist items do not carry.
func (c *Catalog) albumLabels(ctx context.Context, ids []string) (map[string]string, error) {
	labels := make(map[string]string, len(ids))
	for start := 0; start < len(ids); start += maxAlbumsPerRequest {
		end := min(start+maxAlbumsPerRequest, len(ids))

		q := url.Values{}
		q.Set("ids", strings.Join(ids[start:end], ","))
		if c.market != "" {
			q.Set("market", c.market)
		}

		var resp albumsResponse
		err := c.call(ctx, "failed to get albums", func(ctx context.Context) error {
			return c.getJSON(ctx, c.baseURL+"albums?"+q.Encode(), &resp)
		})
		if err != nil {
			return nil, err
		}
		for _, a := range resp.Albums {
			if a != nil {
				labels[a.ID] = a.Label
			}
		}
	}
	return labels, nil
}

func (c *Catalog) getJSON(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return errors.Newf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}

// classify maps a failed call onto the catalog error kinds. Errors that
// already carry a kind (token exchange failures) pass through.
func classify(err error, status int, retryAfter time.Duration) error {
	if catalog.KindOf(err) != catalog.KindUnknown {
		return err
	}

	var kind catalog.Kind
	switch {
	case status == 0:
		// no response: network failure or timeout
		kind = catalog.KindTransient
	case status == http.StatusUnauthorized:
		kind = catalog.KindAuth
	case status == http.StatusBadRequest, status == http.StatusForbidden, status == http.StatusNotFound:
		// Spotify answers 400 for malformed ids and 403/404 for private playlists
		kind = catalog.KindNotFound
	case status == http.StatusTooManyRequests:
		kind = catalog.KindRateLimit
	case status >= 500:
		kind = catalog.KindTransient
	default:
		return errors.Wrapf(err, "unexpected catalog response (HTTP %d)", status)
	}
	return &catalog.Error{Kind: kind, Status: status, RetryAfter: retryAfter, Err: err}
}

// convertTrack converts a Spotify FullTrack to domain Track.
func (c *Catalog) convertTrack(t *spotify.FullTrack) *track.Track {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		if name := strings.TrimSpace(a.Name); name != "" {
			artists = append(artists, name)
		}
	}

	isLocal := t.ID == "" || strings.HasPrefix(string(t.URI), "spotify:local:")

	var trackURL string
	if !isLocal {
		trackURL = GetTrackURL(string(t.ID))
	}

	return &track.Track{
		ID:          string(t.ID),
		Title:       t.Name,
		Artists:     artists,
		Album:       t.Album.Name,
		ReleaseYear: releaseYear(t.Album.ReleaseDate),
		Duration:    time.Duration(t.Duration) * time.Millisecond,
		IsLocal:     isLocal,
		URL:         trackURL,
	}
}

// GetTrackURL returns the Spotify URL for a track.
func GetTrackURL(trackID string) string {
	return fmt.Sprintf("https://open.spotify.com/track/%s", trackID)
}

// releaseYear extracts the year from a release date of any precision
// ("1994", "1994-02", "1994-02-14").
func releaseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
