package spotify

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"

	"github.com/osa030/playlog/internal/infra/catalog"
)

// tokenCache holds the client-credentials token shared by all requests of
// the process. The token is replaced wholesale on refresh.
type tokenCache struct {
	config  *clientcredentials.Config
	timeout time.Duration
	current atomic.Pointer[oauth2.Token]
	group   singleflight.Group
}

func newTokenCache(cfg *clientcredentials.Config, timeout time.Duration) *tokenCache {
	return &tokenCache{
		config:  cfg,
		timeout: timeout,
	}
}

// Token implements oauth2.TokenSource.
func (c *tokenCache) Token() (*oauth2.Token, error) {
	tok := c.current.Load()
	if tok != nil && tok.Valid() {
		return tok, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.refresh(ctx, tok)
}

// invalidate forces a new exchange regardless of the cached token's expiry.
func (c *tokenCache) invalidate(ctx context.Context) error {
	_, err := c.refresh(ctx, c.current.Load())
	return err
}

// refresh exchanges the client credentials for a new token unless another
// caller already replaced stale. Concurrent callers share one exchange.
func (c *tokenCache) refresh(ctx context.Context, stale *oauth2.Token) (*oauth2.Token, error) {
	v, err, _ := c.group.Do("token", func() (any, error) {
		if cur := c.current.Load(); cur != nil && cur != stale && cur.Valid() {
			return cur, nil
		}
		tok, err := c.config.Token(ctx)
		if err != nil {
			return nil, classifyTokenError(err)
		}
		c.current.Store(tok)
		zlog.Debug().Time("expiry", tok.Expiry).Msg("obtained catalog access token")
		return tok, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*oauth2.Token), nil
}

// classifyTokenError treats a rejected exchange as an auth failure and
// everything else as transient.
func classifyTokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		status := re.Response.StatusCode
		kind := catalog.KindTransient
		switch {
		case status == http.StatusTooManyRequests:
			kind = catalog.KindRateLimit
		case status >= 400 && status < 500:
			kind = catalog.KindAuth
		}
		return &catalog.Error{
			Kind:   kind,
			Status: status,
			Err:    errors.Newf("token exchange rejected: %s", re.ErrorCode),
		}
	}
	return catalog.NewError(catalog.KindTransient, errors.Wrap(err, "token exchange failed"))
}
