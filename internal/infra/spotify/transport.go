package spotify

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

type metaKey struct{}

// responseMeta records the status and backoff hint of the last response
// received for one catalog call.
type responseMeta struct {
	mu         sync.Mutex
	status     int
	retryAfter time.Duration
}

func withResponseMeta(ctx context.Context) (context.Context, *responseMeta) {
	m := &responseMeta{}
	return context.WithValue(ctx, metaKey{}, m), m
}

func (m *responseMeta) record(resp *http.Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = resp.StatusCode
	m.retryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
}

func (m *responseMeta) get() (int, time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, m.retryAfter
}

// metaTransport fills in the responseMeta carried by the request context.
type metaTransport struct {
	base http.RoundTripper
}

func (t *metaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.base.RoundTrip(req)
	if resp != nil {
		if m, ok := req.Context().Value(metaKey{}).(*responseMeta); ok {
			m.record(resp)
		}
	}
	return resp, err
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
