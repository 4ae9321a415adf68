package adapters

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/datagate/datagate/internal/fetch"
)

// ScrapeDelay is the pause between successive requests to one host.
const ScrapeDelay = time.Second

// htmlRequest are the headers scrapers send.
var htmlRequest = []fetch.RequestOption{
	fetch.Accept(fetch.AcceptHTML),
	fetch.Header("Accept-Language", "en-US,en;q=0.5"),
	fetch.Header("Upgrade-Insecure-Requests", "1"),
}

// hostThrottle enforces a minimum gap between requests to the same host.
type hostThrottle struct {
	mu    sync.Mutex
	delay time.Duration
	last  map[string]time.Time
}

func newHostThrottle(delay time.Duration) *hostThrottle {
	return &hostThrottle{delay: delay, last: make(map[string]time.Time)}
}

// wait blocks until rawURL's host may be requested again, then reserves the slot.
func (t *hostThrottle) wait(ctx context.Context, rawURL string) error {
	if t == nil || t.delay <= 0 {
		return nil
	}
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}

	t.mu.Lock()
	now := time.Now()
	next := t.last[host].Add(t.delay)
	if next.Before(now) {
		next = now
	}
	t.last[host] = next
	t.mu.Unlock()

	wait := time.Until(next)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// resolveURL makes href absolute against base.
func resolveURL(base, href string) (string, bool) {
	b, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := b.ResolveReference(ref)
	if abs.Host == "" || (abs.Scheme != "http" && abs.Scheme != "https") {
		return "", false
	}
	return abs.String(), true
}
