package gateway

import (
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// backoffDelay returns the wait before retry number attempt (0-based):
// BaseDelay * 2^attempt plus up to 50% jitter, capped at MaxDelay.
func (g *Gateway) backoffDelay(attempt int) time.Duration {
	d := g.cfg.BaseDelay
	for i := 0; i < attempt && d < g.cfg.MaxDelay; i++ {
		d *= 2
	}
	if d > 0 {
		d += time.Duration(g.jitter() * float64(d) / 2)
	}
	if d > g.cfg.MaxDelay {
		d = g.cfg.MaxDelay
	}
	return d
}

// retryDelay prefers a server-supplied Retry-After, falling back to backoff.
func (g *Gateway) retryDelay(attempt int, header http.Header) time.Duration {
	if d, ok := parseRetryAfter(header.Get("Retry-After"), g.now()); ok {
		if d > g.cfg.MaxDelay {
			return g.cfg.MaxDelay
		}
		return d
	}
	return g.backoffDelay(attempt)
}

// parseRetryAfter supports delay-seconds and HTTP-date forms.
func parseRetryAfter(v string, now time.Time) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(v); err == nil {
		d := t.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

func defaultJitter() float64 {
	return rand.Float64()
}
