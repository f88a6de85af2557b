/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

type bucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

// limiter throttles actions per room and client.
type limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	limit rate.Limit
	burst int
}

func newLimiter(perSecond float64, burst int) *limiter {
	return &limiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(perSecond),
		burst:   burst,
	}
}

func (l *limiter) enabled() bool {
	return l != nil && l.limit > 0
}

// allow reports whether the client may act in room right now.
func (l *limiter) allow(room, client string) bool {
	if !l.enabled() {
		return true
	}

	key := room + "/" + client

	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.seen = time.Now()
	l.mu.Unlock()

	return b.limiter.Allow()
}

// forget drops every bucket of room.
func (l *limiter) forget(room string) {
	if !l.enabled() {
		return
	}

	prefix := room + "/"

	l.mu.Lock()
	defer l.mu.Unlock()

	for key := range l.buckets {
		if strings.HasPrefix(key, prefix) {
			delete(l.buckets, key)
		}
	}
}

func (l *limiter) prune(cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for key, b := range l.buckets {
		if b.seen.Before(cutoff) {
			delete(l.buckets, key)
			n++
		}
	}

	return n
}

func (l *limiter) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.buckets)
}

// run prunes buckets unused for longer than idle until ctx ends.
func (l *limiter) run(ctx context.Context, idle time.Duration) error {
	if !l.enabled() || idle <= 0 {
		return nil
	}

	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if n := l.prune(now.Add(-idle)); n > 0 {
				log.Debug().Str("module", "ratelimit").Int("pruned", n).Msg("dropped idle buckets")
			}
		}
	}
}
