// Package ratelimit throttles requests per client and route with token buckets.
package ratelimit

import (
	"sync"
	"time"
)

// tokenBucket holds up to capacity tokens and refills at refillRate per second.
type tokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	refillRate float64
	tokens     float64
	lastRefill time.Time
	lastAccess time.Time
}

func newTokenBucket(capacity int, refillRate float64) *tokenBucket {
	now := time.Now()
	return &tokenBucket{
		capacity:   float64(capacity),
		refillRate: refillRate,
		tokens:     float64(capacity),
		lastRefill: now,
		lastAccess: now,
	}
}

// take refills the bucket, consumes a token when one is available and
// reports the remaining tokens and when the bucket will be full again.
// Callers hold tb.mu.
func (tb *tokenBucket) take(now time.Time) (allowed bool, remaining int, full time.Time) {
	tb.tokens = min(tb.capacity, tb.tokens+now.Sub(tb.lastRefill).Seconds()*tb.refillRate)
	tb.lastRefill = now
	tb.lastAccess = now

	if tb.tokens >= 1 {
		tb.tokens--
		allowed = true
	}

	full = now
	if missing := tb.capacity - tb.tokens; missing > 0 && tb.refillRate > 0 {
		full = now.Add(time.Duration(missing / tb.refillRate * float64(time.Second)))
	}
	return allowed, int(tb.tokens), full
}

// allow is take for the current time
func (tb *tokenBucket) allow() (bool, int, time.Time) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.take(time.Now())
}

func (tb *tokenBucket) idleSince(cutoff time.Time) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.lastAccess.Before(cutoff)
}

// Info describes the outcome of a rate limit check. Limit is 0 when the
// request was not subject to limiting.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Limiter keeps one bucket per client, route and method.
type Limiter struct {
	config  *Config
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	stop    chan struct{}
	once    sync.Once
}

// NewLimiter starts a limiter. A nil config allows 1000 requests a minute.
func NewLimiter(config *Config) *Limiter {
	if config == nil {
		config = &Config{
			Enabled:         true,
			DefaultLimit:    1000,
			DefaultWindow:   time.Minute,
			CleanupInterval: 5 * time.Minute,
		}
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = time.Hour
	}

	l := &Limiter{
		config:  config,
		buckets: make(map[string]*tokenBucket),
		stop:    make(chan struct{}),
	}
	if config.Enabled && config.CleanupInterval > 0 {
		go l.cleanup(config.CleanupInterval)
	}
	return l
}

// Allow consumes a token for clientID on the given route.
func (l *Limiter) Allow(clientID string, path string, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return true, Info{Allowed: true}
	}
	if l.config.Blacklist[clientID] {
		return false, Info{}
	}

	endpoint := MatchEndpoint(path, method, l.config.EndpointConfigs)
	if endpoint == nil {
		endpoint = &EndpointConfig{
			Path:   path,
			Limit:  l.config.DefaultLimit,
			Window: l.config.DefaultWindow,
		}
	}
	if endpoint.Limit <= 0 {
		return true, Info{Allowed: true}
	}

	// prefix routes share one bucket
	key := clientID + " " + method + " " + endpoint.Path
	allowed, remaining, reset := l.bucket(key, endpoint).allow()

	info := Info{
		Allowed:   allowed,
		Limit:     endpoint.Limit,
		Remaining: remaining,
		ResetTime: reset,
	}
	if !allowed {
		info.RetryAfter = max(time.Until(reset), 0)
	}
	return allowed, info
}

func (l *Limiter) bucket(key string, endpoint *EndpointConfig) *tokenBucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets[key]; ok {
		return b
	}
	capacity := endpoint.Burst
	if capacity <= 0 {
		capacity = endpoint.Limit
	}
	b := newTokenBucket(capacity, float64(endpoint.Limit)/endpoint.Window.Seconds())
	l.buckets[key] = b
	return b
}

func (l *Limiter) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.evictIdle(time.Now().Add(-l.config.IdleTTL))
		case <-l.stop:
			return
		}
	}
}

// evictIdle drops buckets not used since cutoff.
func (l *Limiter) evictIdle(cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	evicted := 0
	for key, b := range l.buckets {
		if b.idleSince(cutoff) {
			delete(l.buckets, key)
			evicted++
		}
	}
	return evicted
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}
