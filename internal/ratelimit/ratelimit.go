// Package ratelimit implements a sliding-window request throttle. Each
// identifier+policy pair tracks the timestamps of its recent requests; a
// request is allowed while fewer than Limit timestamps fall inside the
// window. Policies with BlockFor set also place a hard block on the
// identifier once the limit is hit.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

type Policy struct {
	Limit    int
	Window   time.Duration
	BlockFor time.Duration // 0 => no hard block
}

// Named policies. Distinct policies on the same identifier use distinct
// composite keys, so e.g. Order and Auth limits never interfere.
var (
	Form         = Policy{Limit: 10, Window: time.Minute}
	API          = Policy{Limit: 30, Window: time.Minute}
	Auth         = Policy{Limit: 5, Window: 10 * time.Minute, BlockFor: 15 * time.Minute}
	Order        = Policy{Limit: 5, Window: time.Minute, BlockFor: 5 * time.Minute}
	Notification = Policy{Limit: 3, Window: time.Hour}
	Admin        = Policy{Limit: 60, Window: time.Minute}
	Strict       = Policy{Limit: 2, Window: time.Minute, BlockFor: 30 * time.Minute}
)

type Result struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
	Blocked   bool
}

// Store is the swappable limiter backend: in-memory for a single
// instance, Redis for multi-instance deployments.
type Store interface {
	Check(ctx context.Context, identifier string, p Policy) Result
}

type memEntry struct {
	times        []time.Time
	blockedUntil time.Time
}

// MemoryStore keeps sliding windows in a mutex-guarded map. A background
// sweep deletes entries idle for over an hour with no active block; the
// sweep is a memory bound, not a correctness mechanism.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memEntry

	// Now is the clock; tests override it.
	Now func() time.Time

	sweepOnce sync.Once
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memEntry), Now: time.Now}
}

func key(identifier string, p Policy) string {
	return fmt.Sprintf("%s|%d|%d", identifier, p.Limit, int(p.Window.Seconds()))
}

func (s *MemoryStore) Check(_ context.Context, identifier string, p Policy) Result {
	s.sweepOnce.Do(func() { go s.sweep() })

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	k := key(identifier, p)
	e := s.entries[k]
	if e == nil {
		e = &memEntry{}
		s.entries[k] = e
	}

	if e.blockedUntil.After(now) {
		return Result{Allowed: false, Blocked: true, ResetIn: e.blockedUntil.Sub(now)}
	}

	// Prune timestamps that have left the window.
	cutoff := now.Add(-p.Window)
	kept := e.times[:0]
	for _, t := range e.times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	e.times = kept

	if len(e.times) >= p.Limit {
		resetIn := e.times[0].Add(p.Window).Sub(now)
		if p.BlockFor > 0 {
			e.blockedUntil = now.Add(p.BlockFor)
			resetIn = p.BlockFor
		}
		return Result{Allowed: false, Blocked: p.BlockFor > 0, ResetIn: resetIn}
	}

	e.times = append(e.times, now)
	return Result{
		Allowed:   true,
		Remaining: p.Limit - len(e.times),
		ResetIn:   e.times[0].Add(p.Window).Sub(now),
	}
}

func (s *MemoryStore) sweep() {
	t := time.NewTicker(10 * time.Minute)
	defer t.Stop()
	for range t.C {
		s.mu.Lock()
		now := s.Now()
		for k, e := range s.entries {
			if e.blockedUntil.After(now) {
				continue
			}
			if len(e.times) > 0 && e.times[len(e.times)-1].After(now.Add(-time.Hour)) {
				continue
			}
			delete(s.entries, k)
		}
		s.mu.Unlock()
	}
}

// ClientID resolves the rate-limit identifier for a request. Prefers the
// CDN client-IP header, then the reverse-proxy real IP, then the first
// forwarded-for hop. The anonymous fallback is intentionally one coarse
// bucket shared by all unidentified clients.
func ClientID(c *fiber.Ctx) string {
	if ip := c.Get("CF-Connecting-IP"); ip != "" {
		return ip
	}
	if ip := c.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if fwd := c.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	return "anonymous"
}
