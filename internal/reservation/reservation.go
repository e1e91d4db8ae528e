// Package reservation provides short-lived holds on product quantity so
// concurrent checkouts see each other's in-flight claims before any
// order exists. Holds are advisory: they narrow the oversell window,
// they do not replace the guarded stock decrement at payment time.
package reservation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TTL bounds how long a checkout may sit on reserved stock.
const TTL = 15 * time.Minute

type Reservation struct {
	Key       string
	ProductID string
	UserID    string
	Qty       int
	ExpiresAt time.Time
}

// Store is the swappable reservation backend. The in-memory store is
// correct for a single instance; multi-instance deployments need the
// Redis store so reservations are mutually visible across processes.
type Store interface {
	// Create grants a hold if effective stock (availableStock minus
	// unexpired holds on the product) covers qty. Returns the
	// reservation key, or ok=false if stock is insufficient.
	Create(ctx context.Context, productID string, qty int, userID string, availableStock int) (string, bool)
	// EffectiveStock is actualStock minus unexpired holds, floored at 0.
	EffectiveStock(ctx context.Context, productID string, actualStock int) int
	Release(ctx context.Context, key string) bool
	ReleaseUser(ctx context.Context, userID string) int
	Extend(ctx context.Context, key string) bool
	Valid(ctx context.Context, key string) bool
	Get(ctx context.Context, key string) (Reservation, bool)
}

// MemoryStore keeps reservations in a mutex-guarded map. The expiry
// sweep starts lazily on first use, not at process boot.
type MemoryStore struct {
	mu   sync.Mutex
	held map[string]Reservation

	// Now is the clock; tests override it.
	Now func() time.Time

	sweepOnce sync.Once
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{held: make(map[string]Reservation), Now: time.Now}
}

// newKey must stay collision-free across rapid repeated calls for the
// same user and product, hence the random component.
func newKey(productID, userID string) string {
	return productID + ":" + userID + ":" + uuid.NewString()
}

func (s *MemoryStore) reservedLocked(productID string, now time.Time) int {
	total := 0
	for _, r := range s.held {
		if r.ProductID == productID && r.ExpiresAt.After(now) {
			total += r.Qty
		}
	}
	return total
}

func (s *MemoryStore) Create(_ context.Context, productID string, qty int, userID string, availableStock int) (string, bool) {
	s.sweepOnce.Do(func() { go s.sweep() })

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	if availableStock-s.reservedLocked(productID, now) < qty {
		return "", false
	}
	r := Reservation{
		Key:       newKey(productID, userID),
		ProductID: productID,
		UserID:    userID,
		Qty:       qty,
		ExpiresAt: now.Add(TTL),
	}
	s.held[r.Key] = r
	return r.Key, true
}

func (s *MemoryStore) EffectiveStock(_ context.Context, productID string, actualStock int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	eff := actualStock - s.reservedLocked(productID, s.Now())
	if eff < 0 {
		return 0
	}
	return eff
}

func (s *MemoryStore) Release(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.held[key]; !ok {
		return false
	}
	delete(s.held, key)
	return true
}

func (s *MemoryStore) ReleaseUser(_ context.Context, userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, r := range s.held {
		if r.UserID == userID {
			delete(s.held, k)
			n++
		}
	}
	return n
}

func (s *MemoryStore) Extend(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.held[key]
	now := s.Now()
	if !ok || !r.ExpiresAt.After(now) {
		return false
	}
	r.ExpiresAt = now.Add(TTL)
	s.held[key] = r
	return true
}

func (s *MemoryStore) Valid(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.held[key]
	return ok && r.ExpiresAt.After(s.Now())
}

func (s *MemoryStore) Get(_ context.Context, key string) (Reservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.held[key]
	return r, ok
}

func (s *MemoryStore) sweep() {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for range t.C {
		s.mu.Lock()
		now := s.Now()
		for k, r := range s.held {
			if !r.ExpiresAt.After(now) {
				delete(s.held, k)
			}
		}
		s.mu.Unlock()
	}
}
