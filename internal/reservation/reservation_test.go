package reservation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"swiftcart/internal/reservation"
)

func TestCreate_NoOversellUnderConcurrency(t *testing.T) {
	s := reservation.NewMemoryStore()
	ctx := context.Background()
	const stock = 10

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if _, ok := s.Create(ctx, "p1", 1, "user", stock); ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if granted != stock {
		t.Fatalf("want exactly %d grants, got %d", stock, granted)
	}
	if eff := s.EffectiveStock(ctx, "p1", stock); eff != 0 {
		t.Fatalf("want effective stock 0, got %d", eff)
	}
}

func TestCreate_InsufficientEffectiveStock(t *testing.T) {
	s := reservation.NewMemoryStore()
	ctx := context.Background()

	if _, ok := s.Create(ctx, "p1", 3, "alice", 5); !ok {
		t.Fatal("first reservation should succeed")
	}
	// 2 effective left; 3 must be refused.
	if _, ok := s.Create(ctx, "p1", 3, "bob", 5); ok {
		t.Fatal("reservation beyond effective stock should be refused")
	}
	if _, ok := s.Create(ctx, "p1", 2, "bob", 5); !ok {
		t.Fatal("reservation within effective stock should succeed")
	}
}

func TestExpiry_FreesCapacity(t *testing.T) {
	s := reservation.NewMemoryStore()
	ctx := context.Background()
	now := time.Now()
	s.Now = func() time.Time { return now }

	key, ok := s.Create(ctx, "p1", 4, "alice", 5)
	if !ok {
		t.Fatal("reservation should succeed")
	}
	if eff := s.EffectiveStock(ctx, "p1", 5); eff != 1 {
		t.Fatalf("want effective 1, got %d", eff)
	}

	now = now.Add(reservation.TTL + time.Second)
	if eff := s.EffectiveStock(ctx, "p1", 5); eff != 5 {
		t.Fatalf("after TTL: want effective 5, got %d", eff)
	}
	if s.Valid(ctx, key) {
		t.Fatal("expired reservation should not be valid")
	}
	if s.Extend(ctx, key) {
		t.Fatal("expired reservation should not be extendable")
	}
}

func TestExtend_PushesExpiry(t *testing.T) {
	s := reservation.NewMemoryStore()
	ctx := context.Background()
	now := time.Now()
	s.Now = func() time.Time { return now }

	key, _ := s.Create(ctx, "p1", 1, "alice", 5)

	now = now.Add(reservation.TTL - time.Minute)
	if !s.Extend(ctx, key) {
		t.Fatal("unexpired reservation should extend")
	}
	now = now.Add(2 * time.Minute) // past original expiry, inside extended
	if !s.Valid(ctx, key) {
		t.Fatal("extended reservation should still be valid")
	}
}

func TestRelease(t *testing.T) {
	s := reservation.NewMemoryStore()
	ctx := context.Background()

	key, _ := s.Create(ctx, "p1", 2, "alice", 5)
	if !s.Release(ctx, key) {
		t.Fatal("release of held key should report true")
	}
	if s.Release(ctx, key) {
		t.Fatal("double release should report false")
	}
	if eff := s.EffectiveStock(ctx, "p1", 5); eff != 5 {
		t.Fatalf("want effective 5 after release, got %d", eff)
	}
}

func TestReleaseUser(t *testing.T) {
	s := reservation.NewMemoryStore()
	ctx := context.Background()

	// A user can hold several reservations on the same product.
	s.Create(ctx, "p1", 1, "alice", 10)
	s.Create(ctx, "p1", 1, "alice", 10)
	s.Create(ctx, "p2", 1, "alice", 10)
	s.Create(ctx, "p1", 1, "bob", 10)

	if n := s.ReleaseUser(ctx, "alice"); n != 3 {
		t.Fatalf("want 3 released, got %d", n)
	}
	if eff := s.EffectiveStock(ctx, "p1", 10); eff != 9 {
		t.Fatalf("bob's hold should remain, want effective 9, got %d", eff)
	}
}

func TestKeysAreUnique(t *testing.T) {
	s := reservation.NewMemoryStore()
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		key, ok := s.Create(ctx, "p1", 1, "alice", 1000)
		if !ok {
			t.Fatal("reservation should succeed")
		}
		if seen[key] {
			t.Fatalf("duplicate reservation key %q", key)
		}
		seen[key] = true
	}
}

func TestGet(t *testing.T) {
	s := reservation.NewMemoryStore()
	ctx := context.Background()

	key, _ := s.Create(ctx, "p1", 2, "alice", 5)
	r, ok := s.Get(ctx, key)
	if !ok || r.ProductID != "p1" || r.UserID != "alice" || r.Qty != 2 {
		t.Fatalf("unexpected reservation %+v", r)
	}
	if _, ok := s.Get(ctx, "missing"); ok {
		t.Fatal("missing key should not be found")
	}
}
