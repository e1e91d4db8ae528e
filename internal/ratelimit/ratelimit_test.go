package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"swiftcart/internal/ratelimit"
)

func TestSlidingWindow(t *testing.T) {
	s := ratelimit.NewMemoryStore()
	ctx := context.Background()
	now := time.Now()
	s.Now = func() time.Time { return now }

	p := ratelimit.Policy{Limit: 3, Window: time.Minute}

	for i := 0; i < 3; i++ {
		if r := s.Check(ctx, "1.2.3.4", p); !r.Allowed {
			t.Fatalf("call %d should be allowed", i+1)
		}
		now = now.Add(time.Second)
	}
	r := s.Check(ctx, "1.2.3.4", p)
	if r.Allowed {
		t.Fatal("4th call inside window should be denied")
	}
	if r.ResetIn <= 0 || r.ResetIn > time.Minute {
		t.Fatalf("want 0 < resetIn <= 60s, got %v", r.ResetIn)
	}

	// Once the first timestamp leaves the window, capacity returns.
	now = now.Add(time.Minute)
	if r := s.Check(ctx, "1.2.3.4", p); !r.Allowed {
		t.Fatal("call after window elapsed should be allowed")
	}
}

func TestRemainingCountsDown(t *testing.T) {
	s := ratelimit.NewMemoryStore()
	ctx := context.Background()
	p := ratelimit.Policy{Limit: 3, Window: time.Minute}

	if r := s.Check(ctx, "id", p); r.Remaining != 2 {
		t.Fatalf("want remaining=2, got %d", r.Remaining)
	}
	if r := s.Check(ctx, "id", p); r.Remaining != 1 {
		t.Fatalf("want remaining=1, got %d", r.Remaining)
	}
}

func TestHardBlock(t *testing.T) {
	s := ratelimit.NewMemoryStore()
	ctx := context.Background()
	now := time.Now()
	s.Now = func() time.Time { return now }

	p := ratelimit.Policy{Limit: 1, Window: time.Minute, BlockFor: 10 * time.Minute}

	s.Check(ctx, "id", p)
	r := s.Check(ctx, "id", p)
	if r.Allowed || !r.Blocked {
		t.Fatalf("want blocked denial, got %+v", r)
	}

	// The block outlives the window itself.
	now = now.Add(5 * time.Minute)
	if r := s.Check(ctx, "id", p); r.Allowed || !r.Blocked {
		t.Fatalf("want still blocked, got %+v", r)
	}

	now = now.Add(6 * time.Minute)
	if r := s.Check(ctx, "id", p); !r.Allowed {
		t.Fatalf("block expired, want allowed, got %+v", r)
	}
}

func TestPoliciesAreIsolated(t *testing.T) {
	s := ratelimit.NewMemoryStore()
	ctx := context.Background()

	tight := ratelimit.Policy{Limit: 1, Window: time.Minute}
	loose := ratelimit.Policy{Limit: 10, Window: time.Minute}

	s.Check(ctx, "id", tight)
	if r := s.Check(ctx, "id", tight); r.Allowed {
		t.Fatal("tight policy should be exhausted")
	}
	// Same identifier, different policy: unaffected.
	if r := s.Check(ctx, "id", loose); !r.Allowed {
		t.Fatal("loose policy should still allow")
	}
}

func TestIdentifiersAreIsolated(t *testing.T) {
	s := ratelimit.NewMemoryStore()
	ctx := context.Background()
	p := ratelimit.Policy{Limit: 1, Window: time.Minute}

	s.Check(ctx, "alice", p)
	if r := s.Check(ctx, "bob", p); !r.Allowed {
		t.Fatal("bob should not share alice's window")
	}
}
