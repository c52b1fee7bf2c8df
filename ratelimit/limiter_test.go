package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestAllow_Unlimited(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		allowed, _, err := l.Allow(ctx, "owner-1", 0, time.Hour)
		if err != nil {
			t.Fatalf("Allow returned error: %v", err)
		}
		if !allowed {
			t.Fatal("limit 0 should always be allowed")
		}
	}
}

func TestAllow_RateLimited(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()
	key := Key("own-limited", ActionCreateSubscription)

	for i := 0; i < 2; i++ {
		allowed, _, err := l.Allow(ctx, key, 2, time.Hour)
		if err != nil {
			t.Fatalf("Allow returned error: %v", err)
		}
		if !allowed {
			t.Fatalf("call %d should be allowed", i+1)
		}
	}

	allowed, retryAfter, err := l.Allow(ctx, key, 2, time.Hour)
	if err != nil {
		t.Fatalf("Allow returned error: %v", err)
	}
	if allowed {
		t.Fatal("third call should be denied")
	}
	if retryAfter <= 0 || retryAfter > time.Hour {
		t.Fatalf("retryAfter should be within the window, got %s", retryAfter)
	}
}

func TestAllow_DeniedRequestNotCounted(t *testing.T) {
	l := NewMemoryLimiter()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	l.now = func() time.Time { return now }
	ctx := context.Background()

	l.Allow(ctx, "k", 1, time.Minute)

	// Hammer the denied path; none of these should extend the window.
	for i := 0; i < 10; i++ {
		now = now.Add(time.Second)
		if allowed, _, _ := l.Allow(ctx, "k", 1, time.Minute); allowed {
			t.Fatal("should be denied inside the window")
		}
	}

	// One minute after the original grant the window is clear.
	now = base.Add(time.Minute + time.Second)
	if allowed, _, _ := l.Allow(ctx, "k", 1, time.Minute); !allowed {
		t.Fatal("should be allowed once the counted use leaves the window")
	}
}

func TestAllow_WindowExpiry(t *testing.T) {
	l := NewMemoryLimiter()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, _, _ := l.Allow(ctx, "k", 5, time.Hour)
		if !allowed {
			t.Fatalf("call %d should be allowed", i+1)
		}
		now = now.Add(time.Minute)
	}

	if allowed, retryAfter, _ := l.Allow(ctx, "k", 5, time.Hour); allowed {
		t.Fatal("sixth call within the hour should be denied")
	} else {
		// Oldest use was 5 minutes ago, so it leaves the window in 55 minutes.
		want := 55 * time.Minute
		if retryAfter != want {
			t.Fatalf("retryAfter = %s, want %s", retryAfter, want)
		}
	}

	now = now.Add(56 * time.Minute)
	if allowed, _, _ := l.Allow(ctx, "k", 5, time.Hour); !allowed {
		t.Fatal("should be allowed after the oldest use expires")
	}
}

func TestAllow_KeysAreIndependent(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()

	l.Allow(ctx, Key("alice", ActionRotateSecret), 1, time.Hour)
	if allowed, _, _ := l.Allow(ctx, Key("alice", ActionRotateSecret), 1, time.Hour); allowed {
		t.Fatal("alice should be denied")
	}
	if allowed, _, _ := l.Allow(ctx, Key("bob", ActionRotateSecret), 1, time.Hour); !allowed {
		t.Fatal("bob's budget is separate from alice's")
	}
	if allowed, _, _ := l.Allow(ctx, Key("alice", ActionCreateSubscription), 1, time.Hour); !allowed {
		t.Fatal("a different action has its own budget")
	}
}

func TestReset(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()

	l.Allow(ctx, "k", 1, time.Hour)
	if allowed, _, _ := l.Allow(ctx, "k", 1, time.Hour); allowed {
		t.Fatal("should be denied")
	}

	l.Reset("k")

	if allowed, _, _ := l.Allow(ctx, "k", 1, time.Hour); !allowed {
		t.Fatal("should be allowed after reset")
	}
}

func TestCheck_NilLimiter(t *testing.T) {
	if err := Check(context.Background(), nil, "owner", ActionCreateSubscription, PolicyCreateSubscription); err != nil {
		t.Fatalf("nil limiter should allow everything, got %v", err)
	}
}

func TestCheck_Denial(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()
	policy := Policy{Limit: 1, Window: time.Hour}

	if err := Check(ctx, l, "owner", ActionRotateSecret, policy); err != nil {
		t.Fatalf("first check should pass, got %v", err)
	}

	err := Check(ctx, l, "owner", ActionRotateSecret, policy)
	var limitErr *LimitExceededError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected *LimitExceededError, got %v", err)
	}
	if limitErr.Action != ActionRotateSecret {
		t.Errorf("Action = %s, want %s", limitErr.Action, ActionRotateSecret)
	}
	if limitErr.Limit != 1 {
		t.Errorf("Limit = %d, want 1", limitErr.Limit)
	}
	if limitErr.RetryAfter <= 0 {
		t.Errorf("RetryAfter should be positive, got %s", limitErr.RetryAfter)
	}
}

func TestKeyFormat(t *testing.T) {
	got := Key("owner-42", ActionListDeliveries)
	want := "ratelimit:delivery_list:owner-42"
	if got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
}

func TestConcurrentAccess(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()

	var wg sync.WaitGroup
	allowed := make(chan bool, 200)

	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _, _ := l.Allow(ctx, "concurrent", 100, time.Hour)
			allowed <- ok
		}()
	}

	wg.Wait()
	close(allowed)

	count := 0
	for ok := range allowed {
		if ok {
			count++
		}
	}
	if count != 100 {
		t.Fatalf("expected exactly 100 allowed, got %d", count)
	}
}
