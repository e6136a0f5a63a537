package ratelimit

import (
	"context"
	"errors"
	"testing"
)

func newTestGovernor(t *testing.T, cacheAware bool, burst float64) *Governor {
	t.Helper()
	lim, err := NewLimiter(Config{PerSecond: 100, Burst: burst})
	if err != nil {
		t.Fatalf("NewLimiter: %v", err)
	}
	sem, err := NewSemaphore(2)
	if err != nil {
		t.Fatalf("NewSemaphore: %v", err)
	}
	gov, err := NewGovernor(GovernorOptions{Limiter: lim, Sem: sem, CacheAware: cacheAware})
	if err != nil {
		t.Fatalf("NewGovernor: %v", err)
	}
	return gov
}

func TestNewGovernorRequiresBudgets(t *testing.T) {
	if _, err := NewGovernor(GovernorOptions{}); err == nil {
		t.Fatal("NewGovernor with no budgets succeeded, want error")
	}
}

func TestGovernorCacheHitBypassesLimiter(t *testing.T) {
	gov := newTestGovernor(t, true, 10)
	ctx := context.Background()

	// First call misses the cache and must cost one token.
	before := gov.Limiter().Available()
	if err := gov.Do(ctx, func(context.Context) (bool, error) { return false, nil }); err != nil {
		t.Fatalf("Do (miss): %v", err)
	}
	afterMiss := gov.Limiter().Available()
	if delta := before - afterMiss; delta < 0.9 {
		t.Fatalf("cache miss consumed %v tokens, want ~1", delta)
	}

	// Second identical call hits the cache and must cost nothing.
	if err := gov.Do(ctx, func(context.Context) (bool, error) { return true, nil }); err != nil {
		t.Fatalf("Do (hit): %v", err)
	}
	afterHit := gov.Limiter().Available()
	if delta := afterMiss - afterHit; delta > 0.1 {
		t.Fatalf("cache hit consumed %v tokens, want ~0", delta)
	}
}

func TestGovernorWithoutCacheAlwaysCharges(t *testing.T) {
	gov := newTestGovernor(t, false, 10)
	ctx := context.Background()
	before := gov.Limiter().Available()
	for i := 0; i < 3; i++ {
		if err := gov.Do(ctx, func(context.Context) (bool, error) { return true, nil }); err != nil {
			t.Fatalf("Do %d: %v", i, err)
		}
	}
	after := gov.Limiter().Available()
	if delta := before - after; delta < 2.9 {
		t.Fatalf("three uncached-governed calls consumed %v tokens, want ~3", delta)
	}
}

func TestGovernorFailedCallStillCharges(t *testing.T) {
	gov := newTestGovernor(t, true, 10)
	ctx := context.Background()
	before := gov.Limiter().Available()
	wantErr := errors.New("upstream said no")
	if err := gov.Do(ctx, func(context.Context) (bool, error) { return false, wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("Do = %v, want %v", err, wantErr)
	}
	after := gov.Limiter().Available()
	if delta := before - after; delta < 0.9 {
		t.Fatalf("failed upstream call consumed %v tokens, want ~1", delta)
	}
}

func TestGovernorReleasesSlotOnError(t *testing.T) {
	gov := newTestGovernor(t, false, 10)
	ctx := context.Background()
	_ = gov.Do(ctx, func(context.Context) (bool, error) { return false, errors.New("boom") })
	if got := gov.Sem().Active(); got != 0 {
		t.Fatalf("Active() after failed call = %d, want 0", got)
	}
}

func TestGovernorHonorsContextAtGate(t *testing.T) {
	gov := newTestGovernor(t, false, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := gov.Do(ctx, func(context.Context) (bool, error) { return false, nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Do with cancelled context = %v, want context.Canceled", err)
	}
}
