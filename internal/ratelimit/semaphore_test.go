package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewSemaphoreRejectsZeroSlots(t *testing.T) {
	for _, max := range []int{0, -1} {
		if _, err := NewSemaphore(max); err == nil {
			t.Fatalf("NewSemaphore(%d) succeeded, want error", max)
		}
	}
}

func TestSemaphoreCeiling(t *testing.T) {
	sem, err := NewSemaphore(3)
	if err != nil {
		t.Fatalf("NewSemaphore: %v", err)
	}
	var held, peak int64
	var wg sync.WaitGroup
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx); err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			cur := atomic.AddInt64(&held, 1)
			for {
				old := atomic.LoadInt64(&peak)
				if cur <= old || atomic.CompareAndSwapInt64(&peak, old, cur) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt64(&held, -1)
			sem.Release()
		}()
	}
	wg.Wait()
	if p := atomic.LoadInt64(&peak); p > 3 {
		t.Fatalf("peak held slots = %d, want <= 3", p)
	}
	if a := sem.Active(); a != 0 {
		t.Fatalf("Active() after drain = %d, want 0", a)
	}
}

func TestSemaphoreTwoBatches(t *testing.T) {
	sem, err := NewSemaphore(2)
	if err != nil {
		t.Fatalf("NewSemaphore: %v", err)
	}
	ctx := context.Background()
	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sem.Acquire(ctx); err != nil {
				t.Errorf("Acquire: %v", err)
				return
			}
			defer sem.Release()
			time.Sleep(200 * time.Millisecond)
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)
	if elapsed < 350*time.Millisecond {
		t.Fatalf("four tasks over two slots took %v, want >= 350ms", elapsed)
	}
	if elapsed >= 600*time.Millisecond {
		t.Fatalf("four tasks over two slots took %v, want < 600ms", elapsed)
	}
}

func TestSemaphoreTryAcquire(t *testing.T) {
	sem, err := NewSemaphore(1)
	if err != nil {
		t.Fatalf("NewSemaphore: %v", err)
	}
	if !sem.TryAcquire() {
		t.Fatal("first TryAcquire = false, want true")
	}
	if sem.TryAcquire() {
		t.Fatal("second TryAcquire = true, want false")
	}
	if got := sem.Available(); got != 0 {
		t.Fatalf("Available() = %d, want 0", got)
	}
	sem.Release()
	if got := sem.Available(); got != 1 {
		t.Fatalf("Available() after release = %d, want 1", got)
	}
}

func TestSemaphoreAcquireHonorsContext(t *testing.T) {
	sem, err := NewSemaphore(1)
	if err != nil {
		t.Fatalf("NewSemaphore: %v", err)
	}
	if !sem.TryAcquire() {
		t.Fatal("priming TryAcquire failed")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := sem.Acquire(ctx); err != context.DeadlineExceeded {
		t.Fatalf("Acquire with held slot = %v, want DeadlineExceeded", err)
	}
}

func TestSemaphoreReleaseWithoutAcquirePanics(t *testing.T) {
	sem, err := NewSemaphore(1)
	if err != nil {
		t.Fatalf("NewSemaphore: %v", err)
	}
	defer func() {
		if recover() == nil {
			t.Fatal("Release without Acquire did not panic")
		}
	}()
	sem.Release()
}
