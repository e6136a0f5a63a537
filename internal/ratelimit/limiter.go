package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrZeroRate indicates that a limiter was configured without any limit,
// which would make every Acquire block forever.
var ErrZeroRate = errors.New("ratelimit: refill rate must be greater than zero")

// Config expresses a service quota as any combination of per-interval
// limits. The limits are summed into a single refill rate, so a service
// documented as "60/minute plus 1000/hour" gets one bucket refilled at
// the combined pace.
type Config struct {
	PerSecond float64
	PerMinute float64
	PerHour   float64
	// Burst caps token accumulation. Zero means 60x the refill rate.
	Burst float64
}

// Limiter is a token-bucket pacing primitive for calls to one external
// service. Tokens accrue lazily from elapsed wall-clock time; there is no
// background refill goroutine. Safe for concurrent use.
type Limiter struct {
	mu         sync.Mutex
	rate       float64 // tokens per second
	burst      float64
	tokens     float64
	lastUpdate time.Time

	now func() time.Time
}

// NewLimiter builds a limiter from cfg. It rejects configurations whose
// combined rate is zero or negative.
func NewLimiter(cfg Config) (*Limiter, error) {
	rate := cfg.PerSecond + cfg.PerMinute/60 + cfg.PerHour/3600
	if rate <= 0 {
		return nil, ErrZeroRate
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = rate * 60
	}
	l := &Limiter{
		rate:  rate,
		burst: burst,
		now:   time.Now,
	}
	l.tokens = burst
	l.lastUpdate = l.now()
	return l, nil
}

// refillLocked folds elapsed time into the token balance. Callers must
// hold l.mu.
func (l *Limiter) refillLocked(now time.Time) {
	elapsed := now.Sub(l.lastUpdate).Seconds()
	if elapsed <= 0 {
		l.lastUpdate = now
		return
	}
	l.tokens += elapsed * l.rate
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.lastUpdate = now
}

// Acquire blocks until tokens are available, then consumes them. The
// mutex is released while sleeping so concurrent callers can make their
// own progress. Returns ctx.Err() if the context ends first.
func (l *Limiter) Acquire(ctx context.Context, tokens float64) error {
	if tokens <= 0 {
		return fmt.Errorf("ratelimit: acquire of %v tokens", tokens)
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.mu.Lock()
		if tokens > l.burst {
			l.mu.Unlock()
			return fmt.Errorf("ratelimit: acquire of %v tokens exceeds burst %v", tokens, l.burst)
		}
		now := l.now()
		l.refillLocked(now)
		if l.tokens >= tokens {
			l.tokens -= tokens
			l.mu.Unlock()
			return nil
		}
		wait := time.Duration((tokens - l.tokens) / l.rate * float64(time.Second))
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			// Another caller may have drained the refill; loop and recheck.
		}
	}
}

// TryAcquire consumes tokens if they are available right now. It returns
// false, with no side effect, when the balance is insufficient.
func (l *Limiter) TryAcquire(tokens float64) bool {
	if tokens <= 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refillLocked(l.now())
	if l.tokens < tokens {
		return false
	}
	l.tokens -= tokens
	return true
}

// Available reports the token balance as of now. The projected refill is
// not committed, so a subsequent Acquire recomputes it.
func (l *Limiter) Available() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	elapsed := l.now().Sub(l.lastUpdate).Seconds()
	if elapsed <= 0 {
		return l.tokens
	}
	projected := l.tokens + elapsed*l.rate
	if projected > l.burst {
		projected = l.burst
	}
	return projected
}

// Rate returns the current refill rate in tokens per second.
func (l *Limiter) Rate() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rate
}

// SetRate retunes the refill rate, settling the balance at the old rate
// first. Used when a service reports its own view of the quota.
func (l *Limiter) SetRate(perSecond float64) error {
	if perSecond <= 0 {
		return ErrZeroRate
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refillLocked(l.now())
	l.rate = perSecond
	return nil
}

// Burst returns the configured accumulation cap.
func (l *Limiter) Burst() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.burst
}
