package ratelimit

import (
	"math"
	"sync"
	"time"

	"github.com/smallbiznis/comanda/internal/clock"
)

type bucketState struct {
	tokens float64
	ts     time.Time
}

// memoryBucket mirrors the redis script for a single process.
type memoryBucket struct {
	mu      sync.Mutex
	clock   clock.Clock
	buckets map[string]*bucketState
}

func newMemoryBucket(c clock.Clock) *memoryBucket {
	return &memoryBucket{clock: c, buckets: make(map[string]*bucketState)}
}

func (m *memoryBucket) Allow(key string, rate float64, burst int) *RateLimitResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	state, ok := m.buckets[key]
	if !ok {
		state = &bucketState{tokens: float64(burst), ts: now}
		m.buckets[key] = state
	} else {
		elapsed := now.Sub(state.ts).Seconds()
		if elapsed < 0 {
			elapsed = 0
		}
		state.tokens = math.Min(float64(burst), state.tokens+elapsed*rate)
		state.ts = now
	}

	allowed := state.tokens >= 1
	if allowed {
		state.tokens--
	}
	m.evict(now, rate, burst)
	return newResult(allowed, burst, state.tokens, rate, now)
}

// evict drops buckets idle long enough to have refilled completely.
func (m *memoryBucket) evict(now time.Time, rate float64, burst int) {
	ttl := defaultBucketTTL(rate, burst)
	for key, state := range m.buckets {
		if now.Sub(state.ts) > ttl {
			delete(m.buckets, key)
		}
	}
}
