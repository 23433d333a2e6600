package server

import (
	"sync"
	"time"
)

const (
	// defaultBurst is the bucket capacity per client.
	defaultBurst = 20
	// defaultRefillPerSecond is the sustained request rate per client.
	defaultRefillPerSecond = 2.0
	// bucketIdleTTL is how long an untouched bucket survives before the
	// cleanup loop drops it.
	bucketIdleTTL = 10 * time.Minute
)

// bucket is a token bucket for one client.
type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// rateLimiter applies a token bucket per client id. Buckets refill at a
// steady rate up to the burst capacity; idle buckets are reaped by a
// background loop.
type rateLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	capacity int
	refill   float64

	stopOnce sync.Once
	stop     chan struct{}
}

func newRateLimiter(capacity int, refillPerSecond float64) *rateLimiter {
	l := &rateLimiter{
		buckets:  make(map[string]*bucket),
		capacity: capacity,
		refill:   refillPerSecond,
		stop:     make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// allow consumes one token for clientID if available. It reports whether
// the request may proceed and how many whole tokens remain.
func (l *rateLimiter) allow(clientID string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.buckets[clientID]
	if !ok {
		b = &bucket{tokens: float64(l.capacity), lastSeen: now}
		l.buckets[clientID] = b
	}

	elapsed := now.Sub(b.lastSeen).Seconds()
	b.tokens = min(float64(l.capacity), b.tokens+elapsed*l.refill)
	b.lastSeen = now

	if b.tokens < 1.0 {
		return false, 0
	}
	b.tokens -= 1.0
	return true, int(b.tokens)
}

// cleanupLoop drops buckets that have been idle longer than bucketIdleTTL.
func (l *rateLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cutoff := time.Now().Add(-bucketIdleTTL)
			l.mu.Lock()
			for id, b := range l.buckets {
				if b.lastSeen.Before(cutoff) {
					delete(l.buckets, id)
				}
			}
			l.mu.Unlock()
		case <-l.stop:
			return
		}
	}
}

// Stop terminates the cleanup goroutine.
func (l *rateLimiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
}
