package heroku

import (
	"sync"
	"time"

	"github.com/zeebo/blake3"
)

// ReplayGuard remembers webhook bodies that were already forwarded so a
// redelivery of the same payload isn't announced twice. Bodies are keyed by
// their BLAKE3 digest. A nil *ReplayGuard remembers nothing.
//
// The guard is best effort. Forwarder checks Seen before delivery and calls
// Record only after it succeeds, so two identical bodies that arrive
// concurrently can both be delivered.
type ReplayGuard struct {
	ttl time.Duration
	now func() time.Time

	mu   sync.Mutex
	seen map[[32]byte]time.Time
}

// NewReplayGuard returns a guard remembering bodies for ttl. It returns nil
// when ttl is not positive, which disables replay detection.
func NewReplayGuard(ttl time.Duration, now func() time.Time) *ReplayGuard {
	if ttl <= 0 {
		return nil
	}
	if now == nil {
		now = time.Now
	}
	return &ReplayGuard{
		ttl:  ttl,
		now:  now,
		seen: make(map[[32]byte]time.Time),
	}
}

// Seen reports whether body was recorded within the TTL.
func (g *ReplayGuard) Seen(body []byte) bool {
	if g == nil {
		return false
	}
	key := blake3.Sum256(body)

	g.mu.Lock()
	defer g.mu.Unlock()

	at, ok := g.seen[key]
	if !ok {
		return false
	}
	if g.now().Sub(at) >= g.ttl {
		delete(g.seen, key)
		return false
	}
	return true
}

// Record marks body as forwarded and drops expired entries.
func (g *ReplayGuard) Record(body []byte) {
	if g == nil {
		return
	}
	key := blake3.Sum256(body)

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for k, at := range g.seen {
		if now.Sub(at) >= g.ttl {
			delete(g.seen, k)
		}
	}
	g.seen[key] = now
}

// Len reports how many bodies are remembered, expired or not.
func (g *ReplayGuard) Len() int {
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}
