package executor

import (
	"sync"
	"time"
)

// Cooldown suppresses repeat executions of the same key (a market id)
// within a time-to-live window. A zero ttl disables it. It is safe for
// concurrent use.
type Cooldown struct {
	seen map[string]time.Time // key -> last execution
	ttl  time.Duration
	mu   sync.Mutex
	now  func() time.Time
}

// NewCooldown creates a Cooldown with the given ttl.
func NewCooldown(ttl time.Duration) *Cooldown {
	return &Cooldown{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Active reports whether key was marked within the ttl.
func (c *Cooldown) Active(key string) bool {
	if c == nil || c.ttl <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	last, ok := c.seen[key]
	return ok && c.now().Sub(last) < c.ttl
}

// Mark records an execution of key and drops expired entries.
func (c *Cooldown) Mark(key string) {
	if c == nil || c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, ts := range c.seen {
		if now.Sub(ts) >= c.ttl {
			delete(c.seen, k)
		}
	}
	c.seen[key] = now
}
