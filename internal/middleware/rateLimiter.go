package middleware

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clients idle longer than this lose their bucket
const limiterIdleTTL = 10 * time.Minute

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client address.
type IPRateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	rateLimit rate.Limit
	burstRate int
	lastSweep time.Time
	now       func() time.Time
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		clients:   make(map[string]*clientLimiter),
		rateLimit: r,
		burstRate: b,
		now:       time.Now,
	}
}

// Allow takes a token from the bucket of ip.
func (i *IPRateLimiter) Allow(ip string) bool {
	i.mu.Lock()
	now := i.now()
	if now.Sub(i.lastSweep) > limiterIdleTTL {
		i.sweep(now)
	}
	c, exists := i.clients[ip]
	if !exists {
		c = &clientLimiter{limiter: rate.NewLimiter(i.rateLimit, i.burstRate)}
		i.clients[ip] = c
	}
	c.lastSeen = now
	i.mu.Unlock()

	return c.limiter.AllowN(now, 1)
}

func (i *IPRateLimiter) sweep(now time.Time) {
	for ip, c := range i.clients {
		if now.Sub(c.lastSeen) > limiterIdleTTL {
			delete(i.clients, ip)
		}
	}
	i.lastSweep = now
}

func (i *IPRateLimiter) size() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.clients)
}

//TODO: move per-IP limiters to redis once more than one API instance runs
