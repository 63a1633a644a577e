package okusno

import (
	"sync"
	"time"
)

// loginLimiterSweep is how often stale per-IP entries are dropped from the
// map, independent of the limit window.
const loginLimiterSweep = 5 * time.Minute

// LoginLimiter throttles failed admin logins per client IP. Check gates an
// attempt without consuming budget; only Record, called on a wrong
// password, charges against the limit.
type LoginLimiter struct {
	mu       sync.Mutex
	failures map[string][]time.Time
	max      int
	window   time.Duration
}

// NewLoginLimiter allows up to max failed attempts per IP within window.
func NewLoginLimiter(max int, window time.Duration) *LoginLimiter {
	l := &LoginLimiter{
		failures: make(map[string][]time.Time),
		max:      max,
		window:   window,
	}
	go l.sweep()
	return l
}

// prune drops failures older than the window for ip and returns what is
// left. Caller holds mu.
func (l *LoginLimiter) prune(ip string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	kept := l.failures[ip][:0]
	for _, ts := range l.failures[ip] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(l.failures, ip)
		return nil
	}
	l.failures[ip] = kept
	return kept
}

func (l *LoginLimiter) sweep() {
	for range time.Tick(loginLimiterSweep) {
		now := time.Now()
		l.mu.Lock()
		for ip := range l.failures {
			l.prune(ip, now)
		}
		l.mu.Unlock()
	}
}

// Check reports whether ip may attempt a login right now.
func (l *LoginLimiter) Check(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.prune(ip, time.Now())) < l.max
}

// Record registers a failed login attempt for ip.
func (l *LoginLimiter) Record(ip string) {
	l.mu.Lock()
	l.failures[ip] = append(l.failures[ip], time.Now())
	l.mu.Unlock()
}
