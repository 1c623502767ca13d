package auth

import (
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// AttemptStore counts failed login attempts per key within a rolling window.
// The in-memory implementation below suits single-instance deployments; a
// shared store can be swapped in behind the same interface.
type AttemptStore interface {
	Increment(key string) (int, error)
	Reset(key string)
}

// CacheAttemptStore backs AttemptStore with an expiring in-memory cache.
// Each key's counter lives for the window duration from its first increment.
type CacheAttemptStore struct {
	cache  *gocache.Cache
	window time.Duration
}

func NewCacheAttemptStore(window time.Duration) *CacheAttemptStore {
	return &CacheAttemptStore{
		cache:  gocache.New(window, 2*window),
		window: window,
	}
}

func (s *CacheAttemptStore) Increment(key string) (int, error) {
	// Add is a no-op when the key already exists within its window.
	_ = s.cache.Add(key, int64(0), s.window)
	n, err := s.cache.IncrementInt64(key, 1)
	if err != nil {
		// Expired between Add and Increment; start over.
		s.cache.Set(key, int64(1), s.window)
		return 1, nil
	}
	return int(n), nil
}

func (s *CacheAttemptStore) Reset(key string) {
	s.cache.Delete(key)
}

// LoginLimiter throttles login attempts keyed by client IP plus a short
// email prefix, so one address hammering many accounts and many addresses
// hammering one account both trip it without letting an attacker lock out
// a full mailbox remotely.
type LoginLimiter struct {
	store AttemptStore
	max   int
}

func NewLoginLimiter(store AttemptStore, maxAttempts int) *LoginLimiter {
	return &LoginLimiter{store: store, max: maxAttempts}
}

func attemptKey(ip, email string) string {
	prefix := strings.ToLower(email)
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	return ip + "|" + prefix
}

// Allow records one attempt and reports whether it is still within budget.
func (l *LoginLimiter) Allow(ip, email string) bool {
	n, err := l.store.Increment(attemptKey(ip, email))
	if err != nil {
		// A broken store must not lock everyone out.
		return true
	}
	return n <= l.max
}

// MarkSuccess clears the counter after a successful login.
func (l *LoginLimiter) MarkSuccess(ip, email string) {
	l.store.Reset(attemptKey(ip, email))
}
