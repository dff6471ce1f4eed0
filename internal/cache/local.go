package cache

import (
	"sync"
	"time"
)

type localItem struct {
	value     string
	expiresAt time.Time
}

func (it localItem) expired() bool {
	return time.Now().After(it.expiresAt)
}

// Local is a best-effort in-process cache consulted only when the remote
// store errors. It is never authoritative: a request may land on a cold
// instance with nothing in it, and entries are not invalidated across
// instances. Construct one per process and inject it; there is no package
// singleton.
type Local struct {
	mu    sync.RWMutex
	items map[string]localItem
	stop  chan struct{}
	once  sync.Once
}

// NewLocal creates a fallback cache. If cleanupInterval is positive a
// janitor goroutine periodically drops expired entries; call Stop to end it.
func NewLocal(cleanupInterval time.Duration) *Local {
	l := &Local{
		items: make(map[string]localItem),
		stop:  make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go l.janitor(cleanupInterval)
	}
	return l
}

// Get returns the stored value if present and not expired.
func (l *Local) Get(key string) (string, bool) {
	l.mu.RLock()
	it, ok := l.items[key]
	l.mu.RUnlock()
	if !ok || it.expired() {
		return "", false
	}
	return it.value, true
}

// Set stores a value with a TTL.
func (l *Local) Set(key, value string, ttl time.Duration) {
	l.mu.Lock()
	l.items[key] = localItem{value: value, expiresAt: time.Now().Add(ttl)}
	l.mu.Unlock()
}

// Delete removes a key.
func (l *Local) Delete(key string) {
	l.mu.Lock()
	delete(l.items, key)
	l.mu.Unlock()
}

// Len returns the number of entries, expired or not.
func (l *Local) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Stop ends the janitor goroutine. Safe to call more than once.
func (l *Local) Stop() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Local) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.purgeExpired()
		case <-l.stop:
			return
		}
	}
}

func (l *Local) purgeExpired() {
	now := time.Now()
	l.mu.Lock()
	for key, it := range l.items {
		if now.After(it.expiresAt) {
			delete(l.items, key)
		}
	}
	l.mu.Unlock()
}
