// Package cache holds the view-model caches of the HTTP layer.
package cache

import (
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"hostel/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Purge()
	Size() int
}

// Loader fronts a cache and collapses concurrent fills of the same key into
// one call.
type Loader[T any] struct {
	cache Cache[T]
	group singleflight.Group
	// generation is bumped by Invalidate; fills are keyed and stored per
	// generation so callers arriving after it never share an older fill
	mu         sync.Mutex
	generation uint64
}

// NewLoader creates a loader over c.
func NewLoader[T any](c Cache[T]) *Loader[T] {
	return &Loader[T]{cache: c}
}

// Get returns the cached value for key, calling fill on a miss. The bool
// result reports a cache hit.
func (l *Loader[T]) Get(key string, fill func() (T, error)) (T, bool, error) {
	if v, ok := l.cache.Get(key); ok {
		return v, true, nil
	}
	l.mu.Lock()
	gen := l.generation
	l.mu.Unlock()

	v, err, _ := l.group.Do(key+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		data, err := fill()
		if err != nil {
			return data, err
		}
		l.mu.Lock()
		if gen == l.generation {
			l.cache.Set(key, data)
		}
		l.mu.Unlock()
		return data, nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	return v.(T), false, nil
}

// Invalidate drops every cached value.
func (l *Loader[T]) Invalidate() {
	l.mu.Lock()
	l.generation++
	l.mu.Unlock()
	l.cache.Purge()
}

// Cleaner is implemented by caches that support expiry sweeps.
type Cleaner interface {
	CleanExpired() int
}

// Manager sweeps expired entries from registered caches.
type Manager struct {
	caches      []Cleaner
	logger      *log.Logger
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	started     bool
	stopOnce    sync.Once
}

// NewManager creates a manager with no registered caches.
func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Discard()
	}
	return &Manager{
		logger:      logger.WithComponent(log.ComponentCache),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a cache for cleanup. Call before StartCleanup.
func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

// StartCleanup sweeps registered caches every interval until Stop.
func (m *Manager) StartCleanup(interval time.Duration) {
	m.started = true
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			total := 0
			for _, c := range m.caches {
				total += c.CleanExpired()
			}
			if total > 0 {
				m.logger.Debug("Expired cache entries removed", "count", total)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop ends the cleanup routine. Safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCleanup)
		if m.started {
			<-m.cleanupDone
		}
	})
}
