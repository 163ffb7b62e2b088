// Package cache implements the in-process TTL store sitting in front of the
// data access layer. It is a pure best-effort cache: a miss always falls
// through to the database, and entries are never served past their TTL.
package cache

import (
	"strings"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"
)

// DefaultTTL applies when Set is called with a non-positive TTL.
const DefaultTTL = 5 * time.Minute

// DefaultSweepInterval is how often the janitor scans for expired entries
// that were set but never read again.
const DefaultSweepInterval = time.Minute

type entry struct {
	value      interface{}
	insertedAt time.Time
	ttl        time.Duration
}

// Store is a mutex-guarded key/value map with per-entry TTL, lazy expiry on
// Get and a periodic sweep. Construct with New and call Start to run the
// janitor; Stop cancels it.
type Store struct {
	mu            sync.RWMutex
	entries       map[string]entry
	sweepInterval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	now      func() time.Time
}

func New(sweepInterval time.Duration) *Store {
	if sweepInterval <= 0 {
		sweepInterval = DefaultSweepInterval
	}
	return &Store{
		entries:       make(map[string]entry),
		sweepInterval: sweepInterval,
		stop:          make(chan struct{}),
		now:           time.Now,
	}
}

// Get returns the cached value for key, or (nil, false) when the key is
// absent or expired. An expired entry is deleted on the spot.
func (s *Store) Get(key string) (interface{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if s.now().Sub(e.insertedAt) >= e.ttl {
		delete(s.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key. Last writer wins, no versioning.
func (s *Store) Set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = entry{value: value, insertedAt: s.now(), ttl: ttl}
}

func (s *Store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// DeletePrefix removes every entry whose key starts with prefix. Write paths
// use this to invalidate all cached result sets of one table.
func (s *Store) DeletePrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key := range s.entries {
		if strings.HasPrefix(key, prefix) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry)
}

// Len reports the number of entries, expired ones included until swept.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Start launches the janitor goroutine. Keys that are set but never read
// again would otherwise pin memory until process exit.
func (s *Store) Start() {
	go func() {
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if removed := s.sweep(); removed > 0 {
					logger.WithFields(map[string]interface{}{
						"component": "cache",
						"removed":   removed,
					}).Debug("Swept expired cache entries")
				}
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop cancels the janitor. Safe to call more than once.
func (s *Store) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Store) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.entries {
		if now.Sub(e.insertedAt) >= e.ttl {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}
