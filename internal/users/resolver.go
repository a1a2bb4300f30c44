package users

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Directory looks up a user's display name on the platform.
type Directory interface {
	Lookup(ctx context.Context, userID string) (string, error)
}

// StaticDirectory serves names from a fixed map. Useful for local runs
// and tests.
type StaticDirectory map[string]string

func (d StaticDirectory) Lookup(_ context.Context, userID string) (string, error) {
	name, ok := d[userID]
	if !ok {
		return "", fmt.Errorf("no such user: %s", userID)
	}
	return name, nil
}

// Resolver caches successful Directory lookups in a bounded map and
// degrades to a generic fallback label when a lookup fails, so a slow
// or broken platform call never breaks a summary line.
type Resolver struct {
	dir Directory
	max int

	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	name     string
	lastUsed time.Time
}

func NewResolver(dir Directory, maxEntries int) *Resolver {
	if maxEntries <= 0 {
		maxEntries = 256
	}
	return &Resolver{
		dir:     dir,
		max:     maxEntries,
		entries: make(map[string]*cacheEntry),
	}
}

// DisplayName never fails: unknown or unreachable users get the
// fallback label.
func (r *Resolver) DisplayName(ctx context.Context, userID string) string {
	r.mu.Lock()
	if e, ok := r.entries[userID]; ok {
		e.lastUsed = time.Now()
		r.mu.Unlock()
		return e.name
	}
	r.mu.Unlock()

	if r.dir != nil {
		name, err := r.dir.Lookup(ctx, userID)
		if err == nil && name != "" {
			r.store(userID, name)
			return name
		}
	}
	return Fallback(userID)
}

func (r *Resolver) store(userID, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) >= r.max {
		r.evictOldest()
	}
	r.entries[userID] = &cacheEntry{name: name, lastUsed: time.Now()}
}

// evictOldest drops the least recently used entry. Caller holds mu.
func (r *Resolver) evictOldest() {
	var oldestID string
	var oldestTime time.Time
	first := true

	for id, e := range r.entries {
		if first || e.lastUsed.Before(oldestTime) {
			oldestID = id
			oldestTime = e.lastUsed
			first = false
		}
	}
	if oldestID != "" {
		delete(r.entries, oldestID)
	}
}

// Fallback is the label shown when a display name cannot be resolved.
func Fallback(userID string) string {
	return "user " + userID
}
