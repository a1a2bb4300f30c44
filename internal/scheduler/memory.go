package scheduler

import (
	"sync"

	"github.com/taskping/taskping/internal/dates"
)

// DispatchMemory remembers the last local calendar date on which a
// reminder went out to each user. It lives for the process lifetime
// only; a restart forgets it, which at worst repeats one reminder and
// never drops one.
type DispatchMemory struct {
	mu   sync.Mutex
	last map[string]dates.Date
}

func NewDispatchMemory() *DispatchMemory {
	return &DispatchMemory{last: make(map[string]dates.Date)}
}

// AlreadySent reports whether a dispatch was recorded for the user on
// the given local date.
func (m *DispatchMemory) AlreadySent(userID string, localDate dates.Date) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	sent, ok := m.last[userID]
	return ok && sent == localDate
}

// MarkSent records that the user's dispatch for localDate was
// attempted, successfully or not.
func (m *DispatchMemory) MarkSent(userID string, localDate dates.Date) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.last[userID] = localDate
}
