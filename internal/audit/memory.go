package audit

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRecorder keeps entries in process memory, newest last. It is used
// when no database is configured and in tests.
type MemoryRecorder struct {
	mu      sync.RWMutex
	entries []Entry
	max     int
	now     func() time.Time
}

// NewMemoryRecorder keeps at most capacity entries; zero means 10000.
func NewMemoryRecorder(capacity int) *MemoryRecorder {
	if capacity <= 0 {
		capacity = 10000
	}
	return &MemoryRecorder{max: capacity, now: time.Now}
}

func (m *MemoryRecorder) Record(_ context.Context, p Params) (*Entry, error) {
	e := newEntry(uuid.NewString(), p, m.now())
	e.Details = maps.Clone(e.Details)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	if over := len(m.entries) - m.max; over > 0 {
		m.entries = slices.Delete(m.entries, 0, over)
	}
	return &e, nil
}

// List returns matching entries, newest first.
func (m *MemoryRecorder) List(_ context.Context, f Filter) ([]Entry, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Entry, 0, min(limit, len(m.entries)))
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := m.entries[i]
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		if f.StudentID != "" && e.StudentID != f.StudentID {
			continue
		}
		if !f.Since.IsZero() && e.CreatedAt.Before(f.Since) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *MemoryRecorder) Purge(_ context.Context, olderThan time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	before := len(m.entries)
	m.entries = slices.DeleteFunc(m.entries, func(e Entry) bool { return e.CreatedAt.Before(olderThan) })
	return int64(before - len(m.entries)), nil
}
