package dedupe

import (
	"context"
	"sync"
)

// Tracker remembers submitted job ids so a resubmission is recognized.
// In bounded mode the oldest id is forgotten first.
type Tracker struct {
	mu      sync.Mutex
	maxSize int
	seen    map[string]int // id -> slot in ring (or -1 when unbounded)
	ring    []string
	next    int
}

// NewTracker creates a tracker remembering up to 50000 ids by default.
func NewTracker(opts ...TrackerOption) *Tracker {
	t := &Tracker{maxSize: 50000}
	for _, opt := range opts {
		opt(t)
	}
	t.seen = make(map[string]int)
	if t.maxSize > 0 {
		t.ring = make([]string, t.maxSize)
	}
	return t
}

// SeenAndRecord reports whether id was already recorded and records it if not.
func (t *Tracker) SeenAndRecord(_ context.Context, id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.seen[id]; ok {
		return true
	}
	if t.maxSize <= 0 {
		t.seen[id] = -1
		return false
	}

	// Evict the oldest id unless Forget already released its slot.
	if old := t.ring[t.next]; old != "" {
		if slot, ok := t.seen[old]; ok && slot == t.next {
			delete(t.seen, old)
		}
	}
	t.ring[t.next] = id
	t.seen[id] = t.next
	t.next = (t.next + 1) % t.maxSize
	return false
}

// Forget removes id so it can be submitted again, e.g. after the queue refused it.
func (t *Tracker) Forget(_ context.Context, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	slot, ok := t.seen[id]
	if !ok {
		return
	}
	delete(t.seen, id)
	if slot >= 0 {
		t.ring[slot] = ""
	}
}

// Size returns the number of remembered ids.
func (t *Tracker) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}
