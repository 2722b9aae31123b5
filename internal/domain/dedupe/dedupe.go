// Package dedupe tracks which games have already been accepted so a batch
// reconstructs each game once.
package dedupe

import (
	"context"
	"sync"
)

const defaultMaxSize = 50_000

// Deduper records seen game IDs.
type Deduper interface {
	// SeenAndRecord reports whether id was already seen and records it if not.
	SeenAndRecord(ctx context.Context, id string) bool
	// Unrecord forgets id so a rejected submission can be retried.
	Unrecord(ctx context.Context, id string)
	// Size returns the number of remembered IDs.
	Size() int64
}

// gameTracker keeps IDs in a map plus, when bounded, a ring in insertion
// order. The slot written next always holds the oldest ID, so eviction is
// overwriting it. Unrecorded IDs leave empty slots behind.
type gameTracker struct {
	mu      sync.Mutex
	maxSize int
	seen    map[string]int // id -> ring slot, -1 when unbounded
	ring    []slot
	next    int
}

type slot struct {
	id   string
	used bool
}

// NewInMemoryDeduper creates a game tracker with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &gameTracker{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]int)
	if d.maxSize > 0 {
		d.ring = make([]slot, d.maxSize)
	}
	return d
}

func (d *gameTracker) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.ring == nil {
		d.seen[id] = -1
		return false
	}
	if old := d.ring[d.next]; old.used {
		delete(d.seen, old.id)
	}
	d.ring[d.next] = slot{id: id, used: true}
	d.seen[id] = d.next
	d.next = (d.next + 1) % len(d.ring)
	return false
}

func (d *gameTracker) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	pos, ok := d.seen[id]
	if !ok {
		return
	}
	delete(d.seen, id)
	if pos >= 0 {
		d.ring[pos] = slot{}
	}
}

func (d *gameTracker) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
