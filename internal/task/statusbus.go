package task

import (
	"fmt"
	"sync"
	"time"
)

// DefaultLogCapacity bounds the rolling log when the config doesn't
const DefaultLogCapacity = 500

// StatusEvent is one timestamped human-readable status line
type StatusEvent struct {
	At   time.Time
	Line string
}

// Bus is a thread-safe sink for status lines. It keeps a bounded rolling
// log (oldest entries evicted at capacity) plus the single latest line as
// "current status". Publishing never blocks beyond the lock and never fails.
type Bus struct {
	mu       sync.Mutex
	capacity int
	events   []StatusEvent
	current  string
}

// NewBus creates a bus holding at most capacity lines
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &Bus{capacity: capacity}
}

// Publish appends a line to the rolling log and makes it the current status
func (b *Bus) Publish(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.events) >= b.capacity {
		// Evict oldest before appending
		drop := len(b.events) - b.capacity + 1
		b.events = append(b.events[:0], b.events[drop:]...)
	}
	b.events = append(b.events, StatusEvent{At: time.Now(), Line: line})
	b.current = line
}

// Publishf is Publish with formatting
func (b *Bus) Publishf(format string, args ...any) {
	b.Publish(fmt.Sprintf(format, args...))
}

// Current returns the most recently published line
func (b *Bus) Current() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Snapshot returns up to count of the most recent lines, oldest first,
// without mutating the log
func (b *Bus) Snapshot(count int) []StatusEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	if count <= 0 || count > len(b.events) {
		count = len(b.events)
	}
	out := make([]StatusEvent, count)
	copy(out, b.events[len(b.events)-count:])
	return out
}

// Len returns the number of retained lines
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}
