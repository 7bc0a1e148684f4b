package task

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mholden/brewdeck/internal/domain"
)

// DefaultTimeout bounds a task when the request doesn't carry one
const DefaultTimeout = 10 * time.Minute

// Completion pairs a finished task with its outcome
type Completion struct {
	ID      ID
	Request Request
	Outcome domain.Outcome
}

// Manager owns every live task handle. Submit starts work without blocking;
// PollAll is called once per redraw tick and drains everything that reached
// a terminal state since the last call. Read-only lookups run concurrently,
// but at most one privileged task is in flight system-wide: later
// privileged submissions queue FIFO and are promoted when the slot frees,
// at the start of the next poll cycle.
type Manager struct {
	mu sync.Mutex

	live      map[ID]*Handle
	completed []ID // completion order, drained by PollAll

	privilegedLive  ID // "" when the slot is free
	privilegedQueue []*Handle

	bus            *Bus
	logger         *slog.Logger
	defaultTimeout time.Duration
}

// NewManager creates a task manager publishing to bus
func NewManager(bus *Bus, logger *slog.Logger, defaultTimeout time.Duration) *Manager {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultTimeout
	}
	return &Manager{
		live:           make(map[ID]*Handle),
		bus:            bus,
		logger:         logger,
		defaultTimeout: defaultTimeout,
	}
}

// Submit registers the request and starts it, unless it is privileged and
// the privileged slot is busy, in which case it queues. Returns immediately.
func (m *Manager) Submit(req Request) ID {
	h := newHandle(req)

	m.mu.Lock()
	m.live[h.id] = h
	if req.Kind.Privileged() && m.privilegedLive != "" {
		m.privilegedQueue = append(m.privilegedQueue, h)
		m.mu.Unlock()
		m.bus.Publishf("Queued: %s", req.Label)
		m.logger.Debug("privileged task queued", "id", h.id, "op", req.Kind.String())
		return h.id
	}
	m.startLocked(h)
	m.mu.Unlock()

	m.bus.Publishf("Started: %s", req.Label)
	return h.id
}

// startLocked launches the worker goroutine. Caller holds m.mu.
func (m *Manager) startLocked(h *Handle) {
	if h.req.Kind.Privileged() {
		m.privilegedLive = h.id
	}
	timeout := h.req.Timeout
	if timeout <= 0 {
		timeout = m.defaultTimeout
	}
	m.logger.Info("task started", "id", h.id, "op", h.req.Kind.String(), "label", h.req.Label)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		outcome := h.req.Run(ctx)
		h.complete(outcome)

		m.mu.Lock()
		m.completed = append(m.completed, h.id)
		m.mu.Unlock()
	}()
}

// PollAll returns every task that reached a terminal state since the last
// call, in completion order, removing them from the live set. Cancelled
// tasks are discarded silently. Calling it again with no new completions
// returns nil. After draining, a queued privileged task is promoted if the
// slot freed.
func (m *Manager) PollAll() []Completion {
	m.mu.Lock()

	var out []Completion
	var remaining []ID
	for _, id := range m.completed {
		h, ok := m.live[id]
		if !ok {
			continue
		}
		outcome, terminal, discarded := h.poll()
		if !terminal {
			remaining = append(remaining, id)
			continue
		}
		delete(m.live, id)
		if m.privilegedLive == id {
			m.privilegedLive = ""
		}
		if discarded {
			m.logger.Debug("discarded cancelled task result", "id", id)
			continue
		}
		out = append(out, Completion{ID: id, Request: h.req, Outcome: outcome})
	}
	m.completed = remaining

	// Promote the next queued privileged task now that the slot may be free.
	var promoted *Handle
	if m.privilegedLive == "" && len(m.privilegedQueue) > 0 {
		promoted = m.privilegedQueue[0]
		m.privilegedQueue = append(m.privilegedQueue[:0], m.privilegedQueue[1:]...)
		m.startLocked(promoted)
	}
	m.mu.Unlock()

	for _, c := range out {
		if c.Outcome.OK() {
			m.bus.Publishf("Finished: %s", c.Request.Label)
		} else if !c.Outcome.NeedsCredential() {
			m.bus.Publishf("Failed: %s: %s", c.Request.Label, c.Outcome.Err.Error())
		}
		m.logger.Info("task finished", "id", c.ID, "op", c.Request.Kind.String(), "ok", c.Outcome.OK())
	}
	if promoted != nil {
		m.bus.Publishf("Started: %s", promoted.req.Label)
	}
	return out
}

// Cancel marks a task cancelled. In-flight work runs to completion on its
// own goroutine but the result is discarded on poll; a still-queued
// privileged task is removed from the queue outright.
func (m *Manager) Cancel(id ID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	h, ok := m.live[id]
	if !ok {
		return
	}
	h.cancel()
	for i, q := range m.privilegedQueue {
		if q.id == id {
			m.privilegedQueue = append(m.privilegedQueue[:i], m.privilegedQueue[i+1:]...)
			delete(m.live, id)
			break
		}
	}
}

// Active returns the number of live tasks (queued ones included)
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// PrivilegedBusy reports whether a privileged task currently holds the slot
func (m *Manager) PrivilegedBusy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.privilegedLive != ""
}

// QueuedPrivileged returns how many privileged tasks are waiting for the slot
func (m *Manager) QueuedPrivileged() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.privilegedQueue)
}
