// Package signal provides a typed observer primitive.
//
// A Signal delivers a value to every connected callback. Callbacks are
// invoked from a snapshot taken outside the lock, in connection order, so
// callbacks may connect or disconnect (including themselves) while a
// delivery is in progress. Connections are owned by whoever holds them:
// disconnect them directly or gather them in a Holder and clear it.
package signal

import (
	"slices"
	"sync"
)

// Signal is a set of callbacks that receive values of type A.
type Signal[A any] struct {
	mu        sync.RWMutex
	callbacks map[uint64]func(A)
	nextID    uint64
}

// New creates an empty signal.
func New[A any]() *Signal[A] {
	return &Signal[A]{callbacks: make(map[uint64]func(A))}
}

// Connect registers cb and returns the connection that removes it.
func (s *Signal[A]) Connect(cb func(A)) *Connection {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.callbacks == nil {
		s.callbacks = make(map[uint64]func(A))
	}
	id := s.nextID
	s.nextID++
	s.callbacks[id] = cb

	return &Connection{disconnect: func() { s.disconnect(id) }}
}

// Invoke delivers a to every connected callback.
func (s *Signal[A]) Invoke(a A) {
	s.mu.RLock()
	ids := make([]uint64, 0, len(s.callbacks))
	for id := range s.callbacks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	callbacks := make([]func(A), 0, len(ids))
	for _, id := range ids {
		callbacks = append(callbacks, s.callbacks[id])
	}
	s.mu.RUnlock()

	// Call outside the lock
	for _, cb := range callbacks {
		cb(a)
	}
}

// Len returns the number of connected callbacks.
func (s *Signal[A]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.callbacks)
}

// DisconnectAll removes every callback.
func (s *Signal[A]) DisconnectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.callbacks)
}

func (s *Signal[A]) disconnect(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.callbacks, id)
}

// Connection is the handle of one connected callback.
type Connection struct {
	once       sync.Once
	disconnect func()
}

// Disconnect removes the callback. It is safe to call more than once and
// on a nil connection.
func (c *Connection) Disconnect() {
	if c == nil || c.disconnect == nil {
		return
	}
	c.once.Do(c.disconnect)
}

// Holder owns a group of connections and disconnects them together.
// The zero value is ready to use.
type Holder struct {
	mu    sync.Mutex
	conns []*Connection
}

// Add takes ownership of c.
func (h *Holder) Add(c *Connection) {
	if c == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns = append(h.conns, c)
}

// Clear disconnects every held connection.
func (h *Holder) Clear() {
	h.mu.Lock()
	conns := h.conns
	h.conns = nil
	h.mu.Unlock()

	for _, c := range conns {
		c.Disconnect()
	}
}

// Len returns the number of held connections.
func (h *Holder) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
