package session

import (
	"slices"
	"time"
)

// Reason explains why a session ended.
type Reason string

const (
	ReasonLogout       Reason = "logout"
	ReasonUnauthorized Reason = "unauthorized"
	ReasonCorruptState Reason = "corrupt_state"
)

// DefaultLoginPath is where a terminated session sends the user.
const DefaultLoginPath = "/login"

// Event is delivered to subscribers every time the session is torn down.
type Event struct {
	Reason     Reason
	RedirectTo string
	At         time.Time
}

// Navigator moves the active view to path. Implementations must tolerate
// repeated calls for the same path.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// Subscribe registers fn to receive session-terminated events and returns a
// function that removes it. fn runs on the goroutine that triggered the
// teardown and must not block.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) emit(ev Event) {
	m.mu.RLock()
	ids := make([]uint64, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	fns := make([]func(Event), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, m.listeners[id])
	}
	m.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

