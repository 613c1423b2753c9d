// Package hub owns the set of live client sessions. It fans context and
// diff notifications out to every session and enforces the keep-alive
// contract that reaps unresponsive clients.
package hub

import (
	"log"
	"sync"
	"time"

	"github.com/gemini-nvim/ide-companion/internal/companion"
)

const (
	// KeepAliveInterval is the fixed ping cadence per session.
	KeepAliveInterval = 60 * time.Second

	// MaxMissedPings is the consecutive-failure budget before a session
	// is abandoned.
	MaxMissedPings = 3
)

// Notifier submits a notification onto a session's transport. A non-nil
// error means the submission failed (unknown session, blocked stream).
type Notifier interface {
	Send(sessionID, method string, params map[string]any) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(sessionID, method string, params map[string]any) error

// Send calls f.
func (f NotifierFunc) Send(sessionID, method string, params map[string]any) error {
	return f(sessionID, method, params)
}

type session struct {
	missedPings        int
	initialContextSent bool
	stop               chan struct{}
}

// Hub tracks live sessions keyed by session id. All exported methods are
// safe for concurrent use; the lock is never held across a transport send.
type Hub struct {
	mu        sync.Mutex
	sessions  map[string]*session
	notifier  Notifier
	interval  time.Duration
	onAbandon func(sessionID string)
}

// Option configures a Hub.
type Option func(*Hub)

// WithKeepAliveInterval overrides the ping cadence (tests).
func WithKeepAliveInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.interval = d
		}
	}
}

// WithAbandonFunc sets the callback invoked when a session exhausts its
// missed-ping budget. The callback is expected to close the transport,
// which in turn removes the session from the hub.
func WithAbandonFunc(fn func(sessionID string)) Option {
	return func(h *Hub) { h.onAbandon = fn }
}

// New creates an empty hub sending through the given notifier.
func New(n Notifier, opts ...Option) *Hub {
	h := &Hub{
		sessions: make(map[string]*session),
		notifier: n,
		interval: KeepAliveInterval,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Add registers a session and starts its keep-alive timer. Adding an id
// that is already present is a no-op.
func (h *Hub) Add(sessionID string) {
	h.mu.Lock()
	if _, exists := h.sessions[sessionID]; exists {
		h.mu.Unlock()
		return
	}
	s := &session{stop: make(chan struct{})}
	h.sessions[sessionID] = s
	h.mu.Unlock()

	log.Printf("hub: session connected: %s", sessionID)
	go h.keepAlive(sessionID, s.stop)
}

// Remove stops the session's keep-alive timer and forgets it. Called on
// transport close.
func (h *Hub) Remove(sessionID string) {
	h.mu.Lock()
	s, ok := h.sessions[sessionID]
	if ok {
		delete(h.sessions, sessionID)
		close(s.stop)
	}
	h.mu.Unlock()
	if ok {
		log.Printf("hub: session closed: %s", sessionID)
	}
}

// Has reports whether the session id is live.
func (h *Hub) Has(sessionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.sessions[sessionID]
	return ok
}

// Len returns the number of live sessions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// IDs returns a snapshot of the live session ids.
func (h *Hub) IDs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Broadcast submits a notification to every live session in its own
// submission order. Send failures are logged and left to the keep-alive
// discipline; there is no retry.
func (h *Hub) Broadcast(method string, params map[string]any) {
	for _, id := range h.IDs() {
		if err := h.notifier.Send(id, method, params); err != nil {
			log.Printf("hub: %s notification to %s failed: %v", method, id, err)
		}
	}
}

// SendInitialContext delivers the one-time context snapshot for a newly
// resumed session. Returns true when this call was the first and the
// notification was submitted; later calls are no-ops.
func (h *Hub) SendInitialContext(sessionID string, params map[string]any) bool {
	h.mu.Lock()
	s, ok := h.sessions[sessionID]
	if !ok || s.initialContextSent {
		h.mu.Unlock()
		return false
	}
	s.initialContextSent = true
	h.mu.Unlock()

	if err := h.notifier.Send(sessionID, companion.MethodContextUpdate, params); err != nil {
		log.Printf("hub: initial context to %s failed: %v", sessionID, err)
	}
	return true
}

// Close removes every session.
func (h *Hub) Close() {
	for _, id := range h.IDs() {
		h.Remove(id)
	}
}

// keepAlive pings the session at the fixed interval. A successful send
// resets the miss counter; after MaxMissedPings consecutive failures the
// session is abandoned and the timer stops.
func (h *Hub) keepAlive(sessionID string, stop <-chan struct{}) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			err := h.notifier.Send(sessionID, companion.MethodPing, nil)

			h.mu.Lock()
			s, ok := h.sessions[sessionID]
			if !ok {
				h.mu.Unlock()
				return
			}
			if err == nil {
				s.missedPings = 0
				h.mu.Unlock()
				continue
			}
			s.missedPings++
			missed := s.missedPings
			h.mu.Unlock()

			log.Printf("hub: keep-alive ping to %s failed (%d/%d): %v",
				sessionID, missed, MaxMissedPings, err)
			if missed >= MaxMissedPings {
				log.Printf("hub: abandoning unresponsive session %s", sessionID)
				if h.onAbandon != nil {
					h.onAbandon(sessionID)
				}
				return
			}
		}
	}
}
