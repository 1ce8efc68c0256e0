package progress

import (
	"sync"
	"time"
)

// channelBuffer bounds each session's event channel. Delivery is best-effort:
// when a slow consumer fills the buffer, events are dropped rather than
// blocking the job runner.
const channelBuffer = 16

// DefaultGraceDelay is how long a finished session's terminal event is kept
// so a late-connecting or reconnecting stream can still observe it.
const DefaultGraceDelay = 5 * time.Second

type session struct {
	ch       chan Event
	terminal *Event
	cleanup  *time.Timer
}

// Registry is the rendezvous between the import submission endpoint and the
// progress stream endpoint. It maps a session id to at most one subscriber
// channel; the job runner emits into it without knowing whether anyone is
// listening.
type Registry struct {
	mu         sync.Mutex
	sessions   map[string]*session
	graceDelay time.Duration
}

// NewRegistry builds an empty registry. graceDelay <= 0 falls back to
// DefaultGraceDelay.
func NewRegistry(graceDelay time.Duration) *Registry {
	if graceDelay <= 0 {
		graceDelay = DefaultGraceDelay
	}
	return &Registry{
		sessions:   make(map[string]*session),
		graceDelay: graceDelay,
	}
}

// Register attaches a subscriber to the session and returns its event
// channel. A prior subscriber for the same session is displaced (its channel
// is closed) so an abandoned stream never blocks a fresh one. If the session
// already finished within the grace window, the terminal event is replayed
// into the new channel immediately.
func (r *Registry) Register(sessionID string) <-chan Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.sessions[sessionID]
	if s == nil {
		s = &session{}
		r.sessions[sessionID] = s
	}
	if s.ch != nil {
		close(s.ch)
	}
	s.ch = make(chan Event, channelBuffer)
	if s.terminal != nil {
		s.ch <- *s.terminal
	}
	return s.ch
}

// Unregister detaches the subscriber that owns ch. A stale stream calling
// Unregister after being displaced is a no-op, so a reconnect is never torn
// down by its predecessor's cleanup.
func (r *Registry) Unregister(sessionID string, ch <-chan Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.sessions[sessionID]
	if s == nil || s.ch == nil || (<-chan Event)(s.ch) != ch {
		return
	}
	close(s.ch)
	s.ch = nil
	if s.terminal == nil {
		delete(r.sessions, sessionID)
	}
}

// Emit delivers an event to the session's subscriber, if any. It never
// blocks: without a subscriber it is a no-op, and a full buffer drops the
// event. A terminal event is additionally retained for the grace window,
// after which the whole session entry is removed.
func (r *Registry) Emit(sessionID string, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.sessions[sessionID]
	if event.Terminal() {
		if s == nil {
			s = &session{}
			r.sessions[sessionID] = s
		}
		ev := event
		s.terminal = &ev
		if s.cleanup != nil {
			s.cleanup.Stop()
		}
		s.cleanup = time.AfterFunc(r.graceDelay, func() { r.remove(sessionID) })
	}
	if s == nil || s.ch == nil {
		return
	}
	select {
	case s.ch <- event:
	default:
	}
}

// remove drops the session entirely, closing any attached subscriber so its
// stream ends. Runs once the grace delay after a terminal event expires.
func (r *Registry) remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.sessions[sessionID]
	if s == nil {
		return
	}
	if s.ch != nil {
		close(s.ch)
	}
	delete(r.sessions, sessionID)
}

// Len reports the number of live session entries. Used by monitoring and
// tests.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
