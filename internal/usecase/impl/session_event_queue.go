package impl

import (
	"sync"
	"time"

	"dubaivat/internal/domain/entity"

	"github.com/google/uuid"
)

// sessionEventKind distinguishes the inputs of the session machine.
type sessionEventKind int

const (
	// eventAuth is a notification from the identity provider.
	eventAuth sessionEventKind = iota + 1
	// eventBootstrap carries the result of the startup session read.
	eventBootstrap
	// eventResolved carries the result of a background profile resolution.
	eventResolved
	// eventTimer is a safety timer firing.
	eventTimer
	// eventCommand applies the outcome of a UI command.
	eventCommand
)

// timerKind names the two safety timers.
type timerKind string

const (
	timerInitialLoad  timerKind = "initial_load"
	timerLoadingFloor timerKind = "loading_floor"
)

// resolution is the outcome of one background profile read.
type resolution struct {
	epoch uint64
	// profileVersion is the machine's profile version when the read started.
	profileVersion uint64
	ownerID        uuid.UUID
	trigger    entity.AuthEventType
	business   *entity.BusinessProfile
	individual *entity.IndividualProfile
	// individualFetch is set when the individual profile was read.
	individualFetch bool
	ok              bool
	latency         time.Duration
}

type bootstrapResult struct {
	session *entity.Session
	err     error
}

type timerFire struct {
	kind timerKind
	gen  uint64
}

type command struct {
	apply func() error
	reply chan error
}

// sessionEvent is the single input type of the machine loop.
type sessionEvent struct {
	kind       sessionEventKind
	auth       entity.AuthEvent
	bootstrap  bootstrapResult
	resolution *resolution
	timer      timerFire
	command    *command
}

// sessionEventQueue is a thread-safe unbounded FIFO. Provider callbacks, timer
// goroutines and command callers enqueue; only the machine loop dequeues.
type sessionEventQueue struct {
	mu     sync.Mutex
	events []sessionEvent
	closed bool
	signal chan struct{} // buffered, size 1
}

func newSessionEventQueue() *sessionEventQueue {
	return &sessionEventQueue{
		events: make([]sessionEvent, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *sessionEventQueue) Enqueue(e sessionEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Non-blocking; the buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front event without blocking.
func (q *sessionEventQueue) TryDequeue() (sessionEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return sessionEvent{}, false
	}

	e := q.events[0]
	q.events[0] = sessionEvent{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that signals when events may be available. The
// channel is closed once the queue is closed.
func (q *sessionEventQueue) Wait() <-chan struct{} {
	return q.signal
}

func (q *sessionEventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.events)
}

// Close stops accepting events and wakes the loop. Events already queued are
// returned to the caller so pending commands can be answered.
func (q *sessionEventQueue) Close() []sessionEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	q.closed = true
	close(q.signal)

	pending := q.events
	q.events = nil

	return pending
}
