package events

import (
	"sync"
	"time"
)

// Type identifies the kind of notification carried by an Event.
type Type string

const (
	// ProcessOutput carries a raw chunk read from a process's stdout or stderr.
	ProcessOutput Type = "process_output"
	// ProcessExited is the final event published for a process id.
	ProcessExited Type = "process_exited"
	// ProcessError reports a process-level failure (binary missing, spawn failure).
	ProcessError Type = "process_error"
	// ProcessTimeout reports that the watchdog fired; a kill follows immediately.
	ProcessTimeout Type = "process_timeout"
)

// Event is a single notification about one supervised process.
// Only the fields relevant to the event's Type are populated.
type Event struct {
	Type      Type
	ProcessID string
	Timestamp time.Time

	// ProcessOutput
	Stream string // "stdout" or "stderr"
	Chunk  string

	// ProcessExited
	ExitCode *int
	Signal   string // signal name, empty if the process was not signaled
	Status   string // final record status at exit time

	// ProcessError
	Err string
}

// subscriberBuffer is the per-subscriber channel capacity. Publish never
// blocks: a subscriber that falls further behind than this loses events.
const subscriberBuffer = 256

// Subscription is one consumer's view of the bus. Events arrive on C.
type Subscription struct {
	C      <-chan Event
	ch     chan Event
	bus    *Bus
	closed bool
}

// Close detaches the subscription from the bus and closes C.
// Safe to call more than once.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	delete(s.bus.subs, s)
	close(s.ch)
}

// Bus is a broadcast channel for process lifecycle events. Any number of
// collaborators may subscribe; publishing never waits for a subscriber.
type Bus struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new consumer. The caller must drain Subscription.C
// promptly or accept dropped events, and must Close it when done.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan Event, subscriberBuffer)
	sub := &Subscription{C: ch, ch: ch, bus: b}
	b.subs[sub] = struct{}{}
	return sub
}

// Publish delivers ev to every current subscriber. Subscribers whose buffers
// are full are skipped rather than blocked on.
func (b *Bus) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
