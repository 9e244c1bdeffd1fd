package peer

import "sync"

// EventKind distinguishes what a UI-facing notification carries.
type EventKind string

const (
	EventChat            EventKind = "chat"
	EventError           EventKind = "error"
	EventKicked          EventKind = "kicked"
	EventSnapshotUpdated EventKind = "snapshot_updated"
)

// Event is one notification handed to whatever external collaborator
// renders LanForge's terminal UI: the core carries notifications, it
// does not render them.
type Event struct {
	Kind EventKind
	Text string
}

// Bus fans Peer-internal notifications out to interested subscribers: a
// mutex-guarded set of buffered channels, non-blocking on send, closed
// on unsubscribe.
type Bus struct {
	mu      sync.Mutex
	clients map[chan Event]bool
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{clients: make(map[chan Event]bool)}
}

// Subscribe returns a channel that receives every future event.
func (b *Bus) Subscribe() chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.clients[ch] = true
	b.mu.Unlock()
	return ch
}

// Unsubscribe stops delivery to ch and closes it.
func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	if b.clients[ch] {
		delete(b.clients, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish fans ev out to every subscriber, dropping it for any subscriber
// whose channel is full rather than blocking the peer's event loop.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.clients {
		select {
		case ch <- ev:
		default:
		}
	}
}
