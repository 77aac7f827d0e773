// Package notifier fans batch events out to the open dashboard streams.
package notifier

import "sync"

// Source says where a new batch came from.
type Source string

// Event sources.
const (
	// SourceDashboard is a batch generated from the dashboard itself.
	SourceDashboard Source = "dashboard"
	// SourceStateFile is a change to the state database made by another
	// process, such as 'korika predict-all'.
	SourceStateFile Source = "state"
)

// Event announces that the batch shown by the dashboard may have changed.
// BatchID is empty when the new batch is not known yet and listeners should
// reload the latest one.
type Event struct {
	BatchID string
	Source  Source
}

// Notifier broadcasts events to all subscribed listeners.
type Notifier struct {
	mu        sync.RWMutex
	listeners map[chan Event]struct{}
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan Event]struct{}),
	}
}

// Subscribe returns a channel that receives events. The caller must call
// Unsubscribe when done.
func (n *Notifier) Subscribe() chan Event {
	ch := make(chan Event, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener channel and closes it.
func (n *Notifier) Unsubscribe(ch chan Event) {
	n.mu.Lock()
	if _, ok := n.listeners[ch]; ok {
		delete(n.listeners, ch)
		close(ch)
	}
	n.mu.Unlock()
}

// Listeners returns the number of subscribed listeners.
func (n *Notifier) Listeners() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

// Broadcast sends ev to every listener without blocking. A listener with
// an undelivered event keeps the older one; either way it reloads the
// latest batch.
func (n *Notifier) Broadcast(ev Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	for ch := range n.listeners {
		select {
		case ch <- ev:
		default:
		}
	}
}
