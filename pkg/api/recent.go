package api

import (
	"sync"

	"github.com/quayside/chandler/pkg/events"
)

// DefaultRecentEvents is how many events the API keeps for inspection
const DefaultRecentEvents = 200

// RecentEvents buffers the newest provisioning events from the broker so
// the API can show what the agent has been doing without persisting an
// event log.
type RecentEvents struct {
	broker *events.Broker
	limit  int

	mu     sync.Mutex
	buf    []*events.Event
	sub    events.Subscriber
	doneCh chan struct{}
}

// NewRecentEvents creates a buffer of at most limit events
func NewRecentEvents(broker *events.Broker, limit int) *RecentEvents {
	if limit <= 0 {
		limit = DefaultRecentEvents
	}
	return &RecentEvents{
		broker: broker,
		limit:  limit,
	}
}

// Start subscribes to the broker and begins buffering
func (r *RecentEvents) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub != nil {
		return
	}
	r.sub = r.broker.Subscribe()
	r.doneCh = make(chan struct{})
	go r.consume(r.sub, r.doneCh)
}

// Stop unsubscribes and stops buffering. Buffered events stay readable.
func (r *RecentEvents) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub == nil {
		return
	}
	r.broker.Unsubscribe(r.sub)
	<-r.doneCh
	r.sub = nil
	r.doneCh = nil
}

func (r *RecentEvents) consume(sub events.Subscriber, done chan struct{}) {
	defer close(done)
	for event := range sub {
		r.mu.Lock()
		r.buf = append(r.buf, event)
		if len(r.buf) > r.limit {
			r.buf = r.buf[len(r.buf)-r.limit:]
		}
		r.mu.Unlock()
	}
}

// Snapshot returns the buffered events, newest first
func (r *RecentEvents) Snapshot() []*events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*events.Event, len(r.buf))
	for i, event := range r.buf {
		out[len(r.buf)-1-i] = event
	}
	return out
}
