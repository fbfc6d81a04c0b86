/*
Package events provides the pub/sub broker for provisioning lifecycle
events.

Provisioning produces a stream of things an operator wants to see as they
happen: a module install starting, a database falling back to its
alternate image, a config rejected by its validator, a backup completing.
Components publish these as typed events; the API streams them to
clients, and anything else can subscribe without the publishers knowing.

# Architecture

	module · deploy · backup · panel
	        │ Publish
	        ▼
	┌───────────────────┐     buffered channel
	│       Broker      │──────────────────────┐
	└───────────────────┘                      │ broadcast
	        ▲                                  ▼
	        │ Subscribe              per-subscriber buffers
	   API event stream, tests

Delivery is best-effort by design: a subscriber that stops draining its
buffer loses events rather than stalling publishers, because a stuck API
client must never block a module install.

# Usage

Publishing:

	broker.Publish(events.New(events.EventInstanceFallback, "primary image failed readiness").
	    WithModule("database").
	    WithInstance("quayside-db").
	    WithMeta("image", "mysql:8.0"))

Subscribing:

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)
	for event := range sub {
	    fmt.Println(event.Type, event.Message)
	}

# Integration Points

  - pkg/module: module lifecycle and credential events
  - pkg/deploy: instance deploy, ready, fallback, and failure events
  - pkg/backup: backup completion, failure, and pruning events
  - pkg/api: streams events to HTTP clients

# Thread Safety

All broker methods are safe for concurrent use. Events are broadcast from
a single goroutine started by Start, so subscribers observe them in
publish order.
*/
package events
