package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventModuleInstallStarted   EventType = "module.install.started"
	EventModuleInstallCompleted EventType = "module.install.completed"
	EventModuleInstallFailed    EventType = "module.install.failed"
	EventModuleRepaired         EventType = "module.repaired"
	EventInstanceDeployed       EventType = "instance.deployed"
	EventInstanceReady          EventType = "instance.ready"
	EventInstanceFallback       EventType = "instance.fallback"
	EventInstanceFailed         EventType = "instance.failed"
	EventConfigApplied          EventType = "config.applied"
	EventConfigRejected         EventType = "config.rejected"
	EventResourceRepaired       EventType = "resource.repaired"
	EventCredentialCreated      EventType = "credential.created"
	EventCredentialRotated      EventType = "credential.rotated"
	EventBackupCompleted        EventType = "backup.completed"
	EventBackupFailed           EventType = "backup.failed"
	EventBackupPruned           EventType = "backup.pruned"
	EventSiteAdded              EventType = "site.added"
	EventSiteRemoved            EventType = "site.removed"
)

// Event represents one provisioning lifecycle event
type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Module    string            `json:"module,omitempty"`
	Instance  string            `json:"instance,omitempty"`
	Message   string            `json:"message,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// New creates an event with a fresh ID and timestamp
func New(eventType EventType, message string) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Message:   message,
	}
}

// WithModule tags the event with the module that produced it
func (e *Event) WithModule(module string) *Event {
	e.Module = module
	return e
}

// WithInstance tags the event with the instance it concerns
func (e *Event) WithInstance(instance string) *Event {
	e.Instance = instance
	return e
}

// WithMeta attaches one metadata key
func (e *Event) WithMeta(key, value string) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// Subscriber is a channel that receives events
type Subscriber chan *Event

// Broker manages event subscriptions and distribution
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100), // Buffer up to 100 events
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe creates a new subscription and returns a channel
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50) // Buffer per subscriber
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
}

// Publish publishes an event to all subscribers
func (b *Broker) Publish(event *Event) {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber buffer full, skip
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
