// Package events turns committed collection changes into CloudEvents and
// fans them out to in-process subscribers such as the websocket stream.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"inked/pkg/domain"
)

// DefaultSource is the CloudEvents source used when none is configured.
const DefaultSource = "inked"

const typePrefix = "com.inked."

// Handler receives published events. Handlers run synchronously on the
// publishing goroutine and must not block.
type Handler func(ctx context.Context, event cloudevents.Event)

// Bus delivers change events to subscribers.
type Bus struct {
	source string
	logger zerolog.Logger
	nowFn  func() time.Time

	mu   sync.RWMutex
	next uint64
	subs map[uint64]Handler
}

// NewBus constructs a bus stamping events with source.
func NewBus(source string, logger zerolog.Logger) *Bus {
	if source == "" {
		source = DefaultSource
	}
	return &Bus{
		source: source,
		logger: logger,
		nowFn:  func() time.Time { return time.Now().UTC() },
		subs:   make(map[uint64]Handler),
	}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.next++
	id := b.next
	b.subs[id] = h
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

// Subscribers returns the number of registered handlers.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// PublishChange converts a change to a CloudEvent and publishes it.
func (b *Bus) PublishChange(ctx context.Context, change domain.Change) error {
	event, err := NewChangeEvent(b.source, change, b.nowFn())
	if err != nil {
		return err
	}
	b.Publish(ctx, event)
	return nil
}

// Publish delivers event to every subscriber.
func (b *Bus) Publish(ctx context.Context, event cloudevents.Event) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs))
	for _, h := range b.subs {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	b.logger.Debug().Str("type", event.Type()).Str("subject", event.Subject()).Int("subscribers", len(handlers)).Msg("publish event")
	for _, h := range handlers {
		h(ctx, event)
	}
}

// EventType names the CloudEvents type for an entity action, for example
// com.inked.pen.created.
func EventType(entity domain.EntityType, action domain.Action) string {
	var verb string
	switch action {
	case domain.ActionCreate:
		verb = "created"
	case domain.ActionUpdate:
		verb = "updated"
	case domain.ActionDelete:
		verb = "deleted"
	default:
		verb = string(action)
	}
	return typePrefix + string(entity) + "." + verb
}

// NewChangeEvent builds a validated CloudEvent carrying a domain.ChangePayload.
func NewChangeEvent(source string, change domain.Change, at time.Time) (cloudevents.Event, error) {
	payload, err := domain.NewChangePayload(change)
	if err != nil {
		return cloudevents.Event{}, err
	}
	event := cloudevents.NewEvent()
	event.SetID(eventID())
	event.SetSource(source)
	event.SetType(EventType(change.Entity, change.Action))
	event.SetTime(at)
	event.SetSpecVersion(cloudevents.VersionV1)
	if payload.ID != "" {
		event.SetSubject(payload.ID)
	}
	if err := event.SetData(cloudevents.ApplicationJSON, payload); err != nil {
		return cloudevents.Event{}, fmt.Errorf("set event data: %w", err)
	}
	if err := event.Validate(); err != nil {
		return cloudevents.Event{}, fmt.Errorf("invalid change event: %w", err)
	}
	return event, nil
}

// DecodeChange extracts the change payload from an event built by
// NewChangeEvent.
func DecodeChange(event cloudevents.Event) (domain.ChangePayload, error) {
	var payload domain.ChangePayload
	if err := event.DataAs(&payload); err != nil {
		return domain.ChangePayload{}, fmt.Errorf("decode change event: %w", err)
	}
	return payload, nil
}

func eventID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String()
}
