// Package events carries grant lifecycle notifications to audit and
// notification collaborators. Payloads are immutable values holding only
// identifiers, never entity references.
package events

import (
	"log/slog"
	"sync"

	"idadmin/internal/grant/models"
)

// Event is the union of grant lifecycle payloads. Subscribers type-switch
// on the concrete payload types from the models package.
type Event interface {
	Name() string
}

// GrantDeletedEvent wraps the single-grant deletion payload.
type GrantDeletedEvent struct {
	models.GrantDeleted
}

func (GrantDeletedEvent) Name() string { return models.AuditActionGrantDeleted }

// GrantsDeletedForSubjectEvent wraps the per-subject deletion payload.
type GrantsDeletedForSubjectEvent struct {
	models.GrantsDeletedForSubject
}

func (GrantsDeletedForSubjectEvent) Name() string {
	return models.AuditActionGrantsDeletedForSubject
}

// Bus fans events out to subscribers over buffered channels. Publishing is
// fire-and-forget: a slow subscriber loses events rather than blocking the
// command path.
type Bus struct {
	mu     sync.RWMutex
	subs   []chan Event
	logger *slog.Logger
	closed bool
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{logger: logger}
}

// Subscribe registers a new subscriber with the given buffer size and
// returns its channel. The channel closes when the bus closes.
func (b *Bus) Subscribe(buffer int) <-chan Event {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs = append(b.subs, ch)
	return ch
}

// PublishGrantDeleted notifies subscribers that a single grant was removed.
func (b *Bus) PublishGrantDeleted(payload models.GrantDeleted) {
	b.publish(GrantDeletedEvent{payload})
}

// PublishGrantsDeletedForSubject notifies subscribers that a subject's
// grants were removed.
func (b *Bus) PublishGrantsDeletedForSubject(payload models.GrantsDeletedForSubject) {
	b.publish(GrantsDeletedForSubjectEvent{payload})
}

func (b *Bus) publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			if b.logger != nil {
				b.logger.Warn("event subscriber buffer full, event dropped",
					"event", event.Name(),
				)
			}
		}
	}
}

// Close closes all subscriber channels. Publishing after Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
