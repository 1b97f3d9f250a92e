// Package audit captures one record per state transition. Emission is
// best-effort: a failure to audit must never roll back or block the primary
// operation, so the publisher hands events to a buffered channel and a
// background worker persists them.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Store persists audit events, append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByEntity(ctx context.Context, entity, entityID string) ([]Event, error)
}

// Publisher accepts events from domain logic. When the buffer is full the
// event is dropped and counted rather than blocking the caller.
type Publisher struct {
	inbox   chan Event
	logger  *slog.Logger
	dropped func()
}

// NewPublisher builds a publisher with the given buffer size. The dropped
// callback (may be nil) is invoked once per discarded event, for metrics.
func NewPublisher(buffer int, logger *slog.Logger, dropped func()) *Publisher {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Publisher{
		inbox:   make(chan Event, buffer),
		logger:  logger,
		dropped: dropped,
	}
}

// Emit enqueues the event, stamping the timestamp if unset. Never blocks.
func (p *Publisher) Emit(_ context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit buffer full, event dropped",
			"action", event.Action,
			"entity_id", event.EntityID,
		)
		if p.dropped != nil {
			p.dropped()
		}
	}
}

// Inbox exposes the channel for the worker.
func (p *Publisher) Inbox() <-chan Event { return p.inbox }
