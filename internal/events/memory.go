package events

import (
	"context"
	"sync"
)

// InMemory records events for tests and single-process deployments where no
// broker is configured.
type InMemory struct {
	mu            sync.Mutex
	statusChanges []StatusChanged
	disputes      []Disputed
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (p *InMemory) PublishStatusChanged(_ context.Context, event StatusChanged) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statusChanges = append(p.statusChanges, event)
	return nil
}

func (p *InMemory) PublishDisputed(_ context.Context, event Disputed) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disputes = append(p.disputes, event)
	return nil
}

// StatusChanges returns a copy of the recorded transition events.
func (p *InMemory) StatusChanges() []StatusChanged {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]StatusChanged(nil), p.statusChanges...)
}

// Disputes returns a copy of the recorded dispute events.
func (p *InMemory) Disputes() []Disputed {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Disputed(nil), p.disputes...)
}
