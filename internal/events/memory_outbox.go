package events

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryOutbox is a PendingStore over envelopes committed by an in-memory
// repository. It lets the Deliverer run without Postgres.
type MemoryOutbox struct {
	source func() []Envelope

	mu        sync.Mutex
	delivered map[uuid.UUID]bool
	attempts  map[uuid.UUID]int
}

func NewMemoryOutbox(source func() []Envelope) *MemoryOutbox {
	return &MemoryOutbox{
		source:    source,
		delivered: make(map[uuid.UUID]bool),
		attempts:  make(map[uuid.UUID]int),
	}
}

func (o *MemoryOutbox) FetchPending(_ context.Context, limit int32) ([]OutboxEntry, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var out []OutboxEntry
	for _, env := range o.source() {
		if int32(len(out)) >= limit {
			break
		}
		if o.delivered[env.EventID] || o.attempts[env.EventID] >= maxAttempts {
			continue
		}
		entry := env.Entry()
		entry.Attempts = o.attempts[env.EventID]
		out = append(out, entry)
	}
	return out, nil
}

func (o *MemoryOutbox) MarkDelivered(_ context.Context, id uuid.UUID) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.delivered[id] {
		return false, nil
	}
	o.delivered[id] = true
	return true, nil
}

func (o *MemoryOutbox) MarkFailed(_ context.Context, id uuid.UUID, _ error) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.attempts[id]++
	return nil
}
