package events

import (
	"context"
	"sync"
)

// Outbox queues events until a publisher has accepted them.
type Outbox interface {
	Enqueue(ctx context.Context, e Event) error
	Unprocessed(ctx context.Context, limit int) ([]Event, error)
	MarkProcessed(ctx context.Context, id int64) error
}

type MemoryOutbox struct {
	mu      sync.Mutex
	nextID  int64
	pending []Event
}

func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{}
}

func (o *MemoryOutbox) Enqueue(_ context.Context, e Event) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.nextID++
	e.ID = o.nextID
	o.pending = append(o.pending, e)
	return nil
}

// Unprocessed returns up to limit pending events, oldest first.
func (o *MemoryOutbox) Unprocessed(_ context.Context, limit int) ([]Event, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	n := len(o.pending)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Event, n)
	copy(out, o.pending[:n])
	return out, nil
}

func (o *MemoryOutbox) MarkProcessed(_ context.Context, id int64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for i, e := range o.pending {
		if e.ID == id {
			o.pending = append(o.pending[:i], o.pending[i+1:]...)
			return nil
		}
	}
	return nil
}

// Len reports how many events are waiting.
func (o *MemoryOutbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}
