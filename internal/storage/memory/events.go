package memory

import (
	"context"
	"sync"

	"aeterna/internal/model"
	"aeterna/internal/storage"
)

// receiver is a fan-out subscriber. Closing detaches it from further
// publishes.
type receiver struct {
	ch     chan model.GovernanceEvent
	closed bool
	mu     sync.Mutex
}

func (r *receiver) Recv(ctx context.Context) (model.GovernanceEvent, bool, error) {
	select {
	case ev, ok := <-r.ch:
		if !ok {
			return model.GovernanceEvent{}, false, nil
		}
		return ev, true, nil
	case <-ctx.Done():
		return model.GovernanceEvent{}, false, ctx.Err()
	}
}

func (r *receiver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.ch)
	}
}

// Publish implements storage.EventPublisher. Delivery is non-blocking
// per subscriber: a full subscriber buffer (64 events) drops the event
// for that subscriber rather than blocking the publisher, so delivery
// is not at-least-once for a subscriber that falls behind. Closed
// receivers are skipped.
func (s *Store) Publish(_ context.Context, event model.GovernanceEvent) error {
	s.mu.Lock()
	s.govEvents = append(s.govEvents, event)
	subs := append([]*receiver(nil), s.subscribers...)
	s.mu.Unlock()

	for _, r := range subs {
		r.mu.Lock()
		if !r.closed {
			select {
			case r.ch <- event:
			default:
			}
		}
		r.mu.Unlock()
	}
	return nil
}

// Subscribe implements storage.EventPublisher. streamKeys is accepted
// for interface compatibility; this in-memory reference adapter fans
// every publish out to every subscriber regardless of key.
func (s *Store) Subscribe(_ context.Context, _ []string) (storage.EventReceiver, error) {
	r := &receiver{ch: make(chan model.GovernanceEvent, 64)}
	s.mu.Lock()
	s.subscribers = append(s.subscribers, r)
	s.mu.Unlock()
	return r, nil
}

var _ storage.EventPublisher = (*Store)(nil)
