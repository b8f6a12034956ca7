package notify

import (
	"sync"

	"github.com/google/uuid"
	"github.com/santerelay/platform/pkg/common/logger"
	"github.com/santerelay/platform/pkg/common/models"
	"github.com/santerelay/platform/pkg/observability/metrics"
)

// Subscription is one live subscriber's handle. Events arrive on Events()
// until Unsubscribe closes the channel.
type Subscription struct {
	id uuid.UUID
	ch chan models.LifecycleEvent
}

func (s *Subscription) Events() <-chan models.LifecycleEvent {
	return s.ch
}

// Broadcaster fans lifecycle events out to every live subscriber. Each
// subscriber has its own buffered queue, so one stalled connection cannot
// hold up the others or the publisher: a full queue counts as a failed
// delivery and drops that subscriber.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[uuid.UUID]*Subscription
	buffer int
}

func NewBroadcaster(buffer int) *Broadcaster {
	if buffer <= 0 {
		buffer = 32
	}
	return &Broadcaster{
		subs:   make(map[uuid.UUID]*Subscription),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber. Registration never waits behind
// in-flight deliveries.
func (b *Broadcaster) Subscribe() *Subscription {
	sub := &Subscription{
		id: uuid.New(),
		ch: make(chan models.LifecycleEvent, b.buffer),
	}

	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()

	metrics.ObserveSubscribers(1)
	logger.Log.WithField("subscriber_id", sub.id).Debug("Subscriber registered")
	return sub
}

// Unsubscribe removes a subscriber and closes its channel. Safe to call more
// than once or with a subscriber that was already dropped.
func (b *Broadcaster) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	b.mu.Lock()
	_, live := b.subs[sub.id]
	if live {
		delete(b.subs, sub.id)
		close(sub.ch)
	}
	b.mu.Unlock()

	if live {
		metrics.ObserveSubscribers(-1)
		logger.Log.WithField("subscriber_id", sub.id).Debug("Subscriber removed")
	}
}

// Publish delivers event to every registered subscriber. Deliveries are
// independent: a subscriber whose queue is full is dropped without affecting
// the rest, and the caller never sees an error.
//
// The sends are non-blocking, so holding the read lock across the loop is
// bounded; it also guarantees no queue is closed mid-send.
func (b *Broadcaster) Publish(event models.LifecycleEvent) {
	var stalled []*Subscription
	delivered := 0

	b.mu.RLock()
	for _, sub := range b.subs {
		select {
		case sub.ch <- event:
			delivered++
		default:
			stalled = append(stalled, sub)
		}
	}
	b.mu.RUnlock()

	metrics.ObserveDelivered(delivered)
	for _, sub := range stalled {
		logger.Log.WithFields(map[string]interface{}{
			"subscriber_id": sub.id,
			"event":         event.Event,
		}).Warn("Dropping stalled subscriber")
		metrics.ObserveDropped(1)
		b.Unsubscribe(sub)
	}
}

// Len reports the number of live subscribers.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
