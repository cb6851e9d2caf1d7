// Package events fans ledger change notifications out to subscribers.
// Delivery is at-least-once; consumers de-duplicate on Event.ID.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/cryptoarcade/backend/internal/logger"
	"github.com/cryptoarcade/backend/internal/metrics"
	"github.com/cryptoarcade/backend/internal/models"
	"go.uber.org/zap"
)

// Publisher emits a committed change.
type Publisher interface {
	Publish(ctx context.Context, ev models.Event) error
}

// Broker is a Publisher that local subscribers can listen on.
type Broker interface {
	Publisher
	// Subscribe returns a channel of events for accountID and a function
	// that cancels the subscription.
	Subscribe(accountID string) (<-chan models.Event, func())
}

const subscriberBuffer = 32

// LocalBroker delivers events to subscribers in this process. A subscriber
// whose buffer is full is disconnected rather than skipped, so it never
// misses an event silently; it must resubscribe and re-read its state.
type LocalBroker struct {
	mu   sync.RWMutex
	subs map[string]map[*subscription]struct{}
}

type subscription struct {
	ch   chan models.Event
	once sync.Once
}

func (s *subscription) close() {
	s.once.Do(func() { close(s.ch) })
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{subs: make(map[string]map[*subscription]struct{})}
}

func (b *LocalBroker) Publish(ctx context.Context, ev models.Event) error {
	var lagging []*subscription

	b.mu.RLock()
	for sub := range b.subs[ev.AccountID] {
		select {
		case sub.ch <- ev:
		default:
			lagging = append(lagging, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range lagging {
		logger.WarnCtx(ctx, "subscriber lagging, disconnecting",
			zap.String("account_id", ev.AccountID), zap.String("event_id", ev.ID))
		metrics.RecordSubscriberDropped()
		b.remove(ev.AccountID, sub)
	}
	return nil
}

func (b *LocalBroker) Subscribe(accountID string) (<-chan models.Event, func()) {
	sub := &subscription{ch: make(chan models.Event, subscriberBuffer)}

	b.mu.Lock()
	if b.subs[accountID] == nil {
		b.subs[accountID] = make(map[*subscription]struct{})
	}
	b.subs[accountID][sub] = struct{}{}
	b.mu.Unlock()

	return sub.ch, func() { b.remove(accountID, sub) }
}

func (b *LocalBroker) remove(accountID string, sub *subscription) {
	b.mu.Lock()
	delete(b.subs[accountID], sub)
	if len(b.subs[accountID]) == 0 {
		delete(b.subs, accountID)
	}
	b.mu.Unlock()
	sub.close()
}

// PublishWithRetry publishes ev, retrying with a short linear backoff. A
// failure after the last attempt is logged and counted but not returned:
// notifications never roll back a committed ledger change.
func PublishWithRetry(ctx context.Context, p Publisher, ev models.Event, attempts int) {
	if p == nil {
		return
	}
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = p.Publish(ctx, ev); err == nil {
			return
		}
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				i = attempts
			case <-time.After(time.Duration(i+1) * 50 * time.Millisecond):
			}
		}
	}
	metrics.RecordPublishFailure()
	logger.ErrorCtx(ctx, "event publish failed",
		zap.String("event_id", ev.ID), zap.String("type", string(ev.Type)), zap.Error(err))
}
