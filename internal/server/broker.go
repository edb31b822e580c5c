package server

import (
	"context"
	"sync"

	"github.com/playperu/festquest/internal/festival"
)

// Broker is an in-process pub/sub for progress events, keyed by user ID.
type Broker struct {
	mu   sync.RWMutex
	subs map[int64]map[chan festival.Event]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[int64]map[chan festival.Event]struct{}),
	}
}

// Subscribe returns a channel that receives the given user's events.
func (b *Broker) Subscribe(userID int64) chan festival.Event {
	ch := make(chan festival.Event, 16)
	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[chan festival.Event]struct{})
	}
	b.subs[userID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the user's subscribers.
func (b *Broker) Unsubscribe(userID int64, ch chan festival.Event) {
	b.mu.Lock()
	delete(b.subs[userID], ch)
	if len(b.subs[userID]) == 0 {
		delete(b.subs, userID)
	}
	b.mu.Unlock()
}

// Publish sends an event to all subscribers of event.UserID.
func (b *Broker) Publish(event festival.Event) {
	b.mu.RLock()
	for ch := range b.subs[event.UserID] {
		select {
		case ch <- event:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}

// Notify publishes events locally.
func (b *Broker) Notify(_ context.Context, events []festival.Event) {
	for _, e := range events {
		b.Publish(e)
	}
}
