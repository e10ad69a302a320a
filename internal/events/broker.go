// Package events fans best-effort game notifications out to SSE and
// WebSocket subscribers. Delivery is not guaranteed; clients poll for state.
package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/playperu/geoquest/internal/geoquest"
)

// Broker is an in-process pub/sub keyed by game ID.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded events for the game.
func (b *Broker) Subscribe(gameID string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[gameID] == nil {
		b.subs[gameID] = make(map[chan []byte]struct{})
	}
	b.subs[gameID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the game's subscribers.
func (b *Broker) Unsubscribe(gameID string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[gameID], ch)
	if len(b.subs[gameID]) == 0 {
		delete(b.subs, gameID)
	}
	b.mu.Unlock()
}

// Publish sends an event to all local subscribers of its game.
func (b *Broker) Publish(_ context.Context, e geoquest.Event) {
	data, _ := json.Marshal(e)
	b.deliver(e.GameID, data)
}

func (b *Broker) deliver(gameID string, data []byte) {
	b.mu.RLock()
	for ch := range b.subs[gameID] {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}

// Subscribers reports how many channels listen on a game.
func (b *Broker) Subscribers(gameID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[gameID])
}
