package server

import (
	"encoding/json"
	"sync"

	"github.com/fieldworks/pointcap/internal/game"
)

// SSEEvent is the payload published to a game's subscribers.
type SSEEvent struct {
	Type    string    `json:"type"`
	PointID string    `json:"pointId,omitempty"`
	UserID  string    `json:"userId,omitempty"`
	Teams   []TeamRow `json:"teams,omitempty"`
}

// Broker is an in-process pub/sub for SSE events, keyed by game ID.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded SSE events for the
// given game.
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

// Publish sends an event to all subscribers of the given game.
func (b *Broker) Publish(gameID string, event SSEEvent) {
	data, _ := json.Marshal(event)
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

// PublishScoreboard adapts the scheduler's refresh callback to the broker.
func (b *Broker) PublishScoreboard(gameID string, sb game.Scoreboard) {
	b.Publish(gameID, SSEEvent{Type: "scoreboard", Teams: teamRows(sb.Teams)})
}
