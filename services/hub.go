package services

import (
	"encoding/json"
	"log"
	"sync"
)

// GlobalTopic carries event-wide updates (attendance) that are not scoped to
// one tournament.
const GlobalTopic = "global"

// Broadcaster fans a snapshot out to everyone watching a topic.
type Broadcaster interface {
	Publish(topic, event string, payload interface{})
}

// Event is one Server-Sent Event frame. An empty Name is a keepalive comment.
type Event struct {
	Name string
	Data []byte
}

type subscriber struct {
	ch   chan Event
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.ch) })
}

// Hub is an in-process Broadcaster backing the SSE streams. Publish never
// blocks: a subscriber whose buffer is full is dropped and its channel
// closed, so the stream ends and the client reconnects to a fresh opening
// snapshot.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*subscriber]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{subs: make(map[string]map[*subscriber]struct{}), buffer: buffer}
}

// Subscribe registers a listener on topic. The returned cancel func closes
// the channel and is safe to call more than once, also after the hub has
// dropped the subscriber.
func (h *Hub) Subscribe(topic string) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, h.buffer)}

	h.mu.Lock()
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[*subscriber]struct{})
	}
	h.subs[topic][sub] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		h.remove(topic, sub)
		h.mu.Unlock()
		sub.close()
	}
	return sub.ch, cancel
}

// remove must be called with mu held.
func (h *Hub) remove(topic string, sub *subscriber) {
	delete(h.subs[topic], sub)
	if len(h.subs[topic]) == 0 {
		delete(h.subs, topic)
	}
}

func (h *Hub) Publish(topic, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("❌ [HUB] Failed to encode %s for %s: %v", event, topic, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[topic] {
		select {
		case sub.ch <- Event{Name: event, Data: data}:
		default:
			log.Printf("⚠️  [HUB] Closing slow subscriber on %s, %s not delivered", topic, event)
			h.remove(topic, sub)
			sub.close()
		}
	}
}

// Heartbeat sends a keepalive frame to every subscriber of every topic. A
// full buffer already has frames pending, so it is skipped.
func (h *Hub) Heartbeat() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for _, subs := range h.subs {
		for sub := range subs {
			select {
			case sub.ch <- Event{}:
				sent++
			default:
			}
		}
	}
	return sent
}

// Subscribers reports how many listeners a topic has.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}
