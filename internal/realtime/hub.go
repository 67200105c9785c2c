// Package realtime fans task events out to websocket subscribers.
package realtime

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Client is a single subscriber connection; the network side lives in the ws handler.
type Client interface {
	Send(message []byte) bool
	Close()
}

// TopicTasks receives every event. Series topics are the series id itself.
const TopicTasks = "tasks"

// Event types.
const (
	EventTaskCreated       = "task_created"
	EventTaskUpdated       = "task_updated"
	EventTaskDeleted       = "task_deleted"
	EventOccurrenceSpawned = "occurrence_spawned"
	EventSeriesDeleted     = "series_deleted"
)

// Event is the message pushed to subscribers.
type Event struct {
	Type     string    `json:"type"`
	TaskID   uint      `json:"task_id,omitempty"`
	SeriesID string    `json:"series_id,omitempty"`
	Payload  any       `json:"payload,omitempty"`
	SentAt   time.Time `json:"sent_at"`
}

// Hub maintains subscriptions keyed by topic.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[Client]struct{}
}

func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[Client]struct{})}
}

// Subscribe adds a client under a topic.
func (h *Hub) Subscribe(topic string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.topics[topic]; !ok {
		h.topics[topic] = make(map[Client]struct{})
	}
	h.topics[topic][client] = struct{}{}
}

// Unsubscribe removes a client; empty topics are dropped.
func (h *Hub) Unsubscribe(topic string, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.topics[topic]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.topics, topic)
		}
	}
}

// Subscribers returns the number of clients on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Broadcast sends message to every client of topic and returns how many writes failed.
func (h *Hub) Broadcast(topic string, message []byte) int {
	h.mu.RLock()
	clients := make([]Client, 0, len(h.topics[topic]))
	for c := range h.topics[topic] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	failed := 0
	for _, c := range clients {
		if !c.Send(message) {
			// the handler's read loop notices the broken conn and unsubscribes
			failed++
		}
	}
	return failed
}

// Publish encodes ev once and sends it to the tasks topic and, when set, the series topic.
func (h *Hub) Publish(ev Event) error {
	if ev.SentAt.IsZero() {
		ev.SentAt = time.Now().UTC()
	}
	msg, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type, err)
	}
	failed := h.Broadcast(TopicTasks, msg)
	if ev.SeriesID != "" {
		failed += h.Broadcast(ev.SeriesID, msg)
	}
	if failed > 0 {
		return fmt.Errorf("%s event: %d subscriber writes failed", ev.Type, failed)
	}
	return nil
}
