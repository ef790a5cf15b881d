// Package realtime fans change-feed events out to subscribers. The Hub
// delivers in process; RedisBridge carries events between server instances.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/pehub/pkg/pehub"
	"github.com/tendant/pehub/pkg/pehub/logging"
)

// ErrHubClosed is returned by operations on a closed hub
var ErrHubClosed = errors.New("realtime hub closed")

// DefaultBuffer is the per-subscription queue length.
const DefaultBuffer = 64

// Message is one change-feed event. Record holds the JSON encoding of the
// inserted or updated row.
type Message struct {
	ID        uuid.UUID       `json:"id"`
	Table     string          `json:"table"`
	EventType string          `json:"event_type"`
	Record    json.RawMessage `json:"record"`
	At        time.Time       `json:"at"`
}

// Decode unmarshals the record into v.
func (m Message) Decode(v interface{}) error {
	return json.Unmarshal(m.Record, v)
}

// NewMessage encodes record into a Message.
func NewMessage(table, eventType string, record interface{}) (Message, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return Message{}, err
	}
	return Message{
		ID:        uuid.New(),
		Table:     table,
		EventType: eventType,
		Record:    raw,
		At:        time.Now().UTC(),
	}, nil
}

// Subscription receives the messages matching its filter until it is
// cancelled or the hub closes, after which C is closed.
type Subscription struct {
	C <-chan Message

	id        uuid.UUID
	table     string
	eventType string
	out       chan Message
	hub       *Hub
	once      sync.Once
}

// Cancel stops delivery and closes C.
func (s *Subscription) Cancel() {
	s.hub.remove(s)
}

func (s *Subscription) matches(m Message) bool {
	return (s.table == "" || s.table == m.Table) && (s.eventType == "" || s.eventType == m.EventType)
}

// Hub is an in-process publisher. It implements pehub.ChangePublisher.
// Slow subscribers lose messages rather than block publishers.
type Hub struct {
	logger *logging.Logger
	buffer int

	mu     sync.RWMutex
	subs   map[uuid.UUID]*Subscription
	closed bool
}

// HubOption configures a Hub
type HubOption func(*Hub)

// WithBuffer sets the per-subscription queue length.
func WithBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithHubLogger sets the logger
func WithHubLogger(l *logging.Logger) HubOption {
	return func(h *Hub) {
		h.logger = l
	}
}

func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		logger: logging.Nop(),
		buffer: DefaultBuffer,
		subs:   make(map[uuid.UUID]*Subscription),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers for messages of table and eventType. An empty value
// matches everything.
func (h *Hub) Subscribe(table, eventType string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}
	out := make(chan Message, h.buffer)
	s := &Subscription{
		C:         out,
		id:        uuid.New(),
		table:     table,
		eventType: eventType,
		out:       out,
		hub:       h,
	}
	h.subs[s.id] = s
	return s, nil
}

// Publish encodes record and broadcasts it.
func (h *Hub) Publish(ctx context.Context, table, eventType string, record interface{}) error {
	msg, err := NewMessage(table, eventType, record)
	if err != nil {
		return err
	}
	return h.Broadcast(msg)
}

// Broadcast delivers an already encoded message to local subscribers.
func (h *Hub) Broadcast(msg Message) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrHubClosed
	}
	for _, s := range h.subs {
		if !s.matches(msg) {
			continue
		}
		select {
		case s.out <- msg:
		default:
			h.logger.Warn("dropping realtime message for slow subscriber",
				"subscription", s.id, "table", msg.Table, "event", msg.EventType)
		}
	}
	return nil
}

// Subscribers returns the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s.id]; !ok {
		return
	}
	delete(h.subs, s.id)
	s.once.Do(func() { close(s.out) })
}

// Close ends every subscription. Later publishes fail with ErrHubClosed.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	for id, s := range h.subs {
		delete(h.subs, id)
		s.once.Do(func() { close(s.out) })
	}
	return nil
}

var _ pehub.ChangePublisher = (*Hub)(nil)
