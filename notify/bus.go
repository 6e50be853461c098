package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message is a notification delivered over the in-process bus.
type Message struct {
	ID        string    `json:"id"`
	Channel   string    `json:"channel"`
	Recipient string    `json:"recipient"` // empty for broadcast
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// Handler processes messages delivered to a subscriber.
type Handler func(ctx context.Context, msg *Message) error

type handlerEntry struct {
	id      int
	handler Handler
}

// Bus is a thread-safe in-process notification bus. Subscribers register
// per recipient identity; broadcast messages reach every subscriber.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]handlerEntry // recipient -> handlers
	history  []*Message
	maxHist  int
	nextID   int
}

// NewBus creates a Bus with a 1000-message history cap.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string][]handlerEntry),
		maxHist:  1000,
	}
}

// Publish delivers a message. When Recipient is empty every subscriber
// receives it; otherwise only the matching recipient's handlers run.
// Handler errors are ignored: bus delivery is best-effort.
func (b *Bus) Publish(ctx context.Context, msg *Message) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	b.mu.Lock()
	b.history = append(b.history, msg)
	if len(b.history) > b.maxHist {
		b.history = b.history[len(b.history)-b.maxHist:]
	}
	var targets []Handler
	if msg.Recipient == "" {
		for _, entries := range b.handlers {
			for _, e := range entries {
				targets = append(targets, e.handler)
			}
		}
	} else {
		for _, e := range b.handlers[msg.Recipient] {
			targets = append(targets, e.handler)
		}
	}
	b.mu.Unlock()

	for _, h := range targets {
		_ = h(ctx, msg)
	}
}

// Subscribe registers a handler for messages addressed to recipient.
// Returns an unsubscribe function.
func (b *Bus) Subscribe(recipient string, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[recipient] = append(b.handlers[recipient], handlerEntry{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		entries := b.handlers[recipient]
		for i, e := range entries {
			if e.id == id {
				b.handlers[recipient] = append(entries[:i], entries[i+1:]...)
				break
			}
		}
	}
}

// History returns up to limit recent messages for the given recipient,
// newest last. Empty recipient returns all messages.
func (b *Bus) History(recipient string, limit int) []*Message {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []*Message
	for _, m := range b.history {
		if recipient == "" || m.Recipient == recipient || m.Recipient == "" {
			out = append(out, m)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// BusNotifier publishes notifications onto a Bus.
type BusNotifier struct {
	Bus *Bus
}

// Send publishes the notification as a bus message.
func (n *BusNotifier) Send(ctx context.Context, channel, recipient, subject, body string) {
	n.Bus.Publish(ctx, &Message{
		Channel:   channel,
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
	})
}
