package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Event types emitted on the push channel.
const (
	EventJobCreated      = "job_created"
	EventUploadProgress  = "upload_progress"
	EventUploadCompleted = "upload_completed"
	EventUploadFailed    = "upload_failed"
	EventUploadCancelled = "upload_cancelled"
)

// Event is one state-change notification. Push delivery supplements
// polling; it is never the source of truth.
type Event struct {
	Type      string    `json:"type"`
	JobID     string    `json:"jobId"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier delivers mutation events to interested parties. Delivery is
// best-effort: no replay, no cross-job ordering guarantee.
type Notifier interface {
	Publish(ctx context.Context, event Event)
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, Event) {}

// Fanout publishes each event to every wrapped notifier in order.
func Fanout(notifiers ...Notifier) Notifier {
	return fanout(notifiers)
}

type fanout []Notifier

func (f fanout) Publish(ctx context.Context, event Event) {
	for _, n := range f {
		n.Publish(ctx, event)
	}
}

// Broadcaster delivers events to in-process subscribers. Publish is
// called synchronously on the mutation path, so each subscriber sees a
// single job's events in causal order. Sends never block: a subscriber
// that falls behind loses events rather than stalling mutations.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[int]chan Event
	nextID int
	buffer int
	logger *slog.Logger
}

// NewBroadcaster creates a broadcaster whose subscriber channels hold up
// to buffer undelivered events.
func NewBroadcaster(buffer int, logger *slog.Logger) *Broadcaster {
	if buffer <= 0 {
		buffer = 16
	}
	return &Broadcaster{
		subs:   make(map[int]chan Event),
		buffer: buffer,
		logger: logger,
	}
}

// Subscribe registers a new subscriber. The returned cancel func removes
// the subscription and closes the channel.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, b.buffer)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish fans the event out to all active subscribers.
func (b *Broadcaster) Publish(_ context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
			b.logger.Warn("Push event dropped, subscriber buffer full",
				slog.String("type", event.Type),
				slog.String("job_id", event.JobID),
			)
		}
	}
}

// SubscriberCount returns the number of active subscriptions.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
