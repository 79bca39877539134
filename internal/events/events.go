package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/binpoints/apiserver/internal/mq"
	"github.com/binpoints/apiserver/types"
)

// Message attribute keys set on every published action.
const (
	AttrEventID       = "event-id"
	AttrActionType    = "action-type"
	AttrResourceTable = "resource-table"
	AttrResourceID    = "resource-id"
)

const (
	publishTimeout = 5 * time.Second
	pendingEvents  = 256
)

// Event is the payload published for each committed audit entry.
type Event struct {
	ID          string          `json:"id"`
	PublishedAt time.Time       `json:"published_at"`
	Action      types.ActionLog `json:"action"`
}

// Publisher forwards committed audit entries to a message queue channel.
// Observe only enqueues; a single worker publishes in commit order.
type Publisher struct {
	queue   *mq.MQ
	channel string
	logger  *slog.Logger
	now     func() time.Time

	mu      sync.Mutex
	closed  bool
	pending chan pendingEntry
	done    chan struct{}
}

type pendingEntry struct {
	ctx   context.Context
	entry types.ActionLog
}

// NewPublisher starts the publishing worker. Call Close to drain it.
func NewPublisher(queue *mq.MQ, channel string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{
		queue:   queue,
		channel: channel,
		logger:  logger,
		now:     time.Now,
		pending: make(chan pendingEntry, pendingEvents),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *Publisher) run() {
	defer close(p.done)
	for item := range p.pending {
		p.publish(item.ctx, item.entry)
	}
}

// Close stops accepting entries and waits until the queued ones are
// published or have failed. It is safe to call more than once.
func (p *Publisher) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.pending)
	}
	p.mu.Unlock()
	<-p.done
}

// Publish sends entry as an Event and returns the event id.
func (p *Publisher) Publish(ctx context.Context, entry types.ActionLog) (string, error) {
	event := Event{
		ID:          uuid.NewString(),
		PublishedAt: p.now().UTC(),
		Action:      entry,
	}
	data, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("encode action event: %w", err)
	}
	attrs := map[string]string{
		mq.ContentTypeAttribute: "application/json",
		AttrEventID:             event.ID,
		AttrActionType:          entry.ActionType.String(),
		AttrResourceTable:       entry.ResourceTable,
		AttrResourceID:          strconv.FormatInt(entry.ResourceID, 10),
	}
	if _, err := p.queue.Publish(ctx, p.channel, data, attrs); err != nil {
		return "", fmt.Errorf("publish action event: %w", err)
	}
	return event.ID, nil
}

// Observe has the shape of store.ActionObserver. The mutation has already
// committed, so it never blocks the caller: the entry is queued, and dropped
// with an error log when the queue is full or the publisher is closed.
func (p *Publisher) Observe(ctx context.Context, entry types.ActionLog) {
	item := pendingEntry{ctx: context.WithoutCancel(ctx), entry: entry}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.drop(ctx, entry, "publisher closed")
		return
	}
	select {
	case p.pending <- item:
	default:
		p.drop(ctx, entry, "publish queue full")
	}
}

func (p *Publisher) drop(ctx context.Context, entry types.ActionLog, reason string) {
	p.logger.ErrorContext(ctx, "dropping action event",
		"reason", reason,
		"action_log_id", entry.ID,
		"resource_table", entry.ResourceTable,
	)
}

func (p *Publisher) publish(ctx context.Context, entry types.ActionLog) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if _, err := p.Publish(ctx, entry); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish action event",
			"error", err,
			"action_log_id", entry.ID,
			"resource_table", entry.ResourceTable,
		)
	}
}

// Decode parses a message produced by Publish.
func Decode(msg mq.Message) (Event, error) {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return Event{}, fmt.Errorf("decode action event %s: %w", msg.ID, err)
	}
	return event, nil
}

// LogHandler returns an mq.Handler that writes each action event to logger.
// Malformed payloads are logged and acknowledged so they are not redelivered.
func LogHandler(logger *slog.Logger) mq.Handler {
	return func(ctx context.Context, msg mq.Message) error {
		event, err := Decode(msg)
		if err != nil {
			logger.WarnContext(ctx, "dropping malformed action event", "message_id", msg.ID, "error", err)
			return nil
		}
		action := event.Action
		attrs := []any{
			"event_id", event.ID,
			"action_log_id", action.ID,
			"action_type", action.ActionType.String(),
			"resource_table", action.ResourceTable,
			"resource_id", action.ResourceID,
			"logged_at", action.Timestamp,
		}
		if action.UserID != nil {
			attrs = append(attrs, "user_id", *action.UserID)
		}
		logger.InfoContext(ctx, "user action", attrs...)
		return nil
	}
}
