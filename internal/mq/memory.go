package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryBackend delivers messages in-process. Messages published before
// anyone subscribes to a channel are buffered and handed to the first
// subscriber. A failing handler is retried a few times before the message
// is dropped.
type MemoryBackend struct {
	mu       sync.Mutex
	channels map[string]chan Message
	closed   bool
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{channels: make(map[string]chan Message)}
}

const (
	memoryBuffer      = 256
	memoryMaxAttempts = 3
)

func (m *MemoryBackend) queue(name string) (chan Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errors.New("mq backend closed")
	}
	ch, ok := m.channels[name]
	if !ok {
		ch = make(chan Message, memoryBuffer)
		m.channels[name] = ch
	}
	return ch, nil
}

// Publish never blocks; it fails when the channel's buffer is full.
func (m *MemoryBackend) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return "", errors.New("mq backend closed")
	}
	ch, ok := m.channels[channel]
	if !ok {
		ch = make(chan Message, memoryBuffer)
		m.channels[channel] = ch
	}
	msg := Message{ID: uuid.NewString(), Data: append([]byte(nil), data...), Attributes: attrs}
	select {
	case ch <- msg:
		return msg.ID, nil
	default:
		return "", fmt.Errorf("mq channel %s is full", channel)
	}
}

func (m *MemoryBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	ch, err := m.queue(channel)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errors.New("mq backend closed")
			}
			for attempt := 0; attempt < memoryMaxAttempts; attempt++ {
				if handler(ctx, msg) == nil || ctx.Err() != nil {
					break
				}
			}
		}
	}
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for _, ch := range m.channels {
		close(ch)
	}
	return nil
}
