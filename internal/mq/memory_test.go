package mq

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/binpoints/apiserver/config"
)

func TestMemoryBackendDeliversBufferedMessages(t *testing.T) {
	backend := NewMemoryBackend()
	defer backend.Close()

	id, err := backend.Publish(context.Background(), "actions", []byte(`{"id":1}`), map[string]string{"k": "v"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	received := make(chan Message, 1)
	go func() {
		_ = backend.Subscribe(ctx, "actions", func(_ context.Context, msg Message) error {
			received <- msg
			return nil
		})
	}()

	select {
	case msg := <-received:
		require.Equal(t, id, msg.ID)
		require.JSONEq(t, `{"id":1}`, string(msg.Data))
		require.Equal(t, "v", msg.Attributes["k"])
	case <-ctx.Done():
		t.Fatal("message was not delivered")
	}
}

func TestMemoryBackendRetriesFailingHandler(t *testing.T) {
	backend := NewMemoryBackend()
	defer backend.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var attempts atomic.Int32
	done := make(chan struct{})
	go func() {
		_ = backend.Subscribe(ctx, "actions", func(_ context.Context, msg Message) error {
			if string(msg.Data) == "last" {
				close(done)
				return nil
			}
			attempts.Add(1)
			return errors.New("boom")
		})
	}()

	_, err := backend.Publish(ctx, "actions", []byte("fails"), nil)
	require.NoError(t, err)
	_, err = backend.Publish(ctx, "actions", []byte("last"), nil)
	require.NoError(t, err)

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("subscriber stalled on failing message")
	}
	require.Equal(t, int32(memoryMaxAttempts), attempts.Load())
}

func TestMemoryBackendClosed(t *testing.T) {
	backend := NewMemoryBackend()
	require.NoError(t, backend.Close())
	require.NoError(t, backend.Close())

	_, err := backend.Publish(context.Background(), "actions", nil, nil)
	require.Error(t, err)
	require.Error(t, backend.Subscribe(context.Background(), "actions", func(context.Context, Message) error { return nil }))
}

func TestMemoryBackendFullChannel(t *testing.T) {
	backend := NewMemoryBackend()
	defer backend.Close()

	for i := 0; i < memoryBuffer; i++ {
		_, err := backend.Publish(context.Background(), "actions", nil, nil)
		require.NoError(t, err)
	}
	_, err := backend.Publish(context.Background(), "actions", nil, nil)
	require.Error(t, err)
}

func TestOpenSelectsBackend(t *testing.T) {
	ctx := context.Background()

	q, err := Open(ctx, config.MQConfig{})
	require.NoError(t, err)
	require.Nil(t, q)

	q, err = Open(ctx, config.MQConfig{Backend: "Memory"})
	require.NoError(t, err)
	require.NotNil(t, q)
	require.NoError(t, q.Close())

	_, err = Open(ctx, config.MQConfig{Backend: "kafka"})
	require.Error(t, err)
}
