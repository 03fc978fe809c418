package impl

import (
	"sync"
	"testing"

	"dubaivat/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionEventQueue_FIFO(t *testing.T) {
	q := newSessionEventQueue()

	require.True(t, q.Enqueue(sessionEvent{kind: eventAuth, auth: entity.AuthEvent{Type: entity.AuthEventSignedIn}}))
	require.True(t, q.Enqueue(sessionEvent{kind: eventAuth, auth: entity.AuthEvent{Type: entity.AuthEventSignedOut}}))
	assert.Equal(t, 2, q.Len())

	first, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, entity.AuthEventSignedIn, first.auth.Type)

	second, ok := q.TryDequeue()
	require.True(t, ok)
	assert.Equal(t, entity.AuthEventSignedOut, second.auth.Type)

	_, ok = q.TryDequeue()
	assert.False(t, ok)
}

func TestSessionEventQueue_SignalCoalesces(t *testing.T) {
	q := newSessionEventQueue()

	q.Enqueue(sessionEvent{kind: eventTimer})
	q.Enqueue(sessionEvent{kind: eventTimer})

	select {
	case <-q.Wait():
	default:
		t.Fatal("expected a pending signal")
	}

	select {
	case <-q.Wait():
		t.Fatal("signals should coalesce into one")
	default:
	}

	assert.Equal(t, 2, q.Len())
}

func TestSessionEventQueue_Close(t *testing.T) {
	q := newSessionEventQueue()
	q.Enqueue(sessionEvent{kind: eventCommand})

	pending := q.Close()

	assert.Len(t, pending, 1)
	assert.Zero(t, q.Len())
	assert.False(t, q.Enqueue(sessionEvent{kind: eventTimer}))
	assert.Nil(t, q.Close(), "second close is a no-op")

	// Ranging terminates only because Close closed the signal channel.
	for range q.Wait() {
	}
}

func TestSessionEventQueue_ConcurrentEnqueue(t *testing.T) {
	q := newSessionEventQueue()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q.Enqueue(sessionEvent{kind: eventTimer})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, q.Len())
}
