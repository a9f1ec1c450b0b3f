package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmit_SyncAppendsImmediately(t *testing.T) {
	store := NewInMemoryStore()
	publisher := NewPublisher(store)

	err := publisher.Emit(context.Background(), Event{
		Action:  ActionBadgeIssued,
		Subject: "bdg_test",
	})
	require.NoError(t, err)

	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, ActionBadgeIssued, events[0].Action)
	assert.False(t, events[0].Timestamp.IsZero(), "emit stamps missing timestamps")
}

func TestEmit_PreservesExplicitTimestamp(t *testing.T) {
	store := NewInMemoryStore()
	publisher := NewPublisher(store)

	stamp := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	err := publisher.Emit(context.Background(), Event{
		Action:    ActionBadgeRevoked,
		Subject:   "bdg_test",
		Timestamp: stamp,
	})
	require.NoError(t, err)

	events := store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, stamp, events[0].Timestamp)
}

func TestEmit_AsyncDrainsOnClose(t *testing.T) {
	store := NewInMemoryStore()
	publisher := NewPublisher(store, WithAsyncBuffer(64))

	for i := 0; i < 10; i++ {
		require.NoError(t, publisher.Emit(context.Background(), Event{
			Action:  ActionEvidenceAdded,
			Subject: "bdg_test",
		}))
	}

	publisher.Close()

	assert.Len(t, store.Events(), 10)
}

func TestBySubject_FiltersInOrder(t *testing.T) {
	store := NewInMemoryStore()
	publisher := NewPublisher(store)
	ctx := context.Background()

	require.NoError(t, publisher.Emit(ctx, Event{Action: ActionBadgeIssued, Subject: "a"}))
	require.NoError(t, publisher.Emit(ctx, Event{Action: ActionBadgeIssued, Subject: "b"}))
	require.NoError(t, publisher.Emit(ctx, Event{Action: ActionBadgeRevoked, Subject: "a"}))

	events := store.BySubject("a")
	require.Len(t, events, 2)
	assert.Equal(t, ActionBadgeIssued, events[0].Action)
	assert.Equal(t, ActionBadgeRevoked, events[1].Action)
}
