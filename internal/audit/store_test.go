package audit

import (
	"context"
	"testing"
	"time"

	"github.com/nao1215/purgerelay/pkg/event"
	"github.com/nao1215/purgerelay/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore はインメモリSQLiteのStoreを生成する。
func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(context.Background(), ":memory:", logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// appendEvent はテスト用のイベントを作成日時を指定して追記する。
func appendEvent(t *testing.T, s *Store, typ event.Type, at time.Time) *event.Event {
	t.Helper()

	e, err := event.New(typ, event.TriggerRelay, "req", event.PurgeFailedData{Outcome: "exception"})
	require.NoError(t, err)
	e.CreatedAt = at
	require.NoError(t, s.Append(context.Background(), e))
	return e
}

func TestStore_AppendAndList(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	first := appendEvent(t, s, event.TypePurgeSucceeded, base)
	second := appendEvent(t, s, event.TypePurgeFailed, base.Add(500*time.Millisecond))
	third := appendEvent(t, s, event.TypePurgeFailed, base.Add(time.Second))

	events, err := s.List(context.Background(), ListParams{})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, third.ID, events[0].ID)
	assert.Equal(t, second.ID, events[1].ID)
	assert.Equal(t, first.ID, events[2].ID)

	got := events[2]
	assert.Equal(t, event.TypePurgeSucceeded, got.EventType)
	assert.Equal(t, event.TriggerRelay, got.Trigger)
	assert.Equal(t, "req", got.RequestID)
	assert.True(t, base.Equal(got.CreatedAt), "CreatedAt = %v", got.CreatedAt)
	assert.JSONEq(t, string(first.Data), string(got.Data))
}

func TestStore_ListFilterAndLimit(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		appendEvent(t, s, event.TypePurgeFailed, base.Add(time.Duration(i)*time.Second))
	}
	appendEvent(t, s, event.TypePurgeSucceeded, base.Add(10*time.Second))

	failed, err := s.List(context.Background(), ListParams{EventType: event.TypePurgeFailed})
	require.NoError(t, err)
	assert.Len(t, failed, 5)
	for _, e := range failed {
		assert.Equal(t, event.TypePurgeFailed, e.EventType)
	}

	limited, err := s.List(context.Background(), ListParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, event.TypePurgeSucceeded, limited[0].EventType)
}

func TestStore_ListEmpty(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	events, err := s.List(context.Background(), ListParams{})
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestStore_AppendDuplicateID(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	e := appendEvent(t, s, event.TypePurgeFailed, time.Now())
	assert.Error(t, s.Append(context.Background(), e))
}

func TestStore_Ping(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
