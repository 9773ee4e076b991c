package rjq

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T, name string) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run: %v", err)
	}
	t.Cleanup(s.Close)

	q, err := New("redis://"+s.Addr(), name,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, err)
	return q, s
}

func TestNew_BadURL(t *testing.T) {
	_, err := New("://not-a-url", "rjq")
	require.Error(t, err)
}

func TestEnqueue_StatusQueued(t *testing.T) {
	q, _ := newTestQueue(t, "test-queued")
	ctx := context.Background()

	id, err := q.Enqueue(ctx, nil, 5*time.Second)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	status, err := q.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, status)

	// Repeated reads without mutation observe the same state.
	status, err = q.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, status)
}

func TestEnqueue_DistinctIDs(t *testing.T) {
	q, _ := newTestQueue(t, "test-ids")
	ctx := context.Background()

	first, err := q.Enqueue(ctx, []string{"same"}, 5*time.Second)
	require.NoError(t, err)
	second, err := q.Enqueue(ctx, []string{"same"}, 5*time.Second)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestEnqueue_InvalidExpire(t *testing.T) {
	q, _ := newTestQueue(t, "test-expire")

	_, err := q.Enqueue(context.Background(), nil, 0)
	require.Error(t, err)
}

func TestStatus_ExpiredRecord(t *testing.T) {
	q, s := newTestQueue(t, "test-expired")
	ctx := context.Background()

	id, err := q.Enqueue(ctx, nil, time.Second)
	require.NoError(t, err)

	s.FastForward(2 * time.Second)

	_, err = q.Status(ctx, id)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = q.Result(ctx, id)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStatus_UnknownID(t *testing.T) {
	q, _ := newTestQueue(t, "test-unknown")

	_, err := q.Status(context.Background(), "no-such-id")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStatus_CorruptRecord(t *testing.T) {
	q, s := newTestQueue(t, "test-corrupt")

	require.NoError(t, s.Set("test-corrupt:bogus", "{not json"))

	_, err := q.Status(context.Background(), "bogus")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestResult_EmptyBeforeCompletion(t *testing.T) {
	q, _ := newTestQueue(t, "test-pending")
	ctx := context.Background()

	id, err := q.Enqueue(ctx, []string{"a", "b"}, 5*time.Second)
	require.NoError(t, err)

	result, err := q.Result(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, result)
}

func TestDrop(t *testing.T) {
	q, _ := newTestQueue(t, "test-drop")
	ctx := context.Background()

	before1, err := q.Enqueue(ctx, nil, 30*time.Second)
	require.NoError(t, err)
	before2, err := q.Enqueue(ctx, nil, 30*time.Second)
	require.NoError(t, err)

	require.NoError(t, q.Drop(ctx))

	pending, err := q.client.LLen(ctx, q.listKey()).Result()
	require.NoError(t, err)
	assert.Zero(t, pending)

	after, err := q.Enqueue(ctx, nil, 30*time.Second)
	require.NoError(t, err)

	ids, err := q.client.LRange(ctx, q.listKey(), 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{after}, ids)

	// Dropped jobs keep their records until the TTL runs out.
	for _, id := range []string{before1, before2} {
		status, err := q.Status(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, StatusQueued, status)
	}
}
