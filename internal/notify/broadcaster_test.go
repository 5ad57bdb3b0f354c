package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentalai/clinic-triage/internal/patient"
)

func newTestBroadcaster(t *testing.T) *Broadcaster {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewBroadcaster(rdb, zerolog.Nop())
}

func sampleRecords(n int) []patient.Record {
	records := make([]patient.Record, n)
	for i := range records {
		records[i] = patient.Record{
			ID:       uuid.New(),
			Status:   patient.StatusCheckedIn,
			Priority: patient.PriorityMedium,
		}
	}
	return records
}

func TestPublishAndSnapshot(t *testing.T) {
	b := newTestBroadcaster(t)
	ctx := context.Background()

	records := sampleRecords(2)
	require.NoError(t, b.Publish(ctx, records))

	got, err := b.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, records[0].ID, got[0].ID)
}

func TestSnapshotMissingKeyIsEmpty(t *testing.T) {
	b := newTestBroadcaster(t)

	got, err := b.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSubscribeReceivesPublishedSnapshots(t *testing.T) {
	b := newTestBroadcaster(t)
	ctx := context.Background()

	sub, err := b.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	records := sampleRecords(3)
	require.NoError(t, b.Publish(ctx, records))

	select {
	case got := <-sub.Records():
		assert.Len(t, got, 3)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
	}
}

func TestSubscribeDeliversCurrentStateFirst(t *testing.T) {
	b := newTestBroadcaster(t)
	ctx := context.Background()

	require.NoError(t, b.Publish(ctx, sampleRecords(1)))

	sub, err := b.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	select {
	case got := <-sub.Records():
		assert.Len(t, got, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("initial snapshot not delivered")
	}
}

func TestCloseStopsStream(t *testing.T) {
	b := newTestBroadcaster(t)

	sub, err := b.Subscribe(context.Background())
	require.NoError(t, err)
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close(), "close is idempotent")

	select {
	case _, ok := <-sub.Records():
		assert.False(t, ok, "channel should be closed")
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after Close")
	}
}
