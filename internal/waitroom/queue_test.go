package waitroom

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentalai/clinic-triage/internal/patient"
)

func newTestQueue() *Queue {
	return NewQueue(10*time.Millisecond, zerolog.Nop(), nil)
}

func waiting(priority patient.Priority, checkIn string) patient.Record {
	rec := patient.Record{
		ID:       uuid.New(),
		Priority: priority,
		Status:   patient.StatusCheckedIn,
	}
	if checkIn != "" {
		rec.CheckInTime = &checkIn
	}
	return rec
}

func TestIngestFiltersCheckedIn(t *testing.T) {
	q := newTestQueue()
	q.Ingest([]patient.Record{
		{ID: uuid.New(), Status: patient.StatusScheduled, Priority: patient.PriorityEmergency},
		waiting(patient.PriorityLow, "09:00"),
		{ID: uuid.New(), Status: patient.StatusCompleted, Priority: patient.PriorityHigh},
		{ID: uuid.New(), Status: patient.StatusInTreatment, Priority: patient.PriorityHigh},
	})

	order := q.CurrentOrder()
	require.Len(t, order, 1)
	assert.Equal(t, patient.PriorityLow, order[0].Priority)
}

func TestOrderByTierThenCheckInTime(t *testing.T) {
	q := newTestQueue()
	q.Ingest([]patient.Record{
		waiting(patient.PriorityLow, "09:00"),
		waiting(patient.PriorityEmergency, "08:45"),
		waiting(patient.PriorityHigh, "08:50"),
	})

	order := q.CurrentOrder()
	require.Len(t, order, 3)
	assert.Equal(t, patient.PriorityEmergency, order[0].Priority)
	assert.Equal(t, "08:45", *order[0].CheckInTime)
	assert.Equal(t, patient.PriorityHigh, order[1].Priority)
	assert.Equal(t, "08:50", *order[1].CheckInTime)
	assert.Equal(t, patient.PriorityLow, order[2].Priority)
	assert.Equal(t, "09:00", *order[2].CheckInTime)
}

func TestSortIsStableAcrossRepeatedResorts(t *testing.T) {
	a := waiting(patient.PriorityMedium, "10:00")
	b := waiting(patient.PriorityMedium, "10:00")
	c := waiting(patient.PriorityMedium, "")

	q := newTestQueue()
	snapshot := []patient.Record{a, b, c}

	for i := 0; i < 5; i++ {
		q.Ingest(snapshot)
		order := q.CurrentOrder()
		require.Len(t, order, 3)
		assert.Equal(t, a.ID, order[0].ID, "iteration %d", i)
		assert.Equal(t, b.ID, order[1].ID, "iteration %d", i)
		assert.Equal(t, c.ID, order[2].ID, "iteration %d", i)
	}
}

func TestCheckInTimeComparesLexicographically(t *testing.T) {
	// "9:05" sorts after "10:30" as a raw string. The order is derived
	// from string comparison on purpose; see DESIGN.md.
	early := waiting(patient.PriorityLow, "10:30")
	odd := waiting(patient.PriorityLow, "9:05")

	q := newTestQueue()
	q.Ingest([]patient.Record{odd, early})

	order := q.CurrentOrder()
	require.Len(t, order, 2)
	assert.Equal(t, "10:30", *order[0].CheckInTime)
	assert.Equal(t, "9:05", *order[1].CheckInTime)
}

func TestIngestReplacesSnapshotWholesale(t *testing.T) {
	q := newTestQueue()
	gone := waiting(patient.PriorityEmergency, "08:00")
	q.Ingest([]patient.Record{gone})
	require.Len(t, q.CurrentOrder(), 1)

	// A notification is a full replace, not a patch: records absent from
	// the new snapshot leave the queue.
	stay := waiting(patient.PriorityLow, "09:30")
	q.Ingest([]patient.Record{stay})

	order := q.CurrentOrder()
	require.Len(t, order, 1)
	assert.Equal(t, stay.ID, order[0].ID)
}

func TestUpdatesDeliversLatestOrder(t *testing.T) {
	q := newTestQueue()
	ch, cancel := q.Updates()
	defer cancel()

	q.Ingest([]patient.Record{waiting(patient.PriorityHigh, "08:10")})

	select {
	case order := <-ch:
		require.Len(t, order, 1)
		assert.Equal(t, patient.PriorityHigh, order[0].Priority)
	case <-time.After(time.Second):
		t.Fatal("no update delivered")
	}
}

func TestUpdatesDropsStaleForSlowConsumers(t *testing.T) {
	q := newTestQueue()
	ch, cancel := q.Updates()
	defer cancel()

	// Two ingests without a read in between: the first order is dropped.
	q.Ingest([]patient.Record{waiting(patient.PriorityLow, "09:00")})
	q.Ingest([]patient.Record{
		waiting(patient.PriorityLow, "09:00"),
		waiting(patient.PriorityEmergency, "09:01"),
	})

	select {
	case order := <-ch:
		require.Len(t, order, 2)
		assert.Equal(t, patient.PriorityEmergency, order[0].Priority)
	case <-time.After(time.Second):
		t.Fatal("no update delivered")
	}
}

func TestRunResortsOnTimer(t *testing.T) {
	q := newTestQueue()
	q.Ingest([]patient.Record{waiting(patient.PriorityMedium, "11:00")})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		q.Run(ctx)
		close(done)
	}()

	ch, unsub := q.Updates()
	defer unsub()

	select {
	case order := <-ch:
		require.Len(t, order, 1)
	case <-time.After(time.Second):
		t.Fatal("timer re-sort did not publish")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on context cancel")
	}
}
