package waitroom

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dentalai/clinic-triage/internal/observability/metrics"
	"github.com/dentalai/clinic-triage/internal/patient"
)

// Queue owns the waiting-room order: the checked-in subset of the latest
// record snapshot, sorted by priority tier then check-in time. It is the
// single writer of that order; the re-sort timer and the realtime
// subscription both feed it through Ingest. Callers are never blocked:
// reads copy the current order, and a snapshot arriving mid-sort simply
// wins the next round.
type Queue struct {
	interval time.Duration
	logger   zerolog.Logger
	metrics  *metrics.ClinicMetrics

	mu       sync.Mutex
	snapshot []patient.Record
	order    []patient.Record
	subs     map[int]chan []patient.Record
	nextSub  int
}

func NewQueue(interval time.Duration, logger zerolog.Logger, m *metrics.ClinicMetrics) *Queue {
	return &Queue{
		interval: interval,
		logger:   logger,
		metrics:  m,
		subs:     make(map[int]chan []patient.Record),
	}
}

// Ingest replaces the cached snapshot with an authoritative full copy of
// the record collection and republishes the sorted order.
func (q *Queue) Ingest(records []patient.Record) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.snapshot = append(q.snapshot[:0], records...)
	q.resortLocked()
}

// CurrentOrder returns a copy of the waiting-room order, emergency first.
func (q *Queue) CurrentOrder() []patient.Record {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]patient.Record, len(q.order))
	copy(out, q.order)
	return out
}

// Updates subscribes to order republications. The channel carries the full
// order, latest-wins: a slow consumer sees stale orders dropped, never a
// blocked queue. The returned cancel func must be called when done.
func (q *Queue) Updates() (<-chan []patient.Record, func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	id := q.nextSub
	q.nextSub++
	ch := make(chan []patient.Record, 1)
	q.subs[id] = ch

	cancel := func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		if _, ok := q.subs[id]; ok {
			delete(q.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Run re-sorts from the latest cached snapshot on a fixed cadence until
// the context is cancelled.
func (q *Queue) Run(ctx context.Context) {
	ticker := time.NewTicker(q.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.mu.Lock()
			q.resortLocked()
			q.mu.Unlock()
		}
	}
}

func (q *Queue) resortLocked() {
	start := time.Now()

	order := make([]patient.Record, 0, len(q.snapshot))
	for _, rec := range q.snapshot {
		if rec.Status == patient.StatusCheckedIn {
			order = append(order, rec)
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		ri, rj := order[i].Priority.Rank(), order[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		// Check-in times compare as raw strings, matching the observed
		// behavior of the system this replaces. See DESIGN.md.
		if order[i].CheckInTime != nil && order[j].CheckInTime != nil {
			return *order[i].CheckInTime < *order[j].CheckInTime
		}
		return false
	})

	q.order = order
	q.logger.Debug().Int("depth", len(order)).Msg("waiting room re-sorted")
	q.metrics.SetWaitroomDepth(len(order))
	q.metrics.ObserveResortLatency(time.Since(start).Seconds())

	for _, ch := range q.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- append([]patient.Record(nil), order...):
		default:
		}
	}
}
