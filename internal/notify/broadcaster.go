package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/dentalai/clinic-triage/internal/patient"
)

const (
	recordsChannel  = "clinic:records"
	snapshotKey     = "clinic:records:snapshot"
	subscriptionBuf = 1
)

// Broadcaster pushes full-collection snapshots to subscribers over Redis
// pub/sub. Delivery is at-least-once and nearby mutations may coalesce into
// one notification carrying the latest state; subscribers treat every
// message as a full replace of their working copy.
type Broadcaster struct {
	rdb    *redis.Client
	logger zerolog.Logger
}

func NewBroadcaster(rdb *redis.Client, logger zerolog.Logger) *Broadcaster {
	return &Broadcaster{rdb: rdb, logger: logger}
}

// Publish stores the snapshot and notifies all subscribers.
func (b *Broadcaster) Publish(ctx context.Context, records []patient.Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode record snapshot: %w", err)
	}

	pipe := b.rdb.Pipeline()
	pipe.Set(ctx, snapshotKey, data, 0)
	pipe.Publish(ctx, recordsChannel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish record snapshot: %w", err)
	}

	return nil
}

// Snapshot reads the last published collection. A missing key returns an
// empty collection, not an error.
func (b *Broadcaster) Snapshot(ctx context.Context) ([]patient.Record, error) {
	data, err := b.rdb.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("read record snapshot: %w", err)
	}

	var records []patient.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode record snapshot: %w", err)
	}
	return records, nil
}

// Subscription is a handle on the realtime record stream. Records()
// carries full snapshots with latest-wins semantics: a slow consumer sees
// intermediate states dropped rather than a growing backlog.
type Subscription struct {
	pubsub *redis.PubSub
	ch     chan []patient.Record
	once   sync.Once
}

// Records returns the snapshot channel. It is closed when the
// subscription is closed or the subscribe context ends.
func (s *Subscription) Records() <-chan []patient.Record {
	return s.ch
}

// Close tears down the subscription.
func (s *Subscription) Close() error {
	var err error
	s.once.Do(func() {
		err = s.pubsub.Close()
	})
	return err
}

// Subscribe starts listening for record snapshots. The last published
// snapshot, if any, is delivered first so new subscribers start from the
// current state.
func (b *Broadcaster) Subscribe(ctx context.Context) (*Subscription, error) {
	pubsub := b.rdb.Subscribe(ctx, recordsChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to record channel: %w", err)
	}

	sub := &Subscription{
		pubsub: pubsub,
		ch:     make(chan []patient.Record, subscriptionBuf),
	}

	go func() {
		defer close(sub.ch)

		if initial, err := b.Snapshot(ctx); err == nil && initial != nil {
			sub.deliver(initial)
		}

		for msg := range pubsub.Channel() {
			var records []patient.Record
			if err := json.Unmarshal([]byte(msg.Payload), &records); err != nil {
				b.logger.Warn().Err(err).Msg("dropping malformed record snapshot")
				continue
			}
			sub.deliver(records)
		}
	}()

	return sub, nil
}

// deliver pushes a snapshot, replacing an unread one if the consumer is
// behind.
func (s *Subscription) deliver(records []patient.Record) {
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- records:
	default:
	}
}
