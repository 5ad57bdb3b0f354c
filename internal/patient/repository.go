package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrRecordNotFound = errors.New("patient record not found")

// Repository contains all DB interactions needed by the booking service
// and the notify worker.
type Repository interface {
	CreateRecord(ctx context.Context, rec Record) (*Record, error)
	GetRecord(ctx context.Context, id uuid.UUID) (*Record, error)

	// ListRecords returns the full collection, newest first. Realtime
	// snapshots are built from this so subscribers always see a full replace.
	ListRecords(ctx context.Context) ([]Record, error)
	ListRecordsByEmail(ctx context.Context, email string) ([]Record, error)

	// UpdateRecordStatus persists a transitioned record. Last write wins
	// between concurrent staff clients; there is no version token or
	// compare-and-swap.
	UpdateRecordStatus(ctx context.Context, rec Record) (*Record, error)

	// Lifecycle event log, consumed by the notify worker.
	InsertEvent(ctx context.Context, ev LifecycleEvent) error
	FindUndispatchedEvents(ctx context.Context, limit int) ([]LifecycleEvent, error)
	MarkEventDispatched(ctx context.Context, id int64) error
}
