package patient

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrRescheduleNoPayload = errors.New("reschedule request payload is required")
)

// transitions is the full lifecycle graph. Records are created in
// scheduled and end in completed or cancelled; nothing leaves a terminal state.
var transitions = map[Status][]Status{
	StatusScheduled:           {StatusConfirmed, StatusRescheduleRequested, StatusCheckedIn, StatusCancelled},
	StatusConfirmed:           {StatusRescheduleRequested, StatusCheckedIn, StatusCancelled},
	StatusRescheduleRequested: {StatusCheckedIn, StatusCancelled},
	StatusCheckedIn:           {StatusInTreatment},
	StatusInTreatment:         {StatusCompleted},
	StatusCompleted:           {},
	StatusCancelled:           {},
}

// CanTransition reports whether from -> to is in the lifecycle graph.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionError carries the rejected pair so the API layer can name both states.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition from %q to %q", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// Transition returns a copy of rec moved to target, applying side effects:
// entering checked-in stamps CheckInTime once, entering reschedule-requested
// attaches the request payload. The input record is never mutated, so a
// rejected transition leaves the caller's copy untouched.
func Transition(rec Record, target Status, req *RescheduleRequest, now time.Time) (Record, error) {
	if !CanTransition(rec.Status, target) {
		return rec, &TransitionError{From: rec.Status, To: target}
	}

	next := rec
	next.Status = target
	next.UpdatedAt = now

	switch target {
	case StatusCheckedIn:
		if next.CheckInTime == nil {
			t := now.Format("15:04")
			next.CheckInTime = &t
		}
	case StatusRescheduleRequested:
		if req == nil {
			return rec, ErrRescheduleNoPayload
		}
		payload := *req
		if payload.RequestedAt.IsZero() {
			payload.RequestedAt = now
		}
		next.RescheduleRequest = &payload
	}

	return next, nil
}
