package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dentalai/clinic-triage/internal/patient"
)

// Sender delivers one patient-facing message. The production deployment
// would back this with an SMS or email gateway; LogSender stands in for
// both in development.
type Sender interface {
	Send(ctx context.Context, rec patient.Record, message string) error
}

// LogSender writes notifications to the log instead of a carrier.
type LogSender struct {
	Logger zerolog.Logger
}

func (s LogSender) Send(_ context.Context, rec patient.Record, message string) error {
	s.Logger.Info().
		Str("record_id", rec.ID.String()).
		Str("phone", rec.Phone).
		Str("message", message).
		Msg("patient notification")
	return nil
}

// Dispatcher drains the lifecycle event log and notifies patients about
// their bookings and status changes. It is driven by the notify worker on
// a fixed interval.
type Dispatcher struct {
	repo      patient.Repository
	sender    Sender
	logger    zerolog.Logger
	batchSize int
}

func NewDispatcher(repo patient.Repository, sender Sender, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{repo: repo, sender: sender, logger: logger, batchSize: 100}
}

// DispatchPending processes undelivered events oldest first. A missing
// record (deleted out-of-band or unreadable) consumes its event without a
// notification; a sender failure leaves the event for the next run.
func (d *Dispatcher) DispatchPending(ctx context.Context) error {
	events, err := d.repo.FindUndispatchedEvents(ctx, d.batchSize)
	if err != nil {
		return fmt.Errorf("find undispatched events: %w", err)
	}

	for _, ev := range events {
		if err := d.dispatchOne(ctx, ev); err != nil {
			d.logger.Error().Err(err).Int64("event_id", ev.ID).Msg("dispatch failed, will retry")
			continue
		}
		if err := d.repo.MarkEventDispatched(ctx, ev.ID); err != nil {
			return fmt.Errorf("mark event %d dispatched: %w", ev.ID, err)
		}
	}

	return nil
}

func (d *Dispatcher) dispatchOne(ctx context.Context, ev patient.LifecycleEvent) error {
	if ev.RecordID == nil {
		return nil
	}

	rec, err := d.repo.GetRecord(ctx, *ev.RecordID)
	if err != nil {
		if errors.Is(err, patient.ErrRecordNotFound) {
			d.logger.Warn().Int64("event_id", ev.ID).Msg("record gone, skipping notification")
			return nil
		}
		return fmt.Errorf("load record: %w", err)
	}

	message := composeMessage(ev, *rec)
	if message == "" {
		return nil
	}

	return d.sender.Send(ctx, *rec, message)
}

// composeMessage builds the patient-facing text for an event.
func composeMessage(ev patient.LifecycleEvent, rec patient.Record) string {
	switch ev.EventType {
	case patient.EventBookingCreated:
		if rec.ScheduledDate != nil && rec.ScheduledTime != nil && rec.ClinicName != nil {
			return fmt.Sprintf("Hi %s, your %s appointment is booked for %s at %s, %s.",
				rec.FirstName, rec.AppointmentType, *rec.ScheduledDate, *rec.ScheduledTime, *rec.ClinicName)
		}
		return fmt.Sprintf("Hi %s, your %s appointment request was received.", rec.FirstName, rec.AppointmentType)
	case patient.EventStatusChanged:
		return statusMessage(ev, rec)
	default:
		return ""
	}
}

func statusMessage(ev patient.LifecycleEvent, rec patient.Record) string {
	var payload struct {
		To patient.Status `json:"to"`
	}
	if len(ev.Payload) > 0 {
		_ = json.Unmarshal(ev.Payload, &payload)
	}
	if payload.To == "" {
		payload.To = rec.Status
	}

	switch payload.To {
	case patient.StatusConfirmed:
		return fmt.Sprintf("Hi %s, your appointment is confirmed. See you soon.", rec.FirstName)
	case patient.StatusRescheduleRequested:
		return fmt.Sprintf("Hi %s, we received your reschedule request. Our team will contact you within 24 hours.", rec.FirstName)
	case patient.StatusCheckedIn:
		return fmt.Sprintf("Hi %s, you are checked in. Estimated wait: %d minutes.", rec.FirstName, rec.EstimatedWaitMins)
	case patient.StatusInTreatment:
		return fmt.Sprintf("Hi %s, a treatment room is ready for you.", rec.FirstName)
	case patient.StatusCompleted:
		return fmt.Sprintf("Hi %s, thanks for visiting. Take care!", rec.FirstName)
	case patient.StatusCancelled:
		return fmt.Sprintf("Hi %s, your appointment has been cancelled. You can book a new one anytime.", rec.FirstName)
	default:
		return ""
	}
}
