package booking

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dentalai/clinic-triage/internal/observability/metrics"
	"github.com/dentalai/clinic-triage/internal/patient"
	"github.com/dentalai/clinic-triage/internal/scheduling"
	"github.com/dentalai/clinic-triage/internal/triage"
)

// Classifier is what the service needs from the triage layer.
type Classifier interface {
	Classify(ctx context.Context, appointmentType, symptoms string) triage.Result
}

// Publisher pushes the full record collection to realtime subscribers.
type Publisher interface {
	Publish(ctx context.Context, records []patient.Record) error
}

// Request carries the patient intake form for a new booking.
type Request struct {
	FirstName       string
	LastName        string
	Email           string
	Phone           string
	AppointmentType string
	Symptoms        string
}

// Result is a created booking plus the human-readable context the
// front desk shows the patient.
type Result struct {
	Record            *patient.Record
	RecommendedAction string
	Reasoning         string
}

// Service orchestrates the booking flow: triage, slot assignment,
// persistence, event logging and realtime publication. Status transitions
// run through the lifecycle state machine before they are persisted.
type Service struct {
	repo       patient.Repository
	classifier Classifier
	publisher  Publisher
	metrics    *metrics.ClinicMetrics
	logger     zerolog.Logger
}

func NewService(repo patient.Repository, classifier Classifier, publisher Publisher, m *metrics.ClinicMetrics, logger zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		classifier: classifier,
		publisher:  publisher,
		metrics:    m,
		logger:     logger,
	}
}

// CreateBooking classifies the request, assigns a slot and persists the
// record in scheduled state. Persistence failure is returned to the caller
// untouched; nothing is written on that path.
func (s *Service) CreateBooking(ctx context.Context, req Request) (*Result, error) {
	triaged := s.classifier.Classify(ctx, req.AppointmentType, req.Symptoms)
	assignment := scheduling.Assign(triaged.Urgency(), triaged.Priority)

	rec := patient.Record{
		ID:                uuid.New(),
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Email:             req.Email,
		Phone:             req.Phone,
		AppointmentType:   triaged.AppointmentType,
		Priority:          triaged.Priority,
		UrgencyLevel:      triaged.Urgency(),
		Status:            patient.StatusScheduled,
		EstimatedWaitMins: triaged.EstimatedWaitMinutes,
		ScheduledDate:     &assignment.ScheduledDate,
		ScheduledTime:     &assignment.ScheduledTime,
		ClinicName:        &assignment.ClinicName,
		ClinicAddress:     &assignment.ClinicAddress,
		ClinicPhone:       &assignment.ClinicPhone,
	}
	if req.Symptoms != "" {
		symptoms := req.Symptoms
		rec.Symptoms = &symptoms
	}

	created, err := s.repo.CreateRecord(ctx, rec)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveBooking(string(created.Priority))
	s.logEvent(ctx, created.ID, patient.EventBookingCreated, map[string]any{
		"priority":  created.Priority,
		"reasoning": assignment.Reasoning,
	})
	s.publishSnapshot(ctx)

	return &Result{
		Record:            created,
		RecommendedAction: triaged.RecommendedAction,
		Reasoning:         assignment.Reasoning,
	}, nil
}

// UpdateStatus applies one lifecycle transition. An invalid transition is
// rejected before anything touches the store.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, target patient.Status, reschedule *patient.RescheduleRequest) (*patient.Record, error) {
	rec, err := s.repo.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := patient.Transition(*rec, target, reschedule, time.Now())
	if err != nil {
		if errors.Is(err, patient.ErrInvalidTransition) {
			s.metrics.ObserveInvalidTransition()
		}
		return nil, err
	}

	updated, err := s.repo.UpdateRecordStatus(ctx, next)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveTransition(string(target))
	s.logEvent(ctx, updated.ID, patient.EventStatusChanged, map[string]any{
		"from": rec.Status,
		"to":   target,
	})
	s.publishSnapshot(ctx)

	return updated, nil
}

// GetRecord retrieves a single record.
func (s *Service) GetRecord(ctx context.Context, id uuid.UUID) (*patient.Record, error) {
	return s.repo.GetRecord(ctx, id)
}

// ListRecords returns the full collection, optionally filtered by patient
// email.
func (s *Service) ListRecords(ctx context.Context, email string) ([]patient.Record, error) {
	if email != "" {
		return s.repo.ListRecordsByEmail(ctx, email)
	}
	return s.repo.ListRecords(ctx)
}

// publishSnapshot reads the collection back and broadcasts it as a full
// replace. Publication failure never fails the originating request.
func (s *Service) publishSnapshot(ctx context.Context) {
	if s.publisher == nil {
		return
	}

	records, err := s.repo.ListRecords(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("snapshot read failed, subscribers stay stale")
		return
	}
	if err := s.publisher.Publish(ctx, records); err != nil {
		s.logger.Error().Err(err).Msg("snapshot publish failed, subscribers stay stale")
	}
}

func (s *Service) logEvent(ctx context.Context, recordID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("marshal event payload")
		data = nil
	}

	recID := recordID
	ev := patient.LifecycleEvent{
		EventType: eventType,
		RecordID:  &recID,
		Payload:   data,
		CreatedAt: time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.logger.Error().Err(err).
			Str("event_type", eventType).
			Str("record_id", recordID.String()).
			Msg("insert lifecycle event")
	}
}
