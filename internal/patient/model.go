package patient

import (
	"time"

	"github.com/google/uuid"
)

// Priority is the coarse triage tier used for queue ordering and slot matching.
type Priority string

const (
	PriorityEmergency Priority = "emergency"
	PriorityHigh      Priority = "high"
	PriorityMedium    Priority = "medium"
	PriorityLow       Priority = "low"
)

// Rank orders priorities for the waiting room, emergency first.
func (p Priority) Rank() int {
	switch p {
	case PriorityEmergency:
		return 0
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityEmergency, PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// UrgencyLevel is the patient-facing label derived from Priority.
type UrgencyLevel string

const (
	UrgencyEmergency UrgencyLevel = "emergency"
	UrgencyUrgent    UrgencyLevel = "urgent"
	UrgencySoon      UrgencyLevel = "soon"
	UrgencyRoutine   UrgencyLevel = "routine"
)

// Urgency maps a priority tier to its urgency label.
func (p Priority) Urgency() UrgencyLevel {
	switch p {
	case PriorityEmergency:
		return UrgencyEmergency
	case PriorityHigh:
		return UrgencyUrgent
	case PriorityMedium:
		return UrgencySoon
	default:
		return UrgencyRoutine
	}
}

type Status string

const (
	StatusScheduled           Status = "scheduled"
	StatusConfirmed           Status = "confirmed"
	StatusRescheduleRequested Status = "reschedule-requested"
	StatusCheckedIn           Status = "checked-in"
	StatusInTreatment         Status = "in-treatment"
	StatusCompleted           Status = "completed"
	StatusCancelled           Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusRescheduleRequested,
		StatusCheckedIn, StatusInTreatment, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether the status has no outgoing transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// RescheduleRequest is attached when a patient asks to move an appointment.
type RescheduleRequest struct {
	PreferredDate string    `json:"preferredDate"`
	PreferredTime string    `json:"preferredTime"`
	Reason        string    `json:"reason"`
	RequestedAt   time.Time `json:"requestedAt"`
}

// Record is the unit of work: one booked appointment for one patient.
// The persistence layer owns it; everything else operates on copies.
type Record struct {
	ID                 uuid.UUID          `json:"id"`
	FirstName          string             `json:"firstName"`
	LastName           string             `json:"lastName"`
	Email              string             `json:"email"`
	Phone              string             `json:"phone"`
	AppointmentType    string             `json:"appointmentType"`
	Symptoms           *string            `json:"symptoms,omitempty"`
	Priority           Priority           `json:"priority"`
	UrgencyLevel       UrgencyLevel       `json:"urgencyLevel"`
	Status             Status             `json:"status"`
	EstimatedWaitMins  int                `json:"estimatedWaitTimeMinutes"`
	ScheduledDate      *string            `json:"scheduledDate,omitempty"`
	ScheduledTime      *string            `json:"scheduledTime,omitempty"`
	ClinicName         *string            `json:"clinicName,omitempty"`
	ClinicAddress      *string            `json:"clinicAddress,omitempty"`
	ClinicPhone        *string            `json:"clinicPhone,omitempty"`
	CheckInTime        *string            `json:"checkInTime,omitempty"` // wall clock "HH:MM"
	RescheduleRequest  *RescheduleRequest `json:"rescheduleRequest,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
}

const (
	EventBookingCreated = "BOOKING_CREATED"
	EventStatusChanged  = "STATUS_CHANGED"
)

// LifecycleEvent is an audit row written for every booking and transition.
type LifecycleEvent struct {
	ID         int64
	EventType  string
	RecordID   *uuid.UUID
	Payload    []byte
	Dispatched bool
	CreatedAt  time.Time
}
