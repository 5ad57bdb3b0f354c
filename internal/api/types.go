package api

import "github.com/dentalai/clinic-triage/internal/patient"

type CreateBookingRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	AppointmentType string `json:"appointmentType"`
	Symptoms        string `json:"symptoms,omitempty"`
}

type BookingResponse struct {
	patient.Record
	RecommendedAction string `json:"recommendedAction,omitempty"`
	Reasoning         string `json:"reasoning,omitempty"`
}

type UpdateStatusRequest struct {
	Status            string                    `json:"status"`
	RescheduleRequest *RescheduleRequestPayload `json:"rescheduleRequest,omitempty"`
}

type RescheduleRequestPayload struct {
	PreferredDate string `json:"preferredDate"`
	PreferredTime string `json:"preferredTime"`
	Reason        string `json:"reason"`
}

type ChatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type ChatResponse struct {
	SessionID string `json:"sessionId"`
	Reply     string `json:"reply"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
