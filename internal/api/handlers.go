package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dentalai/clinic-triage/internal/booking"
	"github.com/dentalai/clinic-triage/internal/chat"
	"github.com/dentalai/clinic-triage/internal/patient"
	"github.com/dentalai/clinic-triage/internal/scheduling"
	"github.com/dentalai/clinic-triage/internal/waitroom"
)

func createBookingHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateBookingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if missing := firstMissing(map[string]string{
			"firstName":       req.FirstName,
			"lastName":        req.LastName,
			"email":           req.Email,
			"phone":           req.Phone,
			"appointmentType": req.AppointmentType,
		}); missing != "" {
			writeError(w, http.StatusBadRequest, "missing_field", missing+" is required")
			return
		}

		res, err := svc.CreateBooking(r.Context(), booking.Request{
			FirstName:       req.FirstName,
			LastName:        req.LastName,
			Email:           req.Email,
			Phone:           req.Phone,
			AppointmentType: req.AppointmentType,
			Symptoms:        req.Symptoms,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, BookingResponse{
			Record:            *res.Record,
			RecommendedAction: res.RecommendedAction,
			Reasoning:         res.Reasoning,
		})
	}
}

func listBookingsHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, err := svc.ListRecords(r.Context(), r.URL.Query().Get("email"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if records == nil {
			records = []patient.Record{}
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func getBookingHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_record_id", "id must be a valid UUID")
			return
		}

		rec, err := svc.GetRecord(r.Context(), id)
		if err != nil {
			handleRecordError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func updateStatusHandler(svc *booking.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_record_id", "id must be a valid UUID")
			return
		}

		var req UpdateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		target := patient.Status(req.Status)
		if !target.Valid() {
			writeError(w, http.StatusBadRequest, "invalid_status", "status must be one of the lifecycle states")
			return
		}

		var reschedule *patient.RescheduleRequest
		if req.RescheduleRequest != nil {
			reschedule = &patient.RescheduleRequest{
				PreferredDate: req.RescheduleRequest.PreferredDate,
				PreferredTime: req.RescheduleRequest.PreferredTime,
				Reason:        req.RescheduleRequest.Reason,
			}
		}

		updated, err := svc.UpdateStatus(r.Context(), id, target, reschedule)
		if err != nil {
			handleStatusError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func waitlistHandler(q *waitroom.Queue) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order := q.CurrentOrder()
		if order == nil {
			order = []patient.Record{}
		}
		writeJSON(w, http.StatusOK, order)
	}
}

func slotsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, scheduling.Catalog())
	}
}

func chatHandler(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			writeError(w, http.StatusBadRequest, "missing_field", "message is required")
			return
		}
		if req.SessionID == "" {
			req.SessionID = uuid.NewString()
		}

		reply := svc.Reply(r.Context(), req.SessionID, req.Message)
		writeJSON(w, http.StatusOK, ChatResponse{SessionID: req.SessionID, Reply: reply})
	}
}

func chatHistoryHandler(svc *chat.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")

		history, err := svc.History(r.Context(), sessionID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if history == nil {
			history = []chat.Message{}
		}
		writeJSON(w, http.StatusOK, history)
	}
}

func handleRecordError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, patient.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "record_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleStatusError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, patient.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "record_not_found", err.Error())
	case errors.Is(err, patient.ErrRescheduleNoPayload):
		writeError(w, http.StatusBadRequest, "missing_reschedule_request", err.Error())
	case errors.Is(err, patient.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func firstMissing(fields map[string]string) string {
	// Deterministic order for error messages.
	for _, name := range []string{"firstName", "lastName", "email", "phone", "appointmentType"} {
		if v, ok := fields[name]; ok && strings.TrimSpace(v) == "" {
			return name
		}
	}
	return ""
}
