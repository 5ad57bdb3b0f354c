package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentalai/clinic-triage/internal/booking"
	"github.com/dentalai/clinic-triage/internal/chat"
	"github.com/dentalai/clinic-triage/internal/patient"
	"github.com/dentalai/clinic-triage/internal/scheduling"
	"github.com/dentalai/clinic-triage/internal/triage"
	"github.com/dentalai/clinic-triage/internal/waitroom"
)

type memRepo struct {
	records map[uuid.UUID]patient.Record
	events  []patient.LifecycleEvent
}

func newMemRepo() *memRepo {
	return &memRepo{records: make(map[uuid.UUID]patient.Record)}
}

func (m *memRepo) CreateRecord(ctx context.Context, rec patient.Record) (*patient.Record, error) {
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	m.records[rec.ID] = rec
	return &rec, nil
}

func (m *memRepo) GetRecord(ctx context.Context, id uuid.UUID) (*patient.Record, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, patient.ErrRecordNotFound
	}
	return &rec, nil
}

func (m *memRepo) ListRecords(ctx context.Context) ([]patient.Record, error) {
	out := make([]patient.Record, 0, len(m.records))
	for _, rec := range m.records {
		out = append(out, rec)
	}
	return out, nil
}

func (m *memRepo) ListRecordsByEmail(ctx context.Context, email string) ([]patient.Record, error) {
	var out []patient.Record
	for _, rec := range m.records {
		if rec.Email == email {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (m *memRepo) UpdateRecordStatus(ctx context.Context, rec patient.Record) (*patient.Record, error) {
	if _, ok := m.records[rec.ID]; !ok {
		return nil, patient.ErrRecordNotFound
	}
	rec.UpdatedAt = time.Now()
	m.records[rec.ID] = rec
	return &rec, nil
}

func (m *memRepo) InsertEvent(ctx context.Context, ev patient.LifecycleEvent) error {
	m.events = append(m.events, ev)
	return nil
}

func (m *memRepo) FindUndispatchedEvents(ctx context.Context, limit int) ([]patient.LifecycleEvent, error) {
	return nil, nil
}

func (m *memRepo) MarkEventDispatched(ctx context.Context, id int64) error {
	return nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(ctx context.Context, records []patient.Record) error { return nil }

type memChatRepo struct {
	messages []chat.Message
}

func (m *memChatRepo) SaveMessage(ctx context.Context, msg chat.Message) error {
	m.messages = append(m.messages, msg)
	return nil
}

func (m *memChatRepo) ListSession(ctx context.Context, sessionID string) ([]chat.Message, error) {
	var out []chat.Message
	for _, msg := range m.messages {
		if msg.SessionID == sessionID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func newTestRouter(t *testing.T) (http.Handler, *memRepo) {
	t.Helper()

	repo := newMemRepo()
	classifier := triage.NewClassifier(nil, time.Second, zerolog.Nop())
	bookingSvc := booking.NewService(repo, classifier, nopPublisher{}, nil, zerolog.Nop())
	chatSvc := chat.NewService(nil, &memChatRepo{}, time.Second, zerolog.Nop())
	queue := waitroom.NewQueue(30*time.Second, zerolog.Nop(), nil)

	router := NewRouter(RouterConfig{
		Booking: bookingSvc,
		Chat:    chatSvc,
		Queue:   queue,
		Env:     "test",
		Version: "test",
		Logger:  zerolog.Nop(),
	})
	return router, repo
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreateBooking(t *testing.T) {
	router, _ := newTestRouter(t)

	w := postJSON(t, router, "/bookings", CreateBookingRequest{
		FirstName:       "Maya",
		LastName:        "Chen",
		Email:           "maya@example.com",
		Phone:           "416-555-0101",
		AppointmentType: "Checkup",
		Symptoms:        "severe pain and bleeding gums",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp BookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, patient.PriorityEmergency, resp.Priority)
	assert.Equal(t, patient.StatusScheduled, resp.Status)
	assert.Equal(t, 10, resp.EstimatedWaitMins)
	require.NotNil(t, resp.ClinicName)
	assert.Equal(t, "Dental AI Clinic - Downtown", *resp.ClinicName)
	assert.NotEmpty(t, resp.Reasoning)
	assert.NotEmpty(t, resp.RecommendedAction)
}

func TestCreateBookingValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	w := postJSON(t, router, "/bookings", CreateBookingRequest{
		FirstName:       "Maya",
		Email:           "maya@example.com",
		Phone:           "416-555-0101",
		AppointmentType: "Checkup",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "missing_field", resp.Error)
	assert.Contains(t, resp.Details, "lastName")
}

func TestCreateBookingBadJSON(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/bookings", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetBooking(t *testing.T) {
	router, repo := newTestRouter(t)

	w := postJSON(t, router, "/bookings", CreateBookingRequest{
		FirstName:       "Sam",
		LastName:        "Osei",
		Email:           "sam@example.com",
		Phone:           "416-555-0102",
		AppointmentType: "Cleaning",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created BookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = get(t, router, "/bookings/"+created.ID.String())
	require.Equal(t, http.StatusOK, w.Code)

	var fetched patient.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fetched))
	assert.Equal(t, created.ID, fetched.ID)

	_, ok := repo.records[created.ID]
	assert.True(t, ok)
}

func TestGetBookingErrors(t *testing.T) {
	router, _ := newTestRouter(t)

	w := get(t, router, "/bookings/not-a-uuid")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(t, router, "/bookings/"+uuid.NewString())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListBookingsByEmail(t *testing.T) {
	router, _ := newTestRouter(t)

	for _, email := range []string{"a@example.com", "b@example.com", "a@example.com"} {
		w := postJSON(t, router, "/bookings", CreateBookingRequest{
			FirstName:       "Pat",
			LastName:        "Lee",
			Email:           email,
			Phone:           "416-555-0103",
			AppointmentType: "Cleaning",
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := get(t, router, "/bookings?email=a@example.com")
	require.Equal(t, http.StatusOK, w.Code)

	var records []patient.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	assert.Len(t, records, 2)
}

func TestUpdateStatus(t *testing.T) {
	router, _ := newTestRouter(t)

	w := postJSON(t, router, "/bookings", CreateBookingRequest{
		FirstName:       "Ada",
		LastName:        "Novak",
		Email:           "ada@example.com",
		Phone:           "416-555-0104",
		AppointmentType: "Cleaning",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created BookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	statusPath := "/bookings/" + created.ID.String() + "/status"

	w = postJSON(t, router, statusPath, UpdateStatusRequest{Status: string(patient.StatusConfirmed)})
	require.Equal(t, http.StatusOK, w.Code)

	w = postJSON(t, router, statusPath, UpdateStatusRequest{Status: string(patient.StatusCheckedIn)})
	require.Equal(t, http.StatusOK, w.Code)

	var checkedIn patient.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &checkedIn))
	assert.Equal(t, patient.StatusCheckedIn, checkedIn.Status)
	require.NotNil(t, checkedIn.CheckInTime)
}

func TestUpdateStatusRejectsInvalidTransition(t *testing.T) {
	router, _ := newTestRouter(t)

	w := postJSON(t, router, "/bookings", CreateBookingRequest{
		FirstName:       "Ada",
		LastName:        "Novak",
		Email:           "ada@example.com",
		Phone:           "416-555-0104",
		AppointmentType: "Cleaning",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created BookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	statusPath := "/bookings/" + created.ID.String() + "/status"

	// Scheduled records cannot go straight to treatment.
	w = postJSON(t, router, statusPath, UpdateStatusRequest{Status: string(patient.StatusInTreatment)})
	require.Equal(t, http.StatusConflict, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_status_transition", resp.Error)
}

func TestUpdateStatusValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	w := postJSON(t, router, "/bookings", CreateBookingRequest{
		FirstName:       "Ada",
		LastName:        "Novak",
		Email:           "ada@example.com",
		Phone:           "416-555-0104",
		AppointmentType: "Cleaning",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created BookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	statusPath := "/bookings/" + created.ID.String() + "/status"

	w = postJSON(t, router, statusPath, UpdateStatusRequest{Status: "vanished"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Reschedule requests must carry the preferred date and time.
	w = postJSON(t, router, statusPath, UpdateStatusRequest{Status: string(patient.StatusRescheduleRequested)})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(t, router, statusPath, UpdateStatusRequest{
		Status: string(patient.StatusRescheduleRequested),
		RescheduleRequest: &RescheduleRequestPayload{
			PreferredDate: "2026-09-15",
			PreferredTime: "10:30 AM",
			Reason:        "work conflict",
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var updated patient.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	require.NotNil(t, updated.RescheduleRequest)
	assert.Equal(t, "2026-09-15", updated.RescheduleRequest.PreferredDate)
}

func TestWaitlistEmpty(t *testing.T) {
	router, _ := newTestRouter(t)

	w := get(t, router, "/waitlist")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestSlots(t *testing.T) {
	router, _ := newTestRouter(t)

	w := get(t, router, "/slots")
	require.Equal(t, http.StatusOK, w.Code)

	var entries []scheduling.CatalogEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Len(t, entries, 12)
	assert.Equal(t, "Dental AI Clinic - Downtown", entries[0].ClinicName)
}

func TestChat(t *testing.T) {
	router, _ := newTestRouter(t)

	w := postJSON(t, router, "/chat", ChatRequest{Message: "What are your hours?"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.SessionID)
	assert.NotEmpty(t, resp.Reply)
}

func TestChatValidation(t *testing.T) {
	router, _ := newTestRouter(t)

	w := postJSON(t, router, "/chat", ChatRequest{Message: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatHistory(t *testing.T) {
	router, _ := newTestRouter(t)

	w := postJSON(t, router, "/chat", ChatRequest{SessionID: "sess-1", Message: "Do you accept insurance?"})
	require.Equal(t, http.StatusOK, w.Code)

	w = get(t, router, "/chat/sess-1")
	require.Equal(t, http.StatusOK, w.Code)

	var history []chat.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	require.Len(t, history, 2)
	assert.False(t, history[0].FromBot)
	assert.True(t, history[1].FromBot)
}
