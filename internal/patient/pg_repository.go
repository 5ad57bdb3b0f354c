package patient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const recordColumns = `
	id, first_name, last_name, email, phone, appointment_type, symptoms,
	priority, urgency_level, status, estimated_wait_minutes,
	scheduled_date, scheduled_time, clinic_name, clinic_address, clinic_phone,
	check_in_time, reschedule_request, created_at, updated_at
`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	var reschedule []byte

	err := row.Scan(
		&r.ID,
		&r.FirstName,
		&r.LastName,
		&r.Email,
		&r.Phone,
		&r.AppointmentType,
		&r.Symptoms,
		&r.Priority,
		&r.UrgencyLevel,
		&r.Status,
		&r.EstimatedWaitMins,
		&r.ScheduledDate,
		&r.ScheduledTime,
		&r.ClinicName,
		&r.ClinicAddress,
		&r.ClinicPhone,
		&r.CheckInTime,
		&reschedule,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, mapRecordErr(err)
	}

	if len(reschedule) > 0 {
		var req RescheduleRequest
		if err := json.Unmarshal(reschedule, &req); err != nil {
			return nil, fmt.Errorf("decode reschedule request: %w", err)
		}
		r.RescheduleRequest = &req
	}

	return &r, nil
}

// mapRecordErr folds "no rows" and permission errors into not-found so callers
// proceed with defaults instead of aborting on a misconfigured policy.
func mapRecordErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrRecordNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "42501" {
		return ErrRecordNotFound
	}
	return err
}

func marshalReschedule(req *RescheduleRequest) (*string, error) {
	if req == nil {
		return nil, nil
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode reschedule request: %w", err)
	}
	s := string(data)
	return &s, nil
}

// Interface methods

func (r *PgRepository) CreateRecord(ctx context.Context, rec Record) (*Record, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO patient_records (
			id, first_name, last_name, email, phone, appointment_type, symptoms,
			priority, urgency_level, status, estimated_wait_minutes,
			scheduled_date, scheduled_time, clinic_name, clinic_address, clinic_phone,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'scheduled', $10,
		        $11, $12, $13, $14, $15, now(), now())
		RETURNING `+recordColumns, rec.ID, rec.FirstName, rec.LastName, rec.Email, rec.Phone,
		rec.AppointmentType, rec.Symptoms, rec.Priority, rec.UrgencyLevel,
		rec.EstimatedWaitMins, rec.ScheduledDate, rec.ScheduledTime,
		rec.ClinicName, rec.ClinicAddress, rec.ClinicPhone)

	return scanRecord(row)
}

func (r *PgRepository) GetRecord(ctx context.Context, id uuid.UUID) (*Record, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM patient_records
		WHERE id = $1
	`, id)
	return scanRecord(row)
}

func (r *PgRepository) ListRecords(ctx context.Context) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM patient_records
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, mapRecordErr(err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

func (r *PgRepository) ListRecordsByEmail(ctx context.Context, email string) ([]Record, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+recordColumns+`
		FROM patient_records
		WHERE email = $1
		ORDER BY created_at DESC
	`, email)
	if err != nil {
		return nil, mapRecordErr(err)
	}
	defer rows.Close()

	return collectRecords(rows)
}

func collectRecords(rows pgx.Rows) ([]Record, error) {
	var result []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) UpdateRecordStatus(ctx context.Context, rec Record) (*Record, error) {
	reschedule, err := marshalReschedule(rec.RescheduleRequest)
	if err != nil {
		return nil, err
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE patient_records
		SET status = $2,
		    check_in_time = $3,
		    reschedule_request = $4,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+recordColumns, rec.ID, rec.Status, rec.CheckInTime, reschedule)

	return scanRecord(row)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev LifecycleEvent) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO lifecycle_events (event_type, record_id, payload, dispatched, created_at)
		VALUES ($1, $2, $3, false, COALESCE($4, now()))
	`, ev.EventType, ev.RecordID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert lifecycle event: %w", err)
	}

	return nil
}

func (r *PgRepository) FindUndispatchedEvents(ctx context.Context, limit int) ([]LifecycleEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_type, record_id, payload, dispatched, created_at
		FROM lifecycle_events
		WHERE dispatched = false
		ORDER BY id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []LifecycleEvent
	for rows.Next() {
		var ev LifecycleEvent
		if err := rows.Scan(&ev.ID, &ev.EventType, &ev.RecordID, &ev.Payload, &ev.Dispatched, &ev.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) MarkEventDispatched(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE lifecycle_events
		SET dispatched = true
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("mark event dispatched: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
