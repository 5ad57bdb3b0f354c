package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dentalai/clinic-triage/internal/booking"
	"github.com/dentalai/clinic-triage/internal/db"
	"github.com/dentalai/clinic-triage/internal/patient"
	"github.com/dentalai/clinic-triage/internal/triage"
)

// Symptom texts chosen to spread seeded bookings across the priority
// tiers.
var symptomPool = []string{
	"severe pain and facial swelling",
	"bleeding after extraction",
	"broken front tooth from a fall",
	"throbbing pain when chewing",
	"sensitivity to cold drinks",
	"mild discomfort near a filling",
	"",
	"",
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	repo := patient.NewPgRepository(pool)
	classifier := triage.NewClassifier(nil, time.Second, zerolog.Nop())
	svc := booking.NewService(repo, classifier, nil, nil, zerolog.Nop())

	if err := seedBookings(context.Background(), svc, 200); err != nil {
		log.Fatalf("seed bookings: %v", err)
	}

	log.Println("seed complete")
}

func seedBookings(ctx context.Context, svc *booking.Service, count int) error {
	log.Printf("seeding %d bookings", count)

	types := []string{"Checkup", "Cleaning", "Treatment", "Consultation"}

	for i := 0; i < count; i++ {
		res, err := svc.CreateBooking(ctx, booking.Request{
			FirstName:       gofakeit.FirstName(),
			LastName:        gofakeit.LastName(),
			Email:           gofakeit.Email(),
			Phone:           gofakeit.Phone(),
			AppointmentType: types[gofakeit.Number(0, len(types)-1)],
			Symptoms:        symptomPool[gofakeit.Number(0, len(symptomPool)-1)],
		})
		if err != nil {
			return err
		}

		// Walk a share of records further through the lifecycle so the
		// waiting room and notify worker have something to chew on.
		if err := advance(ctx, svc, res.Record.ID, gofakeit.Number(0, 99)); err != nil {
			return err
		}

		if (i+1)%50 == 0 {
			log.Printf("bookings seeded: %d/%d", i+1, count)
		}
	}

	log.Println("bookings seeded")
	return nil
}

func advance(ctx context.Context, svc *booking.Service, recID uuid.UUID, roll int) error {
	switch {
	case roll < 40:
		// leave scheduled
		return nil
	case roll < 70:
		_, err := svc.UpdateStatus(ctx, recID, patient.StatusConfirmed, nil)
		return err
	case roll < 90:
		if _, err := svc.UpdateStatus(ctx, recID, patient.StatusConfirmed, nil); err != nil {
			return err
		}
		_, err := svc.UpdateStatus(ctx, recID, patient.StatusCheckedIn, nil)
		return err
	default:
		_, err := svc.UpdateStatus(ctx, recID, patient.StatusCancelled, nil)
		return err
	}
}
