package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/saludgo/turnos-api/internal/models"
	"github.com/saludgo/turnos-api/internal/repository"
	"github.com/saludgo/turnos-api/internal/service"
	"github.com/saludgo/turnos-api/pkg/config"
	"github.com/saludgo/turnos-api/pkg/database"
)

var specialties = []string{
	"Clínica Médica", "Cardiología", "Dermatología", "Pediatría",
	"Traumatología", "Oftalmología", "Neurología",
}

var weekdaySets = [][]string{
	{"monday", "wednesday", "friday"},
	{"tuesday", "thursday"},
	{"monday", "tuesday", "wednesday", "thursday", "friday"},
}

func main() {
	professionalCount := flag.Int("professionals", 5, "number of professionals to create")
	patientCount := flag.Int("patients", 20, "number of patients to create")
	seed := flag.Int64("seed", 0, "fake data seed (0 = random)")
	flag.Parse()

	if *seed != 0 {
		if err := gofakeit.Seed(*seed); err != nil {
			log.Fatalf("failed to seed faker: %v", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	userRepo := repository.NewUserRepository(db)
	patientRepo := repository.NewPatientRepository(db)
	professionalRepo := repository.NewProfessionalRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	slotRepo := repository.NewSlotRepository(db)

	hash, err := bcrypt.GenerateFromPassword([]byte("changeme123"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	now := time.Now().UTC()
	admin := &models.User{
		ID:           uuid.NewString(),
		Username:     "admin",
		PasswordHash: string(hash),
		FullName:     "Administrador",
		Role:         models.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := userRepo.Create(ctx, admin); err != nil {
		log.Printf("admin user not created (may already exist): %v", err)
	}

	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < *professionalCount; i++ {
		name := gofakeit.Name()
		user := &models.User{
			ID:           uuid.NewString(),
			Username:     fmt.Sprintf("prof_%s%d", strings.ToLower(gofakeit.LastName()), i),
			PasswordHash: string(hash),
			FullName:     name,
			Role:         models.RoleProfessional,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		tx, err := userRepo.Begin(ctx)
		if err != nil {
			log.Fatalf("failed to open tx: %v", err)
		}
		if err := userRepo.CreateWithTx(ctx, tx, user); err != nil {
			_ = tx.Rollback()
			log.Fatalf("failed to create professional user: %v", err)
		}
		prof := &models.Professional{
			ID:              uuid.NewString(),
			UserID:          user.ID,
			LicenseNumber:   fmt.Sprintf("MP-%d", gofakeit.Number(10000, 99999)),
			Specialty:       specialties[i%len(specialties)],
			Phone:           gofakeit.Phone(),
			WorkStart:       "08:00",
			WorkEnd:         "16:00",
			AttendanceDays:  weekdaySets[i%len(weekdaySets)],
			SlotDurationMin: []int{20, 30, 45}[i%3],
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := professionalRepo.CreateWithTx(ctx, tx, prof); err != nil {
			_ = tx.Rollback()
			log.Fatalf("failed to create professional: %v", err)
		}
		if err := tx.Commit(); err != nil {
			log.Fatalf("failed to commit professional: %v", err)
		}

		sched := &models.Schedule{
			ID:              uuid.NewString(),
			ProfessionalID:  prof.ID,
			Month:           month,
			StartTime:       prof.WorkStart,
			EndTime:         prof.WorkEnd,
			SlotDurationMin: prof.SlotDurationMin,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		slots, err := service.GenerateSlots(*sched, prof.AttendanceDays)
		if err != nil {
			log.Fatalf("failed to tile schedule: %v", err)
		}
		if err := scheduleRepo.Create(ctx, sched); err != nil {
			log.Fatalf("failed to create schedule: %v", err)
		}
		if err := slotRepo.BulkCreate(ctx, slots); err != nil {
			log.Fatalf("failed to create slots: %v", err)
		}
		log.Printf("professional %s: %d slots for %s", name, len(slots), month.Format("2006-01"))
	}

	for i := 0; i < *patientCount; i++ {
		name := gofakeit.Name()
		email := gofakeit.Email()
		user := &models.User{
			ID:           uuid.NewString(),
			Username:     fmt.Sprintf("pac_%s%d", strings.ToLower(gofakeit.LastName()), i),
			PasswordHash: string(hash),
			FullName:     name,
			Role:         models.RolePatient,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		tx, err := userRepo.Begin(ctx)
		if err != nil {
			log.Fatalf("failed to open tx: %v", err)
		}
		if err := userRepo.CreateWithTx(ctx, tx, user); err != nil {
			_ = tx.Rollback()
			log.Fatalf("failed to create patient user: %v", err)
		}
		patient := &models.Patient{
			ID:             uuid.NewString(),
			UserID:         user.ID,
			DocumentNumber: fmt.Sprintf("%d", gofakeit.Number(10000000, 45000000)),
			FullName:       name,
			BirthDate:      gofakeit.DateRange(now.AddDate(-90, 0, 0), now.AddDate(-18, 0, 0)),
			Phone:          gofakeit.Phone(),
			Email:          &email,
			Address:        gofakeit.Street(),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := patientRepo.CreateWithTx(ctx, tx, patient); err != nil {
			_ = tx.Rollback()
			log.Fatalf("failed to create patient: %v", err)
		}
		if err := tx.Commit(); err != nil {
			log.Fatalf("failed to commit patient: %v", err)
		}
	}

	log.Printf("seeded %d professionals and %d patients", *professionalCount, *patientCount)
}
